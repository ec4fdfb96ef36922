package coding

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/middleware"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1/icd10").Subrouter()
	api.HandleFunc("/map", h.handleMap).Methods(http.MethodPost)
	api.HandleFunc("/validate/{code}", h.handleValidate).Methods(http.MethodGet)
	api.HandleFunc("/codes/{code}", h.handleGetCode).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", h.handleGetRun).Methods(http.MethodGet)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	source, codes := h.service.VocabularyInfo()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "healthy",
		"vocabulary_source": source,
		"vocabulary_codes":  codes,
	})
}

func (h *Handler) handleMap(w http.ResponseWriter, r *http.Request) {
	var req models.MapRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Concepts == nil {
		http.Error(w, "concepts are required", http.StatusBadRequest)
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get(middleware.RequestIDHeader)
	}

	resp, err := h.service.Map(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to map concepts")
		http.Error(w, "failed to map concepts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Validate(mux.Vars(r)["code"]))
}

func (h *Handler) handleGetCode(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Lookup(mux.Vars(r)["code"])
	if err != nil {
		http.Error(w, "code not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Run(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrAuditDisabled):
		http.Error(w, "mapping audit disabled", http.StatusServiceUnavailable)
		return
	case err != nil:
		logger.Log.WithError(err).Error("failed to get mapping run")
		http.Error(w, "failed to get mapping run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
