package coding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
	"github.com/synaptica-ai/icd-mapper/pkg/icdmap"
	"github.com/synaptica-ai/icd-mapper/pkg/observability/metrics"
	"github.com/synaptica-ai/icd-mapper/pkg/terminology"
)

const (
	ServiceName = "icd-mapper-service"

	EventTypeMap = "icd10-map"
	EventTypeDLQ = "icd10-map-dlq"

	SourceHTTP  = "http"
	SourceKafka = "kafka"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAuditDisabled = errors.New("mapping audit disabled")
)

// Cache stores finished suggestion lists by concept hash.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.CodeSuggestion, bool, error)
	Set(ctx context.Context, key string, suggestions []models.CodeSuggestion) error
}

// Store persists one audit row per mapping run.
type Store interface {
	SaveRun(ctx context.Context, run *MappingRun) error
	GetRun(ctx context.Context, id string) (*MappingRun, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

type Service struct {
	engine    *icdmap.Engine
	cache     Cache
	store     Store
	publisher Publisher
	dlq       Publisher
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithStore(st Store) Option {
	return func(s *Service) { s.store = st }
}

// WithPublisher sets where suggestion events go, and where they go when that fails.
func WithPublisher(p, dlq Publisher) Option {
	return func(s *Service) {
		s.publisher = p
		s.dlq = dlq
	}
}

func NewService(engine *icdmap.Engine, opts ...Option) *Service {
	s := &Service{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Map(ctx context.Context, req models.MapRequest) (*models.MapResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.mapConcepts(ctx, req.RequestID, SourceHTTP, req.Concepts), nil
}

func (s *Service) mapConcepts(ctx context.Context, requestID, source string, raw interface{}) *models.MapResponse {
	log := logger.Component("coding").WithField("request_id", requestID)
	concepts := icdmap.CoerceConcepts(raw)
	resp := &models.MapResponse{
		RunID:     uuid.New().String(),
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}

	key := CacheKey(concepts)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("mapping cache read failed")
		} else {
			metrics.ObserveCache(ok)
			if ok {
				resp.Suggestions = cached
				resp.Cached = true
			}
		}
	}

	if !resp.Cached {
		resp.Suggestions = s.engine.Map(concepts)
		resp.Fallback = icdmap.IsFallback(resp.Suggestions)
		// the fallback is never cached so the next request gets a real attempt
		if s.cache != nil && !resp.Fallback {
			if err := s.cache.Set(ctx, key, resp.Suggestions); err != nil {
				log.WithError(err).Warn("mapping cache write failed")
			}
		}
	}

	metrics.ObserveMapping(len(resp.Suggestions), resp.Fallback)
	s.audit(ctx, source, concepts, resp)
	return resp
}

func (s *Service) audit(ctx context.Context, source string, concepts []models.ConceptRecord, resp *models.MapResponse) {
	if s.store == nil {
		return
	}
	log := logger.Component("coding").WithField("run_id", resp.RunID)
	run, err := NewMappingRun(source, s.engine.Vocabulary().Source(), concepts, resp)
	if err == nil {
		err = s.store.SaveRun(ctx, run)
	}
	if err != nil {
		metrics.ObserveAuditFailure()
		log.WithError(err).Warn("failed to record mapping run")
	}
}

func (s *Service) Validate(code string) models.CodeValidation {
	return s.engine.ValidateCode(code)
}

func (s *Service) Lookup(code string) (terminology.CodeEntry, error) {
	entry, ok := s.engine.Vocabulary().Lookup(strings.TrimSpace(code))
	if !ok {
		return terminology.CodeEntry{}, ErrNotFound
	}
	return entry, nil
}

func (s *Service) Run(ctx context.Context, id string) (*MappingRun, error) {
	if s.store == nil {
		return nil, ErrAuditDisabled
	}
	return s.store.GetRun(ctx, id)
}

// VocabularyInfo reports the loaded vocabulary source and size.
func (s *Service) VocabularyInfo() (string, int) {
	v := s.engine.Vocabulary()
	return v.Source(), v.Len()
}

// CacheKey hashes the coerced concept list; equal inputs share one cache entry.
func CacheKey(concepts []models.ConceptRecord) string {
	if concepts == nil {
		concepts = []models.ConceptRecord{}
	}
	payload, _ := json.Marshal(concepts)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
