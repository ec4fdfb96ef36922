package coding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MappingRun is the audit row written for every mapping request.
type MappingRun struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID        string         `gorm:"index" json:"request_id,omitempty"`
	Source           string         `json:"source"`
	VocabularySource string         `json:"vocabulary_source"`
	ConceptCount     int            `json:"concept_count"`
	SuggestionCount  int            `json:"suggestion_count"`
	Cached           bool           `json:"cached"`
	Fallback         bool           `json:"fallback"`
	Concepts         datatypes.JSON `gorm:"type:jsonb" json:"concepts"`
	Suggestions      datatypes.JSON `gorm:"type:jsonb" json:"suggestions"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
}

func (MappingRun) TableName() string {
	return "icd_mapping_runs"
}

func NewMappingRun(source, vocabularySource string, concepts []models.ConceptRecord, resp *models.MapResponse) (*MappingRun, error) {
	conceptsJSON, err := json.Marshal(concepts)
	if err != nil {
		return nil, fmt.Errorf("encoding concepts: %w", err)
	}
	suggestionsJSON, err := json.Marshal(resp.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("encoding suggestions: %w", err)
	}
	return &MappingRun{
		ID:               resp.RunID,
		RequestID:        resp.RequestID,
		Source:           source,
		VocabularySource: vocabularySource,
		ConceptCount:     len(concepts),
		SuggestionCount:  len(resp.Suggestions),
		Cached:           resp.Cached,
		Fallback:         resp.Fallback,
		Concepts:         datatypes.JSON(conceptsJSON),
		Suggestions:      datatypes.JSON(suggestionsJSON),
		CreatedAt:        resp.Timestamp,
	}, nil
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&MappingRun{})
}

func (r *Repository) SaveRun(ctx context.Context, run *MappingRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repository) GetRun(ctx context.Context, id string) (*MappingRun, error) {
	var run MappingRun
	result := r.db.WithContext(ctx).First(&run, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &run, nil
}

// CleanupExpired removes audit rows older than ttl; a zero ttl keeps everything.
func (r *Repository) CleanupExpired(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-ttl)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&MappingRun{}).Error
}
