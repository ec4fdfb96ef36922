package coding

import (
	"context"
	"errors"
	"fmt"

	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
	"github.com/synaptica-ai/icd-mapper/pkg/observability/metrics"
)

// HandleConceptEvent maps the concept list carried by an extraction event and
// publishes the suggestions. A suggestion event that cannot be published is routed
// to the dead letter topic; the error is only returned when that fails too.
func (s *Service) HandleConceptEvent(ctx context.Context, event models.Event) error {
	metrics.ObserveEventConsumed()
	log := logger.Component("coding").WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	raw, ok := event.Data["concepts"]
	if !ok {
		log.Warn("No concepts found in event")
		return nil
	}

	resp := s.mapConcepts(ctx, event.ID, SourceKafka, raw)
	log.WithFields(map[string]interface{}{
		"run_id":      resp.RunID,
		"suggestions": len(resp.Suggestions),
	}).Info("Mapped concept event")

	if s.publisher == nil {
		return nil
	}

	payload := map[string]interface{}{
		"run_id":          resp.RunID,
		"source_event_id": event.ID,
		"suggestions":     resp.Suggestions,
		"cached":          resp.Cached,
		"fallback":        resp.Fallback,
	}
	for _, key := range []string{"transcript_id", "session_id"} {
		if v, ok := event.Data[key]; ok {
			payload[key] = v
		}
	}

	sendErr := s.publisher.PublishEvent(ctx, EventTypeMap, ServiceName, payload)
	if sendErr == nil {
		metrics.ObserveEventPublished()
		return nil
	}

	log.WithError(sendErr).Error("failed to publish icd-10 suggestions")
	if s.dlq == nil {
		return fmt.Errorf("publishing suggestions: %w", sendErr)
	}
	payload["error"] = sendErr.Error()
	if dlqErr := s.dlq.PublishEvent(ctx, EventTypeDLQ, ServiceName, payload); dlqErr != nil {
		log.WithError(dlqErr).Error("failed to push event to DLQ")
		return fmt.Errorf("publishing suggestions: %w", errors.Join(sendErr, dlqErr))
	}
	metrics.ObserveEventDeadLettered()
	return nil
}
