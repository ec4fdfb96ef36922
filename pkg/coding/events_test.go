package coding

import (
	"context"
	"errors"
	"testing"

	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

func conceptEvent() models.Event {
	return models.Event{
		ID:     "evt-1",
		Type:   "extract-concepts",
		Source: "concept-extractor",
		Data: map[string]interface{}{
			"transcript_id": "tx-9",
			"concepts": []interface{}{
				map[string]interface{}{"text": "headache", "category": "symptom", "confidence": 0.85, "attributed_to": "patient"},
				"ibuprofen",
			},
		},
	}
}

func TestHandleConceptEventPublishesSuggestions(t *testing.T) {
	pub := &fakePublisher{}
	dlq := &fakePublisher{}
	svc := NewService(newTestEngine(), WithPublisher(pub, dlq))

	if err := svc.HandleConceptEvent(context.Background(), conceptEvent()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pub.events) != 1 || len(dlq.events) != 0 {
		t.Fatalf("expected one published event, got %d published %d dead-lettered", len(pub.events), len(dlq.events))
	}
	event := pub.events[0]
	if event.eventType != EventTypeMap {
		t.Fatalf("unexpected event type %q", event.eventType)
	}
	if event.data["source_event_id"] != "evt-1" || event.data["transcript_id"] != "tx-9" {
		t.Fatalf("unexpected payload %+v", event.data)
	}
	suggestions, ok := event.data["suggestions"].([]models.CodeSuggestion)
	if !ok || len(suggestions) == 0 || suggestions[0].ICD10Code != "R51" {
		t.Fatalf("expected R51 suggestion, got %+v", event.data["suggestions"])
	}
}

func TestHandleConceptEventDeadLetters(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	dlq := &fakePublisher{}
	svc := NewService(newTestEngine(), WithPublisher(pub, dlq))

	if err := svc.HandleConceptEvent(context.Background(), conceptEvent()); err != nil {
		t.Fatalf("expected dead-lettered event to count as handled, got %v", err)
	}
	if len(dlq.events) != 1 || dlq.events[0].eventType != EventTypeDLQ {
		t.Fatalf("expected one DLQ event, got %+v", dlq.events)
	}
	if dlq.events[0].data["error"] != "broker down" {
		t.Fatalf("expected publish error in DLQ payload, got %+v", dlq.events[0].data)
	}
}

func TestHandleConceptEventFailsWhenDLQFails(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	dlq := &fakePublisher{err: errors.New("dlq down")}
	svc := NewService(newTestEngine(), WithPublisher(pub, dlq))

	if err := svc.HandleConceptEvent(context.Background(), conceptEvent()); err == nil {
		t.Fatal("expected error so the message stays uncommitted")
	}
}

func TestHandleConceptEventWithoutConcepts(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewService(newTestEngine(), WithPublisher(pub, nil))

	if err := svc.HandleConceptEvent(context.Background(), models.Event{ID: "evt-2", Data: map[string]interface{}{}}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected nothing published, got %+v", pub.events)
	}
}
