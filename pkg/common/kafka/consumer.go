package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/icd-mapper/pkg/common/config"
	"github.com/synaptica-ai/icd-mapper/pkg/common/logger"
	"github.com/synaptica-ai/icd-mapper/pkg/common/models"
)

const (
	fetchErrorPause = time.Second

	handlerRetryPause    = 500 * time.Millisecond
	maxHandlerRetryPause = 30 * time.Second
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
	topic  string
	// first pause before a failed event is handed to the handler again
	retryPause time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(cfg *config.Config, topic string, groupID string) *Consumer {
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, topic: topic, retryPause: handlerRetryPause}
}

// Consume delivers events to handler until ctx is cancelled. Messages are committed
// once handled and undecodable messages are committed and dropped. A failing handler
// is retried on the same message with growing pauses and nothing later is fetched
// until it succeeds, since a group commit of a later offset would skip it. When ctx
// is cancelled mid-retry the message stays uncommitted and is redelivered.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	log := logger.Component("kafka").WithField("topic", c.topic)
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Error("Failed to fetch message")
			select {
			case <-time.After(fetchErrorPause):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			if err := c.reader.CommitMessages(ctx, message); err != nil {
				log.WithError(err).Error("Failed to commit message")
			}
			continue
		}

		if err := c.handle(ctx, handler, event); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			log.WithError(err).Error("Failed to commit message")
		}
	}
}

// handle runs handler until it succeeds. It only returns an error once ctx is done.
func (c *Consumer) handle(ctx context.Context, handler EventHandler, event models.Event) error {
	log := logger.Component("kafka").WithField("topic", c.topic).WithField("event_id", event.ID)
	pause := c.retryPause
	if pause <= 0 {
		pause = handlerRetryPause
	}
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).WithField("attempt", attempt).Error("Failed to process event, retrying")

		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return ctx.Err()
		}
		if pause *= 2; pause > maxHandlerRetryPause {
			pause = maxHandlerRetryPause
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
