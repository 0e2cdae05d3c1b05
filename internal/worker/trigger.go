package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"magewoo/internal/models"
)

// JobMessage is the trigger payload: just enough for the worker to claim and
// run the job the API already persisted.
type JobMessage struct {
	JobID      string            `json:"job_id"`
	EntityType models.EntityKind `json:"entity_type"`
	ScopePage  int               `json:"scope_page"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// Trigger enqueues migration jobs for the background worker. Decouples the
// start request from the run: the handler returns as soon as the message is
// written.
type Trigger struct {
	writer *kafka.Writer
}

func NewTrigger(brokers, topic string) *Trigger {
	return &Trigger{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (t *Trigger) Enqueue(ctx context.Context, msg JobMessage) error {
	msg.EnqueuedAt = time.Now()
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}
	if err := t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.JobID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to enqueue migration job: %w", err)
	}
	return nil
}

func (t *Trigger) Close() error {
	return t.writer.Close()
}
