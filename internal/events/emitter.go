package events

import (
	"context"
	"time"

	"shelterwalk/pkg/kafka"
	"shelterwalk/pkg/logger"

	"github.com/google/uuid"
)

// Emitter hands events to the notification collaborator. Emission failures
// must never roll back the business operation that produced the event; callers
// log and move on.
type Emitter interface {
	Emit(ctx context.Context, eventType, subject string, payload any) error
}

const schemaVersion = "1"

type kafkaEmitter struct {
	producer *kafka.Producer
	source   string
}

// NewKafkaEmitter publishes events through the given producer. The source
// name ends up in message headers so consumers can tell which service emitted.
func NewKafkaEmitter(producer *kafka.Producer, source string) Emitter {
	return &kafkaEmitter{
		producer: producer,
		source:   source,
	}
}

func (e *kafkaEmitter) Emit(ctx context.Context, eventType, subject string, payload any) error {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	msg, err := kafka.NewJSONMessage(subject, event, map[string]string{
		kafka.HeaderEventID:       event.ID,
		kafka.HeaderEventType:     event.Type,
		kafka.HeaderSource:        e.source,
		kafka.HeaderSchemaVersion: schemaVersion,
	})
	if err != nil {
		return err
	}

	return e.producer.Publish(ctx, msg)
}

type logEmitter struct {
	log *logger.Logger
}

// NewLogEmitter logs events instead of publishing them. Used when no brokers
// are configured and in tests.
func NewLogEmitter(log *logger.Logger) Emitter {
	return &logEmitter{log: log}
}

func (e *logEmitter) Emit(_ context.Context, eventType, subject string, payload any) error {
	e.log.Debug("Event emitted",
		"event_type", eventType,
		"subject", subject,
		"payload", payload,
	)
	return nil
}
