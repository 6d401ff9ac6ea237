package kafka

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrEmptyKey       = errors.New("message key cannot be empty")
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// Message is one event on the wire. The key is the subject entity's ID so all
// events about one booking or one user land on the same partition, in order.
type Message struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Header keys shared with downstream consumers (the notification service).
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderSource        = "source"
	HeaderSchemaVersion = "schema-version"
)

// NewJSONMessage builds a message with a JSON-encoded payload.
func NewJSONMessage(key string, payload any, headers map[string]string) (Message, error) {
	if key == "" {
		return Message{}, ErrEmptyKey
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Key:       key,
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now().UTC(),
	}, nil
}
