package kafka

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewJSONMessage(t *testing.T) {
	payload := map[string]string{"booking_id": "b-1"}
	headers := map[string]string{HeaderEventType: "booking.created"}

	msg, err := NewJSONMessage("b-1", payload, headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Key != "b-1" {
		t.Errorf("expected key b-1, got %q", msg.Key)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
	if msg.Headers[HeaderEventType] != "booking.created" {
		t.Errorf("headers not carried through: %v", msg.Headers)
	}

	var decoded map[string]string
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("value is not valid JSON: %v", err)
	}
	if decoded["booking_id"] != "b-1" {
		t.Errorf("unexpected payload: %v", decoded)
	}
}

func TestNewJSONMessageEmptyKey(t *testing.T) {
	_, err := NewJSONMessage("", "payload", nil)
	if !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestNewJSONMessageUnencodablePayload(t *testing.T) {
	if _, err := NewJSONMessage("key", make(chan int), nil); err == nil {
		t.Error("expected an encoding error")
	}
}
