package events

import (
	"time"

	"shelterwalk/pkg/model"
)

// Event types consumed by the notification service.
const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingMoved     = "booking.moved"
	TypeRequestResolved  = "request.resolved"
	TypeUserDeactivated  = "user.deactivated"
)

// Event is the envelope every published notification shares. Subject is the
// entity the event is about and doubles as the partition key, so events about
// one booking or one user are delivered in order.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type BookingPayload struct {
	BookingID     string         `json:"booking_id"`
	UserID        string         `json:"user_id"`
	DogID         string         `json:"dog_id"`
	Date          string         `json:"date"`
	WalkType      model.WalkType `json:"walk_type"`
	ScheduledTime string         `json:"scheduled_time"`
	Reason        string         `json:"reason,omitempty"`
}

type BookingMovedPayload struct {
	OldBookingID string `json:"old_booking_id"`
	NewBookingID string `json:"new_booking_id"`
	UserID       string `json:"user_id"`
	DogID        string `json:"dog_id"`
	OldDate      string `json:"old_date"`
	OldTime      string `json:"old_time"`
	NewDate      string `json:"new_date"`
	NewTime      string `json:"new_time"`
}

type RequestResolvedPayload struct {
	RequestID   string `json:"request_id"`
	RequestType string `json:"request_type"` // "experience" or "reactivation"
	UserID      string `json:"user_id"`
	Approved    bool   `json:"approved"`
	ResolvedBy  string `json:"resolved_by"`
}

type UserDeactivatedPayload struct {
	UserID         string    `json:"user_id"`
	Reason         string    `json:"reason"`
	LastActivityAt time.Time `json:"last_activity_at"`
}
