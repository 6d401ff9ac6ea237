package model

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the wire and storage format for walk dates. Lexicographic
	// order on these strings matches chronological order.
	DateLayout = "2006-01-02"

	// ClockLayout is the wire and storage format for walk start times.
	ClockLayout = "15:04"
)

type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

type WalkType string

const (
	WalkMorning WalkType = "morning"
	WalkEvening WalkType = "evening"
)

type Booking struct {
	ID                 string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty"`
	UserID             string        `json:"user_id" bson:"user_id" validate:"required"`
	DogID              string        `json:"dog_id" bson:"dog_id" validate:"required"`
	Date               string        `json:"date" bson:"date" validate:"required,walk_date"`
	WalkType           WalkType      `json:"walk_type" bson:"walk_type" validate:"required,oneof=morning evening"`
	ScheduledTime      string        `json:"scheduled_time" bson:"scheduled_time" validate:"required,walk_clock"`
	Status             BookingStatus `json:"status" bson:"status"`
	Notes              string        `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=1000"`
	CancellationReason string        `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at" bson:"created_at"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// StartsAt combines the booking's date and scheduled time into a single
// instant (UTC).
func (b *Booking) StartsAt() (time.Time, error) {
	return time.Parse(DateLayout+" "+ClockLayout, b.Date+" "+b.ScheduledTime)
}

// SlotKey identifies the contested (dog, date, time) slot. It doubles as the
// advisory lock ID taken while a create or move is in flight.
func (b *Booking) SlotKey() string {
	return SlotKey(b.DogID, b.Date, b.ScheduledTime)
}

func SlotKey(dogID, date, scheduledTime string) string {
	return fmt.Sprintf("slot_%s_%s_%s", dogID, date, scheduledTime)
}
