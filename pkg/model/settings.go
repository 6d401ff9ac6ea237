package model

import "time"

// Settings keys. Values are stored as strings and parsed on read; they are
// never cached across requests.
const (
	SettingBookingAdvanceDays      = "booking_advance_days"
	SettingCancellationNoticeHours = "cancellation_notice_hours"
	SettingAutoDeactivationDays    = "auto_deactivation_days"
)

// DefaultSettings is the fixed table ResetDefaults restores.
var DefaultSettings = map[string]string{
	SettingBookingAdvanceDays:      "14",
	SettingCancellationNoticeHours: "12",
	SettingAutoDeactivationDays:    "365",
}

type Setting struct {
	Key       string    `json:"key" bson:"_id"`
	Value     string    `json:"value" bson:"value"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
