package model

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
)

// ExperienceRequest asks an admin to promote a walker to a higher experience
// level. At most one may be pending per user.
type ExperienceRequest struct {
	ID             string        `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         string        `json:"user_id" bson:"user_id" validate:"required"`
	RequestedLevel Level         `json:"requested_level" bson:"requested_level" validate:"required,oneof=blue orange"`
	Status         RequestStatus `json:"status" bson:"status"`
	AdminMessage   string        `json:"admin_message,omitempty" bson:"admin_message,omitempty"`
	ResolvedBy     string        `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at" bson:"created_at"`
}

// ReactivationRequest asks an admin to reactivate a deactivated account.
// At most one may be pending per user.
type ReactivationRequest struct {
	ID         string        `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     string        `json:"user_id" bson:"user_id" validate:"required"`
	Reason     string        `json:"reason" bson:"reason" validate:"required,max=1000"`
	Status     RequestStatus `json:"status" bson:"status"`
	ResolvedBy string        `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at" bson:"created_at"`
}
