package model

import "time"

// BlockedDate is a shelter-wide closure. No booking may target a blocked date.
type BlockedDate struct {
	Date      string    `json:"date" bson:"_id" validate:"required,walk_date"`
	Reason    string    `json:"reason" bson:"reason" validate:"required,max=500"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
