package model

import "time"

type Dog struct {
	ID                string    `json:"id,omitempty" bson:"_id,omitempty"`
	Name              string    `json:"name" bson:"name"`
	Breed             string    `json:"breed,omitempty" bson:"breed,omitempty"`
	Category          Level     `json:"category" bson:"category"`
	Size              string    `json:"size,omitempty" bson:"size,omitempty"`
	Age               int       `json:"age,omitempty" bson:"age,omitempty"`
	IsAvailable       bool      `json:"is_available" bson:"is_available"`
	UnavailableReason string    `json:"unavailable_reason,omitempty" bson:"unavailable_reason,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}
