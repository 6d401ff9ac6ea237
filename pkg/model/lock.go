package model

import "time"

// SlotLock is a short-lived advisory lock held while a booking create or move
// is validating a slot. The unique _id makes acquisition atomic; a TTL index
// on expires_at reclaims locks abandoned by crashed requests.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// SweepLease guards the auto-deactivation sweep so overlapping runs cannot
// double-process accounts.
type SweepLease struct {
	ID        string    `bson:"_id" json:"id"`
	Holder    string    `bson:"holder" json:"holder"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
