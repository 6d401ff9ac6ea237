package model

import "time"

// Level is a walker's experience tier. Levels are ordered: a walker may only
// book dogs whose category is at or below their own level.
type Level string

const (
	LevelGreen  Level = "green"
	LevelBlue   Level = "blue"
	LevelOrange Level = "orange"
)

var levelRank = map[Level]int{
	LevelGreen:  1,
	LevelBlue:   2,
	LevelOrange: 3,
}

// Valid reports whether l is a known experience level.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// AtLeast reports whether l satisfies the minimum level required.
func (l Level) AtLeast(required Level) bool {
	return levelRank[l] >= levelRank[required]
}

// Above reports whether l is strictly higher than other.
func (l Level) Above(other Level) bool {
	return levelRank[l] > levelRank[other]
}

type User struct {
	ID                 string     `json:"id,omitempty" bson:"_id,omitempty"`
	Email              string     `json:"email" bson:"email"`
	Name               string     `json:"name" bson:"name"`
	Phone              string     `json:"phone,omitempty" bson:"phone,omitempty"`
	ExperienceLevel    Level      `json:"experience_level" bson:"experience_level"`
	IsVerified         bool       `json:"is_verified" bson:"is_verified"`
	IsActive           bool       `json:"is_active" bson:"is_active"`
	IsAdmin            bool       `json:"is_admin" bson:"is_admin"`
	IsSuperAdmin       bool       `json:"is_super_admin" bson:"is_super_admin"`
	LastActivityAt     time.Time  `json:"last_activity_at" bson:"last_activity_at"`
	TermsAcceptedAt    time.Time  `json:"terms_accepted_at" bson:"terms_accepted_at"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty" bson:"deactivated_at,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty" bson:"deactivation_reason,omitempty"`
	ReactivatedAt      *time.Time `json:"reactivated_at,omitempty" bson:"reactivated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
}
