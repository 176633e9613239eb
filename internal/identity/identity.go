package identity

import (
	"errors"
	"time"
)

// UserMapping ties one external auth identity to one internal user id.
// The pair of unique indexes (external_id, email) is what makes first
// contact race-safe: concurrent inserts collapse onto a single row and the
// losers re-read.
type UserMapping struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	ExternalID     string    `json:"external_id" gorm:"column:external_id;uniqueIndex;not null"`
	InternalUserID int64     `json:"internal_user_id" gorm:"column:internal_user_id;uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
	LastSeenAt     time.Time `json:"last_seen_at" gorm:"column:last_seen_at"`
}

func (UserMapping) TableName() string {
	return "user_mappings"
}

var (
	ErrMappingNotFound = errors.New("user mapping not found")
)
