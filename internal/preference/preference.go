package preference

import (
	"encoding/json"
	"errors"
	"time"
)

// UserFocusPreference is created lazily on the first interaction between a
// user and a focus. Version backs the compare-and-swap used when a delete
// redirects the selection.
type UserFocusPreference struct {
	ID             int64           `json:"id" gorm:"primaryKey"`
	InternalUserID int64           `json:"internal_user_id" gorm:"column:internal_user_id;not null;uniqueIndex:idx_user_focus,priority:1"`
	FocusID        string          `json:"focus_id" gorm:"column:focus_id;not null;uniqueIndex:idx_user_focus,priority:2"`
	IsFavorite     bool            `json:"is_favorite" gorm:"column:is_favorite;default:false"`
	LastUsedAt     *time.Time      `json:"last_used_at,omitempty" gorm:"column:last_used_at"`
	CustomLayout   json.RawMessage `json:"custom_layout,omitempty" gorm:"column:custom_layout;type:jsonb"`
	Version        int64           `json:"-" gorm:"column:version;default:0"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (UserFocusPreference) TableName() string {
	return "user_focus_preferences"
}

// CurrentFocus tracks which focus a user has selected. FocusID empty means
// no selection.
type CurrentFocus struct {
	InternalUserID int64     `json:"internal_user_id" gorm:"primaryKey;column:internal_user_id"`
	FocusID        string    `json:"focus_id" gorm:"column:focus_id"`
	Version        int64     `json:"-" gorm:"column:version;default:0"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (CurrentFocus) TableName() string {
	return "current_focuses"
}

var (
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrVersionConflict    = errors.New("preference row changed concurrently")
)
