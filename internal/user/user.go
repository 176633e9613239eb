package user

import (
	"time"

	"github.com/frahmantamala/workspace-management/internal/rbac"
)

// User is the internal account created on first successful identity
// mapping. Its id comes from the mapping allocator, never from the table's
// own sequence.
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey;column:id"`
	Email     string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"column:name"`
	Role      rbac.Role `json:"role" gorm:"column:role;not null;default:user"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Deactivate() {
	u.IsActive = false
	u.UpdatedAt = time.Now()
}
