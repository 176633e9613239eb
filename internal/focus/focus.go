package focus

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

// Focus is a named, role-scoped dashboard layout. The layout document
// itself is opaque here; internal/workspace owns its structure.
type Focus struct {
	ID            string          `json:"id" gorm:"primaryKey;column:id"`
	Name          string          `json:"name" gorm:"column:name;not null"`
	Description   string          `json:"description" gorm:"column:description"`
	Type          Type            `json:"type" gorm:"column:type;not null;default:standard"`
	AssignedRoles RoleList        `json:"assigned_roles" gorm:"column:assigned_roles;type:jsonb;not null"`
	IsDefault     bool            `json:"is_default" gorm:"column:is_default;default:false"`
	IsActive      bool            `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedBy     int64           `json:"created_by" gorm:"column:created_by;not null"`
	LayoutData    json.RawMessage `json:"layout_data,omitempty" gorm:"column:layout_data;type:jsonb"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Focus) TableName() string {
	return "focuses"
}

type Type string

const (
	TypeStandard Type = "standard"
	TypeUser     Type = "user"
	TypeTemplate Type = "template"
	TypeShared   Type = "shared"
)

func (t Type) Valid() bool {
	switch t {
	case TypeStandard, TypeUser, TypeTemplate, TypeShared:
		return true
	}
	return false
}

// RoleList stores the assigned roles as a JSON array column.
type RoleList []rbac.Role

func (rl RoleList) Value() (driver.Value, error) {
	return json.Marshal(rl)
}

func (rl *RoleList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, rl)
	case string:
		return json.Unmarshal([]byte(v), rl)
	case nil:
		*rl = nil
		return nil
	}
	return internal.NewInternalError("unsupported role list column type", nil)
}

// VisibleTo applies the hierarchy rule from internal/rbac.
func (f *Focus) VisibleTo(callerRole rbac.Role) bool {
	return f.IsActive && rbac.Visible(f.AssignedRoles, callerRole)
}

// validate enforces the entity invariants independent of who is calling.
func (f *Focus) validate() error {
	if f.Name == "" {
		return internal.NewValidationFieldError("name", "name must not be empty", internal.ErrCodeEmptyName)
	}
	if len(f.AssignedRoles) == 0 {
		return internal.NewValidationFieldError("assigned_roles", "at least one role must be assigned", internal.ErrCodeEmptyRoles)
	}
	for _, r := range f.AssignedRoles {
		if !rbac.IsValid(r) {
			return internal.NewValidationFieldError("assigned_roles", "unknown role: "+string(r), internal.ErrCodeInvalidRole)
		}
	}
	if !f.Type.Valid() {
		return internal.NewValidationFieldError("type", "unknown focus type: "+string(f.Type), internal.ErrCodeInvalidFocusType)
	}
	return nil
}
