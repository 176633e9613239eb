package focus

import (
	"encoding/json"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

// CreateFocusDTO is the request payload for creating a focus.
type CreateFocusDTO struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Type          Type            `json:"type"`
	AssignedRoles []rbac.Role     `json:"assigned_roles" validate:"required,min=1"`
	IsDefault     bool            `json:"is_default"`
	LayoutData    json.RawMessage `json:"layout_data,omitempty"`
}

func (dto CreateFocusDTO) Validate() error {
	if dto.Name == "" {
		return internal.NewValidationFieldError("name", "name is required", internal.ErrCodeEmptyName)
	}
	if len(dto.AssignedRoles) == 0 {
		return internal.NewValidationFieldError("assigned_roles", "assigned_roles is required", internal.ErrCodeEmptyRoles)
	}
	for _, r := range dto.AssignedRoles {
		if !rbac.IsValid(r) {
			return internal.NewValidationFieldError("assigned_roles", "unknown role: "+string(r), internal.ErrCodeInvalidRole)
		}
	}
	if dto.Type != "" && !dto.Type.Valid() {
		return internal.NewValidationFieldError("type", "unknown focus type: "+string(dto.Type), internal.ErrCodeInvalidFocusType)
	}
	return nil
}

// UpdateFocusDTO carries a partial update; nil fields are left untouched.
type UpdateFocusDTO struct {
	Name          *string         `json:"name,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Type          *Type           `json:"type,omitempty"`
	AssignedRoles *[]rbac.Role    `json:"assigned_roles,omitempty"`
	IsDefault     *bool           `json:"is_default,omitempty"`
	LayoutData    json.RawMessage `json:"layout_data,omitempty"`
}

func (dto UpdateFocusDTO) Validate() error {
	if dto.Name != nil && *dto.Name == "" {
		return internal.NewValidationFieldError("name", "name must not be empty", internal.ErrCodeEmptyName)
	}
	if dto.AssignedRoles != nil {
		if len(*dto.AssignedRoles) == 0 {
			return internal.NewValidationFieldError("assigned_roles", "assigned_roles must not be empty", internal.ErrCodeEmptyRoles)
		}
		for _, r := range *dto.AssignedRoles {
			if !rbac.IsValid(r) {
				return internal.NewValidationFieldError("assigned_roles", "unknown role: "+string(r), internal.ErrCodeInvalidRole)
			}
		}
	}
	if dto.Type != nil && !dto.Type.Valid() {
		return internal.NewValidationFieldError("type", "unknown focus type: "+string(*dto.Type), internal.ErrCodeInvalidFocusType)
	}
	return nil
}
