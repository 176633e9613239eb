// Package rbac holds the role hierarchy and the visibility and mutation
// rules derived from it. Everything here is a pure function over the fixed
// role order guest < user < manager < admin; no storage access.
package rbac

import (
	"github.com/frahmantamala/workspace-management/internal"
)

type Role string

const (
	RoleGuest   Role = "guest"
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// roleOrder is the single source of truth for the hierarchy.
var roleOrder = []Role{RoleGuest, RoleUser, RoleManager, RoleAdmin}

func ValidRoles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// Level returns the position of the role in the hierarchy.
func Level(role Role) (int, error) {
	for i, r := range roleOrder {
		if r == role {
			return i, nil
		}
	}
	return 0, internal.NewValidationFieldError("role", "unknown role: "+string(role), internal.ErrCodeInvalidRole)
}

func ParseRole(s string) (Role, error) {
	role := Role(s)
	if _, err := Level(role); err != nil {
		return "", err
	}
	return role, nil
}

func IsValid(role Role) bool {
	_, err := Level(role)
	return err == nil
}

// Visible reports whether a caller with callerRole may see a focus assigned
// to assignedRoles. The rule is hierarchical: the caller sees the focus when
// its level is at least the minimum level among the assigned roles, so
// access grows monotonically with rank. Unknown roles are never visible.
func Visible(assignedRoles []Role, callerRole Role) bool {
	callerLevel, err := Level(callerRole)
	if err != nil {
		return false
	}

	minLevel := -1
	for _, r := range assignedRoles {
		level, err := Level(r)
		if err != nil {
			continue
		}
		if minLevel == -1 || level < minLevel {
			minLevel = level
		}
	}
	if minLevel == -1 {
		return false
	}

	return callerLevel >= minLevel
}

// CanMutate reports whether the caller may update or delete a focus.
func CanMutate(callerRole Role) bool {
	return callerRole == RoleAdmin
}

// CanCreateFocus is a separate predicate so creation policy can diverge
// from mutation policy later; today both are admin-only.
func CanCreateFocus(callerRole Role) bool {
	return CanMutate(callerRole)
}

// AtLeast reports whether role ranks at or above min in the hierarchy.
func AtLeast(role, min Role) bool {
	roleLevel, err := Level(role)
	if err != nil {
		return false
	}
	minLevel, err := Level(min)
	if err != nil {
		return false
	}
	return roleLevel >= minLevel
}
