package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

var ErrNotFound = errors.New("user not found")

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id int64, role rbac.Role) error
	Save(ctx context.Context, u *User) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.NewUnavailableError("could not load user", err)
	}
	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}
	return u, nil
}

// GetRole is the role lookup used for visibility checks.
func (s *Service) GetRole(ctx context.Context, userID int64) (rbac.Role, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// List returns the full directory; admin only.
func (s *Service) List(ctx context.Context, callerRole rbac.Role) ([]*User, error) {
	if !rbac.CanMutate(callerRole) {
		return nil, internal.ErrPermissionDenied
	}
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewUnavailableError("could not load users", err)
	}
	return users, nil
}

// ChangeRole sets a user's role; admin only. An admin cannot demote
// themselves, which keeps at least one admin reachable.
func (s *Service) ChangeRole(ctx context.Context, targetID int64, newRole rbac.Role, callerID int64, callerRole rbac.Role) (*User, error) {
	if !rbac.CanMutate(callerRole) {
		return nil, internal.ErrPermissionDenied
	}
	if !rbac.IsValid(newRole) {
		return nil, internal.NewValidationFieldError("role", "unknown role: "+string(newRole), internal.ErrCodeInvalidRole)
	}
	if targetID == callerID && newRole != rbac.RoleAdmin {
		return nil, internal.NewValidationFieldError("role", "admins cannot demote themselves", internal.ErrCodeInvalidRole)
	}

	u, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, targetID, newRole); err != nil {
		s.logger.Error("failed to change role", "error", err, "user_id", targetID)
		return nil, internal.NewUnavailableError("could not change role", err)
	}

	s.logger.Info("user role changed", "user_id", targetID, "role", newRole, "changed_by", callerID)
	u.Role = newRole
	return u, nil
}

// Deactivate disables an account; admin only. Admins cannot deactivate
// themselves, for the same reason they cannot demote themselves.
func (s *Service) Deactivate(ctx context.Context, targetID, callerID int64, callerRole rbac.Role) (*User, error) {
	if !rbac.CanMutate(callerRole) {
		return nil, internal.ErrPermissionDenied
	}
	if targetID == callerID {
		return nil, internal.NewValidationFieldError("id", "admins cannot deactivate themselves", internal.ErrCodeValidationFailed)
	}

	u, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	u.Deactivate()
	if err := s.repo.Save(ctx, u); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "user_id", targetID)
		return nil, internal.NewUnavailableError("could not deactivate user", err)
	}

	s.logger.Info("user deactivated", "user_id", targetID, "deactivated_by", callerID)
	return u, nil
}
