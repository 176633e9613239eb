package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/rbac"
	"github.com/frahmantamala/workspace-management/internal/user"
)

type RepositoryAPI interface {
	GetMappingByExternalID(ctx context.Context, externalID string) (*UserMapping, error)
	GetMappingByEmail(ctx context.Context, email string) (*UserMapping, error)
	AttachExternalID(ctx context.Context, mappingID int64, externalID string) error
	TouchLastSeen(ctx context.Context, mappingID int64) error
	NextInternalID(ctx context.Context) (int64, error)
	// CreateMapping inserts the mapping and its internal user in one
	// transaction with insert-if-absent semantics. A concurrent insert for
	// the same identity yields internal.ErrMappingConflict.
	CreateMapping(ctx context.Context, mapping *UserMapping, account *user.User) error
	CountUsers(ctx context.Context) (int64, error)
	ListMappings(ctx context.Context) ([]UserMapping, error)
}

type Service struct {
	repo        RepositoryAPI
	logger      *slog.Logger
	retryBudget int
}

func NewService(repo RepositoryAPI, logger *slog.Logger, retryBudget int) *Service {
	if retryBudget < 1 {
		retryBudget = 3
	}
	return &Service{
		repo:        repo,
		logger:      logger,
		retryBudget: retryBudget,
	}
}

// GetOrCreateInternalID resolves the stable internal user id for an
// external identity. The same external id always resolves to the same
// internal id, and a known email reuses its existing id even when the
// provider re-issues a fresh external id for it.
func (s *Service) GetOrCreateInternalID(ctx context.Context, externalID, email string) (int64, error) {
	if externalID == "" {
		return 0, internal.NewValidationFieldError("external_id", "external id is required", internal.ErrCodeValidationFailed)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return 0, internal.NewValidationFieldError("email", "a valid email is required", internal.ErrCodeValidationFailed)
	}

	ctx, cancel := internal.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < s.retryBudget; attempt++ {
		mapping, err := s.repo.GetMappingByExternalID(ctx, externalID)
		if err == nil {
			if touchErr := s.repo.TouchLastSeen(ctx, mapping.ID); touchErr != nil {
				s.logger.Warn("failed to update last seen", "mapping_id", mapping.ID, "error", touchErr)
			}
			return mapping.InternalUserID, nil
		}
		if !errors.Is(err, ErrMappingNotFound) {
			lastErr = err
			continue
		}

		// A known email with a fresh external id means the provider
		// re-registered the same person; attach instead of allocating.
		mapping, err = s.repo.GetMappingByEmail(ctx, email)
		if err == nil {
			if attachErr := s.repo.AttachExternalID(ctx, mapping.ID, externalID); attachErr != nil {
				lastErr = attachErr
				continue
			}
			s.logger.Info("attached new external id to existing mapping",
				"internal_user_id", mapping.InternalUserID, "email", email)
			return mapping.InternalUserID, nil
		}
		if !errors.Is(err, ErrMappingNotFound) {
			lastErr = err
			continue
		}

		internalID, err := s.allocateAndInsert(ctx, externalID, email)
		if err == nil {
			return internalID, nil
		}
		if conflictErr, ok := internal.IsAppError(err); ok && conflictErr.Code == internal.ErrCodeMappingConflict {
			// Someone else won first contact; the next iteration re-reads
			// the row they created. The id we allocated stays a gap in the
			// counter, which is acceptable.
			s.logger.Info("mapping insert conflicted, re-reading", "external_id", externalID)
			continue
		}
		lastErr = err
	}

	s.logger.Error("identity mapping retries exhausted", "external_id", externalID, "error", lastErr)
	return 0, internal.NewUnavailableError("could not resolve internal user id", lastErr)
}

func (s *Service) allocateAndInsert(ctx context.Context, externalID, email string) (int64, error) {
	internalID, err := s.repo.NextInternalID(ctx)
	if err != nil {
		return 0, err
	}

	role := rbac.RoleUser
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		// Bootstrap rule: the very first account administers the system.
		role = rbac.RoleAdmin
	}

	now := time.Now()
	mapping := &UserMapping{
		ExternalID:     externalID,
		InternalUserID: internalID,
		Email:          email,
		CreatedAt:      now,
		LastSeenAt:     now,
	}
	account := &user.User{
		ID:        internalID,
		Email:     email,
		Name:      email[:strings.Index(email, "@")],
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateMapping(ctx, mapping, account); err != nil {
		return 0, err
	}

	s.logger.Info("created new user mapping",
		"internal_user_id", internalID, "email", email, "role", role)
	return internalID, nil
}

// ListMappings exposes the full mapping table for the admin directory.
func (s *Service) ListMappings(ctx context.Context, callerRole rbac.Role) ([]UserMapping, error) {
	if !rbac.CanMutate(callerRole) {
		return nil, internal.ErrPermissionDenied
	}
	mappings, err := s.repo.ListMappings(ctx)
	if err != nil {
		s.logger.Error("failed to list user mappings", "error", err)
		return nil, internal.NewUnavailableError("could not load user mappings", err)
	}
	return mappings, nil
}

// GetMappingByExternalID exposes the raw mapping for the admin directory.
func (s *Service) GetMappingByExternalID(ctx context.Context, externalID string) (*UserMapping, error) {
	mapping, err := s.repo.GetMappingByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, ErrMappingNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return mapping, nil
}
