package focus

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/core/events"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

type RepositoryAPI interface {
	GetAllActive(ctx context.Context) ([]*Focus, error)
	GetByID(ctx context.Context, id string) (*Focus, error)
	// Create and Update keep at most one active default per role scope:
	// when the written focus is a default, every other active default with
	// an overlapping role set is demoted in the same transaction, so a
	// demotion failure rolls the write back.
	Create(ctx context.Context, f *Focus) error
	Update(ctx context.Context, f *Focus) error
	SoftDelete(ctx context.Context, id string) error
}

type Service struct {
	repo   RepositoryAPI
	bus    *events.EventBus
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// ListOptions carries the caller's preference state so the ordering is
// deterministic: current focus first, then favorites, then the rest by name.
type ListOptions struct {
	CurrentFocusID string
	FavoriteIDs    map[string]bool
}

func (s *Service) List(ctx context.Context, callerRole rbac.Role, opts ListOptions) ([]*Focus, error) {
	all, err := s.repo.GetAllActive(ctx)
	if err != nil {
		s.logger.Error("failed to list focuses", "error", err)
		return nil, internal.NewUnavailableError("could not load focuses", err)
	}

	visible := make([]*Focus, 0, len(all))
	for _, f := range all {
		if f.VisibleTo(callerRole) {
			visible = append(visible, f)
		}
	}

	rank := func(f *Focus) int {
		switch {
		case f.ID == opts.CurrentFocusID:
			return 0
		case opts.FavoriteIDs[f.ID]:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		ri, rj := rank(visible[i]), rank(visible[j])
		if ri != rj {
			return ri < rj
		}
		if visible[i].Name != visible[j].Name {
			return visible[i].Name < visible[j].Name
		}
		return visible[i].ID < visible[j].ID
	})

	return visible, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Focus, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Create(ctx context.Context, dto CreateFocusDTO, callerRole rbac.Role, createdBy int64) (*Focus, error) {
	if !rbac.CanCreateFocus(callerRole) {
		return nil, internal.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	focusType := dto.Type
	if focusType == "" {
		focusType = TypeStandard
	}

	now := time.Now()
	f := &Focus{
		ID:            uuid.NewString(),
		Name:          dto.Name,
		Description:   dto.Description,
		Type:          focusType,
		AssignedRoles: RoleList(dto.AssignedRoles),
		IsDefault:     dto.IsDefault,
		IsActive:      true,
		CreatedBy:     createdBy,
		LayoutData:    dto.LayoutData,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, f); err != nil {
		s.logger.Error("failed to create focus", "error", err, "name", dto.Name)
		return nil, internal.NewUnavailableError("could not create focus", err)
	}

	s.bus.Publish(ctx, events.NewFocusCreated(f.ID, createdBy))
	s.logger.Info("focus created", "focus_id", f.ID, "name", f.Name, "created_by", createdBy)
	return f, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateFocusDTO, callerRole rbac.Role, updatedBy int64) (*Focus, error) {
	if !rbac.CanMutate(callerRole) {
		return nil, internal.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		f.Name = *dto.Name
	}
	if dto.Description != nil {
		f.Description = *dto.Description
	}
	if dto.Type != nil {
		f.Type = *dto.Type
	}
	if dto.AssignedRoles != nil {
		f.AssignedRoles = RoleList(*dto.AssignedRoles)
	}
	if dto.IsDefault != nil {
		f.IsDefault = *dto.IsDefault
	}
	if dto.LayoutData != nil {
		f.LayoutData = dto.LayoutData
	}
	f.UpdatedAt = time.Now()

	if err := f.validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, f); err != nil {
		s.logger.Error("failed to update focus", "error", err, "focus_id", id)
		return nil, internal.NewUnavailableError("could not update focus", err)
	}

	s.bus.Publish(ctx, events.NewFocusUpdated(f.ID, updatedBy))
	return f, nil
}

// Delete soft-deletes the focus and synchronously notifies subscribers so
// dangling preferences are redirected before the call returns.
func (s *Service) Delete(ctx context.Context, id string, callerRole rbac.Role, deletedBy int64) error {
	if !rbac.CanMutate(callerRole) {
		return internal.ErrPermissionDenied
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		s.logger.Error("failed to delete focus", "error", err, "focus_id", id)
		return internal.NewUnavailableError("could not delete focus", err)
	}

	if err := s.bus.PublishSync(ctx, events.NewFocusDeleted(id, deletedBy)); err != nil {
		s.logger.Error("focus delete notification failed", "error", err, "focus_id", id)
	}

	s.logger.Info("focus deleted", "focus_id", id, "deleted_by", deletedBy)
	return nil
}
