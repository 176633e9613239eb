package preference

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/core/events"
	"github.com/frahmantamala/workspace-management/internal/focus"
	"github.com/frahmantamala/workspace-management/internal/rbac"
)

type RepositoryAPI interface {
	Get(ctx context.Context, userID int64, focusID string) (*UserFocusPreference, error)
	GetAllForUser(ctx context.Context, userID int64) ([]*UserFocusPreference, error)
	Upsert(ctx context.Context, pref *UserFocusPreference) error
	GetCurrent(ctx context.Context, userID int64) (*CurrentFocus, error)
	// SetCurrent writes the selection guarded by the row version; a
	// concurrent write yields ErrVersionConflict.
	SetCurrent(ctx context.Context, cur *CurrentFocus) error
	UsersSelecting(ctx context.Context, focusID string) ([]*CurrentFocus, error)
}

// FocusReader is the slice of the focus registry the redirect fallback
// needs; satisfied by focus.Service.
type FocusReader interface {
	List(ctx context.Context, callerRole rbac.Role, opts focus.ListOptions) ([]*focus.Focus, error)
}

// RoleReader resolves a user's role for visibility checks during redirect.
type RoleReader interface {
	GetRole(ctx context.Context, userID int64) (rbac.Role, error)
}

const casRetries = 3

type Service struct {
	repo    RepositoryAPI
	focuses FocusReader
	roles   RoleReader
	bus     *events.EventBus
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, focuses FocusReader, roles RoleReader, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		focuses: focuses,
		roles:   roles,
		bus:     bus,
		logger:  logger,
	}
}

func (s *Service) ToggleFavorite(ctx context.Context, userID int64, focusID string) (*UserFocusPreference, error) {
	pref, err := s.getOrInit(ctx, userID, focusID)
	if err != nil {
		return nil, err
	}

	pref.IsFavorite = !pref.IsFavorite
	pref.UpdatedAt = time.Now()
	if err := s.repo.Upsert(ctx, pref); err != nil {
		s.logger.Error("failed to toggle favorite", "error", err, "user_id", userID, "focus_id", focusID)
		return nil, internal.NewUnavailableError("could not update preference", err)
	}
	return pref, nil
}

func (s *Service) MarkUsed(ctx context.Context, userID int64, focusID string) error {
	pref, err := s.getOrInit(ctx, userID, focusID)
	if err != nil {
		return err
	}

	now := time.Now()
	pref.LastUsedAt = &now
	pref.UpdatedAt = now
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return internal.NewUnavailableError("could not update preference", err)
	}
	return nil
}

func (s *Service) SaveCustomLayout(ctx context.Context, userID int64, focusID string, layout []byte) error {
	pref, err := s.getOrInit(ctx, userID, focusID)
	if err != nil {
		return err
	}

	pref.CustomLayout = layout
	pref.UpdatedAt = time.Now()
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return internal.NewUnavailableError("could not save custom layout", err)
	}
	return nil
}

func (s *Service) GetAllForUser(ctx context.Context, userID int64) ([]*UserFocusPreference, error) {
	prefs, err := s.repo.GetAllForUser(ctx, userID)
	if err != nil {
		return nil, internal.NewUnavailableError("could not load preferences", err)
	}
	return prefs, nil
}

// FavoriteIDs returns the set shape focus.Service.List expects.
func (s *Service) FavoriteIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	prefs, err := s.repo.GetAllForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	favorites := make(map[string]bool)
	for _, p := range prefs {
		if p.IsFavorite {
			favorites[p.FocusID] = true
		}
	}
	return favorites, nil
}

func (s *Service) Select(ctx context.Context, userID int64, focusID string) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		cur, err := s.repo.GetCurrent(ctx, userID)
		if err != nil && !errors.Is(err, ErrPreferenceNotFound) {
			return internal.NewUnavailableError("could not load current focus", err)
		}
		if cur == nil {
			cur = &CurrentFocus{InternalUserID: userID}
		}

		cur.FocusID = focusID
		cur.UpdatedAt = time.Now()
		err = s.repo.SetCurrent(ctx, cur)
		if err == nil {
			if focusID != "" {
				if markErr := s.MarkUsed(ctx, userID, focusID); markErr != nil {
					s.logger.Warn("failed to mark focus used", "error", markErr, "user_id", userID)
				}
				s.bus.Publish(ctx, events.NewFocusSelected(focusID, userID))
			}
			return nil
		}
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		return internal.NewUnavailableError("could not save selection", err)
	}
	return internal.NewUnavailableError("selection kept conflicting", ErrVersionConflict)
}

func (s *Service) Current(ctx context.Context, userID int64) (string, error) {
	cur, err := s.repo.GetCurrent(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPreferenceNotFound) {
			return "", nil
		}
		return "", internal.NewUnavailableError("could not load current focus", err)
	}
	return cur.FocusID, nil
}

// HandleFocusDeleted is subscribed to the focus.deleted event. Every user
// whose selection pointed at the deleted focus is redirected: remaining
// visible default first, then the first visible focus by list order, else
// no selection.
func (s *Service) HandleFocusDeleted(ctx context.Context, event events.Event) error {
	focusID := events.FocusID(event)
	if focusID == "" {
		return nil
	}

	selections, err := s.repo.UsersSelecting(ctx, focusID)
	if err != nil {
		return err
	}

	for _, cur := range selections {
		if err := s.redirect(ctx, cur, focusID); err != nil {
			s.logger.Error("failed to redirect selection after delete",
				"error", err, "user_id", cur.InternalUserID, "focus_id", focusID)
			return err
		}
	}
	return nil
}

func (s *Service) redirect(ctx context.Context, cur *CurrentFocus, deletedID string) error {
	role, err := s.roles.GetRole(ctx, cur.InternalUserID)
	if err != nil {
		return err
	}

	favorites, err := s.FavoriteIDs(ctx, cur.InternalUserID)
	if err != nil {
		return err
	}

	visible, err := s.focuses.List(ctx, role, focus.ListOptions{FavoriteIDs: favorites})
	if err != nil {
		return err
	}

	next := ""
	for _, f := range visible {
		if f.IsDefault {
			next = f.ID
			break
		}
	}
	if next == "" && len(visible) > 0 {
		next = visible[0].ID
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		cur.FocusID = next
		cur.UpdatedAt = time.Now()
		err := s.repo.SetCurrent(ctx, cur)
		if err == nil {
			s.logger.Info("redirected selection after focus delete",
				"user_id", cur.InternalUserID, "new_focus_id", next)
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		// someone changed the row meanwhile; re-read before retrying
		fresh, readErr := s.repo.GetCurrent(ctx, cur.InternalUserID)
		if readErr != nil {
			return readErr
		}
		// the user picked a live focus themselves; their choice stands
		if fresh.FocusID != deletedID {
			return nil
		}
		cur = fresh
	}
	return ErrVersionConflict
}

func (s *Service) getOrInit(ctx context.Context, userID int64, focusID string) (*UserFocusPreference, error) {
	pref, err := s.repo.Get(ctx, userID, focusID)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, ErrPreferenceNotFound) {
		return nil, internal.NewUnavailableError("could not load preference", err)
	}
	now := time.Now()
	return &UserFocusPreference{
		InternalUserID: userID,
		FocusID:        focusID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
