package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/core/events"
)

// SnapshotStore is one persistence target for whole snapshots. The focus
// registry's layout column and the local ad-hoc store both satisfy it.
type SnapshotStore interface {
	LoadLayout(ctx context.Context, key string) ([]byte, time.Time, error)
	// CompareAndSwapLayout writes the whole document guarded by the last
	// known write time; a newer stored write yields ErrSnapshotStale.
	CompareAndSwapLayout(ctx context.Context, key string, raw []byte, base time.Time) error
}

// LoadResult is what callers branch on; they never see a partial document.
type LoadResult struct {
	State     State     `json:"state"`
	Snapshot  *Snapshot `json:"snapshot"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	// Notice is the non-fatal message shown when a stored document had to
	// be discarded and the workspace started fresh.
	Notice string `json:"notice,omitempty"`
}

type Service struct {
	focusStore SnapshotStore
	localStore SnapshotStore
	bus        *events.EventBus
	logger     *slog.Logger
}

func NewService(focusStore, localStore SnapshotStore, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		focusStore: focusStore,
		localStore: localStore,
		bus:        bus,
		logger:     logger,
	}
}

const discardNotice = "layout could not be restored, started fresh"

// LoadFocus restores the snapshot stored against a focus.
func (s *Service) LoadFocus(ctx context.Context, focusID string) (*LoadResult, error) {
	return s.load(ctx, s.focusStore, focusID)
}

// LoadLocal restores a user's ad-hoc local snapshot.
func (s *Service) LoadLocal(ctx context.Context, key string) (*LoadResult, error) {
	return s.load(ctx, s.localStore, key)
}

func (s *Service) load(ctx context.Context, store SnapshotStore, key string) (*LoadResult, error) {
	raw, updatedAt, err := store.LoadLayout(ctx, key)
	if err != nil {
		if errors.Is(err, ErrAbsent) {
			return &LoadResult{State: StateAbsent, Snapshot: DefaultSnapshot()}, nil
		}
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeFocusNotFound {
			return nil, err
		}
		s.logger.Error("snapshot load failed", "error", err, "key", key)
		return nil, internal.NewUnavailableError("could not load workspace snapshot", err)
	}
	if len(raw) == 0 {
		return &LoadResult{State: StateAbsent, Snapshot: DefaultSnapshot()}, nil
	}

	switch state := Validate(raw); state {
	case StateValid:
		var snapshot Snapshot
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			// Validate accepted it, so this should not happen; treat it
			// the same as corruption rather than failing the load.
			s.logger.Error("validated snapshot failed to decode", "error", err, "key", key)
			return &LoadResult{State: StateCorrupt, Snapshot: DefaultSnapshot(), Notice: discardNotice}, nil
		}
		return &LoadResult{State: StateValid, Snapshot: &snapshot, UpdatedAt: updatedAt}, nil
	case StateVersionMismatch:
		s.logger.Warn("discarding snapshot with stale schema version", "key", key)
		return &LoadResult{State: StateVersionMismatch, Snapshot: DefaultSnapshot(), Notice: discardNotice}, nil
	default:
		s.logger.Warn("discarding corrupt snapshot", "key", key)
		return &LoadResult{State: StateCorrupt, Snapshot: DefaultSnapshot(), Notice: discardNotice}, nil
	}
}

// SaveFocus persists the snapshot against a focus. base is the updatedAt
// observed on the last load; a newer stored write rejects the save so a
// stale async response cannot clobber it.
func (s *Service) SaveFocus(ctx context.Context, focusID string, snapshot *Snapshot, base time.Time, userID int64) error {
	if err := s.save(ctx, s.focusStore, focusID, snapshot, base); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.NewLayoutSaved("focus:"+focusID, userID, CurrentSchemaVersion))
	return nil
}

func (s *Service) SaveLocal(ctx context.Context, key string, snapshot *Snapshot, base time.Time, userID int64) error {
	if err := s.save(ctx, s.localStore, key, snapshot, base); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.NewLayoutSaved("local:"+key, userID, CurrentSchemaVersion))
	return nil
}

func (s *Service) save(ctx context.Context, store SnapshotStore, key string, snapshot *Snapshot, base time.Time) error {
	if snapshot == nil {
		return internal.NewValidationFieldError("snapshot", "snapshot is required", internal.ErrCodeValidationFailed)
	}

	// Stamp the current schema version; whatever the client held before is
	// irrelevant once it saves.
	snapshot.Version = CurrentSchemaVersion

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return internal.NewValidationFieldError("snapshot", "snapshot is not serializable", internal.ErrCodeValidationFailed)
	}
	if state := Validate(raw); state != StateValid {
		return internal.ErrLayoutCorrupt
	}

	if err := store.CompareAndSwapLayout(ctx, key, raw, base); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return appErr
		}
		s.logger.Error("snapshot save failed", "error", err, "key", key)
		return internal.NewUnavailableError("could not save workspace snapshot", err)
	}
	return nil
}
