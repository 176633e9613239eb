package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/workspace-management/internal/preference"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository implements preference.RepositoryAPI using GORM.
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) preference.RepositoryAPI {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) Get(ctx context.Context, userID int64, focusID string) (*preference.UserFocusPreference, error) {
	var pref preference.UserFocusPreference
	err := r.db.WithContext(ctx).
		Where("internal_user_id = ? AND focus_id = ?", userID, focusID).
		First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, preference.ErrPreferenceNotFound
		}
		return nil, err
	}
	return &pref, nil
}

func (r *PreferenceRepository) GetAllForUser(ctx context.Context, userID int64) ([]*preference.UserFocusPreference, error) {
	var prefs []*preference.UserFocusPreference
	err := r.db.WithContext(ctx).
		Where("internal_user_id = ?", userID).
		Find(&prefs).Error
	return prefs, err
}

func (r *PreferenceRepository) Upsert(ctx context.Context, pref *preference.UserFocusPreference) error {
	pref.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "internal_user_id"}, {Name: "focus_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_favorite", "last_used_at", "custom_layout", "updated_at",
		}),
	}).Create(pref).Error
}

func (r *PreferenceRepository) GetCurrent(ctx context.Context, userID int64) (*preference.CurrentFocus, error) {
	var cur preference.CurrentFocus
	err := r.db.WithContext(ctx).
		Where("internal_user_id = ?", userID).
		First(&cur).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, preference.ErrPreferenceNotFound
		}
		return nil, err
	}
	return &cur, nil
}

// SetCurrent performs an optimistic compare-and-swap on the version column.
// An insert handles the first selection; updates must match the version the
// caller read or they fail with ErrVersionConflict.
func (r *PreferenceRepository) SetCurrent(ctx context.Context, cur *preference.CurrentFocus) error {
	readVersion := cur.Version
	cur.Version++
	cur.UpdatedAt = time.Now()

	if readVersion == 0 {
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(cur)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		// row existed already: fall through to the guarded update
	}

	res := r.db.WithContext(ctx).Model(&preference.CurrentFocus{}).
		Where("internal_user_id = ? AND version = ?", cur.InternalUserID, readVersion).
		Updates(map[string]interface{}{
			"focus_id":   cur.FocusID,
			"version":    cur.Version,
			"updated_at": cur.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return preference.ErrVersionConflict
	}
	return nil
}

func (r *PreferenceRepository) UsersSelecting(ctx context.Context, focusID string) ([]*preference.CurrentFocus, error) {
	var selections []*preference.CurrentFocus
	err := r.db.WithContext(ctx).
		Where("focus_id = ?", focusID).
		Find(&selections).Error
	return selections, err
}
