package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/focus"
	"github.com/frahmantamala/workspace-management/internal/rbac"
	"gorm.io/gorm"
)

// FocusRepository implements focus.RepositoryAPI using GORM. It also
// carries the layout compare-and-swap used by the workspace service.
type FocusRepository struct {
	db *gorm.DB
}

func NewFocusRepository(db *gorm.DB) *FocusRepository {
	return &FocusRepository{db: db}
}

func (r *FocusRepository) GetAllActive(ctx context.Context) ([]*focus.Focus, error) {
	var focuses []*focus.Focus
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&focuses).Error
	return focuses, err
}

func (r *FocusRepository) GetByID(ctx context.Context, id string) (*focus.Focus, error) {
	var f focus.Focus
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrFocusNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Create inserts the focus; when it is a default, previous defaults in an
// overlapping role scope are demoted in the same transaction.
func (r *FocusRepository) Create(ctx context.Context, f *focus.Focus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(f).Error; err != nil {
			return err
		}
		if f.IsDefault {
			return demoteDefaults(tx, f.ID, f.AssignedRoles)
		}
		return nil
	})
}

// Update writes the focus; default demotion rides in the same transaction
// so a failed demote rolls the update back instead of leaving two active
// defaults in one scope.
func (r *FocusRepository) Update(ctx context.Context, f *focus.Focus) error {
	f.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(f).Error; err != nil {
			return err
		}
		if f.IsDefault {
			return demoteDefaults(tx, f.ID, f.AssignedRoles)
		}
		return nil
	})
}

// demoteDefaults clears the default flag on other active focuses whose
// role scope overlaps the given roles. Role sets live in a JSON column, so
// overlap is checked in Go rather than in SQL.
func demoteDefaults(tx *gorm.DB, keepID string, roles []rbac.Role) error {
	var defaults []*focus.Focus
	err := tx.
		Where("is_active = ? AND is_default = ? AND id <> ?", true, true, keepID).
		Find(&defaults).Error
	if err != nil {
		return err
	}

	overlap := func(a []rbac.Role) bool {
		for _, ra := range a {
			for _, rb := range roles {
				if ra == rb {
					return true
				}
			}
		}
		return false
	}

	for _, f := range defaults {
		if !overlap(f.AssignedRoles) {
			continue
		}
		err := tx.Model(&focus.Focus{}).
			Where("id = ?", f.ID).
			Updates(map[string]interface{}{
				"is_default": false,
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *FocusRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&focus.Focus{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

// LoadLayout returns the raw layout document and its last write time.
func (r *FocusRepository) LoadLayout(ctx context.Context, id string) ([]byte, time.Time, error) {
	f, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, time.Time{}, err
	}
	return f.LayoutData, f.UpdatedAt, nil
}

// CompareAndSwapLayout writes the whole layout document in one statement,
// guarded by the last known write time so a stale async save cannot
// overwrite a newer one.
func (r *FocusRepository) CompareAndSwapLayout(ctx context.Context, id string, layout []byte, base time.Time) error {
	res := r.db.WithContext(ctx).Model(&focus.Focus{}).
		Where("id = ? AND updated_at <= ?", id, base).
		Updates(map[string]interface{}{
			"layout_data": layout,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&focus.Focus{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return internal.ErrFocusNotFound
		}
		return internal.ErrSnapshotStale
	}
	return nil
}
