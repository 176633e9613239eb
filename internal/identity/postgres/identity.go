package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/identity"
	"github.com/frahmantamala/workspace-management/internal/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityRepository implements identity.RepositoryAPI using GORM.
type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) identity.RepositoryAPI {
	return &IdentityRepository{db: db}
}

// IDCounter backs the monotonic internal user id allocator. The row is
// seeded by migration with the configured offset; ids are handed out by a
// single-row UPDATE so allocation is atomic on any SQL backend.
type IDCounter struct {
	Name  string `gorm:"primaryKey;column:name"`
	Value int64  `gorm:"column:value;not null"`
}

func (IDCounter) TableName() string {
	return "id_counters"
}

const internalUserCounter = "internal_user_id"

func (r *IdentityRepository) GetMappingByExternalID(ctx context.Context, externalID string) (*identity.UserMapping, error) {
	var m identity.UserMapping
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrMappingNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *IdentityRepository) GetMappingByEmail(ctx context.Context, email string) (*identity.UserMapping, error) {
	var m identity.UserMapping
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrMappingNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *IdentityRepository) AttachExternalID(ctx context.Context, mappingID int64, externalID string) error {
	return r.db.WithContext(ctx).Model(&identity.UserMapping{}).
		Where("id = ?", mappingID).
		Updates(map[string]interface{}{
			"external_id":  externalID,
			"last_seen_at": time.Now(),
		}).Error
}

func (r *IdentityRepository) TouchLastSeen(ctx context.Context, mappingID int64) error {
	return r.db.WithContext(ctx).Model(&identity.UserMapping{}).
		Where("id = ?", mappingID).
		Update("last_seen_at", time.Now()).Error
}

// NextInternalID bumps the counter row and reads back the new value inside
// one transaction, so two concurrent allocations cannot observe the same id.
func (r *IdentityRepository) NextInternalID(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&IDCounter{}).
			Where("name = ?", internalUserCounter).
			Update("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("id counter row missing, run migrations")
		}

		var counter IDCounter
		if err := tx.Where("name = ?", internalUserCounter).First(&counter).Error; err != nil {
			return err
		}
		next = counter.Value
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// CreateMapping is the insert-if-absent step of first contact. The mapping
// insert rides on the unique indexes: when another session already created
// a row for this external id or email, no row is written here and the
// caller gets ErrMappingConflict to re-read.
func (r *IdentityRepository) CreateMapping(ctx context.Context, mapping *identity.UserMapping, account *user.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(mapping)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrMappingConflict
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(account).Error
	})
}

func (r *IdentityRepository) ListMappings(ctx context.Context) ([]identity.UserMapping, error) {
	var mappings []identity.UserMapping
	err := r.db.WithContext(ctx).Order("internal_user_id ASC").Find(&mappings).Error
	return mappings, err
}

func (r *IdentityRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&user.User{}).Count(&count).Error
	return count, err
}
