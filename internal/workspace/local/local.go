// Package local stores ad-hoc workspace snapshots in a sqlite file so a
// session can save and restore without binding the layout to a focus.
package local

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/workspace-management/internal"
	"github.com/frahmantamala/workspace-management/internal/workspace"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type LocalSnapshot struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Document  []byte    `gorm:"column:document;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (LocalSnapshot) TableName() string {
	return "local_snapshots"
}

// Store implements workspace.SnapshotStore on sqlite.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&LocalSnapshot{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// PingContext reports whether the sqlite file is still reachable; the
// health endpoint uses it.
func (s *Store) PingContext(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) LoadLayout(ctx context.Context, key string) ([]byte, time.Time, error) {
	var snap LocalSnapshot
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, time.Time{}, workspace.ErrAbsent
		}
		return nil, time.Time{}, err
	}
	return snap.Document, snap.UpdatedAt, nil
}

func (s *Store) CompareAndSwapLayout(ctx context.Context, key string, raw []byte, base time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing LocalSnapshot
		err := tx.Where("key = ?", key).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&LocalSnapshot{
				Key:       key,
				Document:  raw,
				UpdatedAt: time.Now(),
			}).Error
		}
		if err != nil {
			return err
		}
		if existing.UpdatedAt.After(base) {
			return internal.ErrSnapshotStale
		}
		return tx.Model(&LocalSnapshot{}).
			Where("key = ?", key).
			Updates(map[string]interface{}{
				"document":   raw,
				"updated_at": time.Now(),
			}).Error
	})
}
