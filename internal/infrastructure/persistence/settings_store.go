package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bolsas-cloud/fullsync/internal/domain/settings"
)

// GormSettingsStore implements settings.Store using GORM
type GormSettingsStore struct {
	db *gorm.DB
}

// NewGormSettingsStore creates a new GormSettingsStore
func NewGormSettingsStore(db *gorm.DB) *GormSettingsStore {
	return &GormSettingsStore{db: db}
}

// Get returns the value for the key and whether it exists
func (s *GormSettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var setting settings.Setting
	if err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return setting.Value, true, nil
}

// Set writes or overwrites the value for the key
func (s *GormSettingsStore) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&settings.Setting{Key: key, Value: value}).Error
}

// Ensure GormSettingsStore implements settings.Store
var _ settings.Store = (*GormSettingsStore)(nil)
