package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
)

// GormContinuationStore implements ContinuationStore using GORM. Rows in
// pipeline_continuations are the durable timers that drive the sync chain.
type GormContinuationStore struct {
	db *gorm.DB
}

// NewGormContinuationStore creates a new GormContinuationStore
func NewGormContinuationStore(db *gorm.DB) *GormContinuationStore {
	return &GormContinuationStore{db: db}
}

// ScheduleOnce persists a single future invocation
func (s *GormContinuationStore) ScheduleOnce(ctx context.Context, c *pipeline.Continuation) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// CancelAllMatching removes every pending continuation whose stage name starts
// with the given prefix
func (s *GormContinuationStore) CancelAllMatching(ctx context.Context, prefix string) error {
	return s.db.WithContext(ctx).
		Where("stage LIKE ?", prefix+"%").
		Delete(&pipeline.Continuation{}).Error
}

// Due returns continuations whose fire time has passed, oldest first
func (s *GormContinuationStore) Due(ctx context.Context, now time.Time, limit int) ([]pipeline.Continuation, error) {
	var due []pipeline.Continuation
	query := s.db.WithContext(ctx).
		Where("fire_at <= ?", now).
		Order("fire_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

// Delete removes a single continuation after it has been claimed
func (s *GormContinuationStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&pipeline.Continuation{}, "id = ?", id).Error
}

// PendingMatching returns pending continuations whose stage name starts with
// the given prefix
func (s *GormContinuationStore) PendingMatching(ctx context.Context, prefix string) ([]pipeline.Continuation, error) {
	var pending []pipeline.Continuation
	if err := s.db.WithContext(ctx).
		Where("stage LIKE ?", prefix+"%").
		Order("fire_at ASC").
		Find(&pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

// Ensure GormContinuationStore implements ContinuationStore
var _ pipeline.ContinuationStore = (*GormContinuationStore)(nil)
