package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/domain/shared"
)

// GormRunRepository implements RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Create persists a new pipeline run
func (r *GormRunRepository) Create(ctx context.Context, run *pipeline.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update persists changes to an existing run
func (r *GormRunRepository) Update(ctx context.Context, run *pipeline.Run) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// FindByID finds a run by its ID
func (r *GormRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*pipeline.Run, error) {
	var run pipeline.Run
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// FindLatest returns the most recently started run, or nil when none exists
func (r *GormRunRepository) FindLatest(ctx context.Context) (*pipeline.Run, error) {
	var run pipeline.Run
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// Ensure GormRunRepository implements RunRepository
var _ pipeline.RunRepository = (*GormRunRepository)(nil)
