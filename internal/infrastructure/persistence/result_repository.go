package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
)

// GormResultRepository implements ResultRepository using GORM
type GormResultRepository struct {
	db *gorm.DB
}

// NewGormResultRepository creates a new GormResultRepository
func NewGormResultRepository(db *gorm.DB) *GormResultRepository {
	return &GormResultRepository{db: db}
}

// ReplaceAll clears the result table and writes the given results in a single
// transaction, so readers never observe a mix of two computations
func (r *GormResultRepository) ReplaceAll(ctx context.Context, results []replenish.Result) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&replenish.Result{}).Error; err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		return tx.CreateInBatches(results, upsertChunkSize).Error
	})
}

// FindAll returns the results of the last completed computation ordered by
// listing ID
func (r *GormResultRepository) FindAll(ctx context.Context) ([]replenish.Result, error) {
	var results []replenish.Result
	if err := r.db.WithContext(ctx).
		Order("listing_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Ensure GormResultRepository implements ResultRepository
var _ replenish.ResultRepository = (*GormResultRepository)(nil)
