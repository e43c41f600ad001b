package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
)

// GormRecordRepository implements RecordRepository using GORM
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new GormRecordRepository
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// UpsertBatch inserts or updates records keyed by (order ID, listing ID).
// Orders are re-read within a trailing window on every sync, so re-inserting
// already-known lines must be a clean overwrite.
func (r *GormRecordRepository) UpsertBatch(ctx context.Context, records []sales.Record) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}, {Name: "listing_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sku", "order_date", "quantity", "unit_price", "updated_at",
			}),
		}).
		CreateInBatches(records, upsertChunkSize).Error
}

// FindSince returns all records with an order date at or after the given time
func (r *GormRecordRepository) FindSince(ctx context.Context, since time.Time) ([]sales.Record, error) {
	var records []sales.Record
	if err := r.db.WithContext(ctx).
		Where("order_date >= ?", since).
		Order("order_date ASC, order_id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// TotalQuantitySince returns the summed quantity per demand key for records at
// or after the given time. The demand key is the SKU when present, otherwise
// the listing ID, matching the listing-side join rule.
func (r *GormRecordRepository) TotalQuantitySince(ctx context.Context, since time.Time) (map[string]int, error) {
	type row struct {
		DemandKey string
		Total     int
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&sales.Record{}).
		Select("CASE WHEN sku <> '' THEN sku ELSE listing_id END AS demand_key, SUM(quantity) AS total").
		Where("order_date >= ?", since).
		Group("demand_key").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make(map[string]int, len(rows))
	for _, r := range rows {
		totals[r.DemandKey] = r.Total
	}
	return totals, nil
}

// Count counts stored records
func (r *GormRecordRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&sales.Record{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormRecordRepository implements RecordRepository
var _ sales.RecordRepository = (*GormRecordRepository)(nil)

// GormAdSpendRepository implements AdSpendRepository using GORM
type GormAdSpendRepository struct {
	db *gorm.DB
}

// NewGormAdSpendRepository creates a new GormAdSpendRepository
func NewGormAdSpendRepository(db *gorm.DB) *GormAdSpendRepository {
	return &GormAdSpendRepository{db: db}
}

// UpsertBatch inserts or updates figures keyed by (date, campaign ID)
func (r *GormAdSpendRepository) UpsertBatch(ctx context.Context, spend []sales.AdSpend) error {
	if len(spend) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "campaign_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"cost", "updated_at"}),
		}).
		CreateInBatches(spend, upsertChunkSize).Error
}

// FindBetween returns figures within the inclusive date range
func (r *GormAdSpendRepository) FindBetween(ctx context.Context, from, to time.Time) ([]sales.AdSpend, error) {
	var spend []sales.AdSpend
	if err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC, campaign_id ASC").
		Find(&spend).Error; err != nil {
		return nil, err
	}
	return spend, nil
}

// Ensure GormAdSpendRepository implements AdSpendRepository
var _ sales.AdSpendRepository = (*GormAdSpendRepository)(nil)
