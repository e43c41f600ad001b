package sales

import (
	"context"
	"time"
)

// RecordRepository persists order-history records
type RecordRepository interface {
	// UpsertBatch inserts or updates records keyed by (order ID, listing ID).
	// Re-running with the same input is a no-op.
	UpsertBatch(ctx context.Context, records []Record) error
	// FindSince returns all records with an order date at or after the given time
	FindSince(ctx context.Context, since time.Time) ([]Record, error)
	// TotalQuantitySince returns the summed quantity per demand key for records
	// at or after the given time
	TotalQuantitySince(ctx context.Context, since time.Time) (map[string]int, error)
	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)
}

// AdSpendRepository persists advertising cost figures
type AdSpendRepository interface {
	// UpsertBatch inserts or updates figures keyed by (date, campaign ID)
	UpsertBatch(ctx context.Context, spend []AdSpend) error
	// FindBetween returns figures within the inclusive date range
	FindBetween(ctx context.Context, from, to time.Time) ([]AdSpend, error)
}
