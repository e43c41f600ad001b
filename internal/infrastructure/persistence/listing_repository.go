package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/shared"
)

// upsertChunkSize bounds how many rows one multi-row upsert statement carries
const upsertChunkSize = 200

// GormListingRepository implements ListingRepository using GORM
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// FindByID finds a listing by its marketplace ID
func (r *GormListingRepository) FindByID(ctx context.Context, listingID string) (*catalog.Listing, error) {
	var listing catalog.Listing
	if err := r.db.WithContext(ctx).First(&listing, "listing_id = ?", listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// FindAll returns every known listing ordered by marketplace ID
func (r *GormListingRepository) FindAll(ctx context.Context) ([]catalog.Listing, error) {
	var listings []catalog.Listing
	if err := r.db.WithContext(ctx).
		Order("listing_id ASC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindMissingInventoryID returns listings whose fulfillment inventory ID has
// not been resolved yet
func (r *GormListingRepository) FindMissingInventoryID(ctx context.Context) ([]catalog.Listing, error) {
	var listings []catalog.Listing
	if err := r.db.WithContext(ctx).
		Where("inventory_id = '' OR inventory_id IS NULL").
		Order("listing_id ASC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// UpsertBatch inserts or updates listings keyed by listing ID
func (r *GormListingRepository) UpsertBatch(ctx context.Context, listings []catalog.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "listing_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sku", "title", "inventory_id", "price", "category_id", "status",
				"logistic_type", "free_shipping", "available_quantity",
				"sales_quantity", "visits", "conversions", "updated_at",
			}),
		}).
		CreateInBatches(listings, upsertChunkSize).Error
}

// UpdateInventoryID sets the fulfillment inventory ID for a listing
func (r *GormListingRepository) UpdateInventoryID(ctx context.Context, listingID, inventoryID string) error {
	result := r.db.WithContext(ctx).
		Model(&catalog.Listing{}).
		Where("listing_id = ?", listingID).
		Update("inventory_id", inventoryID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts known listings
func (r *GormListingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Listing{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormListingRepository implements ListingRepository
var _ catalog.ListingRepository = (*GormListingRepository)(nil)
