package catalog

import "context"

// ListingRepository persists marketplace listings
type ListingRepository interface {
	// FindByID returns the listing with the given marketplace ID
	FindByID(ctx context.Context, listingID string) (*Listing, error)
	// FindAll returns every known listing
	FindAll(ctx context.Context) ([]Listing, error)
	// FindMissingInventoryID returns listings whose fulfillment inventory ID
	// has not been resolved yet
	FindMissingInventoryID(ctx context.Context) ([]Listing, error)
	// UpsertBatch inserts or updates listings keyed by listing ID.
	// Re-running with the same input is a no-op.
	UpsertBatch(ctx context.Context, listings []Listing) error
	// UpdateInventoryID sets the fulfillment inventory ID for a listing
	UpdateInventoryID(ctx context.Context, listingID, inventoryID string) error
	// Count returns the number of known listings
	Count(ctx context.Context) (int64, error)
}
