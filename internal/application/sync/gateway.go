package sync

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/meli"
)

// Gateway is the marketplace surface the sync stages depend on. Credential
// failures satisfy errors.Is(err, pipeline.ErrAuthFailed).
type Gateway interface {
	// ResolveSellerID returns the seller account ID, resolving it remotely on
	// first use
	ResolveSellerID(ctx context.Context) (string, error)
	// FetchAllListingIDs returns every listing ID owned by the seller
	FetchAllListingIDs(ctx context.Context) ([]string, error)
	// FetchListings fetches listing details, batching and throttling internally
	FetchListings(ctx context.Context, ids []string) ([]catalog.Listing, error)
	// FetchFulfillmentDetails performs the deep per-item lookup used to
	// backfill missing fulfillment inventory ids
	FetchFulfillmentDetails(ctx context.Context, listingID string) (*meli.FulfillmentDetails, error)
	// FetchFulfillmentStock returns warehouse stock for one inventory id
	FetchFulfillmentStock(ctx context.Context, inventoryID string) (*meli.FulfillmentStock, error)
	// FetchOrders pulls order lines created in [from, to)
	FetchOrders(ctx context.Context, from, to time.Time) ([]sales.Record, error)
	// FetchAdSpend pulls advertising cost figures for the inclusive date range
	FetchAdSpend(ctx context.Context, from, to time.Time) ([]sales.AdSpend, error)
	// UpdatePrice pushes a new price for a listing
	UpdatePrice(ctx context.Context, listingID string, price decimal.Decimal) error
	// UpdateStock pushes a new available quantity for a listing
	UpdateStock(ctx context.Context, listingID string, quantity int) error
}

// Ensure the marketplace client satisfies the gateway
var _ Gateway = (*meli.Client)(nil)
