package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
	"github.com/bolsas-cloud/fullsync/internal/domain/settings"
	"github.com/bolsas-cloud/fullsync/internal/domain/shared"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/cache"
)

// Action identifies one on-demand synchronization operation
type Action string

const (
	ActionSyncInventory Action = "sync-inventory"
	ActionSyncOrders    Action = "sync-orders"
	ActionSyncAll       Action = "sync-all"
	ActionSyncPrices    Action = "sync-prices"
	ActionUpdatePrices  Action = "update-prices"
	ActionSyncAds       Action = "sync-ads"
	ActionUpdateStock   Action = "update-stock"
)

// stockCacheKeyPrefix namespaces the memoized fulfillment-stock snapshot
const stockCacheKeyPrefix = "stock:"

// PriceUpdate is one requested listing price change
type PriceUpdate struct {
	ListingID string
	Price     decimal.Decimal
}

// StockUpdate is one requested available-quantity change
type StockUpdate struct {
	ListingID string
	Quantity  int
}

// Request carries an action and its optional parameters
type Request struct {
	Action Action
	// Since overrides the default order lookback for sync-orders / sync-ads
	Since *time.Time
	// Prices is the payload for update-prices
	Prices []PriceUpdate
	// Stock is the payload for update-stock
	Stock []StockUpdate
}

// Result summarizes what an action did
type Result struct {
	Action    Action `json:"action"`
	Processed int    `json:"processed"`
	Detail    string `json:"detail,omitempty"`
}

// Service executes on-demand sync actions outside the pipeline: the same
// fetch-and-upsert building blocks, dispatched by action name instead of
// chained by continuations.
type Service struct {
	gateway  Gateway
	listings catalog.ListingRepository
	records  sales.RecordRepository
	spend    sales.AdSpendRepository
	results  replenish.ResultRepository
	settings settings.Store
	cache    cache.Store
	config   ServiceConfig
	logger   *zap.Logger
}

// ServiceConfig holds the sync service tunables
type ServiceConfig struct {
	StageConfig
	// StockCacheTTL bounds the fulfillment-stock snapshot memoization
	StockCacheTTL time.Duration
}

// DefaultServiceConfig returns the standard service parameters
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		StageConfig:   DefaultStageConfig(),
		StockCacheTTL: time.Hour,
	}
}

// NewService creates a sync service
func NewService(
	gateway Gateway,
	listings catalog.ListingRepository,
	records sales.RecordRepository,
	spend sales.AdSpendRepository,
	results replenish.ResultRepository,
	settingsStore settings.Store,
	cacheStore cache.Store,
	config ServiceConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		gateway:  gateway,
		listings: listings,
		records:  records,
		spend:    spend,
		results:  results,
		settings: settingsStore,
		cache:    cacheStore,
		config:   config,
		logger:   logger.Named("sync-service"),
	}
}

// Execute dispatches one sync action
func (s *Service) Execute(ctx context.Context, req Request) (*Result, error) {
	switch req.Action {
	case ActionSyncInventory:
		return s.syncInventory(ctx)
	case ActionSyncOrders:
		return s.syncOrders(ctx, req.Since)
	case ActionSyncAds:
		return s.syncAds(ctx, req.Since)
	case ActionSyncPrices:
		return s.syncPrices(ctx)
	case ActionUpdatePrices:
		return s.updatePrices(ctx, req.Prices)
	case ActionUpdateStock:
		return s.updateStock(ctx, req.Stock)
	case ActionSyncAll:
		return s.syncAll(ctx, req.Since)
	default:
		return nil, shared.ErrUnknownAction
	}
}

// syncInventory refreshes the full catalog and the fulfillment stock of every
// resolved listing. The stock snapshot is memoized: within the TTL the
// marketplace is not re-asked.
func (s *Service) syncInventory(ctx context.Context) (*Result, error) {
	ids, err := s.gateway.FetchAllListingIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync-inventory: %w", err)
	}
	listings, err := s.gateway.FetchListings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("sync-inventory: %w", err)
	}

	refreshed := 0
	for i := range listings {
		if !listings[i].HasInventoryID() {
			continue
		}
		qty, err := s.fulfillmentStock(ctx, listings[i].InventoryID)
		if err != nil {
			if isAuthErr(err) {
				return nil, fmt.Errorf("sync-inventory: %w", err)
			}
			s.logger.Warn("Failed to read fulfillment stock",
				zap.String("listing_id", listings[i].ListingID),
				zap.String("inventory_id", listings[i].InventoryID),
				zap.Error(err),
			)
			continue
		}
		listings[i].AvailableQuantity = qty
		refreshed++
	}

	if err := s.stampSalesTotals(ctx, listings); err != nil {
		return nil, fmt.Errorf("sync-inventory: %w", err)
	}
	if err := s.listings.UpsertBatch(ctx, listings); err != nil {
		return nil, fmt.Errorf("sync-inventory: storing listings: %w", err)
	}

	return &Result{
		Action:    ActionSyncInventory,
		Processed: len(listings),
		Detail:    fmt.Sprintf("%d stock figures refreshed", refreshed),
	}, nil
}

// stampSalesTotals sets each listing's trailing sales total from the stored
// order history, so a catalog refresh never wipes the column
func (s *Service) stampSalesTotals(ctx context.Context, listings []catalog.Listing) error {
	since := time.Now().AddDate(0, 0, -s.config.SalesWindowDays)
	totals, err := s.records.TotalQuantitySince(ctx, since)
	if err != nil {
		return fmt.Errorf("summing sales window: %w", err)
	}
	for i := range listings {
		listings[i].SalesQuantity = totals[listings[i].DemandKey()]
	}
	return nil
}

// fulfillmentStock returns the warehouse quantity for one inventory id,
// memoized through the cache
func (s *Service) fulfillmentStock(ctx context.Context, inventoryID string) (int, error) {
	key := stockCacheKeyPrefix + inventoryID
	if payload, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		if qty, convErr := strconv.Atoi(payload); convErr == nil {
			return qty, nil
		}
	}

	stock, err := s.gateway.FetchFulfillmentStock(ctx, inventoryID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Put(ctx, key, strconv.Itoa(stock.AvailableQuantity), s.config.StockCacheTTL); err != nil {
		s.logger.Warn("Failed to cache fulfillment stock", zap.Error(err))
	}
	return stock.AvailableQuantity, nil
}

// syncOrders re-reads the order window and upserts sales records
func (s *Service) syncOrders(ctx context.Context, since *time.Time) (*Result, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -s.config.OrderLookbackDays)
	if since != nil {
		from = *since
	}

	records, err := s.gateway.FetchOrders(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sync-orders: %w", err)
	}
	if err := s.records.UpsertBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("sync-orders: storing records: %w", err)
	}
	return &Result{Action: ActionSyncOrders, Processed: len(records)}, nil
}

// syncAds re-reads advertising spend for the window
func (s *Service) syncAds(ctx context.Context, since *time.Time) (*Result, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -s.config.OrderLookbackDays)
	if since != nil {
		from = *since
	}

	spend, err := s.gateway.FetchAdSpend(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("sync-ads: %w", err)
	}
	if err := s.spend.UpsertBatch(ctx, spend); err != nil {
		return nil, fmt.Errorf("sync-ads: storing spend: %w", err)
	}
	return &Result{Action: ActionSyncAds, Processed: len(spend)}, nil
}

// syncPrices refreshes listing details for the known catalog, picking up
// price and status changes made on the marketplace
func (s *Service) syncPrices(ctx context.Context) (*Result, error) {
	known, err := s.listings.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync-prices: %w", err)
	}
	ids := make([]string, len(known))
	for i, l := range known {
		ids[i] = l.ListingID
	}

	fetched, err := s.gateway.FetchListings(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("sync-prices: %w", err)
	}
	if err := s.stampSalesTotals(ctx, fetched); err != nil {
		return nil, fmt.Errorf("sync-prices: %w", err)
	}
	if err := s.listings.UpsertBatch(ctx, fetched); err != nil {
		return nil, fmt.Errorf("sync-prices: storing listings: %w", err)
	}
	return &Result{Action: ActionSyncPrices, Processed: len(fetched)}, nil
}

// updatePrices pushes local price changes to the marketplace, then mirrors
// them in the stored catalog
func (s *Service) updatePrices(ctx context.Context, updates []PriceUpdate) (*Result, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("update-prices: %w", shared.ErrInvalidInput)
	}

	pushed := 0
	for _, u := range updates {
		if err := s.gateway.UpdatePrice(ctx, u.ListingID, u.Price); err != nil {
			if isAuthErr(err) {
				return nil, fmt.Errorf("update-prices: %w", err)
			}
			s.logger.Warn("Failed to push price",
				zap.String("listing_id", u.ListingID),
				zap.Error(err),
			)
			continue
		}

		listing, err := s.listings.FindByID(ctx, u.ListingID)
		if err == nil {
			listing.Price = u.Price
			if upErr := s.listings.UpsertBatch(ctx, []catalog.Listing{*listing}); upErr != nil {
				s.logger.Warn("Failed to mirror price locally",
					zap.String("listing_id", u.ListingID),
					zap.Error(upErr),
				)
			}
		}
		pushed++
	}
	return &Result{Action: ActionUpdatePrices, Processed: pushed}, nil
}

// updateStock pushes available-quantity changes to the marketplace
func (s *Service) updateStock(ctx context.Context, updates []StockUpdate) (*Result, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("update-stock: %w", shared.ErrInvalidInput)
	}

	pushed := 0
	for _, u := range updates {
		if err := s.gateway.UpdateStock(ctx, u.ListingID, u.Quantity); err != nil {
			if isAuthErr(err) {
				return nil, fmt.Errorf("update-stock: %w", err)
			}
			s.logger.Warn("Failed to push stock",
				zap.String("listing_id", u.ListingID),
				zap.Error(err),
			)
			continue
		}
		// The pushed quantity becomes stale marketplace-side truth quickly,
		// so only the remote write matters here; the catalog refreshes on the
		// next sync-inventory
		pushed++
	}
	return &Result{Action: ActionUpdateStock, Processed: pushed}, nil
}

// syncAll runs orders, ads and inventory refresh back to back, then recomputes
// the replenishment recommendations from the fresh state
func (s *Service) syncAll(ctx context.Context, since *time.Time) (*Result, error) {
	orders, err := s.syncOrders(ctx, since)
	if err != nil {
		return nil, err
	}
	ads, err := s.syncAds(ctx, since)
	if err != nil {
		return nil, err
	}
	inventory, err := s.syncInventory(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.recompute(ctx); err != nil {
		return nil, fmt.Errorf("sync-all: %w", err)
	}

	return &Result{
		Action:    ActionSyncAll,
		Processed: orders.Processed + ads.Processed + inventory.Processed,
		Detail:    "orders, ads and inventory synced; recommendations recomputed",
	}, nil
}

// recompute rewrites the recommendation table from current catalog and history
func (s *Service) recompute(ctx context.Context) error {
	listings, err := s.listings.FindAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	history, err := s.records.FindSince(ctx, now.AddDate(0, 0, -s.config.SalesWindowDays))
	if err != nil {
		return err
	}

	cfg := s.config.Replenish
	cfg.LeadTimeDays = settings.LeadTimeDays(ctx, s.settings, cfg.LeadTimeDays)

	return s.results.ReplaceAll(ctx, replenish.Compute(listings, history, cfg, now))
}
