package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
	"github.com/bolsas-cloud/fullsync/internal/domain/settings"
)

// StageConfig holds the tunables shared by the sync stages
type StageConfig struct {
	// OrderLookbackDays is the trailing window re-read by the orders stage
	OrderLookbackDays int
	// SalesWindowDays is the trailing window for demand estimation
	SalesWindowDays int
	// Replenish parameterizes the recommendation computation
	Replenish replenish.Config
}

// DefaultStageConfig returns the standard stage parameters
func DefaultStageConfig() StageConfig {
	return StageConfig{
		OrderLookbackDays: 30,
		SalesWindowDays:   90,
		Replenish:         replenish.DefaultConfig(),
	}
}

// ---------------------------------------------------------------------------
// Orders stage
// ---------------------------------------------------------------------------

// OrdersStage re-reads the trailing order window and upserts sales records.
// Keyed upserts make re-execution a no-op.
type OrdersStage struct {
	gateway Gateway
	records sales.RecordRepository
	config  StageConfig
	logger  *zap.Logger
}

// NewOrdersStage creates the orders stage
func NewOrdersStage(gateway Gateway, records sales.RecordRepository, config StageConfig, logger *zap.Logger) *OrdersStage {
	return &OrdersStage{gateway: gateway, records: records, config: config, logger: logger.Named("stage-orders")}
}

// Name returns the stage name
func (s *OrdersStage) Name() pipeline.StageName { return pipeline.StageOrders }

// Execute fetches and stores the trailing order window
func (s *OrdersStage) Execute(ctx context.Context, run *pipeline.Run) error {
	to := time.Now()
	from := to.AddDate(0, 0, -s.config.OrderLookbackDays)

	records, err := s.gateway.FetchOrders(ctx, from, to)
	if err != nil {
		return fmt.Errorf("orders stage: %w", err)
	}
	if err := s.records.UpsertBatch(ctx, records); err != nil {
		return fmt.Errorf("orders stage: storing records: %w", err)
	}

	s.logger.Info("Orders synced",
		zap.String("run_id", run.ID.String()),
		zap.Int("records", len(records)),
		zap.Time("from", from),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Ads stage
// ---------------------------------------------------------------------------

// AdsStage refreshes advertising cost figures for the trailing order window
type AdsStage struct {
	gateway Gateway
	spend   sales.AdSpendRepository
	config  StageConfig
	logger  *zap.Logger
}

// NewAdsStage creates the ads stage
func NewAdsStage(gateway Gateway, spend sales.AdSpendRepository, config StageConfig, logger *zap.Logger) *AdsStage {
	return &AdsStage{gateway: gateway, spend: spend, config: config, logger: logger.Named("stage-ads")}
}

// Name returns the stage name
func (s *AdsStage) Name() pipeline.StageName { return pipeline.StageAds }

// Execute fetches and stores advertising spend
func (s *AdsStage) Execute(ctx context.Context, run *pipeline.Run) error {
	to := time.Now()
	from := to.AddDate(0, 0, -s.config.OrderLookbackDays)

	spend, err := s.gateway.FetchAdSpend(ctx, from, to)
	if err != nil {
		return fmt.Errorf("ads stage: %w", err)
	}
	if err := s.spend.UpsertBatch(ctx, spend); err != nil {
		return fmt.Errorf("ads stage: storing spend: %w", err)
	}

	s.logger.Info("Ad spend synced",
		zap.String("run_id", run.ID.String()),
		zap.Int("rows", len(spend)),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Inventory-IDs stage
// ---------------------------------------------------------------------------

// InventoryIDStage backfills the fulfillment inventory ID for listings that
// lack one, via the deep per-item lookup. Listings already resolved are
// skipped, so the stage converges across runs.
type InventoryIDStage struct {
	gateway  Gateway
	listings catalog.ListingRepository
	logger   *zap.Logger
}

// NewInventoryIDStage creates the inventory-ids stage
func NewInventoryIDStage(gateway Gateway, listings catalog.ListingRepository, logger *zap.Logger) *InventoryIDStage {
	return &InventoryIDStage{gateway: gateway, listings: listings, logger: logger.Named("stage-inventory-ids")}
}

// Name returns the stage name
func (s *InventoryIDStage) Name() pipeline.StageName { return pipeline.StageInventoryIDs }

// Execute resolves missing inventory ids
func (s *InventoryIDStage) Execute(ctx context.Context, run *pipeline.Run) error {
	missing, err := s.listings.FindMissingInventoryID(ctx)
	if err != nil {
		return fmt.Errorf("inventory-ids stage: %w", err)
	}

	resolved := 0
	for _, l := range missing {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		details, err := s.gateway.FetchFulfillmentDetails(ctx, l.ListingID)
		if err != nil {
			// A single unresolvable listing must not sink the whole stage,
			// but credential failures abort immediately.
			if isAuthErr(err) {
				return fmt.Errorf("inventory-ids stage: %w", err)
			}
			s.logger.Warn("Failed to resolve inventory ID",
				zap.String("listing_id", l.ListingID),
				zap.Error(err),
			)
			continue
		}

		inventoryID := details.InventoryID
		if inventoryID == "" && len(details.VariationInventoryIDs) > 0 {
			inventoryID = details.VariationInventoryIDs[0]
		}
		if inventoryID == "" {
			continue
		}

		if err := s.listings.UpdateInventoryID(ctx, l.ListingID, inventoryID); err != nil {
			return fmt.Errorf("inventory-ids stage: updating %s: %w", l.ListingID, err)
		}
		resolved++
	}

	s.logger.Info("Inventory IDs backfilled",
		zap.String("run_id", run.ID.String()),
		zap.Int("missing", len(missing)),
		zap.Int("resolved", resolved),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Listings stage (terminal)
// ---------------------------------------------------------------------------

// ListingsStage refreshes every listing's mutable columns in throttled batches,
// then recomputes the replenishment recommendations from the refreshed catalog
// and the sales history collected by the orders stage
type ListingsStage struct {
	gateway  Gateway
	listings catalog.ListingRepository
	records  sales.RecordRepository
	results  replenish.ResultRepository
	settings settings.Store
	config   StageConfig
	logger   *zap.Logger
}

// NewListingsStage creates the listings stage
func NewListingsStage(
	gateway Gateway,
	listings catalog.ListingRepository,
	records sales.RecordRepository,
	results replenish.ResultRepository,
	settingsStore settings.Store,
	config StageConfig,
	logger *zap.Logger,
) *ListingsStage {
	return &ListingsStage{
		gateway:  gateway,
		listings: listings,
		records:  records,
		results:  results,
		settings: settingsStore,
		config:   config,
		logger:   logger.Named("stage-listings"),
	}
}

// Name returns the stage name
func (s *ListingsStage) Name() pipeline.StageName { return pipeline.StageListings }

// Execute refreshes the catalog and rewrites the recommendation table
func (s *ListingsStage) Execute(ctx context.Context, run *pipeline.Run) error {
	ids, err := s.gateway.FetchAllListingIDs(ctx)
	if err != nil {
		return fmt.Errorf("listings stage: %w", err)
	}

	fetched, err := s.gateway.FetchListings(ctx, ids)
	if err != nil {
		return fmt.Errorf("listings stage: fetching details: %w", err)
	}

	// Preserve inventory ids already resolved by the backfill stage: a fresh
	// fetch may omit them for variation-only items
	if err := s.mergeKnownInventoryIDs(ctx, fetched); err != nil {
		return fmt.Errorf("listings stage: %w", err)
	}

	now := time.Now()
	windowStart := now.AddDate(0, 0, -s.config.SalesWindowDays)

	totals, err := s.records.TotalQuantitySince(ctx, windowStart)
	if err != nil {
		return fmt.Errorf("listings stage: summing sales window: %w", err)
	}
	for i := range fetched {
		fetched[i].SalesQuantity = totals[fetched[i].DemandKey()]
	}

	if err := s.listings.UpsertBatch(ctx, fetched); err != nil {
		return fmt.Errorf("listings stage: storing listings: %w", err)
	}

	history, err := s.records.FindSince(ctx, windowStart)
	if err != nil {
		return fmt.Errorf("listings stage: reading history: %w", err)
	}

	cfg := s.config.Replenish
	cfg.LeadTimeDays = settings.LeadTimeDays(ctx, s.settings, cfg.LeadTimeDays)

	results := replenish.Compute(fetched, history, cfg, now)
	if err := s.results.ReplaceAll(ctx, results); err != nil {
		return fmt.Errorf("listings stage: writing results: %w", err)
	}

	s.logger.Info("Listings refreshed and recommendations recomputed",
		zap.String("run_id", run.ID.String()),
		zap.Int("listings", len(fetched)),
		zap.Int("history_records", len(history)),
		zap.Int("results", len(results)),
	)
	return nil
}

// mergeKnownInventoryIDs carries stored inventory ids onto freshly fetched
// listings that came back without one
func (s *ListingsStage) mergeKnownInventoryIDs(ctx context.Context, fetched []catalog.Listing) error {
	known, err := s.listings.FindAll(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]string, len(known))
	for _, l := range known {
		if l.InventoryID != "" {
			byID[l.ListingID] = l.InventoryID
		}
	}
	for i := range fetched {
		if fetched[i].InventoryID == "" {
			fetched[i].InventoryID = byID[fetched[i].ListingID]
		}
	}
	return nil
}
