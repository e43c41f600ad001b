package meli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
	"github.com/bolsas-cloud/fullsync/internal/domain/settings"
)

// maxResponseSize is the maximum allowed response size from the marketplace (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxBatchSize is the marketplace's cap on multiget ids per request
const maxBatchSize = 20

// scanPageSize is the page size for scan-type item searches
const scanPageSize = 100

// orderPageSize is the page size for order searches
const orderPageSize = 50

// Client talks to the marketplace API for a single seller account. All calls
// take a context, map HTTP failures onto the package's error taxonomy, and
// parse responses into explicit types that fail closed on unexpected shapes.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger

	// sleep is injectable so batch-throttle tests do not wait wall-clock time
	sleep func(time.Duration)

	sellerID    string         // memoized after ResolveSellerID
	sellerStore settings.Store // optional, persists the resolved id across restarts
}

// NewClient creates a marketplace client with the given configuration
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.Named("meli"),
		sleep:      time.Sleep,
		sellerID:   config.SellerID,
	}, nil
}

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

// UseSellerIDStore makes the client read the seller id from the store before
// going remote, and write it back after a users/me resolution
func (c *Client) UseSellerIDStore(store settings.Store) {
	c.sellerStore = store
}

// ResolveSellerID returns the seller ID, calling users/me on first use when
// none was configured or persisted. The result is memoized for the client's
// lifetime and written through to the settings store when one is attached.
func (c *Client) ResolveSellerID(ctx context.Context) (string, error) {
	if c.sellerID != "" {
		return c.sellerID, nil
	}

	if c.sellerStore != nil {
		stored, err := settings.SellerID(ctx, c.sellerStore)
		if err != nil {
			c.logger.Warn("Failed to read persisted seller ID", zap.Error(err))
		} else if stored != "" {
			c.sellerID = stored
			return c.sellerID, nil
		}
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/users/me", nil, nil)
	if err != nil {
		return "", err
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("%w: users/me: %v", ErrInvalidResponse, err)
	}
	if user.ID == 0 {
		return "", fmt.Errorf("%w: users/me returned no id", ErrInvalidResponse)
	}

	c.sellerID = strconv.FormatInt(user.ID, 10)
	c.logger.Info("Resolved seller ID", zap.String("seller_id", c.sellerID))

	if c.sellerStore != nil {
		if err := settings.RecordSellerID(ctx, c.sellerStore, c.sellerID); err != nil {
			c.logger.Warn("Failed to persist seller ID", zap.Error(err))
		}
	}
	return c.sellerID, nil
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

// FetchAllListingIDs walks the scan-type search until exhausted and returns
// every listing ID owned by the seller
func (c *Client) FetchAllListingIDs(ctx context.Context) ([]string, error) {
	sellerID, err := c.ResolveSellerID(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	scrollID := ""
	for {
		query := url.Values{}
		query.Set("search_type", "scan")
		query.Set("limit", strconv.Itoa(scanPageSize))
		if scrollID != "" {
			query.Set("scroll_id", scrollID)
		}

		body, err := c.doRequest(ctx, http.MethodGet, "/users/"+sellerID+"/items/search", query, nil)
		if err != nil {
			return nil, err
		}

		var page scanPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: item scan: %v", ErrInvalidResponse, err)
		}
		if len(page.Results) == 0 {
			break
		}

		ids = append(ids, page.Results...)
		scrollID = page.ScrollID
		if scrollID == "" {
			break
		}
	}

	return ids, nil
}

// FetchListingsBatch fetches details for up to 20 listings in one multiget
// call. Entries the marketplace reports as failed are skipped and logged, not
// fatal to the batch.
func (c *Client) FetchListingsBatch(ctx context.Context, ids []string) ([]catalog.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrBatchTooLarge, len(ids))
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))

	body, err := c.doRequest(ctx, http.MethodGet, "/items", query, nil)
	if err != nil {
		return nil, err
	}

	var entries []multigetEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: multiget: %v", ErrInvalidResponse, err)
	}

	listings := make([]catalog.Listing, 0, len(entries))
	for _, entry := range entries {
		if entry.Code != http.StatusOK || entry.Body.ID == "" {
			c.logger.Warn("Skipping failed multiget entry",
				zap.Int("code", entry.Code),
				zap.String("listing_id", entry.Body.ID),
			)
			continue
		}
		listings = append(listings, convertItemToListing(&entry.Body))
	}
	return listings, nil
}

// FetchListings fetches details for any number of listings, issuing multiget
// batches of the configured size with the configured delay between batches to
// respect the marketplace rate limit
func (c *Client) FetchListings(ctx context.Context, ids []string) ([]catalog.Listing, error) {
	var listings []catalog.Listing
	for start := 0; start < len(ids); start += c.config.BatchSize {
		if start > 0 {
			c.sleep(c.config.BatchDelay)
		}
		end := start + c.config.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		batch, err := c.FetchListingsBatch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		listings = append(listings, batch...)
	}
	return listings, nil
}

// FetchFulfillmentDetails performs the deep per-item lookup used to backfill
// missing fulfillment inventory ids, walking variations when the parent item
// carries none
func (c *Client) FetchFulfillmentDetails(ctx context.Context, listingID string) (*FulfillmentDetails, error) {
	query := url.Values{}
	query.Set("include_attributes", "all")

	body, err := c.doRequest(ctx, http.MethodGet, "/items/"+listingID, query, nil)
	if err != nil {
		return nil, err
	}

	var item itemBody
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("%w: item %s: %v", ErrInvalidResponse, listingID, err)
	}
	if item.ID == "" {
		return nil, fmt.Errorf("%w: item %s returned no id", ErrInvalidResponse, listingID)
	}

	details := &FulfillmentDetails{
		InventoryID: item.InventoryID,
		Title:       item.Title,
	}
	for _, variation := range item.Variations {
		if variation.InventoryID != "" {
			details.VariationInventoryIDs = append(details.VariationInventoryIDs, variation.InventoryID)
		}
	}
	return details, nil
}

// FetchFulfillmentStock returns the warehouse stock for one inventory id
func (c *Client) FetchFulfillmentStock(ctx context.Context, inventoryID string) (*FulfillmentStock, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/inventories/"+inventoryID+"/stock/fulfillment", nil, nil)
	if err != nil {
		return nil, err
	}

	var stock FulfillmentStock
	if err := json.Unmarshal(body, &stock); err != nil {
		return nil, fmt.Errorf("%w: stock %s: %v", ErrInvalidResponse, inventoryID, err)
	}
	stock.InventoryID = inventoryID
	return &stock, nil
}

// UpdatePrice pushes a new price for a listing
func (c *Client) UpdatePrice(ctx context.Context, listingID string, price decimal.Decimal) error {
	payload := map[string]any{"price": price.InexactFloat64()}
	_, err := c.doRequest(ctx, http.MethodPut, "/items/"+listingID, nil, payload)
	return err
}

// UpdateStock pushes a new available quantity for a listing
func (c *Client) UpdateStock(ctx context.Context, listingID string, quantity int) error {
	payload := map[string]any{"available_quantity": quantity}
	_, err := c.doRequest(ctx, http.MethodPut, "/items/"+listingID, nil, payload)
	return err
}

// ---------------------------------------------------------------------------
// Orders & Advertising
// ---------------------------------------------------------------------------

// FetchOrders pulls all orders created in [from, to), walking offset
// pagination, and flattens order lines into sales records
func (c *Client) FetchOrders(ctx context.Context, from, to time.Time) ([]sales.Record, error) {
	sellerID, err := c.ResolveSellerID(ctx)
	if err != nil {
		return nil, err
	}

	var records []sales.Record
	offset := 0
	for {
		query := url.Values{}
		query.Set("seller", sellerID)
		query.Set("order.date_created.from", from.UTC().Format(time.RFC3339))
		query.Set("order.date_created.to", to.UTC().Format(time.RFC3339))
		query.Set("sort", "date_asc")
		query.Set("limit", strconv.Itoa(orderPageSize))
		query.Set("offset", strconv.Itoa(offset))

		body, err := c.doRequest(ctx, http.MethodGet, "/orders/search", query, nil)
		if err != nil {
			return nil, err
		}

		var page orderSearchPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: order search: %v", ErrInvalidResponse, err)
		}

		for _, order := range page.Results {
			records = append(records, convertOrderToRecords(&order)...)
		}

		offset += len(page.Results)
		if len(page.Results) == 0 || offset >= page.Paging.Total {
			break
		}
	}

	return records, nil
}

// FetchAdSpend pulls advertising cost figures for the inclusive date range
func (c *Client) FetchAdSpend(ctx context.Context, from, to time.Time) ([]sales.AdSpend, error) {
	sellerID, err := c.ResolveSellerID(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("date_from", from.UTC().Format("2006-01-02"))
	query.Set("date_to", to.UTC().Format("2006-01-02"))

	body, err := c.doRequest(ctx, http.MethodGet, "/advertising/advertisers/"+sellerID+"/product_ads/metrics", query, nil)
	if err != nil {
		return nil, err
	}

	var resp adMetricsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: ad metrics: %v", ErrInvalidResponse, err)
	}

	spend := make([]sales.AdSpend, 0, len(resp.Results))
	for _, row := range resp.Results {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			c.logger.Warn("Skipping ad metrics row with bad date",
				zap.String("date", row.Date),
				zap.Int64("campaign_id", row.CampaignID),
			)
			continue
		}
		spend = append(spend, sales.AdSpend{
			Date:       date,
			CampaignID: strconv.FormatInt(row.CampaignID, 10),
			Cost:       row.Cost,
		})
	}
	return spend, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs one HTTP call with bearer auth, mapping failures onto
// the package error taxonomy. Transient failures (network, 429, 5xx) are
// retried with linear backoff up to MaxRetries; auth failures are never
// retried.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	endpoint := c.config.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(c.config.RetryBackoff * time.Duration(attempt))
		}

		var reqBody io.Reader
		if payload != nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("meli: failed to encode request: %w", err)
			}
			reqBody = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
		if err != nil {
			return nil, fmt.Errorf("meli: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("%w: reading response: %v", ErrUnavailable, readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: HTTP 429", ErrRateLimited)
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			var apiErr apiError
			if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
				return nil, fmt.Errorf("%w: %s", ErrRequestFailed, apiErr.Message)
			}
			return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
		}

		return body, nil
	}

	return nil, lastErr
}

// convertItemToListing maps a marketplace item body to a domain listing.
// Visit and conversion metrics are disabled upstream and stay zero.
func convertItemToListing(item *itemBody) catalog.Listing {
	return catalog.Listing{
		ListingID:         item.ID,
		SKU:               item.SKU(),
		Title:             item.Title,
		InventoryID:       item.InventoryID,
		Price:             item.Price,
		CategoryID:        item.CategoryID,
		Status:            catalog.ListingStatus(item.Status),
		LogisticType:      item.Shipping.LogisticType,
		FreeShipping:      item.Shipping.FreeShipping,
		AvailableQuantity: item.AvailableQuantity,
	}
}

// convertOrderToRecords flattens one marketplace order into per-line sales records
func convertOrderToRecords(order *orderResult) []sales.Record {
	records := make([]sales.Record, 0, len(order.OrderItems))
	for _, line := range order.OrderItems {
		sku := line.Item.SellerSKU
		if sku == "" {
			sku = line.Item.SellerCustomField
		}
		records = append(records, sales.Record{
			OrderID:   strconv.FormatInt(order.ID, 10),
			ListingID: line.Item.ID,
			SKU:       sku,
			OrderDate: order.DateCreated,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return records
}
