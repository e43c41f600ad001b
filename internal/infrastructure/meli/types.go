package meli

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
)

var (
	// ErrUnauthorized indicates a missing or expired credential. Non-retryable:
	// the caller must abort without a retry storm. Wraps the pipeline's auth
	// sentinel so the orchestrator can halt the chain on errors.Is alone.
	ErrUnauthorized = fmt.Errorf("meli: unauthorized: %w", pipeline.ErrAuthFailed)
	// ErrUnavailable indicates a transient network failure, retryable with backoff
	ErrUnavailable = errors.New("meli: marketplace temporarily unavailable")
	// ErrRateLimited indicates the marketplace throttled the request
	ErrRateLimited = errors.New("meli: rate limited")
	// ErrRequestFailed indicates a non-retryable HTTP error from the marketplace
	ErrRequestFailed = errors.New("meli: request failed")
	// ErrInvalidResponse indicates an unexpected response shape. The parse
	// fails closed rather than guessing at fields.
	ErrInvalidResponse = errors.New("meli: invalid response")
	// ErrBatchTooLarge indicates more ids than the multiget endpoint accepts
	ErrBatchTooLarge = errors.New("meli: batch exceeds 20 ids")
)

// userResponse is the users/me payload
type userResponse struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	SiteID   string `json:"site_id"`
}

// scanPage is one page of the scan-type item search
type scanPage struct {
	ScrollID string   `json:"scroll_id"`
	Results  []string `json:"results"`
	Paging   struct {
		Total int `json:"total"`
	} `json:"paging"`
}

// itemBody is the marketplace's representation of a listing
type itemBody struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Status            string          `json:"status"`
	Price             decimal.Decimal `json:"price"`
	CategoryID        string          `json:"category_id"`
	InventoryID       string          `json:"inventory_id"`
	AvailableQuantity int             `json:"available_quantity"`
	SellerCustomField string          `json:"seller_custom_field"`
	Shipping          struct {
		LogisticType string `json:"logistic_type"`
		FreeShipping bool   `json:"free_shipping"`
	} `json:"shipping"`
	Variations []itemVariation `json:"variations"`
	Attributes []itemAttribute `json:"attributes"`
}

// itemVariation is one variation of a listing; fulfillment inventory ids often
// live here rather than on the parent item
type itemVariation struct {
	ID                int64           `json:"id"`
	InventoryID       string          `json:"inventory_id"`
	SellerCustomField string          `json:"seller_custom_field"`
	Attributes        []itemAttribute `json:"attribute_combinations"`
}

type itemAttribute struct {
	ID        string `json:"id"`
	ValueName string `json:"value_name"`
}

// SKU returns the seller-assigned SKU for the item, which may be absent
func (b *itemBody) SKU() string {
	if b.SellerCustomField != "" {
		return b.SellerCustomField
	}
	for _, attr := range b.Attributes {
		if attr.ID == "SELLER_SKU" {
			return attr.ValueName
		}
	}
	return ""
}

// multigetEntry is one element of the multiget response: per-id status plus body
type multigetEntry struct {
	Code int      `json:"code"`
	Body itemBody `json:"body"`
}

// FulfillmentDetails is the deep per-item lookup used to backfill inventory ids
type FulfillmentDetails struct {
	InventoryID string
	Title       string
	// VariationInventoryIDs holds inventory ids found on variations when the
	// parent item carries none
	VariationInventoryIDs []string
}

// FulfillmentStock is the warehouse stock snapshot for one inventory id
type FulfillmentStock struct {
	InventoryID       string `json:"inventory_id"`
	AvailableQuantity int    `json:"available_quantity"`
	NotAvailable      int    `json:"not_available_quantity"`
}

// orderSearchPage is one page of the order search
type orderSearchPage struct {
	Results []orderResult `json:"results"`
	Paging  struct {
		Total  int `json:"total"`
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	} `json:"paging"`
}

type orderResult struct {
	ID          int64       `json:"id"`
	DateCreated time.Time   `json:"date_created"`
	Status      string      `json:"status"`
	OrderItems  []orderItem `json:"order_items"`
}

type orderItem struct {
	Item struct {
		ID                string `json:"id"`
		SellerCustomField string `json:"seller_custom_field"`
		SellerSKU         string `json:"seller_sku"`
	} `json:"item"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// adMetricsResponse is the advertising cost report
type adMetricsResponse struct {
	Results []adMetricsRow `json:"results"`
}

type adMetricsRow struct {
	Date       string          `json:"date"`
	CampaignID int64           `json:"campaign_id"`
	Cost       decimal.Decimal `json:"cost"`
}

// apiError is the marketplace's error body
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}
