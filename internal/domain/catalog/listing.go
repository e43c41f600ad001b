package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrListingIDRequired indicates a listing without a marketplace ID
	ErrListingIDRequired = errors.New("catalog: listing ID is required")
	// ErrListingTitleRequired indicates a listing without a title
	ErrListingTitleRequired = errors.New("catalog: listing title is required")
)

// ListingStatus represents the publication status of a listing on the marketplace
type ListingStatus string

const (
	ListingStatusActive      ListingStatus = "active"
	ListingStatusPaused      ListingStatus = "paused"
	ListingStatusClosed      ListingStatus = "closed"
	ListingStatusUnderReview ListingStatus = "under_review"
)

// Listing represents a single marketplace publication owned by the seller
// account. Identity is the marketplace listing ID; SKU is a secondary,
// sometimes-missing key used to join against sales history.
type Listing struct {
	ListingID         string          `gorm:"type:varchar(40);primary_key"`
	SKU               string          `gorm:"type:varchar(100);index"`
	Title             string          `gorm:"type:varchar(255);not null"`
	InventoryID       string          `gorm:"type:varchar(40);index"` // fulfillment inventory ID, may be missing on first fetch
	Price             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CategoryID        string          `gorm:"type:varchar(40)"`
	Status            ListingStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	LogisticType      string          `gorm:"type:varchar(30)"`
	FreeShipping      bool            `gorm:"not null;default:false"`
	AvailableQuantity int             `gorm:"not null;default:0"` // on-hand at fulfillment
	SalesQuantity     int             `gorm:"not null;default:0"` // total sold over the trailing sales window
	Visits            int             `gorm:"not null;default:0"` // upstream metric disabled, always 0
	Conversions       int             `gorm:"not null;default:0"` // upstream metric disabled, always 0
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Listing) TableName() string {
	return "listings"
}

// NewListing creates a listing with the minimum fields the marketplace guarantees
func NewListing(listingID, title string) (*Listing, error) {
	if strings.TrimSpace(listingID) == "" {
		return nil, ErrListingIDRequired
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrListingTitleRequired
	}
	return &Listing{
		ListingID: listingID,
		Title:     title,
		Price:     decimal.Zero,
		Status:    ListingStatusActive,
	}, nil
}

// DemandKey returns the key used to join the listing against sales history:
// the SKU when present, otherwise the marketplace listing ID.
func (l *Listing) DemandKey() string {
	if l.SKU != "" {
		return l.SKU
	}
	return l.ListingID
}

// HasInventoryID reports whether the fulfillment inventory ID has been resolved
func (l *Listing) HasInventoryID() bool {
	return l.InventoryID != ""
}
