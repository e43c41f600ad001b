package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single order line pulled from the marketplace. The history is
// append-only from the marketplace's perspective and is re-read in full within
// a lookback window on every sync run.
type Record struct {
	OrderID   string          `gorm:"type:varchar(40);primary_key"`
	ListingID string          `gorm:"type:varchar(40);primary_key;index"`
	SKU       string          `gorm:"type:varchar(100);index"`
	OrderDate time.Time       `gorm:"not null;index"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "sales_records"
}

// DemandKey returns the key used to join the record against listings:
// the SKU when present, otherwise the marketplace listing ID.
func (r *Record) DemandKey() string {
	if r.SKU != "" {
		return r.SKU
	}
	return r.ListingID
}

// Day returns the calendar day the order was placed on, truncated to UTC midnight
func (r *Record) Day() time.Time {
	y, m, d := r.OrderDate.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AdSpend is a per-day, per-campaign advertising cost figure
type AdSpend struct {
	Date       time.Time       `gorm:"primary_key"`
	CampaignID string          `gorm:"type:varchar(40);primary_key"`
	Cost       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AdSpend) TableName() string {
	return "ad_spend"
}
