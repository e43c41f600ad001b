package settings

import (
	"context"
	"strconv"
	"time"
)

// Setting is a single operator-supplied or pipeline-maintained value
type Setting struct {
	Key       string    `gorm:"type:varchar(60);primary_key"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Setting) TableName() string {
	return "settings"
}

// Well-known setting keys
const (
	// KeyLeadTimeDays is the operator-configured fulfillment lead time Tt
	KeyLeadTimeDays = "lead_time_days"
	// KeySellerID is the marketplace seller ID, auto-resolved on first use
	KeySellerID = "seller_id"
	// KeyLastCompletion is the timestamp of the last successful pipeline run,
	// the authoritative signal for detecting a stalled chain
	KeyLastCompletion = "last_completion"
)

// Store persists settings
type Store interface {
	// Get returns the value for the key and whether it exists
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes or overwrites the value for the key
	Set(ctx context.Context, key, value string) error
}

// LeadTimeDays returns the configured lead time, falling back to the default
// when the setting is missing or malformed. A broken setting is a config
// error: documented fallback, not failure.
func LeadTimeDays(ctx context.Context, s Store, fallback int) int {
	raw, ok, err := s.Get(ctx, KeyLeadTimeDays)
	if err != nil || !ok {
		return fallback
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return fallback
	}
	return days
}

// RecordSellerID stores the auto-resolved marketplace seller id
func RecordSellerID(ctx context.Context, s Store, id string) error {
	return s.Set(ctx, KeySellerID, id)
}

// SellerID returns the persisted seller id, or empty when it was never resolved
func SellerID(ctx context.Context, s Store) (string, error) {
	raw, _, err := s.Get(ctx, KeySellerID)
	return raw, err
}

// RecordCompletion stores the last successful pipeline completion time
func RecordCompletion(ctx context.Context, s Store, at time.Time) error {
	return s.Set(ctx, KeyLastCompletion, at.UTC().Format(time.RFC3339))
}

// LastCompletion returns the last successful pipeline completion time, or the
// zero time when no run has ever completed
func LastCompletion(ctx context.Context, s Store) (time.Time, error) {
	raw, ok, err := s.Get(ctx, KeyLastCompletion)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}
