package replenish

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
)

// Config holds the tunable parameters of the replenishment computation
type Config struct {
	// LeadTimeDays is the fulfillment lead time Tt, operator-supplied
	LeadTimeDays int
	// ServiceLevel is the safety-stock multiplier Z (1.65 ~ 95% service level)
	ServiceLevel float64
	// EvalWindowDays is the trailing window used for demand estimation
	EvalWindowDays int
	// Policy converts observed daily quantities into a mean daily rate
	Policy DemandRatePolicy
}

// DefaultConfig returns the standard computation parameters
func DefaultConfig() Config {
	return Config{
		LeadTimeDays:   14,
		ServiceLevel:   1.65,
		EvalWindowDays: 30,
		Policy:         DaysWithSalesPolicy{},
	}
}

func (c Config) withDefaults() Config {
	if c.LeadTimeDays <= 0 {
		c.LeadTimeDays = DefaultConfig().LeadTimeDays
	}
	if c.ServiceLevel <= 0 {
		c.ServiceLevel = DefaultConfig().ServiceLevel
	}
	if c.EvalWindowDays <= 0 {
		c.EvalWindowDays = DefaultConfig().EvalWindowDays
	}
	if c.Policy == nil {
		c.Policy = DaysWithSalesPolicy{}
	}
	return c
}

// ResultRepository persists computed recommendations
type ResultRepository interface {
	// ReplaceAll clears the result table and writes the given results in a
	// single transaction, so readers never observe a mix of two runs
	ReplaceAll(ctx context.Context, results []Result) error
	// FindAll returns the results of the last completed computation
	FindAll(ctx context.Context) ([]Result, error)
}

// Compute derives a replenishment recommendation per listing from current
// stock and historical sales. It is pure and deterministic: identical inputs
// (including now) always yield identical results, ordered by listing ID.
func Compute(listings []catalog.Listing, history []sales.Record, cfg Config, now time.Time) []Result {
	cfg = cfg.withDefaults()
	windowStart := dayOf(now).AddDate(0, 0, -cfg.EvalWindowDays)

	// Bucket quantities by demand key and calendar day. Days without sales
	// never appear in the buckets, which is what lets the default policy
	// divide by days-with-data.
	buckets := make(map[string]map[time.Time]float64)
	for _, rec := range history {
		day := rec.Day()
		if day.Before(windowStart) || day.After(dayOf(now)) {
			continue
		}
		key := rec.DemandKey()
		if buckets[key] == nil {
			buckets[key] = make(map[time.Time]float64)
		}
		buckets[key][day] += float64(rec.Quantity)
	}

	results := make([]Result, 0, len(listings))
	for _, l := range listings {
		daily := sortedValues(buckets[l.DemandKey()])

		v := cfg.Policy.Rate(daily, cfg.EvalWindowDays)
		sigma := sampleStdDev(daily)
		class := Classify(v)
		cycle := class.ReviewDays() + cfg.LeadTimeDays
		ss := cfg.ServiceLevel * sigma * math.Sqrt(float64(cycle))

		qty := int(math.Round(v*float64(cycle) + ss - float64(l.AvailableQuantity)))
		if qty < 0 {
			qty = 0
		}

		coverage := 0.0
		if v > 0 {
			coverage = float64(l.AvailableQuantity) / v
		}

		results = append(results, Result{
			ListingID:      l.ListingID,
			Title:          l.Title,
			MeanDaily:      v,
			StdDev:         sigma,
			Class:          class,
			OnHand:         l.AvailableQuantity,
			LeadTimeDays:   cfg.LeadTimeDays,
			ReviewDays:     class.ReviewDays(),
			CycleDays:      cycle,
			SafetyStock:    ss,
			RecommendedQty: qty,
			CoverageDays:   coverage,
			ComputedAt:     now,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ListingID < results[j].ListingID
	})
	return results
}

// sampleStdDev computes the sample standard deviation (n-1 denominator).
// Defined as 0 when fewer than 2 observations exist.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// sortedValues extracts bucket values ordered by day so the computation is
// deterministic regardless of map iteration order
func sortedValues(bucket map[time.Time]float64) []float64 {
	if len(bucket) == 0 {
		return nil
	}
	days := make([]time.Time, 0, len(bucket))
	for d := range bucket {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = bucket[d]
	}
	return values
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
