package replenish

// DemandRatePolicy converts per-day observed quantities into a mean daily
// demand rate V. The denominator choice is deliberate and swappable: dividing
// by days-with-sales inflates the rate for sparse sellers relative to a
// naive window average.
type DemandRatePolicy interface {
	Name() string
	// Rate computes V from the quantities observed on days that had any sales
	// within a window of windowDays calendar days.
	Rate(dailyQuantities []float64, windowDays int) float64
}

// DaysWithSalesPolicy divides total quantity by the number of distinct days
// that had any sales. Days with zero sales never enter the denominator, so a
// listing selling 10 units on 2 of 30 days gets V=5, not V=0.67. This matches
// the historical behavior of the forecast and is the default.
type DaysWithSalesPolicy struct{}

func (DaysWithSalesPolicy) Name() string { return "days_with_sales" }

func (DaysWithSalesPolicy) Rate(dailyQuantities []float64, windowDays int) float64 {
	if len(dailyQuantities) == 0 {
		return 0
	}
	var total float64
	for _, q := range dailyQuantities {
		total += q
	}
	return total / float64(len(dailyQuantities))
}

// FullWindowPolicy divides total quantity by the full window length,
// counting silent days as zero-sales days.
type FullWindowPolicy struct{}

func (FullWindowPolicy) Name() string { return "full_window" }

func (FullWindowPolicy) Rate(dailyQuantities []float64, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	var total float64
	for _, q := range dailyQuantities {
		total += q
	}
	return total / float64(windowDays)
}
