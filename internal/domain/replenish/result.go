package replenish

import "time"

// Class is the ABC demand classification of a listing
type Class string

const (
	ClassA Class = "A" // fast mover, V >= 5/day
	ClassB Class = "B" // 1 <= V < 5/day
	ClassC Class = "C" // slow or no movement
)

// ReviewDays returns the review frequency Fe for the class: how often the
// seller re-evaluates replenishment for listings of that class.
func (c Class) ReviewDays() int {
	switch c {
	case ClassA:
		return 7
	case ClassB:
		return 14
	default:
		return 30
	}
}

// Classify maps a mean daily demand rate to its ABC class
func Classify(meanDaily float64) Class {
	switch {
	case meanDaily >= 5:
		return ClassA
	case meanDaily >= 1:
		return ClassB
	default:
		return ClassC
	}
}

// Result is the replenishment recommendation for a single listing. The result
// table is recomputed fully on every run and always reflects exactly the last
// completed computation, never a mix of two runs.
type Result struct {
	ListingID      string    `gorm:"type:varchar(40);primary_key"`
	Title          string    `gorm:"type:varchar(255);not null"`
	MeanDaily      float64   `gorm:"not null"` // V
	StdDev         float64   `gorm:"not null"` // sigma
	Class          Class     `gorm:"type:varchar(1);not null"`
	OnHand         int       `gorm:"not null"`
	LeadTimeDays   int       `gorm:"not null"` // Tt
	ReviewDays     int       `gorm:"not null"` // Fe
	CycleDays      int       `gorm:"not null"` // L = Fe + Tt
	SafetyStock    float64   `gorm:"not null"` // Ss
	RecommendedQty int       `gorm:"not null"` // 0 means no shipment needed
	CoverageDays   float64   `gorm:"not null"` // days of stock left at current rate
	ComputedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Result) TableName() string {
	return "replenishment_results"
}
