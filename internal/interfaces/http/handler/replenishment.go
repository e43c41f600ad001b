package handler

import (
	"time"

	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
	"github.com/gin-gonic/gin"
)

// ReplenishmentHandler serves the current replenishment recommendations
type ReplenishmentHandler struct {
	BaseHandler
	results replenish.ResultRepository
}

// NewReplenishmentHandler creates a new ReplenishmentHandler
func NewReplenishmentHandler(results replenish.ResultRepository) *ReplenishmentHandler {
	return &ReplenishmentHandler{
		results: results,
	}
}

// ResultResponse represents one replenishment recommendation
type ResultResponse struct {
	ListingID      string  `json:"listing_id"`
	Title          string  `json:"title"`
	MeanDaily      float64 `json:"mean_daily"`
	StdDev         float64 `json:"std_dev"`
	Class          string  `json:"class"`
	OnHand         int     `json:"on_hand"`
	LeadTimeDays   int     `json:"lead_time_days"`
	ReviewDays     int     `json:"review_days"`
	CycleDays      int     `json:"cycle_days"`
	SafetyStock    float64 `json:"safety_stock"`
	RecommendedQty int     `json:"recommended_qty"`
	CoverageDays   float64 `json:"coverage_days"`
	ComputedAt     string  `json:"computed_at"`
}

// List returns the recommendations from the latest computation
// GET /replenishment
func (h *ReplenishmentHandler) List(c *gin.Context) {
	results, err := h.results.FindAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]ResultResponse, 0, len(results))
	for _, r := range results {
		resp = append(resp, ResultResponse{
			ListingID:      r.ListingID,
			Title:          r.Title,
			MeanDaily:      r.MeanDaily,
			StdDev:         r.StdDev,
			Class:          string(r.Class),
			OnHand:         r.OnHand,
			LeadTimeDays:   r.LeadTimeDays,
			ReviewDays:     r.ReviewDays,
			CycleDays:      r.CycleDays,
			SafetyStock:    r.SafetyStock,
			RecommendedQty: r.RecommendedQty,
			CoverageDays:   r.CoverageDays,
			ComputedAt:     r.ComputedAt.Format(time.RFC3339),
		})
	}

	h.Success(c, resp)
}
