package handler

import (
	"time"

	syncapp "github.com/bolsas-cloud/fullsync/internal/application/sync"
	"github.com/shopspring/decimal"
)

// SyncRequest is the body of POST /sync. Field names follow the seller
// tooling that drives this API.
type SyncRequest struct {
	Action string `json:"action" binding:"required"`
	// FechaDesde overrides the default lookback for sync-orders / sync-ads
	FechaDesde string `json:"fecha_desde,omitempty"`
	// Productos is the payload for update-prices
	Productos []PriceChangeRequest `json:"productos,omitempty" binding:"omitempty,dive"`
	// CambiosStock is the payload for update-stock
	CambiosStock []StockChangeRequest `json:"cambios_stock,omitempty" binding:"omitempty,dive"`
}

// PriceChangeRequest is one requested price change
type PriceChangeRequest struct {
	ID     string  `json:"id" binding:"required"`
	Precio float64 `json:"precio" binding:"required,gt=0"`
}

// StockChangeRequest is one requested available-quantity change
type StockChangeRequest struct {
	ID       string `json:"id" binding:"required"`
	Cantidad int    `json:"cantidad" binding:"min=0"`
}

// parseDateTime parses a datetime string in the formats clients send
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// toServiceRequest converts the API request into an application request
func (r *SyncRequest) toServiceRequest() (syncapp.Request, error) {
	req := syncapp.Request{
		Action: syncapp.Action(r.Action),
	}

	if r.FechaDesde != "" {
		since, err := parseDateTime(r.FechaDesde)
		if err != nil {
			return syncapp.Request{}, err
		}
		req.Since = &since
	}

	for _, p := range r.Productos {
		req.Prices = append(req.Prices, syncapp.PriceUpdate{
			ListingID: p.ID,
			Price:     decimal.NewFromFloat(p.Precio),
		})
	}

	for _, s := range r.CambiosStock {
		req.Stock = append(req.Stock, syncapp.StockUpdate{
			ListingID: s.ID,
			Quantity:  s.Cantidad,
		})
	}

	return req, nil
}
