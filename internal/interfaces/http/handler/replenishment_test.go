package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/persistence"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplenishmentHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := newHandlerTestDB(t)
	repo := persistence.NewGormResultRepository(db)

	computedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.ReplaceAll(context.Background(), []replenish.Result{
		{
			ListingID:      "MLA1",
			Title:          "Bolsa kraft 20x30",
			MeanDaily:      2,
			StdDev:         0,
			Class:          replenish.ClassB,
			OnHand:         10,
			LeadTimeDays:   3,
			ReviewDays:     14,
			CycleDays:      17,
			SafetyStock:    0,
			RecommendedQty: 24,
			CoverageDays:   5,
			ComputedAt:     computedAt,
		},
		{
			ListingID:      "MLA2",
			Title:          "Bolsa kraft 30x40",
			MeanDaily:      0,
			Class:          replenish.ClassC,
			OnHand:         50,
			LeadTimeDays:   3,
			ReviewDays:     30,
			CycleDays:      33,
			RecommendedQty: 0,
			ComputedAt:     computedAt,
		},
	}))

	h := NewReplenishmentHandler(repo)

	engine := gin.New()
	engine.GET("/api/v1/replenishment", h.List)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/replenishment", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	results := resp.Data.([]interface{})
	require.Len(t, results, 2)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "MLA1", first["listing_id"])
	assert.Equal(t, "B", first["class"])
	assert.Equal(t, float64(24), first["recommended_qty"])

	second := results[1].(map[string]interface{})
	assert.Equal(t, "MLA2", second["listing_id"])
	assert.Equal(t, float64(0), second["recommended_qty"])
}

func TestReplenishmentHandler_ListEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := newHandlerTestDB(t)
	h := NewReplenishmentHandler(persistence.NewGormResultRepository(db))

	engine := gin.New()
	engine.GET("/api/v1/replenishment", h.List)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/replenishment", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	results := resp.Data.([]interface{})
	assert.Empty(t, results)
}
