package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	syncapp "github.com/bolsas-cloud/fullsync/internal/application/sync"
	"github.com/bolsas-cloud/fullsync/internal/domain/catalog"
	"github.com/bolsas-cloud/fullsync/internal/domain/sales"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/cache"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/meli"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/persistence"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubGateway serves canned marketplace data for handler tests
type stubGateway struct {
	listingIDs []string
	listings   []catalog.Listing
	orders     []sales.Record
	adSpend    []sales.AdSpend
	fetchErr   error

	priceCalls map[string]decimal.Decimal
	stockCalls map[string]int
}

func newStubGateway() *stubGateway {
	return &stubGateway{
		priceCalls: make(map[string]decimal.Decimal),
		stockCalls: make(map[string]int),
	}
}

func (g *stubGateway) ResolveSellerID(ctx context.Context) (string, error) {
	return "123456", nil
}

func (g *stubGateway) FetchAllListingIDs(ctx context.Context) ([]string, error) {
	return g.listingIDs, nil
}

func (g *stubGateway) FetchListings(ctx context.Context, ids []string) ([]catalog.Listing, error) {
	return g.listings, nil
}

func (g *stubGateway) FetchFulfillmentDetails(ctx context.Context, listingID string) (*meli.FulfillmentDetails, error) {
	return &meli.FulfillmentDetails{}, nil
}

func (g *stubGateway) FetchFulfillmentStock(ctx context.Context, inventoryID string) (*meli.FulfillmentStock, error) {
	return &meli.FulfillmentStock{AvailableQuantity: 10}, nil
}

func (g *stubGateway) FetchOrders(ctx context.Context, from, to time.Time) ([]sales.Record, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return g.orders, nil
}

func (g *stubGateway) FetchAdSpend(ctx context.Context, from, to time.Time) ([]sales.AdSpend, error) {
	return g.adSpend, nil
}

func (g *stubGateway) UpdatePrice(ctx context.Context, listingID string, price decimal.Decimal) error {
	g.priceCalls[listingID] = price
	return nil
}

func (g *stubGateway) UpdateStock(ctx context.Context, listingID string, quantity int) error {
	g.stockCalls[listingID] = quantity
	return nil
}

var _ syncapp.Gateway = (*stubGateway)(nil)

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))
	return db
}

type syncFixture struct {
	engine  *gin.Engine
	gateway *stubGateway
	db      *gorm.DB
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerTestDB(t)
	gateway := newStubGateway()

	service := syncapp.NewService(
		gateway,
		persistence.NewGormListingRepository(db),
		persistence.NewGormRecordRepository(db),
		persistence.NewGormAdSpendRepository(db),
		persistence.NewGormResultRepository(db),
		persistence.NewGormSettingsStore(db),
		cache.NewInMemoryStore(),
		syncapp.DefaultServiceConfig(),
		zap.NewNop(),
	)

	h := NewSyncHandler(service)

	engine := gin.New()
	engine.POST("/api/v1/sync", h.Execute)

	return &syncFixture{engine: engine, gateway: gateway, db: db}
}

func (f *syncFixture) post(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(w, req)
	return w
}

func TestSyncHandler_SyncOrders(t *testing.T) {
	f := newSyncFixture(t)
	f.gateway.orders = []sales.Record{
		{OrderID: "ORD-1", ListingID: "MLA1", SKU: "SKU-1", OrderDate: time.Now().AddDate(0, 0, -1), Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
		{OrderID: "ORD-2", ListingID: "MLA2", SKU: "SKU-2", OrderDate: time.Now().AddDate(0, 0, -2), Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
	}

	w := f.post(t, SyncRequest{Action: "sync-orders"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "sync-orders", data["action"])
	assert.Equal(t, float64(2), data["processed"])

	var count int64
	require.NoError(t, f.db.Model(&sales.Record{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSyncHandler_SyncOrdersWithSince(t *testing.T) {
	f := newSyncFixture(t)

	w := f.post(t, SyncRequest{Action: "sync-orders", FechaDesde: "2026-08-01"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncHandler_UpdatePrices(t *testing.T) {
	f := newSyncFixture(t)

	w := f.post(t, SyncRequest{
		Action: "update-prices",
		Productos: []PriceChangeRequest{
			{ID: "MLA1", Precio: 1500.50},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.gateway.priceCalls["MLA1"].Equal(decimal.NewFromFloat(1500.50)))
}

func TestSyncHandler_UpdatePricesEmptyPayload(t *testing.T) {
	f := newSyncFixture(t)

	w := f.post(t, SyncRequest{Action: "update-prices"})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
}

func TestSyncHandler_UnknownAction(t *testing.T) {
	f := newSyncFixture(t)

	w := f.post(t, SyncRequest{Action: "sync-everything"})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeUnknownAction, resp.Error.Code)
}

func TestSyncHandler_CredentialFailure(t *testing.T) {
	f := newSyncFixture(t)
	f.gateway.fetchErr = meli.ErrUnauthorized

	w := f.post(t, SyncRequest{Action: "sync-orders"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
}

func TestSyncHandler_MalformedBody(t *testing.T) {
	f := newSyncFixture(t)
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_InvalidFechaDesde(t *testing.T) {
	f := newSyncFixture(t)

	w := f.post(t, SyncRequest{Action: "sync-orders", FechaDesde: "soon"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "fecha_desde")
}
