package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	syncapp "github.com/bolsas-cloud/fullsync/internal/application/sync"
	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/cache"
	"github.com/bolsas-cloud/fullsync/internal/infrastructure/persistence"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// noopStage satisfies pipeline.Stage for wiring tests
type noopStage struct {
	name pipeline.StageName
}

func (s *noopStage) Name() pipeline.StageName { return s.name }

func (s *noopStage) Execute(ctx context.Context, run *pipeline.Run) error { return nil }

func newPipelineFixture(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newHandlerTestDB(t)

	stages := []pipeline.Stage{
		&noopStage{name: pipeline.StageOrders},
		&noopStage{name: pipeline.StageAds},
		&noopStage{name: pipeline.StageInventoryIDs},
		&noopStage{name: pipeline.StageListings},
	}

	orchestrator := syncapp.NewOrchestrator(
		syncapp.DefaultOrchestratorConfig(),
		persistence.NewGormRunRepository(db),
		persistence.NewGormContinuationStore(db),
		cache.NewInMemoryLease(),
		persistence.NewGormSettingsStore(db),
		stages,
		zap.NewNop(),
	)

	h := NewPipelineHandler(orchestrator)

	engine := gin.New()
	engine.POST("/api/v1/pipeline/run", h.TriggerRun)
	engine.GET("/api/v1/pipeline/status", h.Status)

	return engine
}

func TestPipelineHandler_TriggerRun(t *testing.T) {
	engine := newPipelineFixture(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/pipeline/run", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, string(pipeline.StageOrders), data["current_stage"])
	assert.Equal(t, string(pipeline.RunStatusRunning), data["status"])
}

func TestPipelineHandler_TriggerRunWhileLeased(t *testing.T) {
	engine := newPipelineFixture(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/pipeline/run", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/pipeline/run", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeRunInProgress, resp.Error.Code)
}

func TestPipelineHandler_Status(t *testing.T) {
	engine := newPipelineFixture(t)

	// Before any run
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/pipeline/status", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Nil(t, data["latest_run"])

	// After triggering a run there is a latest run and exactly one pending
	// continuation targeting the entry stage
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/pipeline/run", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/pipeline/status", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data = resp.Data.(map[string]interface{})
	require.NotNil(t, data["latest_run"])

	pending := data["pending"].([]interface{})
	require.Len(t, pending, 1)
	first := pending[0].(map[string]interface{})
	assert.Equal(t, string(pipeline.StageOrders), first["stage"])
}
