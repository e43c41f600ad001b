package handler

import (
	"errors"
	"time"

	syncapp "github.com/bolsas-cloud/fullsync/internal/application/sync"
	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PipelineHandler handles pipeline control API endpoints
type PipelineHandler struct {
	BaseHandler
	orchestrator *syncapp.Orchestrator
}

// NewPipelineHandler creates a new PipelineHandler
func NewPipelineHandler(orchestrator *syncapp.Orchestrator) *PipelineHandler {
	return &PipelineHandler{
		orchestrator: orchestrator,
	}
}

// RunResponse represents a pipeline run in API responses
type RunResponse struct {
	ID                  string `json:"id"`
	CurrentStage        string `json:"current_stage"`
	Status              string `json:"status"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
	StartedAt           string `json:"started_at"`
	CompletedAt         string `json:"completed_at,omitempty"`
}

// PendingContinuationResponse represents a scheduled stage invocation
type PendingContinuationResponse struct {
	RunID  string `json:"run_id"`
	Stage  string `json:"stage"`
	FireAt string `json:"fire_at"`
}

// StatusResponse represents the pipeline status
type StatusResponse struct {
	LatestRun      *RunResponse                  `json:"latest_run,omitempty"`
	Pending        []PendingContinuationResponse `json:"pending"`
	LastCompletion string                        `json:"last_completion,omitempty"`
}

func toRunResponse(run *pipeline.Run) *RunResponse {
	if run == nil {
		return nil
	}
	resp := &RunResponse{
		ID:                  run.ID.String(),
		CurrentStage:        string(run.CurrentStage),
		Status:              string(run.Status),
		ConsecutiveFailures: run.ConsecutiveFailures,
		LastError:           run.LastError,
		StartedAt:           run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return resp
}

// TriggerRun starts a new pipeline run
// POST /pipeline/run
func (h *PipelineHandler) TriggerRun(c *gin.Context) {
	run, err := h.orchestrator.TriggerRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			h.Conflict(c, dto.ErrCodeRunInProgress, "A pipeline run is already in progress")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, toRunResponse(run))
}

// Status reports the pipeline's current state
// GET /pipeline/status
func (h *PipelineHandler) Status(c *gin.Context) {
	status, err := h.orchestrator.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := StatusResponse{
		LatestRun: toRunResponse(status.LatestRun),
		Pending:   make([]PendingContinuationResponse, 0, len(status.Pending)),
	}
	for _, cont := range status.Pending {
		resp.Pending = append(resp.Pending, PendingContinuationResponse{
			RunID:  cont.RunID.String(),
			Stage:  string(cont.Stage),
			FireAt: cont.FireAt.Format(time.RFC3339),
		})
	}
	if !status.LastCompletion.IsZero() {
		resp.LastCompletion = status.LastCompletion.Format(time.RFC3339)
	}

	h.Success(c, resp)
}
