package handler

import (
	"github.com/gin-gonic/gin"

	syncapp "github.com/bolsas-cloud/fullsync/internal/application/sync"
	"github.com/bolsas-cloud/fullsync/internal/interfaces/http/middleware"
)

// SyncHandler handles on-demand synchronization API endpoints
type SyncHandler struct {
	BaseHandler
	syncService *syncapp.Service
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *syncapp.Service) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

// Execute dispatches a sync action
// POST /sync
func (h *SyncHandler) Execute(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	serviceReq, err := req.toServiceRequest()
	if err != nil {
		h.BadRequest(c, "Invalid fecha_desde: "+err.Error())
		return
	}

	result, err := h.syncService.Execute(c.Request.Context(), serviceReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
