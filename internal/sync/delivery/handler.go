package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolsync-backend/internal/sync/usecase"
)

// SyncHandler exposes the sync engine and scheduler settings over HTTP
type SyncHandler struct {
	syncUsecase usecase.SyncUsecase
}

func NewSyncHandler(syncUsecase usecase.SyncUsecase) *SyncHandler {
	return &SyncHandler{syncUsecase: syncUsecase}
}

// StartSync handles POST /api/sync
func (h *SyncHandler) StartSync(c *gin.Context) {
	userID := c.GetString("userID")

	if !h.syncUsecase.StartSync(userID) {
		c.JSON(http.StatusConflict, gin.H{"error": "A sync is already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Sync started"})
}

// GetStatus handles GET /api/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	userID := c.GetString("userID")
	c.JSON(http.StatusOK, h.syncUsecase.Status(userID))
}

// CancelSync handles POST /api/sync/cancel
func (h *SyncHandler) CancelSync(c *gin.Context) {
	userID := c.GetString("userID")

	if !h.syncUsecase.IsRunning(userID) {
		c.JSON(http.StatusOK, gin.H{"message": "No sync in progress"})
		return
	}
	h.syncUsecase.CancelSync(userID)
	c.JSON(http.StatusOK, gin.H{"message": "Cancellation requested"})
}

// GetHistory handles GET /api/sync/history
func (h *SyncHandler) GetHistory(c *gin.Context) {
	userID := c.GetString("userID")

	history := h.syncUsecase.History(userID)
	if history == nil {
		history = []usecase.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// GetSchedule handles GET /api/sync/schedule
func (h *SyncHandler) GetSchedule(c *gin.Context) {
	userID := c.GetString("userID")

	state, err := h.syncUsecase.GetSchedule(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load schedule"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// UpdateSchedule handles PUT /api/sync/schedule
func (h *SyncHandler) UpdateSchedule(c *gin.Context) {
	userID := c.GetString("userID")

	var req usecase.ScheduleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.syncUsecase.UpdateSchedule(userID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}
