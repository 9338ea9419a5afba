package handler

import (
	"time"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/models"
	"shramsetu/internal/response"
	"shramsetu/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// LocationHandler receives device location reports.
type LocationHandler struct {
	scheduler *scheduler.VerificationScheduler
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(sched *scheduler.VerificationScheduler) *LocationHandler {
	return &LocationHandler{scheduler: sched}
}

// LocationReportRequest is the device push payload. Timestamp defaults to
// the server clock when the device omits it.
type LocationReportRequest struct {
	WorkerID  string     `json:"worker_id" binding:"required"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Accuracy  float64    `json:"accuracy"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Report overwrites the cached location sample for a worker.
// POST /api/location/report
func (h *LocationHandler) Report(c *gin.Context) {
	var req LocationReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	timestamp := time.Now()
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	sample := &models.LocationSample{
		WorkerID:  req.WorkerID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: timestamp,
	}
	if err := h.scheduler.UpdateWorkerLocation(sample); err != nil {
		response.Error(c, app_errors.NewValidationError(err.Error()))
		return
	}
	response.Success(c, gin.H{"worker_id": req.WorkerID, "reported_at": timestamp})
}
