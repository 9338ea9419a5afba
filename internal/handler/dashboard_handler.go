package handler

import (
	"time"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/models"
	"shramsetu/internal/response"
	"shramsetu/internal/scheduler"
	"shramsetu/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DashboardHandler serves aggregate engine state for the officials' UI.
type DashboardHandler struct {
	db        *gorm.DB
	store     store.Store
	scheduler *scheduler.VerificationScheduler
	executor  *scheduler.Executor
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db *gorm.DB, st store.Store, sched *scheduler.VerificationScheduler, exec *scheduler.Executor) *DashboardHandler {
	return &DashboardHandler{db: db, store: st, scheduler: sched, executor: exec}
}

// Stats reports scheduler occupancy, record counts, and executor counters.
// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats := gin.H{
		"active_schedules": h.scheduler.ActiveScheduleCount(),
		"pending_tasks":    h.scheduler.TotalPendingTasks(),
	}

	var sessionCount, recordCount, reviewCount int64
	if err := h.db.Model(&models.WorkSession{}).Count(&sessionCount).Error; err != nil {
		respondServiceError(c, app_errors.ParseDBError(err))
		return
	}
	if err := h.db.Model(&models.AttendanceRecord{}).Count(&recordCount).Error; err != nil {
		respondServiceError(c, app_errors.ParseDBError(err))
		return
	}
	if err := h.db.Model(&models.AttendanceRecord{}).
		Where("requires_manual_review = ?", true).Count(&reviewCount).Error; err != nil {
		respondServiceError(c, app_errors.ParseDBError(err))
		return
	}
	stats["sessions"] = sessionCount
	stats["attendance_records"] = recordCount
	stats["pending_reviews"] = reviewCount

	counters, err := h.store.HGetAll("stats:verifications")
	if err != nil {
		logrus.WithError(err).Warn("Failed to read verification counters")
		counters = map[string]string{}
	}
	stats["verifications"] = counters

	response.Success(c, stats)
}

// TriggerRequest identifies a verification to run out of band.
type TriggerRequest struct {
	WorkerID  string `json:"worker_id" binding:"required"`
	SessionID uint   `json:"session_id" binding:"required"`
}

// TriggerVerification runs one verification immediately, outside the armed
// schedule. Officials use it for spot checks.
// POST /api/verifications/trigger
func (h *DashboardHandler) TriggerVerification(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	if err := h.executor.PerformVerification(req.WorkerID, req.SessionID, time.Now()); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"worker_id": req.WorkerID, "session_id": req.SessionID, "triggered": true})
}
