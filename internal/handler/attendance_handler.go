package handler

import (
	"shramsetu/internal/attendance"
	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/response"

	"github.com/gin-gonic/gin"
)

// AttendanceHandler manages check-in/check-out and approval endpoints.
type AttendanceHandler struct {
	attendanceService *attendance.Service
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendanceService *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService}
}

// CheckRequest is the payload of check-in and check-out calls.
type CheckRequest struct {
	WorkerID  string               `json:"worker_id" binding:"required"`
	SessionID uint                 `json:"session_id" binding:"required"`
	Location  attendance.CheckPoint `json:"location" binding:"required"`
}

// ApprovalRequest is the payload of approve and reject calls.
type ApprovalRequest struct {
	WorkerID  string `json:"worker_id" binding:"required"`
	SessionID uint   `json:"session_id" binding:"required"`
	Approver  string `json:"approver" binding:"required"`
	Notes     string `json:"notes"`
}

// CheckIn creates the attendance record for a worker.
// POST /api/attendance/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	record, err := h.attendanceService.CheckIn(req.WorkerID, req.SessionID, req.Location)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, record)
}

// CheckOut finalizes the attendance record for a worker.
// POST /api/attendance/check-out
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	record, err := h.attendanceService.CheckOut(req.WorkerID, req.SessionID, req.Location)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, record)
}

// Record returns one attendance record with its ordered verifications.
// GET /api/attendance/:id/:workerId
func (h *AttendanceHandler) Record(c *gin.Context) {
	sessionID, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	workerID := c.Param("workerId")
	if workerID == "" {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "worker id is required"))
		return
	}
	record, err := h.attendanceService.Record(workerID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, record)
}

// SessionRecords lists all attendance records of one session.
// GET /api/attendance/:id
func (h *AttendanceHandler) SessionRecords(c *gin.Context) {
	sessionID, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	records, err := h.attendanceService.RecordsForSession(sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, records)
}

// Approve resolves a pending record as approved.
// POST /api/attendance/approve
func (h *AttendanceHandler) Approve(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	record, err := h.attendanceService.Approve(req.WorkerID, req.SessionID, req.Approver, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, record)
}

// Reject resolves a pending record as rejected.
// POST /api/attendance/reject
func (h *AttendanceHandler) Reject(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	record, err := h.attendanceService.Reject(req.WorkerID, req.SessionID, req.Approver, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, record)
}
