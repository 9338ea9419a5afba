package handler

import (
	"io"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/models"
	"shramsetu/internal/response"
	"shramsetu/internal/services"

	"github.com/gin-gonic/gin"
)

// SessionHandler manages work session endpoints.
type SessionHandler struct {
	sessionService *services.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Create creates a work session.
// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var session models.WorkSession
	if err := c.ShouldBindJSON(&session); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	if err := h.sessionService.Create(&session); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, session)
}

// List lists sessions, optionally filtered by status and date query params.
// GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessionService.List(c.Query("status"), c.Query("date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, sessions)
}

// Get returns one session.
// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	session, err := h.sessionService.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, session)
}

// Update replaces the mutable fields of a scheduled session.
// PUT /api/sessions/:id
func (h *SessionHandler) Update(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	var updated models.WorkSession
	if err := c.ShouldBindJSON(&updated); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	session, err := h.sessionService.Update(id, &updated)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, session)
}

// StartScheduling arms the verification schedule for a session.
// POST /api/sessions/:id/start-scheduling
func (h *SessionHandler) StartScheduling(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.sessionService.StartScheduling(id); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"session_id": id, "scheduling": "started"})
}

// StopScheduling releases the armed schedule for a session.
// POST /api/sessions/:id/stop-scheduling
func (h *SessionHandler) StopScheduling(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	h.sessionService.StopScheduling(id)
	response.Success(c, gin.H{"session_id": id, "scheduling": "stopped"})
}

// Cancel cancels a session and releases its armed schedule.
// POST /api/sessions/:id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	session, err := h.sessionService.Cancel(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, session)
}

// Export streams a portable JSON envelope for one session.
// GET /api/sessions/:id/export
func (h *SessionHandler) Export(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	envelope, err := h.sessionService.Export(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=session-export.json")
	c.Data(200, "application/json", envelope)
}

// Import creates a fresh session from an export envelope.
// POST /api/sessions/import
func (h *SessionHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "failed to read import payload"))
		return
	}
	session, err := h.sessionService.Import(data)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, session)
}

// respondServiceError maps a service error onto the response envelope.
func respondServiceError(c *gin.Context, err error) {
	if apiErr, ok := err.(*app_errors.APIError); ok {
		response.Error(c, apiErr)
		return
	}
	response.Error(c, app_errors.NewAPIError(app_errors.ErrInternalServer, err.Error()))
}
