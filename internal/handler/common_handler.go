// Package handler exposes the HTTP surface of the attendance engine.
package handler

import (
	"strconv"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/response"
	"shramsetu/internal/version"

	"github.com/gin-gonic/gin"
)

// CommonHandler handles common, non-grouped requests.
type CommonHandler struct{}

// NewCommonHandler creates a new CommonHandler.
func NewCommonHandler() *CommonHandler {
	return &CommonHandler{}
}

// Health reports process liveness.
// GET /health
func (h *CommonHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "healthy",
		"version": version.Version,
	})
}

// sessionIDParam parses the :id path parameter. A malformed id reports
// ErrBadRequest and returns false.
func sessionIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrBadRequest, "invalid session id"))
		return 0, false
	}
	return uint(id), true
}
