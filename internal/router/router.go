// Package router wires the HTTP routes onto a gin engine.
package router

import (
	"shramsetu/internal/handler"
	"shramsetu/internal/middleware"
	"shramsetu/internal/types"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/dig"
)

// maxRequestBody bounds API payloads. Session imports are the largest
// expected body and stay well under this.
const maxRequestBody = 4 << 20

// RouterParams defines the handler dependencies of the router.
type RouterParams struct {
	dig.In
	ConfigManager     types.ConfigManager
	CommonHandler     *handler.CommonHandler
	SessionHandler    *handler.SessionHandler
	AttendanceHandler *handler.AttendanceHandler
	LocationHandler   *handler.LocationHandler
	DashboardHandler  *handler.DashboardHandler
}

// NewRouter builds the gin engine with the full middleware chain and routes.
func NewRouter(params RouterParams) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Register global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger(params.ConfigManager.GetLogConfig()))
	router.Use(middleware.CORS(params.ConfigManager.GetCORSConfig()))
	router.Use(middleware.RateLimiter(params.ConfigManager.GetPerformanceConfig()))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestBodySizeLimit(maxRequestBody))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerSystemRoutes(router, params)
	registerAPIRoutes(router, params)

	return router
}

// registerSystemRoutes registers system-level routes
func registerSystemRoutes(router *gin.Engine, params RouterParams) {
	router.GET("/health", params.CommonHandler.Health)
}

// registerAPIRoutes registers the authenticated API routes
func registerAPIRoutes(router *gin.Engine, params RouterParams) {
	api := router.Group("/api")
	api.Use(middleware.Auth(params.ConfigManager.GetAuthConfig()))

	sessions := api.Group("/sessions")
	{
		sessions.POST("", params.SessionHandler.Create)
		sessions.GET("", params.SessionHandler.List)
		sessions.POST("/import", params.SessionHandler.Import)
		sessions.GET("/:id", params.SessionHandler.Get)
		sessions.PUT("/:id", params.SessionHandler.Update)
		sessions.POST("/:id/start-scheduling", params.SessionHandler.StartScheduling)
		sessions.POST("/:id/stop-scheduling", params.SessionHandler.StopScheduling)
		sessions.POST("/:id/cancel", params.SessionHandler.Cancel)
		sessions.GET("/:id/export", params.SessionHandler.Export)
	}

	attendanceRoutes := api.Group("/attendance")
	{
		attendanceRoutes.POST("/check-in", params.AttendanceHandler.CheckIn)
		attendanceRoutes.POST("/check-out", params.AttendanceHandler.CheckOut)
		attendanceRoutes.POST("/approve", params.AttendanceHandler.Approve)
		attendanceRoutes.POST("/reject", params.AttendanceHandler.Reject)
		attendanceRoutes.GET("/:id", params.AttendanceHandler.SessionRecords)
		attendanceRoutes.GET("/:id/:workerId", params.AttendanceHandler.Record)
	}

	api.POST("/location/report", params.LocationHandler.Report)
	api.POST("/verifications/trigger", params.DashboardHandler.TriggerVerification)
	api.GET("/dashboard/stats", params.DashboardHandler.Stats)
}
