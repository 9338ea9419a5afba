package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shramsetu/internal/attendance"
	"shramsetu/internal/keylock"
	"shramsetu/internal/locationcache"
	"shramsetu/internal/models"
	"shramsetu/internal/notify"
	"shramsetu/internal/schedule"
	"shramsetu/internal/scheduler"
	"shramsetu/internal/services"
	"shramsetu/internal/store"
	"shramsetu/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testConfig struct{}

func (testConfig) IsMaster() bool                                { return true }
func (testConfig) GetAuthConfig() types.AuthConfig               { return types.AuthConfig{} }
func (testConfig) GetCORSConfig() types.CORSConfig               { return types.CORSConfig{} }
func (testConfig) GetPerformanceConfig() types.PerformanceConfig { return types.PerformanceConfig{} }
func (testConfig) GetLogConfig() types.LogConfig                 { return types.LogConfig{} }
func (testConfig) GetDatabaseConfig() types.DatabaseConfig       { return types.DatabaseConfig{} }
func (testConfig) GetEffectiveServerConfig() types.ServerConfig  { return types.ServerConfig{} }
func (testConfig) GetRedisDSN() string                           { return "" }
func (testConfig) Validate() error                               { return nil }
func (testConfig) DisplayServerConfig()                          {}
func (testConfig) GetWageConfig() types.WageConfig {
	return types.WageConfig{DefaultBaseDailyWage: 350}
}
func (testConfig) GetVerificationConfig() types.VerificationConfig {
	return types.VerificationConfig{
		CheckinGraceMinutes:         15,
		LocationStalenessMinutes:    5,
		SessionCleanupBufferMinutes: 10,
		LocationSampleTTLHours:      24,
	}
}

type noopNotifier struct{}

func (noopNotifier) RequestLocationUpdate(string, uint)                  {}
func (noopNotifier) SendCriticalAlert(string, uint, notify.AlertDetails) {}

// apiFixture wires the full handler stack against an in-memory database and
// store, without auth middleware.
type apiFixture struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.WorkSession{},
		&models.AttendanceRecord{},
		&models.VerificationOutcome{},
	))

	st := store.NewMemoryStore()
	t.Cleanup(func() { st.Close() })

	locks := keylock.NewKeyedMutex()
	cache := locationcache.NewCache(st, time.Hour)
	executor := scheduler.NewExecutor(db, cache, noopNotifier{}, st, locks, 5*time.Minute)
	sched := scheduler.NewVerificationScheduler(db, schedule.NewGenerator(rand.NewSource(1)), executor, cache, testConfig{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		sched.Stop(ctx)
	})

	sessionService := services.NewSessionService(db, sched)
	attendanceService := attendance.NewService(db, locks, testConfig{})

	commonHandler := NewCommonHandler()
	sessionHandler := NewSessionHandler(sessionService)
	attendanceHandler := NewAttendanceHandler(attendanceService)
	locationHandler := NewLocationHandler(sched)
	dashboardHandler := NewDashboardHandler(db, st, sched, executor)

	engine := gin.New()
	engine.GET("/health", commonHandler.Health)
	api := engine.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Create)
			sessions.GET("", sessionHandler.List)
			sessions.POST("/import", sessionHandler.Import)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.PUT("/:id", sessionHandler.Update)
			sessions.POST("/:id/start-scheduling", sessionHandler.StartScheduling)
			sessions.POST("/:id/stop-scheduling", sessionHandler.StopScheduling)
			sessions.POST("/:id/cancel", sessionHandler.Cancel)
			sessions.GET("/:id/export", sessionHandler.Export)
		}
		att := api.Group("/attendance")
		{
			att.POST("/check-in", attendanceHandler.CheckIn)
			att.POST("/check-out", attendanceHandler.CheckOut)
			att.POST("/approve", attendanceHandler.Approve)
			att.POST("/reject", attendanceHandler.Reject)
			att.GET("/:id", attendanceHandler.SessionRecords)
			att.GET("/:id/:workerId", attendanceHandler.Record)
		}
		api.POST("/location/report", locationHandler.Report)
		api.POST("/verifications/trigger", dashboardHandler.TriggerVerification)
		api.GET("/dashboard/stats", dashboardHandler.Stats)
	}

	return &apiFixture{engine: engine, db: db}
}

func (f *apiFixture) request(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) createSession(t *testing.T) uint {
	t.Helper()
	start := time.Now().Add(time.Hour).Truncate(time.Second)
	w := f.request(t, http.MethodPost, "/api/sessions", gin.H{
		"site_latitude":       28.6139,
		"site_longitude":      77.2090,
		"geofence_radius_m":   100,
		"site_address":        "road repair site, sector 12",
		"start_time":          start.Format(time.RFC3339),
		"end_time":            start.Add(9 * time.Hour).Format(time.RFC3339),
		"assigned_worker_ids": []string{"worker-1", "worker-2"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := gjson.Get(w.Body.String(), "data.id").Uint()
	require.NotZero(t, id)
	return uint(id)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", gjson.Get(w.Body.String(), "status").String())
	assert.True(t, gjson.Get(w.Body.String(), "version").Exists())
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	id := f.createSession(t)

	w := f.request(t, http.MethodGet, fmt.Sprintf("/api/sessions/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "scheduled", gjson.Get(w.Body.String(), "data.status").String())
	assert.Equal(t, int64(15), gjson.Get(w.Body.String(), "data.min_interval_minutes").Int())

	w = f.request(t, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "data").Array(), 1)

	w = f.request(t, http.MethodGet, "/api/sessions/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.request(t, http.MethodGet, "/api/sessions/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionScheduleLifecycle(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	id := f.createSession(t)

	w := f.request(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/start-scheduling", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Arming twice is a conflict.
	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/start-scheduling", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SCHEDULING_ACTIVE", gjson.Get(w.Body.String(), "code").String())

	w = f.request(t, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.active_schedules").Int())
	assert.Greater(t, gjson.Get(w.Body.String(), "data.pending_tasks").Int(), int64(0))

	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/stop-scheduling", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/sessions/%d/cancel", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", gjson.Get(w.Body.String(), "data.status").String())
}

func TestAttendanceFlow(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	id := f.createSession(t)

	checkin := gin.H{
		"worker_id":  "worker-1",
		"session_id": id,
		"location":   gin.H{"latitude": 28.6139, "longitude": 77.2090, "accuracy": 8},
	}
	w := f.request(t, http.MethodPost, "/api/attendance/check-in", checkin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, gjson.Get(w.Body.String(), "data.checkin_within_geofence").Bool())

	w = f.request(t, http.MethodPost, "/api/attendance/check-in", checkin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_CHECKED_IN", gjson.Get(w.Body.String(), "code").String())

	// Fresh location inside the geofence, then a spot-check verification.
	w = f.request(t, http.MethodPost, "/api/location/report", gin.H{
		"worker_id": "worker-1",
		"latitude":  28.6139,
		"longitude": 77.2090,
		"accuracy":  8,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodPost, "/api/verifications/trigger", gin.H{
		"worker_id":  "worker-1",
		"session_id": id,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.request(t, http.MethodPost, "/api/attendance/check-out", checkin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.True(t, gjson.Get(body, "data.finalized").Bool())
	assert.Equal(t, int64(1), gjson.Get(body, "data.total_verifications").Int())
	assert.Equal(t, 100.0, gjson.Get(body, "data.work_percentage").Float())
	assert.Equal(t, "low", gjson.Get(body, "data.risk_level").String())
	assert.Equal(t, 350.0, gjson.Get(body, "data.final_wage").Float())

	w = f.request(t, http.MethodGet, fmt.Sprintf("/api/attendance/%d/worker-1", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "data.verifications").Array(), 1)

	w = f.request(t, http.MethodGet, fmt.Sprintf("/api/attendance/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "data").Array(), 1)

	w = f.request(t, http.MethodPost, "/api/attendance/approve", gin.H{
		"worker_id":  "worker-1",
		"session_id": id,
		"approver":   "official-7",
		"notes":      "verified on site",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", gjson.Get(w.Body.String(), "data.approval_status").String())
}

func TestAttendance_CheckOutWithoutCheckIn(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	id := f.createSession(t)

	w := f.request(t, http.MethodPost, "/api/attendance/check-out", gin.H{
		"worker_id":  "worker-1",
		"session_id": id,
		"location":   gin.H{"latitude": 28.6139, "longitude": 77.2090},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_CHECKED_IN", gjson.Get(w.Body.String(), "code").String())
}

func TestAttendance_InvalidPayload(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.request(t, http.MethodPost, "/api/attendance/check-in", gin.H{
		"session_id": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", gjson.Get(w.Body.String(), "code").String())
}

func TestLocationReport_RejectsInvalidSample(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.request(t, http.MethodPost, "/api/location/report", gin.H{
		"worker_id": "worker-1",
		"latitude":  95.0,
		"longitude": 77.2090,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionExportImport(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	id := f.createSession(t)

	w := f.request(t, http.MethodGet, fmt.Sprintf("/api/sessions/%d/export", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "session-export.json")
	envelope := w.Body.Bytes()
	assert.Equal(t, int64(1), gjson.GetBytes(envelope, "version").Int())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/import", bytes.NewReader(envelope))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	imported := gjson.Get(rec.Body.String(), "data.id").Uint()
	assert.NotZero(t, imported)
	assert.NotEqual(t, uint64(id), imported)
}

func TestDashboardStats(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	f.createSession(t)

	w := f.request(t, http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, int64(1), gjson.Get(body, "data.sessions").Int())
	assert.Equal(t, int64(0), gjson.Get(body, "data.attendance_records").Int())
	assert.Equal(t, int64(0), gjson.Get(body, "data.pending_reviews").Int())
	assert.True(t, gjson.Get(body, "data.verifications").Exists())
}

func TestTriggerVerification_UnknownSession(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	w := f.request(t, http.MethodPost, "/api/verifications/trigger", gin.H{
		"worker_id":  "worker-1",
		"session_id": 999,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
