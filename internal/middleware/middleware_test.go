package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	app_errors "shramsetu/internal/errors"
	"shramsetu/internal/response"
	"shramsetu/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testKey = "test-auth-key-minimum-16-chars"

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(Auth(types.AuthConfig{Key: testKey}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/sessions", func(c *gin.Context) { response.Success(c, nil) })
	return r
}

func TestAuth_Unauthorized(t *testing.T) {
	t.Parallel()
	r := authRouter()

	tests := []struct {
		name   string
		header http.Header
		target string
	}{
		{"no credentials", nil, "/api/sessions"},
		{"wrong bearer token", http.Header{"Authorization": {"Bearer wrong"}}, "/api/sessions"},
		{"wrong api key header", http.Header{"X-Api-Key": {"wrong"}}, "/api/sessions"},
		{"wrong query key", nil, "/api/sessions?key=wrong"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, vs := range tt.header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuth_AcceptedCredentials(t *testing.T) {
	t.Parallel()
	r := authRouter()

	tests := []struct {
		name    string
		prepare func(*http.Request)
		target  string
	}{
		{"bearer token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+testKey) }, "/api/sessions"},
		{"x-api-key header", func(req *http.Request) { req.Header.Set("X-Api-Key", testKey) }, "/api/sessions"},
		{"query key", func(*http.Request) {}, "/api/sessions?key=" + testKey},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestAuth_HealthBypassesAuth(t *testing.T) {
	t.Parallel()
	r := authRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(CORS(types.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"*"},
	}))
	r.GET("/api/sessions", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "https://portal.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_ExplicitOriginsWithCredentials(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(CORS(types.CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"https://portal.example"},
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://portal.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://portal.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Vary"), "Origin")

	// An origin outside the allowlist gets no CORS headers.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Disabled(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(CORS(types.CORSConfig{Enabled: false, AllowedOrigins: []string{"*"}}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://portal.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestErrorHandler_MapsAPIError(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(c *gin.Context) {
		c.Error(app_errors.ErrSessionNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_NOT_FOUND")
}

func TestErrorHandler_UnknownErrorBecomesInternal(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(c *gin.Context) {
		c.Error(assert.AnError)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestRecovery(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimiter_RejectsBeyondCapacity(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	r := gin.New()
	r.Use(RateLimiter(types.PerformanceConfig{MaxConcurrentRequests: 1}))
	r.GET("/", func(c *gin.Context) {
		<-release
		c.Status(http.StatusOK)
	})

	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		close(started)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}()

	<-started
	// The second request races with the first grabbing the slot, so retry
	// until rejection is observed.
	var rejected bool
	for i := 0; i < 100 && !rejected; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		rejected = w.Code == http.StatusTooManyRequests
	}
	close(release)
	wg.Wait()
	assert.True(t, rejected)
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
}

func TestRequestBodySizeLimit(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(RequestBodySizeLimit(64))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, small)
	assert.Equal(t, http.StatusOK, w.Code)

	big := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 200)))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestExtractAuthKey_QueryKeyStripped(t *testing.T) {
	t.Parallel()

	var rawQuery string
	r := gin.New()
	r.Use(Auth(types.AuthConfig{Key: testKey}))
	r.GET("/api/thing", func(c *gin.Context) {
		rawQuery = c.Request.URL.RawQuery
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/thing?key="+testKey+"&status=ongoing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, rawQuery, testKey)
	assert.Contains(t, rawQuery, "status=ongoing")
}
