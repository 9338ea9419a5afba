package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	app_errors "shramsetu/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSuccess(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, map[string]any{"session_id": 7})

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, int64(0), gjson.Get(body, "code").Int())
	assert.Equal(t, "success", gjson.Get(body, "message").String())
	assert.Equal(t, int64(7), gjson.Get(body, "data.session_id").Int())
}

func TestSuccess_NilDataOmitted(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "data").Exists())
}

func TestError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, app_errors.ErrSessionNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := w.Body.String()
	assert.Equal(t, "SESSION_NOT_FOUND", gjson.Get(body, "code").String())
	assert.Equal(t, "Work session not found", gjson.Get(body, "message").String())
}
