package root

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHeartbeat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := gin.New()
	r.HEAD("/api/heartbeat", Heartbeat(started))
	r.GET("/api/heartbeat", Heartbeat(started))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/api/heartbeat", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/heartbeat", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","started":"2026-01-02T03:04:05Z"}`, w.Body.String())
}
