package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/metrics"
	"github.com/coah80/appxzip/internal/routes"
)

func TestHealth(t *testing.T) {
	h := Router(Options{
		Status: routes.Status{
			Platform: "telegram",
			Started:  time.Now().Add(-time.Minute),
			Users:    func() int { return 3 },
		},
		Logger: logging.Discard(),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "telegram", body["platform"])
	assert.Equal(t, config.Version, body["version"])
	assert.EqualValues(t, 3, body["users"])
	assert.GreaterOrEqual(t, body["uptimeSec"], float64(59))
}

func TestMetricsMountedOnlyWhenSet(t *testing.T) {
	without := Router(Options{Logger: logging.Discard()})
	rec := httptest.NewRecorder()
	without.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	m := metrics.New()
	m.CommandHandled("start", "ok")
	with := Router(Options{Metrics: m.Handler(), Logger: logging.Discard()})
	rec = httptest.NewRecorder()
	with.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "appxzip_commands_total")
}

func TestCORSRestrictsOrigins(t *testing.T) {
	h := Router(Options{CORSOrigins: []string{"https://ops.example.com"}, Logger: logging.Discard()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
