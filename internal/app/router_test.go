package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-dms/internal/observability"
	_ "github.com/odyssey-erp/odyssey-dms/testing"
)

func newTestConfig() *Config {
	return &Config{AppEnv: "test", RateLimitPerMinute: 100}
}

func TestHealthz(t *testing.T) {
	router := NewRouter(RouterParams{Config: newTestConfig()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestReadyz(t *testing.T) {
	cases := []struct {
		name   string
		checks map[string]ReadinessCheck
		status int
		redis  string
	}{
		{
			name:   "all up",
			checks: map[string]ReadinessCheck{"redis": func(context.Context) error { return nil }},
			status: http.StatusOK,
			redis:  "ok",
		},
		{
			name:   "redis down",
			checks: map[string]ReadinessCheck{"redis": func(context.Context) error { return errors.New("dial tcp") }},
			status: http.StatusServiceUnavailable,
			redis:  "down",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(RouterParams{Config: newTestConfig(), Readiness: tc.checks})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			require.Equal(t, tc.status, rec.Code)

			var body struct {
				Ready  bool              `json:"ready"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.status == http.StatusOK, body.Ready)
			assert.Equal(t, tc.redis, body.Checks["redis"])
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := newTestConfig()
	cfg.RateLimitPerMinute = 2
	router := NewRouter(RouterParams{Config: cfg})

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{Config: newTestConfig(), Metrics: metrics})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `dms_http_requests_total{code="200",route="/healthz"} 1`))
}
