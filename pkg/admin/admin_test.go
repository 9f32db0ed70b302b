package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	zlog "github.com/raykavin/alphabot/pkg/logger/zerolog"
	"github.com/raykavin/alphabot/pkg/metric"
)

func newTestServer() (*Server, *metric.Statistics) {
	stats := metric.NewStatistics()
	latency := metric.NewLatency(0)
	latency.Observe(20 * time.Millisecond)
	return NewServer(":0", stats, latency, zlog.Nop()), stats
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer()
	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStatistics(t *testing.T) {
	s, stats := newTestServer()
	stats.Add("c", 3)

	rec := get(t, s, "/statistics")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Requests map[string]int `json:"requests"`
		Latency  metric.Summary `json:"latency"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Requests["c"])
	require.Equal(t, 1, body.Latency.Count)
}

func TestMetrics(t *testing.T) {
	s, stats := newTestServer()
	stats.Add("p", 2)

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `alphabot_requests_total{family="p"} 2`))
}

func TestNoRoute(t *testing.T) {
	s, _ := newTestServer()
	require.Equal(t, http.StatusNotFound, get(t, s, "/missing").Code)
}
