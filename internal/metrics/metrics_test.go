package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-planner/internal/metrics"
)

func TestMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/trips", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trips?profileId=x", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `itinerary_http_requests_total{method="GET",route="/api/trips",status="418"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_ObserveOp(t *testing.T) {
	m := metrics.New()

	m.ObserveOp("save", metrics.ResultOK)
	m.ObserveOp("save", metrics.ResultOK)
	m.ObserveSavedTrips(3)

	n, err := testutil.GatherAndCount(m.Registry(), "itinerary_store_operations_total", "itinerary_saved_trips")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveOp("load", metrics.ResultOK)
		m.ObserveSavedTrips(1)
	})
}
