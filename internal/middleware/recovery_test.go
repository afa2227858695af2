package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thorin/workoutapp/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPanicRecovery(t *testing.T) {
	metricsManager, _ := metrics.NewTestManagerAndRegistry()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/w/workouts", nil)
	rr := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		PanicRecovery(metricsManager)(next).ServeHTTP(rr, req)
	})
	assert.InDelta(t, 1, testutil.ToFloat64(metricsManager.CounterHandleRequestPanic), 0.001)
}
