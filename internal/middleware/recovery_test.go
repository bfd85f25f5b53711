package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fitrackhq/fitrack/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecovery(t *testing.T) {
	metricsManager := metrics.NewTestManager()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("blow up")
	})

	req, err := http.NewRequest("GET", "/workouts", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		PanicRecovery(metricsManager)(handler).ServeHTTP(rr, req)
	})

	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterHandleRequestPanic))
}
