package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAuthEvent(t *testing.T) {
	m := New()

	m.RecordAuthEvent("login", OutcomeSuccess)
	m.RecordAuthEvent("login", OutcomeSuccess)
	m.RecordAuthEvent("login", OutcomeFailure)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", OutcomeFailure)))
}

func TestObserveTMDBRequest(t *testing.T) {
	m := New()

	m.ObserveTMDBRequest(OutcomeError, 50*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.tmdbRequests.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.tmdbDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordAuthEvent("signup", OutcomeSuccess)
		m.ObserveTMDBRequest(OutcomeSuccess, time.Second)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordAuthEvent("signup", OutcomeSuccess)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `flixapi_auth_events_total{event="signup",outcome="success"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
