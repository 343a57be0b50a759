package metrics

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersCount(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordSubmission("completed")
	m.RecordSubmission("completed")
	m.RecordSubmission("invalid")
	m.RecordValidationFailure("section")
	m.RecordDraftSave("session", nil)
	m.RecordDraftSave("session", errors.New("boom"))
	m.ObserveRequest("GET", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("section")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftSaves.WithLabelValues("session", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "200")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSubmission("completed")
		m.RecordValidationFailure("submit")
		m.RecordDraftSave("builder", nil)
		m.ObserveRequest("GET", 500, time.Second)
		m.TrackInFlight(1)
		m.RecordDBPoolStats(sql.DBStats{})
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordSubmission("completed")
	m.RecordDBPoolStats(sql.DBStats{OpenConnections: 3})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hireflow_session_submissions_total")
	assert.Contains(t, rec.Body.String(), `hireflow_db_connection_pool{stat="open"} 3`)
}
