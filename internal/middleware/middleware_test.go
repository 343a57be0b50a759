package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/hireflow/internal/metrics"
)

func TestResumeTokenRoundTrip(t *testing.T) {
	tokens := NewResumeTokens("secret", time.Hour)
	tok, exp, err := tokens.Sign("r1", "asm_1", "cand_1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "r1", c.ResponseID)
	assert.Equal(t, "asm_1", c.AssessmentID)
	assert.Equal(t, "cand_1", c.CandidateID)
}

func TestResumeTokenRejectsExpiredAndForeign(t *testing.T) {
	tokens := NewResumeTokens("secret", time.Hour)
	tok, _, err := tokens.Sign("r1", "asm_1", "")
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(tok)
	assert.Error(t, err)

	_, err = NewResumeTokens("other", time.Hour).Parse(tok)
	assert.Error(t, err)

	_, err = tokens.Parse("garbage")
	assert.Error(t, err)
}

func TestLocaleMiddleware(t *testing.T) {
	var got string
	h := LocaleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "zh", got)
	assert.Equal(t, "zh", rec.Header().Get("Content-Language"))
}

func TestNoStoreOnlyForAPI(t *testing.T) {
	h := NoStore(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/j/assessment", nil))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS("https://jobs.example.com")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://jobs.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	m := metrics.New(prometheus.NewRegistry())

	var seenID string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}), SecureHeaders, RequestLogger(logrus.NewEntry(l), m))

	req := httptest.NewRequest(http.MethodPost, "/api/assessments/a/responses", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", seenID)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "/api/assessments/a/responses", entry["path"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestCounter.WithLabelValues("POST", "418")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.RequestsInFlight))
}
