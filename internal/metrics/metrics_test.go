package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.EntryAdded()
	m.EntryAdded()
	m.EntriesDeleted(3)
	m.ObserveExport("collection", 4, 10*time.Millisecond, nil)
	m.ObserveExport("collection", 0, time.Millisecond, errors.New("disk full"))
	m.ObserveAnalysis("openai", "ok", time.Second)
	m.ObserveAnalysis("openai", "timeout", 30*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.entriesAdded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entriesDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("collection", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("collection", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("openai", "timeout")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/entries", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mystuff_http_requests_total{method="GET",route="/entries",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.EntryAdded()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.entriesAdded))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.entriesAdded))
}
