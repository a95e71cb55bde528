package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestHelpersRecord(t *testing.T) {
	m := New()
	m.CacheLookup("memory", true)
	m.CacheLookup("memory", false)
	m.CacheLookup("memory", false)
	m.BackendError("upload", "status")
	m.KeepAlive(false)
	m.SessionStarted()
	m.ObserveBackend("upload", time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, value(t, m.CacheHits.WithLabelValues("memory")))
	assert.Equal(t, 2.0, value(t, m.CacheMisses.WithLabelValues("memory")))
	assert.Equal(t, 1.0, value(t, m.BackendErrors.WithLabelValues("upload", "status")))
	assert.Equal(t, 1.0, value(t, m.KeepAlives.WithLabelValues("failed")))
	assert.Equal(t, 1.0, value(t, m.ActiveSessions))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var m *Registry
	assert.NotPanics(t, func() {
		m.CacheLookup("memory", true)
		m.ObserveBackend("upload", time.Now(), nil)
		m.SessionStarted()
		m.SessionStopped()
		m.RunFinished("reconciled")
		m.ObserveOCR("tesseract", time.Now(), nil)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RunFinished("reconciled")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `accessdeck_remediation_runs_total{state="reconciled"} 1`)
}
