package netutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBestPrefersReachableBackend(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer up.Close()

	sel := NewBackendSelector([]string{down.URL, up.URL}, time.Second)
	best := sel.GetBest(context.Background())
	require.NotNil(t, best)
	assert.Equal(t, up.URL, best.URL)

	results := sel.TestAll(context.Background())
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Equal(t, http.StatusBadGateway, results[0].Status)
	assert.True(t, results[1].Success)
}

func TestGetBestFallsBackToFirst(t *testing.T) {
	sel := NewBackendSelector([]string{"http://127.0.0.1:1", "http://127.0.0.1:2"}, 200*time.Millisecond)
	url, err := BackendURL(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1", url)
}

func TestBackendURLWithoutSources(t *testing.T) {
	_, err := BackendURL(context.Background(), NewBackendSelector(nil, time.Second))
	assert.Error(t, err)
}
