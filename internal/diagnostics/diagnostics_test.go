package diagnostics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"AccessDeck/internal/i18n"
	"AccessDeck/internal/webconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	i18n.Init()
	i18n.SetLanguage("en")
	os.Exit(m.Run())
}

func byID(rep Report) map[string]Check {
	out := make(map[string]Check, len(rep.Checks))
	for _, c := range rep.Checks {
		out[c.ID] = c
	}
	return out
}

func testConfig(t *testing.T, backendURL string) webconfig.Config {
	cfg := webconfig.Config{}
	cfg.Backend.BaseURLs = []string{backendURL}
	cfg.Storage.Dir = t.TempDir()
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestRunHealthyEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rep := Run(context.Background(), Options{
		Config:     testConfig(t, srv.URL),
		ConfigPath: "/tmp/config.yaml",
		OCRVersion: func() string { return "5.3.0" },
	})

	assert.False(t, rep.HasErrors)
	checks := byID(rep)
	assert.Equal(t, LevelOK, checks["config"].Level)
	assert.Equal(t, LevelOK, checks["storage"].Level)
	assert.Equal(t, LevelOK, checks["backend"].Level)
	assert.Contains(t, checks["backend"].Message, srv.URL)
	assert.Equal(t, LevelOK, checks["tesseract"].Level)
	assert.NotContains(t, checks, "jwt_secret")
	assert.NotContains(t, checks, "demo_fallback")
}

func TestRunReportsProblems(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(t, url)
	cfg.Auth.JWTSecret = "short"

	rep := Run(context.Background(), Options{
		Config:       cfg,
		ConfigErr:    errors.New("yaml: bad indent"),
		OCRVersion:   func() string { return "" },
		DemoFallback: true,
	})

	require.True(t, rep.HasErrors)
	checks := byID(rep)
	assert.Equal(t, LevelError, checks["config"].Level)
	assert.Contains(t, checks["config"].Message, "bad indent")
	assert.Equal(t, LevelWarning, checks["jwt_secret"].Level)
	assert.Equal(t, LevelError, checks["backend"].Level)
	assert.NotEmpty(t, checks["backend"].Suggestion)
	assert.Equal(t, LevelWarning, checks["tesseract"].Level)
	assert.Equal(t, LevelInfo, checks["demo_fallback"].Level)
}

func TestCheckStorageFailsOnFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "not-a-dir")
	require.NoError(t, err)
	f.Close()

	c := checkStorage(f.Name())
	assert.Equal(t, LevelError, c.Level)
	assert.Equal(t, "storage", c.ID)
}
