package webconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFillsEverySection(t *testing.T) {
	t.Setenv("ACCESSDECK_HOME", t.TempDir())
	cfg := Default()

	assert.Equal(t, 18800, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/api/upload-document", cfg.Backend.Endpoints.Upload)
	assert.Equal(t, "/api/session", cfg.Backend.Endpoints.Session)
	assert.Empty(t, cfg.Backend.Endpoints.UploadPDF)
	assert.Equal(t, 5*time.Minute, cfg.Batch.KeepAliveInterval)
	assert.Equal(t, 3, cfg.Batch.MaxKeepAliveFailures)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.False(t, cfg.IsDebug())
	assert.Equal(t, "127.0.0.1:18800", cfg.ListenAddr())
}

func TestNormalizeTrimsBackendURLs(t *testing.T) {
	cfg := Config{Backend: BackendConfig{BaseURLs: []string{" https://a.example.com/ ", "https://b.example.com"}}}
	cfg.Normalize()
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Backend.BaseURLs)
}

func TestNormalizeUnknownModeFallsBackToProduction(t *testing.T) {
	cfg := Config{Log: LogConfig{Mode: "Verbose"}, Database: DatabaseConfig{Driver: "mysql"}}
	cfg.Normalize()
	assert.Equal(t, ModeProduction, cfg.Log.Mode)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestLoadCreatesFileWithSecret(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ACCESSDECK_HOME", dir)
	t.Setenv("ACCESSDECK_CONFIG", filepath.Join(dir, "config.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.Auth.JWTSecret, 64)

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	again, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Auth.JWTSecret, again.Auth.JWTSecret)
}

func TestLoadFromParsesDurationsAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ACCESSDECK_HOME", dir)
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("ACCESSDECK_CONFIG", path)

	content := "auth:\n  jwt_secret: s3cret\nbatch:\n  keepalive_interval: 30s\nbackend:\n  base_urls: [\"https://x.example.com\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ACCESSDECK_BACKEND_URL", "https://y.example.com/, https://z.example.com")
	t.Setenv("ACCESSDECK_PORT", "9001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Second, cfg.Batch.KeepAliveInterval)
	assert.Equal(t, []string{"https://y.example.com", "https://z.example.com"}, cfg.Backend.BaseURLs)
	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestLoadFromRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o600))
	_, err := LoadFrom(path)
	assert.Error(t, err)
}
