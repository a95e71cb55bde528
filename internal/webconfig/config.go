// Package webconfig loads and persists the AccessDeck server configuration.
package webconfig

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeProduction = "production"
	ModeDebug      = "debug"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	Backend     BackendConfig     `yaml:"backend"`
	Batch       BatchConfig       `yaml:"batch"`
	OCR         OCRConfig         `yaml:"ocr"`
	Storage     StorageConfig     `yaml:"storage"`
	Cache       CacheConfig       `yaml:"cache"`
	Remediation RemediationConfig `yaml:"remediation"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	Bind        string   `yaml:"bind"`
	CORSOrigins []string `yaml:"cors_origins"`
	// MaxUploadMB caps multipart bodies on upload routes.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpire time.Duration `yaml:"jwt_expire"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type BackendConfig struct {
	// BaseURLs lists candidate deployments; the fastest reachable one wins.
	BaseURLs  []string         `yaml:"base_urls"`
	Endpoints BackendEndpoints `yaml:"endpoints"`
	Timeout   time.Duration    `yaml:"timeout"`
	RateLimit float64          `yaml:"rate_limit"`
	Burst     int              `yaml:"burst"`
}

type BackendEndpoints struct {
	Upload        string `yaml:"upload"`
	UploadPDF     string `yaml:"upload_pdf"`
	Download      string `yaml:"download"`
	Session       string `yaml:"session"`
	BatchUpload   string `yaml:"batch_upload"`
	BatchDownload string `yaml:"batch_download"`
}

type BatchConfig struct {
	KeepAliveInterval    time.Duration `yaml:"keepalive_interval"`
	MaxKeepAliveFailures int           `yaml:"max_keepalive_failures"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
}

type OCRConfig struct {
	Languages []string `yaml:"languages"`
	MaxPixels int      `yaml:"max_pixels"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type RemediationConfig struct {
	// DemoFallback serves a sample report when the backend is unreachable.
	DemoFallback bool `yaml:"demo_fallback"`
	// RecheckByDefault re-submits remediated files unless the request opts out.
	RecheckByDefault bool `yaml:"recheck_by_default"`
}

// DataDir returns the directory holding config, database, logs and uploads.
func DataDir() string {
	if dir := os.Getenv("ACCESSDECK_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".accessdeck"
	}
	return filepath.Join(home, ".accessdeck")
}

// ConfigPath returns the config file path. ACCESSDECK_CONFIG overrides it.
func ConfigPath() string {
	if p := os.Getenv("ACCESSDECK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "config.yaml")
}

func Default() Config {
	cfg := Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	dataDir := DataDir()

	if c.Server.Port <= 0 {
		c.Server.Port = 18800
	}
	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 50
	}
	if c.Auth.JWTExpire <= 0 {
		c.Auth.JWTExpire = 24 * time.Hour
	}

	c.Log.Mode = strings.ToLower(strings.TrimSpace(c.Log.Mode))
	if c.Log.Mode != ModeDebug {
		c.Log.Mode = ModeProduction
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dataDir, "logs", "accessdeck.log")
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 20
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 30
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver != DriverPostgres {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = filepath.Join(dataDir, "accessdeck.db")
	}

	if len(c.Backend.BaseURLs) == 0 {
		c.Backend.BaseURLs = []string{"http://127.0.0.1:5000"}
	}
	for i, u := range c.Backend.BaseURLs {
		c.Backend.BaseURLs[i] = strings.TrimRight(strings.TrimSpace(u), "/")
	}
	ep := &c.Backend.Endpoints
	if ep.Upload == "" {
		ep.Upload = "/api/upload-document"
	}
	if ep.Download == "" {
		ep.Download = "/api/download-document"
	}
	if ep.Session == "" {
		ep.Session = "/api/session"
	}
	if ep.BatchUpload == "" {
		ep.BatchUpload = "/api/batch-upload"
	}
	if ep.BatchDownload == "" {
		ep.BatchDownload = "/api/batch-download"
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 2 * time.Minute
	}
	if c.Backend.RateLimit <= 0 {
		c.Backend.RateLimit = 5
	}
	if c.Backend.Burst <= 0 {
		c.Backend.Burst = 10
	}

	if c.Batch.KeepAliveInterval <= 0 {
		c.Batch.KeepAliveInterval = 5 * time.Minute
	}
	if c.Batch.MaxKeepAliveFailures <= 0 {
		c.Batch.MaxKeepAliveFailures = 3
	}
	if c.Batch.IdleTimeout <= 0 {
		c.Batch.IdleTimeout = time.Hour
	}

	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"eng"}
	}
	if c.OCR.MaxPixels <= 0 {
		c.OCR.MaxPixels = 40_000_000
	}

	if c.Storage.Dir == "" {
		c.Storage.Dir = filepath.Join(dataDir, "files")
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 24 * time.Hour
	}
}

func (c Config) IsDebug() bool {
	return c.Log.Mode == ModeDebug
}

func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Load reads the config from ConfigPath. A missing file yields defaults and
// creates the file with a generated JWT secret.
func Load() (Config, error) {
	path := ConfigPath()
	cfg, err := LoadFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.Auth.JWTSecret = generateSecret()
		if err := SaveTo(path, cfg); err != nil {
			return cfg, err
		}
		applyEnv(&cfg)
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = generateSecret()
		if err := SaveTo(path, cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadFrom reads and normalizes a config file without env overrides.
func LoadFrom(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ACCESSDECK_BACKEND_URL"); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			cfg.Backend.BaseURLs = urls
		}
	}
	if v := os.Getenv("ACCESSDECK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("ACCESSDECK_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("ACCESSDECK_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("ACCESSDECK_DATABASE_DSN"); v != "" {
		cfg.Database.Driver = DriverPostgres
		cfg.Database.PostgresDSN = v
	}
}

func generateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}
