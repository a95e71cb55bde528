package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"AccessDeck/internal/webconfig"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log is the application-wide logger.
	Log zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Module loggers, derived from Log by Init.
	Remediation zerolog.Logger = Log
	Batch       zerolog.Logger = Log
	OCR         zerolog.Logger = Log
	Config      zerolog.Logger = Log
	Auth        zerolog.Logger = Log
	Notify      zerolog.Logger = Log
)

// Init configures the global loggers. Debug mode writes human-readable output
// to the console as well as JSON to the rotating log file.
func Init(cfg webconfig.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Mode == webconfig.ModeDebug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writers []io.Writer
	if cfg.Mode == webconfig.ModeDebug {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			})
		}
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	Log = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	deriveModules()
}

// SetOutput redirects every logger to w. Used by tests and the check command.
func SetOutput(w io.Writer) {
	Log = zerolog.New(w).With().Timestamp().Logger()
	deriveModules()
}

func deriveModules() {
	Remediation = Log.With().Str("module", "remediation").Logger()
	Batch = Log.With().Str("module", "batch").Logger()
	OCR = Log.With().Str("module", "ocr").Logger()
	Config = Log.With().Str("module", "config").Logger()
	Auth = Log.With().Str("module", "auth").Logger()
	Notify = Log.With().Str("module", "notify").Logger()
}
