// Package diagnostics runs the environment checks shared by the doctor
// command and the admin doctor endpoint.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"AccessDeck/internal/cache"
	"AccessDeck/internal/database"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/netutil"
	"AccessDeck/internal/webconfig"
)

const (
	LevelOK      = "ok"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Check struct {
	ID         string `json:"id"`
	Level      string `json:"level"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

type Report struct {
	Checks    []Check `json:"checks"`
	HasErrors bool    `json:"has_errors"`
}

func (r *Report) add(c Check) {
	r.Checks = append(r.Checks, c)
	if c.Level == LevelError {
		r.HasErrors = true
	}
}

// Options selects what Run inspects. Nil fields skip their check.
type Options struct {
	Config     webconfig.Config
	ConfigPath string
	ConfigErr  error
	// CheckDB pings the already initialized database.
	CheckDB      bool
	Cache        cache.Cache
	OCRVersion   func() string
	DemoFallback bool
}

// Run executes every check and returns them in a stable order.
func Run(ctx context.Context, opts Options) Report {
	var rep Report

	if opts.ConfigErr != nil {
		rep.add(Check{ID: "config", Level: LevelError,
			Message: i18n.T(i18n.MsgDoctorConfigFailed, map[string]interface{}{"Error": opts.ConfigErr.Error()})})
	} else {
		rep.add(Check{ID: "config", Level: LevelOK,
			Message: i18n.T(i18n.MsgDoctorConfigOK, map[string]interface{}{"Path": opts.ConfigPath})})
	}

	if len(opts.Config.Auth.JWTSecret) < 32 {
		rep.add(Check{ID: "jwt_secret", Level: LevelWarning,
			Message:    i18n.T(i18n.MsgDoctorJWTSecretWeak),
			Suggestion: i18n.T(i18n.MsgDoctorJWTSecretSuggest)})
	}

	if opts.CheckDB {
		driver := opts.Config.Database.Driver
		if err := database.Ping(); err != nil {
			rep.add(Check{ID: "database", Level: LevelError,
				Message: i18n.T(i18n.MsgDoctorDbFailed, map[string]interface{}{"Driver": driver, "Error": err.Error()})})
		} else {
			rep.add(Check{ID: "database", Level: LevelOK,
				Message: i18n.T(i18n.MsgDoctorDbOK, map[string]interface{}{"Driver": driver})})
		}
	}

	rep.add(checkStorage(opts.Config.Storage.Dir))
	rep.add(checkBackend(ctx, opts.Config.Backend))

	if opts.Cache != nil && opts.Cache.Kind() == "redis" {
		addr := opts.Config.Cache.RedisAddr
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := opts.Cache.Ping(pctx)
		cancel()
		if err != nil {
			rep.add(Check{ID: "redis", Level: LevelWarning,
				Message: i18n.T(i18n.MsgDoctorRedisFailed, map[string]interface{}{"Addr": addr, "Error": err.Error()})})
		} else {
			rep.add(Check{ID: "redis", Level: LevelOK,
				Message: i18n.T(i18n.MsgDoctorRedisOK, map[string]interface{}{"Addr": addr})})
		}
	}

	if opts.OCRVersion != nil {
		if v := opts.OCRVersion(); v == "" {
			rep.add(Check{ID: "tesseract", Level: LevelWarning,
				Message:    i18n.T(i18n.MsgDoctorTesseractMissing),
				Suggestion: i18n.T(i18n.MsgDoctorTesseractSuggest)})
		} else {
			rep.add(Check{ID: "tesseract", Level: LevelOK, Message: i18n.T(i18n.MsgDoctorTesseractOK) + " (" + v + ")"})
		}
	}

	if opts.DemoFallback {
		rep.add(Check{ID: "demo_fallback", Level: LevelInfo, Message: i18n.T(i18n.MsgDoctorDemoFallbackActive)})
	}
	return rep
}

// checkStorage verifies the upload directory accepts new files.
func checkStorage(dir string) Check {
	fail := func(err error) Check {
		detail := err.Error()
		if info, statErr := os.Stat(dir); statErr == nil {
			if owner := ownerOf(info); owner != "" {
				detail = fmt.Sprintf("%s (owner: %s)", detail, owner)
			}
		}
		return Check{ID: "storage", Level: LevelError,
			Message: i18n.T(i18n.MsgDoctorStorageFailed, map[string]interface{}{"Dir": dir, "Error": detail})}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fail(err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fail(err)
	}
	name := f.Name()
	f.Close()
	os.Remove(filepath.Clean(name))
	return Check{ID: "storage", Level: LevelOK,
		Message: i18n.T(i18n.MsgDoctorStorageOK, map[string]interface{}{"Dir": dir})}
}

// checkBackend probes every configured base URL and reports the fastest.
func checkBackend(ctx context.Context, cfg webconfig.BackendConfig) Check {
	sel := netutil.NewBackendSelector(cfg.BaseURLs, 5*time.Second)
	var best *netutil.MirrorResult
	for _, res := range sel.TestAll(ctx) {
		res := res
		if res.Success && (best == nil || res.Latency < best.Latency) {
			best = &res
		}
	}
	if best == nil {
		return Check{ID: "backend", Level: LevelError,
			Message:    i18n.T(i18n.MsgDoctorBackendFailed),
			Suggestion: i18n.T(i18n.MsgDoctorBackendSuggestion)}
	}
	return Check{ID: "backend", Level: LevelOK,
		Message: i18n.T(i18n.MsgDoctorBackendOK, map[string]interface{}{
			"URL":     best.Source.URL,
			"Latency": best.Latency.Round(time.Millisecond).String(),
		})}
}
