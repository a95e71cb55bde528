package handlers

import (
	"net/http"
	"runtime"
	"time"

	"AccessDeck/internal/cache"
	"AccessDeck/internal/diagnostics"
	"AccessDeck/internal/version"
	"AccessDeck/internal/web"
	"AccessDeck/internal/webconfig"
)

// DoctorHandler runs the environment checks for admins.
type DoctorHandler struct {
	cfg          *webconfig.Config
	cache        cache.Cache
	ocrVersion   func() string
	demoFallback func() bool
	sessions     func() int
	startTime    time.Time
}

func NewDoctorHandler(cfg *webconfig.Config, c cache.Cache, ocrVersion func() string, demoFallback func() bool, sessions func() int) *DoctorHandler {
	return &DoctorHandler{
		cfg:          cfg,
		cache:        c,
		ocrVersion:   ocrVersion,
		demoFallback: demoFallback,
		sessions:     sessions,
		startTime:    time.Now(),
	}
}

type RuntimeInfo struct {
	Version        string `json:"version"`
	Build          string `json:"build"`
	GoVersion      string `json:"go_version"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	NumGoroutine   int    `json:"num_goroutine"`
	HeapAlloc      uint64 `json:"heap_alloc"`
	UptimeMs       int64  `json:"uptime_ms"`
	ActiveSessions int    `json:"active_sessions"`
}

type doctorResponse struct {
	diagnostics.Report
	Runtime RuntimeInfo `json:"runtime"`
}

func (h *DoctorHandler) Run(w http.ResponseWriter, r *http.Request) {
	demo := false
	if h.demoFallback != nil {
		demo = h.demoFallback()
	}
	rep := diagnostics.Run(r.Context(), diagnostics.Options{
		Config:       *h.cfg,
		ConfigPath:   webconfig.ConfigPath(),
		CheckDB:      true,
		Cache:        h.cache,
		OCRVersion:   h.ocrVersion,
		DemoFallback: demo,
	})

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	info := RuntimeInfo{
		Version:      version.Version,
		Build:        version.Build,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		HeapAlloc:    mem.HeapAlloc,
		UptimeMs:     time.Since(h.startTime).Milliseconds(),
	}
	if h.sessions != nil {
		info.ActiveSessions = h.sessions()
	}
	web.OK(w, r, doctorResponse{Report: rep, Runtime: info})
}
