package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"AccessDeck/internal/batch"
	"AccessDeck/internal/cache"
	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/handlers"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/metrics"
	"AccessDeck/internal/notify"
	"AccessDeck/internal/ocr"
	"AccessDeck/internal/ocr/tesseract"
	"AccessDeck/internal/output"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/tray"
	"AccessDeck/internal/version"
	"AccessDeck/internal/web"
	"AccessDeck/internal/webconfig"

	"golang.org/x/crypto/bcrypt"
)

// ServeOptions are the command line overrides for serve.
type ServeOptions struct {
	Port     int
	Bind     string
	User     string
	Password string
	Debug    bool
}

func RunServe(opts ServeOptions) int {
	cfg, err := webconfig.Load()
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgServeConfigLoadFailed, map[string]interface{}{"Error": err.Error()}))
		return 1
	}

	if opts.Port > 0 && opts.Port != cfg.Server.Port {
		cfg.Server.Port = opts.Port
		if err := webconfig.Save(cfg); err != nil {
			output.Errorf("%s\n", i18n.T(i18n.MsgServeConfigSaveFailed, map[string]interface{}{"Error": err.Error()}))
		} else {
			output.Println(i18n.T(i18n.MsgServePortSaved, map[string]interface{}{"Port": cfg.Server.Port}))
		}
	}
	if opts.Bind != "" {
		cfg.Server.Bind = opts.Bind
	}
	if opts.Debug {
		cfg.Log.Mode = webconfig.ModeDebug
		cfg.Log.Level = "debug"
	}

	logger.Init(cfg.Log)
	logger.Log.Info().Str("version", version.Version).Str("build", version.Build).Msg(i18n.T(i18n.MsgLogServeStarting))

	if err := database.Init(cfg.Database, cfg.IsDebug()); err != nil {
		logger.Log.Error().Err(err).Msg(i18n.T(i18n.MsgLogDbInitFailed))
		return 1
	}
	defer database.Close()

	if code := seedInitialUser(opts.User, opts.Password); code != 0 {
		return code
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o700); err != nil {
		logger.Log.Error().Err(err).Str("dir", cfg.Storage.Dir).Msg(i18n.T(i18n.MsgLogStorageInitFailed))
		return 1
	}

	wsHub := web.NewWSHub(cfg.Server.CORSOrigins)
	go wsHub.Run()
	defer wsHub.Stop()

	backendURL := pickBackend(context.Background(), cfg.Backend)
	logger.Log.Info().Str("url", backendURL).Msg(i18n.T(i18n.MsgLogBackendSelected))

	reportCache := cache.New(cfg.Cache)
	defer reportCache.Close()
	if reportCache.Kind() == "redis" {
		logger.Log.Info().Str("addr", cfg.Cache.RedisAddr).Msg(i18n.T(i18n.MsgLogCacheRedis))
	}

	registry := metrics.New()
	client := remediation.NewClient(backendURL, cfg.Backend, remediation.WithMetrics(registry))

	settingRepo := database.NewSettingRepo()
	notifyMgr := notify.NewManager()
	notifyMgr.Reload(settingRepo)

	settingsHandler := handlers.NewSettingsHandler(notifyMgr, cfg.Remediation.DemoFallback)

	remSvc := remediation.NewService(client, reportCache, remediation.ServiceConfig{
		StorageDir:   cfg.Storage.Dir,
		CacheTTL:     cfg.Cache.TTL,
		DemoFallback: settingsHandler.DemoFallback,
	})
	remSvc.SetBroadcaster(wsHub)
	remSvc.SetNotifier(notifyMgr)
	remSvc.SetMetrics(registry)

	batchMgr := batch.NewManager(client, cfg.Batch)
	batchMgr.SetBroadcaster(wsHub)
	batchMgr.SetNotifier(notifyMgr)
	batchMgr.SetMetrics(registry)
	if n, err := batchMgr.ExpireStale(); err != nil {
		logger.Batch.Warn().Err(err).Msg("failed to expire stale sessions")
	} else if n > 0 {
		logger.Batch.Info().Int64("count", n).Msg(i18n.T(i18n.MsgLogSessionExpired))
	}
	defer batchMgr.Shutdown()

	ocrSvc := ocr.NewService(tesseract.New(), cfg.OCR.Languages, cfg.OCR.MaxPixels)
	ocrSvc.SetMetrics(registry)
	logger.OCR.Info().Str("engine", ocrSvc.EngineName()).Strs("languages", cfg.OCR.Languages).Msg(i18n.T(i18n.MsgLogOCREngineReady))

	authHandler := handlers.NewAuthHandler(&cfg)
	dashboardHandler := handlers.NewDashboardHandler(backendURL)
	remediationHandler := handlers.NewRemediationHandler(remSvc, cfg.Remediation.RecheckByDefault)
	historyHandler := handlers.NewHistoryHandler()
	batchHandler := handlers.NewBatchHandler(batchMgr)
	ocrHandler := handlers.NewOCRHandler(ocrSvc)
	assignmentHandler := handlers.NewAssignmentHandler(ocrSvc)
	preferencesHandler := handlers.NewPreferencesHandler()
	helpHandler := handlers.NewHelpHandler()
	auditHandler := handlers.NewAuditHandler()
	doctorHandler := handlers.NewDoctorHandler(&cfg, reportCache, tesseract.Version, settingsHandler.DemoFallback, func() int {
		return len(batchMgr.Active())
	})

	router := web.NewRouter()

	router.POST("/api/v1/auth/login", authHandler.Login)
	router.POST("/api/v1/auth/logout", authHandler.Logout)
	router.GET("/api/v1/auth/me", authHandler.Me)
	router.PUT("/api/v1/auth/password", authHandler.ChangePassword)

	router.GET("/api/v1/dashboard", dashboardHandler.Get)
	router.GET("/api/v1/history", historyHandler.List)

	router.POST("/api/v1/remediations", remediationHandler.Analyze)
	router.GET("/api/v1/remediations", remediationHandler.List)
	router.GET("/api/v1/remediations/{id}", remediationHandler.Get)
	router.POST("/api/v1/remediations/{id}/remediate", remediationHandler.Remediate)
	router.POST("/api/v1/remediations/{id}/finish", remediationHandler.Finish)
	router.GET("/api/v1/remediations/{id}/download", remediationHandler.Download)

	router.POST("/api/v1/batch/sessions", batchHandler.Create)
	router.GET("/api/v1/batch/sessions", batchHandler.List)
	router.GET("/api/v1/batch/sessions/{id}", batchHandler.Get)
	router.POST("/api/v1/batch/sessions/{id}/upload", batchHandler.Upload)
	router.GET("/api/v1/batch/sessions/{id}/download", batchHandler.Download)
	router.DELETE("/api/v1/batch/sessions/{id}", batchHandler.Close)

	router.POST("/api/v1/ocr", ocrHandler.Extract)

	router.GET("/api/v1/assignments", assignmentHandler.List)
	router.POST("/api/v1/assignments", assignmentHandler.Create)
	router.POST("/api/v1/assignments/scan", assignmentHandler.Scan)
	router.GET("/api/v1/assignments/{id}", assignmentHandler.Get)
	router.PUT("/api/v1/assignments/{id}", assignmentHandler.Update)
	router.DELETE("/api/v1/assignments/{id}", assignmentHandler.Delete)

	router.GET("/api/v1/preferences", preferencesHandler.Get)
	router.PUT("/api/v1/preferences", preferencesHandler.Update)

	router.GET("/api/v1/help/unblock", helpHandler.Unblock)
	router.GET("/api/v1/about", helpHandler.About)

	router.GET("/api/v1/settings", web.RequireAdmin(settingsHandler.GetAll))
	router.PUT("/api/v1/settings", web.RequireAdmin(settingsHandler.Update))
	router.POST("/api/v1/settings/notify/test", web.RequireAdmin(settingsHandler.TestNotify))
	router.GET("/api/v1/doctor", web.RequireAdmin(doctorHandler.Run))

	router.GET("/api/v1/audit-logs", auditHandler.List)

	router.GET("/api/v1/ws", wsHub.HandleWS(cfg.Auth.JWTSecret))

	router.GET("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		web.OK(w, r, map[string]interface{}{
			"status":  "ok",
			"version": version.Version,
			"backend": backendURL,
			"ws":      wsHub.ClientCount(),
		})
	})

	router.Handle(http.MethodGet, "/metrics", registry.Handler())

	// Static files fallback (SPA)
	router.Handle("*", "/", spaHandler())

	// Register audit callback for auth middleware (JWT failures, forbidden access)
	auditRepo := database.NewAuditLogRepo()
	web.SetAuthAuditFunc(func(action, result, detail, ip, username string, userID uint) {
		auditRepo.Create(&database.AuditLog{
			UserID:   userID,
			Username: username,
			Action:   action,
			Result:   result,
			Detail:   detail,
			IP:       ip,
		})
	})

	skipAuthPaths := []string{
		"/api/v1/auth/login",
		"/api/v1/auth/logout",
		"/api/v1/health",
		"/api/v1/ws",
	}

	rlCtx, rlCancel := context.WithCancel(context.Background())
	defer rlCancel()
	loginLimiter := web.NewRateLimiter(10, time.Minute, rlCtx)
	rateLimitPaths := []string{"/api/v1/auth/login"}

	handler := web.Chain(
		router,
		web.RecoveryMiddleware,
		web.SecurityHeadersMiddleware,
		web.RequestIDMiddleware,
		web.RequestLogMiddleware,
		web.CORSMiddleware(cfg.Server.CORSOrigins),
		web.MaxBodySizeMiddleware(2<<20, int64(cfg.Server.MaxUploadMB)<<20),
		web.RateLimitMiddleware(loginLimiter, rateLimitPaths),
		web.InputSanitizeMiddleware,
		web.AuthMiddleware(cfg.Auth.JWTSecret, skipAuthPaths),
	)

	if !isLoopback(cfg.Server.Bind) {
		logger.Log.Warn().Str("bind", cfg.Server.Bind).Msg(i18n.T(i18n.MsgLogBindNonLoopback))
	}

	addr := cfg.ListenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		output.Errorf("\n%s\n\n", i18n.T(i18n.MsgServePortInUse, map[string]interface{}{"Port": cfg.Server.Port}))
		logger.Log.Error().Int("port", cfg.Server.Port).Err(err).Msg(i18n.T(i18n.MsgLogServiceStartFailed))
		return 1
	}
	logger.Log.Info().Str("addr", addr).Msg(i18n.T(i18n.MsgLogWebServiceStarted))

	username, password := ensureAdmin()
	printBanner(cfg, username, password)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Log.Info().Msg(i18n.T(i18n.MsgLogShuttingDown))
		case <-stop:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	// systray needs the main goroutine; Run returns after Quit.
	if tray.HasGUI() {
		tray.Run(addr, func() {
			logger.Log.Info().Msg(i18n.T(i18n.MsgLogUserExitTray))
			close(stop)
		})
	} else {
		output.Println(output.Colorize("dim", i18n.T(i18n.MsgCliTerminalNotice)))
	}

	if err := <-errCh; err != nil {
		logger.Log.Error().Err(err).Msg(i18n.T(i18n.MsgLogServiceStartFailed))
		return 1
	}
	logger.Log.Info().Msg(i18n.T(i18n.MsgLogServiceStopped))
	return 0
}

// seedInitialUser creates the admin given on the command line when the user
// table is still empty.
func seedInitialUser(username, password string) int {
	if username == "" || password == "" {
		return 0
	}
	userRepo := database.NewUserRepo()
	count, _ := userRepo.Count()
	if count > 0 {
		output.Println(i18n.T(i18n.MsgServeUserExists, map[string]interface{}{"Count": count}))
		return 0
	}
	if len(password) < 6 {
		output.Errorf("%s\n", i18n.T(i18n.MsgServePasswordTooShort))
		return 1
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgCliError, map[string]interface{}{"Error": err.Error()}))
		return 1
	}
	if err := userRepo.Create(&database.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         constants.RoleAdmin,
	}); err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgCliError, map[string]interface{}{"Error": err.Error()}))
		return 1
	}
	output.Println(i18n.T(i18n.MsgServeUserCreated, map[string]interface{}{"Username": username}))
	return 0
}

// ensureAdmin creates an admin with a random password on first start and
// returns the credentials to print. Both are empty when users exist.
func ensureAdmin() (string, string) {
	userRepo := database.NewUserRepo()
	if count, _ := userRepo.Count(); count > 0 {
		return "", ""
	}
	password := generateRandomPassword(10)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", ""
	}
	if err := userRepo.Create(&database.User{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         constants.RoleAdmin,
	}); err != nil {
		logger.Log.Error().Err(err).Msg("failed to create initial admin")
		return "", ""
	}
	logger.Log.Info().Msg(i18n.T(i18n.MsgLogAdminAutoCreated))
	return "admin", password
}

const boxWidth = 60

func padLine(content string) string {
	displayWidth := 0
	for _, r := range content {
		if r > 127 {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	padding := boxWidth - displayWidth
	if padding < 0 {
		padding = 0
	}
	return content + strings.Repeat(" ", padding)
}

func printBanner(cfg webconfig.Config, username, password string) {
	line := func(s string) { output.Printf("  ║  %s║\n", padLine(s)) }
	sep := strings.Repeat("═", boxWidth+2)

	output.Printf("\n  ╔%s╗\n", sep)
	line(fmt.Sprintf("AccessDeck %s", version.Version))
	output.Printf("  ╠%s╣\n", sep)

	bindAll := cfg.Server.Bind == "0.0.0.0" || cfg.Server.Bind == ""
	if bindAll {
		line(i18n.T(i18n.MsgServeBindAllWarning))
		output.Printf("  ╟%s╢\n", strings.Repeat("─", boxWidth+2))
	}
	if username != "" {
		line(i18n.T(i18n.MsgServeFirstTimeSetup))
		line("")
		line(i18n.T(i18n.MsgServeUsernameLabel, map[string]interface{}{"Username": username}))
		line(i18n.T(i18n.MsgServePasswordLabel, map[string]interface{}{"Password": password}))
		line("")
		line(i18n.T(i18n.MsgServeChangePasswordHint))
		output.Printf("  ╟%s╢\n", strings.Repeat("─", boxWidth+2))
	}

	if bindAll {
		line(fmt.Sprintf("➜ http://localhost:%d", cfg.Server.Port))
		if addrs, err := net.InterfaceAddrs(); err == nil {
			for _, a := range addrs {
				if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
					line(fmt.Sprintf("➜ http://%s:%d", ipnet.IP.String(), cfg.Server.Port))
				}
			}
		}
	} else {
		line(fmt.Sprintf("➜ http://%s:%d", cfg.Server.Bind, cfg.Server.Port))
	}
	output.Printf("  ╚%s╝\n\n", sep)
}

func isLoopback(bind string) bool {
	b := strings.ToLower(strings.TrimSpace(bind))
	if b == "localhost" {
		return true
	}
	ip := net.ParseIP(b)
	return ip != nil && ip.IsLoopback()
}

func serveIndex(w http.ResponseWriter, fsys fs.FS) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, i18n.T(i18n.MsgServeHtmlIndexNotFound))
		return
	}
	w.Write(data)
}

func spaHandler() http.HandlerFunc {
	fsys, err := fs.Sub(web.StaticFS, "dist")
	if err != nil {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, i18n.T(i18n.MsgServeHtmlIndexNotFound))
		}
	}
	fileServer := http.FileServer(http.FS(fsys))

	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" || strings.HasPrefix(path, "api/") {
			if path != "" {
				web.FailErr(w, r, web.ErrNotFound)
				return
			}
			serveIndex(w, fsys)
			return
		}

		f, err := fsys.Open(path)
		if err == nil {
			stat, _ := f.Stat()
			f.Close()
			if stat != nil && !stat.IsDir() {
				switch strings.ToLower(filepath.Ext(path)) {
				case ".html":
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
				case ".css":
					w.Header().Set("Content-Type", "text/css; charset=utf-8")
				case ".js":
					w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
				case ".json":
					w.Header().Set("Content-Type", "application/json; charset=utf-8")
				}
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		serveIndex(w, fsys)
	}
}

func generateRandomPassword(length int) string {
	const charset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, length)
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		for i := range b {
			b[i] = charset[time.Now().UnixNano()%int64(len(charset))]
			time.Sleep(time.Nanosecond)
		}
		return string(b)
	}
	for i := range b {
		b[i] = charset[int(randomBytes[i])%len(charset)]
	}
	return string(b)
}
