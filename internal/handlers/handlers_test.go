package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"AccessDeck/internal/batch"
	"AccessDeck/internal/cache"
	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/notify"
	"AccessDeck/internal/ocr"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/web"
	"AccessDeck/internal/webconfig"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	_ = i18n.Init()
	i18n.SetLanguage("en")
	os.Exit(m.Run())
}

type user struct {
	id   uint
	name string
	role string
}

var (
	admin = user{id: 1, name: "admin", role: constants.RoleAdmin}
	alice = user{id: 2, name: "alice", role: constants.RoleUser}
	bob   = user{id: 3, name: "bob", role: constants.RoleUser}
)

// fakeDocBackend answers the single-document endpoints.
func fakeDocBackend() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload-document", func(w http.ResponseWriter, r *http.Request) {
		_, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(hdr.Filename, "fixed-") {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []interface{}{map[string]string{"rule": "Alt text", "status": "passed"}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fileType": "Word Document",
			"results": []interface{}{
				map[string]string{"rule": "Alt text", "status": "failed"},
				map[string]string{"rule": "Title", "status": "passed"},
			},
			"remediation": map[string]interface{}{
				"altTextFixed":    true,
				"contrastFlagged": true,
				"downloadId":      "dl-1",
			},
		})
	})
	mux.HandleFunc("/api/download-document", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="fixed-essay.docx"`)
		w.Write([]byte("remediated bytes"))
	})
	return mux
}

// fakeBatchBackend implements batch.Backend in memory.
type fakeBatchBackend struct {
	mu      sync.Mutex
	created int
}

func (f *fakeBatchBackend) CreateSession(context.Context) (*remediation.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return &remediation.Session{SessionID: "sess-" + string(rune('a'+f.created-1)), ExpiresInSeconds: 600}, nil
}

func (f *fakeBatchBackend) KeepAlive(context.Context, string) error { return nil }

func (f *fakeBatchBackend) BatchUpload(_ context.Context, id string, files []remediation.UploadFile, _ remediation.ProgressFunc) (*remediation.BatchResult, error) {
	res := &remediation.BatchResult{SessionID: id}
	for _, file := range files {
		res.Files = append(res.Files, remediation.BatchFileResult{FileName: file.Name, Status: "processed"})
	}
	return res, nil
}

func (f *fakeBatchBackend) BatchDownload(context.Context, string) (*remediation.Blob, error) {
	return &remediation.Blob{FileName: "remediated-files.zip", ContentType: "application/zip", Data: []byte("PK")}, nil
}

type stubEngine struct{ text string }

func (e stubEngine) Name() string { return "stub" }

func (e stubEngine) Recognize(context.Context, ocr.Input) (ocr.Result, error) {
	return ocr.Result{Text: e.text, Confidence: 0.87}, nil
}

type fixture struct {
	cfg      *webconfig.Config
	router   *web.Router
	settings *SettingsHandler
}

// newFixture wires every handler onto a router backed by an in-memory
// database and fake backends.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, database.InitMemory())
	t.Cleanup(database.Close)

	backend := httptest.NewServer(fakeDocBackend())
	t.Cleanup(backend.Close)

	def := webconfig.Default()
	cfg := &def
	cfg.Auth.JWTSecret = "handlers-test-secret-handlers-test"
	cfg.Auth.JWTExpire = time.Hour
	cfg.Storage.Dir = t.TempDir()
	backendCfg := cfg.Backend
	backendCfg.Timeout = 5 * time.Second
	backendCfg.RateLimit = 1000
	backendCfg.Burst = 100

	notifyMgr := notify.NewManager()
	settings := NewSettingsHandler(notifyMgr, false)

	svc := remediation.NewService(remediation.NewClient(backend.URL, backendCfg), cache.NewMemory(), remediation.ServiceConfig{
		StorageDir:   cfg.Storage.Dir,
		DemoFallback: settings.DemoFallback,
	})
	mgr := batch.NewManager(&fakeBatchBackend{}, webconfig.BatchConfig{
		KeepAliveInterval:    time.Hour,
		MaxKeepAliveFailures: 3,
		IdleTimeout:          time.Hour,
	})
	t.Cleanup(mgr.Shutdown)
	ocrSvc := ocr.NewService(stubEngine{text: "Essay 3\nDue Friday"}, nil, 0)

	authH := NewAuthHandler(cfg)
	remH := NewRemediationHandler(svc, true)
	batchH := NewBatchHandler(mgr)
	ocrH := NewOCRHandler(ocrSvc)
	assignH := NewAssignmentHandler(ocrSvc)
	prefH := NewPreferencesHandler()
	helpH := NewHelpHandler()
	historyH := NewHistoryHandler()
	auditH := NewAuditHandler()
	dashH := NewDashboardHandler(backend.URL)

	rt := web.NewRouter()
	rt.POST("/api/v1/auth/login", authH.Login)
	rt.POST("/api/v1/auth/logout", authH.Logout)
	rt.GET("/api/v1/auth/me", authH.Me)
	rt.PUT("/api/v1/auth/password", authH.ChangePassword)

	rt.POST("/api/v1/remediations", remH.Analyze)
	rt.GET("/api/v1/remediations", remH.List)
	rt.GET("/api/v1/remediations/{id}", remH.Get)
	rt.POST("/api/v1/remediations/{id}/remediate", remH.Remediate)
	rt.POST("/api/v1/remediations/{id}/finish", remH.Finish)
	rt.GET("/api/v1/remediations/{id}/download", remH.Download)

	rt.POST("/api/v1/batch/sessions", batchH.Create)
	rt.GET("/api/v1/batch/sessions", batchH.List)
	rt.GET("/api/v1/batch/sessions/{id}", batchH.Get)
	rt.POST("/api/v1/batch/sessions/{id}/upload", batchH.Upload)
	rt.GET("/api/v1/batch/sessions/{id}/download", batchH.Download)
	rt.DELETE("/api/v1/batch/sessions/{id}", batchH.Close)

	rt.POST("/api/v1/ocr", ocrH.Extract)

	rt.GET("/api/v1/assignments", assignH.List)
	rt.POST("/api/v1/assignments", assignH.Create)
	rt.POST("/api/v1/assignments/scan", assignH.Scan)
	rt.GET("/api/v1/assignments/{id}", assignH.Get)
	rt.PUT("/api/v1/assignments/{id}", assignH.Update)
	rt.DELETE("/api/v1/assignments/{id}", assignH.Delete)

	rt.GET("/api/v1/preferences", prefH.Get)
	rt.PUT("/api/v1/preferences", prefH.Update)
	rt.GET("/api/v1/settings", web.RequireAdmin(settings.GetAll))
	rt.PUT("/api/v1/settings", web.RequireAdmin(settings.Update))
	rt.GET("/api/v1/help/unblock", helpH.Unblock)
	rt.GET("/api/v1/about", helpH.About)
	rt.GET("/api/v1/history", historyH.List)
	rt.GET("/api/v1/audit-logs", auditH.List)
	rt.GET("/api/v1/dashboard", dashH.Get)

	return &fixture{cfg: cfg, router: rt, settings: settings}
}

// seedUser stores a user with a low-cost password hash.
func seedUser(t *testing.T, u user, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, database.NewUserRepo().Create(&database.User{
		ID: u.id, Username: u.name, PasswordHash: string(hash), Role: u.role,
	}))
}

// do serves req as u; the zero user sends no claims.
func (f *fixture) do(u user, req *http.Request) *httptest.ResponseRecorder {
	if u.id != 0 {
		req = web.WithClaims(req, &web.Claims{UserID: u.id, Username: u.name, Role: u.role})
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) json(u user, method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.do(u, req)
}

type part struct {
	field, name string
	data        []byte
}

func (f *fixture) multipart(u user, path string, parts ...part) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, _ := mw.CreateFormFile(p.field, p.name)
		fw.Write(p.data)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.do(u, req)
}

// envelope is the decoded web.Response with Data left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *web.ErrorBody  `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, rec, nil)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	return env.Error.Code
}

type page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
