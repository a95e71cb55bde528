package remediation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"AccessDeck/internal/webconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackendConfig() webconfig.BackendConfig {
	cfg := webconfig.Default().Backend
	cfg.Timeout = 5 * time.Second
	cfg.RateLimit = 1000
	cfg.Burst = 100
	return cfg
}

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := testBackendConfig()
	cfg.Endpoints.UploadPDF = "/api/upload-pdf"
	return NewClient(srv.URL, cfg), srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientAnalyzeSendsMultipartAndReportsProgress(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload-document", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, "essay.docx", hdr.Filename)
		assert.Equal(t, "hello", string(data))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fileType":    "Word Document",
			"results":     []interface{}{map[string]string{"rule": "Title", "status": "passed"}},
			"remediation": map[string]interface{}{"altTextFixed": true, "downloadId": "dl-9"},
		})
	}))

	var mu sync.Mutex
	var progress []int
	report, err := c.Analyze(context.Background(), "essay.docx", []byte("hello"), func(p int) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, "essay.docx", report.FileName)
	assert.Equal(t, "dl-9", report.DownloadID)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestClientAnalyzeUsesPDFEndpoint(t *testing.T) {
	var path atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": []interface{}{}})
	}))
	_, err := c.Analyze(context.Background(), "scan.PDF", []byte("%PDF"), nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/upload-pdf", path.Load())
}

func TestClientAPIErrorCarriesBackendMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is encrypted"})
	}))
	_, err := c.Analyze(context.Background(), "a.docx", []byte("x"), nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "file is encrypted", apiErr.Message)
	assert.Contains(t, apiErr.Body, "encrypted")
}

func TestClientBreakerOpensOnServerErrorsOnly(t *testing.T) {
	var hits int32
	status := int32(http.StatusBadRequest)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Analyze(ctx, "a.pdf", []byte("x"), nil)
		require.Error(t, err)
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(&hits))

	atomic.StoreInt32(&status, http.StatusInternalServerError)
	for i := 0; i < 3; i++ {
		_, err := c.Analyze(ctx, "a.pdf", []byte("x"), nil)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "Internal Server Error", apiErr.Message)
	}
	_, err := c.Analyze(ctx, "a.pdf", []byte("x"), nil)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.EqualValues(t, 8, atomic.LoadInt32(&hits))
}

func TestClientTransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, testBackendConfig())
	_, err := c.Analyze(context.Background(), "a.pdf", []byte("x"), nil)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestClientDownloadByID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/download-document", r.URL.Path)
		assert.Equal(t, "dl 1", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="../fixed.pdf"`)
		_, _ = w.Write([]byte("fixed"))
	}))

	blob, err := c.Download(context.Background(), &Report{DownloadID: "dl 1"}, "a.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed.pdf", blob.FileName)
	assert.Equal(t, "application/pdf", blob.ContentType)
	assert.Equal(t, "fixed", string(blob.Data))
}

func TestClientDownloadPostsOriginalWithoutID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		_, _ = w.Write(append([]byte("fixed-"), data...))
	}))

	blob, err := c.Download(context.Background(), &Report{}, "dir/essay.docx", []byte("orig"))
	require.NoError(t, err)
	assert.Equal(t, "remediated-essay.docx", blob.FileName)
	assert.Equal(t, "fixed-orig", string(blob.Data))
}

func TestClientSessionLifecycle(t *testing.T) {
	var keepAliveID atomic.Value
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session":
			if id := r.Header.Get("X-Session-ID"); id != "" {
				keepAliveID.Store(id)
				writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"sessionId": "s1", "expiresInSeconds": 900})
		case "/api/batch-upload":
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				return
			}
			assert.Equal(t, "s1", r.FormValue("sessionId"))
			assert.Len(t, r.MultipartForm.File["files[]"], 2)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"sessionId": "s2",
				"files": []interface{}{
					map[string]interface{}{"name": "a.pdf", "status": "processed", "summary": map[string]int{"successCount": 3}},
					map[string]interface{}{"fileName": "b.docx", "status": "error", "error": "locked"},
				},
			})
		case "/api/batch-download":
			assert.Equal(t, "s2", r.URL.Query().Get("sessionId"))
			assert.Equal(t, "s2", r.Header.Get("X-Session-ID"))
			_, _ = w.Write([]byte("PK\x03\x04"))
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	s, err := c.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, Session{SessionID: "s1", ExpiresInSeconds: 900}, *s)

	require.NoError(t, c.KeepAlive(ctx, "s1"))
	assert.Equal(t, "s1", keepAliveID.Load())

	res, err := c.BatchUpload(ctx, "s1", []UploadFile{{Name: "a.pdf", Data: []byte("1")}, {Name: "b.docx", Data: []byte("2")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "s2", res.SessionID)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "a.pdf", res.Files[0].FileName)
	require.NotNil(t, res.Files[0].Summary)
	assert.Equal(t, 3, res.Files[0].Summary.SuccessCount)
	assert.Equal(t, "locked", res.Files[1].Error)
	assert.Contains(t, string(res.Files[1].Raw), "b.docx")

	blob, err := c.BatchDownload(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "remediated-files.zip", blob.FileName)
	assert.Equal(t, "PK\x03\x04", string(blob.Data))
}

func TestClientCreateSessionRequiresID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	}))
	_, err := c.CreateSession(context.Background())
	assert.Error(t, err)
}
