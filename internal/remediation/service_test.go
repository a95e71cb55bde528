package remediation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"AccessDeck/internal/cache"
	"AccessDeck/internal/database"
	"AccessDeck/internal/i18n"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_ = i18n.Init()
	os.Exit(m.Run())
}

type hubEvent struct {
	user    uint
	channel string
	typ     string
	data    interface{}
}

type recordingHub struct {
	mu     sync.Mutex
	events []hubEvent
}

func (h *recordingHub) BroadcastTo(userID uint, channel, msgType string, data interface{}) {
	h.mu.Lock()
	h.events = append(h.events, hubEvent{userID, channel, msgType, data})
	h.mu.Unlock()
}

func (h *recordingHub) states() []State {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []State
	for _, e := range h.events {
		if e.typ == "state" {
			out = append(out, e.data.(map[string]interface{})["to"].(State))
		}
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Send(text string) {
	n.mu.Lock()
	n.texts = append(n.texts, text)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.texts)
}

type fakeBackend struct {
	analyzeHits  int32
	failAnalyze  atomic.Bool
	failRecheck  atomic.Bool
	failDownload atomic.Bool
	downloadHits int32
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload-document", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.analyzeHits, 1)
		_, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if strings.HasPrefix(hdr.Filename, "fixed-") {
			if b.failRecheck.Load() {
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "recheck unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"results":     []interface{}{map[string]string{"rule": "Alt text", "status": "passed"}},
				"remediation": map[string]interface{}{"tagsFixed": true},
			})
			return
		}
		if b.failAnalyze.Load() {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analysis crashed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
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
		atomic.AddInt32(&b.downloadHits, 1)
		if b.failDownload.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "download unavailable"})
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="fixed-essay.docx"`)
		_, _ = w.Write([]byte("remediated bytes"))
	})
	return mux
}

type serviceFixture struct {
	svc      *Service
	backend  *fakeBackend
	hub      *recordingHub
	notifier *recordingNotifier
	demo     atomic.Bool
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	require.NoError(t, database.InitMemory())
	t.Cleanup(database.Close)

	f := &serviceFixture{backend: &fakeBackend{}, hub: &recordingHub{}, notifier: &recordingNotifier{}}
	srv := httptest.NewServer(f.backend.handler())
	t.Cleanup(srv.Close)

	f.svc = NewService(NewClient(srv.URL, testBackendConfig()), cache.NewMemory(), ServiceConfig{
		StorageDir:   t.TempDir(),
		DemoFallback: f.demo.Load,
	})
	f.svc.SetBroadcaster(f.hub)
	f.svc.SetNotifier(f.notifier)
	return f
}

var alice = Actor{ID: 1, Username: "alice", IP: "127.0.0.1"}

func essay() Upload {
	return Upload{Name: `C:\Users\alice\essay.docx`, Data: []byte("original essay")}
}

func TestServiceAnalyzePersistsRunAndCaches(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	v, err := f.svc.Analyze(ctx, alice, essay())
	require.NoError(t, err)
	assert.Equal(t, string(StateAnalyzed), v.Run.State)
	assert.Equal(t, "essay.docx", v.Run.FileName)
	assert.Equal(t, string(KindOffice), v.Run.FileType)
	assert.Equal(t, 1, v.Run.FixedCount)
	assert.Equal(t, 1, v.Run.FlaggedCount)
	assert.Len(t, v.Fixed, 1)
	assert.Equal(t, Summary{SuccessCount: 1, FailedCount: 1}, v.Summary)
	assert.FileExists(t, v.Run.OriginalPath)
	assert.Equal(t, []State{StateUploading, StateAnalyzed}, f.hub.states())

	again, err := f.svc.Analyze(ctx, alice, essay())
	require.NoError(t, err)
	assert.NotEqual(t, v.Run.ID, again.Run.ID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.backend.analyzeHits))

	logs, total, err := database.NewAuditLogRepo().List(database.AuditFilter{Action: "remediation.analyze"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "alice", logs[0].Username)
}

func TestServiceAnalyzeRejectsBadInput(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Analyze(context.Background(), alice, Upload{Name: "photo.png", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = f.svc.Analyze(context.Background(), alice, Upload{Name: "a.pdf"})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestServiceAnalyzeFailureAndDemoFallback(t *testing.T) {
	f := newServiceFixture(t)
	f.backend.failAnalyze.Store(true)

	_, err := f.svc.Analyze(context.Background(), alice, essay())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "analysis crashed", apiErr.Message)

	runs, _, err := f.svc.List(database.RunFilter{OwnerID: alice.ID})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, string(StateFailed), runs[0].State)
	assert.Contains(t, runs[0].Error, "analysis crashed")

	f.demo.Store(true)
	v, err := f.svc.Analyze(context.Background(), alice, Upload{Name: "notes.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	assert.True(t, v.Run.Mock)
	assert.Equal(t, "PDF", v.Report.FileType)
	assert.Equal(t, "notes.pdf", v.Report.FileName)
}

func TestServiceRemediateWithRecheck(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	v, err := f.svc.Analyze(ctx, alice, essay())
	require.NoError(t, err)

	done, err := f.svc.Remediate(ctx, alice, v.Run.ID, true)
	require.NoError(t, err)
	assert.Equal(t, string(StateReconciled), done.Run.State)
	assert.True(t, done.Run.Authoritative)
	require.NotNil(t, done.Reconciliation)
	assert.Equal(t, 2, done.Reconciliation.Counts.Confirmed)
	assert.Equal(t, 1, done.Reconciliation.Counts.Resolved)
	assert.Empty(t, done.Flagged)
	assert.Equal(t, Summary{SuccessCount: 1}, done.Summary)

	name, path, err := f.svc.RemediatedFile(alice, v.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed-essay.docx", name)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "remediated bytes", string(data))

	assert.Equal(t, []State{
		StateUploading, StateAnalyzed, StateDownloading, StateDownloaded, StateRechecking, StateReconciled,
	}, f.hub.states())
	assert.Eventually(t, func() bool { return f.notifier.count() == 1 }, time.Second, 10*time.Millisecond)

	_, err = f.svc.Remediate(ctx, alice, v.Run.ID, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestServiceRemediateDegradesWhenRecheckFails(t *testing.T) {
	f := newServiceFixture(t)
	f.backend.failRecheck.Store(true)
	ctx := context.Background()
	v, err := f.svc.Analyze(ctx, alice, essay())
	require.NoError(t, err)

	done, err := f.svc.Remediate(ctx, alice, v.Run.ID, true)
	require.NoError(t, err)
	assert.Equal(t, string(StateReconciled), done.Run.State)
	assert.False(t, done.Run.Authoritative)
	assert.Contains(t, done.Run.Error, "re-check failed")
	assert.Equal(t, 1, done.Reconciliation.Counts.Unconfirmed)
}

func TestServiceFinishAndOwnership(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	v, err := f.svc.Analyze(ctx, alice, essay())
	require.NoError(t, err)

	bob := Actor{ID: 2, Username: "bob"}
	_, err = f.svc.Get(bob, v.Run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = f.svc.Finish(ctx, bob, v.Run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, _, err = f.svc.RemediatedFile(alice, v.Run.ID)
	assert.ErrorIs(t, err, ErrNotRemediated)

	done, err := f.svc.Finish(ctx, alice, v.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StateReconciled), done.Run.State)
	assert.False(t, done.Reconciliation.Authoritative)
	assert.Zero(t, atomic.LoadInt32(&f.backend.downloadHits))

	logs, total, err := database.NewAuditLogRepo().List(database.AuditFilter{Action: "remediation.finish"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "alice", logs[0].Username)
	assert.Equal(t, "essay.docx", logs[0].Detail)

	_, err = f.svc.Finish(ctx, alice, v.Run.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestServiceRemediateRejectsRunThatFailedAnalysis(t *testing.T) {
	f := newServiceFixture(t)
	f.backend.failAnalyze.Store(true)
	ctx := context.Background()

	_, err := f.svc.Analyze(ctx, alice, essay())
	require.Error(t, err)
	runs, _, err := f.svc.List(database.RunFilter{OwnerID: alice.ID})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	_, err = f.svc.Remediate(ctx, alice, runs[0].ID, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, []State{StateUploading, StateFailed}, f.hub.states())
	assert.Zero(t, atomic.LoadInt32(&f.backend.downloadHits))

	_, total, err := database.NewAuditLogRepo().List(database.AuditFilter{Action: "remediation.failed"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestServiceRemediateRetriesFailedDownload(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	v, err := f.svc.Analyze(ctx, alice, essay())
	require.NoError(t, err)

	f.backend.failDownload.Store(true)
	_, err = f.svc.Remediate(ctx, alice, v.Run.ID, true)
	require.Error(t, err)
	failed, err := f.svc.Get(alice, v.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StateFailed), failed.Run.State)
	assert.Contains(t, failed.Run.Error, "download unavailable")

	f.backend.failDownload.Store(false)
	done, err := f.svc.Remediate(ctx, alice, v.Run.ID, true)
	require.NoError(t, err)
	assert.Equal(t, string(StateReconciled), done.Run.State)
	assert.True(t, done.Run.Authoritative)
	assert.Empty(t, done.Run.Error)
	assert.EqualValues(t, 2, atomic.LoadInt32(&f.backend.downloadHits))

	assert.Equal(t, []State{
		StateUploading, StateAnalyzed, StateDownloading, StateFailed,
		StateDownloading, StateDownloaded, StateRechecking, StateReconciled,
	}, f.hub.states())
}
