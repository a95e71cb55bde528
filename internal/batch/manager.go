// Package batch manages backend batch sessions: creation, background
// keep-alive, multi-file upload and the zipped download of results.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/metrics"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/webconfig"

	"gorm.io/gorm"
)

const (
	StateActive  = "active"
	StateExpired = "expired"
	StateClosed  = "closed"

	keepAliveTimeout = 30 * time.Second
)

var (
	ErrNoFiles         = errors.New("no files selected")
	ErrNoSession       = errors.New("no session available")
	ErrSessionInactive = errors.New("batch session is no longer active")
)

// Backend is the session part of the remediation client.
type Backend interface {
	CreateSession(ctx context.Context) (*remediation.Session, error)
	KeepAlive(ctx context.Context, sessionID string) error
	BatchUpload(ctx context.Context, sessionID string, files []remediation.UploadFile, progress remediation.ProgressFunc) (*remediation.BatchResult, error)
	BatchDownload(ctx context.Context, sessionID string) (*remediation.Blob, error)
}

type UploadResult struct {
	Session *database.BatchSession `json:"session"`
	Files   []database.BatchFile   `json:"files"`
	Renamed bool                   `json:"renamed"`
}

type SessionDetail struct {
	Session *database.BatchSession `json:"session"`
	Files   []database.BatchFile   `json:"files"`
}

type keepAlive struct {
	id       string
	owner    uint
	lastUsed time.Time
	stopCh   chan struct{}
}

type Manager struct {
	backend  Backend
	cfg      webconfig.BatchConfig
	repo     *database.BatchRepo
	audit    *database.AuditLogRepo
	hub      remediation.Broadcaster
	notifier remediation.Notifier
	metrics  *metrics.Registry

	mu     sync.Mutex
	loops  map[string]*keepAlive
	closed bool
	wg     sync.WaitGroup
}

func NewManager(backend Backend, cfg webconfig.BatchConfig) *Manager {
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = 5 * time.Minute
	}
	if cfg.MaxKeepAliveFailures <= 0 {
		cfg.MaxKeepAliveFailures = 3
	}
	return &Manager{
		backend: backend,
		cfg:     cfg,
		repo:    database.NewBatchRepo(),
		audit:   database.NewAuditLogRepo(),
		loops:   make(map[string]*keepAlive),
	}
}

func (m *Manager) SetBroadcaster(b remediation.Broadcaster) { m.hub = b }
func (m *Manager) SetNotifier(n remediation.Notifier)       { m.notifier = n }
func (m *Manager) SetMetrics(r *metrics.Registry)           { m.metrics = r }

// ExpireStale marks sessions left active by a previous process as expired;
// their keep-alive loops died with it.
func (m *Manager) ExpireStale() (int64, error) {
	return m.repo.ExpireStale(StateActive, StateExpired)
}

// Create opens a backend session and starts keeping it alive.
func (m *Manager) Create(ctx context.Context, actor remediation.Actor) (*database.BatchSession, error) {
	s, err := m.backend.CreateSession(ctx)
	if err != nil {
		m.record(actor, constants.ActionBatchCreate, "failed", err.Error())
		return nil, err
	}
	now := time.Now().UTC()
	sess := &database.BatchSession{
		SessionID:        s.SessionID,
		OwnerID:          actor.ID,
		State:            StateActive,
		ExpiresInSeconds: s.ExpiresInSeconds,
		LastActivity:     now,
	}
	if err := m.repo.CreateSession(sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := m.start(sess.SessionID, actor.ID); err != nil {
		return nil, err
	}
	m.record(actor, constants.ActionBatchCreate, "success", sess.SessionID)
	m.broadcast(actor.ID, "state", map[string]interface{}{"sessionId": sess.SessionID, "state": StateActive})
	logger.Batch.Info().Str("session", sess.SessionID).Int("expires_in", s.ExpiresInSeconds).Msg("batch session created")
	return sess, nil
}

// Upload forwards files to the backend session. The backend may answer with
// a new session id, in which case the session and its keep-alive follow it.
func (m *Manager) Upload(ctx context.Context, actor remediation.Actor, sessionID string, files []remediation.UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	sess, err := m.session(actor, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != StateActive {
		return nil, ErrSessionInactive
	}

	res, err := m.backend.BatchUpload(ctx, sess.SessionID, files, func(p int) {
		m.broadcast(actor.ID, "progress", map[string]interface{}{"sessionId": sess.SessionID, "percent": p})
	})
	if err != nil {
		m.record(actor, constants.ActionBatchUpload, "failed", err.Error())
		return nil, err
	}

	out := &UploadResult{}
	current := sess.SessionID
	if res.SessionID != "" && res.SessionID != current {
		if err := m.repo.Rename(current, res.SessionID); err != nil {
			return nil, fmt.Errorf("rename session: %w", err)
		}
		m.rename(current, res.SessionID)
		logger.Batch.Info().Str("from", current).Str("to", res.SessionID).Msg("batch session renewed")
		current = res.SessionID
		out.Renamed = true
	}

	rows := fileRows(files, res.Files)
	if err := m.repo.AddFiles(current, rows); err != nil {
		return nil, fmt.Errorf("persist batch files: %w", err)
	}
	m.touch(current)

	out.Files = rows
	if out.Session, err = m.repo.GetSession(current); err != nil {
		return nil, err
	}
	m.record(actor, constants.ActionBatchUpload, "success", fmt.Sprintf("%s files=%d", current, len(rows)))
	m.broadcast(actor.ID, "uploaded", map[string]interface{}{"sessionId": current, "files": rows})
	if m.notifier != nil {
		go m.notifier.Send(i18n.T(i18n.MsgNotifyBatchUploaded, map[string]interface{}{
			"Session": current,
			"Count":   len(rows),
		}))
	}
	return out, nil
}

// Download returns the zip of remediated files for the session.
func (m *Manager) Download(ctx context.Context, actor remediation.Actor, sessionID string) (*remediation.Blob, error) {
	sess, err := m.session(actor, sessionID)
	if err != nil {
		return nil, err
	}
	blob, err := m.backend.BatchDownload(ctx, sess.SessionID)
	if err != nil {
		m.record(actor, constants.ActionBatchDownload, "failed", err.Error())
		return nil, err
	}
	m.touch(sess.SessionID)
	m.record(actor, constants.ActionBatchDownload, "success", sess.SessionID)
	return blob, nil
}

func (m *Manager) Get(actor remediation.Actor, sessionID string) (*SessionDetail, error) {
	sess, err := m.session(actor, sessionID)
	if err != nil {
		return nil, err
	}
	files, err := m.repo.ListFiles(sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{Session: sess, Files: files}, nil
}

func (m *Manager) List(filter database.BatchFilter) ([]database.BatchSession, int64, error) {
	return m.repo.ListSessions(filter)
}

// Close stops the keep-alive and marks the session closed.
func (m *Manager) Close(actor remediation.Actor, sessionID string) error {
	sess, err := m.session(actor, sessionID)
	if err != nil {
		return err
	}
	if k := m.detach(sess.SessionID); k != nil {
		close(k.stopCh)
	}
	state := sess.State
	if state == StateActive {
		if err := m.repo.SetState(sess.SessionID, StateClosed); err != nil {
			return err
		}
		state = StateClosed
	}
	m.record(actor, constants.ActionBatchClose, "success", sess.SessionID)
	m.broadcast(actor.ID, "state", map[string]interface{}{"sessionId": sess.SessionID, "state": state})
	return nil
}

// Shutdown stops every keep-alive loop and waits for them to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	loops := m.loops
	m.loops = make(map[string]*keepAlive)
	m.mu.Unlock()

	for _, k := range loops {
		close(k.stopCh)
		m.metrics.SessionStopped()
	}
	m.wg.Wait()
}

// Active returns the ids of sessions with a running keep-alive.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.loops))
	for id := range m.loops {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) session(actor remediation.Actor, sessionID string) (*database.BatchSession, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	sess, err := m.repo.GetSession(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && sess.OwnerID != actor.ID) {
		return nil, ErrNoSession
	}
	return sess, err
}

func (m *Manager) start(sessionID string, owner uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("batch manager is shut down")
	}
	k := &keepAlive{id: sessionID, owner: owner, lastUsed: time.Now(), stopCh: make(chan struct{})}
	m.loops[sessionID] = k
	m.wg.Add(1)
	m.metrics.SessionStarted()
	go m.run(k)
	return nil
}

func (m *Manager) run(k *keepAlive) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.KeepAliveInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-k.stopCh:
			return
		case <-ticker.C:
		}

		id, idle := m.state(k)
		if idle {
			logger.Batch.Info().Str("session", id).Msg("closing idle batch session")
			m.finish(k, StateClosed)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), keepAliveTimeout)
		err := m.backend.KeepAlive(ctx, id)
		cancel()
		m.metrics.KeepAlive(err == nil)

		if err == nil {
			failures = 0
			now := time.Now().UTC()
			if err := m.repo.RecordKeepAlive(id, 0, &now); err != nil {
				logger.Batch.Warn().Err(err).Str("session", id).Msg("record keep-alive failed")
			}
			m.broadcast(k.owner, "keepalive", map[string]interface{}{"sessionId": id, "at": now})
			continue
		}

		failures++
		logger.Batch.Warn().Err(err).Str("session", id).Int("failures", failures).Msg(i18n.T(i18n.MsgLogKeepAliveFailed))
		if err := m.repo.RecordKeepAlive(id, failures, nil); err != nil {
			logger.Batch.Warn().Err(err).Str("session", id).Msg("record keep-alive failed")
		}
		if failures >= m.cfg.MaxKeepAliveFailures {
			logger.Batch.Warn().Str("session", id).Msg(i18n.T(i18n.MsgLogSessionExpired))
			m.finish(k, StateExpired)
			return
		}
	}
}

// state returns the loop's current session id and whether it went idle.
func (m *Manager) state(k *keepAlive) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idle := m.cfg.IdleTimeout > 0 && time.Since(k.lastUsed) >= m.cfg.IdleTimeout
	return k.id, idle
}

// finish ends a loop from inside it. A concurrent Close or Shutdown wins.
func (m *Manager) finish(k *keepAlive, state string) {
	m.mu.Lock()
	id := k.id
	owned := m.loops[id] == k
	if owned {
		delete(m.loops, id)
	}
	m.mu.Unlock()
	if !owned {
		return
	}
	m.metrics.SessionStopped()
	if err := m.repo.SetState(id, state); err != nil {
		logger.Batch.Error().Err(err).Str("session", id).Msg("update session state failed")
	}
	m.broadcast(k.owner, "state", map[string]interface{}{"sessionId": id, "state": state})
}

func (m *Manager) detach(sessionID string) *keepAlive {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.loops[sessionID]
	if k == nil {
		return nil
	}
	delete(m.loops, sessionID)
	m.metrics.SessionStopped()
	return k
}

func (m *Manager) rename(oldID, newID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k := m.loops[oldID]; k != nil {
		delete(m.loops, oldID)
		k.id = newID
		m.loops[newID] = k
	}
}

func (m *Manager) touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k := m.loops[sessionID]; k != nil {
		k.lastUsed = time.Now()
	}
}

func (m *Manager) broadcast(owner uint, msgType string, data interface{}) {
	if m.hub != nil {
		m.hub.BroadcastTo(owner, constants.ChannelBatch, msgType, data)
	}
}

func (m *Manager) record(actor remediation.Actor, action, result, detail string) {
	if err := m.audit.Create(&database.AuditLog{
		UserID:   actor.ID,
		Username: actor.Username,
		Action:   action,
		Result:   result,
		Detail:   detail,
		IP:       actor.IP,
	}); err != nil {
		logger.Batch.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

// fileRows pairs backend per-file results with the uploaded names. Files the
// backend did not report on are stored as uploaded.
func fileRows(uploaded []remediation.UploadFile, results []remediation.BatchFileResult) []database.BatchFile {
	rows := make([]database.BatchFile, 0, max(len(uploaded), len(results)))
	reported := make(map[string]bool, len(results))
	for i, r := range results {
		name := r.FileName
		if name == "" && i < len(uploaded) {
			name = uploaded[i].Name
		}
		status := r.Status
		if status == "" {
			status = "processed"
		}
		row := database.BatchFile{FileName: name, Status: status, Error: r.Error}
		if r.Summary != nil {
			if raw, err := json.Marshal(r.Summary); err == nil {
				row.SummaryJSON = string(raw)
			}
		}
		reported[name] = true
		rows = append(rows, row)
	}
	for _, f := range uploaded {
		if !reported[f.Name] {
			rows = append(rows, database.BatchFile{FileName: f.Name, Status: "uploaded"})
		}
	}
	return rows
}
