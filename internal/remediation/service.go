package remediation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"AccessDeck/internal/cache"
	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRunNotFound   = errors.New("remediation run not found")
	ErrNotRemediated = errors.New("run has no remediated file")
	ErrEmptyFile     = errors.New("empty file")
)

// Backend is the part of Client the service needs.
type Backend interface {
	Analyze(ctx context.Context, name string, data []byte, progress ProgressFunc) (*Report, error)
	Download(ctx context.Context, report *Report, name string, data []byte) (*Blob, error)
}

type Broadcaster interface {
	BroadcastTo(userID uint, channel, msgType string, data interface{})
}

type Notifier interface {
	Send(text string)
}

// Actor identifies who triggered an operation, for ownership and audit.
type Actor struct {
	ID       uint
	Username string
	IP       string
}

type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

type ServiceConfig struct {
	StorageDir string
	CacheTTL   time.Duration
	// DemoFallback is consulted on every backend failure.
	DemoFallback func() bool
}

// RunView is a run together with its decoded report and issue lists.
type RunView struct {
	Run            *database.RemediationRun `json:"run"`
	Report         *Report                  `json:"report,omitempty"`
	Summary        Summary                  `json:"summary"`
	Fixed          []Issue                  `json:"fixed"`
	Flagged        []Issue                  `json:"flagged"`
	Reconciliation *Reconciliation          `json:"reconciliation,omitempty"`
	UnblockCommand string                   `json:"unblockCommand,omitempty"`
}

type Service struct {
	backend  Backend
	cache    cache.Cache
	cfg      ServiceConfig
	runs     *database.RemediationRunRepo
	audit    *database.AuditLogRepo
	hub      Broadcaster
	notifier Notifier
	metrics  *metrics.Registry

	mu   sync.Mutex
	busy map[uint]bool
}

func NewService(backend Backend, c cache.Cache, cfg ServiceConfig) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if cfg.DemoFallback == nil {
		cfg.DemoFallback = func() bool { return false }
	}
	return &Service{
		backend: backend,
		cache:   c,
		cfg:     cfg,
		runs:    database.NewRemediationRunRepo(),
		audit:   database.NewAuditLogRepo(),
		busy:    make(map[uint]bool),
	}
}

func (s *Service) SetBroadcaster(b Broadcaster)   { s.hub = b }
func (s *Service) SetNotifier(n Notifier)         { s.notifier = n }
func (s *Service) SetMetrics(m *metrics.Registry) { s.metrics = m }

// Analyze validates and stores the upload, asks the backend (or the report
// cache) for a report and persists the run in state analyzed.
func (s *Service) Analyze(ctx context.Context, actor Actor, up Upload) (*RunView, error) {
	kind, err := DetectKind(up.Name, up.ContentType)
	if err != nil {
		return nil, err
	}
	if len(up.Data) == 0 {
		return nil, ErrEmptyFile
	}

	sum := sha256.Sum256(up.Data)
	run := &database.RemediationRun{
		UID:      uuid.NewString(),
		OwnerID:  actor.ID,
		FileName: safeName(up.Name),
		FileType: string(kind),
		SHA256:   hex.EncodeToString(sum[:]),
		State:    string(StateIdle),
	}
	if err := s.runs.Create(run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	m := NewMachine()
	s.track(m, run)
	if err := m.To(StateUploading); err != nil {
		return nil, err
	}

	path, err := s.store(run.UID, "original", run.FileName, up.Data)
	if err != nil {
		return nil, s.fail(m, run, actor, err)
	}
	run.OriginalPath = path
	s.save(run)

	report := s.cachedReport(ctx, run.SHA256)
	if report == nil {
		report, err = s.backend.Analyze(ctx, run.FileName, up.Data, s.progress(run, "upload"))
		if err != nil {
			if !s.cfg.DemoFallback() {
				return nil, s.fail(m, run, actor, err)
			}
			logger.Remediation.Warn().Err(err).Str("file", run.FileName).Msg(i18n.T(i18n.MsgLogDemoFallbackServing))
			mock := MockReport(run.FileName)
			report = &mock
		} else {
			s.cacheReport(ctx, run.SHA256, report)
		}
	}
	report.FileName = run.FileName

	raw, err := json.Marshal(report)
	if err != nil {
		return nil, s.fail(m, run, actor, err)
	}
	fixed, flagged := Split(Flatten(report.Remediation))
	run.ReportJSON = string(raw)
	run.Mock = report.Mock
	run.DocumentProtected = report.DocumentProtected
	run.FixedCount = len(fixed)
	run.FlaggedCount = len(flagged)
	if err := m.To(StateAnalyzed); err != nil {
		return nil, err
	}
	s.save(run)
	s.record(actor, constants.ActionAnalyze, "success", run.FileName)

	return s.view(run)
}

// Remediate downloads the fixed file and, when recheck is set, re-submits it
// for an authoritative report. A failed re-check degrades to the estimate.
func (s *Service) Remediate(ctx context.Context, actor Actor, runID uint, recheck bool) (*RunView, error) {
	run, err := s.load(runID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !s.acquire(run.ID) {
		return nil, fmt.Errorf("%w: run %d is busy", ErrInvalidTransition, run.ID)
	}
	defer s.release(run.ID)

	if run.ReportJSON == "" {
		return nil, fmt.Errorf("%w: run %d has no report", ErrInvalidTransition, run.ID)
	}

	m := RestoreMachine(State(run.State))
	s.track(m, run)
	if err := m.To(StateDownloading); err != nil {
		return nil, err
	}
	run.Error = ""
	s.save(run)

	report, err := decodeReport(run.ReportJSON)
	if err != nil {
		return nil, s.fail(m, run, actor, err)
	}
	original, err := os.ReadFile(run.OriginalPath)
	if err != nil {
		return nil, s.fail(m, run, actor, fmt.Errorf("read original: %w", err))
	}

	blob, err := s.backend.Download(ctx, report, run.FileName, original)
	if err != nil {
		return nil, s.fail(m, run, actor, err)
	}
	name := safeName(blob.FileName)
	path, err := s.store(run.UID, "remediated", name, blob.Data)
	if err != nil {
		return nil, s.fail(m, run, actor, err)
	}
	run.RemediatedPath = path
	run.RemediatedName = name
	if err := m.To(StateDownloaded); err != nil {
		return nil, err
	}
	s.save(run)

	var recheckReport *Report
	if recheck {
		if err := m.To(StateRechecking); err != nil {
			return nil, err
		}
		s.save(run)
		recheckReport, err = s.backend.Analyze(ctx, name, blob.Data, s.progress(run, "recheck"))
		if err != nil {
			logger.Remediation.Warn().Err(err).Str("run", run.UID).Msg("re-check failed, keeping estimate")
			run.Error = "re-check failed: " + err.Error()
			recheckReport = nil
		}
	}

	rec := Reconcile(*report, recheckReport)
	if err := s.applyReconciliation(run, rec); err != nil {
		return nil, s.fail(m, run, actor, err)
	}
	if err := m.To(StateReconciled); err != nil {
		return nil, err
	}
	s.save(run)
	s.record(actor, constants.ActionRemediate, "success", fmt.Sprintf("%s recheck=%t", run.FileName, recheck))
	s.notify(run, rec)

	return s.view(run)
}

// Finish closes an analyzed run without remediation.
func (s *Service) Finish(ctx context.Context, actor Actor, runID uint) (*RunView, error) {
	run, err := s.load(runID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !s.acquire(run.ID) {
		return nil, fmt.Errorf("%w: run %d is busy", ErrInvalidTransition, run.ID)
	}
	defer s.release(run.ID)

	m := RestoreMachine(State(run.State))
	s.track(m, run)
	if !CanTransition(m.State(), StateReconciled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.State(), StateReconciled)
	}
	report, err := decodeReport(run.ReportJSON)
	if err != nil {
		return nil, err
	}
	if err := s.applyReconciliation(run, Reconcile(*report, nil)); err != nil {
		return nil, err
	}
	if err := m.To(StateReconciled); err != nil {
		return nil, err
	}
	s.save(run)
	s.record(actor, constants.ActionFinish, "success", run.FileName)
	return s.view(run)
}

func (s *Service) Get(actor Actor, runID uint) (*RunView, error) {
	run, err := s.load(runID, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.view(run)
}

func (s *Service) List(filter database.RunFilter) ([]database.RemediationRun, int64, error) {
	return s.runs.List(filter)
}

// RemediatedFile returns the stored blob of a remediated run.
func (s *Service) RemediatedFile(actor Actor, runID uint) (name, path string, err error) {
	run, err := s.load(runID, actor.ID)
	if err != nil {
		return "", "", err
	}
	if run.RemediatedPath == "" {
		return "", "", ErrNotRemediated
	}
	if _, err := os.Stat(run.RemediatedPath); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNotRemediated, err)
	}
	return run.RemediatedName, run.RemediatedPath, nil
}

func (s *Service) load(runID, owner uint) (*database.RemediationRun, error) {
	run, err := s.runs.GetForOwner(runID, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func (s *Service) acquire(id uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[id] {
		return false
	}
	s.busy[id] = true
	return true
}

func (s *Service) release(id uint) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
}

// track mirrors machine transitions onto the run and the owner's websocket.
func (s *Service) track(m *Machine, run *database.RemediationRun) {
	m.Observe(func(t Transition) {
		run.State = string(t.To)
		if t.Error != "" {
			run.Error = t.Error
		}
		s.broadcast(run.OwnerID, "state", map[string]interface{}{
			"runId":    run.ID,
			"uid":      run.UID,
			"fileName": run.FileName,
			"from":     t.From,
			"to":       t.To,
			"error":    t.Error,
			"at":       t.At,
		})
		if t.To == StateReconciled || t.To == StateFailed {
			s.metrics.RunFinished(string(t.To))
		}
	})
}

func (s *Service) progress(run *database.RemediationRun, stage string) ProgressFunc {
	return func(percent int) {
		s.broadcast(run.OwnerID, "progress", map[string]interface{}{
			"runId":   run.ID,
			"stage":   stage,
			"percent": percent,
		})
	}
}

func (s *Service) broadcast(owner uint, msgType string, data interface{}) {
	if s.hub != nil {
		s.hub.BroadcastTo(owner, constants.ChannelRemediation, msgType, data)
	}
}

func (s *Service) fail(m *Machine, run *database.RemediationRun, actor Actor, cause error) error {
	if err := m.Fail(cause); err != nil {
		logger.Remediation.Error().Err(err).Str("run", run.UID).Msg("cannot mark run failed")
	}
	s.save(run)
	s.record(actor, constants.ActionRemediationFail, "failed", run.FileName+": "+cause.Error())
	return cause
}

func (s *Service) save(run *database.RemediationRun) {
	if err := s.runs.Save(run); err != nil {
		logger.Remediation.Error().Err(err).Str("run", run.UID).Msg("save run failed")
	}
}

func (s *Service) record(actor Actor, action, result, detail string) {
	if err := s.audit.Create(&database.AuditLog{
		UserID:   actor.ID,
		Username: actor.Username,
		Action:   action,
		Result:   result,
		Detail:   detail,
		IP:       actor.IP,
	}); err != nil {
		logger.Remediation.Warn().Err(err).Str("action", action).Msg("audit write failed")
	}
}

func (s *Service) notify(run *database.RemediationRun, rec Reconciliation) {
	if s.notifier == nil {
		return
	}
	var text string
	if rec.Authoritative {
		text = i18n.T(i18n.MsgNotifyRunReconciled, map[string]interface{}{
			"File":      run.FileName,
			"Confirmed": rec.Counts.Confirmed,
			"Remaining": rec.Counts.Remaining,
		})
	} else {
		text = i18n.T(i18n.MsgNotifyRunEstimated, map[string]interface{}{
			"File":      run.FileName,
			"Estimated": rec.Counts.Estimated,
		})
	}
	go s.notifier.Send(text)
}

func (s *Service) applyReconciliation(run *database.RemediationRun, rec Reconciliation) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	run.ReconciliationJSON = string(raw)
	if rec.Recheck != nil {
		rr, err := json.Marshal(rec.Recheck)
		if err != nil {
			return err
		}
		run.RecheckJSON = string(rr)
	}
	run.Authoritative = rec.Authoritative
	run.DocumentProtected = rec.DocumentProtected
	run.FixedCount = len(rec.Fixed)
	run.FlaggedCount = len(rec.Flagged)
	run.ConfirmedCount = rec.Counts.Confirmed
	return nil
}

func (s *Service) view(run *database.RemediationRun) (*RunView, error) {
	v := &RunView{Run: run, Fixed: []Issue{}, Flagged: []Issue{}}
	if run.ReportJSON != "" {
		report, err := decodeReport(run.ReportJSON)
		if err != nil {
			return nil, err
		}
		fixed, flagged := Split(Flatten(report.Remediation))
		v.Report = report
		v.Summary = NormalizeSummary(*report)
		v.Fixed = nonNil(fixed)
		v.Flagged = nonNil(flagged)
	}
	if run.ReconciliationJSON != "" {
		var rec Reconciliation
		if err := json.Unmarshal([]byte(run.ReconciliationJSON), &rec); err != nil {
			return nil, fmt.Errorf("decode reconciliation: %w", err)
		}
		v.Reconciliation = &rec
		v.Summary = rec.Summary
		v.Fixed = nonNil(rec.Fixed)
		v.Flagged = nonNil(rec.Flagged)
	}
	if run.DocumentProtected {
		v.UnblockCommand = UnblockCommand(run.FileName)
	}
	return v, nil
}

func (s *Service) cachedReport(ctx context.Context, hash string) *Report {
	raw, ok, err := s.cache.Get(ctx, "report:"+hash)
	if err != nil {
		logger.Remediation.Warn().Err(err).Str("cache", s.cache.Kind()).Msg("report cache read failed")
		return nil
	}
	s.metrics.CacheLookup(s.cache.Kind(), ok)
	if !ok {
		return nil
	}
	report, err := ParseReport(raw)
	if err != nil {
		return nil
	}
	return report
}

func (s *Service) cacheReport(ctx context.Context, hash string, report *Report) {
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, "report:"+hash, raw, s.cfg.CacheTTL); err != nil {
		logger.Remediation.Warn().Err(err).Str("cache", s.cache.Kind()).Msg("report cache write failed")
	}
}

func (s *Service) store(uid, sub, name string, data []byte) (string, error) {
	dir := filepath.Join(s.cfg.StorageDir, uid, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	path := filepath.Join(dir, safeName(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", sub, err)
	}
	return path, nil
}

func decodeReport(raw string) (*Report, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: run has no report", ErrEmptyReport)
	}
	return ParseReport([]byte(raw))
}

// safeName keeps only the final path element of an uploaded file name.
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	switch name {
	case "", ".", "/", "..":
		return "document"
	}
	return name
}
