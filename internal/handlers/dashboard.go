package handlers

import (
	"net/http"
	"time"

	"AccessDeck/internal/batch"
	"AccessDeck/internal/database"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/web"
)

// DashboardHandler serves the dashboard overview.
type DashboardHandler struct {
	runRepo        *database.RemediationRunRepo
	batchRepo      *database.BatchRepo
	assignmentRepo *database.AssignmentRepo
	backendURL     string
}

func NewDashboardHandler(backendURL string) *DashboardHandler {
	return &DashboardHandler{
		runRepo:        database.NewRemediationRunRepo(),
		batchRepo:      database.NewBatchRepo(),
		assignmentRepo: database.NewAssignmentRepo(),
		backendURL:     backendURL,
	}
}

// DashboardResponse is the aggregated dashboard data.
type DashboardResponse struct {
	Runs           RunSummary                `json:"runs"`
	ActiveSessions int64                     `json:"active_sessions"`
	Assignments    int64                     `json:"assignments"`
	RecentRuns     []database.RemediationRun `json:"recent_runs"`
	Backend        string                    `json:"backend"`
}

// RunSummary counts runs and issues over the last 30 days.
type RunSummary struct {
	Total       int64            `json:"total"`
	ByState     map[string]int64 `json:"by_state"`
	IssuesFixed int64            `json:"issues_fixed"`
	Flagged     int64            `json:"issues_flagged"`
	Confirmed   int64            `json:"fixes_confirmed"`
}

// Get returns aggregated dashboard data for the caller.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := web.GetUserID(r)

	summary := h.runSummary(uid, time.Now().UTC().Add(-30*24*time.Hour))

	active, err := h.batchRepo.CountActive(uid, batch.StateActive)
	if err != nil {
		active = 0
	}
	assignments, err := h.assignmentRepo.Count(uid)
	if err != nil {
		assignments = 0
	}

	// recent runs (latest 5)
	recent, err := h.runRepo.Recent(uid, 5)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("failed to get recent runs")
		recent = []database.RemediationRun{}
	}

	web.OK(w, r, DashboardResponse{
		Runs:           summary,
		ActiveSessions: active,
		Assignments:    assignments,
		RecentRuns:     recent,
		Backend:        h.backendURL,
	})
}

func (h *DashboardHandler) runSummary(uid uint, since time.Time) RunSummary {
	byState, err := h.runRepo.CountByState(uid, since)
	if err != nil {
		byState = map[string]int64{}
	}
	var total int64
	for _, n := range byState {
		total += n
	}
	fixed, flagged, confirmed, err := h.runRepo.IssueTotals(uid, since)
	if err != nil {
		fixed, flagged, confirmed = 0, 0, 0
	}
	return RunSummary{
		Total:       total,
		ByState:     byState,
		IssuesFixed: fixed,
		Flagged:     flagged,
		Confirmed:   confirmed,
	}
}
