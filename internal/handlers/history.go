package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"AccessDeck/internal/database"
	"AccessDeck/internal/web"
)

// HistoryHandler merges remediation runs and batch sessions into one timeline.
type HistoryHandler struct {
	runRepo   *database.RemediationRunRepo
	batchRepo *database.BatchRepo
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // run / batch
	State     string    `json:"state"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	Fixed     int       `json:"fixed,omitempty"`
	Flagged   int       `json:"flagged,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	created time.Time
}

// maxHistoryWindow bounds how many rows each source contributes to the merge.
const maxHistoryWindow = 1000

func NewHistoryHandler() *HistoryHandler {
	return &HistoryHandler{
		runRepo:   database.NewRemediationRunRepo(),
		batchRepo: database.NewBatchRepo(),
	}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	pq := web.ParsePageQuery(r)
	uid := web.GetUserID(r)
	typ := strings.TrimSpace(r.URL.Query().Get("type"))
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "all" {
		state = ""
	}

	keyword := strings.ToLower(pq.Keyword)
	// Both sources are read in the requested created_at order, so the first
	// page*pageSize rows of each are enough to build that page of the merge.
	fetchSize := pq.Page * pq.PageSize
	if fetchSize < 100 {
		fetchSize = 100
	}
	if fetchSize > maxHistoryWindow {
		fetchSize = maxHistoryWindow
	}

	var sourceTotal int64
	entries := make([]HistoryEntry, 0, fetchSize)
	if typ == "" || typ == "all" || typ == "run" {
		runs, n, err := h.runRepo.List(database.RunFilter{
			PageFilter: database.PageFilter{Page: 1, PageSize: fetchSize},
			OwnerID:    uid,
			State:      state,
			SortOrder:  pq.SortOrder,
			StartTime:  pq.StartTime,
			EndTime:    pq.EndTime,
		})
		if err != nil {
			web.FailErr(w, r, web.ErrDBQuery)
			return
		}
		sourceTotal += n
		for _, run := range runs {
			entries = append(entries, HistoryEntry{
				ID:        "run:" + strconv.FormatUint(uint64(run.ID), 10),
				Type:      "run",
				State:     run.State,
				Title:     run.FileName,
				Detail:    strings.TrimSpace(run.Error),
				Fixed:     run.FixedCount,
				Flagged:   run.FlaggedCount,
				Timestamp: run.UpdatedAt,
				created:   run.CreatedAt,
			})
		}
	}
	if typ == "" || typ == "all" || typ == "batch" {
		sessions, n, err := h.batchRepo.ListSessions(database.BatchFilter{
			PageFilter: database.PageFilter{Page: 1, PageSize: fetchSize},
			OwnerID:    uid,
			State:      state,
			SortOrder:  pq.SortOrder,
			StartTime:  pq.StartTime,
			EndTime:    pq.EndTime,
		})
		if err != nil {
			web.FailErr(w, r, web.ErrDBQuery)
			return
		}
		sourceTotal += n
		for _, s := range sessions {
			entries = append(entries, HistoryEntry{
				ID:        "batch:" + s.SessionID,
				Type:      "batch",
				State:     s.State,
				Title:     s.SessionID,
				Detail:    strconv.Itoa(s.FileCount) + " files",
				Timestamp: pickSessionTime(s),
				created:   s.CreatedAt,
			})
		}
	}

	filtered := entries[:0]
	for _, e := range entries {
		if keyword != "" && !strings.Contains(strings.ToLower(e.Title+" "+e.Detail), keyword) {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if pq.SortOrder == "asc" {
			return filtered[i].created.Before(filtered[j].created)
		}
		return filtered[i].created.After(filtered[j].created)
	})

	// Keyword matching happens after the fetch, so its total covers the window.
	total := sourceTotal
	if keyword != "" {
		total = int64(len(filtered))
	}
	start := (pq.Page - 1) * pq.PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pq.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	web.OKPage(w, r, filtered[start:end], total, pq.Page, pq.PageSize)
}

func pickSessionTime(s database.BatchSession) time.Time {
	if !s.LastActivity.IsZero() {
		return s.LastActivity
	}
	return s.CreatedAt
}
