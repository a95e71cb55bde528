package handlers

import (
	"errors"
	"net/http"
	"strings"

	"AccessDeck/internal/batch"
	"AccessDeck/internal/database"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/web"
)

// BatchHandler manages multi-file backend sessions.
type BatchHandler struct {
	mgr *batch.Manager
}

func NewBatchHandler(mgr *batch.Manager) *BatchHandler {
	return &BatchHandler{mgr: mgr}
}

func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.mgr.Create(r.Context(), actorFrom(r))
	if err != nil {
		var apiErr *remediation.APIError
		if errors.As(err, &apiErr) {
			web.FailErr(w, r, web.ErrSessionCreateFail, apiErr.Message)
			return
		}
		failService(w, r, err)
		return
	}
	web.OK(w, r, sess)
}

func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	pq := web.ParsePageQuery(r)
	sessions, total, err := h.mgr.List(database.BatchFilter{
		PageFilter: database.PageFilter{Page: pq.Page, PageSize: pq.PageSize},
		OwnerID:    web.GetUserID(r),
		State:      strings.TrimSpace(r.URL.Query().Get("state")),
		SortOrder:  pq.SortOrder,
		StartTime:  pq.StartTime,
		EndTime:    pq.EndTime,
	})
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OKPage(w, r, sessions, total, pq.Page, pq.PageSize)
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.mgr.Get(actorFrom(r), web.PathParam(r, "id"))
	if err != nil {
		failService(w, r, err)
		return
	}
	web.OK(w, r, detail)
}

// Upload forwards the multipart "files[]" (or "files") parts to the session.
func (h *BatchHandler) Upload(w http.ResponseWriter, r *http.Request) {
	files, ok := readFiles(w, r, "files[]", "files")
	if !ok {
		return
	}
	res, err := h.mgr.Upload(r.Context(), actorFrom(r), web.PathParam(r, "id"), files)
	if err != nil {
		failService(w, r, err)
		return
	}
	web.OK(w, r, res)
}

// Download streams the zip of remediated files.
func (h *BatchHandler) Download(w http.ResponseWriter, r *http.Request) {
	blob, err := h.mgr.Download(r.Context(), actorFrom(r), web.PathParam(r, "id"))
	if err != nil {
		var apiErr *remediation.APIError
		if errors.As(err, &apiErr) {
			web.FailErr(w, r, web.ErrBatchDownloadFail, apiErr.Message)
			return
		}
		failService(w, r, err)
		return
	}
	attachment(w, blob.FileName, blob.ContentType, blob.Data)
}

func (h *BatchHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Close(actorFrom(r), web.PathParam(r, "id")); err != nil {
		failService(w, r, err)
		return
	}
	web.OK(w, r, map[string]string{"state": batch.StateClosed})
}
