package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"AccessDeck/internal/database"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/web"
)

// RemediationHandler exposes the single-document workflow: analyze,
// remediate, re-check and download.
type RemediationHandler struct {
	svc              *remediation.Service
	recheckByDefault bool
}

func NewRemediationHandler(svc *remediation.Service, recheckByDefault bool) *RemediationHandler {
	return &RemediationHandler{svc: svc, recheckByDefault: recheckByDefault}
}

// Analyze accepts a multipart "file" and returns the analyzed run.
func (h *RemediationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	up, ok := readFile(w, r, "file")
	if !ok {
		return
	}
	view, err := h.svc.Analyze(r.Context(), actorFrom(r), up)
	if err != nil {
		failService(w, r, err)
		return
	}
	web.OK(w, r, view)
}

func (h *RemediationHandler) List(w http.ResponseWriter, r *http.Request) {
	pq := web.ParsePageQuery(r)
	filter := database.RunFilter{
		PageFilter: database.PageFilter{Page: pq.Page, PageSize: pq.PageSize},
		OwnerID:    web.GetUserID(r),
		State:      strings.TrimSpace(r.URL.Query().Get("state")),
		Keyword:    pq.Keyword,
		SortOrder:  pq.SortOrder,
		StartTime:  pq.StartTime,
		EndTime:    pq.EndTime,
	}
	runs, total, err := h.svc.List(filter)
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OKPage(w, r, runs, total, pq.Page, pq.PageSize)
}

func (h *RemediationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}
	view, err := h.svc.Get(actorFrom(r), id)
	if err != nil {
		failService(w, r, err)
		return
	}
	web.OK(w, r, view)
}

type remediateRequest struct {
	Recheck *bool `json:"recheck"`
}

// Remediate downloads the fixed document and, unless recheck=false, submits
// it again for an authoritative count.
func (h *RemediationHandler) Remediate(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}
	recheck, ok := h.recheckParam(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}
	view, err := h.svc.Remediate(r.Context(), actorFrom(r), id, recheck)
	if err != nil {
		failService(w, r, err)
		return
	}
	web.OK(w, r, view)
}

// Finish closes an analyzed run without downloading a fixed file.
func (h *RemediationHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}
	view, err := h.svc.Finish(r.Context(), actorFrom(r), id)
	if err != nil {
		failService(w, r, err)
		return
	}
	web.OK(w, r, view)
}

func (h *RemediationHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}
	name, path, err := h.svc.RemediatedFile(actorFrom(r), id)
	if err != nil {
		failService(w, r, err)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		failService(w, r, remediation.ErrNotRemediated)
		return
	}
	attachment(w, name, mime.TypeByExtension(filepath.Ext(name)), data)
}

// recheckParam reads ?recheck= first, then a JSON body, then the default.
func (h *RemediationHandler) recheckParam(r *http.Request) (bool, bool) {
	if v := strings.TrimSpace(r.URL.Query().Get("recheck")); v != "" {
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	if r.Body != nil && r.ContentLength != 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req remediateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return false, false
		}
		if req.Recheck != nil {
			return *req.Recheck, true
		}
	}
	return h.recheckByDefault, true
}
