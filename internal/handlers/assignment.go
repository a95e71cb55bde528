package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/ocr"
	"AccessDeck/internal/web"

	"gorm.io/gorm"
)

// AssignmentHandler manages assignment records CRUD. Records are private to
// their owner; other users' ids answer 404.
type AssignmentHandler struct {
	repo      *database.AssignmentRepo
	auditRepo *database.AuditLogRepo
	ocr       *OCRHandler
}

func NewAssignmentHandler(ocrSvc *ocr.Service) *AssignmentHandler {
	return &AssignmentHandler{
		repo:      database.NewAssignmentRepo(),
		auditRepo: database.NewAuditLogRepo(),
		ocr:       NewOCRHandler(ocrSvc),
	}
}

// List returns the caller's assignments, filtered by ?keyword= and ?class=.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	pq := web.ParsePageQuery(r)
	list, total, err := h.repo.List(database.AssignmentFilter{
		PageFilter: database.PageFilter{Page: pq.Page, PageSize: pq.PageSize},
		OwnerID:    web.GetUserID(r),
		Class:      strings.TrimSpace(r.URL.Query().Get("class")),
		Keyword:    pq.Keyword,
	})
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OKPage(w, r, list, total, pq.Page, pq.PageSize)
}

func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r)
	if !ok {
		return
	}
	web.OK(w, r, a)
}

// assignmentRequest is the JSON body for create and update. Nil fields are
// left untouched on update.
type assignmentRequest struct {
	Name          *string `json:"name"`
	Class         *string `json:"class"`
	ExtractedText *string `json:"extractedText"`
}

func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	a := &database.Assignment{
		OwnerID:       web.GetUserID(r),
		Name:          trimmed(req.Name),
		Class:         trimmed(req.Class),
		ExtractedText: trimmed(req.ExtractedText),
	}
	if !complete(a) {
		web.FailErr(w, r, web.ErrAssignmentRequired)
		return
	}
	if err := h.repo.Create(a); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	h.audit(r, constants.ActionAssignmentCreate, a)
	web.OK(w, r, a)
}

// Update applies a partial update; the result must still carry every
// required field.
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := h.load(w, r)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if req.Name != nil {
		a.Name = trimmed(req.Name)
	}
	if req.Class != nil {
		a.Class = trimmed(req.Class)
	}
	if req.ExtractedText != nil {
		a.ExtractedText = trimmed(req.ExtractedText)
	}
	if !complete(a) {
		web.FailErr(w, r, web.ErrAssignmentRequired)
		return
	}
	if err := h.repo.Update(a); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	h.audit(r, constants.ActionAssignmentUpdate, a)
	web.OK(w, r, a)
}

func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}
	if err := h.repo.Delete(id, web.GetUserID(r)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			web.FailErr(w, r, web.ErrNotFound)
			return
		}
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	h.audit(r, constants.ActionAssignmentDelete, &database.Assignment{ID: id})
	web.OK(w, r, map[string]string{"message": "ok"})
}

type assignmentDraft struct {
	Name          string  `json:"name"`
	Class         string  `json:"class"`
	ExtractedText string  `json:"extractedText"`
	Confidence    float64 `json:"confidence"`
}

// Scan runs OCR on a screenshot and returns a draft for the form. Nothing is
// stored. Optional "name" and "class" form values are echoed into the draft.
func (h *AssignmentHandler) Scan(w http.ResponseWriter, r *http.Request) {
	res, ok := h.ocr.extract(w, r)
	if !ok {
		return
	}
	web.OK(w, r, assignmentDraft{
		Name:          strings.TrimSpace(r.FormValue("name")),
		Class:         strings.TrimSpace(r.FormValue("class")),
		ExtractedText: res.Text,
		Confidence:    res.Confidence,
	})
}

func (h *AssignmentHandler) load(w http.ResponseWriter, r *http.Request) (*database.Assignment, bool) {
	id, ok := web.PathID(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidParam)
		return nil, false
	}
	a, err := h.repo.Get(id, web.GetUserID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			web.FailErr(w, r, web.ErrNotFound)
			return nil, false
		}
		web.FailErr(w, r, web.ErrDBQuery)
		return nil, false
	}
	return a, true
}

func (h *AssignmentHandler) audit(r *http.Request, action string, a *database.Assignment) {
	h.auditRepo.Create(&database.AuditLog{
		UserID:   web.GetUserID(r),
		Username: web.GetUsername(r),
		Action:   action,
		Result:   "success",
		Detail:   a.Name,
		IP:       web.ClientIP(r),
	})
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func complete(a *database.Assignment) bool {
	return a.Name != "" && a.Class != "" && a.ExtractedText != ""
}
