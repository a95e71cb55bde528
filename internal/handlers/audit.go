package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/web"
)

// AuditHandler lists the audit trail. Admins see everyone and may filter by
// ?user_id=; other users see only their own entries.
type AuditHandler struct {
	repo *database.AuditLogRepo
}

func NewAuditHandler() *AuditHandler {
	return &AuditHandler{repo: database.NewAuditLogRepo()}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	pq := web.ParsePageQuery(r)
	q := r.URL.Query()
	filter := database.AuditFilter{
		PageFilter: database.PageFilter{Page: pq.Page, PageSize: pq.PageSize},
		Action:     strings.TrimSpace(q.Get("action")),
		Result:     strings.TrimSpace(q.Get("result")),
		StartTime:  pq.StartTime,
		EndTime:    pq.EndTime,
	}
	if web.GetRole(r) == constants.RoleAdmin {
		if v := q.Get("user_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				web.FailErr(w, r, web.ErrInvalidParam)
				return
			}
			filter.UserID = uint(id)
		}
	} else {
		filter.UserID = web.GetUserID(r)
	}

	logs, total, err := h.repo.List(filter)
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	web.OKPage(w, r, logs, total, pq.Page, pq.PageSize)
}
