package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PageData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(r),
	})
}

func OKPage(w http.ResponseWriter, r *http.Request, items interface{}, total int64, page, pageSize int) {
	OK(w, r, PageData{Items: items, Total: total, Page: page, PageSize: pageSize})
}

func Fail(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	writeJSON(w, status, Response{
		Success:   false,
		Error:     &ErrorBody{Code: code, Message: message},
		RequestID: GetRequestID(r),
	})
}

// PageQuery holds the list parameters shared by every paginated endpoint.
type PageQuery struct {
	Page      int
	PageSize  int
	Keyword   string
	SortOrder string
	StartTime string
	EndTime   string
}

func ParsePageQuery(r *http.Request) PageQuery {
	q := r.URL.Query()
	pq := PageQuery{
		Page:      atoiDefault(q.Get("page"), 1),
		PageSize:  atoiDefault(q.Get("page_size"), 20),
		Keyword:   strings.TrimSpace(q.Get("keyword")),
		SortOrder: strings.ToLower(strings.TrimSpace(q.Get("sort_order"))),
		StartTime: strings.TrimSpace(q.Get("start_time")),
		EndTime:   strings.TrimSpace(q.Get("end_time")),
	}
	if pq.Page < 1 {
		pq.Page = 1
	}
	if pq.PageSize < 1 {
		pq.PageSize = 20
	}
	if pq.PageSize > 200 {
		pq.PageSize = 200
	}
	if pq.SortOrder != "asc" {
		pq.SortOrder = "desc"
	}
	return pq
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
