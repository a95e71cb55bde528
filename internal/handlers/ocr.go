package handlers

import (
	"net/http"

	"AccessDeck/internal/ocr"
	"AccessDeck/internal/web"
)

// OCRHandler turns an uploaded screenshot into text.
type OCRHandler struct {
	svc *ocr.Service
}

func NewOCRHandler(svc *ocr.Service) *OCRHandler {
	return &OCRHandler{svc: svc}
}

// Extract accepts a multipart "image" (or "file") part.
func (h *OCRHandler) Extract(w http.ResponseWriter, r *http.Request) {
	res, ok := h.extract(w, r)
	if !ok {
		return
	}
	web.OK(w, r, res)
}

func (h *OCRHandler) extract(w http.ResponseWriter, r *http.Request) (ocr.Result, bool) {
	field := "image"
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		failMultipart(w, r, err)
		return ocr.Result{}, false
	}
	if _, ok := r.MultipartForm.File[field]; !ok {
		field = "file"
	}
	up, ok := readFile(w, r, field)
	if !ok {
		return ocr.Result{}, false
	}
	res, err := h.svc.Extract(r.Context(), up.Data)
	if err != nil {
		failService(w, r, err)
		return ocr.Result{}, false
	}
	return res, true
}
