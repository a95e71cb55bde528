package handlers

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"AccessDeck/internal/remediation"
	"AccessDeck/internal/web"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// readFile reads the single upload under field. It writes the error response
// itself and reports false when the request carries no usable file.
func readFile(w http.ResponseWriter, r *http.Request, field string) (remediation.Upload, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		failMultipart(w, r, err)
		return remediation.Upload{}, false
	}
	f, hdr, err := r.FormFile(field)
	if err != nil {
		web.FailErr(w, r, web.ErrFileRequired)
		return remediation.Upload{}, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		failMultipart(w, r, err)
		return remediation.Upload{}, false
	}
	if len(data) == 0 {
		web.FailErr(w, r, web.ErrFileRequired)
		return remediation.Upload{}, false
	}
	return remediation.Upload{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

// readFiles reads every upload under the given field names, in order.
func readFiles(w http.ResponseWriter, r *http.Request, fields ...string) ([]remediation.UploadFile, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		failMultipart(w, r, err)
		return nil, false
	}
	var headers []*multipart.FileHeader
	for _, field := range fields {
		headers = append(headers, r.MultipartForm.File[field]...)
	}
	files := make([]remediation.UploadFile, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			failMultipart(w, r, err)
			return nil, false
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			failMultipart(w, r, err)
			return nil, false
		}
		files = append(files, remediation.UploadFile{Name: hdr.Filename, Data: data})
	}
	return files, true
}

func failMultipart(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		web.FailErr(w, r, web.ErrFileTooLarge)
		return
	}
	web.FailErr(w, r, web.ErrInvalidBody)
}

// attachment writes data as a file download.
func attachment(w http.ResponseWriter, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
