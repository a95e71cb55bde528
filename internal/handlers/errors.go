package handlers

import (
	"errors"
	"net/http"

	"AccessDeck/internal/batch"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/ocr"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/web"

	"gorm.io/gorm"
)

// failService maps a service error onto the API error catalogue.
func failService(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *remediation.APIError
	switch {
	case errors.Is(err, remediation.ErrUnsupportedFile):
		web.FailErr(w, r, web.ErrUnsupportedFile)
	case errors.Is(err, remediation.ErrEmptyFile):
		web.FailErr(w, r, web.ErrFileRequired)
	case errors.Is(err, remediation.ErrRunNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		web.FailErr(w, r, web.ErrNotFound)
	case errors.Is(err, remediation.ErrInvalidTransition), errors.Is(err, batch.ErrSessionInactive):
		web.FailErr(w, r, web.ErrInvalidTransition)
	case errors.Is(err, remediation.ErrNotRemediated):
		web.FailErr(w, r, web.ErrNotRemediated)
	case errors.Is(err, batch.ErrNoFiles):
		web.FailErr(w, r, web.ErrNoFiles)
	case errors.Is(err, batch.ErrNoSession):
		web.FailErr(w, r, web.ErrNoSession)
	case errors.Is(err, ocr.ErrImageTooLarge):
		web.FailErr(w, r, web.ErrImageTooLarge)
	case errors.Is(err, ocr.ErrUnsupportedImage):
		web.FailErr(w, r, web.ErrUnsupportedFile)
	case errors.Is(err, ocr.ErrExtractFailed), errors.Is(err, ocr.ErrNoEngine):
		web.FailErr(w, r, web.ErrOCRFailed)
	case errors.Is(err, remediation.ErrBackendUnavailable):
		web.FailErr(w, r, web.ErrBackendUnavailable)
	case errors.As(err, &apiErr):
		web.FailErr(w, r, web.ErrBackendFailed, apiErr.Message)
	default:
		logger.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		web.FailErr(w, r, web.ErrInternal)
	}
}

func actorFrom(r *http.Request) remediation.Actor {
	return remediation.Actor{
		ID:       web.GetUserID(r),
		Username: web.GetUsername(r),
		IP:       web.ClientIP(r),
	}
}
