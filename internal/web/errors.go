package web

import (
	"net/http"
	"strings"

	"AccessDeck/internal/i18n"
)

// ErrorCode ties a stable API error code to its HTTP status and message key.
type ErrorCode struct {
	Code   string
	Status int
	MsgKey string
}

var (
	ErrInvalidParam    = ErrorCode{"INVALID_PARAM", http.StatusBadRequest, i18n.MsgErrInvalidParam}
	ErrInvalidBody     = ErrorCode{"INVALID_BODY", http.StatusBadRequest, i18n.MsgErrInvalidBody}
	ErrNotFound        = ErrorCode{"NOT_FOUND", http.StatusNotFound, i18n.MsgErrNotFound}
	ErrUnauthorized    = ErrorCode{"UNAUTHORIZED", http.StatusUnauthorized, i18n.MsgErrUnauthorized}
	ErrForbidden       = ErrorCode{"FORBIDDEN", http.StatusForbidden, i18n.MsgErrForbidden}
	ErrInternal        = ErrorCode{"INTERNAL_ERROR", http.StatusInternalServerError, i18n.MsgErrInternal}
	ErrDBQuery         = ErrorCode{"DB_QUERY_FAILED", http.StatusInternalServerError, i18n.MsgErrDBQuery}
	ErrRateLimited     = ErrorCode{"RATE_LIMITED", http.StatusTooManyRequests, i18n.MsgErrRateLimited}
	ErrMethodNotAllow  = ErrorCode{"METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, i18n.MsgErrInvalidParam}
	ErrLoginFailed     = ErrorCode{"LOGIN_FAILED", http.StatusUnauthorized, i18n.MsgErrLoginFailed}
	ErrPasswordShort   = ErrorCode{"PASSWORD_TOO_SHORT", http.StatusBadRequest, i18n.MsgErrPasswordTooShort}
	ErrPasswordInvalid = ErrorCode{"PASSWORD_MISMATCH", http.StatusBadRequest, i18n.MsgErrPasswordMismatch}

	ErrFileRequired       = ErrorCode{"FILE_REQUIRED", http.StatusBadRequest, i18n.MsgErrFileRequired}
	ErrFileTooLarge       = ErrorCode{"FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, i18n.MsgErrFileTooLarge}
	ErrUnsupportedFile    = ErrorCode{"UNSUPPORTED_FILE", http.StatusUnsupportedMediaType, i18n.MsgErrUnsupportedFile}
	ErrBackendUnavailable = ErrorCode{"BACKEND_UNAVAILABLE", http.StatusServiceUnavailable, i18n.MsgErrBackendUnavailable}
	ErrBackendFailed      = ErrorCode{"BACKEND_FAILED", http.StatusBadGateway, i18n.MsgErrBackendFailed}
	ErrInvalidTransition  = ErrorCode{"INVALID_STATE", http.StatusConflict, i18n.MsgErrInvalidTransition}
	ErrNotRemediated      = ErrorCode{"NOT_REMEDIATED", http.StatusConflict, i18n.MsgErrNotRemediated}
	ErrNoFiles            = ErrorCode{"NO_FILES", http.StatusBadRequest, i18n.MsgErrNoFiles}
	ErrNoSession          = ErrorCode{"NO_SESSION", http.StatusNotFound, i18n.MsgErrNoSession}
	ErrSessionCreateFail  = ErrorCode{"SESSION_CREATE_FAILED", http.StatusBadGateway, i18n.MsgErrSessionCreateFailed}
	ErrBatchDownloadFail  = ErrorCode{"BATCH_DOWNLOAD_FAILED", http.StatusBadGateway, i18n.MsgErrBatchDownloadFailed}
	ErrOCRFailed          = ErrorCode{"OCR_FAILED", http.StatusUnprocessableEntity, i18n.MsgErrOCRFailed}
	ErrImageTooLarge      = ErrorCode{"IMAGE_TOO_LARGE", http.StatusRequestEntityTooLarge, i18n.MsgErrImageTooLarge}
	ErrAssignmentRequired = ErrorCode{"ASSIGNMENT_FIELDS_REQUIRED", http.StatusBadRequest, i18n.MsgErrAssignmentRequired}
)

// FailErr writes e in the request language. Detail fills the {{.Error}}
// placeholder or is appended after a colon.
func FailErr(w http.ResponseWriter, r *http.Request, e ErrorCode, detail ...string) {
	msg := T(r, e.MsgKey)
	if len(detail) > 0 {
		d := strings.Join(detail, "; ")
		if strings.Contains(msg, "{{.Error}}") {
			msg = T(r, e.MsgKey, map[string]interface{}{"Error": d})
		} else {
			msg = msg + ": " + d
		}
	} else {
		msg = strings.ReplaceAll(msg, ": {{.Error}}", "")
	}
	Fail(w, r, e.Code, msg, e.Status)
}
