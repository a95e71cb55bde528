package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"AccessDeck/internal/database"
	"AccessDeck/internal/remediation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeEssay(t *testing.T, f *fixture, u user) remediation.RunView {
	t.Helper()
	rec := f.multipart(u, "/api/v1/remediations", part{field: "file", name: "essay.docx", data: []byte("original essay")})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view remediation.RunView
	decode(t, rec, &view)
	require.NotNil(t, view.Run)
	return view
}

func TestAnalyzeReturnsFlattenedReport(t *testing.T) {
	f := newFixture(t)
	view := analyzeEssay(t, f, alice)

	assert.Equal(t, string(remediation.StateAnalyzed), view.Run.State)
	assert.Equal(t, "essay.docx", view.Run.FileName)
	assert.Equal(t, alice.id, view.Run.OwnerID)
	assert.Len(t, view.Fixed, 1)
	assert.Len(t, view.Flagged, 1)
	assert.Equal(t, remediation.Summary{SuccessCount: 1, FailedCount: 1}, view.Summary)
}

func TestAnalyzeRejectsBadUploads(t *testing.T) {
	f := newFixture(t)

	rec := f.multipart(alice, "/api/v1/remediations", part{field: "file", name: "photo.png", data: []byte("png")})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FILE", errorCode(t, rec))

	rec = f.multipart(alice, "/api/v1/remediations", part{field: "file", name: "empty.pdf"})
	assert.Equal(t, "FILE_REQUIRED", errorCode(t, rec))

	rec = f.multipart(alice, "/api/v1/remediations", part{field: "document", name: "essay.docx", data: []byte("x")})
	assert.Equal(t, "FILE_REQUIRED", errorCode(t, rec))
}

func TestRemediateWithoutRecheckAndDownload(t *testing.T) {
	f := newFixture(t)
	view := analyzeEssay(t, f, alice)
	base := fmt.Sprintf("/api/v1/remediations/%d", view.Run.ID)

	rec := f.json(alice, http.MethodGet, base+"/download", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_REMEDIATED", errorCode(t, rec))

	rec = f.json(alice, http.MethodPost, base+"/remediate?recheck=false", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done remediation.RunView
	decode(t, rec, &done)
	assert.Equal(t, string(remediation.StateReconciled), done.Run.State)
	assert.False(t, done.Run.Authoritative)
	assert.Equal(t, "fixed-essay.docx", done.Run.RemediatedName)

	rec = f.json(alice, http.MethodGet, base+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "remediated bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fixed-essay.docx")

	rec = f.json(alice, http.MethodPost, base+"/remediate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))
}

func TestRemediateRechecksByDefault(t *testing.T) {
	f := newFixture(t)
	view := analyzeEssay(t, f, alice)

	rec := f.json(alice, http.MethodPost, fmt.Sprintf("/api/v1/remediations/%d/remediate", view.Run.ID), map[string]bool{"recheck": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done remediation.RunView
	decode(t, rec, &done)
	assert.True(t, done.Run.Authoritative)
	require.NotNil(t, done.Reconciliation)
	assert.Empty(t, done.Flagged)

	rec = f.json(alice, http.MethodPost, fmt.Sprintf("/api/v1/remediations/%d/remediate?recheck=maybe", view.Run.ID), nil)
	assert.Equal(t, "INVALID_PARAM", errorCode(t, rec))
}

func TestFinishAndOwnership(t *testing.T) {
	f := newFixture(t)
	view := analyzeEssay(t, f, alice)
	base := fmt.Sprintf("/api/v1/remediations/%d", view.Run.ID)

	rec := f.json(bob, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.json(bob, http.MethodPost, base+"/finish", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.json(alice, http.MethodPost, base+"/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var done remediation.RunView
	decode(t, rec, &done)
	assert.Equal(t, string(remediation.StateReconciled), done.Run.State)

	rec = f.json(alice, http.MethodGet, "/api/v1/remediations?state=reconciled", nil)
	var list page[database.RemediationRun]
	decode(t, rec, &list)
	assert.EqualValues(t, 1, list.Total)

	rec = f.json(bob, http.MethodGet, "/api/v1/remediations", nil)
	list = page[database.RemediationRun]{}
	decode(t, rec, &list)
	assert.Zero(t, list.Total)
}
