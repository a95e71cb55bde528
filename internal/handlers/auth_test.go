package handlers

import (
	"net/http"
	"testing"

	"AccessDeck/internal/database"
	"AccessDeck/internal/web"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSetsCookieAndAudits(t *testing.T) {
	f := newFixture(t)
	seedUser(t, alice, "correct horse")

	rec := f.json(user{}, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": " alice ", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string        `json:"token"`
		User  database.User `json:"user"`
	}
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)

	claims, err := web.ParseToken(f.cfg.Auth.JWTSecret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, alice.id, claims.UserID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, web.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	u, err := database.NewUserRepo().FindByID(alice.id)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)

	logs, _, err := database.NewAuditLogRepo().List(database.AuditFilter{UserID: alice.id})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "success", logs[0].Result)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	seedUser(t, alice, "correct horse")

	rec := f.json(user{}, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "LOGIN_FAILED", errorCode(t, rec))

	rec = f.json(user{}, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "mallory", "password": "x"})
	assert.Equal(t, "LOGIN_FAILED", errorCode(t, rec))

	rec = f.json(user{}, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice"})
	assert.Equal(t, "INVALID_PARAM", errorCode(t, rec))

	_, total, err := database.NewAuditLogRepo().List(database.AuditFilter{Result: "failed"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	seedUser(t, alice, "correct horse")

	rec := f.json(alice, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me database.User
	decode(t, rec, &me)
	assert.Equal(t, "alice", me.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = f.json(user{id: 99, name: "ghost"}, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.json(user{}, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	seedUser(t, alice, "correct horse")

	rec := f.json(alice, http.MethodPut, "/api/v1/auth/password", map[string]string{
		"old_password": "correct horse", "new_password": "abc",
	})
	assert.Equal(t, "PASSWORD_TOO_SHORT", errorCode(t, rec))

	rec = f.json(alice, http.MethodPut, "/api/v1/auth/password", map[string]string{
		"old_password": "wrong", "new_password": "battery staple",
	})
	assert.Equal(t, "PASSWORD_MISMATCH", errorCode(t, rec))

	rec = f.json(alice, http.MethodPut, "/api/v1/auth/password", map[string]string{
		"old_password": "correct horse", "new_password": "battery staple",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.json(user{}, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice", "password": "battery staple"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
