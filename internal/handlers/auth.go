package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/web"
	"AccessDeck/internal/webconfig"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// AuthHandler serves login, logout and the current account.
type AuthHandler struct {
	cfg       *webconfig.Config
	userRepo  *database.UserRepo
	auditRepo *database.AuditLogRepo
}

func NewAuthHandler(cfg *webconfig.Config) *AuthHandler {
	return &AuthHandler{
		cfg:       cfg,
		userRepo:  database.NewUserRepo(),
		auditRepo: database.NewAuditLogRepo(),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *database.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		web.FailErr(w, r, web.ErrInvalidParam)
		return
	}

	user, err := h.userRepo.FindByUsername(req.Username)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		logger.Auth.Warn().Str("username", req.Username).Str("ip", web.ClientIP(r)).Msg("login failed")
		h.audit(r, 0, req.Username, constants.ActionLogin, "failed", "")
		web.FailErr(w, r, web.ErrLoginFailed)
		return
	}

	token, err := web.GenerateToken(h.cfg.Auth.JWTSecret, user.ID, user.Username, user.Role, h.cfg.Auth.JWTExpire)
	if err != nil {
		web.FailErr(w, r, web.ErrInternal)
		return
	}
	expires := time.Now().Add(h.cfg.Auth.JWTExpire)
	http.SetCookie(w, &http.Cookie{
		Name:     web.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	if err := h.userRepo.TouchLogin(user.ID); err != nil {
		logger.Auth.Warn().Err(err).Uint("user", user.ID).Msg("failed to record last login")
	}
	h.audit(r, user.ID, user.Username, constants.ActionLogin, "success", "")
	logger.Auth.Info().Str("username", user.Username).Str("ip", web.ClientIP(r)).Msg("user logged in")

	web.OK(w, r, loginResponse{Token: token, ExpiresAt: expires.UTC(), User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     web.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if claims, err := web.ParseToken(h.cfg.Auth.JWTSecret, web.TokenFromRequest(r)); err == nil {
		h.audit(r, claims.UserID, claims.Username, constants.ActionLogout, "success", "")
	}
	web.OK(w, r, map[string]string{"message": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.FindByID(web.GetUserID(r))
	if err != nil {
		web.FailErr(w, r, web.ErrUnauthorized)
		return
	}
	web.OK(w, r, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		web.FailErr(w, r, web.ErrPasswordShort)
		return
	}
	user, err := h.userRepo.FindByID(web.GetUserID(r))
	if err != nil {
		web.FailErr(w, r, web.ErrUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		h.audit(r, user.ID, user.Username, constants.ActionPasswordChange, "failed", "")
		web.FailErr(w, r, web.ErrPasswordInvalid)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		web.FailErr(w, r, web.ErrInternal)
		return
	}
	if err := h.userRepo.UpdatePassword(user.ID, string(hash)); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	h.audit(r, user.ID, user.Username, constants.ActionPasswordChange, "success", "")
	web.OK(w, r, map[string]string{"message": "ok"})
}

func (h *AuthHandler) audit(r *http.Request, userID uint, username, action, result, detail string) {
	h.auditRepo.Create(&database.AuditLog{
		UserID:   userID,
		Username: username,
		Action:   action,
		Result:   result,
		Detail:   detail,
		IP:       web.ClientIP(r),
	})
}
