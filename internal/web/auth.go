package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"AccessDeck/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie carrying the JWT.
const CookieName = "accessdeck_token"

const (
	userIDKey   contextKey = "user_id"
	usernameKey contextKey = "username"
	roleKey     contextKey = "role"
)

type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthAuditFunc records authentication failures and forbidden requests.
type AuthAuditFunc func(action, result, detail, ip, username string, userID uint)

var (
	auditMu   sync.RWMutex
	auditFunc AuthAuditFunc
)

func SetAuthAuditFunc(fn AuthAuditFunc) {
	auditMu.Lock()
	auditFunc = fn
	auditMu.Unlock()
}

func audit(action, result, detail, ip, username string, userID uint) {
	auditMu.RLock()
	fn := auditFunc
	auditMu.RUnlock()
	if fn != nil {
		fn(action, result, detail, ip, username, userID)
	}
}

func GenerateToken(secret string, userID uint, username, role string, expire time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "accessdeck",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("accessdeck"))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// TokenFromRequest reads the bearer header, then the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// WithClaims stores the authenticated user on the request.
func WithClaims(r *http.Request, c *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, c.UserID)
	ctx = context.WithValue(ctx, usernameKey, c.Username)
	ctx = context.WithValue(ctx, roleKey, c.Role)
	return r.WithContext(ctx)
}

// AuthMiddleware requires a valid token on /api/ paths other than skipPaths.
// Static assets are served without a token.
func AuthMiddleware(secret string, skipPaths []string) Middleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] || !strings.HasPrefix(r.URL.Path, "/api/") || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr := TokenFromRequest(r)
			if tokenStr == "" {
				FailErr(w, r, ErrUnauthorized)
				return
			}
			claims, err := ParseToken(secret, tokenStr)
			if err != nil {
				audit(constants.ActionAuthFailed, "failed", r.Method+" "+r.URL.Path+": "+err.Error(), ClientIP(r), "", 0)
				FailErr(w, r, ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, WithClaims(r, claims))
		})
	}
}

// RequireAdmin rejects non-admin users with 403.
func RequireAdmin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if GetRole(r) != constants.RoleAdmin {
			audit(constants.ActionForbidden, "failed", r.Method+" "+r.URL.Path, ClientIP(r), GetUsername(r), GetUserID(r))
			FailErr(w, r, ErrForbidden)
			return
		}
		h(w, r)
	}
}

func GetUserID(r *http.Request) uint {
	id, _ := r.Context().Value(userIDKey).(uint)
	return id
}

func GetUsername(r *http.Request) string {
	name, _ := r.Context().Value(usernameKey).(string)
	return name
}

func GetRole(r *http.Request) string {
	role, _ := r.Context().Value(roleKey).(string)
	return role
}
