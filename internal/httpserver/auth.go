// internal/httpserver/auth.go
//
// Session tokens and admin access.
// Responsibilities:
//   - Sign HS256 JWTs carrying the session id ("sid") and an optional display name.
//   - Read the token from "Authorization: Bearer" or the auth cookie.
//   - Optional auth: a valid token selects its session; anything else falls
//     back to the shared default session. Never 401s.
//   - Admin routes: HTTP basic auth checked against a bcrypt hash. When no
//     hash is configured the admin surface does not exist (404).

package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminUser = "admin"

// ctxSessionKey is the context key for the resolved session id.
type ctxSessionKey struct{}

// tokenClaims is what a verified token carries.
type tokenClaims struct {
	SessionID string
	Name      string
}

// signJWT creates an HS256 JWT for sid that expires after the configured days.
func (s *Server) signJWT(sid, name string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.opts.JWTExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":  sid,
		"name": name,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.opts.JWTSecret))
	return ss, exp, err
}

// parseJWT verifies tok and extracts its claims.
func (s *Server) parseJWT(tok string) (tokenClaims, bool) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return tokenClaims{}, false
	}
	sid, _ := claims["sid"].(string)
	if !validSessionID(sid) {
		return tokenClaims{}, false
	}
	name, _ := claims["name"].(string)
	return tokenClaims{SessionID: sid, Name: name}, true
}

// withOptionalAuth resolves the session id for every request.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := s.opts.DefaultSession
			if tok := s.bearerOrCookie(r); tok != "" {
				if c, ok := s.parseJWT(tok); ok {
					sid = c.SessionID
				}
			}
			ctx := context.WithValue(r.Context(), ctxSessionKey{}, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionID returns the id resolved by withOptionalAuth.
func (s *Server) sessionID(r *http.Request) string {
	if sid, _ := r.Context().Value(ctxSessionKey{}).(string); sid != "" {
		return sid
	}
	return s.opts.DefaultSession
}

// requireAdmin gates admin routes behind basic auth.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AdminPasswordHash == "" {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
			return
		}
		user, pw, ok := r.BasicAuth()
		if !ok || user != adminUser || !checkPassword(s.opts.AdminPasswordHash, pw) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rosebud-admin", charset="UTF-8"`)
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// setAuthCookie writes the token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: s.sameSite(),
		Expires:  exp,
	})
}

// clearAuthCookie deletes the token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: s.sameSite(),
		MaxAge:   -1,
	})
}

// sameSite is None in production (cross-site client, requires Secure) and Lax otherwise.
func (s *Server) sameSite() http.SameSite {
	if s.opts.Production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.opts.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// validSessionID accepts 1-64 chars of letters, digits, '_' and '-'.
func validSessionID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		if !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
