// internal/httpserver/server.go
//
// HTTP server wiring for the puzzle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health".
//   - Session tokens: POST /session, POST /session/logout.
//   - Puzzle endpoints (optional auth): mounted by mountPuzzle.
//   - Admin endpoints (basic auth): POST /admin/hints/seed.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth picks the caller's session from a valid token; requests
//     without one play the shared default session.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rosebud/internal/hints"
	"github.com/robalobadob/rosebud/internal/session"
	"github.com/robalobadob/rosebud/internal/store"
)

// Options configures a Server.
type Options struct {
	Sessions *session.Manager
	Hints    *hints.Queue
	Attempts store.AttemptLog // may be nil; /attempts then returns an empty list

	DefaultSession    string
	ClientOrigin      string        // defaults to http://localhost:5173
	RequestTimeout    time.Duration // defaults to 10s
	JWTSecret         string
	JWTExpiresDays    int
	CookieName        string
	Production        bool
	AdminPasswordHash string // bcrypt; empty disables the admin routes
}

// Server bundles the router and the puzzle services it exposes.
type Server struct {
	r    *chi.Mux
	opts Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.JWTExpiresDays <= 0 {
		opts.JWTExpiresDays = 14
	}
	if opts.CookieName == "" {
		opts.CookieName = "rosebud_token"
	}
	s := &Server{r: chi.NewRouter(), opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                    // add X-Request-ID
	s.r.Use(chimw.RealIP)                       // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                      // one zerolog line per request
	s.r.Use(chimw.Recoverer)                    // recover from panics
	s.r.Use(chimw.Timeout(opts.RequestTimeout)) // bound handler time
	s.r.Use(jsonContentType)                    // default JSON responses
	s.r.Use(corsFor(opts.ClientOrigin))         // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"rosebud","endpoints":["/health","POST /session","GET /state","POST /rows/{row}/*","POST /hints/next","GET /attempts"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Session tokens
	s.r.Post("/session", s.handleNewSession)
	s.r.Post("/session/logout", s.handleLogout)

	// Puzzle: optional auth (token picks the session, default otherwise)
	s.mountPuzzle(s.r.With(s.withOptionalAuth()))

	// Admin: basic auth against a bcrypt hash
	s.r.With(s.requireAdmin).Post("/admin/hints/seed", s.handleSeedHints)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger writes an access log line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		ev := log.Info()
		if ww.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

// ------------------------------ SESSION ------------------------------------

const maxNameLen = 40

// newSessionReq/Res payloads for POST /session.
type newSessionReq struct {
	Name      string `json:"name"`      // display name carried in the token
	SessionID string `json:"sessionId"` // optional: join an existing session
}
type newSessionRes struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
}

// handleNewSession issues a token for a fresh session id (or the requested one)
// and sets it as the auth cookie.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sid := strings.TrimSpace(req.SessionID)
	if sid == "" {
		sid = genID()
	} else if !validSessionID(sid) {
		http.Error(w, `{"error":"invalid_session_id"}`, http.StatusBadRequest)
		return
	}
	name := []rune(strings.TrimSpace(req.Name))
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	tok, exp, err := s.signJWT(sid, string(name))
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	log.Info().Str("session", sid).Str("name", string(name)).Msg("session issued")
	_ = json.NewEncoder(w).Encode(newSessionRes{Token: tok, SessionID: sid})
}

// handleLogout clears the auth cookie; the caller is back on the default session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// ------------------------------- ADMIN -------------------------------------

// handleSeedHints fills the hint collection from the canonical list if it is empty.
func (s *Server) handleSeedHints(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Hints.EnsureSeeded(r.Context()); err != nil {
		log.Error().Err(err).Msg("seed hints")
		http.Error(w, `{"error":"seed_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
