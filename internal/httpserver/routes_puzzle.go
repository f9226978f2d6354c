// internal/httpserver/routes_puzzle.go
//
// HTTP routes for playing the puzzle.
//   - GET  /state                → every row plus unlock progress
//   - POST /rows/{row}/cursor    → {pos}: focus a slot
//   - POST /rows/{row}/key       → {key}: a letter, Backspace, ArrowLeft, ArrowRight or Enter
//   - POST /rows/{row}/input     → {text}: virtual-keyboard text (last character is typed)
//   - POST /rows/{row}/submit    → score the row
//   - POST /hints/next           → {message} or {exhausted:true}
//   - GET  /attempts?limit=N     → newest attempt log entries for the session
//
// The session is the one resolved by withOptionalAuth. Row operations answer
// with a session.Outcome, including the sound cues the client should play.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rosebud/internal/session"
	"github.com/robalobadob/rosebud/internal/store"
)

// mountPuzzle registers the puzzle routes on r.
func (s *Server) mountPuzzle(r chi.Router) {
	r.Get("/state", s.handleState)
	r.Route("/rows/{row}", func(r chi.Router) {
		r.Post("/cursor", s.handleCursor)
		r.Post("/key", s.handleKey)
		r.Post("/input", s.handleInput)
		r.Post("/submit", s.handleSubmit)
	})
	r.Post("/hints/next", s.handleNextHint)
	r.Get("/attempts", s.handleAttempts)
}

// sessionFor returns the caller's session.
func (s *Server) sessionFor(r *http.Request) *session.Session {
	return s.opts.Sessions.Get(r.Context(), s.sessionID(r))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.sessionFor(r).State())
}

type cursorReq struct {
	Pos int `json:"pos"`
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	var req cursorReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	out, err := s.sessionFor(r).SetCursor(r.Context(), row, req.Pos)
	writeOutcome(w, out, err)
}

type keyReq struct {
	Key string `json:"key"`
}

type inputReq struct {
	Text string `json:"text"`
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	var req keyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	out, err := s.sessionFor(r).Key(r.Context(), row, req.Key)
	writeOutcome(w, out, err)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	var req inputReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	out, err := s.sessionFor(r).Input(r.Context(), row, req.Text)
	writeOutcome(w, out, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	row, ok := rowParam(w, r)
	if !ok {
		return
	}
	out, err := s.sessionFor(r).Submit(r.Context(), row)
	writeOutcome(w, out, err)
}

// nextHintRes is {message} while hints last, {exhausted:true} after.
type nextHintRes struct {
	Message   string `json:"message,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

func (s *Server) handleNextHint(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.opts.Hints.PopNext(r.Context())
	if !ok {
		_ = json.NewEncoder(w).Encode(nextHintRes{Exhausted: true})
		return
	}
	_ = json.NewEncoder(w).Encode(nextHintRes{Message: msg})
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	out := []store.Attempt{}
	if s.opts.Attempts != nil {
		got, err := s.opts.Attempts.Attempts(r.Context(), s.sessionID(r), limit)
		if err != nil {
			log.Error().Err(err).Msg("list attempts")
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		out = append(out, got...)
	}
	_ = json.NewEncoder(w).Encode(out)
}

// rowParam parses {row}; anything that is not a number is an unknown row.
func rowParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		http.Error(w, `{"error":"no_such_row"}`, http.StatusNotFound)
		return 0, false
	}
	return row, true
}

// writeOutcome encodes a row operation result, mapping session errors to status codes.
func writeOutcome(w http.ResponseWriter, out session.Outcome, err error) {
	switch {
	case errors.Is(err, session.ErrNoRow):
		http.Error(w, `{"error":"no_such_row"}`, http.StatusNotFound)
	case err != nil:
		log.Error().Err(err).Msg("row operation")
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	default:
		_ = json.NewEncoder(w).Encode(out)
	}
}
