// internal/session/session.go
//
// Session orchestration: one puzzle run shared by everyone holding the same
// session id.
// Responsibilities:
//   - Own one game.Row per puzzle row; hydrate solved rows from saved progress.
//   - Gate input by sequential unlock order (row i is editable iff i <= unlockedIndex).
//   - Translate key names and virtual-keyboard text into row operations.
//   - Log every submission and easter-egg trigger; persist progress on solve.
//
// Notes:
//   - Collaborator failures (progress store, attempt log) are logged and ignored;
//     the in-memory state is authoritative for the running process.
//   - All methods are safe for concurrent use; a session serializes its rows.

package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rosebud/internal/game"
	"github.com/robalobadob/rosebud/internal/store"
)

// ErrNoRow is returned for a row index outside the puzzle.
var ErrNoRow = errors.New("session: no such row")

// Key names understood by Key, matching browser KeyboardEvent.key values.
const (
	KeyBackspace  = "Backspace"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyEnter      = "Enter"
)

// Deps are the collaborators a session reports to. Any may be nil.
type Deps struct {
	Progress store.ProgressStore
	Attempts store.AttemptLog
	Now      func() time.Time // row clock; defaults to time.Now
}

// Session is the state of one puzzle run.
type Session struct {
	mu       sync.Mutex
	id       string
	rows     []*game.Row
	unlocked int
	solved   map[int]bool
	deps     Deps
	cues     []game.Sound // cues of the operation in progress
}

// RowView is a row snapshot plus whether it can currently be edited.
type RowView struct {
	game.Snapshot
	Reachable bool `json:"reachable"`
}

// State is a snapshot of the whole session.
type State struct {
	SessionID     string    `json:"sessionId"`
	UnlockedIndex int       `json:"unlockedIndex"`
	SolvedRows    []int     `json:"solvedRows"`
	Complete      bool      `json:"complete"`
	Rows          []RowView `json:"rows"`
}

// SubmitResult is the scoring part of an Outcome.
type SubmitResult struct {
	CorrectCount int         `json:"correctCount"`
	Success      bool        `json:"success"`
	Marks        []game.Mark `json:"marks"`
	Locked       []bool      `json:"locked"`
	Misplaced    []bool      `json:"misplaced"`
}

// Outcome is what a single input operation produced.
type Outcome struct {
	Row           RowView       `json:"row"`
	UnlockedIndex int           `json:"unlockedIndex"`
	Sounds        []game.Sound  `json:"sounds"`
	EasterEgg     bool          `json:"easterEgg"`
	Result        *SubmitResult `json:"result,omitempty"`
}

// Open creates the session id over targets, hydrating from saved progress.
// A failing or empty progress store starts the session fresh.
func Open(ctx context.Context, id string, targets []string, deps Deps) *Session {
	s := &Session{id: id, solved: make(map[int]bool), deps: deps}

	if deps.Progress != nil {
		p, ok, err := deps.Progress.LoadProgress(ctx, id)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("session", id).Msg("load progress")
		case ok:
			s.unlocked = clamp(p.UnlockedIndex, 0, len(targets))
			for _, i := range p.SolvedRows {
				if i >= 0 && i < len(targets) {
					s.solved[i] = true
				}
			}
		}
	}

	cues := game.CueFunc(func(snd game.Sound) { s.cues = append(s.cues, snd) })
	s.rows = make([]*game.Row, len(targets))
	for i, t := range targets {
		s.rows[i] = game.NewRow(i, t, game.Options{Solved: s.solved[i], Now: deps.Now, Cues: cues})
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns a snapshot of every row and the progress counters.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		SessionID:     s.id,
		UnlockedIndex: s.unlocked,
		SolvedRows:    s.solvedList(),
		Complete:      len(s.solved) == len(s.rows),
		Rows:          make([]RowView, len(s.rows)),
	}
	for i := range s.rows {
		st.Rows[i] = s.view(i)
	}
	return st
}

// SetCursor focuses slot pos of row i.
func (s *Session) SetCursor(ctx context.Context, i, pos int) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.begin(i)
	if err != nil {
		return Outcome{}, err
	}
	if s.reachable(i) {
		r.SetCursor(pos)
	}
	return s.finish(i, false, nil), nil
}

// Key applies one key to row i: a single letter, Backspace, ArrowLeft,
// ArrowRight or Enter (submit). Other keys and input to unreachable rows are
// ignored.
func (s *Session) Key(ctx context.Context, i int, key string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.begin(i)
	if err != nil {
		return Outcome{}, err
	}
	if !s.reachable(i) {
		return s.finish(i, false, nil), nil
	}

	switch key {
	case KeyBackspace:
		r.Backspace()
	case KeyArrowLeft:
		r.SetCursor(r.Cursor() - 1)
	case KeyArrowRight:
		r.SetCursor(r.Cursor() + 1)
	case KeyEnter:
		return s.submit(ctx, i, r), nil
	default:
		if runes := []rune(key); len(runes) == 1 {
			return s.write(ctx, i, r, runes[0]), nil
		}
	}
	return s.finish(i, false, nil), nil
}

// Input applies virtual-keyboard text to row i. Only the last character of
// text is typed.
func (s *Session) Input(ctx context.Context, i int, text string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.begin(i)
	if err != nil {
		return Outcome{}, err
	}
	runes := []rune(text)
	if !s.reachable(i) || len(runes) == 0 {
		return s.finish(i, false, nil), nil
	}
	return s.write(ctx, i, r, runes[len(runes)-1]), nil
}

// Submit scores row i. The first submission that solves a row advances the
// unlock index (when it is the current row) and saves progress.
func (s *Session) Submit(ctx context.Context, i int) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.begin(i)
	if err != nil {
		return Outcome{}, err
	}
	if !s.reachable(i) {
		return s.finish(i, false, nil), nil
	}
	return s.submit(ctx, i, r), nil
}

// write types c into r and logs an easter-egg trigger. Caller holds mu.
func (s *Session) write(ctx context.Context, i int, r *game.Row, c rune) Outcome {
	w := r.WriteChar(c)
	if w.EasterEgg {
		s.logAttempt(ctx, store.Attempt{
			RowIndex:    i,
			TargetWord:  r.Target(),
			UserAttempt: r.Reference() + "_TRIGGER",
			EasterEgg:   true,
		})
	}
	return s.finish(i, w.EasterEgg, nil)
}

// submit scores r, logs the attempt and records a solve. Caller holds mu.
func (s *Session) submit(ctx context.Context, i int, r *game.Row) Outcome {
	res, accepted := r.Submit()
	sr := &SubmitResult{
		CorrectCount: res.CorrectCount,
		Success:      res.Success,
		Marks:        res.Marks(),
		Locked:       res.Locked,
		Misplaced:    res.Misplaced,
	}
	if !accepted {
		return s.finish(i, false, sr)
	}

	s.logAttempt(ctx, store.Attempt{
		RowIndex:    i,
		TargetWord:  r.Target(),
		UserAttempt: res.Guess,
		Correct:     res.Success,
	})
	if res.Success {
		s.markSolved(ctx, i)
	}
	return s.finish(i, false, sr)
}

// markSolved records row i as solved, advances the unlock index and saves.
func (s *Session) markSolved(ctx context.Context, i int) {
	s.solved[i] = true
	if i == s.unlocked {
		s.unlocked = min(i+1, len(s.rows))
	}
	log.Info().Str("session", s.id).Int("row", i).Int("unlocked", s.unlocked).Msg("row solved")

	if s.deps.Progress == nil {
		return
	}
	p := store.Progress{UnlockedIndex: s.unlocked, SolvedRows: s.solvedList(), LastUpdated: time.Now().UTC()}
	if err := s.deps.Progress.SaveProgress(ctx, s.id, p); err != nil {
		log.Warn().Err(err).Str("session", s.id).Msg("save progress")
	}
}

func (s *Session) logAttempt(ctx context.Context, a store.Attempt) {
	if s.deps.Attempts == nil {
		return
	}
	a.SessionID = s.id
	if err := s.deps.Attempts.LogAttempt(ctx, a); err != nil {
		log.Warn().Err(err).Str("session", s.id).Int("row", a.RowIndex).Msg("log attempt")
	}
}

// begin validates i and resets the cue buffer. Caller holds mu.
func (s *Session) begin(i int) (*game.Row, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, ErrNoRow
	}
	s.cues = nil
	return s.rows[i], nil
}

// finish builds the Outcome of the current operation. Caller holds mu.
func (s *Session) finish(i int, egg bool, res *SubmitResult) Outcome {
	sounds := s.cues
	if sounds == nil {
		sounds = []game.Sound{}
	}
	s.cues = nil
	return Outcome{
		Row:           s.view(i),
		UnlockedIndex: s.unlocked,
		Sounds:        sounds,
		EasterEgg:     egg,
		Result:        res,
	}
}

func (s *Session) view(i int) RowView {
	return RowView{Snapshot: s.rows[i].Snapshot(), Reachable: s.reachable(i)}
}

func (s *Session) reachable(i int) bool { return i <= s.unlocked }

func (s *Session) solvedList() []int {
	out := make([]int, 0, len(s.solved))
	for i := range s.solved {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
