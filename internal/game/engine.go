// internal/game/engine.go
//
// Row engine for a single puzzle row.
// Responsibilities:
//   - Track the draft, cursor, per-position lock and misplaced masks.
//   - Score submissions with the two-pass correct/misplaced algorithm.
//   - Fire the easter egg when the draft spells the reference phrase, with a cooldown.
//
// Notes:
//   - A Row is owned by one caller; it does no locking of its own.
//   - Locked positions never unlock and always hold the target letter.
//   - Once solved, every mutating method is a no-op.
package game

import (
	"strings"
	"time"
	"unicode"
)

const (
	// EasterEggBase is truncated to the row length to form the reference phrase.
	EasterEggBase = "ROBINSON"
	// EasterEggCooldown suppresses re-firing after a trigger.
	EasterEggCooldown = 2 * time.Second
)

// blank marks an empty slot in the draft.
const blank rune = 0

// Row is the guess state of one puzzle row.
type Row struct {
	index     int
	target    []rune
	draft     []rune
	locked    []bool
	misplaced []bool
	cursor    int
	solved    bool

	eggRef   string
	eggUntil time.Time

	now  func() time.Time
	cues Cues
}

// NewRow constructs a row for target (upper-cased). target must not be empty.
func NewRow(index int, target string, opts Options) *Row {
	t := []rune(strings.ToUpper(target))
	n := len(t)
	r := &Row{
		index:     index,
		target:    t,
		draft:     make([]rune, n),
		locked:    make([]bool, n),
		misplaced: make([]bool, n),
		eggRef:    easterEggReference(n),
		now:       opts.Now,
		cues:      opts.Cues,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if opts.Solved {
		copy(r.draft, t)
		for i := range r.locked {
			r.locked[i] = true
		}
		r.solved = true
	}
	return r
}

// easterEggReference returns the base phrase cut to n letters.
func easterEggReference(n int) string {
	if n > len(EasterEggBase) {
		return EasterEggBase
	}
	return EasterEggBase[:n]
}

func (r *Row) Len() int          { return len(r.target) }
func (r *Row) Target() string    { return string(r.target) }
func (r *Row) Cursor() int       { return r.cursor }
func (r *Row) Solved() bool      { return r.solved }
func (r *Row) Reference() string { return r.eggRef }

// Locked returns a copy of the lock mask.
func (r *Row) Locked() []bool { return append([]bool(nil), r.locked...) }

// Misplaced returns a copy of the misplaced mask of the latest submission.
func (r *Row) Misplaced() []bool { return append([]bool(nil), r.misplaced...) }

// Draft returns the canonical draft: slots as letters, blanks as spaces,
// trailing blanks trimmed.
func (r *Row) Draft() string {
	var b strings.Builder
	for _, c := range r.draft {
		if c == blank {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(c)
	}
	return strings.TrimRight(b.String(), " ")
}

// SetCursor moves the cursor to i clamped into the row.
func (r *Row) SetCursor(i int) {
	if r.solved {
		return
	}
	r.cursor = clamp(i, 0, len(r.target)-1)
}

// WriteChar stores c (upper-cased) at the cursor and advances it.
// A locked slot is skipped instead of overwritten: the cursor advances and
// nothing is stored. Non-letters are ignored.
func (r *Row) WriteChar(c rune) WriteResult {
	if r.solved || !isLetter(c) {
		return WriteResult{}
	}
	if r.locked[r.cursor] {
		r.advance()
		return WriteResult{}
	}

	r.play(SoundChisel)
	r.draft[r.cursor] = unicode.ToUpper(c)

	egg := false
	if r.Draft() == r.eggRef {
		egg = r.triggerEasterEgg()
	}
	r.advance()
	return WriteResult{Accepted: true, EasterEgg: egg}
}

// Backspace clears the slot at the cursor if it is unlocked, then moves the
// cursor back one. Reports whether a slot was cleared.
func (r *Row) Backspace() bool {
	if r.solved {
		return false
	}
	r.play(SoundChisel)
	cleared := false
	if !r.locked[r.cursor] {
		cleared = r.draft[r.cursor] != blank
		r.draft[r.cursor] = blank
	}
	if r.cursor > 0 {
		r.cursor--
	}
	return cleared
}

// Submit scores the draft against the target.
// The bool is false when the row was already solved and nothing happened;
// the transition to solved is reported by the single call that returns
// Success with true.
func (r *Row) Submit() (Result, bool) {
	n := len(r.target)
	if r.solved {
		return Result{
			Guess:        r.Draft(),
			CorrectCount: n,
			Success:      true,
			Locked:       r.Locked(),
			Misplaced:    r.Misplaced(),
		}, false
	}

	correct, misplaced := scoreRow(r.target, r.draft, r.locked)
	r.misplaced = misplaced

	res := Result{
		Guess:        r.Draft(),
		CorrectCount: correct,
		Success:      correct == n,
		Locked:       r.Locked(),
		Misplaced:    r.Misplaced(),
	}

	switch {
	case res.Success:
		r.solved = true
		r.play(SoundChoir)
	case anyTrue(misplaced):
		r.play(SoundMagma)
	default:
		r.play(SoundClunk)
	}
	return res, true
}

// EasterEggActive reports whether the easter egg cooldown is running.
func (r *Row) EasterEggActive() bool {
	return r.now().Before(r.eggUntil)
}

// Snapshot returns a copy of the row's visible state.
func (r *Row) Snapshot() Snapshot {
	egg := r.EasterEggActive()
	tiles := make([]Tile, len(r.target))
	for i := range tiles {
		ch := ""
		if r.locked[i] {
			ch = string(r.target[i])
		} else if r.draft[i] != blank {
			ch = string(r.draft[i])
		}
		st := TileActive
		switch {
		case egg:
			st = TileEasterEgg
		case r.locked[i]:
			st = TileCorrect
		case r.misplaced[i]:
			st = TileMisplaced
		}
		tiles[i] = Tile{Char: ch, Status: st}
	}
	return Snapshot{
		Index:     r.index,
		Length:    len(r.target),
		Draft:     r.Draft(),
		Tiles:     tiles,
		Cursor:    r.cursor,
		Solved:    r.solved,
		EasterEgg: egg,
	}
}

// triggerEasterEgg fires unless a previous trigger is still cooling down.
func (r *Row) triggerEasterEgg() bool {
	now := r.now()
	if now.Before(r.eggUntil) {
		return false
	}
	r.eggUntil = now.Add(EasterEggCooldown)
	r.play(SoundHarp)
	return true
}

func (r *Row) advance() {
	if r.cursor < len(r.target)-1 {
		r.cursor++
	}
}

func (r *Row) play(s Sound) {
	if r.cues != nil {
		r.cues.Play(s)
	}
}

// scoreRow implements the two-pass scoring algorithm and updates locked in place.
//
// Pass 1:
//   - Lock positions where guess equals target and count them.
//   - Collect the target letters of every other position into a multiset.
//
// Pass 2:
//   - Left to right, each unlocked mismatching guess letter claims one copy
//     from the multiset if any remains and is flagged misplaced.
//
// Locked positions hold the target letter, so they are counted as correct
// again and never unlock.
func scoreRow(target, guess []rune, locked []bool) (int, []bool) {
	n := len(target)
	misplaced := make([]bool, n)
	remaining := make(map[rune]int, n)
	correct := 0

	for i := 0; i < n; i++ {
		if guess[i] == target[i] {
			locked[i] = true
			correct++
		} else {
			remaining[target[i]]++
		}
	}

	for i := 0; i < n; i++ {
		if locked[i] || guess[i] == target[i] || guess[i] == blank {
			continue
		}
		if remaining[guess[i]] > 0 {
			misplaced[i] = true
			remaining[guess[i]]--
		}
	}
	return correct, misplaced
}

// isLetter reports whether c is an ASCII letter.
func isLetter(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func anyTrue(m []bool) bool {
	for _, x := range m {
		if x {
			return true
		}
	}
	return false
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
