package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for cooldown tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// soundLog records every cue a row plays.
type soundLog []Sound

func (s *soundLog) Play(x Sound) { *s = append(*s, x) }

func typeWord(r *Row, w string) []WriteResult {
	out := make([]WriteResult, 0, len(w))
	for _, c := range w {
		out = append(out, r.WriteChar(c))
	}
	return out
}

func TestSubmit_ScenarioCAT(t *testing.T) {
	r := NewRow(0, "CAT", Options{})
	typeWord(r, "cot")

	res, ok := r.Submit()
	require.True(t, ok)
	assert.Equal(t, 2, res.CorrectCount)
	assert.False(t, res.Success)
	assert.Equal(t, "COT", res.Guess)
	if diff := cmp.Diff([]bool{true, false, true}, res.Locked); diff != "" {
		t.Errorf("locked mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false, false, false}, res.Misplaced); diff != "" {
		t.Errorf("misplaced mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []Mark{MarkHit, MarkMiss, MarkHit}, res.Marks())
}

func TestSubmit_DuplicateLetters(t *testing.T) {
	r := NewRow(0, "ABCA", Options{})
	typeWord(r, "AABC")

	res, ok := r.Submit()
	require.True(t, ok)
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, []bool{true, false, false, false}, res.Locked)
	assert.Equal(t, []bool{false, true, true, true}, res.Misplaced)
}

func TestSubmit_GreedyLeftToRight(t *testing.T) {
	// Only one spare E in the target: the earlier guess position claims it.
	r := NewRow(0, "XEYZ", Options{})
	typeWord(r, "EQEE")

	res, _ := r.Submit()
	assert.Equal(t, 0, res.CorrectCount)
	assert.Equal(t, []bool{true, false, false, false}, res.Misplaced)
}

func TestSubmit_AllBlank(t *testing.T) {
	var sounds soundLog
	r := NewRow(0, "YMJ", Options{Cues: &sounds})

	res, ok := r.Submit()
	require.True(t, ok)
	assert.Equal(t, 0, res.CorrectCount)
	assert.False(t, res.Success)
	assert.Equal(t, []bool{false, false, false}, res.Locked)
	assert.Equal(t, []bool{false, false, false}, res.Misplaced)
	assert.Equal(t, soundLog{SoundClunk}, sounds)
}

func TestSubmit_SingleLetterRow(t *testing.T) {
	r := NewRow(3, "f", Options{})
	assert.Equal(t, "F", r.Target())

	r.WriteChar('g')
	res, _ := r.Submit()
	assert.False(t, res.Success)

	r.SetCursor(0)
	r.WriteChar('f')
	res, ok := r.Submit()
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.True(t, r.Solved())
}

func TestSubmit_SolvedIsTerminal(t *testing.T) {
	var sounds soundLog
	r := NewRow(0, "YT", Options{Cues: &sounds})
	typeWord(r, "YT")

	res, ok := r.Submit()
	require.True(t, ok)
	require.True(t, res.Success)
	assert.Equal(t, SoundChoir, sounds[len(sounds)-1])

	// Every operation is now a no-op.
	before := r.Snapshot()
	r.SetCursor(0)
	assert.Equal(t, WriteResult{}, r.WriteChar('Q'))
	assert.False(t, r.Backspace())
	again, ok := r.Submit()
	assert.False(t, ok, "solved transition must be reported once")
	assert.True(t, again.Success)
	if diff := cmp.Diff(before, r.Snapshot()); diff != "" {
		t.Errorf("solved row mutated (-before +after):\n%s", diff)
	}
}

func TestSubmit_MisplacedClearedBetweenSubmissions(t *testing.T) {
	r := NewRow(0, "AB", Options{})
	typeWord(r, "BA")
	res, _ := r.Submit()
	assert.Equal(t, []bool{true, true}, res.Misplaced)

	r.SetCursor(0)
	typeWord(r, "QQ")
	res, _ = r.Submit()
	assert.Equal(t, []bool{false, false}, res.Misplaced)
	assert.Equal(t, []bool{false, false}, r.Misplaced())
}

func TestSubmit_SoundCues(t *testing.T) {
	var sounds soundLog
	r := NewRow(0, "AB", Options{Cues: &sounds})
	typeWord(r, "BA")
	r.Submit()
	assert.Equal(t, soundLog{SoundChisel, SoundChisel, SoundMagma}, sounds)
}

func TestWriteChar_SkipsLockedSlots(t *testing.T) {
	r := NewRow(0, "CAT", Options{})
	typeWord(r, "COT")
	r.Submit()

	r.SetCursor(0)
	w := r.WriteChar('X')
	assert.False(t, w.Accepted, "locked slot must not be overwritten")
	assert.Equal(t, 1, r.Cursor(), "cursor skips over the locked slot")
	assert.Equal(t, "COT", r.Draft())

	w = r.WriteChar('a')
	assert.True(t, w.Accepted)
	assert.Equal(t, "CAT", r.Draft())
	assert.Equal(t, 2, r.Cursor())

	// Cursor saturates at the last slot even when it is locked.
	w = r.WriteChar('Z')
	assert.False(t, w.Accepted)
	assert.Equal(t, 2, r.Cursor())
}

func TestWriteChar_RejectsNonLetters(t *testing.T) {
	r := NewRow(0, "CAT", Options{})
	for _, c := range []rune{'1', ' ', '-', 'é'} {
		assert.Equal(t, WriteResult{}, r.WriteChar(c))
	}
	assert.Equal(t, 0, r.Cursor())
	assert.Equal(t, "", r.Draft())
}

func TestWriteChar_CursorSaturates(t *testing.T) {
	r := NewRow(0, "CAT", Options{})
	typeWord(r, "abcd")
	assert.Equal(t, 2, r.Cursor())
	assert.Equal(t, "ABD", r.Draft())
}

func TestBackspace(t *testing.T) {
	r := NewRow(0, "CAT", Options{})
	typeWord(r, "COT")
	r.Submit() // locks 0 and 2

	// Cursor is on locked slot 2: nothing is cleared but the cursor moves back.
	assert.False(t, r.Backspace())
	assert.Equal(t, 1, r.Cursor())
	assert.Equal(t, "COT", r.Draft())

	assert.True(t, r.Backspace())
	assert.Equal(t, 0, r.Cursor())
	assert.Equal(t, "C T", r.Draft())

	// At position 0 the cursor stays put.
	assert.False(t, r.Backspace())
	assert.Equal(t, 0, r.Cursor())
	assert.Equal(t, "C T", r.Draft())
}

func TestBackspace_TrailingBlanksTrimmed(t *testing.T) {
	r := NewRow(0, "ABCD", Options{})
	typeWord(r, "AB")
	r.SetCursor(1)
	r.Backspace()
	assert.Equal(t, "A", r.Draft())
	r.Backspace()
	assert.Equal(t, "", r.Draft())
}

func TestSetCursor_Clamps(t *testing.T) {
	r := NewRow(0, "BNSSJW", Options{})
	r.SetCursor(-4)
	assert.Equal(t, 0, r.Cursor())
	r.SetCursor(99)
	assert.Equal(t, 5, r.Cursor())
	r.SetCursor(3)
	assert.Equal(t, 3, r.Cursor())
}

func TestNewRow_HydrateSolved(t *testing.T) {
	r := NewRow(1, "LJYX", Options{Solved: true})
	assert.True(t, r.Solved())
	assert.Equal(t, "LJYX", r.Draft())
	assert.Equal(t, []bool{true, true, true, true}, r.Locked())

	snap := r.Snapshot()
	for i, tile := range snap.Tiles {
		assert.Equal(t, TileCorrect, tile.Status)
		assert.Equal(t, string("LJYX"[i]), tile.Char)
	}
}

func TestEasterEgg_FiresOnceDuringCooldown(t *testing.T) {
	clk := newClock()
	var sounds soundLog
	r := NewRow(0, "GRANTING", Options{Now: clk.Now, Cues: &sounds})
	require.Equal(t, "ROBINSON", r.Reference())

	results := typeWord(r, "robinson")
	fired := 0
	for _, w := range results {
		if w.EasterEgg {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
	assert.True(t, results[7].EasterEgg)
	assert.True(t, r.EasterEggActive())
	assert.Equal(t, TileEasterEgg, r.Snapshot().Tiles[0].Status)

	// Retyping the final letter keeps the draft equal but the cooldown suppresses it.
	clk.Advance(time.Second)
	assert.False(t, r.WriteChar('N').EasterEgg)
	r.SetCursor(0)
	for _, w := range typeWord(r, "robinson") {
		assert.False(t, w.EasterEgg)
	}
	assert.Equal(t, 1, countSound(sounds, SoundHarp))

	// After the cooldown it can fire again.
	clk.Advance(EasterEggCooldown)
	assert.False(t, r.EasterEggActive())
	assert.True(t, r.WriteChar('n').EasterEgg)
	assert.Equal(t, 2, countSound(sounds, SoundHarp))
}

func TestEasterEgg_ShortRowUsesPrefix(t *testing.T) {
	clk := newClock()
	r := NewRow(0, "YMJ", Options{Now: clk.Now})
	assert.Equal(t, "ROB", r.Reference())
	results := typeWord(r, "ROB")
	assert.False(t, results[1].EasterEgg)
	assert.True(t, results[2].EasterEgg)

	// The egg is independent of solving: the row is still editable.
	res, ok := r.Submit()
	require.True(t, ok)
	assert.False(t, res.Success)
}

func TestEasterEgg_LongRowUsesWholeBase(t *testing.T) {
	r := NewRow(0, "ABCDEFGHIJ", Options{Now: newClock().Now})
	assert.Equal(t, "ROBINSON", r.Reference())
	results := typeWord(r, "ROBINSON")
	assert.True(t, results[7].EasterEgg, "trailing blanks do not count")
}

func countSound(s soundLog, x Sound) int {
	n := 0
	for _, v := range s {
		if v == x {
			n++
		}
	}
	return n
}

// TestScoreProperties checks the scoring invariants over random rows.
func TestScoreProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const alphabet = "ABCD"
	randWord := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(b)
	}

	for iter := 0; iter < 300; iter++ {
		n := 1 + rng.Intn(6)
		target := randWord(n)
		r := NewRow(0, target, Options{Now: newClock().Now})
		prevLocked := r.Locked()

		for attempt := 0; attempt < 4 && !r.Solved(); attempt++ {
			guess := randWord(n)
			r.SetCursor(0)
			typeWord(r, guess)
			draft := []rune(r.Draft())
			for len(draft) < n {
				draft = append(draft, ' ')
			}

			res, ok := r.Submit()
			require.True(t, ok)

			agree := 0
			for i := 0; i < n; i++ {
				if rune(target[i]) == draft[i] {
					agree++
				}
			}
			assert.Equal(t, agree, res.CorrectCount, "target=%s draft=%q", target, string(draft))
			assert.Equal(t, res.CorrectCount == n, res.Success)

			for i := range prevLocked {
				if prevLocked[i] {
					assert.True(t, res.Locked[i], "lock at %d was released", i)
				}
				if res.Locked[i] {
					assert.Equal(t, rune(target[i]), draft[i])
				}
			}
			prevLocked = res.Locked

			for _, l := range alphabet {
				inTarget, lockedL, misplacedL := 0, 0, 0
				for i := 0; i < n; i++ {
					if rune(target[i]) == l {
						inTarget++
						if res.Locked[i] {
							lockedL++
						}
					}
					if res.Misplaced[i] && draft[i] == l {
						misplacedL++
					}
				}
				assert.LessOrEqual(t, misplacedL, inTarget-lockedL)
			}
		}
	}
}
