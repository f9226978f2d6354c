// internal/game/types.go
//
// Core type definitions for the row engine.
// Defines:
//   - Mark: per-letter verdict derived from a submission (hit/present/miss).
//   - Result: outcome of a single submission.
//   - Tile/Snapshot: read-only view of a row for rendering.
//   - Sound/Cues: fire-and-forget audio cues emitted while a row is edited.

package game

import "time"

// Mark represents the evaluation result for a single letter in a guess.
// Possible values:
//   - "hit":     letter is correct and in the correct position (locked).
//   - "present": letter exists in the target but in a different position.
//   - "miss":    letter is not available in the target.
type Mark string

const (
	MarkHit     Mark = "hit"
	MarkPresent Mark = "present"
	MarkMiss    Mark = "miss"
)

// Result is returned by Row.Submit.
type Result struct {
	Guess        string // canonical draft that was scored
	CorrectCount int    // positions equal to the target in this submission
	Success      bool   // CorrectCount == len(target)
	Locked       []bool // lock mask after the submission
	Misplaced    []bool // misplaced mask of this submission only
}

// Marks folds the two masks into one verdict per position.
func (r Result) Marks() []Mark {
	out := make([]Mark, len(r.Locked))
	for i := range out {
		switch {
		case r.Locked[i]:
			out[i] = MarkHit
		case r.Misplaced[i]:
			out[i] = MarkPresent
		default:
			out[i] = MarkMiss
		}
	}
	return out
}

// WriteResult is returned by Row.WriteChar.
type WriteResult struct {
	Accepted  bool // the letter was stored (false for locked slots and rejected input)
	EasterEgg bool // this write fired the easter egg
}

// TileStatus is how a single slot should be rendered.
type TileStatus string

const (
	TileActive    TileStatus = "active"
	TileCorrect   TileStatus = "correct"
	TileMisplaced TileStatus = "misplaced"
	TileEasterEgg TileStatus = "robi"
)

// Tile is one rendered slot.
type Tile struct {
	Char   string     `json:"char"`
	Status TileStatus `json:"status"`
}

// Snapshot is a copy of a row's visible state.
type Snapshot struct {
	Index     int    `json:"index"`
	Length    int    `json:"length"`
	Draft     string `json:"draft"`
	Tiles     []Tile `json:"tiles"`
	Cursor    int    `json:"cursor"`
	Solved    bool   `json:"solved"`
	EasterEgg bool   `json:"easterEgg"`
}

// Sound names an audio cue. Playback is the client's concern.
type Sound string

const (
	SoundChisel Sound = "chisel" // accepted keystroke or backspace
	SoundHarp   Sound = "harp"   // easter egg
	SoundChoir  Sound = "choir"  // row solved
	SoundMagma  Sound = "magma"  // failed submission with misplaced letters
	SoundClunk  Sound = "clunk"  // failed submission, nothing misplaced
)

// Cues receives sound cues. Implementations must not block.
type Cues interface {
	Play(s Sound)
}

// CueFunc adapts a function to Cues.
type CueFunc func(s Sound)

// Play calls f(s).
func (f CueFunc) Play(s Sound) { f(s) }

// Options configures a new Row.
type Options struct {
	// Solved hydrates the row as already solved: draft = target, all positions locked.
	Solved bool
	// Now is the clock used for the easter-egg cooldown. Defaults to time.Now.
	Now func() time.Time
	// Cues receives sound cues; nil discards them.
	Cues Cues
}
