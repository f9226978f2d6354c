// internal/store/store.go
//
// Persistence interfaces shared by the puzzle server.
// Three collaborators live behind one Backend:
//   - ProgressStore: per-session unlock progress (merge-upsert by session id).
//   - AttemptLog:    append-only record of submissions and easter-egg triggers.
//   - hints.Collection: the ordered, destructively consumed hint list.
//
// Implementations: memory (this package, ephemeral) and SQL (SQLite, either driver).

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robalobadob/rosebud/internal/hints"
)

// Progress is the persisted shape of a session.
type Progress struct {
	UnlockedIndex int       `json:"unlockedIndex"`
	SolvedRows    []int     `json:"solvedRows"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Attempt is one logged submission or easter-egg trigger.
type Attempt struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	RowIndex    int       `json:"rowIndex"`
	TargetWord  string    `json:"targetWord"`
	UserAttempt string    `json:"userAttempt"`
	EasterEgg   bool      `json:"isEasterEggTrigger"`
	Correct     bool      `json:"isCorrect"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProgressStore persists session progress.
type ProgressStore interface {
	// SaveProgress creates or replaces the progress fields for sessionID.
	SaveProgress(ctx context.Context, sessionID string, p Progress) error

	// LoadProgress returns the stored progress; ok is false if none exists.
	LoadProgress(ctx context.Context, sessionID string) (p Progress, ok bool, err error)
}

// AttemptLog records attempts.
type AttemptLog interface {
	LogAttempt(ctx context.Context, a Attempt) error

	// Attempts returns the newest attempts for sessionID, newest first.
	Attempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error)
}

// Backend bundles every collaborator behind a single handle.
type Backend interface {
	ProgressStore
	AttemptLog
	hints.Collection
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory  = "memory"
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverSQLite  = "sqlite"  // modernc.org/sqlite (pure Go)
)

// Open returns the backend for driver. dsn is ignored by the memory driver.
func Open(ctx context.Context, driver, dsn string) (Backend, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite3, DriverSQLite:
		db, err := openDB(driver, dsn)
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return NewSQLStore(db), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
