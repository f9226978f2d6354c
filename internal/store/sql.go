// internal/store/sql.go
//
// SQL implementation of Backend (SQLite, either driver).
// Tables are created by the embedded migrations in sql/.
// Timestamps are stored as fixed-width RFC3339 text in UTC so they sort as strings.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/rosebud/internal/hints"
)

// timeLayout is RFC3339 with fixed nanoseconds.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore is a Backend over a *sql.DB.
type SQLStore struct{ db *sql.DB }

// NewSQLStore wraps an already migrated database handle.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// DB exposes the handle (useful for tests).
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

// SaveProgress merge-upserts the progress row for sessionID.
func (s *SQLStore) SaveProgress(ctx context.Context, sessionID string, p Progress) error {
	solved := p.SolvedRows
	if solved == nil {
		solved = []int{}
	}
	raw, err := json.Marshal(solved)
	if err != nil {
		return fmt.Errorf("save progress: encode solved rows: %w", err)
	}
	updated := p.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO game_states (session_id, unlocked_index, solved_rows, last_updated)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            unlocked_index = excluded.unlocked_index,
            solved_rows    = excluded.solved_rows,
            last_updated   = excluded.last_updated`,
		sessionID, p.UnlockedIndex, string(raw), updated.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save progress: upsert: %w", err)
	}
	return nil
}

// LoadProgress reads the progress row for sessionID.
func (s *SQLStore) LoadProgress(ctx context.Context, sessionID string) (Progress, bool, error) {
	var (
		p       Progress
		raw     string
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT unlocked_index, solved_rows, last_updated FROM game_states WHERE session_id=?`,
		sessionID,
	).Scan(&p.UnlockedIndex, &raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("load progress: scan: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &p.SolvedRows); err != nil {
		return Progress{}, false, fmt.Errorf("load progress: decode solved rows: %w", err)
	}
	p.LastUpdated = parseTime(updated)
	return p, true, nil
}

// LogAttempt inserts one puzzle_logs row.
func (s *SQLStore) LogAttempt(ctx context.Context, a Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO puzzle_logs
            (id, session_id, row_index, target_word, user_attempt, is_easter_egg, is_correct, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.RowIndex, a.TargetWord, a.UserAttempt,
		a.EasterEgg, a.Correct, a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log attempt: insert: %w", err)
	}
	return nil
}

// Attempts fetches the newest attempts for sessionID.
//
//   - Ordered by created_at DESC.
//   - Default limit is 50 if not specified.
func (s *SQLStore) Attempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, session_id, row_index, target_word, user_attempt, is_easter_egg, is_correct, created_at
        FROM puzzle_logs
        WHERE session_id=?
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("attempts: query: %w", err)
	}
	defer rows.Close()

	out := make([]Attempt, 0, limit)
	for rows.Next() {
		var (
			a       Attempt
			created string
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.RowIndex, &a.TargetWord, &a.UserAttempt,
			&a.EasterEgg, &a.Correct, &created); err != nil {
			return nil, fmt.Errorf("attempts: scan: %w", err)
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Insert stores a hint entry.
func (s *SQLStore) Insert(ctx context.Context, e hints.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hint_messages (id, message, sort_order, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Message, e.Order, e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert hint: %w", err)
	}
	return nil
}

// First reads the hint with the lowest sort order.
func (s *SQLStore) First(ctx context.Context) (hints.Entry, bool, error) {
	var (
		e       hints.Entry
		created string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, message, sort_order, created_at
        FROM hint_messages
        ORDER BY sort_order ASC, id ASC
        LIMIT 1`,
	).Scan(&e.ID, &e.Message, &e.Order, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return hints.Entry{}, false, nil
	}
	if err != nil {
		return hints.Entry{}, false, fmt.Errorf("first hint: %w", err)
	}
	e.CreatedAt = parseTime(created)
	return e, true, nil
}

// Delete removes a hint by id; RowsAffected decides who consumed it.
func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM hint_messages WHERE id=?`, id)
	if err != nil {
		return false, fmt.Errorf("delete hint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete hint: rows affected: %w", err)
	}
	return n == 1, nil
}

// parseTime parses stored timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
