// internal/hints/queue.go
//
// Consumable hint queue backed by an ordered collection.
// Responsibilities:
//   - Seed the collection from the canonical hint list when it is empty.
//   - Pop the entry with the lowest sort key, deleting it on read.
//   - Reseed at most once per pop when the collection runs dry, unless this
//     queue has already dispensed a full canonical cycle since the last seed.
//
// Notes:
//   - The collection's Delete is the point of consumption: of several callers
//     that read the same entry, only the one whose Delete reports true gets it.
//   - Store failures are logged and reported to the caller as "no hint",
//     the same as exhaustion.
//   - Once a full cycle has been handed out, exhaustion is terminal until
//     EnsureSeeded is called explicitly (startup or the admin seed route).

package hints

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Entry is one stored hint.
type Entry struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
}

// Collection is the ordered store behind a Queue.
type Collection interface {
	// Insert stores e under e.ID.
	Insert(ctx context.Context, e Entry) error

	// First returns the entry with the lowest Order, if any.
	First(ctx context.Context) (Entry, bool, error)

	// Delete removes the entry with the given id and reports whether this
	// call removed it. A false result means another caller consumed it first.
	Delete(ctx context.Context, id string) (bool, error)
}

// maxContention bounds how many times a pop re-reads after losing a delete race.
const maxContention = 8

var errContention = errors.New("hints: gave up after repeated delete races")

// Queue dispenses hints in ascending Order, each at most once.
type Queue struct {
	coll      Collection
	canonical []string
	mu        sync.Mutex   // serializes seeding within this process
	served    atomic.Int64 // hints handed out since the last seed
}

// NewQueue returns a queue over coll that reseeds from canonical.
func NewQueue(coll Collection, canonical []string) *Queue {
	return &Queue{coll: coll, canonical: append([]string(nil), canonical...)}
}

// EnsureSeeded inserts the canonical list, Order = list index, if the
// collection is empty. A non-empty collection is left untouched.
func (q *Queue) EnsureSeeded(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, found, err := q.coll.First(ctx)
	if err != nil {
		return fmt.Errorf("hints: check collection: %w", err)
	}
	if found {
		return nil
	}

	log.Info().Int("count", len(q.canonical)).Msg("seeding hints")
	now := time.Now().UTC()
	for i, msg := range q.canonical {
		e := Entry{ID: uuid.NewString(), Message: msg, Order: i, CreatedAt: now}
		if err := q.coll.Insert(ctx, e); err != nil {
			return fmt.Errorf("hints: insert %d: %w", i, err)
		}
	}
	q.served.Store(0)
	return nil
}

// PopNext consumes and returns the next hint. ok is false when no hint is
// available: the canonical list is empty, this queue already dispensed a
// whole cycle, or the store failed.
func (q *Queue) PopNext(ctx context.Context) (msg string, ok bool) {
	msg, ok, err := q.take(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("pop hint")
		return "", false
	}
	if ok {
		q.served.Add(1)
		return msg, true
	}
	if n := q.served.Load(); n > 0 && n >= int64(len(q.canonical)) {
		return "", false
	}

	// One reseed-and-retry cycle, never more.
	if err := q.EnsureSeeded(ctx); err != nil {
		log.Warn().Err(err).Msg("reseed hints")
		return "", false
	}
	msg, ok, err = q.take(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("pop hint after reseed")
		return "", false
	}
	if ok {
		q.served.Add(1)
	}
	return msg, ok
}

// take reads the lowest entry and tries to delete it, moving on to the next
// lowest when another caller won the delete.
func (q *Queue) take(ctx context.Context) (string, bool, error) {
	for i := 0; i < maxContention; i++ {
		e, found, err := q.coll.First(ctx)
		if err != nil {
			return "", false, fmt.Errorf("hints: read first: %w", err)
		}
		if !found {
			return "", false, nil
		}
		won, err := q.coll.Delete(ctx, e.ID)
		if err != nil {
			return "", false, fmt.Errorf("hints: delete %s: %w", e.ID, err)
		}
		if won {
			return e.Message, true, nil
		}
		log.Debug().Str("id", e.ID).Msg("hint consumed by another caller")
	}
	return "", false, errContention
}
