package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/rosebud/internal/game"
	"github.com/robalobadob/rosebud/internal/store"
)

type failingStore struct{ saves int }

func (f *failingStore) SaveProgress(context.Context, string, store.Progress) error {
	f.saves++
	return errors.New("disk on fire")
}

func (f *failingStore) LoadProgress(context.Context, string) (store.Progress, bool, error) {
	return store.Progress{}, false, errors.New("disk on fire")
}

func (f *failingStore) LogAttempt(context.Context, store.Attempt) error {
	return errors.New("disk on fire")
}

func (f *failingStore) Attempts(context.Context, string, int) ([]store.Attempt, error) {
	return nil, errors.New("disk on fire")
}

func typeKeys(t *testing.T, s *Session, row int, keys ...string) Outcome {
	t.Helper()
	var out Outcome
	for _, k := range keys {
		var err error
		out, err = s.Key(context.Background(), row, k)
		require.NoError(t, err)
	}
	return out
}

func newMemSession(t *testing.T, targets ...string) (*Session, store.Backend) {
	t.Helper()
	b := store.NewMemoryStore()
	return Open(context.Background(), "s1", targets, Deps{Progress: b, Attempts: b}), b
}

func TestSequentialUnlock(t *testing.T) {
	ctx := context.Background()
	s, b := newMemSession(t, "CAT", "DOG", "EEL")

	st := s.State()
	assert.Equal(t, 0, st.UnlockedIndex)
	assert.True(t, st.Rows[0].Reachable)
	assert.False(t, st.Rows[1].Reachable)

	// Input to a row past the unlock index is ignored.
	out := typeKeys(t, s, 1, "D", "O")
	assert.Equal(t, "", out.Row.Draft)
	assert.Empty(t, out.Sounds)
	out, err := s.Submit(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, out.Result)

	typeKeys(t, s, 0, "c", "a", "t")
	out, err = s.Submit(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Success)
	assert.Equal(t, 1, out.UnlockedIndex)
	assert.Equal(t, []game.Sound{game.SoundChoir}, out.Sounds)

	p, ok, err := b.LoadProgress(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, p.UnlockedIndex)
	assert.Equal(t, []int{0}, p.SolvedRows)

	// Resubmitting a solved row changes nothing.
	out, err = s.Submit(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.UnlockedIndex)
	assert.Empty(t, out.Sounds)

	out = typeKeys(t, s, 1, "D")
	assert.Equal(t, "D", out.Row.Draft)
}

func TestUnlockSaturatesAtLastRow(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemSession(t, "A", "B")

	typeKeys(t, s, 0, "A")
	_, err := s.Submit(ctx, 0)
	require.NoError(t, err)
	typeKeys(t, s, 1, "B")
	out, err := s.Submit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, out.UnlockedIndex)

	st := s.State()
	assert.True(t, st.Complete)
	assert.Equal(t, []int{0, 1}, st.SolvedRows)
}

func TestSolvingEarlierRowKeepsUnlockIndex(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryStore()
	require.NoError(t, b.SaveProgress(ctx, "s1", store.Progress{UnlockedIndex: 2, SolvedRows: []int{1}}))

	s := Open(ctx, "s1", []string{"CAT", "DOG", "EEL"}, Deps{Progress: b, Attempts: b})
	typeKeys(t, s, 0, "C", "A", "T")
	out, err := s.Submit(ctx, 0)
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Equal(t, 2, out.UnlockedIndex)

	p, _, err := b.LoadProgress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, p.SolvedRows)
}

func TestHydrateFromProgress(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryStore()
	require.NoError(t, b.SaveProgress(ctx, "s1", store.Progress{UnlockedIndex: 9, SolvedRows: []int{0, 7, -1}}))

	s := Open(ctx, "s1", []string{"CAT", "DOG"}, Deps{Progress: b})
	st := s.State()
	assert.Equal(t, 2, st.UnlockedIndex, "unlock index is clamped to the row count")
	assert.Equal(t, []int{0}, st.SolvedRows, "out of range rows are dropped")
	assert.True(t, st.Rows[0].Solved)
	assert.Equal(t, "CAT", st.Rows[0].Draft)
	assert.False(t, st.Rows[1].Solved)
}

func TestAttemptsAreLogged(t *testing.T) {
	ctx := context.Background()
	s, b := newMemSession(t, "CAT")

	typeKeys(t, s, 0, "T", "A", "C")
	out, err := s.Submit(ctx, 0)
	require.NoError(t, err)
	assert.False(t, out.Result.Success)
	assert.Equal(t, []game.Mark{game.MarkPresent, game.MarkHit, game.MarkPresent}, out.Result.Marks)
	assert.Equal(t, []game.Sound{game.SoundMagma}, out.Sounds)

	// The A slot is locked now, so its keystroke only moves the cursor.
	_, err = s.SetCursor(ctx, 0, 0)
	require.NoError(t, err)
	out = typeKeys(t, s, 0, "C", "A", "T")
	assert.Equal(t, "CAT", out.Row.Draft)
	out = typeKeys(t, s, 0, KeyEnter)
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Success)

	got, err := b.Attempts(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CAT", got[0].UserAttempt)
	assert.True(t, got[0].Correct)
	assert.Equal(t, "TAC", got[1].UserAttempt)
	assert.False(t, got[1].Correct)
	assert.Equal(t, "CAT", got[1].TargetWord)
	assert.Equal(t, "s1", got[1].SessionID)
}

func TestEasterEggIsLogged(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryStore()
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	s := Open(ctx, "s1", []string{"YMJ"}, Deps{Attempts: b, Now: func() time.Time { return now }})

	typeKeys(t, s, 0, "R", "O")
	out := typeKeys(t, s, 0, "B")
	assert.True(t, out.EasterEgg)
	assert.Equal(t, []game.Sound{game.SoundChisel, game.SoundHarp}, out.Sounds)
	assert.True(t, out.Row.EasterEgg)

	got, err := b.Attempts(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	want := store.Attempt{
		SessionID:   "s1",
		RowIndex:    0,
		TargetWord:  "YMJ",
		UserAttempt: "ROB_TRIGGER",
		EasterEgg:   true,
	}
	if diff := cmp.Diff(want, got[0], cmpIgnoreGenerated); diff != "" {
		t.Errorf("attempt (-want +got):\n%s", diff)
	}
}

var cmpIgnoreGenerated = cmp.FilterPath(func(p cmp.Path) bool {
	f := p.Last().String()
	return f == ".ID" || f == ".CreatedAt"
}, cmp.Ignore())

func TestKeyTranslation(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemSession(t, "ABCD")

	out := typeKeys(t, s, 0, "A", "B")
	assert.Equal(t, 2, out.Row.Cursor)

	out = typeKeys(t, s, 0, KeyArrowLeft, KeyArrowLeft, KeyArrowLeft)
	assert.Equal(t, 0, out.Row.Cursor)
	assert.Empty(t, out.Sounds, "arrows are silent")

	out = typeKeys(t, s, 0, KeyArrowRight)
	assert.Equal(t, 1, out.Row.Cursor)

	out = typeKeys(t, s, 0, KeyBackspace)
	assert.Equal(t, "A", out.Row.Draft)
	assert.Equal(t, 0, out.Row.Cursor)
	assert.Equal(t, []game.Sound{game.SoundChisel}, out.Sounds)

	// Virtual keyboards send the whole field; only the last character counts.
	out, err := s.SetCursor(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Row.Cursor)
	out, err = s.Input(ctx, 0, "xyd")
	require.NoError(t, err)
	assert.Equal(t, "A  D", out.Row.Draft)
	out, err = s.Input(ctx, 0, "ab1")
	require.NoError(t, err)
	assert.Equal(t, "A  D", out.Row.Draft)
	assert.Empty(t, out.Sounds)

	out = typeKeys(t, s, 0, "Shift", "7", "", "xyz")
	assert.Equal(t, "A  D", out.Row.Draft)
	assert.Empty(t, out.Sounds)
}

func TestNoSuchRow(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemSession(t, "CAT")

	_, err := s.Key(ctx, 1, "A")
	assert.ErrorIs(t, err, ErrNoRow)
	_, err = s.Submit(ctx, -1)
	assert.ErrorIs(t, err, ErrNoRow)
	_, err = s.SetCursor(ctx, 5, 0)
	assert.ErrorIs(t, err, ErrNoRow)
}

func TestFailingStoreIsSoft(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{}
	s := Open(ctx, "s1", []string{"CAT", "DOG"}, Deps{Progress: fs, Attempts: fs})

	typeKeys(t, s, 0, "C", "A", "T")
	out, err := s.Submit(ctx, 0)
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Equal(t, 1, out.UnlockedIndex)
	assert.Equal(t, 1, fs.saves)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryStore()
	m := NewManager([]string{"CAT"}, Deps{Progress: b, Attempts: b}, 0)

	a := m.Get(ctx, "a")
	assert.Same(t, a, m.Get(ctx, "a"))
	other := m.Get(ctx, "b")
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, m.Len())

	typeKeys(t, a, 0, "C")
	assert.Equal(t, "", other.State().Rows[0].Draft)
	assert.Equal(t, "b", other.ID())
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemoryStore()
	m := NewManager([]string{"CAT", "DOG"}, Deps{Progress: b, Attempts: b}, 2)

	first := m.Get(ctx, "a")
	typeKeys(t, first, 0, "C", "A", "T", "Enter")
	bs := m.Get(ctx, "b")
	m.Get(ctx, "a") // a is now the most recent
	m.Get(ctx, "c")

	assert.Equal(t, 2, m.Len())
	assert.Same(t, first, m.Get(ctx, "a"))
	assert.NotSame(t, bs, m.Get(ctx, "b"), "b was evicted and reopened")

	// c and d push a out; reopening hydrates its progress.
	m.Get(ctx, "c")
	m.Get(ctx, "d")
	again := m.Get(ctx, "a")
	assert.NotSame(t, first, again)
	assert.Equal(t, 1, again.State().UnlockedIndex)
	assert.Equal(t, []int{0}, again.State().SolvedRows)
}

// gatedStore blocks LoadProgress for one session id until released.
type gatedStore struct {
	store.Backend
	slow    string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) LoadProgress(ctx context.Context, id string) (store.Progress, bool, error) {
	if id == g.slow {
		close(g.entered)
		<-g.release
	}
	return g.Backend.LoadProgress(ctx, id)
}

func TestManagerOpensOutsideLock(t *testing.T) {
	ctx := context.Background()
	g := &gatedStore{
		Backend: store.NewMemoryStore(),
		slow:    "slow",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewManager([]string{"CAT"}, Deps{Progress: g, Attempts: g}, 0)

	done := make(chan *Session)
	go func() { done <- m.Get(ctx, "slow") }()
	<-g.entered

	// Another session opens while the slow hydration is still in flight.
	fast := make(chan *Session)
	go func() { fast <- m.Get(ctx, "fast") }()
	select {
	case s := <-fast:
		assert.Equal(t, "fast", s.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("Get blocked behind another session's store read")
	}

	close(g.release)
	slow := <-done
	assert.Same(t, slow, m.Get(ctx, "slow"))
	assert.Equal(t, 2, m.Len())
}
