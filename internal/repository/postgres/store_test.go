package postgresrepo

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/postgres"
	"github.com/kirinyoku/slotgo/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to TEST_POSTGRES_DSN and applies the schema. Tests
// using it are skipped when the variable is not set.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))

	return NewStore(pool)
}

func createEvent(t *testing.T, s *Store, capacity int) string {
	t.Helper()

	e := &domain.Event{
		ID:       uuid.NewString(),
		Title:    "Go meetup",
		StartsAt: time.Now().Add(24 * time.Hour).UTC(),
		Capacity: capacity,
	}
	require.NoError(t, s.Events().Create(context.Background(), e))

	return e.ID
}

func TestLedgerRepo_ConcurrentReserveNeverExceedsCapacity(t *testing.T) {
	s := newTestStore(t)
	ledger := s.Ledger()
	ctx := context.Background()

	const capacity, callers = 5, 40
	eventID := createEvent(t, s, capacity)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[domain.ReserveOutcome]int{}
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := ledger.TryReserveOne(ctx, eventID)
			assert.NoError(t, err)
			mu.Lock()
			outcomes[o]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, outcomes[domain.ReserveReserved])
	assert.Equal(t, callers-capacity, outcomes[domain.ReserveFull])

	snap, err := ledger.Snapshot(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, capacity, snap.ReservedCount)
	assert.Zero(t, snap.Remaining())
}

func TestLedgerRepo_UnknownEvent(t *testing.T) {
	s := newTestStore(t)
	ledger := s.Ledger()
	ctx := context.Background()
	missing := uuid.NewString()

	o, err := ledger.TryReserveOne(ctx, missing)
	require.NoError(t, err)
	assert.Equal(t, domain.ReserveNotFound, o)

	_, err = ledger.Snapshot(ctx, missing)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = ledger.ReleaseOne(ctx, missing, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedgerRepo_ReleaseIsAppliedOncePerAttempt(t *testing.T) {
	s := newTestStore(t)
	ledger := s.Ledger()
	ctx := context.Background()
	eventID := createEvent(t, s, 2)

	for i := 0; i < 2; i++ {
		o, err := ledger.TryReserveOne(ctx, eventID)
		require.NoError(t, err)
		require.Equal(t, domain.ReserveReserved, o)
	}

	attemptID := uuid.NewString()

	released, err := ledger.ReleaseOne(ctx, eventID, attemptID)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = ledger.ReleaseOne(ctx, eventID, attemptID)
	require.NoError(t, err)
	assert.False(t, released)

	snap, err := ledger.Snapshot(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ReservedCount)
}

func TestBookingRepo_Create(t *testing.T) {
	s := newTestStore(t)
	bookings := s.Bookings()
	ctx := context.Background()
	eventID := createEvent(t, s, 3)

	first := &domain.Booking{ID: uuid.NewString(), EventID: eventID, ParticipantEmail: "a@x.com"}
	require.NoError(t, s.RunTx(ctx, func(ctx context.Context) error {
		return bookings.Create(ctx, first)
	}))
	assert.False(t, first.CreatedAt.IsZero())

	dup := &domain.Booking{ID: uuid.NewString(), EventID: eventID, ParticipantEmail: "a@x.com"}
	err := s.RunTx(ctx, func(ctx context.Context) error {
		return bookings.Create(ctx, dup)
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NotErrorIs(t, err, repository.ErrCommitUnknown)

	orphan := &domain.Booking{ID: uuid.NewString(), EventID: uuid.NewString(), ParticipantEmail: "a@x.com"}
	err = bookings.Create(ctx, orphan)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	exists, err := bookings.Exists(ctx, eventID, "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := bookings.CountByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_RunTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	bookings := s.Bookings()
	ctx := context.Background()
	eventID := createEvent(t, s, 3)

	b := &domain.Booking{ID: uuid.NewString(), EventID: eventID, ParticipantEmail: "b@x.com"}
	boom := errors.New("boom")

	err := s.RunTx(ctx, func(ctx context.Context) error {
		require.NoError(t, bookings.Create(ctx, b))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrCommitUnknown)

	_, err = bookings.Get(ctx, b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
