package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func TestCache_Event(t *testing.T) {
	_, rdb := newTestClient(t)
	cache := NewCache(rdb)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(ctx context.Context, id string) (*domain.Event, error) {
		calls.Add(1)
		return &domain.Event{ID: id, Title: "Go meetup", Capacity: 3}, nil
	}

	first, err := cache.Event(ctx, "e1", time.Minute, load)
	require.NoError(t, err)
	second, err := cache.Event(ctx, "e1", time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, cache.InvalidateEvent(ctx, "e1"))
	_, err = cache.Event(ctx, "e1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_Event_RemembersMiss(t *testing.T) {
	mr, rdb := newTestClient(t)
	cache := NewCache(rdb)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(ctx context.Context, id string) (*domain.Event, error) {
		calls.Add(1)
		return nil, fmt.Errorf("get: %w", repository.ErrNotFound)
	}

	for i := 0; i < 3; i++ {
		_, err := cache.Event(ctx, "ghost", time.Minute, load)
		require.ErrorIs(t, err, repository.ErrNotFound)
	}
	assert.Equal(t, int32(1), calls.Load())

	mr.FastForward(10 * time.Second)
	_, err := cache.Event(ctx, "ghost", time.Minute, load)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_Event_LoaderErrorNotCached(t *testing.T) {
	mr, rdb := newTestClient(t)
	cache := NewCache(rdb)

	boom := errors.New("boom")
	_, err := cache.Event(context.Background(), "e1", time.Minute,
		func(ctx context.Context, id string) (*domain.Event, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	assert.False(t, mr.Exists(KeyEventSummary("e1")))
}

func TestCache_Event_RedisDownFallsThrough(t *testing.T) {
	mr, rdb := newTestClient(t)
	cache := NewCache(rdb)
	mr.Close()

	e, err := cache.Event(context.Background(), "e1", time.Minute,
		func(ctx context.Context, id string) (*domain.Event, error) { return &domain.Event{ID: id}, nil })
	require.NoError(t, err)
	assert.Equal(t, "e1", e.ID)
}

func TestIdempotencyStore(t *testing.T) {
	_, rdb := newTestClient(t)
	store := NewIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()
	key := KeyIdemBooking("e1", "abc")

	ok, err := store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, found, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SaveResult(ctx, key, 201, `{"status":"confirmed","booking_id":"b1"}`))

	status, payload, found, err := store.GetResult(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 201, status)
	assert.JSONEq(t, `{"status":"confirmed","booking_id":"b1"}`, payload)

	require.NoError(t, store.Release(ctx, key))
	ok, err = store.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSlidingWindowLimiter(t *testing.T) {
	_, rdb := newTestClient(t)
	limiter := NewSlidingWindowLimiter(rdb, "bookings", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.RetryAfter > 0)

	other, err := limiter.Allow(ctx, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestReconciliationQueue(t *testing.T) {
	_, rdb := newTestClient(t)
	q := NewReconciliationQueue(rdb, 2)
	ctx := context.Background()

	for _, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, q.Flag(ctx, domain.ReconciliationFlag{
			EventID:   "e1",
			AttemptID: id,
			Reason:    "release failed",
			FlaggedAt: time.Now().UTC(),
		}))
	}

	flags, err := q.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	assert.Equal(t, "a3", flags[0].AttemptID)
	assert.Equal(t, "a2", flags[1].AttemptID)
}

func TestEventsPubSub(t *testing.T) {
	_, rdb := newTestClient(t)
	ps := NewEventsPubSub(rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- ps.Subscribe(ctx, func(ctx context.Context, eventID string) {
			got <- eventID
		})
	}()

	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, ChannelEventsChanged()).Result()
		return err == nil && n[ChannelEventsChanged()] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ps.PublishEventChanged(ctx, "e42"))

	select {
	case id := <-got:
		assert.Equal(t, "e42", id)
	case <-ctx.Done():
		t.Fatal("no notification received")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
