package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	redisrepo "github.com/kirinyoku/slotgo/internal/repository/redis"
	"github.com/kirinyoku/slotgo/internal/service/ledger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventID = "5d1f0c1e-9b7a-4c55-8e1a-2d4f6b8c0a21"

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]domain.Event
	gets   int
}

func (f *fakeEvents) Create(_ context.Context, e *domain.Event) error { return nil }

func (f *fakeEvents) Get(_ context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEvents) List(_ context.Context, limit, offset int) ([]domain.Event, error) {
	out := []domain.Event{}
	for _, e := range f.events {
		out = append(out, e)
	}
	if offset >= len(out) {
		return []domain.Event{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBookings struct {
	repository.Bookings
	byID map[string]domain.Booking
}

func (f *fakeBookings) Get(_ context.Context, id string) (*domain.Booking, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

type fakeSnapshotter map[string]domain.CapacitySnapshot

func (f fakeSnapshotter) Snapshot(_ context.Context, id string) (domain.CapacitySnapshot, error) {
	s, ok := f[id]
	if !ok {
		return domain.CapacitySnapshot{}, ledger.ErrEventNotFound
	}
	return s, nil
}

func newCache(t *testing.T) *redisrepo.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisrepo.NewCache(rdb)
}

func TestService_GetEvent_UsesCache(t *testing.T) {
	events := &fakeEvents{events: map[string]domain.Event{
		eventID: {ID: eventID, Title: "Meetup", Capacity: 10, StartsAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}
	svc := New(events, nil, nil, newCache(t), Config{})

	for i := 0; i < 3; i++ {
		e, err := svc.GetEvent(context.Background(), eventID)
		require.NoError(t, err)
		assert.Equal(t, "Meetup", e.Title)
	}

	assert.Equal(t, 1, events.gets)
}

func TestService_GetEvent_NotFound(t *testing.T) {
	svc := New(&fakeEvents{events: map[string]domain.Event{}}, nil, nil, nil, Config{})

	_, err := svc.GetEvent(context.Background(), eventID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = svc.GetEvent(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestService_ListEvents_ClampsLimit(t *testing.T) {
	events := &fakeEvents{events: map[string]domain.Event{}}
	for i := 0; i < 5; i++ {
		id := string(rune('a'+i)) + eventID[1:]
		events.events[id] = domain.Event{ID: id}
	}
	svc := New(events, nil, nil, nil, Config{DefaultEventPage: 2, MaxEventPage: 3})

	got, err := svc.ListEvents(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.ListEvents(context.Background(), 50, -1)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestService_Availability(t *testing.T) {
	snaps := fakeSnapshotter{eventID: {EventID: eventID, Capacity: 4, ReservedCount: 3}}
	svc := New(nil, nil, snaps, nil, Config{})

	snap, err := svc.Availability(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Remaining())

	_, err = svc.Availability(context.Background(), "6d1f0c1e-9b7a-4c55-8e1a-2d4f6b8c0a21")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestService_GetBooking(t *testing.T) {
	const bookingID = "7e2a1b3c-0d4e-4f5a-8b6c-9d0e1f2a3b4c"
	bookings := &fakeBookings{byID: map[string]domain.Booking{
		bookingID: {ID: bookingID, EventID: eventID, ParticipantEmail: "a@x.com"},
	}}
	svc := New(nil, bookings, nil, nil, Config{})

	b, err := svc.GetBooking(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", b.ParticipantEmail)

	_, err = svc.GetBooking(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
