package admission

import (
	"context"
	"errors"
	"sync"

	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	"github.com/kirinyoku/slotgo/internal/service/ledger"
)

type fakeLedger struct {
	mu         sync.Mutex
	events     map[string]domain.CapacitySnapshot
	released   map[string]bool
	reserveErr error
	releaseErr error
	reserves   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		events:   map[string]domain.CapacitySnapshot{},
		released: map[string]bool{},
	}
}

func (f *fakeLedger) add(eventID string, capacity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[eventID] = domain.CapacitySnapshot{EventID: eventID, Capacity: capacity}
}

func (f *fakeLedger) reserved(eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[eventID].ReservedCount
}

func (f *fakeLedger) Snapshot(ctx context.Context, eventID string) (domain.CapacitySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.CapacitySnapshot{}, errors.Join(ledger.ErrUnavailable, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.events[eventID]
	if !ok {
		return domain.CapacitySnapshot{}, ledger.ErrEventNotFound
	}
	return s, nil
}

func (f *fakeLedger) TryReserveOne(_ context.Context, eventID string) (domain.ReserveOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserves++
	if f.reserveErr != nil {
		return domain.ReserveUnknown, f.reserveErr
	}
	s, ok := f.events[eventID]
	if !ok {
		return domain.ReserveNotFound, nil
	}
	if s.ReservedCount >= s.Capacity {
		return domain.ReserveFull, nil
	}
	s.ReservedCount++
	f.events[eventID] = s
	return domain.ReserveReserved, nil
}

func (f *fakeLedger) ReleaseOne(_ context.Context, eventID, attemptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return f.releaseErr
	}
	s, ok := f.events[eventID]
	if !ok {
		return ledger.ErrEventNotFound
	}
	if f.released[attemptID] {
		return nil
	}
	f.released[attemptID] = true
	s.ReservedCount--
	f.events[eventID] = s
	return nil
}

type bookingKey struct{ eventID, email string }

type fakeBookings struct {
	mu     sync.Mutex
	ledger *fakeLedger
	byID   map[string]domain.Booking
	pairs  map[bookingKey]string

	// createErr fails every Create; committed decides whether the failing
	// Create still stored the booking.
	createErr error
	committed bool
	getErr    error

	// lateCommit makes a failing Create store its booking only after the
	// next Get, as a commit that becomes visible after a read-back would.
	lateCommit bool
	pending    []domain.Booking
}

func newFakeBookings(l *fakeLedger) *fakeBookings {
	return &fakeBookings{
		ledger: l,
		byID:   map[string]domain.Booking{},
		pairs:  map[bookingKey]string{},
	}
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeBookings) Exists(_ context.Context, eventID, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pairs[bookingKey{eventID, email}]
	return ok, nil
}

func (f *fakeBookings) Create(_ context.Context, b *domain.Booking) error {
	if _, err := f.ledger.Snapshot(context.Background(), b.EventID); err != nil {
		return repository.ErrNotFound
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil && f.lateCommit {
		f.pending = append(f.pending, *b)
		return f.createErr
	}

	if f.createErr != nil && !f.committed {
		return f.createErr
	}

	k := bookingKey{b.EventID, b.ParticipantEmail}
	if _, ok := f.pairs[k]; ok {
		return repository.ErrConflict
	}
	f.pairs[k] = b.ID
	f.byID[b.ID] = *b

	return f.createErr
}

func (f *fakeBookings) Get(_ context.Context, id string) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.landPending()
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (f *fakeBookings) landPending() {
	for _, b := range f.pending {
		f.pairs[bookingKey{b.EventID, b.ParticipantEmail}] = b.ID
		f.byID[b.ID] = b
	}
	f.pending = nil
}

func (f *fakeBookings) CountByEvent(_ context.Context, eventID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.pairs {
		if k.eventID == eventID {
			n++
		}
	}
	return n, nil
}

type directTx struct{}

func (directTx) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeFlagger struct {
	mu    sync.Mutex
	flags []domain.ReconciliationFlag
	err   error
}

func (f *fakeFlagger) Flag(_ context.Context, fl domain.ReconciliationFlag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.flags = append(f.flags, fl)
	return nil
}

func (f *fakeFlagger) all() []domain.ReconciliationFlag {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ReconciliationFlag(nil), f.flags...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	bookings []domain.Booking
	changed  []string
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, b domain.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bookings = append(p.bookings, b)
	return nil
}

func (p *recordingPublisher) PublishEventChanged(_ context.Context, eventID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, eventID)
	return nil
}

// unknownOutcomeLedger reports no outcome and no error for every reserve.
type unknownOutcomeLedger struct {
	*fakeLedger
}

func (unknownOutcomeLedger) TryReserveOne(context.Context, string) (domain.ReserveOutcome, error) {
	return domain.ReserveUnknown, nil
}
