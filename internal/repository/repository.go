package repository

import (
	"context"

	"github.com/kirinyoku/slotgo/internal/domain"
)

// Events is the event catalogue owned by the event-creation flow.
type Events interface {
	Create(ctx context.Context, e *domain.Event) error
	Get(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, limit, offset int) ([]domain.Event, error)
}

// Ledger holds the capacity and reserved count of every event.
//
// TryReserveOne must be a single conditional update on the store: it
// increments reserved_count only while reserved_count < capacity.
// ReleaseOne decrements at most once per attemptID and reports whether
// this call performed the decrement.
type Ledger interface {
	Snapshot(ctx context.Context, eventID string) (domain.CapacitySnapshot, error)
	TryReserveOne(ctx context.Context, eventID string) (domain.ReserveOutcome, error)
	ReleaseOne(ctx context.Context, eventID, attemptID string) (bool, error)
}

// Bookings stores booking records. Create returns ErrConflict when the
// (event, participant) pair already exists and ErrNotFound when the event
// does not.
type Bookings interface {
	Exists(ctx context.Context, eventID, email string) (bool, error)
	Create(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id string) (*domain.Booking, error)
	CountByEvent(ctx context.Context, eventID string) (int64, error)
}

// TxRunner runs fn in a store transaction carried by ctx.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Set is one storage backend.
type Set struct {
	Events   Events
	Ledger   Ledger
	Bookings Bookings
	Tx       TxRunner
}
