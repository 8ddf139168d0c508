package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	"github.com/kirinyoku/slotgo/internal/uow"
)

type CacheInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID string) error
}

type ChangePublisher interface {
	PublishEventChanged(ctx context.Context, eventID string) error
}

// FlagReader lists reservations waiting for manual reconciliation.
type FlagReader interface {
	Pending(ctx context.Context, limit int64) ([]domain.ReconciliationFlag, error)
}

type Deps struct {
	Events   repository.Events
	Ledger   repository.Ledger
	Bookings repository.Bookings
	Tx       repository.TxRunner
	Flags    FlagReader
	Cache    CacheInvalidator
	Changes  ChangePublisher
}

type Service struct {
	events   repository.Events
	ledger   repository.Ledger
	bookings repository.Bookings
	flags    FlagReader
	cache    CacheInvalidator
	changes  ChangePublisher
	uow      *uow.UoW
	logger   *slog.Logger
}

func New(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		events:   deps.Events,
		ledger:   deps.Ledger,
		bookings: deps.Bookings,
		flags:    deps.Flags,
		cache:    deps.Cache,
		changes:  deps.Changes,
		uow:      uow.NewUoW(deps.Tx),
		logger:   logger.With(slog.String("component", "admin")),
	}
}

// CreateEvent validates ne and stores it as a new event with no
// reservations.
//
// Parameters:
//   - ctx: request-scoped context.
//   - ne: event input; title is required and capacity must be at least 1.
//
// Returns:
//   - *domain.Event: the created event.
//   - error: admin.ErrInvalidEvent (as *InvalidEventError) for bad input.
//   - error: admin.ErrEventConflict if the generated ID already exists.
func (s *Service) CreateEvent(ctx context.Context, ne domain.NewEvent) (*domain.Event, error) {
	const op = "service.admin.CreateEvent"

	if err := domain.ValidateNewEvent(&ne); err != nil {
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			return nil, fmt.Errorf("%s:%w", op, &InvalidEventError{Field: fe.Field, Reason: fe.Reason})
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	e := &domain.Event{
		ID:       uuid.NewString(),
		Title:    ne.Title,
		Venue:    ne.Venue,
		StartsAt: ne.StartsAt.UTC(),
		Capacity: ne.Capacity,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		if err := s.events.Create(ctx, e); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEventConflict
			}
			return err
		}

		after(func(ctx context.Context) {
			if s.cache != nil {
				_ = s.cache.InvalidateEvent(ctx, e.ID)
			}
			if s.changes != nil {
				_ = s.changes.PublishEventChanged(ctx, e.ID)
			}
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.logger.Info("event created",
		slog.String("event_id", e.ID),
		slog.Int("capacity", e.Capacity),
	)

	return e, nil
}

// Audit is a point-in-time comparison of the ledger and the bookings of
// one event. Drift above zero means reserved slots without a booking.
type Audit struct {
	EventID       string `json:"event_id"`
	Capacity      int    `json:"capacity"`
	ReservedCount int    `json:"reserved_count"`
	Bookings      int64  `json:"bookings"`
	Drift         int64  `json:"drift"`
}

// Audit reports drift between the ledger and stored bookings. The two
// reads are not atomic, so an in-flight admission shows up as transient
// drift of one. It never changes the ledger.
//
// Returns:
//   - *Audit: the report.
//   - error: admin.ErrEventNotFound if the event does not exist.
func (s *Service) Audit(ctx context.Context, eventID string) (*Audit, error) {
	const op = "service.admin.Audit"

	id, err := domain.ParseEventID(eventID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
	}

	snap, err := s.ledger.Snapshot(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	n, err := s.bookings.CountByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	a := &Audit{
		EventID:       id,
		Capacity:      snap.Capacity,
		ReservedCount: snap.ReservedCount,
		Bookings:      n,
		Drift:         int64(snap.ReservedCount) - n,
	}

	if a.Drift != 0 {
		s.logger.Warn("ledger drift",
			slog.String("event_id", id),
			slog.Int64("drift", a.Drift),
		)
	}

	return a, nil
}

// PendingReconciliation returns up to limit flagged reservations, newest
// first.
func (s *Service) PendingReconciliation(ctx context.Context, limit int64) ([]domain.ReconciliationFlag, error) {
	const op = "service.admin.PendingReconciliation"

	if s.flags == nil {
		return []domain.ReconciliationFlag{}, nil
	}

	flags, err := s.flags.Pending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return flags, nil
}
