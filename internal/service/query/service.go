package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	redisrepo "github.com/kirinyoku/slotgo/internal/repository/redis"
	"github.com/kirinyoku/slotgo/internal/service/ledger"
)

// Snapshotter reads fresh ledger state.
type Snapshotter interface {
	Snapshot(ctx context.Context, eventID string) (domain.CapacitySnapshot, error)
}

type Config struct {
	EventSummaryTTL  time.Duration
	DefaultEventPage int
	MaxEventPage     int
}

type Service struct {
	events   repository.Events
	bookings repository.Bookings
	ledger   Snapshotter
	cache    *redisrepo.Cache
	cfg      Config
}

// New builds the read side. cache may be nil, in which case every read
// goes to the store.
func New(
	events repository.Events,
	bookings repository.Bookings,
	ledger Snapshotter,
	cache *redisrepo.Cache,
	cfg Config,
) *Service {
	if cfg.EventSummaryTTL <= 0 {
		cfg.EventSummaryTTL = 60 * time.Second
	}

	if cfg.DefaultEventPage <= 0 {
		cfg.DefaultEventPage = 20
	}

	if cfg.MaxEventPage <= 0 {
		cfg.MaxEventPage = 100
	}

	return &Service{
		events:   events,
		bookings: bookings,
		ledger:   ledger,
		cache:    cache,
		cfg:      cfg,
	}
}

// GetEvent retrieves an event by its ID through the cache. The cached
// reserved count is for display only and must not drive admission.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: ID of the event to retrieve.
//
// Returns:
//   - *domain.Event: the retrieved event.
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	const op = "service.query.GetEvent"

	id, err := domain.ParseEventID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
	}

	var event *domain.Event
	if s.cache != nil {
		event, err = s.cache.Event(ctx, id, s.cfg.EventSummaryTTL, s.events.Get)
	} else {
		event, err = s.events.Get(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return event, nil
}

// ListEvents returns a page of events, latest start first. limit is
// clamped to the configured page bounds.
func (s *Service) ListEvents(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "service.query.ListEvents"

	if limit <= 0 {
		limit = s.cfg.DefaultEventPage
	}

	if limit > s.cfg.MaxEventPage {
		limit = s.cfg.MaxEventPage
	}

	if offset < 0 {
		offset = 0
	}

	events, err := s.events.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

// Availability returns the committed capacity snapshot of an event,
// bypassing the cache.
//
// Returns:
//   - domain.CapacitySnapshot: capacity and reserved count.
//   - error: query.ErrEventNotFound if the event is not found.
func (s *Service) Availability(ctx context.Context, id string) (domain.CapacitySnapshot, error) {
	const op = "service.query.Availability"

	id, err := domain.ParseEventID(id)
	if err != nil {
		return domain.CapacitySnapshot{}, fmt.Errorf("%s: %w", op, ErrEventNotFound)
	}

	snap, err := s.ledger.Snapshot(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrEventNotFound) {
			return domain.CapacitySnapshot{}, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}

		return domain.CapacitySnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	return snap, nil
}

// GetBooking retrieves a booking by its ID.
//
// Returns:
//   - *domain.Booking: the booking.
//   - error: query.ErrBookingNotFound if there is no such booking.
func (s *Service) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	const op = "service.query.GetBooking"

	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
	}

	b, err := s.bookings.Get(ctx, u.String())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}
