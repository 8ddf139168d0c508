package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	"github.com/kirinyoku/slotgo/internal/service/ledger"
	"github.com/kirinyoku/slotgo/internal/uow"
)

// Ledger is the part of the capacity ledger admission depends on.
type Ledger interface {
	Snapshot(ctx context.Context, eventID string) (domain.CapacitySnapshot, error)
	TryReserveOne(ctx context.Context, eventID string) (domain.ReserveOutcome, error)
	ReleaseOne(ctx context.Context, eventID, attemptID string) error
}

// Flagger records reservations that could not be compensated.
type Flagger interface {
	Flag(ctx context.Context, f domain.ReconciliationFlag) error
}

type CacheInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID string) error
}

type ChangePublisher interface {
	PublishEventChanged(ctx context.Context, eventID string) error
}

// BookingPublisher announces confirmed bookings to downstream consumers.
type BookingPublisher interface {
	PublishBookingConfirmed(ctx context.Context, b domain.Booking) error
}

type Config struct {
	// StoreTimeout bounds each booking store call.
	StoreTimeout time.Duration
	// FinishTimeout bounds everything after a slot was reserved: recording,
	// compensation and notifications. It is not tied to the caller.
	FinishTimeout time.Duration
}

// Deps are the collaborators of the admission service. Cache, Changes and
// Bookings publishers are optional.
type Deps struct {
	Ledger   Ledger
	Bookings repository.Bookings
	Tx       repository.TxRunner
	Flagger  Flagger

	Cache     CacheInvalidator
	Changes   ChangePublisher
	Publisher BookingPublisher
}

// Service admits participants to events. Capacity is enforced by the
// ledger alone; the service never reads a count and writes it back.
type Service struct {
	ledger    Ledger
	bookings  repository.Bookings
	uow       *uow.UoW
	flagger   Flagger
	cache     CacheInvalidator
	changes   ChangePublisher
	publisher BookingPublisher
	cfg       Config
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

func New(deps Deps, cfg Config, logger *slog.Logger) *Service {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}

	if cfg.FinishTimeout <= 0 || cfg.FinishTimeout < cfg.StoreTimeout {
		cfg.FinishTimeout = 5 * cfg.StoreTimeout
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		ledger:    deps.Ledger,
		bookings:  deps.Bookings,
		uow:       uow.NewUoW(deps.Tx),
		flagger:   deps.Flagger,
		cache:     deps.Cache,
		changes:   deps.Changes,
		publisher: deps.Publisher,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "admission")),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// attempt carries one Submit call through its stages.
type attempt struct {
	id      string
	eventID string
	email   string
	stage   Stage
	logger  *slog.Logger
}

func (a *attempt) enter(s Stage) {
	a.logger.Debug("stage", slog.String("from", a.stage.String()), slog.String("to", s.String()))
	a.stage = s
}

// Submit admits email to eventID if the event exists, the participant has
// no booking yet and a slot is free.
//
// Parameters:
//   - ctx: request-scoped context. Cancelling it before a slot is reserved
//     aborts the attempt with no effect; once reserved the attempt runs to
//     confirmation or compensation regardless.
//   - eventID: event to book, a UUID.
//   - email: participant email, normalized before use.
//
// Returns:
//   - *domain.Booking: the confirmed booking.
//   - error: admission.ErrInvalidInput (as *InvalidInputError) for bad input.
//   - error: admission.ErrEventNotFound if the event does not exist.
//   - error: admission.ErrDuplicateBooking if the participant is already booked.
//   - error: admission.ErrCapacityExceeded if no slot is left.
//   - error: admission.ErrUnavailable if a store failed; the whole call may be retried.
func (s *Service) Submit(ctx context.Context, eventID, email string) (*domain.Booking, error) {
	const op = "service.admission.Submit"

	a := &attempt{id: s.newID(), stage: StageValidating}
	a.logger = s.logger.With(slog.String("attempt_id", a.id))

	var err error
	if a.eventID, err = domain.ParseEventID(eventID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, invalid(err))
	}

	if a.email, err = domain.NormalizeEmail(email); err != nil {
		return nil, fmt.Errorf("%s:%w", op, invalid(err))
	}

	a.logger = a.logger.With(slog.String("event_id", a.eventID))

	a.enter(StageCheckingEvent)

	if _, err := s.ledger.Snapshot(ctx, a.eventID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, fromLedger(err))
	}

	// Fast path for the common duplicate. The unique constraint on bookings
	// still decides races between concurrent submits.
	if err := s.precheckDuplicate(ctx, a); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w: %w", op, ErrUnavailable, err)
	}

	// From here on the attempt may own a slot and must not be abandoned
	// because the caller went away.
	octx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FinishTimeout)
	defer cancel()

	a.enter(StageReserving)

	outcome, err := s.ledger.TryReserveOne(octx, a.eventID)
	if err != nil {
		err = fromLedger(err)
		if errors.Is(err, ErrUnavailable) {
			// The increment may or may not have been applied. Releasing
			// blindly could take back another attempt's slot.
			s.flag(octx, a, "reservation outcome unknown: "+err.Error())
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	switch outcome {
	case domain.ReserveReserved:
	case domain.ReserveFull:
		a.logger.Info("booking rejected", slog.String("reason", "full"))
		return nil, fmt.Errorf("%s:%w", op, ErrCapacityExceeded)
	case domain.ReserveNotFound:
		return nil, fmt.Errorf("%s:%w", op, ErrEventNotFound)
	default:
		s.flag(octx, a, "reservation outcome unknown: "+outcome.String())
		return nil, fmt.Errorf("%s:%w: ledger returned %s", op, ErrUnavailable, outcome)
	}

	a.enter(StageRecording)

	booking := &domain.Booking{
		ID:               s.newID(),
		EventID:          a.eventID,
		ParticipantEmail: a.email,
	}

	if err := s.record(octx, booking); err != nil {
		confirmed, rerr := s.resolve(octx, a, booking, err)
		if confirmed {
			a.enter(StageConfirmed)
			s.afterConfirmed(octx, a, *booking)
			return booking, nil
		}
		return nil, fmt.Errorf("%s:%w", op, rerr)
	}

	a.enter(StageConfirmed)
	a.logger.Info("booking confirmed", slog.String("booking_id", booking.ID))

	return booking, nil
}

func (s *Service) precheckDuplicate(ctx context.Context, a *attempt) error {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	exists, err := s.bookings.Exists(cctx, a.eventID, a.email)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if exists {
		a.logger.Info("booking rejected", slog.String("reason", "duplicate"))
		return ErrDuplicateBooking
	}

	return nil
}

// record persists the booking in one transaction and registers the
// notifications that follow a commit.
func (s *Service) record(ctx context.Context, b *domain.Booking) error {
	return s.uow.Do(ctx, func(ctx context.Context, after func(uow.AfterCommit)) error {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()

		if err := s.bookings.Create(cctx, b); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.afterConfirmed(ctx, nil, *b)
		})

		return nil
	})
}

// resolve decides what a failed record means. A failure known to precede
// the commit was rolled back and is compensated. When the commit itself
// failed, the booking is confirmed only if it can be read back; otherwise
// the slot stays taken and the attempt is flagged, because the write may
// still become visible later.
func (s *Service) resolve(ctx context.Context, a *attempt, b *domain.Booking, recErr error) (bool, error) {
	switch {
	case errors.Is(recErr, repository.ErrConflict):
		a.logger.Info("booking rejected", slog.String("reason", "duplicate"))
		s.compensate(ctx, a, recErr)
		return false, ErrDuplicateBooking

	case errors.Is(recErr, repository.ErrNotFound):
		s.compensate(ctx, a, recErr)
		return false, ErrEventNotFound

	case !errors.Is(recErr, repository.ErrCommitUnknown):
		s.compensate(ctx, a, recErr)
		return false, fmt.Errorf("%w: %w", ErrUnavailable, recErr)
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	got, err := s.bookings.Get(cctx, b.ID)
	cancel()

	if err == nil {
		a.logger.Warn("booking committed despite error", slog.Any("error", recErr))
		*b = *got
		return true, nil
	}

	s.flag(ctx, a, "booking outcome unknown: "+recErr.Error())
	return false, fmt.Errorf("%w: %w", ErrUnavailable, recErr)
}

// compensate gives back the slot reserved by a. A failed compensation is
// never returned to the caller, whose outcome is decided by cause.
func (s *Service) compensate(ctx context.Context, a *attempt, cause error) {
	a.enter(StageCompensating)

	err := s.ledger.ReleaseOne(ctx, a.eventID, a.id)
	if err == nil {
		a.logger.Info("reservation released", slog.Any("cause", cause))
		return
	}

	if errors.Is(err, ledger.ErrEventNotFound) {
		a.logger.Warn("reservation not released, event is gone", slog.Any("cause", cause))
		return
	}

	cerr := &CompensationError{EventID: a.eventID, AttemptID: a.id, Err: err}
	a.logger.Error("compensation failed",
		slog.Any("cause", cause),
		slog.Any("error", cerr),
	)

	s.flag(ctx, a, cerr.Error())
}

func (s *Service) flag(ctx context.Context, a *attempt, reason string) {
	f := domain.ReconciliationFlag{
		EventID:          a.eventID,
		AttemptID:        a.id,
		ParticipantEmail: a.email,
		Reason:           reason,
		FlaggedAt:        s.now().UTC(),
	}

	if s.flagger == nil {
		a.logger.Error("reconciliation needed", slog.String("reason", reason))
		return
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.flagger.Flag(cctx, f); err != nil {
		a.logger.Error("reconciliation flag not stored",
			slog.String("reason", reason),
			slog.String("participant_email", a.email),
			slog.Any("error", err),
		)
		return
	}

	a.logger.Warn("reconciliation flagged", slog.String("reason", reason))
}

// afterConfirmed runs the best-effort notifications of a confirmed
// booking. Failures are logged only.
func (s *Service) afterConfirmed(ctx context.Context, a *attempt, b domain.Booking) {
	logger := s.logger
	if a != nil {
		logger = a.logger
	}

	if s.cache != nil {
		if err := s.cache.InvalidateEvent(ctx, b.EventID); err != nil {
			logger.Warn("cache invalidation failed", slog.Any("error", err))
		}
	}

	if s.changes != nil {
		if err := s.changes.PublishEventChanged(ctx, b.EventID); err != nil {
			logger.Warn("event change publish failed", slog.Any("error", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBookingConfirmed(ctx, b); err != nil {
			logger.Warn("booking publish failed",
				slog.String("booking_id", b.ID),
				slog.Any("error", err),
			)
		}
	}
}

func invalid(err error) error {
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		return &InvalidInputError{Field: fe.Field, Reason: fe.Reason}
	}
	return &InvalidInputError{Field: "input", Reason: err.Error()}
}

func fromLedger(err error) error {
	if errors.Is(err, ledger.ErrEventNotFound) {
		return ErrEventNotFound
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
