package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
)

type Config struct {
	// StoreTimeout bounds every single store call.
	StoreTimeout time.Duration
	// ReleaseAttempts is the total number of ReleaseOne tries.
	ReleaseAttempts       int
	ReleaseInitialBackoff time.Duration
	ReleaseMaxBackoff     time.Duration
}

// Service is the event capacity ledger: the only component allowed to
// change an event's reserved count.
type Service struct {
	repo   repository.Ledger
	cfg    Config
	logger *slog.Logger
}

func New(repo repository.Ledger, cfg Config, logger *slog.Logger) *Service {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}

	if cfg.ReleaseAttempts <= 0 {
		cfg.ReleaseAttempts = 5
	}

	if cfg.ReleaseInitialBackoff <= 0 {
		cfg.ReleaseInitialBackoff = 50 * time.Millisecond
	}

	if cfg.ReleaseMaxBackoff <= 0 || cfg.ReleaseMaxBackoff < cfg.ReleaseInitialBackoff {
		cfg.ReleaseMaxBackoff = 2 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// Snapshot returns the committed capacity and reserved count of an event.
//
// Returns:
//   - error: ledger.ErrEventNotFound if the event does not exist.
//   - error: ledger.ErrUnavailable if the store failed or timed out.
func (s *Service) Snapshot(ctx context.Context, eventID string) (domain.CapacitySnapshot, error) {
	const op = "service.ledger.Snapshot"

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	snap, err := s.repo.Snapshot(ctx, eventID)
	if err != nil {
		return domain.CapacitySnapshot{}, fmt.Errorf("%s:%w", op, translate(err))
	}

	return snap, nil
}

// TryReserveOne takes one slot of eventID if there is room.
//
// Returns:
//   - domain.ReserveOutcome: Reserved, Full or NotFound.
//   - error: ledger.ErrUnavailable if the store failed or timed out; the
//     outcome is then unknown.
func (s *Service) TryReserveOne(ctx context.Context, eventID string) (domain.ReserveOutcome, error) {
	const op = "service.ledger.TryReserveOne"

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	outcome, err := s.repo.TryReserveOne(ctx, eventID)
	if err != nil {
		return domain.ReserveUnknown, fmt.Errorf("%s:%w", op, translate(err))
	}

	return outcome, nil
}

// ReleaseOne gives back the slot taken by attemptID, retrying with
// exponential backoff. The repository applies a release at most once per
// attempt, so a retry after an ambiguous failure cannot over-release.
//
// Returns:
//   - error: ledger.ErrEventNotFound if the event disappeared (not retried).
//   - error: ledger.ErrReleaseFailed once all attempts are spent or ctx is done.
func (s *Service) ReleaseOne(ctx context.Context, eventID, attemptID string) error {
	const op = "service.ledger.ReleaseOne"

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReleaseInitialBackoff
	b.MaxInterval = s.cfg.ReleaseMaxBackoff
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(s.cfg.ReleaseAttempts-1)),
		ctx,
	)

	tries := 0
	err := backoff.RetryNotify(func() error {
		tries++

		cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()

		released, err := s.repo.ReleaseOne(cctx, eventID, attemptID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}

		if !released {
			s.logger.Debug("release already applied",
				slog.String("event_id", eventID),
				slog.String("attempt_id", attemptID),
			)
		}

		return nil
	}, policy, func(err error, next time.Duration) {
		s.logger.Warn("release attempt failed",
			slog.String("event_id", eventID),
			slog.String("attempt_id", attemptID),
			slog.Int("try", tries),
			slog.Duration("next_in", next),
			slog.Any("error", err),
		)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrEventNotFound)
		}
		return fmt.Errorf("%s: after %d tries: %w: %w", op, tries, ErrReleaseFailed, err)
	}

	return nil
}

// translate maps repository errors onto the ledger's two failure kinds.
// Anything that is not a missing event leaves the ledger state unknown to
// the caller and is reported as unavailable.
func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEventNotFound
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
