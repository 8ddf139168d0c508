package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/slotgo/internal/domain"
)

type LedgerRepo struct {
	pool *pgxpool.Pool
}

// Snapshot reads capacity and reserved_count straight from the events row.
//
// Returns:
//   - error: repository.ErrNotFound if the event is not found.
func (r *LedgerRepo) Snapshot(ctx context.Context, eventID string) (domain.CapacitySnapshot, error) {
	const op = "postgresrepo.LedgerRepo.Snapshot"

	db := handle(ctx, r.pool)

	s := domain.CapacitySnapshot{EventID: eventID}
	err := db.QueryRow(ctx,
		`SELECT capacity, reserved_count FROM events WHERE id = $1`,
		eventID,
	).Scan(&s.Capacity, &s.ReservedCount)
	if err != nil {
		return domain.CapacitySnapshot{}, wrapDBErr(op, err)
	}

	return s, nil
}

// TryReserveOne increments reserved_count by one if and only if it is
// below capacity. The predicate and the increment are one statement, so
// concurrent callers on the same row serialize on the row lock and each
// re-evaluates the predicate against the committed value.
//
// Returns:
//   - domain.ReserveReserved when a row was updated.
//   - domain.ReserveFull when the event exists but has no room.
//   - domain.ReserveNotFound when the event does not exist.
func (r *LedgerRepo) TryReserveOne(ctx context.Context, eventID string) (domain.ReserveOutcome, error) {
	const op = "postgresrepo.LedgerRepo.TryReserveOne"

	db := handle(ctx, r.pool)

	tag, err := db.Exec(ctx,
		`UPDATE events
        	SET reserved_count = reserved_count + 1
      	 WHERE id = $1
        	AND reserved_count < capacity`,
		eventID,
	)
	if err != nil {
		return domain.ReserveUnknown, wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return domain.ReserveReserved, nil
	}

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`,
		eventID,
	).Scan(&exists); err != nil {
		return domain.ReserveUnknown, wrapDBErr(op, err)
	}

	if !exists {
		return domain.ReserveNotFound, nil
	}

	return domain.ReserveFull, nil
}

// ReleaseOne undoes one reservation made by attemptID. The release is
// recorded in capacity_releases in the same statement as the decrement,
// so replaying it after an ambiguous failure is a no-op.
//
// Returns:
//   - bool: true when this call decremented reserved_count.
//   - error: repository.ErrNotFound if the event is not found.
func (r *LedgerRepo) ReleaseOne(ctx context.Context, eventID, attemptID string) (bool, error) {
	const op = "postgresrepo.LedgerRepo.ReleaseOne"

	db := handle(ctx, r.pool)

	tag, err := db.Exec(ctx,
		`WITH rel AS (
			INSERT INTO capacity_releases(attempt_id, event_id)
			VALUES ($2, $1)
			ON CONFLICT (attempt_id) DO NOTHING
			RETURNING event_id
		 )
		 UPDATE events e
			SET reserved_count = e.reserved_count - 1
		   FROM rel
		  WHERE e.id = rel.event_id
			AND e.reserved_count > 0`,
		eventID, attemptID,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return tag.RowsAffected() == 1, nil
}
