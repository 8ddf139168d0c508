package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/slotgo/internal/domain"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

// Create inserts an event with reserved_count = 0 and fills CreatedAt.
func (r *EventRepo) Create(ctx context.Context, e *domain.Event) error {
	const op = "postgresrepo.EventRepo.Create"

	db := handle(ctx, r.pool)

	if err := db.QueryRow(ctx,
		`INSERT INTO events(id, title, venue, starts_at, capacity, reserved_count)
       	 VALUES ($1, $2, $3, $4, $5, 0)
     	 RETURNING reserved_count, created_at`,
		e.ID, e.Title, e.Venue, e.StartsAt, e.Capacity,
	).Scan(&e.ReservedCount, &e.CreatedAt); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves an event by its ID.
//
// Returns:
//   - *domain.Event: the event when found.
//   - error: repository.ErrNotFound if the event is not found.
func (r *EventRepo) Get(ctx context.Context, id string) (*domain.Event, error) {
	const op = "postgresrepo.EventRepo.Get"

	db := handle(ctx, r.pool)

	var e domain.Event
	err := db.QueryRow(ctx,
		`SELECT id, title, venue, starts_at, capacity, reserved_count, created_at
       	 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Venue, &e.StartsAt, &e.Capacity, &e.ReservedCount, &e.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

// List returns events ordered by start time, newest first.
func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "postgresrepo.EventRepo.List"

	db := handle(ctx, r.pool)

	rows, err := db.Query(ctx,
		`SELECT id, title, venue, starts_at, capacity, reserved_count, created_at
		 FROM events
		 ORDER BY starts_at DESC, id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Event, 0, limit)
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Venue,
			&e.StartsAt,
			&e.Capacity,
			&e.ReservedCount,
			&e.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return out, nil
}
