package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/slotgo/internal/domain"
)

type BookingRepo struct {
	pool *pgxpool.Pool
}

func (r *BookingRepo) Exists(ctx context.Context, eventID, email string) (bool, error) {
	const op = "postgresrepo.BookingRepo.Exists"

	db := handle(ctx, r.pool)

	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM bookings
			 WHERE event_id = $1 AND participant_email = $2
		 )`,
		eventID, email,
	).Scan(&exists); err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

// Create inserts a booking. The foreign key on event_id and the unique
// constraint on (event_id, participant_email) are checked by the insert
// itself.
//
// Returns:
//   - error: repository.ErrConflict if the participant already booked the event.
//   - error: repository.ErrNotFound if the event does not exist.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgresrepo.BookingRepo.Create"

	db := handle(ctx, r.pool)

	if err := db.QueryRow(ctx,
		`INSERT INTO bookings(id, event_id, participant_email)
       	 VALUES ($1, $2, $3)
     	 RETURNING created_at`,
		b.ID, b.EventID, b.ParticipantEmail,
	).Scan(&b.CreatedAt); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id string) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	db := handle(ctx, r.pool)

	var b domain.Booking
	err := db.QueryRow(ctx,
		`SELECT id, event_id, participant_email, created_at
       	 FROM bookings WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.EventID, &b.ParticipantEmail, &b.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *BookingRepo) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	const op = "postgresrepo.BookingRepo.CountByEvent"

	db := handle(ctx, r.pool)

	var n int64
	if err := db.QueryRow(ctx,
		`SELECT count(*) FROM bookings WHERE event_id = $1`,
		eventID,
	).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}
