package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type bookingDoc struct {
	ID        string    `bson:"_id"`
	EventID   string    `bson:"eventId"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"createdAt"`
}

type BookingRepo struct {
	db *mongo.Database
}

func (r *BookingRepo) coll() *mongo.Collection {
	return r.db.Collection(BookingsCollection)
}

func (r *BookingRepo) Exists(ctx context.Context, eventID, email string) (bool, error) {
	const op = "mongorepo.BookingRepo.Exists"

	n, err := r.coll().CountDocuments(ctx,
		bson.M{"eventId": eventID, "email": email},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return n > 0, nil
}

// Create checks that the event exists and inserts the booking. The unique
// index eventId_email_unique rejects a second booking for the same pair
// even when two inserts race past the existence check.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "mongorepo.BookingRepo.Create"

	n, err := r.db.Collection(EventsCollection).CountDocuments(ctx,
		bson.M{"_id": b.EventID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}
	if n == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	b.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := bookingDoc{
		ID:        b.ID,
		EventID:   b.EventID,
		Email:     b.ParticipantEmail,
		CreatedAt: b.CreatedAt,
	}

	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		err = translateDBErr(err)
		if errors.Is(err, repository.ErrUnavailable) && mongo.SessionFromContext(ctx) == nil {
			// outside a transaction the insert may have landed before the error
			err = fmt.Errorf("%w: %w", repository.ErrCommitUnknown, err)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id string) (*domain.Booking, error) {
	const op = "mongorepo.BookingRepo.Get"

	var doc bookingDoc
	if err := r.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &domain.Booking{
		ID:               doc.ID,
		EventID:          doc.EventID,
		ParticipantEmail: doc.Email,
		CreatedAt:        doc.CreatedAt,
	}, nil
}

func (r *BookingRepo) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	const op = "mongorepo.BookingRepo.CountByEvent"

	n, err := r.coll().CountDocuments(ctx, bson.M{"eventId": eventID})
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}
