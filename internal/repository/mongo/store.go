package mongorepo

import (
	"context"
	"fmt"

	"github.com/kirinyoku/slotgo/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EventsCollection   = "events"
	BookingsCollection = "bookings"

	bookingUniqueIndex = "eventId_email_unique"
)

type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// NewStore binds the repositories to database name. With transactions
// enabled RunTx opens a multi-document transaction, which needs a replica
// set; without it fn runs directly and every write stays single-document.
func NewStore(client *mongo.Client, name string, transactions bool) *Store {
	return &Store{
		client:       client,
		db:           client.Database(name),
		transactions: transactions,
	}
}

func (s *Store) Set() repository.Set {
	return repository.Set{
		Events:   s.Events(),
		Ledger:   s.Ledger(),
		Bookings: s.Bookings(),
		Tx:       s,
	}
}

func (s *Store) Events() *EventRepo    { return &EventRepo{coll: s.db.Collection(EventsCollection)} }
func (s *Store) Ledger() *LedgerRepo   { return &LedgerRepo{coll: s.db.Collection(EventsCollection)} }
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{db: s.db} }

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	const op = "mongorepo.Store.RunTx"

	if !s.transactions || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return wrapDBErr(op, err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	var fnErr error
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		fnErr = fn(sc)
		return nil, fnErr
	})

	return txResult(op, fnErr, err)
}

// txResult tags a transaction error that did not come from the body: the
// body succeeded, so the commit is what failed and it may have applied.
func txResult(op string, fnErr, txErr error) error {
	if txErr == nil || fnErr != nil {
		return txErr
	}
	return fmt.Errorf("%s.commit:%w: %w", op, repository.ErrCommitUnknown, translateDBErr(txErr))
}

// EnsureIndexes creates the unique (eventId, email) index the admission
// flow relies on, plus the lookup indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	const op = "mongorepo.Store.EnsureIndexes"

	bookings := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(bookingUniqueIndex),
		},
		{Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}

	if _, err := s.db.Collection(BookingsCollection).Indexes().CreateMany(ctx, bookings); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	events := []mongo.IndexModel{
		{Keys: bson.D{{Key: "startsAt", Value: -1}}},
	}

	if _, err := s.db.Collection(EventsCollection).Indexes().CreateMany(ctx, events); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
