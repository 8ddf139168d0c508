package mongorepo

import (
	"context"
	"time"

	"github.com/kirinyoku/slotgo/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type eventDoc struct {
	ID               string        `bson:"_id"`
	Title            string        `bson:"title"`
	Venue            string        `bson:"venue"`
	StartsAt         time.Time     `bson:"startsAt"`
	Capacity         int           `bson:"capacity"`
	ReservedCount    int           `bson:"reservedCount"`
	ReleasedAttempts []releaseMark `bson:"releasedAttempts,omitempty"`
	CreatedAt        time.Time     `bson:"createdAt"`
}

func (d eventDoc) toDomain() domain.Event {
	return domain.Event{
		ID:            d.ID,
		Title:         d.Title,
		Venue:         d.Venue,
		StartsAt:      d.StartsAt,
		Capacity:      d.Capacity,
		ReservedCount: d.ReservedCount,
		CreatedAt:     d.CreatedAt,
	}
}

type EventRepo struct {
	coll *mongo.Collection
}

func (r *EventRepo) Create(ctx context.Context, e *domain.Event) error {
	const op = "mongorepo.EventRepo.Create"

	e.ReservedCount = 0
	e.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	doc := eventDoc{
		ID:        e.ID,
		Title:     e.Title,
		Venue:     e.Venue,
		StartsAt:  e.StartsAt.UTC(),
		Capacity:  e.Capacity,
		CreatedAt: e.CreatedAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *EventRepo) Get(ctx context.Context, id string) (*domain.Event, error) {
	const op = "mongorepo.EventRepo.Get"

	var doc eventDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, wrapDBErr(op, err)
	}

	e := doc.toDomain()
	return &e, nil
}

func (r *EventRepo) List(ctx context.Context, limit, offset int) ([]domain.Event, error) {
	const op = "mongorepo.EventRepo.List"

	opts := options.Find().
		SetSort(bson.D{{Key: "startsAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetProjection(bson.M{"releasedAttempts": 0})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer cursor.Close(ctx)

	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapDBErr(op, err)
	}

	out := make([]domain.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	return out, nil
}
