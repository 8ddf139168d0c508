package mongorepo

import (
	"context"
	"time"

	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// releaseRetention is how long an applied release stays on the event.
// A release is only retried within one admission attempt, which is bounded
// by seconds, so older marks can be dropped without risking a second
// decrement.
const releaseRetention = 24 * time.Hour

// releaseMark records one applied release.
type releaseMark struct {
	ID string    `bson:"id"`
	At time.Time `bson:"at"`
}

type LedgerRepo struct {
	coll *mongo.Collection
}

func (r *LedgerRepo) Snapshot(ctx context.Context, eventID string) (domain.CapacitySnapshot, error) {
	const op = "mongorepo.LedgerRepo.Snapshot"

	var doc struct {
		Capacity      int `bson:"capacity"`
		ReservedCount int `bson:"reservedCount"`
	}

	opts := options.FindOne().SetProjection(bson.M{"capacity": 1, "reservedCount": 1})
	if err := r.coll.FindOne(ctx, bson.M{"_id": eventID}, opts).Decode(&doc); err != nil {
		return domain.CapacitySnapshot{}, wrapDBErr(op, err)
	}

	return domain.CapacitySnapshot{
		EventID:       eventID,
		Capacity:      doc.Capacity,
		ReservedCount: doc.ReservedCount,
	}, nil
}

// TryReserveOne applies $inc only to a document whose reservedCount is
// below its capacity. A single-document update is atomic, so the filter
// and the increment cannot interleave with another writer.
func (r *LedgerRepo) TryReserveOne(ctx context.Context, eventID string) (domain.ReserveOutcome, error) {
	const op = "mongorepo.LedgerRepo.TryReserveOne"

	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":   eventID,
			"$expr": bson.M{"$lt": bson.A{"$reservedCount", "$capacity"}},
		},
		bson.M{"$inc": bson.M{"reservedCount": 1}},
	)
	if err != nil {
		return domain.ReserveUnknown, wrapDBErr(op, err)
	}

	if res.MatchedCount == 1 {
		return domain.ReserveReserved, nil
	}

	exists, err := r.exists(ctx, eventID)
	if err != nil {
		return domain.ReserveUnknown, wrapDBErr(op, err)
	}

	if !exists {
		return domain.ReserveNotFound, nil
	}

	return domain.ReserveFull, nil
}

// ReleaseOne decrements reservedCount once per attemptID. The attempt is
// recorded on releasedAttempts in the same update, and the filter skips
// documents that already carry it. Marks older than releaseRetention are
// pruned by that same update.
func (r *LedgerRepo) ReleaseOne(ctx context.Context, eventID, attemptID string) (bool, error) {
	const op = "mongorepo.LedgerRepo.ReleaseOne"

	res, err := r.coll.UpdateOne(ctx,
		bson.M{
			"_id":                 eventID,
			"reservedCount":       bson.M{"$gt": 0},
			"releasedAttempts.id": bson.M{"$ne": attemptID},
		},
		releaseUpdate(attemptID, time.Now().UTC()),
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	if res.MatchedCount == 1 {
		return true, nil
	}

	exists, err := r.exists(ctx, eventID)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	if !exists {
		return false, wrapDBErr(op, repository.ErrNotFound)
	}

	return false, nil
}

// releaseUpdate decrements the count, drops expired marks and appends the
// mark for attemptID.
func releaseUpdate(attemptID string, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reservedCount": bson.M{"$subtract": bson.A{"$reservedCount", 1}},
			"releasedAttempts": bson.M{"$concatArrays": bson.A{
				bson.M{"$filter": bson.M{
					"input": bson.M{"$ifNull": bson.A{"$releasedAttempts", bson.A{}}},
					"cond":  bson.M{"$gte": bson.A{"$$this.at", now.Add(-releaseRetention)}},
				}},
				bson.A{bson.M{"id": bson.M{"$literal": attemptID}, "at": now}},
			}},
		}}},
	}
}

func (r *LedgerRepo) exists(ctx context.Context, eventID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": eventID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
