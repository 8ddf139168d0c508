package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ReconciliationQueue keeps the most recent uncompensated reservations
// for an operator to repair by hand. It lives in Redis rather than the
// primary store because it is written exactly when the primary store is
// failing.
type ReconciliationQueue struct {
	rdb *redis.Client
	key string
	max int64
}

func NewReconciliationQueue(rdb *redis.Client, max int64) *ReconciliationQueue {
	if max <= 0 {
		max = 10_000
	}

	return &ReconciliationQueue{
		rdb: rdb,
		key: KeyReconciliation(),
		max: max,
	}
}

func (q *ReconciliationQueue) Flag(ctx context.Context, f domain.ReconciliationFlag) error {
	const op = "redisrepo.ReconciliationQueue.Flag"

	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.LPush(ctx, q.key, b)
	pipe.LTrim(ctx, q.key, 0, q.max-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Pending returns up to limit flags, newest first.
func (q *ReconciliationQueue) Pending(ctx context.Context, limit int64) ([]domain.ReconciliationFlag, error) {
	const op = "redisrepo.ReconciliationQueue.Pending"

	if limit <= 0 {
		limit = 100
	}

	raw, err := q.rdb.LRange(ctx, q.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out := make([]domain.ReconciliationFlag, 0, len(raw))
	for _, s := range raw {
		var f domain.ReconciliationFlag
		if err := json.Unmarshal([]byte(s), &f); err != nil {
			continue
		}
		out = append(out, f)
	}

	return out, nil
}
