package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/slotgo/internal/domain"
	"github.com/kirinyoku/slotgo/internal/repository"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// missingMarker is stored in place of an event the store does not have.
const missingMarker = "-"

// EventLoader reads one event from the store.
type EventLoader func(ctx context.Context, id string) (*domain.Event, error)

// Cache is a read-through cache of event documents.
type Cache struct {
	rdb        *redis.Client
	sf         singleflight.Group
	missingTTL time.Duration
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client, missingTTL: 5 * time.Second}
}

// Event returns the event with id, calling load on a miss. Concurrent
// misses on one id share a single load. Store misses are remembered for a
// few seconds so unknown ids do not reach the store on every request.
// A broken cache falls through to load.
//
// Returns:
//   - error: repository.ErrNotFound if the event does not exist.
func (c *Cache) Event(ctx context.Context, id string, ttl time.Duration, load EventLoader) (*domain.Event, error) {
	key := KeyEventSummary(id)

	if e, hit, err := c.lookupEvent(ctx, key); hit {
		return e, err
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if e, hit, err := c.lookupEvent(ctx, key); hit {
			return e, err
		}

		e, err := load(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				_ = c.rdb.Set(ctx, key, missingMarker, c.missingTTL).Err()
			}
			return nil, err
		}

		if b, err := json.Marshal(e); err == nil {
			_ = c.rdb.Set(ctx, key, b, ttl).Err()
		}

		return e, nil
	})
	if err != nil {
		return nil, err
	}

	// the loaded value is shared between callers
	e := *v.(*domain.Event)
	return &e, nil
}

// lookupEvent reports hit=false when the caller has to load.
func (c *Cache) lookupEvent(ctx context.Context, key string) (*domain.Event, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false, nil
	}

	if string(raw) == missingMarker {
		return nil, true, fmt.Errorf("redisrepo.Cache.Event:%w", repository.ErrNotFound)
	}

	var e domain.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, nil
	}

	return &e, true, nil
}

// InvalidateEvent drops the cached copy, including a cached miss.
func (c *Cache) InvalidateEvent(ctx context.Context, eventID string) error {
	return c.rdb.Del(ctx, KeyEventSummary(eventID)).Err()
}
