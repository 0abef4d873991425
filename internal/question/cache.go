package question

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = 30 * time.Minute
	// loadedMarker distinguishes a cached empty set from a cache miss.
	loadedMarker = "_"
)

// SeenStore records which questions a player has already been shown.
type SeenStore interface {
	SeenQuestionIDs(ctx context.Context, userID int64, d Difficulty) (IDSet, error)
	MarkUsed(ctx context.Context, userID, questionID int64, d Difficulty) error
}

// SeenCache keeps per player+tier seen sets in Redis in front of the durable store.
type SeenCache struct {
	client *redis.Client
	store  SeenStore
	ttl    time.Duration
}

var _ SeenStore = (*SeenCache)(nil)

func NewSeenCache(client *redis.Client, store SeenStore, ttl time.Duration) *SeenCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &SeenCache{client: client, store: store, ttl: ttl}
}

func (c *SeenCache) key(userID int64, d Difficulty) string {
	return fmt.Sprintf("seen:%d:%s", userID, d)
}

// SeenQuestionIDs serves from Redis when the set is warm and falls back to the store otherwise.
func (c *SeenCache) SeenQuestionIDs(ctx context.Context, userID int64, d Difficulty) (IDSet, error) {
	key := c.key(userID, d)
	members, err := c.client.SMembers(ctx, key).Result()
	if err == nil {
		if ids, ok := decodeMembers(members); ok {
			return ids, nil
		}
	}

	ids, err := c.store.SeenQuestionIDs(ctx, userID, d)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, 0, len(ids)+1)
	values = append(values, loadedMarker)
	for id := range ids {
		values = append(values, strconv.FormatInt(id, 10))
	}
	// Seen sets only grow, so the warm-up merges into whatever ids MarkUsed
	// added since the store was read instead of replacing them.
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, values...)
	pipe.Expire(ctx, key, c.ttl)
	// A failed warm-up only costs a store round trip next time.
	_, _ = pipe.Exec(ctx)

	return ids, nil
}

// MarkUsed writes through to the store and then to the cached set. A set
// that is not warm yet keeps the id without the loaded marker, so the next
// read still reloads from the store and merges.
func (c *SeenCache) MarkUsed(ctx context.Context, userID, questionID int64, d Difficulty) error {
	if err := c.store.MarkUsed(ctx, userID, questionID, d); err != nil {
		return err
	}

	key := c.key(userID, d)
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, strconv.FormatInt(questionID, 10))
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		// Drop the entry so the next read reloads from the store.
		c.client.Del(ctx, key)
	}
	return nil
}

func decodeMembers(members []string) (IDSet, bool) {
	ids := make(IDSet, len(members))
	loaded := false
	for _, m := range members {
		if m == loadedMarker {
			loaded = true
			continue
		}
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, loaded
}
