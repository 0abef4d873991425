package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultIndexTTL = 15 * time.Minute

// releaseScript deletes the entry only when it still holds the expected session.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisIndex keeps the player to session index in Redis.
// Entries expire on their own so a crashed process never pins a player.
type RedisIndex struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ Index = (*RedisIndex)(nil)

// NewRedisIndex creates an index backed by Redis. ttl should exceed the longest tier timeout.
func NewRedisIndex(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisIndex {
	if ttl <= 0 {
		ttl = defaultIndexTTL
	}
	return &RedisIndex{
		redis:  client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_index").Logger(),
	}
}

func (r *RedisIndex) key(userID int64) string {
	return fmt.Sprintf("match:player:%d", userID)
}

func (r *RedisIndex) Bind(ctx context.Context, userID int64, sessionID string) error {
	if err := r.redis.Set(ctx, r.key(userID), sessionID, r.ttl).Err(); err != nil {
		return fmt.Errorf("bind session: %w", err)
	}
	return nil
}

func (r *RedisIndex) Lookup(ctx context.Context, userID int64) (string, bool, error) {
	id, err := r.redis.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup session: %w", err)
	}
	return id, true, nil
}

func (r *RedisIndex) Release(ctx context.Context, userID int64, sessionID string) error {
	if err := releaseScript.Run(ctx, r.redis, []string{r.key(userID)}, sessionID).Err(); err != nil {
		return fmt.Errorf("release session: %w", err)
	}
	r.logger.Debug().Int64("user_id", userID).Str("session_id", sessionID).Msg("index entry released")
	return nil
}
