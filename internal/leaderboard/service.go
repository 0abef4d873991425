package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	sqlcgen "github.com/gokatarajesh/battlestudy/internal/db/sqlc"
)

// Entry represents a leaderboard record.
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Rating      int    `json:"rating"`
}

// Sources reported by Top.
const (
	SourceRedis    = "redis"
	SourcePostgres = "postgres"
)

// RatingSource is the durable ranking used when the sorted set is cold.
type RatingSource interface {
	TopRatings(ctx context.Context, limit int) ([]sqlcgen.TopPlayersRow, error)
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	RedisKeyPrefix string
}

// Service mirrors player ratings into a Redis sorted set.
type Service struct {
	redis  *redis.Client
	source RatingSource
	logger zerolog.Logger
	topN   int
	prefix string
}

// NewService constructs a leaderboard service instance. source may be nil.
func NewService(redis *redis.Client, source RatingSource, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	return &Service{
		redis:  redis,
		source: source,
		logger: logger.With().Str("component", "leaderboard").Logger(),
		topN:   topN,
		prefix: prefix,
	}
}

// TopN is the default leaderboard size.
func (s *Service) TopN() int {
	return s.topN
}

// RecordRating stores the player's current rating.
func (s *Service) RecordRating(ctx context.Context, userID int64, displayName string, rating int) error {
	member := strconv.FormatInt(userID, 10)

	pipe := s.redis.TxPipeline()
	pipe.ZAdd(ctx, s.ratingKey(), redis.Z{Score: float64(rating), Member: member})
	if displayName != "" {
		pipe.HSet(ctx, s.namesKey(), member, displayName)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record rating for %d: %w", userID, err)
	}
	return nil
}

// Top returns the highest rated players and where they were read from.
// An empty or unreachable sorted set falls back to Postgres.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, string, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	entries, err := s.topFromRedis(ctx, limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("redis leaderboard fetch failed")
	}
	if len(entries) > 0 || s.source == nil {
		return entries, SourceRedis, err
	}

	rows, err := s.source.TopRatings(ctx, limit)
	if err != nil {
		return nil, SourcePostgres, fmt.Errorf("fetch leaderboard fallback: %w", err)
	}
	return fromRows(rows), SourcePostgres, nil
}

func (s *Service) topFromRedis(ctx context.Context, limit int) ([]Entry, error) {
	results, err := s.redis.ZRevRangeWithScores(ctx, s.ratingKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	members := make([]string, len(results))
	for i, z := range results {
		members[i], _ = z.Member.(string)
	}
	names, err := s.redis.HMGet(ctx, s.namesKey(), members...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read leaderboard names")
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		userID, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			continue
		}
		entry := Entry{Rank: len(entries) + 1, UserID: userID, Rating: int(z.Score)}
		if i < len(names) {
			if name, ok := names[i].(string); ok {
				entry.DisplayName = name
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Warm replaces the sorted set with the given ranking.
func (s *Service) Warm(ctx context.Context, rows []sqlcgen.TopPlayersRow) error {
	if len(rows) == 0 {
		return nil
	}
	pipe := s.redis.TxPipeline()
	for _, row := range rows {
		member := strconv.FormatInt(row.UserID, 10)
		pipe.ZAdd(ctx, s.ratingKey(), redis.Z{Score: float64(row.Rating), Member: member})
		if row.DisplayName != "" {
			pipe.HSet(ctx, s.namesKey(), member, row.DisplayName)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm leaderboard: %w", err)
	}
	return nil
}

func (s *Service) ratingKey() string {
	return fmt.Sprintf("%s:rating", s.prefix)
}

func (s *Service) namesKey() string {
	return fmt.Sprintf("%s:rating:names", s.prefix)
}
