package repository

import (
	"context"
	"fmt"
	"math"

	sqlcgen "github.com/gokatarajesh/battlestudy/internal/db/sqlc"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

type playerStore interface {
	TouchPlayer(ctx context.Context, arg sqlcgen.TouchPlayerParams) (sqlcgen.Player, error)
	ApplyRatingDelta(ctx context.Context, arg sqlcgen.ApplyRatingDeltaParams) (int32, error)
	IncrementGames(ctx context.Context, userID int64) error
	IncrementTierWin(ctx context.Context, arg sqlcgen.IncrementTierWinParams) error
	TopPlayers(ctx context.Context, limit int32) ([]sqlcgen.TopPlayersRow, error)
}

// Stats is the profile of a player.
type Stats struct {
	UserID      int64
	DisplayName string
	Rating      int
	TotalGames  int
	Wins        map[question.Difficulty]int
}

// PlayerRepository is the rating and statistics ledger.
// Rows are created on first touch.
type PlayerRepository struct {
	store playerStore
}

func NewPlayerRepository(store playerStore) *PlayerRepository {
	return &PlayerRepository{store: store}
}

// Touch ensures the player row exists and refreshes a non-empty display name.
func (r *PlayerRepository) Touch(ctx context.Context, userID int64, displayName string) (Stats, error) {
	row, err := r.store.TouchPlayer(ctx, sqlcgen.TouchPlayerParams{UserID: userID, DisplayName: displayName})
	if err != nil {
		return Stats{}, fmt.Errorf("touch player %d: %w", userID, err)
	}
	return Stats{
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		Rating:      int(row.Rating),
		TotalGames:  int(row.TotalGames),
		Wins: map[question.Difficulty]int{
			question.DifficultyEasy:   int(row.WinsEasy),
			question.DifficultyMedium: int(row.WinsMedium),
			question.DifficultyHard:   int(row.WinsHard),
		},
	}, nil
}

// Stats returns the player's profile, creating an empty one if needed.
func (r *PlayerRepository) Stats(ctx context.Context, userID int64) (Stats, error) {
	return r.Touch(ctx, userID, "")
}

// Rating returns the current rating.
func (r *PlayerRepository) Rating(ctx context.Context, userID int64) (int, error) {
	stats, err := r.Touch(ctx, userID, "")
	if err != nil {
		return 0, err
	}
	return stats.Rating, nil
}

// ApplyDelta adds delta to the rating and returns the result, floored at zero.
func (r *PlayerRepository) ApplyDelta(ctx context.Context, userID int64, delta int) (int, error) {
	if delta > math.MaxInt32 || delta < math.MinInt32 {
		return 0, fmt.Errorf("rating delta %d out of range", delta)
	}
	rating, err := r.store.ApplyRatingDelta(ctx, sqlcgen.ApplyRatingDeltaParams{UserID: userID, Delta: int32(delta)})
	if err != nil {
		return 0, fmt.Errorf("apply rating delta for %d: %w", userID, err)
	}
	return int(rating), nil
}

func (r *PlayerRepository) IncrementGames(ctx context.Context, userID int64) error {
	if err := r.store.IncrementGames(ctx, userID); err != nil {
		return fmt.Errorf("increment games for %d: %w", userID, err)
	}
	return nil
}

func (r *PlayerRepository) IncrementTierWin(ctx context.Context, userID int64, tier question.Difficulty) error {
	if _, ok := question.ParseDifficulty(tier.String()); !ok {
		return fmt.Errorf("increment tier win: unknown tier %q", tier)
	}
	err := r.store.IncrementTierWin(ctx, sqlcgen.IncrementTierWinParams{UserID: userID, Difficulty: tier.String()})
	if err != nil {
		return fmt.Errorf("increment %s wins for %d: %w", tier, userID, err)
	}
	return nil
}

// TopRatings returns the highest rated players.
func (r *PlayerRepository) TopRatings(ctx context.Context, limit int) ([]sqlcgen.TopPlayersRow, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.store.TopPlayers(ctx, int32(min(limit, math.MaxInt32)))
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}
	return rows, nil
}
