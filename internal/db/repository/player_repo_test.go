package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	sqlcgen "github.com/gokatarajesh/battlestudy/internal/db/sqlc"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

type mockPlayerStore struct {
	mock.Mock
}

func (m *mockPlayerStore) TouchPlayer(ctx context.Context, arg sqlcgen.TouchPlayerParams) (sqlcgen.Player, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(sqlcgen.Player), args.Error(1)
}

func (m *mockPlayerStore) ApplyRatingDelta(ctx context.Context, arg sqlcgen.ApplyRatingDeltaParams) (int32, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int32), args.Error(1)
}

func (m *mockPlayerStore) IncrementGames(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPlayerStore) IncrementTierWin(ctx context.Context, arg sqlcgen.IncrementTierWinParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockPlayerStore) TopPlayers(ctx context.Context, limit int32) ([]sqlcgen.TopPlayersRow, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]sqlcgen.TopPlayersRow), args.Error(1)
}

func TestPlayerRepository_Touch(t *testing.T) {
	store := new(mockPlayerStore)
	repo := NewPlayerRepository(store)

	row := sqlcgen.Player{UserID: 7, DisplayName: "ace", Rating: 40, TotalGames: 5, WinsEasy: 2, WinsHard: 1}
	store.On("TouchPlayer", mock.Anything, sqlcgen.TouchPlayerParams{UserID: 7, DisplayName: "ace"}).Return(row, nil)

	stats, err := repo.Touch(context.Background(), 7, "ace")
	require.NoError(t, err)
	assert.Equal(t, 40, stats.Rating)
	assert.Equal(t, 5, stats.TotalGames)
	assert.Equal(t, 2, stats.Wins[question.DifficultyEasy])
	assert.Equal(t, 0, stats.Wins[question.DifficultyMedium])
	assert.Equal(t, 1, stats.Wins[question.DifficultyHard])
	store.AssertExpectations(t)
}

func TestPlayerRepository_RatingCreatesRow(t *testing.T) {
	store := new(mockPlayerStore)
	repo := NewPlayerRepository(store)

	store.On("TouchPlayer", mock.Anything, sqlcgen.TouchPlayerParams{UserID: 9}).Return(sqlcgen.Player{UserID: 9}, nil)

	rating, err := repo.Rating(context.Background(), 9)
	require.NoError(t, err)
	assert.Zero(t, rating)
	store.AssertExpectations(t)
}

func TestPlayerRepository_ApplyDelta(t *testing.T) {
	store := new(mockPlayerStore)
	repo := NewPlayerRepository(store)

	store.On("ApplyRatingDelta", mock.Anything, sqlcgen.ApplyRatingDeltaParams{UserID: 3, Delta: -35}).Return(int32(0), nil)

	rating, err := repo.ApplyDelta(context.Background(), 3, -35)
	require.NoError(t, err)
	assert.Zero(t, rating)
	store.AssertExpectations(t)
}

func TestPlayerRepository_ApplyDeltaWrapsError(t *testing.T) {
	store := new(mockPlayerStore)
	repo := NewPlayerRepository(store)
	boom := errors.New("connection reset")

	store.On("ApplyRatingDelta", mock.Anything, mock.Anything).Return(int32(0), boom)

	_, err := repo.ApplyDelta(context.Background(), 3, 10)
	assert.ErrorIs(t, err, boom)
}

func TestPlayerRepository_IncrementTierWin(t *testing.T) {
	store := new(mockPlayerStore)
	repo := NewPlayerRepository(store)

	store.On("IncrementTierWin", mock.Anything, sqlcgen.IncrementTierWinParams{UserID: 1, Difficulty: "medium"}).Return(nil)

	require.NoError(t, repo.IncrementTierWin(context.Background(), 1, question.DifficultyMedium))
	assert.Error(t, repo.IncrementTierWin(context.Background(), 1, question.Difficulty("legendary")))
	store.AssertExpectations(t)
}

func TestPlayerRepository_TopRatings(t *testing.T) {
	store := new(mockPlayerStore)
	repo := NewPlayerRepository(store)

	rows := []sqlcgen.TopPlayersRow{{UserID: 1, DisplayName: "a", Rating: 90}, {UserID: 2, DisplayName: "b", Rating: 80}}
	store.On("TopPlayers", mock.Anything, int32(10)).Return(rows, nil)

	got, err := repo.TopRatings(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	got, err = repo.TopRatings(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	store.AssertNumberOfCalls(t, "TopPlayers", 1)
}
