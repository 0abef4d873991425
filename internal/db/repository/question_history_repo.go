package repository

import (
	"context"
	"fmt"

	sqlcgen "github.com/gokatarajesh/battlestudy/internal/db/sqlc"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

type questionHistoryStore interface {
	ListSeenQuestionIDs(ctx context.Context, arg sqlcgen.ListSeenQuestionIDsParams) ([]int64, error)
	MarkQuestionUsed(ctx context.Context, arg sqlcgen.MarkQuestionUsedParams) error
}

// QuestionHistoryRepository is the durable record of questions shown to each player.
type QuestionHistoryRepository struct {
	store questionHistoryStore
}

var _ question.SeenStore = (*QuestionHistoryRepository)(nil)

func NewQuestionHistoryRepository(store questionHistoryStore) *QuestionHistoryRepository {
	return &QuestionHistoryRepository{store: store}
}

func (r *QuestionHistoryRepository) SeenQuestionIDs(ctx context.Context, userID int64, d question.Difficulty) (question.IDSet, error) {
	ids, err := r.store.ListSeenQuestionIDs(ctx, sqlcgen.ListSeenQuestionIDsParams{UserID: userID, Difficulty: d.String()})
	if err != nil {
		return nil, fmt.Errorf("list seen questions for %d: %w", userID, err)
	}
	set := make(question.IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// MarkUsed records the question as seen. Repeated marks are ignored.
func (r *QuestionHistoryRepository) MarkUsed(ctx context.Context, userID, questionID int64, d question.Difficulty) error {
	err := r.store.MarkQuestionUsed(ctx, sqlcgen.MarkQuestionUsedParams{
		UserID:     userID,
		QuestionID: questionID,
		Difficulty: d.String(),
	})
	if err != nil {
		return fmt.Errorf("mark question %d used for %d: %w", questionID, userID, err)
	}
	return nil
}
