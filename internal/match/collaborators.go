package match

import (
	"context"

	"github.com/gokatarajesh/battlestudy/internal/question"
)

// Menu selects the persistent keyboard shown alongside a message.
type Menu int

const (
	MenuNone Menu = iota
	MenuMain
	MenuQueued
	MenuInGame
)

// Callback data prefixes carried by rematch actions.
const (
	ActionRematch        = "rematch"
	ActionDeclineRematch = "decline_rematch"
)

// Action is an inline button attached to a message.
type Action struct {
	Label string
	Data  string
}

// Message is the content delivered to a participant.
type Message struct {
	Text    string
	Actions []Action
	Menu    Menu
}

// MessageRef identifies a delivered message so it can be updated or retracted.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Notifier delivers messages to participants. Failures are tolerated by callers.
type Notifier interface {
	Notify(ctx context.Context, userID int64, msg Message) (MessageRef, error)
	// Retract removes the actions of a delivered message.
	Retract(ctx context.Context, ref MessageRef) error
	Update(ctx context.Context, ref MessageRef, text string) error
}

// Ledger is the durable rating and statistics store.
type Ledger interface {
	Rating(ctx context.Context, userID int64) (int, error)
	// ApplyDelta returns the new rating, floored at zero.
	ApplyDelta(ctx context.Context, userID int64, delta int) (int, error)
	IncrementGames(ctx context.Context, userID int64) error
	IncrementTierWin(ctx context.Context, userID int64, tier question.Difficulty) error
}

// SeenOracle tracks the questions each player has already been shown.
type SeenOracle interface {
	SeenQuestionIDs(ctx context.Context, userID int64, d question.Difficulty) (question.IDSet, error)
	MarkUsed(ctx context.Context, userID, questionID int64, d question.Difficulty) error
}

// Standings receives ratings after every rated outcome.
type Standings interface {
	RecordRating(ctx context.Context, userID int64, displayName string, rating int) error
}
