package match

import (
	"time"

	"github.com/gokatarajesh/battlestudy/internal/question"
)

// TierRules is the timeout and rating deltas applied to sessions of one tier.
// LoseDelta is negative.
type TierRules struct {
	Timeout   time.Duration
	WinDelta  int
	LoseDelta int
}

// Rules maps each tier to its configuration. It is immutable once the service starts.
type Rules map[question.Difficulty]TierRules

// DefaultRules returns the stock tier table.
func DefaultRules() Rules {
	return Rules{
		question.DifficultyEasy:   {Timeout: 60 * time.Second, WinDelta: 10, LoseDelta: -5},
		question.DifficultyMedium: {Timeout: 180 * time.Second, WinDelta: 25, LoseDelta: -15},
		question.DifficultyHard:   {Timeout: 300 * time.Second, WinDelta: 50, LoseDelta: -35},
	}
}

// For returns the rules of a tier.
func (r Rules) For(tier question.Difficulty) (TierRules, bool) {
	tr, ok := r[tier]
	return tr, ok
}
