package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/battlestudy/internal/question"
)

// ErrAlreadyQueued is returned when a player is already waiting in some tier.
var ErrAlreadyQueued = errors.New("player already queued")

// Player is the transient identity of someone who signalled readiness.
// Rating is a snapshot taken when the player became ready.
type Player struct {
	UserID      int64
	DisplayName string
	Rating      int
	Preferred   question.Difficulty
	QueuedAt    time.Time
}

// Pair is a matched couple of players. Player1 is the newcomer that triggered the match.
type Pair struct {
	Player1 Player
	Player2 Player
}

// Manager keeps one waiting list per tier.
//
// Pairing takes the first other waiter found in the tier's list. Wait time and
// rating are deliberately not considered.
type Manager struct {
	logger  zerolog.Logger
	mu      sync.Mutex
	waiting map[question.Difficulty][]Player
	tierOf  map[int64]question.Difficulty
	depth   *prometheus.GaugeVec
}

// NewManager creates a matchmaking queue manager. depth may be nil.
func NewManager(logger zerolog.Logger, depth *prometheus.GaugeVec) *Manager {
	return &Manager{
		logger:  logger.With().Str("component", "queue").Logger(),
		waiting: make(map[question.Difficulty][]Player),
		tierOf:  make(map[int64]question.Difficulty),
		depth:   depth,
	}
}

// Enqueue appends the player to the tier's waiting list.
func (m *Manager) Enqueue(p Player, tier question.Difficulty) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, queued := m.tierOf[p.UserID]; queued {
		return ErrAlreadyQueued
	}

	if p.QueuedAt.IsZero() {
		p.QueuedAt = time.Now()
	}
	p.Preferred = tier
	m.waiting[tier] = append(m.waiting[tier], p)
	m.tierOf[p.UserID] = tier
	m.observe(tier)

	m.logger.Info().
		Int64("user_id", p.UserID).
		Str("tier", tier.String()).
		Int("waiting", len(m.waiting[tier])).
		Msg("player enqueued")
	return nil
}

// TryPair looks for any other waiter in the tier. On success both players are
// removed from the list atomically. Otherwise the player stays queued.
func (m *Manager) TryPair(userID int64, tier question.Difficulty) (*Pair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.waiting[tier]
	self, other := -1, -1
	for i, p := range list {
		if p.UserID == userID {
			if self < 0 {
				self = i
			}
			continue
		}
		if other < 0 {
			other = i
		}
	}
	if self < 0 || other < 0 {
		return nil, false
	}

	pair := &Pair{Player1: list[self], Player2: list[other]}
	m.removeLocked(pair.Player1.UserID)
	m.removeLocked(pair.Player2.UserID)

	m.logger.Info().
		Int64("player1", pair.Player1.UserID).
		Int64("player2", pair.Player2.UserID).
		Str("tier", tier.String()).
		Msg("players paired")
	return pair, true
}

// Leave removes the player from whichever tier list holds them.
// It is idempotent and reports whether a removal happened.
func (m *Manager) Leave(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.removeLocked(userID) {
		return false
	}
	m.logger.Info().Int64("user_id", userID).Msg("player dequeued")
	return true
}

// IsQueued reports whether the player waits in any tier.
func (m *Manager) IsQueued(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.tierOf[userID]
	return ok
}

// TierOf returns the tier the player waits in.
func (m *Manager) TierOf(userID int64) (question.Difficulty, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tier, ok := m.tierOf[userID]
	return tier, ok
}

// Len returns the number of waiters in the tier.
func (m *Manager) Len(tier question.Difficulty) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.waiting[tier])
}

func (m *Manager) removeLocked(userID int64) bool {
	tier, ok := m.tierOf[userID]
	if !ok {
		return false
	}
	delete(m.tierOf, userID)

	list := m.waiting[tier]
	kept := list[:0]
	for _, p := range list {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	m.waiting[tier] = kept
	m.observe(tier)
	return true
}

func (m *Manager) observe(tier question.Difficulty) {
	if m.depth == nil {
		return
	}
	m.depth.WithLabelValues(tier.String()).Set(float64(len(m.waiting[tier])))
}
