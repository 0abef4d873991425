package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/battlestudy/internal/match/queue"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

type sentMessage struct {
	UserID int64
	Msg    Message
	Ref    MessageRef
}

type fakeNotifier struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	retracted []MessageRef
	updates   []string
	failFor   map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: map[int64]bool{}}
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, msg Message) (MessageRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[userID] {
		return MessageRef{}, errors.New("chat unreachable")
	}
	n.nextID++
	ref := MessageRef{ChatID: userID, MessageID: n.nextID}
	n.sent = append(n.sent, sentMessage{UserID: userID, Msg: msg, Ref: ref})
	return ref, nil
}

func (n *fakeNotifier) Retract(_ context.Context, ref MessageRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.retracted = append(n.retracted, ref)
	return nil
}

func (n *fakeNotifier) Update(_ context.Context, ref MessageRef, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, text)
	return nil
}

func (n *fakeNotifier) count(userID int64, fragment string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.UserID == userID && strings.Contains(s.Msg.Text, fragment) {
			c++
		}
	}
	return c
}

func (n *fakeNotifier) last(userID int64, fragment string) (sentMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		s := n.sent[i]
		if s.UserID == userID && strings.Contains(s.Msg.Text, fragment) {
			return s, true
		}
	}
	return sentMessage{}, false
}

func (n *fakeNotifier) wasRetracted(ref MessageRef) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, r := range n.retracted {
		if r == ref {
			return true
		}
	}
	return false
}

func (n *fakeNotifier) updateCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

// fakeLedger clamps at zero like the Postgres ledger.
type fakeLedger struct {
	mu       sync.Mutex
	ratings  map[int64]int
	games    map[int64]int
	tierWins map[string]int
	deltas   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{ratings: map[int64]int{}, games: map[int64]int{}, tierWins: map[string]int{}}
}

func (l *fakeLedger) Rating(_ context.Context, userID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ratings[userID], nil
}

func (l *fakeLedger) ApplyDelta(_ context.Context, userID int64, delta int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deltas++
	l.ratings[userID] = max(0, l.ratings[userID]+delta)
	return l.ratings[userID], nil
}

func (l *fakeLedger) IncrementGames(_ context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.games[userID]++
	return nil
}

func (l *fakeLedger) IncrementTierWin(_ context.Context, userID int64, tier question.Difficulty) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tierWins[fmt.Sprintf("%d:%s", userID, tier)]++
	return nil
}

func (l *fakeLedger) snapshot(userID int64) (rating, games, deltas int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ratings[userID], l.games[userID], l.deltas
}

type memorySeen struct {
	mu   sync.Mutex
	seen map[string]question.IDSet
}

func newMemorySeen() *memorySeen {
	return &memorySeen{seen: map[string]question.IDSet{}}
}

func (m *memorySeen) key(userID int64, d question.Difficulty) string {
	return fmt.Sprintf("%d:%s", userID, d)
}

func (m *memorySeen) SeenQuestionIDs(_ context.Context, userID int64, d question.Difficulty) (question.IDSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return question.IDSet{}.Union(m.seen[m.key(userID, d)]), nil
}

func (m *memorySeen) MarkUsed(_ context.Context, userID, questionID int64, d question.Difficulty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(userID, d)
	if m.seen[k] == nil {
		m.seen[k] = question.IDSet{}
	}
	m.seen[k][questionID] = struct{}{}
	return nil
}

type recordedStandings struct {
	mu      sync.Mutex
	ratings map[int64]int
}

func (r *recordedStandings) RecordRating(_ context.Context, userID int64, _ string, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings[userID] = rating
	return nil
}

type harness struct {
	svc       *Service
	notifier  *fakeNotifier
	ledger    *fakeLedger
	seen      *memorySeen
	index     *MemoryIndex
	standings *recordedStandings
	metrics   *Metrics
}

func testCatalog() map[question.Difficulty][]question.Question {
	return map[question.Difficulty][]question.Question{
		question.DifficultyEasy: {
			{ID: 1, Prompt: "P(heads)?", Answer: "1/2"},
			{ID: 2, Prompt: "P(six)?", Answer: "1/6"},
		},
		question.DifficultyMedium: {
			{ID: 10, Prompt: "P(two heads)?", Answer: "0.25"},
		},
		question.DifficultyHard: {
			{ID: 20, Prompt: "P(three sixes)?", Answer: "1/216"},
		},
	}
}

func longRules() Rules {
	return Rules{
		question.DifficultyEasy:   {Timeout: time.Hour, WinDelta: 10, LoseDelta: -5},
		question.DifficultyMedium: {Timeout: time.Hour, WinDelta: 25, LoseDelta: -15},
		question.DifficultyHard:   {Timeout: time.Hour, WinDelta: 50, LoseDelta: -35},
	}
}

func newHarness(t *testing.T, catalog map[question.Difficulty][]question.Question, opts Options) *harness {
	t.Helper()
	if opts.Rules == nil {
		opts.Rules = longRules()
	}
	if opts.CountdownInterval == 0 {
		opts.CountdownInterval = time.Hour
	}
	h := &harness{
		notifier:  newFakeNotifier(),
		ledger:    newFakeLedger(),
		seen:      newMemorySeen(),
		index:     NewMemoryIndex(),
		standings: &recordedStandings{ratings: map[int64]int{}},
		metrics:   NewMetrics(nil),
	}
	h.svc = NewService(Deps{
		Bank:      question.NewBank(catalog),
		Seen:      h.seen,
		Ledger:    h.ledger,
		Notifier:  h.notifier,
		Standings: h.standings,
		Index:     h.index,
		Metrics:   h.metrics,
	}, opts, zerolog.Nop())
	t.Cleanup(h.svc.Close)
	return h
}

func alice() queue.Player { return queue.Player{UserID: 1, DisplayName: "alice", Rating: 100} }
func bob() queue.Player   { return queue.Player{UserID: 2, DisplayName: "bob", Rating: 3} }
