package match

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/battlestudy/internal/match/queue"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

// startBattle pairs alice and bob on the tier and returns the live session.
func startBattle(t *testing.T, h *harness, tier question.Difficulty) Session {
	t.Helper()
	ctx := context.Background()

	paired, err := h.svc.Ready(ctx, alice(), tier)
	require.NoError(t, err)
	require.False(t, paired)

	paired, err = h.svc.Ready(ctx, bob(), tier)
	require.NoError(t, err)
	require.True(t, paired)

	sess, ok := h.svc.Session(ctx, alice().UserID)
	require.True(t, ok)
	require.Equal(t, StateAwaiting, sess.State())
	return sess
}

func TestReadyPairsSecondArrival(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()

	sess := startBattle(t, h, question.DifficultyEasy)

	assert.Equal(t, StatusInSession, h.svc.StatusOf(ctx, 1))
	assert.Equal(t, StatusInSession, h.svc.StatusOf(ctx, 2))
	assert.Equal(t, question.DifficultyEasy, sess.Tier)
	assert.Equal(t, 1, h.notifier.count(1, "Waiting for an opponent"))

	for _, uid := range []int64{1, 2} {
		assert.Equal(t, 1, h.notifier.count(uid, sess.Question.Prompt))
		assert.Equal(t, 1, h.notifier.count(uid, "Time to answer: 60 min 0 sec"), "timer message is sent to both")

		seen, _ := h.seen.SeenQuestionIDs(ctx, uid, question.DifficultyEasy)
		assert.True(t, seen.Has(sess.Question.ID), "question is marked used for both players")
	}

	msg, ok := h.notifier.last(1, "Opponent found")
	require.True(t, ok)
	assert.Contains(t, msg.Msg.Text, "bob")
	assert.Equal(t, MenuInGame, msg.Msg.Menu)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SessionsStarted))
}

func TestReadyRejectsDuplicateSignals(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()

	_, err := h.svc.Ready(ctx, alice(), question.DifficultyEasy)
	require.NoError(t, err)
	_, err = h.svc.Ready(ctx, alice(), question.DifficultyHard)
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	_, err = h.svc.Ready(ctx, bob(), question.DifficultyEasy)
	require.NoError(t, err)
	_, err = h.svc.Ready(ctx, alice(), question.DifficultyEasy)
	assert.ErrorIs(t, err, ErrAlreadyInSession)
}

func TestReadyUnknownTier(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})

	_, err := h.svc.Ready(context.Background(), alice(), question.Difficulty("insane"))
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestReadyRefusesPlayerWhoExhaustedTier(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	require.NoError(t, h.seen.MarkUsed(ctx, 1, 20, question.DifficultyHard))

	_, err := h.svc.Ready(ctx, alice(), question.DifficultyHard)
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
	assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, 1))
	assert.Equal(t, 1, h.notifier.count(1, "every hard question"))
}

func TestBeginDissolvesWhenPairExhaustedTier(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	require.NoError(t, h.seen.MarkUsed(ctx, 1, 1, question.DifficultyEasy))
	require.NoError(t, h.seen.MarkUsed(ctx, 2, 2, question.DifficultyEasy))

	err := h.svc.Begin(ctx, alice(), bob(), question.DifficultyEasy)
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)

	for _, uid := range []int64{1, 2} {
		assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, uid))
		assert.Equal(t, 1, h.notifier.count(uid, "neither player has seen"))
	}
	assert.Zero(t, h.index.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Dissolved))
}

func TestBeginAfterCatalogExhaustedForPair(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()

	sess := startBattle(t, h, question.DifficultyMedium)
	require.True(t, h.svc.Timeout(ctx, sess.ID))
	// The pending rematch from the first battle is irrelevant here.
	require.NoError(t, h.svc.DeclineRematch(ctx, 1, NewPairKey(1, 2)))

	err := h.svc.Begin(ctx, alice(), bob(), question.DifficultyMedium)
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
}

func TestBeginRefusesPlayerAlreadyInSession(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	startBattle(t, h, question.DifficultyEasy)

	carol := queue.Player{UserID: 3, DisplayName: "carol"}
	err := h.svc.Begin(ctx, alice(), carol, question.DifficultyEasy)
	assert.ErrorIs(t, err, ErrAlreadyInSession)
	assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, 3))
}

func TestBeginPullsPlayersOutOfQueues(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()

	_, err := h.svc.Ready(ctx, alice(), question.DifficultyHard)
	require.NoError(t, err)
	require.Equal(t, StatusQueued, h.svc.StatusOf(ctx, 1))

	require.NoError(t, h.svc.Begin(ctx, alice(), bob(), question.DifficultyEasy))
	assert.Equal(t, StatusInSession, h.svc.StatusOf(ctx, 1), "never queued and in session at once")
}

func TestWrongAnswerKeepsSessionOpen(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	sess := startBattle(t, h, question.DifficultyHard)

	verdict, err := h.svc.SubmitAnswer(ctx, 1, "42")
	require.NoError(t, err)
	assert.Equal(t, VerdictWrong, verdict)
	assert.Equal(t, 1, h.notifier.count(1, "Try again"))
	assert.Zero(t, h.notifier.count(2, "Try again"))

	again, ok := h.svc.Session(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, sess.ID, again.ID)
	assert.Equal(t, StateAwaiting, again.State())
}

func TestAnswerFromOutsiderIsIgnored(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	startBattle(t, h, question.DifficultyHard)

	verdict, err := h.svc.SubmitAnswer(context.Background(), 99, "1/216")
	require.NoError(t, err)
	assert.Equal(t, VerdictIgnored, verdict)
}

func TestCorrectAnswerResolvesWin(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	h.ledger.ratings[1] = 100
	h.ledger.ratings[2] = 3

	sess := startBattle(t, h, question.DifficultyHard)

	verdict, err := h.svc.SubmitAnswer(ctx, 1, " 1/216 ")
	require.NoError(t, err)
	require.Equal(t, VerdictWon, verdict)

	rating, games, _ := h.ledger.snapshot(1)
	assert.Equal(t, 150, rating)
	assert.Equal(t, 1, games)
	rating, games, _ = h.ledger.snapshot(2)
	assert.Equal(t, 0, rating, "loser rating is floored at zero")
	assert.Equal(t, 1, games)
	assert.Equal(t, 1, h.ledger.tierWins["1:hard"])

	assert.Equal(t, 1, h.notifier.count(1, "You won! New rating: 150"))
	loser, ok := h.notifier.last(2, "You lost")
	require.True(t, ok)
	assert.Contains(t, loser.Msg.Text, sess.Question.Answer)
	assert.Contains(t, loser.Msg.Text, "New rating: 0")

	for _, uid := range []int64{1, 2} {
		assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, uid))
	}
	assert.Zero(t, h.index.Len())
	assert.Equal(t, 150, h.standings.ratings[1])
	assert.True(t, h.svc.rematch.Pending(NewPairKey(1, 2)), "outcome hands the pair to the rematch negotiator")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SessionsResolved.WithLabelValues("win")))
}

func TestTimeoutAfterWinIsNoop(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	sess := startBattle(t, h, question.DifficultyHard)

	_, err := h.svc.SubmitAnswer(ctx, 2, "1/216")
	require.NoError(t, err)
	_, _, deltas := h.ledger.snapshot(1)

	assert.False(t, h.svc.Timeout(ctx, sess.ID))
	_, _, after := h.ledger.snapshot(1)
	assert.Equal(t, deltas, after, "no duplicate rating mutation")
	assert.Zero(t, h.notifier.count(1, "Time is up"))
}

func TestAnswerAfterTimeoutIsIgnored(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	sess := startBattle(t, h, question.DifficultyHard)

	require.True(t, h.svc.Timeout(ctx, sess.ID))
	assert.False(t, h.svc.Timeout(ctx, sess.ID), "second timeout observes the resolved session")

	verdict, err := h.svc.SubmitAnswer(ctx, 1, "1/216")
	require.NoError(t, err)
	assert.Equal(t, VerdictIgnored, verdict)

	_, games, deltas := h.ledger.snapshot(1)
	assert.Zero(t, deltas)
	assert.Zero(t, games)
	for _, uid := range []int64{1, 2} {
		msg, ok := h.notifier.last(uid, "Time is up")
		require.True(t, ok)
		assert.Contains(t, msg.Msg.Text, "1/216")
		assert.Contains(t, msg.Msg.Text, "Rating unchanged")
	}
	assert.True(t, h.svc.rematch.Pending(NewPairKey(1, 2)))
}

func TestConcurrentCorrectAnswersSingleWinner(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	sess := startBattle(t, h, question.DifficultyHard)

	var (
		wins atomic.Int32
		wg   sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			if v, _ := h.svc.SubmitAnswer(ctx, uid, "1/216"); v == VerdictWon {
				wins.Add(1)
			}
		}(int64(i%2 + 1))
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if h.svc.Timeout(ctx, sess.ID) {
			wins.Add(1)
		}
	}()
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "exactly one path resolves the session")
	_, _, deltas := h.ledger.snapshot(1)
	assert.Contains(t, []int{0, 2}, deltas)
}

func TestTimerResolvesSessionAsDraw(t *testing.T) {
	rules := longRules()
	rules[question.DifficultyEasy] = TierRules{Timeout: 80 * time.Millisecond, WinDelta: 10, LoseDelta: -5}
	h := newHarness(t, testCatalog(), Options{Rules: rules})
	ctx := context.Background()

	startBattle(t, h, question.DifficultyEasy)

	require.Eventually(t, func() bool {
		return h.notifier.count(1, "Time is up") == 1 && h.notifier.count(2, "Time is up") == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, 1))
	assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, 2))
}

func TestCountdownUpdatesTimerMessages(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{CountdownInterval: 5 * time.Millisecond})
	sess := startBattle(t, h, question.DifficultyEasy)

	require.Eventually(t, func() bool {
		return h.notifier.updateCount() >= 4
	}, time.Second, 5*time.Millisecond)

	require.True(t, h.svc.Timeout(context.Background(), sess.ID))
	time.Sleep(20 * time.Millisecond)
	settled := h.notifier.updateCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, h.notifier.updateCount(), "countdown stops once the session resolves")
}

func TestDeliveryFailureDoesNotBlockSession(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	h.notifier.failFor[2] = true
	ctx := context.Background()

	sess := startBattle(t, h, question.DifficultyHard)

	verdict, err := h.svc.SubmitAnswer(ctx, 2, sess.Question.Answer)
	require.NoError(t, err)
	assert.Equal(t, VerdictWon, verdict)
	assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, 2))
}

func TestStatusHealsStaleIndexEntry(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	require.NoError(t, h.index.Bind(ctx, 7, "gone"))

	assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, 7))
	_, ok, _ := h.index.Lookup(ctx, 7)
	assert.False(t, ok)

	_, err := h.svc.Ready(ctx, queue.Player{UserID: 7}, question.DifficultyEasy)
	assert.NoError(t, err)
}

func TestLeaveQueue(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()

	_, err := h.svc.Ready(ctx, alice(), question.DifficultyMedium)
	require.NoError(t, err)

	left, err := h.svc.LeaveQueue(ctx, 1)
	require.NoError(t, err)
	assert.True(t, left)
	left, err = h.svc.LeaveQueue(ctx, 1)
	require.NoError(t, err)
	assert.False(t, left)
	assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, 1))

	startBattle(t, h, question.DifficultyEasy)
	_, err = h.svc.LeaveQueue(ctx, 2)
	assert.ErrorIs(t, err, ErrAlreadyInSession)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1 min 0 sec", FormatDuration(time.Minute))
	assert.Equal(t, "4 min 59 sec", FormatDuration(299*time.Second+500*time.Millisecond))
	assert.Equal(t, "9 sec", FormatDuration(9*time.Second))
	assert.Equal(t, "0 sec", FormatDuration(-time.Second))
}

// bindFailIndex refuses every binding.
type bindFailIndex struct {
	*MemoryIndex
}

func (bindFailIndex) Bind(context.Context, int64, string) error {
	return errors.New("index unavailable")
}

func TestReadyTwoTiersNeverStrandsPartner(t *testing.T) {
	for i := 0; i < 200; i++ {
		h := newHarness(t, testCatalog(), Options{})
		ctx := context.Background()
		carol := queue.Player{UserID: 3, DisplayName: "carol"}

		_, err := h.svc.Ready(ctx, bob(), question.DifficultyEasy)
		require.NoError(t, err)
		_, err = h.svc.Ready(ctx, carol, question.DifficultyMedium)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var pairings atomic.Int32
		for _, tier := range []question.Difficulty{question.DifficultyEasy, question.DifficultyMedium} {
			tier := tier
			wg.Add(1)
			go func() {
				defer wg.Done()
				paired, err := h.svc.Ready(ctx, alice(), tier)
				if err == nil && paired {
					pairings.Add(1)
					return
				}
				if err != nil {
					assert.ErrorIs(t, err, ErrAlreadyInSession)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), pairings.Load())
		sess, ok := h.svc.Session(ctx, 1)
		require.True(t, ok)
		partner := sess.opponent(1).UserID
		left := int64(2)
		if partner == 2 {
			left = 3
		}
		assert.Equal(t, StatusInSession, h.svc.StatusOf(ctx, partner))
		assert.Equal(t, StatusQueued, h.svc.StatusOf(ctx, left), "unpaired waiter keeps its place")
	}
}

func TestReadyRegistrationFailureNotifiesBoth(t *testing.T) {
	h := newHarness(t, testCatalog(), Options{})
	ctx := context.Background()
	h.svc.index = bindFailIndex{NewMemoryIndex()}

	_, err := h.svc.Ready(ctx, alice(), question.DifficultyEasy)
	require.NoError(t, err)
	paired, err := h.svc.Ready(ctx, bob(), question.DifficultyEasy)
	require.Error(t, err)
	assert.True(t, paired)

	for _, uid := range []int64{1, 2} {
		assert.Equal(t, StatusIdle, h.svc.StatusOf(ctx, uid))
		assert.Equal(t, 1, h.notifier.count(uid, "could not be started"))
	}
}
