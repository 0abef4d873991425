package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/battlestudy/internal/match/answer"
	"github.com/gokatarajesh/battlestudy/internal/match/queue"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

const (
	defaultCountdownInterval = time.Second
	// sideEffectTimeout bounds collaborator calls made from timers.
	sideEffectTimeout = 10 * time.Second
)

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	Rules             Rules
	CountdownInterval time.Duration
	RematchWindow     time.Duration
}

// Service orchestrates matchmaking, the session lifecycle and rematches.
//
// The queue, the live sessions and the player index are mutated only while mu
// is held. Collaborator calls (notifier, ledger, oracle) run outside the lock.
type Service struct {
	bank      *question.Bank
	seen      SeenOracle
	ledger    Ledger
	notifier  Notifier
	standings Standings
	index     Index
	queue     *queue.Manager
	rematch   *Negotiator
	metrics   *Metrics
	rules     Rules
	countdown time.Duration
	logger    zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// Deps are the collaborators of the service. Standings and Metrics may be nil.
type Deps struct {
	Bank      *question.Bank
	Seen      SeenOracle
	Ledger    Ledger
	Notifier  Notifier
	Standings Standings
	Index     Index
	Queue     *queue.Manager
	Metrics   *Metrics
}

// NewService wires the service. A nil Index or Queue gets the in-memory default.
func NewService(deps Deps, opts Options, logger zerolog.Logger) *Service {
	rules := opts.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	countdown := opts.CountdownInterval
	if countdown <= 0 {
		countdown = defaultCountdownInterval
	}
	index := deps.Index
	if index == nil {
		index = NewMemoryIndex()
	}
	q := deps.Queue
	if q == nil {
		q = queue.NewManager(logger, deps.Metrics.WaitingGauge())
	}

	s := &Service{
		bank:      deps.Bank,
		seen:      deps.Seen,
		ledger:    deps.Ledger,
		notifier:  deps.Notifier,
		standings: deps.Standings,
		index:     index,
		queue:     q,
		metrics:   deps.Metrics,
		rules:     rules,
		countdown: countdown,
		logger:    logger.With().Str("component", "match").Logger(),
		sessions:  make(map[string]*Session),
	}
	s.rematch = newNegotiator(s, opts.RematchWindow)
	return s
}

// Rules returns the tier table in use.
func (s *Service) Rules() Rules {
	return s.rules
}

// StatusOf reports whether the player is queued, in a session or idle.
func (s *Service) StatusOf(ctx context.Context, userID int64) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(ctx, userID)
}

func (s *Service) statusLocked(ctx context.Context, userID int64) Status {
	if s.queue.IsQueued(userID) {
		return StatusQueued
	}
	if s.sessionOfLocked(ctx, userID) != nil {
		return StatusInSession
	}
	return StatusIdle
}

// sessionOfLocked resolves the player's live session and heals index entries
// that point at a session which no longer exists.
func (s *Service) sessionOfLocked(ctx context.Context, userID int64) *Session {
	id, ok, err := s.index.Lookup(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("session index lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	sess, live := s.sessions[id]
	if !live || !sess.has(userID) {
		if err := s.index.Release(ctx, userID, id); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("stale index entry not released")
		}
		s.logger.Debug().Int64("user_id", userID).Str("session_id", id).Msg("stale index entry healed")
		return nil
	}
	return sess
}

// Ready enqueues the player into the tier and pairs them with any waiter.
// It reports whether a pairing happened.
func (s *Service) Ready(ctx context.Context, p queue.Player, tier question.Difficulty) (bool, error) {
	if _, ok := s.rules.For(tier); !ok {
		return false, ErrUnknownTier
	}
	if err := s.admissible(ctx, p.UserID); err != nil {
		return false, err
	}

	seen, err := s.seen.SeenQuestionIDs(ctx, p.UserID, tier)
	if err != nil {
		return false, fmt.Errorf("load seen questions: %w", err)
	}
	if len(s.bank.Available(tier, seen)) == 0 {
		s.notify(ctx, p.UserID, Message{Text: ownTierExhaustedText(tier), Menu: MenuMain})
		return false, ErrNoQuestionsAvailable
	}

	s.mu.Lock()
	switch s.statusLocked(ctx, p.UserID) {
	case StatusQueued:
		s.mu.Unlock()
		return false, ErrAlreadyQueued
	case StatusInSession:
		s.mu.Unlock()
		return false, ErrAlreadyInSession
	}
	p.Preferred = tier
	if err := s.queue.Enqueue(p, tier); err != nil {
		s.mu.Unlock()
		if errors.Is(err, queue.ErrAlreadyQueued) {
			return false, ErrAlreadyQueued
		}
		return false, err
	}
	pair, paired := s.queue.TryPair(p.UserID, tier)
	if !paired {
		s.mu.Unlock()
		s.notify(ctx, p.UserID, Message{Text: waitingText(tier), Menu: MenuQueued})
		return false, nil
	}
	// The pair is bound before mu is released so a concurrent Ready from
	// either player sees them in a session rather than pairing them again.
	sess := newSession(uuid.NewString(), pair.Player1, pair.Player2, tier)
	err = s.registerLocked(ctx, sess)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn().Err(err).Int64("player1", pair.Player1.UserID).Int64("player2", pair.Player2.UserID).Msg("pairing not registered")
		s.broadcast(ctx, sess, Message{Text: startFailedText, Menu: MenuMain})
		return true, err
	}
	return true, s.start(ctx, sess)
}

func (s *Service) admissible(ctx context.Context, userID int64) error {
	switch s.StatusOf(ctx, userID) {
	case StatusQueued:
		return ErrAlreadyQueued
	case StatusInSession:
		return ErrAlreadyInSession
	}
	return nil
}

// LeaveQueue removes the player from the queue. It reports whether a removal happened.
func (s *Service) LeaveQueue(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Leave(userID) {
		return true, nil
	}
	if s.sessionOfLocked(ctx, userID) != nil {
		return false, ErrAlreadyInSession
	}
	return false, nil
}

// Begin starts a session for two players. When no question is left for the
// pair the pairing is dissolved, both players are told, and
// ErrNoQuestionsAvailable is returned.
func (s *Service) Begin(ctx context.Context, a, b queue.Player, tier question.Difficulty) error {
	if _, ok := s.rules.For(tier); !ok {
		return ErrUnknownTier
	}
	sess := newSession(uuid.NewString(), a, b, tier)

	s.mu.Lock()
	err := s.registerLocked(ctx, sess)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.start(ctx, sess)
}

// start picks the question for a registered session and arms its timers.
func (s *Service) start(ctx context.Context, sess *Session) error {
	tier := sess.Tier
	tr, _ := s.rules.For(tier)
	a, b := sess.Players[0], sess.Players[1]
	log := s.logger.With().Str("session_id", sess.ID).Str("tier", tier.String()).Logger()

	seen, err := s.pairSeen(ctx, sess)
	if err != nil {
		log.Warn().Err(err).Msg("seen questions unavailable, dissolving pairing")
		s.dissolve(ctx, sess)
		s.broadcast(ctx, sess, Message{Text: startFailedText, Menu: MenuMain})
		return err
	}
	q, ok := s.bank.Pick(tier, seen)
	if !ok {
		log.Info().Msg("no question left for pair, dissolving pairing")
		s.dissolve(ctx, sess)
		s.metrics.dissolved()
		s.broadcast(ctx, sess, Message{Text: noQuestionsText(tier), Menu: MenuMain})
		return ErrNoQuestionsAvailable
	}
	for _, p := range sess.Players {
		if err := s.seen.MarkUsed(ctx, p.UserID, q.ID, tier); err != nil {
			log.Warn().Err(err).Int64("user_id", p.UserID).Int64("question_id", q.ID).Msg("mark question used failed")
		}
	}

	s.mu.Lock()
	if s.sessions[sess.ID] != sess {
		s.mu.Unlock()
		return ErrStateStale
	}
	now := time.Now()
	sess.Question = q
	sess.StartedAt = now
	sess.Deadline = now.Add(tr.Timeout)
	sess.state = StateAwaiting
	sess.timer = time.AfterFunc(tr.Timeout, func() {
		tctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		s.Timeout(tctx, sess.ID)
	})
	countdownCtx, stop := context.WithCancel(context.Background())
	sess.stopCountdown = stop
	s.mu.Unlock()

	s.metrics.started()
	log.Info().
		Int64("player1", a.UserID).
		Int64("player2", b.UserID).
		Int64("question_id", q.ID).
		Dur("timeout", tr.Timeout).
		Msg("session started")

	for _, p := range sess.Players {
		opp := sess.opponent(p.UserID)
		s.notify(ctx, p.UserID, Message{Text: questionText(opp.DisplayName, tier, q.Prompt), Menu: MenuInGame})
		ref, err := s.notifier.Notify(ctx, p.UserID, Message{Text: timerStartText(tr.Timeout)})
		if err != nil {
			log.Debug().Err(err).Int64("user_id", p.UserID).Msg("timer message not delivered")
			continue
		}
		s.mu.Lock()
		sess.timerMessages[p.UserID] = ref
		s.mu.Unlock()
	}

	go s.runCountdown(countdownCtx, sess)
	return nil
}

// registerLocked binds both players to the session, pulling them out of any
// queue. The caller must hold mu.
func (s *Service) registerLocked(ctx context.Context, sess *Session) error {
	if s.closed {
		return ErrStateStale
	}
	for _, p := range sess.Players {
		if s.sessionOfLocked(ctx, p.UserID) != nil {
			return ErrAlreadyInSession
		}
	}
	for _, p := range sess.Players {
		s.queue.Leave(p.UserID)
	}
	s.sessions[sess.ID] = sess
	for i, p := range sess.Players {
		if err := s.index.Bind(ctx, p.UserID, sess.ID); err != nil {
			for _, bound := range sess.Players[:i] {
				_ = s.index.Release(ctx, bound.UserID, sess.ID)
			}
			delete(s.sessions, sess.ID)
			return fmt.Errorf("bind session index: %w", err)
		}
	}
	return nil
}

func (s *Service) pairSeen(ctx context.Context, sess *Session) (question.IDSet, error) {
	union := question.IDSet{}
	for _, p := range sess.Players {
		ids, err := s.seen.SeenQuestionIDs(ctx, p.UserID, sess.Tier)
		if err != nil {
			return nil, fmt.Errorf("load seen questions for %d: %w", p.UserID, err)
		}
		union = union.Union(ids)
	}
	return union, nil
}

// dissolve drops a session that never reached the answering phase.
func (s *Service) dissolve(ctx context.Context, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sess.ID] == sess {
		delete(s.sessions, sess.ID)
	}
	s.releaseLocked(ctx, sess)
}

func (s *Service) releaseLocked(ctx context.Context, sess *Session) {
	for _, p := range sess.Players {
		if err := s.index.Release(ctx, p.UserID, sess.ID); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", p.UserID).Str("session_id", sess.ID).Msg("release session index failed")
		}
	}
}

// resolveLocked is the single exit from the answering phase. The caller must
// hold mu and must have checked the session is still awaiting an answer.
func (s *Service) resolveLocked(ctx context.Context, sess *Session, final State) {
	sess.state = final
	sess.halt()
	delete(s.sessions, sess.ID)
	s.releaseLocked(ctx, sess)
}

// SubmitAnswer evaluates a text from a player. Players outside a live session are ignored.
func (s *Service) SubmitAnswer(ctx context.Context, userID int64, text string) (Verdict, error) {
	s.mu.Lock()
	sess := s.sessionOfLocked(ctx, userID)
	if sess == nil || sess.state != StateAwaiting || sess.Question.Answer == "" {
		s.mu.Unlock()
		return VerdictIgnored, nil
	}
	if !answer.IsCorrect(text, sess.Question.Answer) {
		s.mu.Unlock()
		s.notify(ctx, userID, Message{Text: tryAgainText})
		return VerdictWrong, nil
	}
	s.resolveLocked(ctx, sess, StateResolvedWin)
	s.mu.Unlock()

	winner, loser := sess.player(userID), sess.opponent(userID)
	s.settleWin(ctx, sess, winner, loser)
	return VerdictWon, nil
}

func (s *Service) settleWin(ctx context.Context, sess *Session, winner, loser queue.Player) {
	tr, _ := s.rules.For(sess.Tier)
	log := s.logger.With().Str("session_id", sess.ID).Logger()

	winnerRating := s.applyDelta(ctx, winner, tr.WinDelta)
	loserRating := s.applyDelta(ctx, loser, tr.LoseDelta)
	for _, p := range sess.Players {
		if err := s.ledger.IncrementGames(ctx, p.UserID); err != nil {
			log.Warn().Err(err).Int64("user_id", p.UserID).Msg("increment games failed")
		}
	}
	if err := s.ledger.IncrementTierWin(ctx, winner.UserID, sess.Tier); err != nil {
		log.Warn().Err(err).Int64("user_id", winner.UserID).Msg("increment tier win failed")
	}

	s.metrics.resolved("win")
	log.Info().
		Int64("winner", winner.UserID).
		Int64("loser", loser.UserID).
		Int("winner_rating", winnerRating).
		Int("loser_rating", loserRating).
		Msg("session resolved")

	s.notify(ctx, winner.UserID, Message{Text: winText(winnerRating), Menu: MenuMain})
	s.notify(ctx, loser.UserID, Message{Text: loseText(sess.Question.Answer, loserRating), Menu: MenuMain})

	s.record(ctx, winner, winnerRating)
	s.record(ctx, loser, loserRating)

	s.rematch.Offer(ctx, sess.Players[0], sess.Players[1])
}

// applyDelta falls back to the rating snapshot when the ledger is unreachable.
func (s *Service) applyDelta(ctx context.Context, p queue.Player, delta int) int {
	rating, err := s.ledger.ApplyDelta(ctx, p.UserID, delta)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", p.UserID).Int("delta", delta).Msg("apply rating delta failed")
		return max(0, p.Rating+delta)
	}
	return rating
}

func (s *Service) record(ctx context.Context, p queue.Player, rating int) {
	if s.standings == nil {
		return
	}
	if err := s.standings.RecordRating(ctx, p.UserID, p.DisplayName, rating); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", p.UserID).Msg("record standings failed")
	}
}

// Timeout resolves the session as a draw. It reports whether it won the
// resolution race; a session already resolved is left untouched.
func (s *Service) Timeout(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.state != StateAwaiting {
		s.mu.Unlock()
		return false
	}
	s.resolveLocked(ctx, sess, StateResolvedTimeout)
	s.mu.Unlock()

	s.metrics.resolved("timeout")
	s.logger.Info().Str("session_id", sess.ID).Msg("session timed out")

	s.broadcast(ctx, sess, Message{Text: timeoutText(sess.Question.Answer), Menu: MenuMain})
	s.rematch.Offer(ctx, sess.Players[0], sess.Players[1])
	return true
}

func (s *Service) runCountdown(ctx context.Context, sess *Session) {
	ticker := time.NewTicker(s.countdown)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Remaining time comes from the wall clock so delivery jitter never accumulates.
		remaining := time.Until(sess.Deadline)
		if remaining < 0 {
			remaining = 0
		}

		s.mu.Lock()
		refs := make([]MessageRef, 0, len(sess.timerMessages))
		for _, ref := range sess.timerMessages {
			refs = append(refs, ref)
		}
		s.mu.Unlock()

		for _, ref := range refs {
			if ctx.Err() != nil {
				return
			}
			if err := s.notifier.Update(ctx, ref, timerLeftText(remaining)); err != nil {
				s.logger.Debug().Err(err).Str("session_id", sess.ID).Msg("countdown update failed")
			}
		}
	}
}

// Session returns a copy of the live session the player is in.
func (s *Service) Session(ctx context.Context, userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionOfLocked(ctx, userID)
	if sess == nil {
		return Session{}, false
	}
	return Session{
		ID:        sess.ID,
		Players:   sess.Players,
		Tier:      sess.Tier,
		Question:  sess.Question,
		state:     sess.state,
		StartedAt: sess.StartedAt,
		Deadline:  sess.Deadline,
	}, true
}

// State returns the lifecycle position of the session copy.
func (s Session) State() State {
	return s.state
}

// AcceptRematch records the player's consent to replay the pair.
func (s *Service) AcceptRematch(ctx context.Context, userID int64, key PairKey) error {
	return s.rematch.Accept(ctx, userID, key)
}

// DeclineRematch cancels the pair's pending rematch.
func (s *Service) DeclineRematch(ctx context.Context, userID int64, key PairKey) error {
	return s.rematch.Decline(ctx, userID, key)
}

// Close stops every timer. Live sessions and pending rematches are discarded.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for id, sess := range s.sessions {
		sess.halt()
		delete(s.sessions, id)
		s.releaseLocked(context.Background(), sess)
	}
	s.mu.Unlock()
	s.rematch.close()
}

func (s *Service) notify(ctx context.Context, userID int64, msg Message) {
	if _, err := s.notifier.Notify(ctx, userID, msg); err != nil {
		s.logger.Debug().Err(err).Int64("user_id", userID).Msg("notification not delivered")
	}
}

func (s *Service) broadcast(ctx context.Context, sess *Session, msg Message) {
	for _, p := range sess.Players {
		s.notify(ctx, p.UserID, msg)
	}
}
