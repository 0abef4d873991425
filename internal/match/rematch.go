package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/battlestudy/internal/match/queue"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

const defaultRematchWindow = 20 * time.Second

// PairKey is the unordered pair of players, canonicalized by sorting.
type PairKey struct {
	Low  int64
	High int64
}

func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// ParsePairKey reads the "low_high" form used in callback data.
func ParsePairKey(raw string) (PairKey, error) {
	lowRaw, highRaw, ok := strings.Cut(raw, "_")
	if !ok {
		return PairKey{}, fmt.Errorf("pair key %q: missing separator", raw)
	}
	low, err := strconv.ParseInt(lowRaw, 10, 64)
	if err != nil {
		return PairKey{}, fmt.Errorf("pair key %q: %w", raw, err)
	}
	high, err := strconv.ParseInt(highRaw, 10, 64)
	if err != nil {
		return PairKey{}, fmt.Errorf("pair key %q: %w", raw, err)
	}
	return NewPairKey(low, high), nil
}

func (k PairKey) String() string {
	return fmt.Sprintf("%d_%d", k.Low, k.High)
}

// Has reports whether the player is one of the pair.
func (k PairKey) Has(userID int64) bool {
	return userID == k.Low || userID == k.High
}

// Other returns the partner of userID.
func (k PairKey) Other(userID int64) int64 {
	if userID == k.Low {
		return k.High
	}
	return k.Low
}

// PendingRematch is an open rematch offer for a pair.
type PendingRematch struct {
	key      PairKey
	players  map[int64]queue.Player
	accepted map[int64]struct{}
	// tier is empty unless both players preferred the same one.
	tier   question.Difficulty
	offers map[int64]MessageRef
	expiry *time.Timer
}

// Negotiator coordinates rematch offers after a session ends.
type Negotiator struct {
	svc    *Service
	window time.Duration
	logger zerolog.Logger

	mu      sync.Mutex
	pending map[PairKey]*PendingRematch
}

func newNegotiator(svc *Service, window time.Duration) *Negotiator {
	if window <= 0 {
		window = defaultRematchWindow
	}
	return &Negotiator{
		svc:     svc,
		window:  window,
		logger:  svc.logger.With().Str("component", "rematch").Logger(),
		pending: make(map[PairKey]*PendingRematch),
	}
}

// Offer asks both players whether they want to play again.
func (n *Negotiator) Offer(ctx context.Context, a, b queue.Player) {
	key := NewPairKey(a.UserID, b.UserID)
	p := &PendingRematch{
		key:      key,
		players:  map[int64]queue.Player{a.UserID: a, b.UserID: b},
		accepted: make(map[int64]struct{}, 2),
		offers:   make(map[int64]MessageRef, 2),
	}
	if a.Preferred != "" && a.Preferred == b.Preferred {
		p.tier = a.Preferred
	}

	n.mu.Lock()
	var stale map[int64]MessageRef
	if old, ok := n.pending[key]; ok {
		old.expiry.Stop()
		stale = old.offers
	}
	n.pending[key] = p
	p.expiry = time.AfterFunc(n.window, func() {
		ectx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		n.expire(ectx, p)
	})
	n.mu.Unlock()

	n.retract(ctx, stale)
	n.logger.Info().Str("pair", key.String()).Str("tier", p.tier.String()).Msg("rematch offered")

	for _, uid := range []int64{key.Low, key.High} {
		n.deliverOffer(ctx, p, uid, Message{Text: rematchOfferText, Actions: rematchActions(key, false)})
	}
}

// deliverOffer sends an offer and keeps its ref for retraction, unless the
// rematch was settled while the message was in flight.
func (n *Negotiator) deliverOffer(ctx context.Context, p *PendingRematch, userID int64, msg Message) {
	ref, err := n.svc.notifier.Notify(ctx, userID, msg)
	if err != nil {
		n.logger.Debug().Err(err).Int64("user_id", userID).Msg("rematch offer not delivered")
		return
	}
	n.mu.Lock()
	live := n.pending[p.key] == p
	if live {
		p.offers[userID] = ref
	}
	n.mu.Unlock()
	if !live {
		n.retract(ctx, map[int64]MessageRef{userID: ref})
	}
}

// Accept records a player's consent. The second consent starts a new session.
func (n *Negotiator) Accept(ctx context.Context, userID int64, key PairKey) error {
	if !key.Has(userID) {
		return ErrInvalidParticipant
	}

	n.mu.Lock()
	p, ok := n.pending[key]
	if !ok {
		n.mu.Unlock()
		return ErrStateStale
	}
	if _, done := p.accepted[userID]; done {
		n.mu.Unlock()
		return ErrAlreadyAccepted
	}
	p.accepted[userID] = struct{}{}
	offers := p.offers
	p.offers = make(map[int64]MessageRef, 2)
	first := len(p.accepted) == 1
	complete := len(p.accepted) == 2
	if complete {
		p.expiry.Stop()
		delete(n.pending, key)
	}
	n.mu.Unlock()

	n.retract(ctx, offers)
	n.logger.Info().Str("pair", key.String()).Int64("user_id", userID).Msg("rematch accepted")

	if complete {
		n.promote(ctx, p)
		return nil
	}
	if first {
		other := key.Other(userID)
		name := p.players[userID].DisplayName
		n.deliverOffer(ctx, p, other, Message{Text: rematchRequestedText(name), Actions: rematchActions(key, true)})
	}
	return nil
}

func (n *Negotiator) promote(ctx context.Context, p *PendingRematch) {
	tier := p.tier
	if tier == "" {
		tier = question.DifficultyEasy
	}

	a, b := p.players[p.key.Low], p.players[p.key.High]
	a, b = n.refresh(ctx, a, tier), n.refresh(ctx, b, tier)

	n.svc.metrics.rematch("promoted")
	n.logger.Info().Str("pair", p.key.String()).Str("tier", tier.String()).Msg("rematch promoted")

	for _, uid := range []int64{a.UserID, b.UserID} {
		n.svc.notify(ctx, uid, Message{Text: rematchStartText})
	}

	err := n.svc.Begin(ctx, a, b, tier)
	switch {
	case err == nil, errors.Is(err, ErrNoQuestionsAvailable):
	case errors.Is(err, ErrAlreadyInSession):
		for _, uid := range []int64{a.UserID, b.UserID} {
			n.svc.notify(ctx, uid, Message{Text: rematchBusyText, Menu: MenuMain})
		}
	default:
		n.logger.Warn().Err(err).Str("pair", p.key.String()).Msg("rematch session not started")
	}
}

// refresh reloads the rating snapshot and pins the rematch tier.
func (n *Negotiator) refresh(ctx context.Context, p queue.Player, tier question.Difficulty) queue.Player {
	if rating, err := n.svc.ledger.Rating(ctx, p.UserID); err == nil {
		p.Rating = rating
	} else {
		n.logger.Warn().Err(err).Int64("user_id", p.UserID).Msg("rating refresh failed")
	}
	p.Preferred = tier
	p.QueuedAt = time.Now()
	return p
}

// Decline cancels the pending rematch regardless of prior consents.
func (n *Negotiator) Decline(ctx context.Context, userID int64, key PairKey) error {
	if !key.Has(userID) {
		return ErrInvalidParticipant
	}

	n.mu.Lock()
	p, ok := n.pending[key]
	if !ok {
		n.mu.Unlock()
		return ErrStateStale
	}
	p.expiry.Stop()
	delete(n.pending, key)
	offers := p.offers
	n.mu.Unlock()

	n.retract(ctx, offers)
	n.svc.metrics.rematch("declined")
	n.logger.Info().Str("pair", key.String()).Int64("user_id", userID).Msg("rematch declined")

	n.svc.notify(ctx, userID, Message{Text: youDeclinedText, Menu: MenuMain})
	n.svc.notify(ctx, key.Other(userID), Message{Text: opponentDeclinedText(p.players[userID].DisplayName), Menu: MenuMain})
	return nil
}

func (n *Negotiator) expire(ctx context.Context, p *PendingRematch) {
	n.mu.Lock()
	if n.pending[p.key] != p {
		n.mu.Unlock()
		return
	}
	delete(n.pending, p.key)
	offers := p.offers
	n.mu.Unlock()

	n.retract(ctx, offers)
	n.svc.metrics.rematch("expired")
	n.logger.Info().Str("pair", p.key.String()).Msg("rematch expired")

	for _, uid := range []int64{p.key.Low, p.key.High} {
		n.svc.notify(ctx, uid, Message{Text: rematchExpiredText, Menu: MenuMain})
	}
}

func (n *Negotiator) retract(ctx context.Context, offers map[int64]MessageRef) {
	for uid, ref := range offers {
		if err := n.svc.notifier.Retract(ctx, ref); err != nil {
			n.logger.Debug().Err(err).Int64("user_id", uid).Msg("rematch offer not retracted")
		}
	}
}

// Pending reports whether the pair has an open rematch.
func (n *Negotiator) Pending(key PairKey) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.pending[key]
	return ok
}

func (n *Negotiator) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for key, p := range n.pending {
		p.expiry.Stop()
		delete(n.pending, key)
	}
}
