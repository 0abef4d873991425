package match

import (
	"context"
	"time"

	"github.com/gokatarajesh/battlestudy/internal/match/queue"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

// State is the lifecycle position of a session.
type State int

const (
	StateSelecting State = iota
	StateAwaiting
	StateResolvedWin
	StateResolvedTimeout
)

func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting_question"
	case StateAwaiting:
		return "awaiting_answer"
	case StateResolvedWin:
		return "resolved_win"
	case StateResolvedTimeout:
		return "resolved_timeout"
	default:
		return "unknown"
	}
}

// Status is where a player currently stands.
type Status int

const (
	StatusIdle Status = iota
	StatusQueued
	StatusInSession
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusInSession:
		return "in_session"
	default:
		return "idle"
	}
}

// Verdict is the result of an answer submission.
type Verdict int

const (
	VerdictIgnored Verdict = iota
	VerdictWrong
	VerdictWon
)

func (v Verdict) String() string {
	switch v {
	case VerdictWrong:
		return "wrong"
	case VerdictWon:
		return "won"
	default:
		return "ignored"
	}
}

// Session is one live battle between two players.
// Fields are guarded by the owning Service's mutex.
type Session struct {
	ID       string
	Players  [2]queue.Player
	Tier     question.Difficulty
	Question question.Question

	state     State
	StartedAt time.Time
	Deadline  time.Time

	timer         *time.Timer
	stopCountdown context.CancelFunc
	timerMessages map[int64]MessageRef
}

func newSession(id string, a, b queue.Player, tier question.Difficulty) *Session {
	return &Session{
		ID:            id,
		Players:       [2]queue.Player{a, b},
		Tier:          tier,
		state:         StateSelecting,
		timerMessages: make(map[int64]MessageRef, 2),
	}
}

func (s *Session) has(userID int64) bool {
	return s.Players[0].UserID == userID || s.Players[1].UserID == userID
}

// opponent returns the other participant. userID must belong to the session.
func (s *Session) opponent(userID int64) queue.Player {
	if s.Players[0].UserID == userID {
		return s.Players[1]
	}
	return s.Players[0]
}

func (s *Session) player(userID int64) queue.Player {
	if s.Players[0].UserID == userID {
		return s.Players[0]
	}
	return s.Players[1]
}

// halt stops the timeout and the countdown. Safe to call more than once.
func (s *Session) halt() {
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.stopCountdown != nil {
		s.stopCountdown()
	}
}
