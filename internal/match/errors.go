package match

// Error is an expected, recoverable matchmaking condition.
// Values are sentinels and compare with errors.Is.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrAlreadyQueued        = &Error{Code: "already_queued", Message: "player is already waiting for an opponent"}
	ErrAlreadyInSession     = &Error{Code: "already_in_session", Message: "player is already in a battle"}
	ErrNoQuestionsAvailable = &Error{Code: "no_questions", Message: "no unseen questions left for this tier"}
	ErrInvalidParticipant   = &Error{Code: "invalid_participant", Message: "player is not part of this rematch"}
	ErrStateStale           = &Error{Code: "state_stale", Message: "session or rematch already resolved"}
	ErrUnknownTier          = &Error{Code: "unknown_tier", Message: "unknown difficulty tier"}
	ErrAlreadyAccepted      = &Error{Code: "already_accepted", Message: "rematch already accepted, waiting for opponent"}
)
