package errors

// Error codes for standardized error responses
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	ErrCodeInternalError = "internal_error"
	ErrCodeUpstreamError = "upstream_error"

	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
)
