package leaderboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/battlestudy/pkg/http/errors"
)

const maxLimit = 100

// HTTPHandler exposes the rating leaderboard over REST.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with the current top players.
// Route: GET /v1/leaderboard?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w, http.MethodGet)
		return
	}

	limit := h.svc.TopN()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxLimit {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "limit must be between 1 and 100", "limit")
			return
		}
		limit = parsed
	}

	top, source, err := h.svc.Top(r.Context(), limit)
	if err != nil && len(top) == 0 {
		h.logger.Warn().Err(err).Msg("leaderboard fetch failed")
		httperrors.RespondInternalError(w, httperrors.ErrCodeLeaderboardFetchFailed, "failed to fetch leaderboard")
		return
	}
	if top == nil {
		top = []Entry{}
	}

	resp := map[string]interface{}{
		"top":         top,
		"source":      source,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
