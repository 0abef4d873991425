package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/battlestudy/internal/db/repository"
	"github.com/gokatarajesh/battlestudy/internal/leaderboard"
	"github.com/gokatarajesh/battlestudy/internal/match"
	"github.com/gokatarajesh/battlestudy/internal/match/queue"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

// arena is the matchmaking surface driven by chat updates.
type arena interface {
	Rules() match.Rules
	StatusOf(ctx context.Context, userID int64) match.Status
	Ready(ctx context.Context, p queue.Player, tier question.Difficulty) (bool, error)
	LeaveQueue(ctx context.Context, userID int64) (bool, error)
	SubmitAnswer(ctx context.Context, userID int64, text string) (match.Verdict, error)
	AcceptRematch(ctx context.Context, userID int64, key match.PairKey) error
	DeclineRematch(ctx context.Context, userID int64, key match.PairKey) error
}

type profiles interface {
	Touch(ctx context.Context, userID int64, displayName string) (repository.Stats, error)
}

type standings interface {
	TopN() int
	Top(ctx context.Context, limit int) ([]leaderboard.Entry, string, error)
}

// Handler turns Telegram updates into matchmaking operations.
type Handler struct {
	api      sender
	arena    arena
	profiles profiles
	board    standings
	logger   zerolog.Logger
}

func NewHandler(api sender, arena arena, profiles profiles, board standings, logger zerolog.Logger) *Handler {
	return &Handler{
		api:      api,
		arena:    arena,
		profiles: profiles,
		board:    board,
		logger:   logger.With().Str("component", "bot").Logger(),
	}
}

// HandleUpdate dispatches a single update.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)
	log := h.logger.With().Int64("user_id", userID).Logger()

	switch {
	case msg.IsCommand() && msg.Command() == "start":
		if _, err := h.profiles.Touch(ctx, userID, displayName(msg.From)); err != nil {
			log.Error().Err(err).Msg("touch player")
		}
		h.reply(msg.Chat.ID, welcomeText, h.menuFor(ctx, userID))
	case text == btnJoin:
		switch h.arena.StatusOf(ctx, userID) {
		case match.StatusQueued:
			h.reply(msg.Chat.ID, alreadyQueuedText, nil)
		case match.StatusInSession:
			h.reply(msg.Chat.ID, alreadyBattleText, nil)
		default:
			h.reply(msg.Chat.ID, pickTierText, tierKeyboard())
		}
	case text == btnLeave:
		left, err := h.arena.LeaveQueue(ctx, userID)
		switch {
		case errors.Is(err, match.ErrAlreadyInSession):
			h.reply(msg.Chat.ID, alreadyBattleText, nil)
		case err != nil:
			log.Error().Err(err).Msg("leave queue")
			h.reply(msg.Chat.ID, serviceErrorText, nil)
		case left:
			h.reply(msg.Chat.ID, leftQueueText, mustMenu(match.MenuMain))
		default:
			h.reply(msg.Chat.ID, notQueuedText, h.menuFor(ctx, userID))
		}
	case text == btnProfile:
		stats, err := h.profiles.Touch(ctx, userID, displayName(msg.From))
		if err != nil {
			log.Error().Err(err).Msg("load profile")
			h.reply(msg.Chat.ID, serviceErrorText, nil)
			return
		}
		h.reply(msg.Chat.ID, profileText(stats), nil)
	case text == btnLeaderboard:
		entries, source, err := h.board.Top(ctx, h.board.TopN())
		if err != nil {
			log.Error().Err(err).Msg("load leaderboard")
			h.reply(msg.Chat.ID, serviceErrorText, nil)
			return
		}
		log.Debug().Str("source", source).Int("entries", len(entries)).Msg("leaderboard served")
		h.reply(msg.Chat.ID, leaderboardText(entries), nil)
	case text == btnHowTo:
		h.reply(msg.Chat.ID, howToText(h.arena.Rules()), nil)
	case text == "":
	default:
		verdict, err := h.arena.SubmitAnswer(ctx, userID, text)
		if err != nil {
			log.Error().Err(err).Msg("submit answer")
			return
		}
		log.Debug().Str("verdict", verdict.String()).Msg("answer evaluated")
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	userID := cb.From.ID
	data := cb.Data
	log := h.logger.With().Int64("user_id", userID).Str("data", data).Logger()

	switch {
	case strings.HasPrefix(data, tierCallbackPrefix):
		h.chooseTier(ctx, cb, strings.TrimPrefix(data, tierCallbackPrefix))
	case strings.HasPrefix(data, match.ActionRematch+":"):
		key, err := match.ParsePairKey(strings.TrimPrefix(data, match.ActionRematch+":"))
		if err != nil {
			log.Debug().Err(err).Msg("malformed rematch callback")
			h.answer(cb, staleRematchText, false)
			return
		}
		h.answerRematch(cb, h.arena.AcceptRematch(ctx, userID, key), acceptedText, log)
	case strings.HasPrefix(data, match.ActionDeclineRematch+":"):
		key, err := match.ParsePairKey(strings.TrimPrefix(data, match.ActionDeclineRematch+":"))
		if err != nil {
			log.Debug().Err(err).Msg("malformed decline callback")
			h.answer(cb, staleRematchText, false)
			return
		}
		h.answerRematch(cb, h.arena.DeclineRematch(ctx, userID, key), declinedText, log)
	default:
		h.answer(cb, "", false)
	}
}

func (h *Handler) chooseTier(ctx context.Context, cb *tgbotapi.CallbackQuery, raw string) {
	userID := cb.From.ID
	log := h.logger.With().Int64("user_id", userID).Logger()

	tier, ok := question.ParseDifficulty(raw)
	if !ok {
		h.answer(cb, unknownTierText, false)
		return
	}
	h.clearKeyboard(cb.Message)

	stats, err := h.profiles.Touch(ctx, userID, displayName(cb.From))
	if err != nil {
		log.Error().Err(err).Msg("touch player")
		h.answer(cb, serviceErrorText, true)
		return
	}
	player := queue.Player{UserID: userID, DisplayName: stats.DisplayName, Rating: stats.Rating}
	if player.DisplayName == "" {
		player.DisplayName = displayName(cb.From)
	}

	paired, err := h.arena.Ready(ctx, player, tier)
	switch {
	case err == nil:
		log.Info().Str("tier", tier.String()).Bool("paired", paired).Msg("player ready")
		h.answer(cb, "", false)
	case errors.Is(err, match.ErrAlreadyQueued):
		h.answer(cb, alreadyQueuedText, false)
	case errors.Is(err, match.ErrAlreadyInSession):
		h.answer(cb, alreadyBattleText, false)
	case errors.Is(err, match.ErrNoQuestionsAvailable):
		h.answer(cb, "", false)
	case errors.Is(err, match.ErrUnknownTier):
		h.answer(cb, unknownTierText, false)
	default:
		log.Error().Err(err).Str("tier", tier.String()).Msg("ready failed")
		h.answer(cb, serviceErrorText, true)
	}
}

func (h *Handler) answerRematch(cb *tgbotapi.CallbackQuery, err error, okText string, log zerolog.Logger) {
	switch {
	case err == nil:
		h.answer(cb, okText, false)
	case errors.Is(err, match.ErrInvalidParticipant):
		h.answer(cb, notParticipantText, true)
	case errors.Is(err, match.ErrAlreadyAccepted):
		h.answer(cb, alreadyAcceptText, false)
	case errors.Is(err, match.ErrStateStale):
		h.answer(cb, staleRematchText, false)
	default:
		log.Error().Err(err).Msg("rematch callback")
		h.answer(cb, serviceErrorText, true)
	}
}

func (h *Handler) menuFor(ctx context.Context, userID int64) interface{} {
	switch h.arena.StatusOf(ctx, userID) {
	case match.StatusQueued:
		return mustMenu(match.MenuQueued)
	case match.StatusInSession:
		return mustMenu(match.MenuInGame)
	default:
		return mustMenu(match.MenuMain)
	}
}

func (h *Handler) reply(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := h.api.Send(msg); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("reply not delivered")
	}
}

func (h *Handler) answer(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	resp := tgbotapi.NewCallback(cb.ID, text)
	if alert {
		resp = tgbotapi.NewCallbackWithAlert(cb.ID, text)
	}
	if _, err := h.api.Request(resp); err != nil {
		h.logger.Debug().Err(err).Str("callback_id", cb.ID).Msg("callback not answered")
	}
}

func (h *Handler) clearKeyboard(msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, msg.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := h.api.Request(edit); err != nil {
		h.logger.Debug().Err(err).Msg("tier keyboard not cleared")
	}
}

func mustMenu(m match.Menu) tgbotapi.ReplyKeyboardMarkup {
	markup, _ := menuKeyboard(m)
	return markup
}

func displayName(u *tgbotapi.User) string {
	switch {
	case u == nil:
		return ""
	case u.UserName != "":
		return u.UserName
	case u.FirstName != "":
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	default:
		return fmt.Sprintf("Player %d", u.ID)
	}
}
