package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gokatarajesh/battlestudy/internal/match"
	"github.com/gokatarajesh/battlestudy/internal/question"
)

const (
	btnJoin        = "👨‍✈️ Join battle"
	btnLeave       = "❌ Leave queue"
	btnProfile     = "👤 Profile"
	btnLeaderboard = "🏆 Leaderboard"
	btnHowTo       = "❓ How to play"

	tierCallbackPrefix = "level_"
)

func menuKeyboard(menu match.Menu) (tgbotapi.ReplyKeyboardMarkup, bool) {
	stats := tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnProfile),
		tgbotapi.NewKeyboardButton(btnLeaderboard),
	)
	help := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnHowTo))

	switch menu {
	case match.MenuMain:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnJoin)),
			stats,
			help,
		), true
	case match.MenuQueued:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnLeave)),
			stats,
			help,
		), true
	case match.MenuInGame:
		return tgbotapi.NewReplyKeyboard(stats, help), true
	default:
		return tgbotapi.ReplyKeyboardMarkup{}, false
	}
}

func tierKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(question.Difficulties))
	for _, d := range question.Difficulties {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(tierLabel(d), tierCallbackPrefix+d.String()))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func actionsKeyboard(actions []match.Action) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func tierLabel(d question.Difficulty) string {
	switch d {
	case question.DifficultyEasy:
		return "🟢 Easy"
	case question.DifficultyMedium:
		return "🟡 Medium"
	case question.DifficultyHard:
		return "🔴 Hard"
	default:
		return d.String()
	}
}
