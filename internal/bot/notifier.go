package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gokatarajesh/battlestudy/internal/match"
)

// sender is the subset of *tgbotapi.BotAPI used to talk to Telegram.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier delivers match messages as Telegram chat messages.
type Notifier struct {
	api sender
}

var _ match.Notifier = (*Notifier)(nil)

func NewNotifier(api sender) *Notifier {
	return &Notifier{api: api}
}

// Notify sends the message to the user's private chat. Actions become an
// inline keyboard, otherwise the requested menu is attached.
func (n *Notifier) Notify(_ context.Context, userID int64, msg match.Message) (match.MessageRef, error) {
	out := tgbotapi.NewMessage(userID, msg.Text)
	if len(msg.Actions) > 0 {
		out.ReplyMarkup = actionsKeyboard(msg.Actions)
	} else if markup, ok := menuKeyboard(msg.Menu); ok {
		out.ReplyMarkup = markup
	}

	sent, err := n.api.Send(out)
	if err != nil {
		return match.MessageRef{}, fmt.Errorf("send to %d: %w", userID, err)
	}
	return match.MessageRef{ChatID: userID, MessageID: sent.MessageID}, nil
}

// Retract strips the inline keyboard from a delivered message.
func (n *Notifier) Retract(_ context.Context, ref match.MessageRef) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := n.api.Request(edit); err != nil {
		return fmt.Errorf("retract %d/%d: %w", ref.ChatID, ref.MessageID, err)
	}
	return nil
}

func (n *Notifier) Update(_ context.Context, ref match.MessageRef, text string) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if _, err := n.api.Request(edit); err != nil {
		return fmt.Errorf("edit %d/%d: %w", ref.ChatID, ref.MessageID, err)
	}
	return nil
}
