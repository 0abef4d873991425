package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Options configures the long-polling client.
type Options struct {
	Token       string
	Debug       bool
	PollTimeout int
}

// Client owns the Telegram API connection.
type Client struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      zerolog.Logger
}

// NewClient authenticates against the Bot API.
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	api.Debug = opts.Debug
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60
	}
	logger.Info().Str("username", api.Self.UserName).Msg("authorized telegram bot")
	return &Client{api: api, pollTimeout: opts.PollTimeout, logger: logger}, nil
}

// API exposes the client for components that send messages.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

// Run long-polls updates and hands each to the handler on its own goroutine
// until ctx is cancelled.
func (c *Client) Run(ctx context.Context, h *Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	c.logger.Info().Msg("polling for updates")
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("update handler panicked")
					}
				}()
				h.HandleUpdate(ctx, update)
			}()
		}
	}
}
