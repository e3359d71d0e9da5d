// Package telegram connects the agent to a Telegram bot over long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// ErrParseEntities is returned when the platform rejects a rich-text message it cannot parse.
var ErrParseEntities = errors.New("can't parse entities")

// Update is one inbound chat message. Text is empty for updates that carry no text.
type Update struct {
	ID       int
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

type ChatClient interface {
	GetUpdates(ctx context.Context, offset, waitSeconds int) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, rich bool) error
	SendTyping(ctx context.Context, chatID int64) error
}

// BotClient is a ChatClient over the Bot API with outbound sends rate limited.
type BotClient struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

type BotOptions struct {
	Token string
	// Endpoint overrides the Bot API URL format; empty means tgbotapi.APIEndpoint.
	Endpoint    string
	WaitSeconds int
	SendRate    float64
}

func NewBotClient(opts BotOptions) (*BotClient, error) {
	if opts.Token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   time.Duration(opts.WaitSeconds+10) * time.Second,
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}

	limit := rate.Inf
	if opts.SendRate > 0 {
		limit = rate.Limit(opts.SendRate)
	}
	return &BotClient{bot: bot, limiter: rate.NewLimiter(limit, 5)}, nil
}

func (c *BotClient) Username() string {
	return c.bot.Self.UserName
}

// GetUpdates long-polls for updates at or after offset. The Bot API call itself
// cannot be cancelled, so a cancelled ctx returns early and the poll is abandoned.
func (c *BotClient) GetUpdates(ctx context.Context, offset, waitSeconds int) ([]Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = waitSeconds
	cfg.AllowedUpdates = []string{"message"}

	type result struct {
		updates []tgbotapi.Update
		err     error
	}
	done := make(chan result, 1)
	go func() {
		updates, err := c.bot.GetUpdates(cfg)
		done <- result{updates, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return convertUpdates(r.updates), nil
	}
}

func convertUpdates(in []tgbotapi.Update) []Update {
	out := make([]Update, 0, len(in))
	for _, u := range in {
		upd := Update{ID: u.UpdateID}
		if m := u.Message; m != nil {
			upd.Text = m.Text
			if m.Chat != nil {
				upd.ChatID = m.Chat.ID
			}
			if m.From != nil {
				upd.UserID = m.From.ID
				upd.Username = m.From.UserName
			}
		}
		out = append(out, upd)
	}
	return out
}

func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string, rich bool) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if rich {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	_, err := c.bot.Send(msg)
	return sendError(err)
}

func (c *BotClient) SendTyping(ctx context.Context, chatID int64) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

func sendError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Message), ErrParseEntities.Error()) {
		return fmt.Errorf("%w: %s", ErrParseEntities, apiErr.Message)
	}
	return err
}
