package telegram

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"storefront-agent/internal/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	GreetingReply = "Hello! I am your Cycle Harmony AI Assistant. 🤖\n\n" +
		"I remember our conversation, so you can ask follow-up questions!\n\n" +
		"Ask me anything about customers, orders, or inventory.\n" +
		"I can also perform actions like changing order status, assigning delivery boys, and more!\n\n" +
		"Type /clear to reset our conversation memory."
	ClearedReply = "🧹 Conversation memory cleared! Starting fresh."

	// MaxMessageRunes is the platform's limit on one message.
	MaxMessageRunes = 4096
)

func (p *Poller) handle(ctx context.Context, u Update) {
	ctx, span := p.tracer().Start(ctx, "telegram update")
	defer span.End()
	span.SetAttributes(chatAttr(u.ChatID), attribute.Int("telegram.update.id", u.ID))

	if len(p.Allowed) > 0 && !slices.Contains(p.Allowed, u.ChatID) {
		logging.Warn(ctx).Int64("chat", u.ChatID).Str("user", u.Username).Msg("ignoring message from chat not on the allow list")
		span.SetAttributes(attribute.Bool("telegram.chat.allowed", false))
		return
	}

	text := strings.TrimSpace(u.Text)
	if strings.HasPrefix(text, "/") {
		p.command(ctx, u.ChatID, text)
		return
	}

	logging.Info(ctx).Int64("chat", u.ChatID).Int64("user", u.UserID).Msg("message received")
	if err := p.Client.SendTyping(ctx, u.ChatID); err != nil {
		logging.Debug(ctx).Err(err).Int64("chat", u.ChatID).Msg("typing indicator failed")
	}

	reply := p.Agent.Converse(ctx, conversationID(u.ChatID), u.Text)
	if err := p.send(ctx, u.ChatID, reply); err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
}

// command handles /start and /clear. Any other command is ignored.
func (p *Poller) command(ctx context.Context, chatID int64, text string) {
	name := strings.Fields(text)[0]
	name, _, _ = strings.Cut(name, "@")

	var reply string
	switch name {
	case "/start":
		reply = GreetingReply
	case "/clear":
		reply = ClearedReply
	default:
		logging.Debug(ctx).Int64("chat", chatID).Str("command", name).Msg("ignoring unknown command")
		return
	}

	if err := p.Agent.Reset(ctx, conversationID(chatID)); err != nil {
		logging.Error(ctx).Err(err).Int64("chat", chatID).Msg("failed to clear conversation")
	}
	_ = p.send(ctx, chatID, reply)
}

// send delivers text in platform-sized chunks. A chunk rejected for its markup is
// resent once as plain text. Failures are logged and the last one is returned.
func (p *Poller) send(ctx context.Context, chatID int64, text string) error {
	var last error
	for _, chunk := range splitMessage(text, MaxMessageRunes) {
		err := p.Client.SendMessage(ctx, chatID, chunk, true)
		if errors.Is(err, ErrParseEntities) {
			logging.Warn(ctx).Err(err).Int64("chat", chatID).Msg("markdown rejected, resending as plain text")
			err = p.Client.SendMessage(ctx, chatID, chunk, false)
		}
		if err != nil {
			logging.Error(ctx).Err(err).Int64("chat", chatID).Msg("failed to send reply")
			last = err
		}
	}
	return last
}

// splitMessage cuts text into chunks of at most limit runes, preferring to break after a newline.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		head := string(runes[:limit])
		if i := strings.LastIndexByte(head, '\n'); i > 0 {
			chunks = append(chunks, head[:i])
			text = text[i+1:]
			continue
		}
		chunks = append(chunks, head)
		text = string(runes[limit:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
