package llm

import (
	"context"
)

type completeFunc func(ctx context.Context, cfg SessionConfig, messages []Message) (*ChatResponse, error)

// transcriptSession replays its own message log for providers whose APIs are stateless.
type transcriptSession struct {
	cfg      SessionConfig
	complete completeFunc
	messages []Message
}

func newTranscriptSession(cfg SessionConfig, complete completeFunc) *transcriptSession {
	return &transcriptSession{cfg: cfg, complete: complete}
}

func (s *transcriptSession) Send(ctx context.Context, prompt string) (*ChatResponse, error) {
	messages := append(s.messages[:len(s.messages):len(s.messages)], Message{Role: RoleUser, Content: prompt})

	resp, err := s.complete(ctx, s.cfg, messages)
	if err != nil {
		// the failed prompt is not kept
		return nil, err
	}

	s.messages = trimTranscript(append(messages, Message{Role: RoleAssistant, Content: resp.Content}), s.cfg.MaxTurns)
	return resp, nil
}

// trimTranscript keeps the last maxTurns messages, starting on a user message.
func trimTranscript(messages []Message, maxTurns int) []Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		return messages
	}
	messages = messages[len(messages)-maxTurns:]
	for len(messages) > 0 && messages[0].Role != RoleUser {
		messages = messages[1:]
	}
	return messages
}
