package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIProvider runs Gemini conversations as native SDK chat sessions.
type GenAIProvider struct {
	client *genai.Client
}

func NewGenAIProvider(ctx context.Context, apiKey string) (*GenAIProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIProvider{client: client}, nil
}

func (p *GenAIProvider) Name() string { return "google" }

func (p *GenAIProvider) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	if cfg.System != "" {
		config.SystemInstruction = genai.NewContentFromText(cfg.System, genai.RoleUser)
	}

	chat, err := p.client.Chats.Create(ctx, cfg.Model, config, nil)
	if err != nil {
		return nil, err
	}
	return &genaiSession{client: p.client, cfg: cfg, config: config, chat: chat}, nil
}

type genaiSession struct {
	client *genai.Client
	cfg    SessionConfig
	config *genai.GenerateContentConfig
	chat   *genai.Chat
}

func (s *genaiSession) Send(ctx context.Context, prompt string) (*ChatResponse, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return nil, err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}

	out := &ChatResponse{
		Content: resp.Text(),
		Model:   resp.ModelVersion,
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
		if resp.Candidates[0].FinishReason == genai.FinishReasonSafety && out.Content == "" {
			return nil, ErrBlocked
		}
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if err := s.trim(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// trim restarts the chat from its most recent turns once the history passes the cap.
func (s *genaiSession) trim(ctx context.Context) error {
	history := s.chat.History(false)
	if s.cfg.MaxTurns <= 0 || len(history) <= s.cfg.MaxTurns {
		return nil
	}
	history = history[len(history)-s.cfg.MaxTurns:]
	for len(history) > 0 && history[0].Role != string(genai.RoleUser) {
		history = history[1:]
	}

	chat, err := s.client.Chats.Create(ctx, s.cfg.Model, s.config, history)
	if err != nil {
		return fmt.Errorf("trim chat history: %w", err)
	}
	s.chat = chat
	return nil
}
