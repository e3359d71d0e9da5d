package llm

import (
	openai "github.com/sashabaranov/go-openai"
)

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// NewGoogleCompatProvider talks to Gemini through its OpenAI-compatible endpoint.
func NewGoogleCompatProvider(apiKey string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = googleBaseURL
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), name: "google"}
}
