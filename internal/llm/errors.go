package llm

import (
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
)

// Category groups oracle failures by what the person chatting should be told.
type Category string

const (
	CategoryAuth      Category = "auth"
	CategorySafety    Category = "safety"
	CategoryRateLimit Category = "rate_limit"
	CategoryOther     Category = "other"
)

// ErrBlocked is returned when the model refuses to answer on safety grounds.
var ErrBlocked = errors.New("response blocked by safety filters")

var categoryMarkers = []struct {
	category Category
	markers  []string
}{
	{CategoryAuth, []string{"api_key", "api key", "401", "403", "unauthenticated", "permission denied", "permission_denied"}},
	{CategorySafety, []string{"safety", "blocked"}},
	{CategoryRateLimit, []string{"quota", "429", "rate limit", "resource exhausted", "resource_exhausted"}},
}

func statusCategory(code int) Category {
	switch code {
	case 401, 403:
		return CategoryAuth
	case 429:
		return CategoryRateLimit
	}
	return ""
}

// Classify checks typed SDK errors first, then falls back to message markers in a fixed order.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrBlocked) {
		return CategorySafety
	}

	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		if c := statusCategory(oaiErr.HTTPStatusCode); c != "" {
			return c
		}
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		if c := statusCategory(antErr.StatusCode); c != "" {
			return c
		}
	}

	msg := strings.ToLower(err.Error())
	for _, cm := range categoryMarkers {
		for _, m := range cm.markers {
			if strings.Contains(msg, m) {
				return cm.category
			}
		}
	}
	return CategoryOther
}
