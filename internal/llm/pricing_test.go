package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricingLoaded(t *testing.T) {
	assert.GreaterOrEqual(t, len(Pricing), 5)
	assert.Equal(t, 0.10, Pricing["gemini-2.0-flash"].Input)
	assert.Equal(t, 0.40, Pricing["gemini-2.0-flash"].Output)
	assert.Equal(t, "google", Pricing["gemini-2.0-flash"].Provider)
}

func TestCalculateCost(t *testing.T) {
	cost := CalculateCost("gpt-4.1", 2500, 300)
	expected := (2500.0*2.0 + 300.0*8.0) / 1_000_000
	assert.InDelta(t, expected, cost, 0.0001)
}

func TestCalculateCostUnknownModel(t *testing.T) {
	assert.Equal(t, 0.0, CalculateCost("nonexistent-model", 1000, 500))
}

func TestLoadPricingRejectsGarbage(t *testing.T) {
	assert.Empty(t, loadPricing([]byte("not json")))
}

func TestProviderPorts(t *testing.T) {
	assert.Equal(t, 443, ProviderPorts["google"])
	assert.Equal(t, 443, ProviderPorts["anthropic"])
	assert.Equal(t, 11434, ProviderPorts["ollama"])
}
