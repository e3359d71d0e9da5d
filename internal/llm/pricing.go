package llm

import (
	_ "embed"
	"encoding/json"
	"os"
)

type PriceEntry struct {
	Provider string  `json:"provider"`
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
}

//go:embed pricing.json
var defaultPricing []byte

// Pricing maps model name to USD per million tokens. PRICING_JSON_PATH replaces the built-in table.
var Pricing map[string]PriceEntry

func init() {
	Pricing = loadPricing(defaultPricing)
	if p := os.Getenv("PRICING_JSON_PATH"); p != "" {
		if data, err := os.ReadFile(p); err == nil {
			if custom := loadPricing(data); len(custom) > 0 {
				Pricing = custom
			}
		}
	}
}

func loadPricing(data []byte) map[string]PriceEntry {
	var raw struct {
		Models map[string]PriceEntry `json:"models"`
	}
	if err := json.Unmarshal(data, &raw); err != nil || raw.Models == nil {
		return map[string]PriceEntry{}
	}
	return raw.Models
}

func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	entry, ok := Pricing[model]
	if !ok {
		return 0.0
	}
	return (float64(inputTokens) * entry.Input / 1_000_000) +
		(float64(outputTokens) * entry.Output / 1_000_000)
}

var ProviderServers = map[string]string{
	"openai":    "api.openai.com",
	"anthropic": "api.anthropic.com",
	"google":    "generativelanguage.googleapis.com",
	"ollama":    "localhost",
}

var ProviderPorts = map[string]int{
	"openai":    443,
	"anthropic": 443,
	"google":    443,
	"ollama":    11434,
}
