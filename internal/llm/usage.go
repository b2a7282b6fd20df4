package llm

import "strings"

// UsageTotals accumulates token consumption and estimated spend across a
// client's lifetime, for run summaries.
type UsageTotals struct {
	Calls            int     `json:"calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// modelPrice is the USD list price per one million tokens.
type modelPrice struct {
	pattern string
	input   float64
	output  float64
}

// modelPrices covers the models the tiers map to, most specific pattern
// first. Lookup is by substring so dated revisions ("gemini-2.5-flash-002")
// still resolve.
var modelPrices = []modelPrice{
	{pattern: "gemini-2.5-flash-lite", input: 0.10, output: 0.40},
	{pattern: "gemini-2.5-flash", input: 0.30, output: 2.50},
	{pattern: "gemini-2.5-pro", input: 1.25, output: 10.00},
	{pattern: "gemini-1.5-flash", input: 0.075, output: 0.30},
	{pattern: "gemini-1.5-pro", input: 1.25, output: 5.00},
}

// defaultPrice is the standard-tier price, used for unknown models.
var defaultPrice = modelPrice{input: 0.30, output: 2.50}

func priceFor(model string) modelPrice {
	model = strings.ToLower(model)
	for _, p := range modelPrices {
		if strings.Contains(model, p.pattern) {
			return p
		}
	}
	return defaultPrice
}

// costUSD estimates the spend of one call from its token counts.
func costUSD(model string, promptTokens, completionTokens int64) float64 {
	p := priceFor(model)
	return float64(promptTokens)/1e6*p.input + float64(completionTokens)/1e6*p.output
}
