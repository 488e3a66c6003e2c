// Package pricing holds the per-model USD price registry used to turn token
// counts into spend.
package pricing

// ModelPricing is the USD cost per one million tokens.
type ModelPricing struct {
	InputUSD  float64
	OutputUSD float64
}

// Registry maps a model name to its pricing.
type Registry map[string]ModelPricing

// Default returns the built-in price table. Config may override or extend it.
// Source: provider pricing pages; update as needed.
func Default() Registry {
	return Registry{
		"gpt-5-mini":             {InputUSD: 0.080, OutputUSD: 0.320},
		"gpt-4o-mini":            {InputUSD: 0.150, OutputUSD: 0.600},
		"gpt-4o":                 {InputUSD: 2.50, OutputUSD: 10.00},
		"text-embedding-3-small": {InputUSD: 0.020},
		"text-embedding-3-large": {InputUSD: 0.130},
		"gemini-1.5-flash":       {InputUSD: 0.075, OutputUSD: 0.30},
		"gemini-1.5-pro":         {InputUSD: 3.50, OutputUSD: 10.50},
		"text-embedding-004":     {InputUSD: 0.025},
	}
}

// Cost returns the estimated USD cost for a call. Unknown models cost zero
// so a missing table entry never blocks execution; the caller should log it.
func (r Registry) Cost(model string, tokensIn, tokensOut int) (float64, bool) {
	p, ok := r[model]
	if !ok {
		return 0, false
	}
	costIn := float64(tokensIn) / 1_000_000 * p.InputUSD
	costOut := float64(tokensOut) / 1_000_000 * p.OutputUSD
	return costIn + costOut, true
}
