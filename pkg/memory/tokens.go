package memory

// charsPerToken is the fixed ratio used to estimate token cost from text
// length. Exact tokenization is provider-specific; four characters per token
// is close enough for budget decisions.
const charsPerToken = 4

// EstimateTokens estimates the token cost of text from its character length,
// rounding up. Empty text costs zero.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// EstimateContextTokens sums the estimated token cost of every turn, pin, and
// summary in the context.
func EstimateContextTokens(mc *MemoryContext) int {
	total := 0
	for _, t := range mc.RecentTurns {
		total += EstimateTokens(t.Text)
	}
	for _, p := range mc.Pins {
		total += EstimateTokens(p.Text)
	}
	for _, s := range mc.Summaries {
		total += EstimateTokens(s.Text)
	}
	return total
}
