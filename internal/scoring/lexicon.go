package scoring

import "strings"

// Financial tone keywords. Matching is whole-word against the lowercased
// token stream.
var positiveKeywords = wordSet(
	"strong", "growth", "improve", "excellent", "success", "expand",
	"opportunity", "robust", "resilient", "positive", "outperform",
	"beat", "exceed", "momentum", "strength", "record", "surge",
	"optimistic", "confident", "upgrade", "bullish",
)

var negativeKeywords = wordSet(
	"weak", "decline", "challenge", "pressure", "concern", "risk",
	"uncertain", "difficult", "headwind", "negative", "underperform",
	"miss", "delay", "slow", "struggle", "downturn", "volatile",
	"cautious", "bearish", "downgrade",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// LexiconScore returns (positive hits − negative hits) / total hits over the
// keyword lists, clamped to [-1, 1]. No hits yields 0.
func LexiconScore(text string) float64 {
	var pos, neg int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if _, ok := positiveKeywords[word]; ok {
			pos++
		}
		if _, ok := negativeKeywords[word]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return clamp(float64(pos-neg) / float64(total))
}

// polarity is a crude tone estimate in [-1, 1] used by the fallback model:
// keyword balance scaled by how much of the text is tonal at all.
func polarity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	var pos, neg int
	for _, word := range words {
		if _, ok := positiveKeywords[word]; ok {
			pos++
		}
		if _, ok := negativeKeywords[word]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	balance := float64(pos-neg) / float64(total)
	density := float64(total) / float64(len(words))
	if density > 0.2 {
		density = 0.2
	}
	// Scale so a fully one-sided chunk at high keyword density approaches ±1.
	return clamp(balance * density * 5)
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
