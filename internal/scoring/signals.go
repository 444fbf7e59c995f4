package scoring

import (
	"regexp"
	"strings"
)

// Guidance-change phrase families. Each family counts at most once; the side
// with the strict majority of matching families wins.
var (
	guidanceRaise = compileAll(
		`rais.*guidance`, `upgrad.*guidance`, `exceed.*expectation`,
		`beat.*estimate`, `above.*consensus`, `stronger.*outlook`,
		`increas.*forecast`, `revis.*upward`,
	)
	guidanceLower = compileAll(
		`lower.*guidance`, `cut.*guidance`, `miss.*expectation`,
		`below.*estimate`, `weaker.*outlook`, `decreas.*forecast`,
		`revis.*downward`, `disappoint`,
	)
)

// riskTerms are counted as substrings, so "risks" and "uncertainty" also hit.
var riskTerms = []string{
	"risk", "uncertain", "volatile", "challenge", "headwind",
	"concern", "threat", "exposure", "vulnerability",
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// GuidanceSignal returns +1 when more raise-family phrases match than
// lower-family ones, -1 for the reverse, and 0 on a tie.
func GuidanceSignal(text string) float64 {
	lower := strings.ToLower(text)
	var raises, cuts int
	for _, re := range guidanceRaise {
		if re.MatchString(lower) {
			raises++
		}
	}
	for _, re := range guidanceLower {
		if re.MatchString(lower) {
			cuts++
		}
	}
	switch {
	case raises > cuts:
		return 1
	case cuts > raises:
		return -1
	}
	return 0
}

// RiskScore measures risk-language density: occurrences per 1000 words,
// divided by 10 and capped at 1.
func RiskScore(text string) float64 {
	lower := strings.ToLower(text)
	wordCount := len(strings.Fields(lower))
	if wordCount == 0 {
		return 0
	}
	hits := 0
	for _, term := range riskTerms {
		hits += strings.Count(lower, term)
	}
	score := float64(hits) / float64(wordCount) * 1000 / 10
	if score > 1 {
		return 1
	}
	return score
}
