package scoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callsense/internal/config"
)

func repeatWords(word string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func TestLexiconScore(t *testing.T) {
	assert.Equal(t, 1.0, LexiconScore("strong growth momentum"))
	assert.Equal(t, -1.0, LexiconScore("weak decline downturn"))
	assert.Equal(t, 0.0, LexiconScore("the quarterly numbers were announced"))
	// Two positive, one negative hit.
	assert.InDelta(t, 1.0/3.0, LexiconScore("strong growth but weak demand"), 1e-9)
}

func TestLexiconScoreIsWholeWord(t *testing.T) {
	// "stronger" and "risks" are not whole-word hits.
	assert.Equal(t, 0.0, LexiconScore("stronger risks"))
}

func TestGuidanceSignal(t *testing.T) {
	assert.Equal(t, 1.0, GuidanceSignal("we raised our guidance and beat every estimate"))
	assert.Equal(t, -1.0, GuidanceSignal("we lowered guidance after a disappointing quarter"))
	assert.Equal(t, 0.0, GuidanceSignal("no forward statements were made"))
	// One family on each side is a tie.
	assert.Equal(t, 0.0, GuidanceSignal("we raised guidance but results disappointed"))
}

func TestRiskScore(t *testing.T) {
	assert.Equal(t, 0.0, RiskScore(""))
	assert.Equal(t, 0.0, RiskScore("a calm and ordinary quarter"))

	// 2 hits in 100 words is 20 per 1000, past the cap.
	assert.Equal(t, 1.0, RiskScore("risk headwind "+repeatWords("word", 98)))
	// 2 hits in 1000 words scales linearly: 2/1000*1000/10 = 0.2.
	assert.InDelta(t, 0.2, RiskScore("risk uncertain "+repeatWords("word", 998)), 1e-9)

	// Density past the cap pins at 1.
	assert.Equal(t, 1.0, RiskScore(repeatWords("risk", 50)))
}

func TestRiskScoreCountsSubstrings(t *testing.T) {
	// "risks" and "uncertainty" still register.
	score := RiskScore("risks and uncertainty remain " + repeatWords("word", 96))
	assert.InDelta(t, 0.2, score, 1e-9)
}

func TestLexicalModelPiecewise(t *testing.T) {
	m := LexicalModel{}
	ctx := context.Background()

	// Short chunks stay neutral without estimating polarity.
	dist, err := m.Score(ctx, "strong strong strong")
	require.NoError(t, err)
	assert.Equal(t, neutralDistribution, dist)

	dist, err = m.Score(ctx, repeatWords("strong", 25))
	require.NoError(t, err)
	assert.Greater(t, dist.Positive, 0.5)
	assert.Equal(t, 0.1, dist.Negative)
	assert.InDelta(t, 1.0, dist.Positive+dist.Negative+dist.Neutral, 1e-9)

	dist, err = m.Score(ctx, repeatWords("weak", 25))
	require.NoError(t, err)
	assert.Greater(t, dist.Negative, 0.5)
	assert.Equal(t, 0.1, dist.Positive)

	dist, err = m.Score(ctx, repeatWords("the", 25))
	require.NoError(t, err)
	assert.Equal(t, Distribution{Positive: 0.25, Negative: 0.25, Neutral: 0.5}, dist)
}

func TestWeightsFor(t *testing.T) {
	assert.Equal(t, Weights{Model: 0.50, Lexicon: 0.30, Guidance: 0.20}, WeightsFor("canonical"))
	assert.Equal(t, Weights{Model: 0.40, Lexicon: 0.40, Guidance: 0.20}, WeightsFor("Balanced"))
	assert.Equal(t, WeightsFor("canonical"), WeightsFor("unknown"))
}

type stubModel struct {
	dist Distribution
	err  error
	n    int
}

func (s *stubModel) Score(context.Context, string) (Distribution, error) {
	s.n++
	if s.err != nil {
		return Distribution{}, s.err
	}
	return s.dist, nil
}

func scoringConfig() config.Scoring {
	return config.Scoring{MaxTokens: 450, Weights: "canonical", TimeoutSeconds: 5}
}

func TestAnalyzeShortDocumentIsNeutral(t *testing.T) {
	model := &stubModel{dist: Distribution{Positive: 0.9, Negative: 0.05, Neutral: 0.05}}
	a := NewAnalyzer(scoringConfig(), model, nil)

	res, err := a.Analyze(context.Background(), "too short to judge")
	require.NoError(t, err)
	assert.Equal(t, neutralDistribution, res.Distribution)
	assert.Zero(t, res.Composite)
	assert.Zero(t, res.Lexicon)
	assert.Zero(t, res.Risk)
	assert.Zero(t, res.Chunks)
	assert.Zero(t, model.n, "model must not be consulted below the word minimum")
}

func TestAnalyzeBlendsComposite(t *testing.T) {
	model := &stubModel{dist: Distribution{Positive: 0.6, Negative: 0.2, Neutral: 0.2}}
	a := NewAnalyzer(scoringConfig(), model, nil)

	// Tone-free filler so lexicon, guidance, and risk all stay zero.
	text := repeatWords("the quarterly numbers were announced today", 20)
	res, err := a.Analyze(context.Background(), text)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, res.Compound, 1e-9)
	assert.InDelta(t, 0.2, res.Composite, 1e-9) // 0.50 * compound
	assert.Equal(t, 1, res.Chunks)
	assert.Zero(t, res.Fallbacks)
}

func TestCompositeClampsAtExtremes(t *testing.T) {
	assert.Equal(t, 1.0, clamp(3.7))
	assert.Equal(t, -1.0, clamp(-2.2))

	// Saturate every component: compound 1.0, lexicon 1.0, guidance +1.
	model := &stubModel{dist: Distribution{Positive: 1}}
	a := NewAnalyzer(scoringConfig(), model, nil)
	text := repeatWords("strong growth momentum beat exceed", 20) +
		" we raised guidance and came in above consensus"
	res, err := a.Analyze(context.Background(), text)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Composite, 1e-9)
	assert.LessOrEqual(t, res.Composite, 1.0)

	// And the negative mirror.
	model = &stubModel{dist: Distribution{Negative: 1}}
	a = NewAnalyzer(scoringConfig(), model, nil)
	text = repeatWords("weak decline downturn miss struggle", 20) +
		" we lowered guidance and came in below estimates"
	res, err = a.Analyze(context.Background(), text)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, res.Composite, 1e-9)
	assert.GreaterOrEqual(t, res.Composite, -1.0)
}

func TestAnalyzeFallsBackPerChunk(t *testing.T) {
	model := &stubModel{err: errors.New("inference down")}
	a := NewAnalyzer(scoringConfig(), model, nil)

	text := repeatWords("steady unremarkable commentary", 30)
	res, err := a.Analyze(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, res.Chunks, res.Fallbacks)
	assert.Positive(t, res.Chunks)
}

func TestAnalyzeHonorsCancellation(t *testing.T) {
	model := &stubModel{dist: neutralDistribution}
	a := NewAnalyzer(scoringConfig(), model, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Analyze(ctx, repeatWords("word", 500))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInferenceClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"positive":0.7,"negative":0.1,"neutral":0.2}`)
	}))
	defer server.Close()

	c := NewInferenceClient(config.Scoring{Endpoint: server.URL, Model: "finbert", TimeoutSeconds: 5})
	dist, err := c.Score(context.Background(), "record quarter")
	require.NoError(t, err)
	assert.Equal(t, Distribution{Positive: 0.7, Negative: 0.1, Neutral: 0.2}, dist)
	assert.InDelta(t, 0.6, dist.Compound(), 1e-9)
}

func TestInferenceClientRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewInferenceClient(config.Scoring{Endpoint: server.URL, TimeoutSeconds: 5})
	_, err := c.Score(context.Background(), "text")
	assert.Error(t, err)
}
