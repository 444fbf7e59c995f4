package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"callsense/internal/config"
	"callsense/internal/logging"
	"callsense/internal/textutil"
)

// minScoreWords is the document size below which analysis returns neutral
// defaults without consulting the model.
const minScoreWords = 50

// Weights blends the model compound with the auxiliary signals.
type Weights struct {
	Model    float64
	Lexicon  float64
	Guidance float64
}

var weightProfiles = map[string]Weights{
	"canonical": {Model: 0.50, Lexicon: 0.30, Guidance: 0.20},
	"balanced":  {Model: 0.40, Lexicon: 0.40, Guidance: 0.20},
}

// WeightsFor resolves a configured profile name, defaulting to canonical.
func WeightsFor(name string) Weights {
	if w, ok := weightProfiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return w
	}
	return weightProfiles["canonical"]
}

// Result is the full sentiment verdict for one transcript.
type Result struct {
	Distribution Distribution
	Compound     float64
	Lexicon      float64
	Guidance     float64
	Risk         float64
	Composite    float64
	Chunks       int
	Fallbacks    int
}

// Analyzer scores transcripts. Chunks go through the primary model; a chunk
// whose model call fails is rescored by the deterministic fallback so one
// flaky inference call cannot sink a document.
type Analyzer struct {
	model    ChunkModel
	fallback ChunkModel
	chunker  textutil.Chunker
	weights  Weights
	logger   *slog.Logger
}

// NewAnalyzer wires an analyzer from scoring configuration. A nil model means
// every chunk uses the fallback.
func NewAnalyzer(cfg config.Scoring, model ChunkModel, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if model == nil {
		model = LexicalModel{}
	}
	return &Analyzer{
		model:    model,
		fallback: LexicalModel{},
		chunker:  textutil.Chunker{MaxTokens: cfg.MaxTokens},
		weights:  WeightsFor(cfg.Weights),
		logger:   logger.With(logging.String("component", "scoring")),
	}
}

// Analyze cleans, chunks, and scores a transcript and blends the composite.
func (a *Analyzer) Analyze(ctx context.Context, text string) (Result, error) {
	cleaned := textutil.Normalize(text)
	if wordCount(cleaned) < minScoreWords {
		return Result{Distribution: neutralDistribution, Chunks: 0}, nil
	}

	chunks := a.chunker.Chunk(cleaned)
	var sum Distribution
	fallbacks := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dist, err := a.model.Score(ctx, chunk)
		if err != nil {
			a.logger.Warn("model scoring failed, using fallback",
				logging.Int("chunk", i),
				logging.Error(err))
			dist, err = a.fallback.Score(ctx, chunk)
			if err != nil {
				return Result{}, fmt.Errorf("fallback scoring: %w", err)
			}
			fallbacks++
		}
		sum.Positive += dist.Positive
		sum.Negative += dist.Negative
		sum.Neutral += dist.Neutral
	}

	n := float64(len(chunks))
	dist := Distribution{
		Positive: sum.Positive / n,
		Negative: sum.Negative / n,
		Neutral:  sum.Neutral / n,
	}
	compound := dist.Compound()
	lexicon := LexiconScore(cleaned)
	guidance := GuidanceSignal(cleaned)
	risk := RiskScore(cleaned)

	composite := clamp(a.weights.Model*compound +
		a.weights.Lexicon*lexicon +
		a.weights.Guidance*guidance)

	return Result{
		Distribution: dist,
		Compound:     compound,
		Lexicon:      lexicon,
		Guidance:     guidance,
		Risk:         risk,
		Composite:    composite,
		Chunks:       len(chunks),
		Fallbacks:    fallbacks,
	}, nil
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
