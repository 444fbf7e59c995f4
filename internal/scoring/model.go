// Package scoring turns transcript text into a sentiment verdict. A chunked
// model distribution is blended with whole-document lexicon, guidance, and
// risk signals into one composite score.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"callsense/internal/config"
)

// Distribution holds class probabilities from a sentiment model.
type Distribution struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Compound collapses the distribution into a single score in [-1, 1].
func (d Distribution) Compound() float64 {
	return d.Positive - d.Negative
}

// neutralDistribution is the verdict for text too short to score.
var neutralDistribution = Distribution{Positive: 0.33, Negative: 0.33, Neutral: 0.34}

// ChunkModel scores one chunk of transcript text.
type ChunkModel interface {
	Score(ctx context.Context, chunk string) (Distribution, error)
}

// InferenceClient scores chunks against a FinBERT-style HTTP service: POST
// the text, receive class probabilities.
type InferenceClient struct {
	client   *http.Client
	endpoint string
	model    string
}

// NewInferenceClient builds a client from scoring configuration.
func NewInferenceClient(cfg config.Scoring) *InferenceClient {
	return &InferenceClient{
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
	}
}

type inferenceRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
}

// Score posts the chunk to the inference endpoint.
func (c *InferenceClient) Score(ctx context.Context, chunk string) (Distribution, error) {
	body, err := json.Marshal(inferenceRequest{Model: c.model, Text: chunk})
	if err != nil {
		return Distribution{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Distribution{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Distribution{}, fmt.Errorf("score chunk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Distribution{}, fmt.Errorf("score chunk: unexpected status %d", resp.StatusCode)
	}

	var dist Distribution
	if err := json.NewDecoder(resp.Body).Decode(&dist); err != nil {
		return Distribution{}, fmt.Errorf("decode response: %w", err)
	}
	return dist, nil
}

// LexicalModel is the deterministic fallback used when no inference service
// is reachable. It maps a crude polarity estimate onto pseudo-probabilities.
type LexicalModel struct{}

// minFallbackWords is the chunk size below which the fallback stays neutral.
const minFallbackWords = 20

// Score converts keyword polarity into a distribution: the winning side gets
// 0.5 plus half the polarity magnitude, the losing side a 0.1 floor, and the
// remainder is neutral.
func (LexicalModel) Score(_ context.Context, chunk string) (Distribution, error) {
	if wordCount(chunk) < minFallbackWords {
		return neutralDistribution, nil
	}
	pol := polarity(chunk)
	switch {
	case pol > 0:
		pos := 0.5 + pol*0.5
		return Distribution{Positive: pos, Negative: 0.1, Neutral: 1 - pos - 0.1}, nil
	case pol < 0:
		neg := 0.5 + (-pol)*0.5
		return Distribution{Positive: 0.1, Negative: neg, Neutral: 1 - neg - 0.1}, nil
	}
	return Distribution{Positive: 0.25, Negative: 0.25, Neutral: 0.5}, nil
}
