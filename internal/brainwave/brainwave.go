// Package brainwave classifies a conversation transcript into the brain-wave
// band the dashboard renders as a heatmap: a playful proxy for conversational
// energy, not a medical signal.
//
// Like sentiment, the classification is one LLM completion with a
// deterministic heuristic fallback, attached to the stored conversation after
// the session ends.
package brainwave

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftmap/driftmap/pkg/provider/llm"
)

// Bands, from lowest to highest energy.
const (
	Delta = "delta"
	Theta = "theta"
	Alpha = "alpha"
	Beta  = "beta"
	Gamma = "gamma"
)

const systemPrompt = `You classify the energy of a conversation transcript as a brain-wave band.

delta: almost no content, long silences
theta: slow, meandering, reflective
alpha: calm and steady discussion
beta: engaged, focused back-and-forth
gamma: intense, rapid, high-energy exchange

Reply with exactly one word: delta, theta, alpha, beta, or gamma.`

// Classifier produces a band label for a transcript. A nil provider skips
// straight to the heuristic.
type Classifier struct {
	provider llm.Provider
}

// New returns a Classifier backed by provider. provider may be nil.
func New(provider llm.Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify returns a band for transcript. It never returns an error: LLM
// failures and unparseable replies degrade to the word-rate heuristic.
func (c *Classifier) Classify(ctx context.Context, transcript string) string {
	if c.provider != nil {
		band, err := c.complete(ctx, transcript)
		if err == nil {
			return band
		}
		slog.Warn("brain-wave classification fell back to heuristic", "error", err)
	}
	return Estimate(transcript)
}

func (c *Classifier) complete(ctx context.Context, transcript string) (string, error) {
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: transcript},
		},
		Temperature: 0.1,
		MaxTokens:   8,
	})
	if err != nil {
		return "", fmt.Errorf("brainwave: completion: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("brainwave: no response")
	}

	switch band := strings.ToLower(strings.TrimSpace(resp.Content)); band {
	case Delta, Theta, Alpha, Beta, Gamma:
		return band, nil
	default:
		return "", fmt.Errorf("brainwave: unparseable band %q", band)
	}
}

// Bands lists all band labels from lowest to highest energy. ProfileFor
// indexes into this order.
var Bands = []string{Delta, Theta, Alpha, Beta, Gamma}

// ProfileFor expands a dominant band into per-band scores for the heatmap.
// The dominant band scores 1.0 and the rest fall off with distance along the
// energy scale, so adjacent bands render warm and distant ones cold. Unknown
// bands return a flat zero profile.
func ProfileFor(dominant string) map[string]float64 {
	idx := -1
	for i, band := range Bands {
		if band == dominant {
			idx = i
			break
		}
	}

	profile := make(map[string]float64, len(Bands))
	for i, band := range Bands {
		if idx < 0 {
			profile[band] = 0
			continue
		}
		switch dist := abs(i - idx); dist {
		case 0:
			profile[band] = 1.0
		case 1:
			profile[band] = 0.5
		case 2:
			profile[band] = 0.2
		default:
			profile[band] = 0.1
		}
	}
	return profile
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Estimate is the deterministic fallback. It maps word count and punctuation
// density to a band: sparse transcripts score low, long ones with many
// questions and exclamations score high.
func Estimate(transcript string) string {
	words := len(strings.Fields(transcript))
	if words == 0 {
		return Delta
	}

	marks := strings.Count(transcript, "?") + strings.Count(transcript, "!")
	// One energetic mark per 20 words bumps the band.
	energetic := marks*20 >= words

	switch {
	case words < 20:
		return Theta
	case words < 200:
		if energetic {
			return Beta
		}
		return Alpha
	default:
		if energetic {
			return Gamma
		}
		return Beta
	}
}
