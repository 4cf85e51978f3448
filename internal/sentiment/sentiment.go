// Package sentiment tags a whole conversation transcript with an overall
// sentiment label.
//
// The analysis is a single LLM completion with a deterministic lexicon
// fallback, so a finished session always gets a tag even with every backend
// down. Sentiment is attached to the stored conversation after the session
// ends and never influences the live map.
package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftmap/driftmap/pkg/provider/llm"
)

// Sentiment labels.
const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

const systemPrompt = `You rate the overall sentiment of a conversation transcript.

Reply with exactly one word: positive, neutral, or negative.`

const annotatePrompt = `You rate the sentiment of one transcript segment and explain it.

Reply on a single line in the form:
label | insight

where label is positive, neutral, or negative, and insight is one short
sentence about the speaker's mood or intent.`

// Lexicons for the fallback scorer. Coarse on purpose.
var (
	positiveWords = map[string]struct{}{
		"good": {}, "great": {}, "love": {}, "excellent": {}, "happy": {},
		"awesome": {}, "nice": {}, "wonderful": {}, "excited": {}, "perfect": {},
		"thanks": {}, "glad": {},
	}
	negativeWords = map[string]struct{}{
		"bad": {}, "terrible": {}, "hate": {}, "awful": {}, "angry": {},
		"sad": {}, "worried": {}, "problem": {}, "wrong": {}, "broken": {},
		"frustrated": {}, "annoying": {},
	}
)

// Analyzer produces a sentiment label for a transcript. A nil provider skips
// straight to the lexicon fallback.
type Analyzer struct {
	provider llm.Provider
}

// New returns an Analyzer backed by provider. provider may be nil.
func New(provider llm.Provider) *Analyzer {
	return &Analyzer{provider: provider}
}

// Analyze returns one of the sentiment labels for transcript. It never
// returns an error: LLM failures and unparseable replies degrade to the
// lexicon fallback.
func (a *Analyzer) Analyze(ctx context.Context, transcript string) string {
	if a.provider != nil {
		label, err := a.complete(ctx, transcript)
		if err == nil {
			return label
		}
		slog.Warn("sentiment analysis fell back to lexicon", "error", err)
	}
	return Score(transcript)
}

func (a *Analyzer) complete(ctx context.Context, transcript string) (string, error) {
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: transcript},
		},
		Temperature: 0.1,
		MaxTokens:   8,
	})
	if err != nil {
		return "", fmt.Errorf("sentiment: completion: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("sentiment: no response")
	}

	switch label := strings.ToLower(strings.TrimSpace(resp.Content)); label {
	case Positive, Neutral, Negative:
		return label, nil
	default:
		return "", fmt.Errorf("sentiment: unparseable label %q", label)
	}
}

// Annotate returns a sentiment label and a one-line insight for a single
// transcript segment. Like Analyze it never returns an error: on LLM failure
// the label comes from the lexicon and the insight is empty.
func (a *Analyzer) Annotate(ctx context.Context, text string) (label, insight string) {
	if a.provider != nil {
		label, insight, err := a.annotate(ctx, text)
		if err == nil {
			return label, insight
		}
		slog.Warn("segment annotation fell back to lexicon", "error", err)
	}
	return Score(text), ""
}

func (a *Analyzer) annotate(ctx context.Context, text string) (label, insight string, err error) {
	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: annotatePrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: text},
		},
		Temperature: 0.1,
		MaxTokens:   64,
	})
	if err != nil {
		return "", "", fmt.Errorf("sentiment: annotate: %w", err)
	}
	if resp == nil {
		return "", "", fmt.Errorf("sentiment: no response")
	}

	label, insight, _ = strings.Cut(resp.Content, "|")
	label = strings.ToLower(strings.TrimSpace(label))
	insight = strings.TrimSpace(insight)
	switch label {
	case Positive, Neutral, Negative:
		return label, insight, nil
	default:
		return "", "", fmt.Errorf("sentiment: unparseable label %q", label)
	}
}

// Score is the deterministic lexicon fallback: it counts positive and
// negative words and returns the dominant polarity, Neutral on a tie or when
// neither appears.
func Score(transcript string) string {
	var pos, neg int
	for _, raw := range strings.Fields(strings.ToLower(transcript)) {
		word := strings.Trim(raw, ".,!?;:'\"()")
		if _, ok := positiveWords[word]; ok {
			pos++
		}
		if _, ok := negativeWords[word]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return Positive
	case neg > pos:
		return Negative
	default:
		return Neutral
	}
}
