package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftmap/driftmap/pkg/provider/llm"
)

const classifySystemPrompt = `You decide whether a spoken conversation chunk continues its current topic or drifts onto a tangent.

Reply with exactly one line in the form:
VERDICT | summary

where VERDICT is ON_TRACK or OFF_TRACK, and summary is a label for the chunk of at most four words. No other text.`

// LLM classifies chunks with a single-turn completion. Responses that do not
// parse are returned as errors so the failover chain can degrade to the
// heuristic.
type LLM struct {
	provider    llm.Provider
	temperature float64
}

var _ Classifier = (*LLM)(nil)

// NewLLM creates an LLM classifier on top of provider.
func NewLLM(provider llm.Provider) *LLM {
	return &LLM{provider: provider, temperature: 0.2}
}

// Classify implements Classifier.
func (c *LLM) Classify(ctx context.Context, chunk, previousSummary string) (Result, error) {
	var prompt strings.Builder
	if previousSummary != "" {
		fmt.Fprintf(&prompt, "Current topic: %s\n\n", previousSummary)
	}
	fmt.Fprintf(&prompt, "Chunk: %s", chunk)

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: classifySystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt.String()},
		},
		Temperature: c.temperature,
		MaxTokens:   64,
	})
	if err != nil {
		return Result{}, fmt.Errorf("classify: llm completion: %w", err)
	}
	if resp == nil {
		return Result{}, fmt.Errorf("classify: llm returned no response")
	}

	return parseVerdict(resp.Content, chunk)
}

// parseVerdict extracts "VERDICT | summary" from a model reply. The summary
// part is optional; when absent the local token summary of the chunk is used.
func parseVerdict(content, chunk string) (Result, error) {
	line := strings.TrimSpace(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	verdict, summary, _ := strings.Cut(line, "|")
	var onTrack bool
	switch strings.ToUpper(strings.TrimSpace(verdict)) {
	case "ON_TRACK":
		onTrack = true
	case "OFF_TRACK":
		onTrack = false
	default:
		return Result{}, fmt.Errorf("classify: unparseable llm verdict %q", line)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = Summarize(chunk)
	}
	return Result{OnTrack: onTrack, Summary: summary}, nil
}
