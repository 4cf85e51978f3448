package classify

import (
	"context"
	"strings"
	"unicode"
)

// driftCues mark a chunk as off-track when any of them occurs anywhere in the
// lowercased text. Deliberately coarse: the heuristic is the last line of
// defence when no smarter classifier is reachable, and a false branch is
// cheaper than a stalled session.
var driftCues = []string{"but", "however", "anyway", "side", "off", "tangent"}

// summaryTokenLimit caps the fallback summary length.
const summaryTokenLimit = 4

// emptySummary labels a chunk that yields no usable tokens.
const emptySummary = "No content"

// Heuristic is a local, dependency-free classifier. It never returns an
// error, which makes it the terminal entry of a failover chain.
type Heuristic struct{}

var _ Classifier = Heuristic{}

// Classify marks the chunk off-track when it contains a drift cue and labels
// it with a truncated token summary.
func (Heuristic) Classify(_ context.Context, chunk, _ string) (Result, error) {
	return Result{
		OnTrack: !containsDriftCue(chunk),
		Summary: Summarize(chunk),
	}, nil
}

func containsDriftCue(chunk string) bool {
	lower := strings.ToLower(chunk)
	for _, cue := range driftCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// Summarize derives a fallback label from a chunk: the first four whitespace
// tokens that still hold anything after non-alphanumeric runes are stripped,
// joined with single spaces. Tokens that strip to nothing do not count against
// the limit; a chunk with no usable tokens yields "No content".
func Summarize(chunk string) string {
	var kept []string
	for _, raw := range strings.Fields(chunk) {
		tok := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, raw)
		if tok == "" {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == summaryTokenLimit {
			break
		}
	}
	if len(kept) == 0 {
		return emptySummary
	}
	return strings.Join(kept, " ")
}
