// Package classify decides whether a transcript chunk stayed on the
// conversation's main thread or drifted onto a side branch, and produces the
// short summary that labels the chunk's node.
//
// Three classifiers are provided: a remote collaborator service, an LLM
// prompt, and a local heuristic. The [Adapter] chains them with circuit
// breakers so a session always gets a verdict, degrading from remote to
// heuristic as backends fail.
package classify

import "context"

// Result is a classification verdict for one chunk.
type Result struct {
	// OnTrack is true when the chunk continues the conversation's main
	// thread, false when it drifts.
	OnTrack bool `json:"onTrack"`

	// Summary is a short label for the chunk, a handful of words.
	Summary string `json:"summary"`
}

// Classifier produces a verdict for a transcript chunk.
// previousSummary is the label of the most recent node, empty for the first
// chunk of a session.
type Classifier interface {
	Classify(ctx context.Context, chunk, previousSummary string) (Result, error)
}
