// Package graph implements the conversation graph builder: an append-only
// sequence of classified conversation nodes with deterministic branch-level
// assignment.
//
// The builder is the sole mutator of a conversation's node sequence. Nodes
// are never updated or removed once appended; replaying a persisted sequence
// therefore reproduces exactly the state a live session would have built.
//
// All exported methods are safe for concurrent use.
package graph

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Node is a single entry in a conversation's append-only node sequence.
// All fields are immutable after creation.
type Node struct {
	// ID is an opaque unique identifier assigned at creation.
	ID string `json:"id"`

	// Label is the short summary text derived from the chunk classification.
	Label string `json:"label"`

	// BranchLevel is the node's column in the conversation map.
	// 0 is the main trunk; values ≥ 1 are branch columns.
	BranchLevel int `json:"branchLevel"`

	// SequenceIndex is the node's position in the sequence, monotonically
	// increasing from 0.
	SequenceIndex int `json:"sequenceIndex"`
}

// Builder accumulates a conversation's node sequence. Appends are serialised:
// at most one append proceeds at a time and each append observes the latest
// sequence tail, never a stale snapshot.
type Builder struct {
	mu    sync.Mutex
	nodes []Node
	newID func() string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{newID: uuid.NewString}
}

// Append creates a node for a classified chunk and appends it to the
// sequence, returning a copy of the new node.
//
// Branch-level rule:
//   - on-track chunks always land on the trunk (level 0);
//   - off-track chunks continue the previous node's branch when that node is
//     already on a branch, and open level 1 otherwise. Branches never nest
//     deeper when opened from the trunk.
func (b *Builder) Append(summary string, onTrack bool) Node {
	b.mu.Lock()
	defer b.mu.Unlock()

	level := 0
	if !onTrack {
		level = 1
		if n := len(b.nodes); n > 0 && b.nodes[n-1].BranchLevel > 0 {
			level = b.nodes[n-1].BranchLevel
		}
	}

	node := Node{
		ID:            b.newID(),
		Label:         summary,
		BranchLevel:   level,
		SequenceIndex: len(b.nodes),
	}
	b.nodes = append(b.nodes, node)
	return node
}

// Len returns the number of nodes in the sequence.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// Nodes returns a copy of the node sequence in append order.
func (b *Builder) Nodes() []Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Node, len(b.nodes))
	copy(out, b.nodes)
	return out
}

// Labels returns the labels of all nodes in append order.
func (b *Builder) Labels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.nodes))
	for i, n := range b.nodes {
		out[i] = n.Label
	}
	return out
}

// LastLabel returns the label of the most recently appended node.
// ok is false when the sequence is empty.
func (b *Builder) LastLabel() (label string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.nodes) == 0 {
		return "", false
	}
	return b.nodes[len(b.nodes)-1].Label, true
}

// Restore replaces the builder's sequence with a previously persisted,
// index-ordered node list. Nodes with empty IDs receive fresh ones.
//
// The sequence invariants are validated before assignment: indexes must be
// contiguous from 0 and the first node must sit on the trunk. Restoring is
// equivalent to having built the same sequence live; downstream layout output
// is identical either way.
func (b *Builder) Restore(nodes []Node) error {
	for i, n := range nodes {
		if n.SequenceIndex != i {
			return fmt.Errorf("graph: restore: node %d has sequence index %d", i, n.SequenceIndex)
		}
		if n.BranchLevel < 0 {
			return fmt.Errorf("graph: restore: node %d has negative branch level %d", i, n.BranchLevel)
		}
		if i == 0 && n.BranchLevel != 0 {
			return fmt.Errorf("graph: restore: first node must be on the trunk, got level %d", n.BranchLevel)
		}
	}

	restored := make([]Node, len(nodes))
	copy(restored, nodes)
	for i := range restored {
		if restored[i].ID == "" {
			restored[i].ID = uuid.NewString()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = restored
	return nil
}
