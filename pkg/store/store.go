// Package store defines the persistence interface for conversations, their
// node sequences, and transcript segments.
//
// The in-memory graph built during a live session is authoritative; the store
// is a write-behind record used for listing, replay, and cross-conversation
// search. Implementations must be safe for concurrent use.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("store: conversation not found")

// Conversation is the stored header of one mapped conversation.
type Conversation struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`

	// Title starts as a provisional timestamp title and is replaced once
	// when the session finalizes.
	Title string `json:"title"`

	// Sentiment and BrainWave are whole-transcript analyses attached after
	// the session ends. Empty until then.
	Sentiment string `json:"sentiment,omitempty"`
	BrainWave string `json:"brainWave,omitempty"`

	Finalized bool      `json:"finalized"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NodeRecord is the persisted form of a conversation map node.
type NodeRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Label          string    `json:"label"`
	BranchLevel    int       `json:"branchLevel"`
	SequenceIndex  int       `json:"sequenceIndex"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Segment is one finalized transcript span, optionally carrying a sentiment
// tag, a short insight, and an embedding for semantic search.
type Segment struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Text           string    `json:"text"`
	Sentiment      string    `json:"sentiment,omitempty"`
	Insight        string    `json:"insight,omitempty"`
	Embedding      []float32 `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SegmentMatch is a semantic search hit.
type SegmentMatch struct {
	Segment Segment `json:"segment"`

	// Similarity is cosine similarity in [-1, 1]; higher is closer.
	Similarity float64 `json:"similarity"`
}

// Store is the persistence collaborator.
type Store interface {
	// CreateConversation inserts a conversation with a provisional title and
	// returns it. Conversations are created lazily, when a session's first
	// node is about to be appended.
	CreateConversation(ctx context.Context, ownerID, title string) (Conversation, error)

	// GetConversation returns the conversation header for id.
	GetConversation(ctx context.Context, id string) (Conversation, error)

	// ListConversations returns all conversations owned by ownerID, newest
	// first.
	ListConversations(ctx context.Context, ownerID string) ([]Conversation, error)

	// DeleteConversation removes a conversation with its nodes and segments.
	DeleteConversation(ctx context.Context, id string) error

	// AppendNode persists one node of a conversation's sequence.
	AppendNode(ctx context.Context, rec NodeRecord) error

	// ListNodes returns a conversation's nodes in sequence order.
	ListNodes(ctx context.Context, conversationID string) ([]NodeRecord, error)

	// FinalizeConversation sets the conversation's final title and marks it
	// finalized. Finalizing twice is an error for the second caller.
	FinalizeConversation(ctx context.Context, id, title string) error

	// SetInsights attaches whole-transcript sentiment and brain-wave tags.
	SetInsights(ctx context.Context, id, sentiment, brainWave string) error

	// AppendSegment persists one transcript segment.
	AppendSegment(ctx context.Context, seg Segment) error

	// ListSegments returns a conversation's segments in creation order.
	ListSegments(ctx context.Context, conversationID string) ([]Segment, error)

	// UpdateSegmentSentiment replaces a segment's sentiment tag and insight.
	// Segments start out neutral; the async tagging worker calls this.
	UpdateSegmentSentiment(ctx context.Context, segmentID, sentiment, insight string) error

	// SearchSegments returns up to limit segments closest to the query
	// embedding across all of ownerID's conversations, best match first.
	SearchSegments(ctx context.Context, ownerID string, embedding []float32, limit int) ([]SegmentMatch, error)
}
