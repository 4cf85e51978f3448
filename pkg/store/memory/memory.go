// Package memory provides an in-memory [store.Store] used in tests and in
// deployments without a database. Contents are lost on restart.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftmap/driftmap/pkg/store"
)

// Store is an in-memory store.Store implementation.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]store.Conversation
	nodes         map[string][]store.NodeRecord
	segments      map[string][]store.Segment

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		conversations: make(map[string]store.Conversation),
		nodes:         make(map[string][]store.NodeRecord),
		segments:      make(map[string][]store.Segment),
		now:           time.Now,
	}
}

// CreateConversation implements store.Store.
func (s *Store) CreateConversation(_ context.Context, ownerID, title string) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := store.Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv
	return conv, nil
}

// GetConversation implements store.Store.
func (s *Store) GetConversation(_ context.Context, id string) (store.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return store.Conversation{}, store.ErrNotFound
	}
	return conv, nil
}

// ListConversations implements store.Store.
func (s *Store) ListConversations(_ context.Context, ownerID string) ([]store.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []store.Conversation{}
	for _, conv := range s.conversations {
		if conv.OwnerID == ownerID {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteConversation implements store.Store.
func (s *Store) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.nodes, id)
	delete(s.segments, id)
	return nil
}

// AppendNode implements store.Store.
func (s *Store) AppendNode(_ context.Context, rec store.NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[rec.ConversationID]; !ok {
		return store.ErrNotFound
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.nodes[rec.ConversationID] = append(s.nodes[rec.ConversationID], rec)
	s.touch(rec.ConversationID)
	return nil
}

// ListNodes implements store.Store.
func (s *Store) ListNodes(_ context.Context, conversationID string) ([]store.NodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, store.ErrNotFound
	}
	recs := s.nodes[conversationID]
	out := make([]store.NodeRecord, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceIndex < out[j].SequenceIndex })
	return out, nil
}

// FinalizeConversation implements store.Store.
func (s *Store) FinalizeConversation(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	if conv.Finalized {
		return fmt.Errorf("store: conversation %s already finalized", id)
	}
	conv.Title = title
	conv.Finalized = true
	conv.UpdatedAt = s.now()
	s.conversations[id] = conv
	return nil
}

// SetInsights implements store.Store.
func (s *Store) SetInsights(_ context.Context, id, sentiment, brainWave string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	conv.Sentiment = sentiment
	conv.BrainWave = brainWave
	conv.UpdatedAt = s.now()
	s.conversations[id] = conv
	return nil
}

// AppendSegment implements store.Store.
func (s *Store) AppendSegment(_ context.Context, seg store.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[seg.ConversationID]; !ok {
		return store.ErrNotFound
	}
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = s.now()
	}
	s.segments[seg.ConversationID] = append(s.segments[seg.ConversationID], seg)
	s.touch(seg.ConversationID)
	return nil
}

// ListSegments implements store.Store.
func (s *Store) ListSegments(_ context.Context, conversationID string) ([]store.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, store.ErrNotFound
	}
	segs := s.segments[conversationID]
	out := make([]store.Segment, len(segs))
	copy(out, segs)
	return out, nil
}

// UpdateSegmentSentiment implements store.Store.
func (s *Store) UpdateSegmentSentiment(_ context.Context, segmentID, sentiment, insight string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for convID, segs := range s.segments {
		for i := range segs {
			if segs[i].ID == segmentID {
				segs[i].Sentiment = sentiment
				segs[i].Insight = insight
				s.touch(convID)
				return nil
			}
		}
	}
	return fmt.Errorf("store: segment %s: %w", segmentID, store.ErrNotFound)
}

// SearchSegments implements store.Store using exact cosine similarity over
// all embedded segments. Fine for the in-memory scale this store targets.
func (s *Store) SearchSegments(_ context.Context, ownerID string, embedding []float32, limit int) ([]store.SegmentMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []store.SegmentMatch
	for convID, segs := range s.segments {
		conv, ok := s.conversations[convID]
		if !ok || conv.OwnerID != ownerID {
			continue
		}
		for _, seg := range segs {
			if len(seg.Embedding) == 0 {
				continue
			}
			sim, ok := cosine(embedding, seg.Embedding)
			if !ok {
				continue
			}
			matches = append(matches, store.SegmentMatch{Segment: seg, Similarity: sim})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Segment.ID < matches[j].Segment.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// touch bumps a conversation's UpdatedAt. Caller holds s.mu.
func (s *Store) touch(id string) {
	conv := s.conversations[id]
	conv.UpdatedAt = s.now()
	s.conversations[id] = conv
}

// cosine returns the cosine similarity of a and b. ok is false when the
// dimensions differ or either vector is zero.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
