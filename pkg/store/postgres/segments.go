package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/driftmap/driftmap/pkg/store"
)

// AppendSegment implements store.Store. Segments without an embedding are
// stored with a NULL vector and excluded from semantic search.
func (s *Store) AppendSegment(ctx context.Context, seg store.Segment) error {
	const q = `
		INSERT INTO transcript_segments (id, conversation_id, text, sentiment, insight, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`

	id := seg.ID
	if id == "" {
		id = uuid.NewString()
	}
	sentiment := seg.Sentiment
	if sentiment == "" {
		sentiment = "neutral"
	}
	var embedding any
	if len(seg.Embedding) > 0 {
		embedding = pgvector.NewVector(seg.Embedding)
	}

	_, err := s.pool.Exec(ctx, q, id, seg.ConversationID, seg.Text, sentiment, seg.Insight, embedding)
	if err != nil {
		return fmt.Errorf("postgres store: append segment: %w", err)
	}
	s.touch(ctx, seg.ConversationID)
	return nil
}

// ListSegments implements store.Store.
func (s *Store) ListSegments(ctx context.Context, conversationID string) ([]store.Segment, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	const q = `
		SELECT id, conversation_id, text, sentiment, insight, created_at
		FROM   transcript_segments
		WHERE  conversation_id = $1
		ORDER  BY created_at, id`

	rows, err := s.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list segments: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Segment, error) {
		var seg store.Segment
		err := row.Scan(&seg.ID, &seg.ConversationID, &seg.Text, &seg.Sentiment, &seg.Insight, &seg.CreatedAt)
		return seg, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan segments: %w", err)
	}
	if out == nil {
		out = []store.Segment{}
	}
	return out, nil
}

// SearchSegments implements store.Store using pgvector cosine distance over
// the HNSW index. Similarity is 1 - distance.
func (s *Store) SearchSegments(ctx context.Context, ownerID string, embedding []float32, limit int) ([]store.SegmentMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	const q = `
		SELECT seg.id, seg.conversation_id, seg.text, seg.sentiment, seg.insight, seg.created_at,
		       1 - (seg.embedding <=> $2) AS similarity
		FROM   transcript_segments seg
		JOIN   conversations conv ON conv.id = seg.conversation_id
		WHERE  conv.owner_id = $1
		  AND  seg.embedding IS NOT NULL
		ORDER  BY seg.embedding <=> $2
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, ownerID, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: search segments: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.SegmentMatch, error) {
		var m store.SegmentMatch
		err := row.Scan(
			&m.Segment.ID,
			&m.Segment.ConversationID,
			&m.Segment.Text,
			&m.Segment.Sentiment,
			&m.Segment.Insight,
			&m.Segment.CreatedAt,
			&m.Similarity,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan matches: %w", err)
	}
	if out == nil {
		out = []store.SegmentMatch{}
	}
	return out, nil
}

// UpdateSegmentSentiment implements store.Store.
func (s *Store) UpdateSegmentSentiment(ctx context.Context, segmentID, sentiment, insight string) error {
	const q = `
		UPDATE transcript_segments
		SET    sentiment = $2, insight = $3
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, segmentID, sentiment, insight)
	if err != nil {
		return fmt.Errorf("postgres store: update segment sentiment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres store: segment %s: %w", segmentID, store.ErrNotFound)
	}
	return nil
}
