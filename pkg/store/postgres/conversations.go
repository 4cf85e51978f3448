package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/driftmap/driftmap/pkg/store"
)

// CreateConversation implements store.Store.
func (s *Store) CreateConversation(ctx context.Context, ownerID, title string) (store.Conversation, error) {
	const q = `
		INSERT INTO conversations (id, owner_id, title)
		VALUES ($1, $2, $3)
		RETURNING id, owner_id, title, sentiment, brain_wave, finalized, created_at, updated_at`

	row := s.pool.QueryRow(ctx, q, uuid.NewString(), ownerID, title)
	conv, err := scanConversation(row)
	if err != nil {
		return store.Conversation{}, fmt.Errorf("postgres store: create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation implements store.Store.
func (s *Store) GetConversation(ctx context.Context, id string) (store.Conversation, error) {
	const q = `
		SELECT id, owner_id, title, sentiment, brain_wave, finalized, created_at, updated_at
		FROM   conversations
		WHERE  id = $1`

	conv, err := scanConversation(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Conversation{}, store.ErrNotFound
	}
	if err != nil {
		return store.Conversation{}, fmt.Errorf("postgres store: get conversation: %w", err)
	}
	return conv, nil
}

// ListConversations implements store.Store.
func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]store.Conversation, error) {
	const q = `
		SELECT id, owner_id, title, sentiment, brain_wave, finalized, created_at, updated_at
		FROM   conversations
		WHERE  owner_id = $1
		ORDER  BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list conversations: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Conversation, error) {
		return scanConversation(row)
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan conversations: %w", err)
	}
	if out == nil {
		out = []store.Conversation{}
	}
	return out, nil
}

// DeleteConversation implements store.Store. Nodes and segments go with the
// conversation via ON DELETE CASCADE.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres store: delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendNode implements store.Store.
func (s *Store) AppendNode(ctx context.Context, rec store.NodeRecord) error {
	const q = `
		INSERT INTO conversation_nodes (id, conversation_id, label, branch_level, sequence_index)
		VALUES ($1, $2, $3, $4, $5)`

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, q, id, rec.ConversationID, rec.Label, rec.BranchLevel, rec.SequenceIndex)
	if err != nil {
		return fmt.Errorf("postgres store: append node: %w", err)
	}
	s.touch(ctx, rec.ConversationID)
	return nil
}

// ListNodes implements store.Store.
func (s *Store) ListNodes(ctx context.Context, conversationID string) ([]store.NodeRecord, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	const q = `
		SELECT id, conversation_id, label, branch_level, sequence_index, created_at
		FROM   conversation_nodes
		WHERE  conversation_id = $1
		ORDER  BY sequence_index`

	rows, err := s.pool.Query(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list nodes: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.NodeRecord, error) {
		var rec store.NodeRecord
		err := row.Scan(&rec.ID, &rec.ConversationID, &rec.Label, &rec.BranchLevel, &rec.SequenceIndex, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan nodes: %w", err)
	}
	if out == nil {
		out = []store.NodeRecord{}
	}
	return out, nil
}

// FinalizeConversation implements store.Store.
func (s *Store) FinalizeConversation(ctx context.Context, id, title string) error {
	const q = `
		UPDATE conversations
		SET    title = $2, finalized = TRUE, updated_at = now()
		WHERE  id = $1 AND finalized = FALSE`

	tag, err := s.pool.Exec(ctx, q, id, title)
	if err != nil {
		return fmt.Errorf("postgres store: finalize conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetConversation(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("postgres store: conversation %s already finalized", id)
	}
	return nil
}

// SetInsights implements store.Store.
func (s *Store) SetInsights(ctx context.Context, id, sentiment, brainWave string) error {
	const q = `
		UPDATE conversations
		SET    sentiment = $2, brain_wave = $3, updated_at = now()
		WHERE  id = $1`

	tag, err := s.pool.Exec(ctx, q, id, sentiment, brainWave)
	if err != nil {
		return fmt.Errorf("postgres store: set insights: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// touch bumps updated_at, best effort.
func (s *Store) touch(ctx context.Context, id string) {
	s.pool.Exec(ctx, `UPDATE conversations SET updated_at = now() WHERE id = $1`, id)
}

// scanConversation scans one conversations row.
func scanConversation(row pgx.Row) (store.Conversation, error) {
	var conv store.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.OwnerID,
		&conv.Title,
		&conv.Sentiment,
		&conv.BrainWave,
		&conv.Finalized,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	return conv, err
}
