package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    id          TEXT         PRIMARY KEY,
    owner_id    TEXT         NOT NULL,
    title       TEXT         NOT NULL,
    sentiment   TEXT         NOT NULL DEFAULT '',
    brain_wave  TEXT         NOT NULL DEFAULT '',
    finalized   BOOLEAN      NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_owner
    ON conversations (owner_id, created_at DESC);
`

const ddlConversationNodes = `
CREATE TABLE IF NOT EXISTS conversation_nodes (
    id               TEXT         PRIMARY KEY,
    conversation_id  TEXT         NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    label            TEXT         NOT NULL,
    branch_level     INT          NOT NULL,
    sequence_index   INT          NOT NULL,
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    UNIQUE (conversation_id, sequence_index)
);

CREATE INDEX IF NOT EXISTS idx_nodes_conversation
    ON conversation_nodes (conversation_id, sequence_index);
`

// ddlSegments returns the transcript segment DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlSegments(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS transcript_segments (
    id               TEXT         PRIMARY KEY,
    conversation_id  TEXT         NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
    text             TEXT         NOT NULL,
    sentiment        TEXT         NOT NULL DEFAULT 'neutral',
    insight          TEXT         NOT NULL DEFAULT '',
    embedding        vector(%d),
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_segments_conversation
    ON transcript_segments (conversation_id, created_at);

CREATE INDEX IF NOT EXISTS idx_segments_embedding
    ON transcript_segments USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables and extensions exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlConversations,
		ddlConversationNodes,
		ddlSegments(embeddingDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
