// Package mcpserver exposes stored conversation maps to MCP clients over the
// streamable HTTP transport. Two read-only tools are served: one to list a
// user's conversations and one to fetch a conversation's node sequence with
// its computed layout.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/driftmap/driftmap/internal/graph"
	"github.com/driftmap/driftmap/internal/layout"
	"github.com/driftmap/driftmap/pkg/store"
)

const serverName = "driftmap"

// Server wraps an MCP server over a conversation store.
type Server struct {
	store store.Store
	mcp   *mcp.Server
}

// New creates a Server with both tools registered.
func New(st store.Store, version string) *Server {
	s := &Server{store: st}

	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_conversations",
		Description: "List a user's mapped conversations, newest first.",
	}, s.listConversations)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_conversation_map",
		Description: "Fetch one conversation's node sequence and its 2D map layout.",
	}, s.getConversationMap)

	s.mcp = srv
	return s
}

// Handler returns the streamable HTTP handler, mounted at /mcp.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
}

type listConversationsArgs struct {
	Owner string `json:"owner" jsonschema:"owner id whose conversations to list"`
}

type conversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Sentiment string    `json:"sentiment,omitempty"`
	BrainWave string    `json:"brainWave,omitempty"`
	Finalized bool      `json:"finalized"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listConversationsPayload struct {
	Conversations []conversationSummary `json:"conversations"`
}

func (s *Server) listConversations(ctx context.Context, _ *mcp.CallToolRequest, args listConversationsArgs) (*mcp.CallToolResult, listConversationsPayload, error) {
	if args.Owner == "" {
		return nil, listConversationsPayload{}, fmt.Errorf("owner is required")
	}
	convs, err := s.store.ListConversations(ctx, args.Owner)
	if err != nil {
		return nil, listConversationsPayload{}, fmt.Errorf("list conversations: %w", err)
	}

	payload := listConversationsPayload{Conversations: make([]conversationSummary, len(convs))}
	for i, conv := range convs {
		payload.Conversations[i] = conversationSummary{
			ID:        conv.ID,
			Title:     conv.Title,
			Sentiment: conv.Sentiment,
			BrainWave: conv.BrainWave,
			Finalized: conv.Finalized,
			UpdatedAt: conv.UpdatedAt,
		}
	}
	return nil, payload, nil
}

type getConversationMapArgs struct {
	ConversationID string `json:"conversationId" jsonschema:"id of the conversation to fetch"`
}

type getConversationMapPayload struct {
	Title  string        `json:"title"`
	Nodes  []graph.Node  `json:"nodes"`
	Layout layout.Result `json:"layout"`
}

func (s *Server) getConversationMap(ctx context.Context, _ *mcp.CallToolRequest, args getConversationMapArgs) (*mcp.CallToolResult, getConversationMapPayload, error) {
	if args.ConversationID == "" {
		return nil, getConversationMapPayload{}, fmt.Errorf("conversationId is required")
	}
	conv, err := s.store.GetConversation(ctx, args.ConversationID)
	if err != nil {
		return nil, getConversationMapPayload{}, fmt.Errorf("get conversation: %w", err)
	}
	recs, err := s.store.ListNodes(ctx, args.ConversationID)
	if err != nil {
		return nil, getConversationMapPayload{}, fmt.Errorf("list nodes: %w", err)
	}

	nodes := make([]graph.Node, len(recs))
	for i, rec := range recs {
		nodes[i] = graph.Node{
			ID:            rec.ID,
			Label:         rec.Label,
			BranchLevel:   rec.BranchLevel,
			SequenceIndex: rec.SequenceIndex,
		}
	}
	builder := graph.NewBuilder()
	if err := builder.Restore(nodes); err != nil {
		return nil, getConversationMapPayload{}, fmt.Errorf("restore sequence: %w", err)
	}

	return nil, getConversationMapPayload{
		Title:  conv.Title,
		Nodes:  builder.Nodes(),
		Layout: layout.Compute(builder.Nodes()),
	}, nil
}
