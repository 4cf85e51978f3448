package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/driftmap/driftmap/internal/brainwave"
	"github.com/driftmap/driftmap/internal/graph"
	"github.com/driftmap/driftmap/internal/layout"
)

// handleListConversations serves GET /api/v1/conversations?owner=.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	convs, err := s.store.ListConversations(r.Context(), owner)
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

// handleListNodes serves GET /api/v1/conversations/{id}/nodes.
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListNodes(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// handleListSegments serves GET /api/v1/conversations/{id}/segments.
func (s *Server) handleListSegments(w http.ResponseWriter, r *http.Request) {
	segs, err := s.store.ListSegments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, segs)
}

// handleLayout serves GET /api/v1/conversations/{id}/layout. The persisted
// node sequence is replayed through the graph builder so the layout matches
// what the live session produced.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListNodes(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
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
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("stored sequence is invalid: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, layout.Compute(builder.Nodes()))
}

// brainwaveResponse is the per-band energy profile of a conversation.
type brainwaveResponse struct {
	// Band is the dominant band, empty while the session is still running.
	Band   string             `json:"band"`
	Scores map[string]float64 `json:"scores"`
}

// handleBrainwave serves GET /api/v1/conversations/{id}/brainwave.
func (s *Server) handleBrainwave(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, brainwaveResponse{
		Band:   conv.BrainWave,
		Scores: brainwave.ProfileFor(conv.BrainWave),
	})
}

// searchRequest is the body of POST /api/v1/search/segments.
type searchRequest struct {
	Owner string `json:"owner"`
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// handleSearchSegments embeds the query text and runs a semantic search over
// the owner's stored segments.
func (s *Server) handleSearchSegments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Owner == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "owner and query are required")
		return
	}
	if s.embedder == nil {
		writeError(w, http.StatusServiceUnavailable, "semantic search is not configured")
		return
	}

	vec, err := s.embedder.Embed(r.Context(), req.Query)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("embed query: %v", err))
		return
	}
	matches, err := s.store.SearchSegments(r.Context(), req.Owner, vec, req.Limit)
	if err != nil {
		writeError(w, storeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}
