package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/driftmap/driftmap/internal/brainwave"
	"github.com/driftmap/driftmap/internal/observe"
	"github.com/driftmap/driftmap/internal/sentiment"
	"github.com/driftmap/driftmap/internal/vocab"
	"github.com/driftmap/driftmap/pkg/capture"
	"github.com/driftmap/driftmap/pkg/provider/embeddings"
	"github.com/driftmap/driftmap/pkg/store"
)

// Manager owns the live mapping sessions. Each owner has at most one active
// session at a time. All exported methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	deps sessionDeps
}

// ManagerConfig holds the dependencies shared by all sessions.
type ManagerConfig struct {
	// Classifier produces verdicts for flushed chunks. Required.
	Classifier Classifier

	// Corrector fixes misheard domain terms in final transcripts. Optional.
	Corrector *vocab.Corrector

	// Capture opens speech capture sessions. Nil runs sessions on directly
	// fed text only.
	Capture capture.Provider

	// CaptureConfig is passed to Capture for every new session.
	CaptureConfig capture.Config

	// Store persists conversations. Nil disables persistence.
	Store store.Store

	// Embedder embeds transcript segments for search. Optional.
	Embedder embeddings.Provider

	// Sentiment and Brainwave run the post-session transcript analyses.
	// Either may be nil; sessions then use the deterministic fallbacks.
	Sentiment *sentiment.Analyzer
	Brainwave *brainwave.Classifier

	// Metrics defaults to observe.DefaultMetrics.
	Metrics *observe.Metrics

	// ChunkInterval is the buffer flush period. Zero means the default 15s.
	ChunkInterval time.Duration
}

// NewManager creates a Manager with the given dependencies.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		deps: sessionDeps{
			classifier: cfg.Classifier,
			corrector:  cfg.Corrector,
			capture:    cfg.Capture,
			store:      cfg.Store,
			embedder:   cfg.Embedder,
			sentiments: cfg.Sentiment,
			waves:      cfg.Brainwave,
			metrics:    cfg.Metrics,
			captureCfg: cfg.CaptureConfig,
			interval:   cfg.ChunkInterval,
		},
	}
}

// Start begins a mapping session for ownerID. Returns an error when the owner
// already has an active session.
func (m *Manager) Start(ctx context.Context, ownerID string) (*Session, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("app: owner id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[ownerID]; ok {
		return nil, fmt.Errorf("app: owner %s already has an active session", ownerID)
	}

	sess := newSession(ownerID, m.deps)
	if err := sess.start(ctx); err != nil {
		return nil, err
	}
	m.sessions[ownerID] = sess
	return sess, nil
}

// SetChunkInterval changes the buffer flush period for sessions started after
// the call. Running sessions keep the interval they were started with. Values
// of zero or less are ignored.
func (m *Manager) SetChunkInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deps.interval = d
}

// Get returns the owner's active session.
func (m *Manager) Get(ownerID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[ownerID]
	return sess, ok
}

// Stop ends the owner's active session and returns the conversation title.
func (m *Manager) Stop(ctx context.Context, ownerID string) (string, error) {
	m.mu.Lock()
	sess, ok := m.sessions[ownerID]
	delete(m.sessions, ownerID)
	m.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("app: owner %s has no active session", ownerID)
	}
	return sess.Stop(ctx)
}

// StopAll ends every active session. Used during shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for owner, sess := range sessions {
		if _, err := sess.Stop(ctx); err != nil {
			slog.Warn("session stop during shutdown failed", "owner", owner, "error", err)
		}
	}
}

// Active returns the number of running sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
