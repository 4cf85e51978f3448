// Package server wires all Driftmap subsystems into a running HTTP server.
//
// The Server struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context is cancelled, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithClassifier, etc.). When an option is not provided, New creates real
// implementations from the config.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftmap/driftmap/internal/app"
	"github.com/driftmap/driftmap/internal/brainwave"
	"github.com/driftmap/driftmap/internal/classify"
	"github.com/driftmap/driftmap/internal/config"
	"github.com/driftmap/driftmap/internal/health"
	"github.com/driftmap/driftmap/internal/httpapi"
	"github.com/driftmap/driftmap/internal/mcpserver"
	"github.com/driftmap/driftmap/internal/observe"
	"github.com/driftmap/driftmap/internal/resilience"
	"github.com/driftmap/driftmap/internal/sentiment"
	"github.com/driftmap/driftmap/internal/vocab"
	"github.com/driftmap/driftmap/pkg/capture"
	"github.com/driftmap/driftmap/pkg/capture/relay"
	"github.com/driftmap/driftmap/pkg/provider/embeddings"
	"github.com/driftmap/driftmap/pkg/provider/llm"
	"github.com/driftmap/driftmap/pkg/store"
	storemem "github.com/driftmap/driftmap/pkg/store/memory"
	storepg "github.com/driftmap/driftmap/pkg/store/postgres"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM llm.Provider

	// LLMFallback backs up LLM behind a circuit breaker. Ignored when LLM
	// is nil.
	LLMFallback llm.Provider

	Embeddings embeddings.Provider
	Capture    capture.Provider
}

// Server owns all subsystem lifetimes and serves the Driftmap HTTP surface.
type Server struct {
	cfg       *config.Config
	providers *Providers
	version   string

	// Subsystems, initialised in New, torn down in Shutdown.
	store      store.Store
	llm        llm.Provider
	classifier app.Classifier
	capture    capture.Provider
	manager    *app.Manager
	handler    http.Handler

	// closers are called in order during Shutdown.
	closers []func(ctx context.Context) error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*Server)

// WithStore injects a conversation store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithClassifier injects a chunk classifier instead of building the
// remote/LLM/heuristic chain from config.
func WithClassifier(c app.Classifier) Option {
	return func(srv *Server) { srv.classifier = c }
}

// WithCaptureProvider injects a capture provider instead of using the
// configured one.
func WithCaptureProvider(p capture.Provider) Option {
	return func(srv *Server) { srv.capture = p }
}

// WithVersion sets the version reported by telemetry and the MCP server.
func WithVersion(v string) Option {
	return func(srv *Server) { srv.version = v }
}

// New creates a Server by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*Server, error) {
	if providers == nil {
		providers = &Providers{}
	}
	srv := &Server{
		cfg:       cfg,
		providers: providers,
		version:   "dev",
	}
	for _, o := range opts {
		o(srv)
	}

	// Telemetry first so every later subsystem records against the real
	// meter provider.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "driftmap",
		ServiceVersion: srv.version,
	})
	if err != nil {
		return nil, fmt.Errorf("server: init telemetry: %w", err)
	}
	srv.closers = append(srv.closers, otelShutdown)

	healthChecks, err := srv.initStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("server: init store: %w", err)
	}

	srv.initLLM()
	srv.initClassifier()
	srv.initCapture()
	srv.initManager()

	srv.handler = srv.buildHandler(healthChecks)
	return srv, nil
}

// initStore sets up the PostgreSQL store, or falls back to the in-memory
// store when no DSN is configured. Returns the readiness checks to register.
func (s *Server) initStore(ctx context.Context) ([]health.Checker, error) {
	if s.store != nil {
		return nil, nil // injected
	}

	dsn := s.cfg.Store.PostgresDSN
	if dsn == "" {
		slog.Warn("no postgres_dsn configured, conversations will not survive restarts")
		s.store = storemem.New()
		return nil, nil
	}

	dims := s.cfg.Store.EmbeddingDimensions
	if dims <= 0 {
		dims = 1536 // matches OpenAI text-embedding-3-small
	}

	pg, err := storepg.New(ctx, dsn, dims)
	if err != nil {
		return nil, err
	}
	s.store = pg
	s.closers = append(s.closers, func(context.Context) error {
		pg.Close()
		return nil
	})
	return []health.Checker{health.Database(pg.Ping)}, nil
}

// initLLM picks the completion provider handed to classification, sentiment,
// and brain-wave analysis. A configured fallback provider wraps the primary in
// a breaker-guarded chain, same shape as the capture fallback.
func (s *Server) initLLM() {
	s.llm = s.providers.LLM
	if s.llm == nil || s.providers.LLMFallback == nil {
		return
	}
	primary := s.cfg.Providers.LLM.Name
	s.llm = resilience.NewLLMFallback(primary, s.providers.LLM, config.BreakerConfig{}.Resilience("llm-"+primary)).
		AddFallback(s.cfg.Providers.LLMFallback.Name, s.providers.LLMFallback)
}

// initClassifier builds the remote → LLM → heuristic chain. The adapter keeps
// the heuristic as the terminal fallback, so classification always succeeds.
func (s *Server) initClassifier() {
	if s.classifier != nil {
		return // injected
	}

	breaker := s.cfg.Classifier.Breaker
	var adapter *classify.Adapter
	switch {
	case s.cfg.Classifier.RemoteURL != "":
		remote := classify.NewRemote(s.cfg.Classifier.RemoteURL, s.cfg.Classifier.RemoteTimeout())
		adapter = classify.NewAdapter("remote", remote, breaker.Resilience("classifier-remote"))
		if s.llm != nil {
			adapter.AddFallback("llm", classify.NewLLM(s.llm))
		}
	case s.llm != nil:
		adapter = classify.NewAdapter("llm", classify.NewLLM(s.llm), breaker.Resilience("classifier-llm"))
	default:
		adapter = classify.NewAdapter("heuristic", classify.Heuristic{}, breaker.Resilience("classifier-heuristic"))
	}
	s.classifier = adapter
}

// initCapture picks the capture provider. A configured server-side backend is
// wrapped with a fallback to the browser relay so sessions keep working when
// the recognition service is down.
func (s *Server) initCapture() {
	if s.capture != nil {
		return // injected
	}

	p := s.providers.Capture
	if p == nil {
		s.capture = relay.New()
		return
	}

	name := s.cfg.Providers.Capture.Name
	if name == "" || name == "relay" {
		s.capture = p
		return
	}
	s.capture = resilience.NewCaptureFallback(name, p, config.BreakerConfig{}.Resilience("capture-"+name)).
		AddFallback("relay", relay.New())
}

// initManager assembles the session manager from the built subsystems.
func (s *Server) initManager() {
	var corrector *vocab.Corrector
	if len(s.cfg.Vocabulary.Keywords) > 0 {
		corrector = vocab.New(s.cfg.Vocabulary.Keywords)
	}

	s.manager = app.NewManager(app.ManagerConfig{
		Classifier: s.classifier,
		Corrector:  corrector,
		Capture:    s.capture,
		CaptureConfig: capture.Config{
			SampleRate: s.cfg.Capture.SampleRate,
			Language:   s.cfg.Capture.Language,
			Keywords:   s.cfg.Vocabulary.Keywords,
		},
		Store:         s.store,
		Embedder:      s.providers.Embeddings,
		Sentiment:     sentiment.New(s.llm),
		Brainwave:     brainwave.New(s.llm),
		Metrics:       observe.DefaultMetrics(),
		ChunkInterval: s.cfg.Session.ChunkInterval(),
	})
}

// buildHandler mounts the REST+WS API, the MCP endpoint, and the health
// probes on one mux.
func (s *Server) buildHandler(checks []health.Checker) http.Handler {
	api := httpapi.NewServer(httpapi.Config{
		Manager:  s.manager,
		Store:    s.store,
		Embedder: s.providers.Embeddings,
		Health:   health.New(s.version, checks...),
	})

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("/mcp", mcpserver.New(s.store, s.version).Handler())
	return mux
}

// Manager exposes the session manager, mainly for tests.
func (s *Server) Manager() *app.Manager {
	return s.manager
}

// Handler returns the fully assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves HTTP until ctx is cancelled, then drains sessions and shuts the
// listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := s.cfg.Server.TLS; tls != nil {
			slog.Info("listening", "addr", addr, "tls", true)
			err = httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			slog.Info("listening", "addr", addr)
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()

		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		// Finalize live conversations before closing the listener so
		// connected clients receive their stopped events.
		s.manager.StopAll(drainCtx)
		return httpSrv.Shutdown(drainCtx)
	})
	return g.Wait()
}

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(s.closers))

		s.manager.StopAll(ctx)

		for i, closer := range s.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(s.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
