// Command driftmapd is the main entry point for the Driftmap server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/driftmap/driftmap/internal/config"
	"github.com/driftmap/driftmap/internal/server"
	"github.com/driftmap/driftmap/pkg/capture"
	capdeepgram "github.com/driftmap/driftmap/pkg/capture/deepgram"
	"github.com/driftmap/driftmap/pkg/capture/relay"
	"github.com/driftmap/driftmap/pkg/provider/embeddings"
	ollamaembed "github.com/driftmap/driftmap/pkg/provider/embeddings/ollama"
	oaembed "github.com/driftmap/driftmap/pkg/provider/embeddings/openai"
	"github.com/driftmap/driftmap/pkg/provider/llm"
	"github.com/driftmap/driftmap/pkg/provider/llm/anyllm"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "driftmapd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "driftmapd: %v\n", err)
		}
		return 1
	}

	// The level var lets the config watcher adjust verbosity without restart.
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("driftmapd starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, providers, server.WithVersion(version))
	if err != nil {
		slog.Error("failed to initialise server", "err", err)
		return 1
	}

	// Watch the config file so hot-reloadable settings apply without restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config, d config.ConfigDiff) {
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.VocabularyChanged {
			slog.Info("vocabulary changed, new sessions pick up the updated keywords",
				"keywords", len(d.NewKeywords))
		}
		if d.ChunkIntervalChanged {
			interval := d.NewChunkInterval.ChunkInterval()
			srv.Manager().SetChunkInterval(interval)
			slog.Info("chunk interval changed, new sessions flush at the updated period",
				"interval", interval)
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// openai, anthropic, gemini, deepseek, mistral, and groq all share the
	// same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini", "deepseek", "mistral", "groq",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		return ollamaembed.New(entry.BaseURL, entry.Model)
	})

	reg.RegisterCapture("relay", func(config.ProviderEntry) (capture.Provider, error) {
		return relay.New(), nil
	})

	reg.RegisterCapture("deepgram", func(entry config.ProviderEntry) (capture.Provider, error) {
		var opts []capdeepgram.Option
		if entry.Model != "" {
			opts = append(opts, capdeepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, capdeepgram.WithEndpoint(entry.BaseURL))
		}
		return capdeepgram.New(entry.APIKey, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in a [server.Providers] struct for the server to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*server.Providers, error) {
	ps := &server.Providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		ps.LLM = p
		slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Providers.LLM.Model)
	}

	if name := cfg.Providers.LLMFallback.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLMFallback)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback provider %q: %w", name, err)
		}
		ps.LLMFallback = p
		slog.Info("provider created", "kind", "llm_fallback", "name", name, "model", cfg.Providers.LLMFallback.Model)
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		ps.Embeddings = p
		slog.Info("provider created", "kind", "embeddings", "name", name, "model", cfg.Providers.Embeddings.Model)
	}

	if name := cfg.Providers.Capture.Name; name != "" {
		p, err := reg.CreateCapture(cfg.Providers.Capture)
		if err != nil {
			return nil, fmt.Errorf("create capture provider %q: %w", name, err)
		}
		ps.Capture = p
		slog.Info("provider created", "kind", "capture", "name", name)
	}

	return ps, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
