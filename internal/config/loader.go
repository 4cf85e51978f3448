package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"embeddings": {"openai", "ollama"},
	"capture":    {"relay", "deepgram"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Session
	if cfg.Session.ChunkIntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("session.chunk_interval_seconds %d must not be negative", cfg.Session.ChunkIntervalSeconds))
	}

	// Classifier
	if cfg.Classifier.RemoteTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("classifier.remote_timeout_seconds %d must not be negative", cfg.Classifier.RemoteTimeoutSeconds))
	}
	if cfg.Classifier.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("classifier.breaker.max_failures %d must not be negative", cfg.Classifier.Breaker.MaxFailures))
	}

	// Capture
	if cfg.Capture.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must not be negative", cfg.Capture.SampleRate))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("llm", cfg.Providers.LLMFallback.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("capture", cfg.Providers.Capture.Name)

	// A fallback without a primary has nothing to fall back from.
	if cfg.Providers.LLMFallback.Name != "" && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallback requires providers.llm to be set"))
	}

	// Classifier availability warnings
	if cfg.Classifier.RemoteURL == "" && cfg.Providers.LLM.Name == "" {
		slog.Warn("no remote classifier or LLM provider configured; chunk classification will rely on the keyword heuristic")
	}

	// Server-side recognition needs credentials.
	if cfg.Providers.Capture.Name == "deepgram" && cfg.Providers.Capture.APIKey == "" {
		errs = append(errs, errors.New("providers.capture.api_key is required when capture provider is deepgram"))
	}

	// Embeddings ↔ store dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Store.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but store.embedding_dimensions is not set; defaulting to 1536")
	}

	// Store availability
	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; conversation maps will be kept in memory only")
	}

	// Vocabulary duplicate keyword detection (case-insensitive).
	keywordsSeen := make(map[string]int, len(cfg.Vocabulary.Keywords))
	for i, kw := range cfg.Vocabulary.Keywords {
		if strings.TrimSpace(kw) == "" {
			errs = append(errs, fmt.Errorf("vocabulary.keywords[%d] is empty", i))
			continue
		}
		folded := strings.ToLower(kw)
		if prev, ok := keywordsSeen[folded]; ok {
			errs = append(errs, fmt.Errorf("vocabulary.keywords[%d] %q is a duplicate of vocabulary.keywords[%d]", i, kw, prev))
			continue
		}
		keywordsSeen[folded] = i
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
