package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidCaptureProviders lists the capture provider names shipped with the
// binary. Used by [Validate] to warn about unrecognised names, which may be
// typos or externally registered providers.
var ValidCaptureProviders = []string{"typed", "mock", "gateway", "whisper"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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

	// Capture
	if cfg.Capture.Provider != "" && !slices.Contains(ValidCaptureProviders, cfg.Capture.Provider) {
		slog.Warn("unknown capture provider — may be a typo or an externally registered provider",
			"name", cfg.Capture.Provider,
			"known", ValidCaptureProviders,
		)
	}
	switch cfg.Capture.Provider {
	case "gateway", "whisper":
		if cfg.Capture.URL == "" {
			errs = append(errs, fmt.Errorf("capture.url is required when capture.provider is %q", cfg.Capture.Provider))
		}
	}

	// Parser weights: all non-negative, and not all zero when any is set.
	w := cfg.Parser.Weights
	if w.Intent < 0 || w.Entity < 0 || w.Capture < 0 {
		errs = append(errs, fmt.Errorf("parser.weights must be non-negative, got intent=%.2f entity=%.2f capture=%.2f", w.Intent, w.Entity, w.Capture))
	}

	// Ledger
	if cfg.Ledger.Backend != "" && !cfg.Ledger.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("ledger.backend %q is invalid; valid values: memory, sqlite, postgres", cfg.Ledger.Backend))
	}
	if cfg.Ledger.Backend == BackendPostgres && cfg.Ledger.DSN == "" {
		errs = append(errs, errors.New("ledger.dsn is required when ledger.backend is postgres"))
	}
	if cfg.Ledger.Backend == BackendSQLite && cfg.Ledger.Path == "" {
		errs = append(errs, errors.New("ledger.path is required when ledger.backend is sqlite"))
	}
	if cfg.Ledger.Retention < 0 {
		errs = append(errs, errors.New("ledger.retention must not be negative"))
	}
	if cfg.Ledger.Backend == BackendMemory && cfg.Ledger.TranscriptKey != "" {
		slog.Warn("ledger.transcript_key is set but the memory backend stores nothing at rest; the key is unused")
	}

	// Learned thresholds
	if t := cfg.Learned.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("learned.phonetic_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Learned.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("learned.fuzzy_threshold %.2f is out of range [0, 1]", t))
	}

	return errors.Join(errs...)
}
