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

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"transcribe": {"openai", "whisper"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
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

	// Judge is the one mandatory provider: without it nothing can be scored.
	if cfg.Providers.Judge.Name == "" {
		errs = append(errs, errors.New("providers.judge.name is required"))
	}
	validateProviderName("llm", cfg.Providers.Judge.Name)
	validateProviderName("llm", cfg.Providers.Repair.Name)
	for i, entry := range cfg.Providers.JudgeFallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.judge_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("llm", entry.Name)
	}

	if cfg.Providers.Repair.Name == "" {
		slog.Warn("no repair provider configured; malformed judge output will only get local JSON recovery")
	}

	if len(cfg.Providers.Transcription) == 0 {
		slog.Warn("no transcription providers configured; only requests carrying a pre-supplied transcript will succeed")
	}
	for i, entry := range cfg.Providers.Transcription {
		prefix := fmt.Sprintf("providers.transcription[%d]", i)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName("transcribe", entry.Name)
		if entry.Name == "whisper" && entry.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for the whisper provider (whisper-server address)", prefix))
		}
		if entry.Name == "openai" && entry.APIKey == "" {
			slog.Warn("transcription provider has no api_key; relying on provider defaults",
				"entry", i, "name", entry.Name)
		}
	}

	// Analysis
	if cfg.Analysis.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("analysis.max_concurrent %d must not be negative", cfg.Analysis.MaxConcurrent))
	}
	for _, tc := range []struct {
		name string
		d    Duration
	}{
		{"analysis.judge_timeout", cfg.Analysis.JudgeTimeout},
		{"analysis.transcribe_timeout", cfg.Analysis.TranscribeTimeout},
		{"analysis.repair_timeout", cfg.Analysis.RepairTimeout},
	} {
		if tc.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", tc.name))
		}
	}

	if cfg.Analysis.AttachAudio && len(cfg.Providers.Transcription) == 0 {
		slog.Warn("analysis.attach_audio is set but no transcription provider is configured; audio-only requests will still fail without a transcript")
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
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
