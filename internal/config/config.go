// Package config provides the configuration schema, loader, and provider
// registry for the rostrum speech-grading service.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the rostrum binary.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration is a time.Duration that unmarshals from YAML strings like "90s"
// or "3m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"90s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for rostrum.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// ServerConfig holds the metrics listener and logging settings.
type ServerConfig struct {
	// MetricsAddr is the TCP address the Prometheus /metrics listener binds
	// to (e.g., ":9090"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation serves each pipeline
// stage. Each entry selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	// Judge is the scoring model.
	Judge ProviderEntry `yaml:"judge"`

	// JudgeFallbacks are tried in order when the judge fails or its circuit
	// breaker is open.
	JudgeFallbacks []ProviderEntry `yaml:"judge_fallbacks"`

	// Repair is the model used for the one-shot JSON repair pass. Empty
	// name disables model repair; local extraction still runs.
	Repair ProviderEntry `yaml:"repair"`

	// Transcription is the ordered fallback chain of transcription
	// backends. The first entry producing a non-empty transcript wins.
	Transcription []ProviderEntry `yaml:"transcription"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "openai", "gemini", "whisper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. The whisper
	// transcription provider requires it (the whisper-server address).
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "gpt-4o", "whisper-1", "gemini-2.0-flash").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// AnalysisConfig tunes the grading pipeline.
type AnalysisConfig struct {
	// MaxConcurrent bounds simultaneous analyses. Zero means the built-in
	// default.
	MaxConcurrent int `yaml:"max_concurrent"`

	// JudgeTimeout bounds the main scoring call.
	JudgeTimeout Duration `yaml:"judge_timeout"`

	// TranscribeTimeout bounds one transcription pass.
	TranscribeTimeout Duration `yaml:"transcribe_timeout"`

	// RepairTimeout bounds the format-only JSON repair call.
	RepairTimeout Duration `yaml:"repair_timeout"`

	// AttachAudio sends the recording to the judge as a multimodal
	// attachment. Enable only for judge models that accept audio input.
	AttachAudio bool `yaml:"attach_audio"`

	// Language is an optional BCP-47 hint passed to transcription backends.
	Language string `yaml:"language"`
}
