// Command rostrum grades a recorded impromptu speech and prints the analysis
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rostrum-ai/rostrum/internal/analysis"
	"github.com/rostrum-ai/rostrum/internal/config"
	"github.com/rostrum-ai/rostrum/internal/health"
	"github.com/rostrum-ai/rostrum/internal/observe"
	"github.com/rostrum-ai/rostrum/internal/resilience"
	"github.com/rostrum-ai/rostrum/pkg/provider/llm"
	"github.com/rostrum-ai/rostrum/pkg/provider/llm/anyllm"
	oaillm "github.com/rostrum-ai/rostrum/pkg/provider/llm/openai"
	"github.com/rostrum-ai/rostrum/pkg/provider/transcribe"
	oaitranscribe "github.com/rostrum-ai/rostrum/pkg/provider/transcribe/openai"
	"github.com/rostrum-ai/rostrum/pkg/provider/transcribe/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	audioPath := flag.String("audio", "", "path to the recorded speech (wav, mp3, m4a, webm, ogg)")
	transcriptPath := flag.String("transcript", "", "path to a pre-made transcript; skips transcription")
	theme := flag.String("theme", "", "assigned speech theme")
	quote := flag.String("quote", "", "prompt quote the speaker drew, if any")
	duration := flag.Duration("duration", 0, "measured speech duration (e.g. 5m30s)")
	chunksGlob := flag.String("chunks", "", "glob of pre-split audio segments (e.g. 'speech-*.wav') used to re-transcribe a recording whose single-pass transcript looks truncated")
	flag.Parse()

	if *audioPath == "" && *transcriptPath == "" {
		fmt.Fprintln(os.Stderr, "rostrum: either -audio or -transcript is required")
		return 1
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "rostrum: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "rostrum: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	slog.Info("rostrum starting",
		"config", *configPath,
		"judge", cfg.Providers.Judge.Name,
		"transcription_chain", len(cfg.Providers.Transcription),
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "rostrum",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metricsSrv := startMetricsListener(cfg, cfg.Server.MetricsAddr)
	if metricsSrv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	judge, err := buildJudge(cfg, reg)
	if err != nil {
		slog.Error("failed to create judge provider", "err", err)
		return 1
	}
	slog.Info("provider created", "kind", "judge", "name", cfg.Providers.Judge.Name, "model", cfg.Providers.Judge.Model)

	var repair llm.Provider
	if cfg.Providers.Repair.Name != "" {
		repair, err = reg.CreateLLM(cfg.Providers.Repair)
		if err != nil {
			slog.Error("failed to create repair provider", "name", cfg.Providers.Repair.Name, "err", err)
			return 1
		}
		slog.Info("provider created", "kind", "repair", "name", cfg.Providers.Repair.Name, "model", cfg.Providers.Repair.Model)
	}

	chain, err := reg.BuildTranscriptionChain(cfg.Providers.Transcription)
	if err != nil {
		slog.Error("failed to build transcription chain", "err", err)
		return 1
	}

	// ── Analysis service ──────────────────────────────────────────────────────
	svc := analysis.New(judge, repair, chain, serviceOptions(cfg)...)

	req, err := buildRequest(cfg, *audioPath, *transcriptPath, *chunksGlob, *theme, *quote, *duration)
	if err != nil {
		slog.Error("failed to read input", "err", err)
		return 1
	}

	// ── Run ───────────────────────────────────────────────────────────────────
	res, err := svc.Analyze(ctx, req)
	if err != nil {
		slog.Error("analysis aborted", "err", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		slog.Error("failed to encode result", "err", err)
		return 1
	}

	if !res.Success {
		slog.Error("analysis failed", "type", res.ErrorDetails.Type, "message", res.ErrorDetails.Message)
		return 2
	}
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	// The native openai provider supports audio attachments on the judge
	// call, so "openai" does not go through any-llm.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile share
	// the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
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

	// ── Transcription ─────────────────────────────────────────────────────────

	reg.RegisterTranscriber("openai", func(entry config.ProviderEntry) (transcribe.Transcriber, error) {
		var opts []oaitranscribe.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaitranscribe.WithBaseURL(entry.BaseURL))
		}
		return oaitranscribe.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterTranscriber("whisper", func(entry config.ProviderEntry) (transcribe.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})
}

// serviceOptions translates the config's analysis block into service options.
func serviceOptions(cfg *config.Config) []analysis.Option {
	var opts []analysis.Option
	a := cfg.Analysis
	if a.MaxConcurrent > 0 {
		opts = append(opts, analysis.WithMaxConcurrent(int64(a.MaxConcurrent)))
	}
	if a.JudgeTimeout > 0 {
		opts = append(opts, analysis.WithJudgeTimeout(a.JudgeTimeout.Std()))
	}
	if a.TranscribeTimeout > 0 {
		opts = append(opts, analysis.WithTranscribeTimeout(a.TranscribeTimeout.Std()))
	}
	if a.RepairTimeout > 0 {
		opts = append(opts, analysis.WithRepairTimeout(a.RepairTimeout.Std()))
	}
	if a.AttachAudio {
		opts = append(opts, analysis.WithAudioAttachment(true))
	}
	return opts
}

// buildRequest reads the audio or transcript file into an analysis request.
func buildRequest(cfg *config.Config, audioPath, transcriptPath, chunksGlob, theme, quote string, duration time.Duration) (analysis.Request, error) {
	req := analysis.Request{
		Theme:    theme,
		Quote:    quote,
		Duration: duration,
		Language: cfg.Analysis.Language,
	}

	if transcriptPath != "" {
		data, err := os.ReadFile(transcriptPath)
		if err != nil {
			return req, fmt.Errorf("read transcript %q: %w", transcriptPath, err)
		}
		req.Transcript = strings.TrimSpace(string(data))
	}

	if audioPath != "" {
		data, err := os.ReadFile(audioPath)
		if err != nil {
			return req, fmt.Errorf("read audio %q: %w", audioPath, err)
		}
		req.Audio = data
		req.AudioMIMEType = mimeForPath(audioPath)
	}

	if chunksGlob != "" {
		chunks, err := loadChunks(chunksGlob)
		if err != nil {
			return req, err
		}
		req.AudioChunks = chunks
	}

	if duration <= 0 {
		slog.Warn("no -duration given; length penalties and pacing stats assume zero duration")
	}
	return req, nil
}

// loadChunks reads the audio segments matching the glob in lexical order,
// so a naming scheme like speech-00.wav, speech-01.wav keeps them sequential.
func loadChunks(glob string) ([][]byte, error) {
	paths, err := filepath.Glob(glob)
	if err != nil {
		return nil, fmt.Errorf("bad -chunks pattern %q: %w", glob, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("-chunks pattern %q matched no files", glob)
	}
	sort.Strings(paths)

	chunks := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read chunk %q: %w", p, err)
		}
		chunks = append(chunks, data)
	}
	return chunks, nil
}

// mimeForPath maps a recording's file extension to its MIME type.
func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mp3"
	case ".m4a", ".mp4":
		return "audio/m4a"
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}

// buildJudge creates the judge provider, wrapped in a circuit-breaking
// fallback group when judge_fallbacks is configured.
func buildJudge(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	primary, err := reg.CreateLLM(cfg.Providers.Judge)
	if err != nil {
		return nil, fmt.Errorf("judge %q: %w", cfg.Providers.Judge.Name, err)
	}
	if len(cfg.Providers.JudgeFallbacks) == 0 {
		return primary, nil
	}

	fb := resilience.NewJudgeFallback(primary, cfg.Providers.Judge.Name, resilience.FallbackConfig{})
	for i, entry := range cfg.Providers.JudgeFallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("judge_fallbacks[%d] %q: %w", i, entry.Name, err)
		}
		fb.AddFallback(entry.Name, p)
		slog.Info("provider created", "kind", "judge-fallback", "name", entry.Name, "model", entry.Model)
	}
	return fb, nil
}

// ── Metrics listener ──────────────────────────────────────────────────────────

// startMetricsListener serves Prometheus metrics plus health probes on addr.
// Returns nil when addr is empty.
func startMetricsListener(cfg *config.Config, addr string) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(
		health.Checker{Name: "judge", Check: func(context.Context) error {
			if cfg.Providers.Judge.Name == "" {
				return errors.New("no judge provider configured")
			}
			return nil
		}},
		health.Checker{Name: "transcription", Check: func(context.Context) error {
			if len(cfg.Providers.Transcription) == 0 {
				return errors.New("no transcription providers configured")
			}
			return nil
		}},
	).Register(mux)

	srv := &http.Server{
		Addr:    addr,
		Handler: observe.Middleware(observe.DefaultMetrics())(mux),
	}
	go func() {
		slog.Info("metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics listener error", "err", err)
		}
	}()
	return srv
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
