package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"deepgram", "mock"},
	"tts": {"elevenlabs", "openai", "mock"},
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
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

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("tts", cfg.Providers.TTSFallback.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)

	if cfg.Providers.TTSFallback.Name != "" && cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts_fallback requires providers.tts"))
	}

	// Provider availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no stt provider configured; live audio sessions will not be available")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no tts provider configured; prompts will not be voiced")
	}

	// Flow source
	if cfg.Flow.File != "" && cfg.Flow.PostgresDSN != "" {
		errs = append(errs, errors.New("flow.file and flow.postgres_dsn are mutually exclusive"))
	}
	if cfg.Flow.File == "" && cfg.Flow.PostgresDSN == "" && cfg.Backend.BaseURL == "" {
		errs = append(errs, errors.New("no flow source configured: set flow.file, flow.postgres_dsn, or backend.base_url"))
	}
	if cfg.Flow.File == "" && cfg.Flow.ID == "" && (cfg.Flow.PostgresDSN != "" || cfg.Backend.BaseURL != "") {
		errs = append(errs, errors.New("flow.id is required when the flow is loaded from postgres or the backend"))
	}
	if cfg.Flow.Watch && cfg.Flow.File == "" {
		errs = append(errs, errors.New("flow.watch requires flow.file"))
	}
	if cfg.Flow.PrefetchParallelism < 0 {
		errs = append(errs, fmt.Errorf("flow.prefetch_parallelism %d must not be negative", cfg.Flow.PrefetchParallelism))
	}
	errs = appendDurationErr(errs, "flow.watch_interval", cfg.Flow.WatchInterval)

	// Backend
	if cfg.Backend.APIKey != "" && cfg.Backend.BaseURL == "" {
		slog.Warn("backend.api_key is set but backend.base_url is empty; answers will not be submitted")
	}

	// Dialog
	if cfg.Dialog.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("dialog.max_attempts %d must not be negative", cfg.Dialog.MaxAttempts))
	}
	errs = appendDurationErr(errs, "dialog.silence_timeout", cfg.Dialog.SilenceTimeout)
	errs = appendDurationErr(errs, "dialog.hold_reminder_every", cfg.Dialog.HoldReminderEvery)
	errs = appendDurationErr(errs, "dialog.tick_interval", cfg.Dialog.TickInterval)
	errs = appendDurationErr(errs, "dialog.hold_tick_interval", cfg.Dialog.HoldTickInterval)

	// Voice
	if cfg.Voice.SpeedFactor != 0 {
		if cfg.Voice.SpeedFactor < 0.5 || cfg.Voice.SpeedFactor > 2.0 {
			errs = append(errs, fmt.Errorf("voice.speed_factor %.2f is out of range [0.5, 2.0]", cfg.Voice.SpeedFactor))
		}
	}

	// Voice provider ↔ TTS provider cross-validation
	if cfg.Voice.Provider != "" && cfg.Providers.TTS.Name != "" &&
		cfg.Voice.Provider != cfg.Providers.TTS.Name && cfg.Voice.Provider != cfg.Providers.TTSFallback.Name {
		slog.Warn("voice provider does not match any configured TTS provider",
			"voice_provider", cfg.Voice.Provider,
			"tts_provider", cfg.Providers.TTS.Name,
		)
	}

	// Stream
	if cfg.Stream.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("stream.sample_rate %d must not be negative", cfg.Stream.SampleRate))
	}
	if cfg.Stream.Channels < 0 || cfg.Stream.Channels > 2 {
		errs = append(errs, fmt.Errorf("stream.channels %d is out of range [0, 2]", cfg.Stream.Channels))
	}

	return errors.Join(errs...)
}

// appendDurationErr appends an error to errs when value is a non-empty string
// that does not parse as a positive Go duration.
func appendDurationErr(errs []error, field, value string) []error {
	if value == "" {
		return errs
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, fmt.Errorf("%s %q is not a valid duration: %w", field, value, err))
	}
	if d <= 0 {
		return append(errs, fmt.Errorf("%s %q must be positive", field, value))
	}
	return errs
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
