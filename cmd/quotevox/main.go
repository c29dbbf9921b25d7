// Command quotevox is the main entry point for the QuoteVox voice quote
// server. It loads the configuration, wires the speech and LLM providers, and
// runs quote dialogues until interrupted. With --simulate it runs one
// dialogue on the console with mock speech providers instead.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/quotevox/quotevox/internal/app"
	"github.com/quotevox/quotevox/internal/config"
	"github.com/quotevox/quotevox/internal/dialog"
	"github.com/quotevox/quotevox/internal/observe"
	"github.com/quotevox/quotevox/internal/resilience"
	"github.com/quotevox/quotevox/pkg/provider/llm"
	"github.com/quotevox/quotevox/pkg/provider/llm/anyllm"
	"github.com/quotevox/quotevox/pkg/provider/stt"
	"github.com/quotevox/quotevox/pkg/provider/stt/deepgram"
	sttmock "github.com/quotevox/quotevox/pkg/provider/stt/mock"
	"github.com/quotevox/quotevox/pkg/provider/tts"
	"github.com/quotevox/quotevox/pkg/provider/tts/elevenlabs"
	ttsmock "github.com/quotevox/quotevox/pkg/provider/tts/mock"
	oaitts "github.com/quotevox/quotevox/pkg/provider/tts/openai"
	"github.com/quotevox/quotevox/pkg/types"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flowPath := flag.String("flow", "", "question flow YAML file, overriding the config's flow source")
	simulate := flag.Bool("simulate", false, "run one console dialogue with mock speech providers")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "quotevox: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "quotevox: %v\n", err)
		}
		return 1
	}
	if *flowPath != "" {
		cfg.Flow.File = *flowPath
		cfg.Flow.PostgresDSN = ""
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("quotevox starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise observability", "err", err)
		return 1
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	var (
		providers app.Providers
		consoleIn *sttmock.Session
		appOpts   []app.Option
		finished  = make(chan struct{})
	)
	if *simulate {
		// Console mocks replace every provider so a simulation needs no keys
		// and makes no network calls.
		consoleIn = sttmock.NewSession()
		providers.STT = &sttmock.Provider{Session: consoleIn}
		providers.TTS = consoleTTS()
		appOpts = append(appOpts,
			app.WithAnswerObserver(func(ans dialog.Answer) {
				fmt.Printf("  [%s = %s]\n", ans.QuestionID, ans.Text)
			}),
			app.WithManagerOptions(dialog.WithCompletionObserver(func(string) {
				close(finished)
			})),
		)
		slog.Info("simulation mode: speech providers replaced with console mocks")
	} else {
		providers, err = buildProviders(cfg, reg)
		if err != nil {
			slog.Error("failed to build providers", "err", err)
			return 1
		}
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, appOpts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	if *simulate {
		err = runSimulation(ctx, application, consoleIn, finished)
	} else {
		slog.Info("server ready — press Ctrl+C to shut down")
		err = application.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
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
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
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

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if endpoint := optString(entry.Options, "endpoint"); endpoint != "" {
			opts = append(opts, deepgram.WithEndpoint(endpoint))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("mock", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []oaitts.Option
		if entry.Model != "" {
			opts = append(opts, oaitts.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaitts.WithBaseURL(entry.BaseURL))
		}
		return oaitts.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("mock", func(config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{}, nil
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates the providers named in cfg using the registry.
// A named TTS fallback is assembled into a failover chain with the primary.
func buildProviders(cfg *config.Config, reg *config.Registry) (app.Providers, error) {
	var ps app.Providers

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return ps, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		ps.STT = p
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return ps, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)

		if fbName := cfg.Providers.TTSFallback.Name; fbName != "" {
			fb, err := reg.CreateTTS(cfg.Providers.TTSFallback)
			if err != nil {
				return ps, fmt.Errorf("create tts fallback provider %q: %w", fbName, err)
			}
			chain, err := tts.NewFailover(resilience.BreakerConfig{Name: "tts"},
				tts.FailoverEntry{Name: name, Provider: p},
				tts.FailoverEntry{Name: fbName, Provider: fb, Voice: fallbackVoice(cfg.Providers.TTSFallback)},
			)
			if err != nil {
				return ps, fmt.Errorf("assemble tts failover: %w", err)
			}
			ps.TTS = chain
			slog.Info("provider created", "kind", "tts_fallback", "name", fbName)
		}
	}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return ps, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		ps.LLM = p
		slog.Info("provider created", "kind", "llm", "name", name)
	}

	return ps, nil
}

// fallbackVoice builds the voice used when speech fails over. Voice IDs are
// provider-specific, so the fallback entry names its own under options.voice.
func fallbackVoice(entry config.ProviderEntry) types.VoiceProfile {
	id := optString(entry.Options, "voice")
	if id == "" {
		return types.VoiceProfile{}
	}
	return types.VoiceProfile{ID: id, Provider: entry.Name}
}

// ── Simulation mode ───────────────────────────────────────────────────────────

// consoleTTS prints prompts instead of synthesizing them.
func consoleTTS() tts.Provider {
	return &ttsmock.Provider{
		SpeakFunc: func(_ context.Context, text string, _ types.VoiceProfile) (<-chan tts.Event, error) {
			fmt.Printf("agent> %s\n", text)
			events := make(chan tts.Event, 2)
			events <- tts.Event{Kind: tts.EventStarted}
			events <- tts.Event{Kind: tts.EventEnded}
			close(events)
			return events, nil
		},
	}
}

// runSimulation drives one dialogue from stdin: every line is fed to the
// session as a final transcript. It returns when the flow completes, stdin
// closes, the caller types "quit", or ctx ends.
func runSimulation(ctx context.Context, application *app.App, in *sttmock.Session, finished <-chan struct{}) error {
	const sessionID = "console"
	if err := application.StartSession(ctx, sessionID); err != nil {
		return fmt.Errorf("start console session: %w", err)
	}
	fmt.Println(`Answer each question and press Enter; type "quit" to hang up.`)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-finished:
			fmt.Println("Conversation complete.")
			return nil

		case line, ok := <-lines:
			if !ok {
				return application.EndSession(sessionID)
			}
			text := strings.TrimSpace(line)
			if strings.EqualFold(text, "quit") {
				return application.EndSession(sessionID)
			}
			if text == "" {
				continue
			}
			in.ResultsCh <- types.Transcript{Text: text, IsFinal: true, Confidence: 1}
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         QuoteVox — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("TTS fallback", cfg.Providers.TTSFallback.Name, cfg.Providers.TTSFallback.Model)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printSummaryLine("Flow source", flowSource(cfg))
	if cfg.Journal.Path != "" {
		printSummaryLine("Journal", filepath.Base(cfg.Journal.Path))
	} else {
		printSummaryLine("Journal", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		printSummaryLine("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

// flowSource names where the question flow comes from.
func flowSource(cfg *config.Config) string {
	switch {
	case cfg.Flow.File != "":
		return "file: " + filepath.Base(cfg.Flow.File)
	case cfg.Flow.PostgresDSN != "":
		return "postgres: " + cfg.Flow.ID
	case cfg.Backend.BaseURL != "":
		return "backend: " + cfg.Flow.ID
	}
	return "(none)"
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printSummaryLine(kind, value)
}

func printSummaryLine(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
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
