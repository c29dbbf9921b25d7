// Package app wires all QuoteVox subsystems into a running application.
//
// The App struct owns the full lifecycle: New resolves the question flow,
// connects the quote backend, builds the dialog manager and the admin
// endpoints, Run serves until the context ends, and Shutdown tears everything
// down in reverse order.
//
// For testing, inject fakes via functional options (WithFlowStore,
// WithSubmitter, etc.). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quotevox/quotevox/internal/backend"
	"github.com/quotevox/quotevox/internal/config"
	"github.com/quotevox/quotevox/internal/dialog"
	"github.com/quotevox/quotevox/internal/health"
	"github.com/quotevox/quotevox/internal/interpret/llmassist"
	"github.com/quotevox/quotevox/internal/journal"
	"github.com/quotevox/quotevox/internal/observe"
	"github.com/quotevox/quotevox/internal/question"
	"github.com/quotevox/quotevox/pkg/provider/llm"
	"github.com/quotevox/quotevox/pkg/provider/stt"
	"github.com/quotevox/quotevox/pkg/provider/tts"
)

// shutdownGraceDefault bounds how long Shutdown waits for closers when the
// caller's context has no deadline.
const shutdownGraceDefault = 10 * time.Second

// Providers bundles the external providers the dialog layer runs on. STT and
// TTS are required; LLM is optional and enables free-text normalization.
type Providers struct {
	STT stt.Provider
	TTS tts.Provider
	LLM llm.Provider
}

// App is the assembled QuoteVox application.
type App struct {
	cfg       *config.Config
	providers Providers

	store     question.Store
	flow      *question.Flow
	client    *backend.Client
	source    question.OptionSource
	journal   *journal.FileJournal
	submitter dialog.Submitter
	manager   *dialog.Manager
	admin     *http.Server
	flowWatch *config.Watcher[*question.Flow]

	answerObs   []func(dialog.Answer)
	managerOpts []dialog.Option

	// closers run in reverse order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for configuring the App, mainly used to
// inject fakes in tests.
type Option func(*App)

// WithFlowStore injects the flow store, skipping the file, Postgres or
// backend source the config names. The flow is still resolved through the
// store using flow.id.
func WithFlowStore(s question.Store) Option {
	return func(a *App) { a.store = s }
}

// WithOptionSource injects the cascading option source, skipping the cached
// source New builds otherwise.
func WithOptionSource(src question.OptionSource) Option {
	return func(a *App) { a.source = src }
}

// WithSubmitter injects the answer submitter, replacing the backend client
// submitter New builds when a backend is configured.
func WithSubmitter(s dialog.Submitter) Option {
	return func(a *App) { a.submitter = s }
}

// WithAnswerObserver registers fn to receive every completed answer in
// addition to the journal. May be given multiple times.
func WithAnswerObserver(fn func(dialog.Answer)) Option {
	return func(a *App) { a.answerObs = append(a.answerObs, fn) }
}

// WithManagerOptions appends raw dialog manager options, applied after the
// ones derived from the config.
func WithManagerOptions(opts ...dialog.Option) Option {
	return func(a *App) { a.managerOpts = append(a.managerOpts, opts...) }
}

// New assembles the application from the config and providers. The context
// is used for initial flow resolution and option prefetching only.
func New(ctx context.Context, cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Answer journal ───────────────────────────────────────────────
	if cfg.Journal.Path != "" {
		a.journal = journal.New(cfg.Journal.Path)
	}

	// ── 2. Quote backend client ─────────────────────────────────────────
	if err := a.initBackend(); err != nil {
		return nil, fmt.Errorf("app: init backend: %w", err)
	}

	// ── 3. Flow store and flow ──────────────────────────────────────────
	if err := a.initFlow(ctx); err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: init flow: %w", err)
	}

	// ── 4. Cascading option source ──────────────────────────────────────
	a.initOptions(ctx)

	// ── 5. Dialog manager ───────────────────────────────────────────────
	if err := a.initManager(); err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: init dialog manager: %w", err)
	}

	// ── 6. Flow file watcher ────────────────────────────────────────────
	if err := a.initFlowWatch(); err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: init flow watcher: %w", err)
	}

	// ── 7. Admin endpoints (health + metrics) ───────────────────────────
	a.initAdmin()

	slog.Info("application assembled",
		"flow", a.flow.ID,
		"questions", len(a.flow.Questions),
		"backend", a.client != nil,
		"journal", a.journal != nil)
	return a, nil
}

// initBackend creates the quote backend client when one is configured.
func (a *App) initBackend() error {
	if a.cfg.Backend.BaseURL == "" {
		return nil
	}
	var opts []backend.Option
	if a.cfg.Backend.APIKey != "" {
		opts = append(opts, backend.WithAPIKey(a.cfg.Backend.APIKey))
	}
	client, err := backend.New(a.cfg.Backend.BaseURL, opts...)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

// initFlow resolves the question flow from the configured source: an
// injected store, a YAML file, a Postgres database, or the quote backend.
func (a *App) initFlow(ctx context.Context) error {
	switch {
	case a.store != nil:
		// Injected; resolve below.

	case a.cfg.Flow.File != "":
		flow, err := question.LoadFlowFile(a.cfg.Flow.File)
		if err != nil {
			return err
		}
		a.store = question.NewMemStore(flow)
		if a.cfg.Flow.ID != "" && a.cfg.Flow.ID != flow.ID {
			slog.Warn("flow.id does not match the flow file, using the file's ID",
				"configured", a.cfg.Flow.ID,
				"file", flow.ID)
		}
		a.flow = flow
		return nil

	case a.cfg.Flow.PostgresDSN != "":
		pool, err := pgxpool.New(ctx, a.cfg.Flow.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		store := question.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		a.store = store

	case a.client != nil:
		flow, err := a.client.FetchFlow(ctx, a.cfg.Flow.ID)
		if err != nil {
			return fmt.Errorf("fetch flow from backend: %w", err)
		}
		a.store = question.NewMemStore(flow)
		a.flow = flow
		return nil

	default:
		return errors.New("no flow source configured")
	}

	flow, err := a.store.Flow(ctx, a.cfg.Flow.ID)
	if err != nil {
		return fmt.Errorf("resolve flow %q: %w", a.cfg.Flow.ID, err)
	}
	a.flow = flow
	return nil
}

// initOptions builds the cascading option source: the backend when
// configured, the flow store otherwise, wrapped in a cache that is warmed
// for every parent value the flow already knows.
func (a *App) initOptions(ctx context.Context) {
	if a.source != nil {
		return
	}
	var base question.OptionSource = a.store
	if a.client != nil {
		base = a.client
	}
	cached := question.NewCachedSource(base)
	pre := question.NewPrefetcher(cached, a.cfg.Flow.PrefetchParallelism)
	if err := pre.Warm(ctx, a.flow); err != nil {
		slog.Warn("option prefetch incomplete", "error", err)
	}
	a.source = cached
}

// initManager builds the dialog manager from the dialog, voice and stream
// config sections.
func (a *App) initManager() error {
	machineCfg := dialog.Config{
		SilenceTimeout:    config.ParseDuration(a.cfg.Dialog.SilenceTimeout, 0),
		HoldReminderEvery: config.ParseDuration(a.cfg.Dialog.HoldReminderEvery, 0),
		MaxAttempts:       a.cfg.Dialog.MaxAttempts,
		HoldAnnouncement:  a.cfg.Dialog.HoldAnnouncement,
		HoldReminder:      a.cfg.Dialog.HoldReminder,
	}

	opts := []dialog.Option{
		dialog.WithMachineConfig(machineCfg),
		dialog.WithVoice(a.cfg.Voice.Profile()),
		dialog.WithStreamDefaults(stt.StreamConfig{
			SampleRate: a.cfg.Stream.SampleRate,
			Channels:   a.cfg.Stream.Channels,
			Language:   a.cfg.Stream.Language,
		}),
		dialog.WithOptionSource(a.source),
	}
	if d := config.ParseDuration(a.cfg.Dialog.TickInterval, 0); d > 0 {
		opts = append(opts, dialog.WithTickInterval(d))
	}
	if d := config.ParseDuration(a.cfg.Dialog.HoldTickInterval, 0); d > 0 {
		opts = append(opts, dialog.WithHoldTickInterval(d))
	}
	if a.cfg.Dialog.ClosingText != "" {
		opts = append(opts, dialog.WithClosingText(a.cfg.Dialog.ClosingText))
	}

	if a.submitter == nil && a.client != nil {
		a.submitter = backend.NewSubmitter(a.client)
	}
	if a.submitter != nil {
		opts = append(opts, dialog.WithSubmitter(a.submitter))
	}
	if a.providers.LLM != nil {
		opts = append(opts, dialog.WithNormalizer(llmassist.New(a.providers.LLM)))
	}
	if obs := a.composeAnswerObserver(); obs != nil {
		opts = append(opts, dialog.WithAnswerObserver(obs))
	}
	opts = append(opts, a.managerOpts...)

	mgr, err := dialog.New(a.flow, a.providers.STT, a.providers.TTS, opts...)
	if err != nil {
		return err
	}
	a.manager = mgr
	a.closers = append(a.closers, mgr.Close)
	return nil
}

// composeAnswerObserver fans completed answers out to the journal and every
// registered observer.
func (a *App) composeAnswerObserver() func(dialog.Answer) {
	var fns []func(dialog.Answer)
	if a.journal != nil {
		fns = append(fns, a.journal.Recorder())
	}
	fns = append(fns, a.answerObs...)

	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}
	return func(ans dialog.Answer) {
		for _, fn := range fns {
			fn(ans)
		}
	}
}

// initFlowWatch starts polling the flow file when flow.watch is set. A
// reloaded flow reaches sessions started after the reload; live sessions
// keep the flow they began with.
func (a *App) initFlowWatch() error {
	if !a.cfg.Flow.Watch {
		return nil
	}
	mem, ok := a.store.(*question.MemStore)
	if !ok {
		// Validation ties watching to a file source, but an injected store
		// can still land here.
		slog.Warn("flow watching disabled, store is not file-backed")
		return nil
	}

	var opts []config.WatcherOption
	if d := config.ParseDuration(a.cfg.Flow.WatchInterval, 0); d > 0 {
		opts = append(opts, config.WithInterval(d))
	}
	w, err := config.NewWatcher(a.cfg.Flow.File, parseFlow, func(_, updated *question.Flow) {
		mem.Put(updated)
		if err := a.manager.UpdateFlow(updated); err != nil {
			slog.Warn("reloaded flow rejected", "error", err)
		}
	}, opts...)
	if err != nil {
		return err
	}
	a.flowWatch = w
	a.closers = append(a.closers, func() error {
		w.Stop()
		return nil
	})
	return nil
}

// parseFlow adapts the flow YAML loader to the watcher's parse contract.
func parseFlow(data []byte) (*question.Flow, error) {
	return question.LoadFlowFromReader(bytes.NewReader(data))
}

// initAdmin builds the health and metrics endpoints. Without a listen
// address the App runs headless.
func (a *App) initAdmin() {
	if a.cfg.Server.ListenAddr == "" {
		slog.Warn("server.listen_addr is empty, health and metrics endpoints disabled")
		return
	}

	checkers := []health.Checker{health.FlowStoreChecker(a.store, a.flow.ID)}
	if a.client != nil {
		checkers = append(checkers, health.BackendChecker(a.client))
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	a.admin = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Manager returns the dialog manager for starting and ending sessions.
func (a *App) Manager() *dialog.Manager {
	return a.manager
}

// Flow returns the question flow the application resolved at startup.
func (a *App) Flow() *question.Flow {
	return a.flow
}

// Journal returns the answer journal, or nil when none is configured.
func (a *App) Journal() *journal.FileJournal {
	return a.journal
}

// StartSession begins a quote dialogue for the caller identified by id.
func (a *App) StartSession(ctx context.Context, id string) error {
	return a.manager.StartSession(ctx, id)
}

// EndSession tears down the session with the given ID.
func (a *App) EndSession(id string) error {
	return a.manager.EndSession(id)
}

// Run serves the admin endpoints until ctx is cancelled or the listener
// fails. The caller remains responsible for Shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	if a.admin != nil {
		go func() {
			slog.Info("admin endpoints listening", "addr", a.admin.Addr)
			if err := a.admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: admin listener: %w", err)
	}
}

// Shutdown stops the admin server, ends all sessions and releases resources.
// Safe to call multiple times; only the first call does the work.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if a.admin != nil {
			if err := a.admin.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("app: admin shutdown: %w", err))
			}
		}

		deadline, ok := ctx.Deadline()
		if !ok {
			deadline = time.Now().Add(shutdownGraceDefault)
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if time.Now().After(deadline) {
				errs = append(errs, errors.New("app: shutdown deadline exceeded, skipping remaining closers"))
				break
			}
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		slog.Info("shutdown complete")
	})
	return errors.Join(errs...)
}

// runClosers releases already-acquired resources when New fails midway.
func (a *App) runClosers() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("cleanup after failed init", "error", err)
		}
	}
}
