// Package dialog runs quote conversations. A Session pairs a transcript
// interpreter with a prompt escalation machine for one caller; the Manager
// wires sessions to the speech providers and the answer submitter, and
// drives the timers behind silence re-prompts and hold reminders.
//
// All events for one session — transcripts, timer ticks, speech lifecycle —
// flow through a single goroutine, so the session and machine types need no
// locking of their own. Input is always applied before any pending silence
// tick, which keeps a stale re-prompt from firing after the caller has
// already answered.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/quotevox/quotevox/internal/interpret"
	"github.com/quotevox/quotevox/internal/observe"
	"github.com/quotevox/quotevox/internal/question"
	"github.com/quotevox/quotevox/pkg/provider/stt"
	"github.com/quotevox/quotevox/pkg/provider/tts"
	"github.com/quotevox/quotevox/pkg/types"
)

// Default manager parameters.
const (
	defaultTickInterval     = time.Second
	defaultHoldTickInterval = 5 * time.Second
	defaultClosingText      = "Thank you, that is everything we need. We will be in touch with your quote shortly. Goodbye."

	// speakQueueDepth bounds how many utterances may wait for synthesis.
	speakQueueDepth = 16

	labelKeywordBoost = 3.0
	aliasKeywordBoost = 2.0
)

// ErrSessionExists is returned when starting a session whose ID is live.
var ErrSessionExists = errors.New("dialog: session already exists")

// ErrSessionNotFound is returned when ending an unknown session.
var ErrSessionNotFound = errors.New("dialog: session not found")

// Submitter delivers completed answers to the quote backend.
type Submitter interface {
	SubmitAnswer(ctx context.Context, ans Answer) error
}

// Manager owns the live sessions of one question flow. It starts a
// recognizer stream per session, voices prompts through the speech
// synthesizer, pushes each question's option vocabulary to the recognizer as
// keyword boosts, and hands completed answers to the submitter.
type Manager struct {
	flow  *question.Flow
	sttP  stt.Provider
	ttsP  tts.Provider
	voice types.VoiceProfile

	submitter  Submitter
	optionSrc  question.OptionSource
	normalizer interpret.Normalizer

	machineCfg       Config
	streamBase       stt.StreamConfig
	tickInterval     time.Duration
	holdTickInterval time.Duration
	closingText      string

	onAnswer   func(Answer)
	onReminder func(sessionID, text string)
	onComplete func(sessionID string)
	onBuffer   func(sessionID, buffer string)

	metrics *observe.Metrics

	mu       sync.Mutex
	sessions map[string]*liveSession
	closed   bool

	// wg tracks the per-session goroutines so Close can wait for them.
	wg sync.WaitGroup
}

// liveSession bundles one session with its recognizer stream and the
// channels its event loop runs on. The flow position, answer map and speech
// queue accounting are touched only from that loop.
type liveSession struct {
	sess   *Session
	handle stt.SessionHandle

	// flow is pinned at start so a mid-conversation flow update cannot shift
	// this session's question order.
	flow *question.Flow

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan sessionEvent
	speakCh chan string

	index    int
	answers  map[string]string
	queued   int
	finished bool
}

// sessionEvent carries a speech lifecycle update into a session's event
// loop.
type sessionEvent struct {
	ttsEvent *tts.Event

	// spoken reports that one queued utterance finished, fully played or
	// failed.
	spoken bool
}

// Option is a functional option for configuring a Manager.
type Option func(*Manager)

// WithSubmitter sets the backend that receives completed answers. Without
// one, answers are only handed to the answer observer.
func WithSubmitter(s Submitter) Option {
	return func(m *Manager) { m.submitter = s }
}

// WithOptionSource sets where cascading option lists are fetched from when a
// question declares a parent. Without one, questions keep their own lists.
func WithOptionSource(src question.OptionSource) Option {
	return func(m *Manager) { m.optionSrc = src }
}

// WithVoice sets the synthesis voice used for all prompts.
func WithVoice(v types.VoiceProfile) Option {
	return func(m *Manager) { m.voice = v }
}

// WithNormalizer enables LLM-backed tidying of free-text answers in every
// session's interpreter.
func WithNormalizer(n interpret.Normalizer) Option {
	return func(m *Manager) { m.normalizer = n }
}

// WithMachineConfig sets the escalation timing for new sessions.
func WithMachineConfig(cfg Config) Option {
	return func(m *Manager) { m.machineCfg = cfg }
}

// WithStreamDefaults sets the recognizer stream parameters. The keyword list
// is replaced per question and need not be populated.
func WithStreamDefaults(cfg stt.StreamConfig) Option {
	return func(m *Manager) { m.streamBase = cfg }
}

// WithTickInterval sets how often each session's silence clock is evaluated.
// Defaults to 1s.
func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) { m.tickInterval = d }
}

// WithHoldTickInterval sets how often each session's hold reminder clock is
// evaluated. Defaults to 5s.
func WithHoldTickInterval(d time.Duration) Option {
	return func(m *Manager) { m.holdTickInterval = d }
}

// WithClosingText overrides the line voiced after the last answer.
func WithClosingText(text string) Option {
	return func(m *Manager) { m.closingText = text }
}

// WithAnswerObserver registers fn to receive every completed answer, before
// submission. Used for journaling and the console simulator.
func WithAnswerObserver(fn func(Answer)) Option {
	return func(m *Manager) { m.onAnswer = fn }
}

// WithReminderObserver registers fn to receive hold reminders. Reminders are
// not voiced; surfacing them is the owner's choice.
func WithReminderObserver(fn func(sessionID, text string)) Option {
	return func(m *Manager) { m.onReminder = fn }
}

// WithCompletionObserver registers fn to be called when a session has voiced
// its closing line after the final answer.
func WithCompletionObserver(fn func(sessionID string)) Option {
	return func(m *Manager) { m.onComplete = fn }
}

// WithSpellingObserver registers fn to receive the spelling buffer after
// every mutation, for echoing progress back to the caller.
func WithSpellingObserver(fn func(sessionID, buffer string)) Option {
	return func(m *Manager) { m.onBuffer = fn }
}

// New creates a Manager for the given flow and speech providers.
func New(flow *question.Flow, sttP stt.Provider, ttsP tts.Provider, opts ...Option) (*Manager, error) {
	if flow == nil || len(flow.Questions) == 0 {
		return nil, errors.New("dialog: flow has no questions")
	}
	if sttP == nil {
		return nil, errors.New("dialog: stt provider is required")
	}
	if ttsP == nil {
		return nil, errors.New("dialog: tts provider is required")
	}
	m := &Manager{
		flow:             flow,
		sttP:             sttP,
		ttsP:             ttsP,
		tickInterval:     defaultTickInterval,
		holdTickInterval: defaultHoldTickInterval,
		closingText:      defaultClosingText,
		metrics:          observe.DefaultMetrics(),
		sessions:         make(map[string]*liveSession),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// StartSession opens a recognizer stream and begins the flow's first
// question for the caller identified by id. The session lives until the flow
// completes, the stream ends, EndSession is called, or ctx is cancelled.
func (m *Manager) StartSession(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("dialog: session id is required")
	}

	flow := m.currentFlow()
	q := &flow.Questions[0]
	streamCfg := m.streamBase
	streamCfg.Keywords = KeywordsFor(q, q.Options)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("dialog: manager closed")
	}
	if _, dup := m.sessions[id]; dup {
		m.mu.Unlock()
		return fmt.Errorf("dialog: start session %q: %w", id, ErrSessionExists)
	}
	m.mu.Unlock()

	handle, err := m.sttP.Start(ctx, streamCfg)
	if err != nil {
		return fmt.Errorf("dialog: start transcript stream: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	ls := &liveSession{
		sess:    NewSession(id, m.newInterpreter(id), NewMachine(m.machineCfg)),
		handle:  handle,
		flow:    flow,
		ctx:     sctx,
		cancel:  cancel,
		events:  make(chan sessionEvent, 32),
		speakCh: make(chan string, speakQueueDepth),
		answers: make(map[string]string),
	}

	m.mu.Lock()
	if _, dup := m.sessions[id]; dup {
		m.mu.Unlock()
		cancel()
		_ = handle.Close()
		return fmt.Errorf("dialog: start session %q: %w", id, ErrSessionExists)
	}
	m.sessions[id] = ls
	m.mu.Unlock()

	m.metrics.ActiveSessions.Add(sctx, 1)
	slog.Info("session started",
		"session", id,
		"flow", flow.ID,
		"first_question", q.ID)

	// Ask the first question before any events can arrive.
	m.applyEffects(ls, ls.sess.Activate(q, nil))

	m.wg.Add(2)
	go m.speakLoop(ls)
	go m.runSession(ls)
	return nil
}

// EndSession tears down the session with the given ID.
func (m *Manager) EndSession(id string) error {
	m.mu.Lock()
	ls, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("dialog: end session %q: %w", id, ErrSessionNotFound)
	}
	ls.cancel()
	return nil
}

// UpdateFlow replaces the flow handed to sessions started from now on. Live
// sessions keep the flow they started with. The new flow must pass the same
// checks as New.
func (m *Manager) UpdateFlow(flow *question.Flow) error {
	if flow == nil || len(flow.Questions) == 0 {
		return errors.New("dialog: flow has no questions")
	}
	m.mu.Lock()
	m.flow = flow
	m.mu.Unlock()
	slog.Info("flow updated", "flow", flow.ID, "questions", len(flow.Questions))
	return nil
}

// currentFlow returns the flow new sessions start with.
func (m *Manager) currentFlow() *question.Flow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flow
}

// Close tears down all sessions and waits for their loops to finish. Safe to
// call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*liveSession, 0, len(m.sessions))
	for _, ls := range m.sessions {
		sessions = append(sessions, ls)
	}
	m.mu.Unlock()

	for _, ls := range sessions {
		ls.cancel()
	}
	m.wg.Wait()
	return nil
}

// newInterpreter builds the per-session interpreter, binding the spelling
// observer to the session ID.
func (m *Manager) newInterpreter(id string) *interpret.Interpreter {
	var opts []interpret.Option
	if m.normalizer != nil {
		opts = append(opts, interpret.WithNormalizer(m.normalizer))
	}
	if m.onBuffer != nil {
		opts = append(opts, interpret.WithSpellingObserver(func(buffer string) {
			m.onBuffer(id, buffer)
		}))
	}
	return interpret.New(opts...)
}

// ─── Per-session event loop ─────────────────────────────────────────────────

// runSession is the single goroutine that mutates one session's state. Every
// transcript, tick and speech lifecycle event passes through its select.
func (m *Manager) runSession(ls *liveSession) {
	defer m.wg.Done()
	defer m.teardown(ls)

	silence := time.NewTicker(m.tickInterval)
	defer silence.Stop()
	hold := time.NewTicker(m.holdTickInterval)
	defer hold.Stop()

	for {
		select {
		case <-ls.ctx.Done():
			return

		case tr, ok := <-ls.handle.Results():
			if !ok {
				slog.Info("transcript stream closed", "session", ls.sess.ID())
				return
			}
			m.onTranscript(ls, tr)

		case <-silence.C:
			effects := ls.sess.Tick(time.Now())
			for _, e := range effects {
				if e.Kind == EffectSay {
					m.metrics.RecordEscalation(ls.ctx, "reprompt")
					slog.Info("re-asking after silence",
						"session", ls.sess.ID(),
						"question", ls.sess.Question().ID,
						"variant", e.VariantIndex)
				}
			}
			m.applyEffects(ls, effects)

		case <-hold.C:
			m.applyEffects(ls, ls.sess.HoldTick(time.Now()))

		case evt := <-ls.events:
			m.onEvent(ls, evt)
		}
	}
}

// onTranscript interprets one recognizer result and, when it completes an
// answer, submits it and advances the flow.
func (m *Manager) onTranscript(ls *liveSession, tr types.Transcript) {
	q := ls.sess.Question()
	start := time.Now()
	ans, effects := ls.sess.HandleTranscript(ls.ctx, tr)
	if tr.IsFinal && q != nil {
		outcome := "none"
		if ans != nil {
			outcome = string(ans.Source)
		}
		m.metrics.RecordInterpretation(ls.ctx, string(q.InputType), outcome, time.Since(start).Seconds())
	}
	m.applyEffects(ls, effects)
	if ans == nil {
		return
	}

	m.metrics.RecordAnswer(ls.ctx, string(ans.Source))
	slog.Info("answer completed",
		"session", ans.SessionID,
		"question", ans.QuestionID,
		"source", ans.Source,
		"confidence", ans.Confidence)
	if m.onAnswer != nil {
		m.onAnswer(*ans)
	}

	if m.submitter != nil {
		if err := m.submitter.SubmitAnswer(ls.ctx, *ans); err != nil {
			// No retries here: stay on the question and let the silence
			// escalation re-ask, so the caller can answer again.
			slog.Error("answer submission failed, staying on question",
				"session", ans.SessionID,
				"question", ans.QuestionID,
				"error", err)
			return
		}
	}

	ls.answers[ans.QuestionID] = ans.Text
	m.advance(ls)
}

// advance moves the session to the next question, or voices the closing line
// when the flow is done.
func (m *Manager) advance(ls *liveSession) {
	ls.index++
	if ls.index >= len(ls.flow.Questions) {
		ls.finished = true
		m.enqueueSpeak(ls, m.closingText)
		slog.Info("dialogue complete", "session", ls.sess.ID(), "answers", len(ls.answers))
		return
	}

	q := &ls.flow.Questions[ls.index]
	opts := m.optionsFor(ls, q)
	m.applyEffects(ls, ls.sess.Activate(q, opts))
	m.updateKeywords(ls, q, opts)
}

// optionsFor fetches the cascading option list for q, or nil to keep the
// question's own list.
func (m *Manager) optionsFor(ls *liveSession, q *question.Question) []types.AnswerOption {
	if q.ParentID == "" || m.optionSrc == nil {
		return nil
	}
	parentValue := ls.answers[q.ParentID]
	opts, err := m.optionSrc.OptionsFor(ls.ctx, q.ID, parentValue)
	if err != nil {
		slog.Warn("cascading options unavailable, keeping the question's own list",
			"session", ls.sess.ID(),
			"question", q.ID,
			"parent_value", parentValue,
			"error", err)
		return nil
	}
	return opts
}

// updateKeywords pushes the new question's vocabulary to the recognizer.
// Streams that fix keywords at connect time are left alone.
func (m *Manager) updateKeywords(ls *liveSession, q *question.Question, opts []types.AnswerOption) {
	if opts == nil {
		opts = q.Options
	}
	kws := KeywordsFor(q, opts)
	if len(kws) == 0 {
		return
	}
	err := ls.handle.SetKeywords(kws)
	switch {
	case errors.Is(err, stt.ErrNotSupported):
		slog.Debug("recognizer does not take live keyword updates", "session", ls.sess.ID())
	case err != nil:
		slog.Warn("keyword boost update failed", "session", ls.sess.ID(), "error", err)
	}
}

// onEvent handles speech lifecycle events and speech queue accounting.
func (m *Manager) onEvent(ls *liveSession, evt sessionEvent) {
	switch {
	case evt.ttsEvent != nil:
		switch evt.ttsEvent.Kind {
		case tts.EventStarted:
			ls.sess.SpeakStarted()
		case tts.EventEnded:
			ls.sess.SpeakEnded()
		case tts.EventError:
			slog.Error("speech synthesis error",
				"session", ls.sess.ID(),
				"error", evt.ttsEvent.Err)
			m.metrics.RecordProviderError(ls.ctx, m.voice.Provider, "tts")
			// Keep the silence clock moving after a failed prompt.
			ls.sess.SpeakEnded()
		}

	case evt.spoken:
		ls.queued--
		if ls.finished && ls.queued <= 0 {
			if m.onComplete != nil {
				m.onComplete(ls.sess.ID())
			}
			ls.cancel()
		}
	}
}

// applyEffects performs machine effects: utterances are queued for
// synthesis, reminders go to the reminder observer.
func (m *Manager) applyEffects(ls *liveSession, effects []Effect) {
	for _, e := range effects {
		switch e.Kind {
		case EffectSay:
			m.enqueueSpeak(ls, e.Utterance)

		case EffectHoldAnnounced:
			m.metrics.RecordEscalation(ls.ctx, "hold")
			slog.Warn("caller unresponsive, putting conversation on hold",
				"session", ls.sess.ID(),
				"question", ls.sess.Question().ID)
			m.enqueueSpeak(ls, e.Utterance)

		case EffectReminder:
			m.metrics.RecordEscalation(ls.ctx, "reminder")
			if m.onReminder != nil {
				m.onReminder(ls.sess.ID(), e.Utterance)
			}

		case EffectResumed:
			m.metrics.RecordEscalation(ls.ctx, "resume")
			slog.Info("caller resumed from hold", "session", ls.sess.ID())
		}
	}
}

// enqueueSpeak hands an utterance to the speech loop without blocking the
// event loop.
func (m *Manager) enqueueSpeak(ls *liveSession, text string) {
	ls.queued++
	select {
	case ls.speakCh <- text:
	default:
		ls.queued--
		slog.Warn("speech queue full, dropping utterance", "session", ls.sess.ID())
	}
}

// ─── Speech synthesis ───────────────────────────────────────────────────────

// speakLoop voices queued utterances one at a time so prompts never overlap.
func (m *Manager) speakLoop(ls *liveSession) {
	defer m.wg.Done()
	for {
		select {
		case <-ls.ctx.Done():
			return
		case text := <-ls.speakCh:
			m.speak(ls, text)
		}
	}
}

// speak synthesizes one utterance and forwards its lifecycle events into the
// session's event loop.
func (m *Manager) speak(ls *liveSession, text string) {
	start := time.Now()
	events, err := m.ttsP.Speak(ls.ctx, text, m.voice)
	if err != nil {
		slog.Error("speech synthesis failed",
			"session", ls.sess.ID(),
			"error", err)
		m.metrics.RecordProviderError(ls.ctx, m.voice.Provider, "tts")
		m.postEvent(ls, sessionEvent{spoken: true})
		return
	}
	for evt := range events {
		e := evt
		m.postEvent(ls, sessionEvent{ttsEvent: &e})
	}
	m.metrics.RecordProviderCall(ls.ctx, m.voice.Provider, "tts", time.Since(start).Seconds())
	m.postEvent(ls, sessionEvent{spoken: true})
}

// postEvent delivers an event to the session loop unless it has exited.
func (m *Manager) postEvent(ls *liveSession, evt sessionEvent) {
	select {
	case ls.events <- evt:
	case <-ls.ctx.Done():
	}
}

// teardown releases a session's resources once its loop exits.
func (m *Manager) teardown(ls *liveSession) {
	ls.cancel()
	if err := ls.handle.Close(); err != nil {
		slog.Warn("closing transcript stream", "session", ls.sess.ID(), "error", err)
	}

	m.mu.Lock()
	delete(m.sessions, ls.sess.ID())
	m.mu.Unlock()

	m.metrics.ActiveSessions.Add(context.Background(), -1)
	slog.Info("session ended", "session", ls.sess.ID())
}

// KeywordsFor builds recognizer keyword boosts from a question's option
// vocabulary. Labels boost harder than aliases; terms are deduplicated
// case-insensitively.
func KeywordsFor(q *question.Question, opts []types.AnswerOption) []types.KeywordBoost {
	if opts == nil {
		opts = q.Options
	}
	seen := make(map[string]struct{}, len(opts)*2)
	var kws []types.KeywordBoost
	add := func(term string, boost float64) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		kws = append(kws, types.KeywordBoost{Keyword: term, Boost: boost})
	}
	for i := range opts {
		add(opts[i].Label, labelKeywordBoost)
		for _, alias := range opts[i].Aliases {
			add(alias, aliasKeywordBoost)
		}
	}
	return kws
}
