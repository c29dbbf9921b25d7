package dialog

import (
	"time"

	"github.com/quotevox/quotevox/internal/question"
)

// Default escalation parameters.
const (
	defaultSilenceTimeout    = 10 * time.Second
	defaultHoldReminderEvery = 30 * time.Second
	defaultMaxAttempts       = 4
)

// Default hold wording, overridable via [Config].
const (
	defaultHoldAnnouncement = "I seem to have lost you, so I will put our conversation on hold. Just say something when you are ready to carry on."
	defaultHoldReminder     = "The conversation is on hold. Speak at any time to continue."
)

// State identifies what the escalation machine is currently doing.
type State string

const (
	// StateWaiting means the machine is waiting for caller input with the
	// silence clock running.
	StateWaiting State = "waiting"

	// StateSpeaking means a prompt is being voiced; silence ticks are
	// ignored until speech ends.
	StateSpeaking State = "speaking"

	// StateOnHold means the caller stayed silent through every re-prompt
	// and the conversation is parked until they speak again.
	StateOnHold State = "on_hold"
)

// EffectKind labels the side effects transition methods ask the caller to
// perform.
type EffectKind string

const (
	// EffectSay asks the owner to voice Utterance.
	EffectSay EffectKind = "say"

	// EffectHoldAnnounced is emitted exactly once when the conversation is
	// parked; Utterance carries the announcement to voice.
	EffectHoldAnnounced EffectKind = "hold_announced"

	// EffectReminder is the periodic nudge while on hold. It is not voiced;
	// owners decide how to surface it.
	EffectReminder EffectKind = "reminder"

	// EffectResumed reports that caller input ended a hold.
	EffectResumed EffectKind = "resumed"
)

// Effect is one side effect requested by a transition.
type Effect struct {
	Kind EffectKind

	// Utterance is the text behind Say, HoldAnnounced and Reminder effects.
	Utterance string

	// VariantIndex is the phrasing variant a Say effect speaks.
	VariantIndex int
}

// Config configures a [Machine].
type Config struct {
	// SilenceTimeout is how long the machine waits for input before
	// re-asking with the next phrasing variant. Defaults to 10s if zero.
	SilenceTimeout time.Duration

	// HoldReminderEvery is the cadence of reminder effects while on hold.
	// Defaults to 30s if zero.
	HoldReminderEvery time.Duration

	// MaxAttempts is the number of silence re-prompts before the machine
	// puts the conversation on hold. Defaults to 4 if zero.
	MaxAttempts int

	// HoldAnnouncement overrides the line voiced when the conversation is
	// put on hold.
	HoldAnnouncement string

	// HoldReminder overrides the line carried by reminder effects.
	HoldReminder string
}

// Machine escalates prompting for the active question. Each silence timeout
// re-asks the question with its next phrasing variant; the re-prompt that
// exhausts MaxAttempts also parks the conversation on hold until the caller
// speaks again. Caller input at any point resets the escalation, and
// activating a new question discards the previous question's state entirely.
//
// All state lives in the struct and changes only through the transition
// methods, which never block or wait themselves: the owner drives them from
// timer ticks and transcript events, passing the current time in. Machine is
// not safe for concurrent use; the session event loop serializes calls.
type Machine struct {
	cfg Config

	q            *question.Question
	state        State
	attempts     int
	variantIndex int
	lastActivity time.Time
	lastReminder time.Time
}

// NewMachine creates a Machine with the given configuration. Zero fields
// take the documented defaults. The machine does nothing until
// [Machine.Activate] gives it a question.
func NewMachine(cfg Config) *Machine {
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = defaultSilenceTimeout
	}
	if cfg.HoldReminderEvery <= 0 {
		cfg.HoldReminderEvery = defaultHoldReminderEvery
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.HoldAnnouncement == "" {
		cfg.HoldAnnouncement = defaultHoldAnnouncement
	}
	if cfg.HoldReminder == "" {
		cfg.HoldReminder = defaultHoldReminder
	}
	return &Machine{cfg: cfg, state: StateWaiting}
}

// State returns the machine's current state.
func (m *Machine) State() State { return m.state }

// Attempts returns the number of silence re-prompts since the last input.
func (m *Machine) Attempts() int { return m.attempts }

// Activate starts escalation for q, discarding any state from the previous
// question. The returned effect asks the question with its first phrasing.
func (m *Machine) Activate(q *question.Question, now time.Time) Effect {
	m.q = q
	m.state = StateWaiting
	m.attempts = 0
	m.variantIndex = 0
	m.lastActivity = now
	return Effect{Kind: EffectSay, Utterance: q.Variant(0)}
}

// Tick evaluates the silence clock. Once the caller has been silent for
// SilenceTimeout it re-asks with the next phrasing variant; the re-ask that
// reaches MaxAttempts additionally parks the conversation with a hold
// announcement. Ticks while speaking or on hold do nothing.
func (m *Machine) Tick(now time.Time) []Effect {
	if m.q == nil || m.state != StateWaiting {
		return nil
	}
	if now.Sub(m.lastActivity) < m.cfg.SilenceTimeout {
		return nil
	}

	m.variantIndex = (m.variantIndex + 1) % m.q.VariantCount()
	m.attempts++
	m.lastActivity = now

	effects := []Effect{{
		Kind:         EffectSay,
		Utterance:    m.q.Variant(m.variantIndex),
		VariantIndex: m.variantIndex,
	}}
	if m.attempts >= m.cfg.MaxAttempts {
		m.state = StateOnHold
		m.lastReminder = now
		effects = append(effects, Effect{Kind: EffectHoldAnnounced, Utterance: m.cfg.HoldAnnouncement})
	}
	return effects
}

// HoldTick evaluates the reminder clock. While on hold it emits a reminder
// effect every HoldReminderEvery; in any other state it does nothing.
func (m *Machine) HoldTick(now time.Time) []Effect {
	if m.state != StateOnHold {
		return nil
	}
	if now.Sub(m.lastReminder) < m.cfg.HoldReminderEvery {
		return nil
	}
	m.lastReminder = now
	return []Effect{{Kind: EffectReminder, Utterance: m.cfg.HoldReminder}}
}

// InputReceived records caller input for the current question: escalation
// counters reset and a held conversation resumes. Resuming re-asks the
// question with its first phrasing so the caller knows where they left off.
func (m *Machine) InputReceived(now time.Time) []Effect {
	wasHeld := m.state == StateOnHold
	m.state = StateWaiting
	m.attempts = 0
	m.variantIndex = 0
	m.lastActivity = now

	if !wasHeld {
		return nil
	}
	effects := []Effect{{Kind: EffectResumed}}
	if m.q != nil {
		effects = append(effects, Effect{Kind: EffectSay, Utterance: m.q.Variant(0)})
	}
	return effects
}

// Touch records caller activity that is not yet an answer, such as a partial
// transcript, deferring the silence clock without resetting escalation.
func (m *Machine) Touch(now time.Time) {
	m.lastActivity = now
}

// SpeakStarted suspends silence evaluation while a prompt is voiced. A hold
// is unaffected; voicing the hold announcement does not end it.
func (m *Machine) SpeakStarted() {
	if m.state == StateWaiting {
		m.state = StateSpeaking
	}
}

// SpeakEnded resumes silence evaluation, measuring the next timeout from the
// end of the prompt rather than its start.
func (m *Machine) SpeakEnded(now time.Time) {
	if m.state == StateSpeaking {
		m.state = StateWaiting
	}
	m.lastActivity = now
}
