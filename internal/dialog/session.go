package dialog

import (
	"context"
	"strings"
	"time"

	"github.com/quotevox/quotevox/internal/interpret"
	"github.com/quotevox/quotevox/internal/question"
	"github.com/quotevox/quotevox/pkg/types"
)

// Answer is one interpreted caller answer, ready for submission.
type Answer struct {
	SessionID  string
	QuestionID string

	// Text is the value to submit: decoded spelling, extracted date,
	// resolved option value, or the (possibly normalized) transcript.
	Text string

	// Source names the interpretation path that produced Text.
	Source interpret.Source

	// Option is the resolved option for select questions, nil otherwise.
	Option *types.AnswerOption

	// Raw is the transcript the answer was interpreted from.
	Raw string

	// Confidence is the recognizer's confidence in that transcript.
	Confidence float64

	At time.Time
}

// spellingDonePhrases end spelled input and submit the buffer.
var spellingDonePhrases = map[string]struct{}{
	"done":       {},
	"i'm done":   {},
	"im done":    {},
	"finished":   {},
	"finish":     {},
	"that's it":  {},
	"thats it":   {},
	"that's all": {},
	"thats all":  {},
}

// Session drives one caller conversation: it owns the active question, the
// transcript interpreter, and the escalation machine, and turns final
// transcripts into answers.
//
// Session is not safe for concurrent use; the manager serializes all events
// for a session through one loop.
type Session struct {
	id      string
	interp  *interpret.Interpreter
	machine *Machine
	now     func() time.Time

	q *question.Question
}

// NewSession creates a session around an interpreter and escalation machine.
func NewSession(id string, interp *interpret.Interpreter, machine *Machine) *Session {
	return &Session{
		id:      id,
		interp:  interp,
		machine: machine,
		now:     time.Now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Question returns the active question, or nil before activation.
func (s *Session) Question() *question.Question { return s.q }

// State returns the escalation machine's current state.
func (s *Session) State() State { return s.machine.State() }

// SpellingBuffer returns the letters decoded so far for a spelling question.
func (s *Session) SpellingBuffer() string { return s.interp.Buffer() }

// Activate makes q the active question with the given options and resets
// interpretation and escalation state. A nil option list keeps the options
// declared on the question itself. The returned effects ask the question.
func (s *Session) Activate(q *question.Question, opts []types.AnswerOption) []Effect {
	s.q = q
	s.interp.Activate(*q)
	if opts != nil {
		s.interp.SetOptions(opts)
	}
	return []Effect{s.machine.Activate(q, s.now())}
}

// SetOptions replaces the option list mid-question, for cascading refreshes.
func (s *Session) SetOptions(opts []types.AnswerOption) {
	s.interp.SetOptions(opts)
}

// Tick forwards a silence tick to the escalation machine.
func (s *Session) Tick(now time.Time) []Effect { return s.machine.Tick(now) }

// HoldTick forwards a hold reminder tick to the escalation machine.
func (s *Session) HoldTick(now time.Time) []Effect { return s.machine.HoldTick(now) }

// SpeakStarted suspends silence escalation while a prompt is voiced.
func (s *Session) SpeakStarted() { s.machine.SpeakStarted() }

// SpeakEnded restarts the silence clock from the end of the prompt.
func (s *Session) SpeakEnded() { s.machine.SpeakEnded(s.now()) }

// HandleTranscript interprets one recognizer transcript for the active
// question. Partial transcripts only defer the silence clock. A final
// transcript may complete an answer, mutate the spelling buffer, resume a
// held conversation, or turn out unusable; the effects carry any prompts the
// owner should voice.
func (s *Session) HandleTranscript(ctx context.Context, tr types.Transcript) (*Answer, []Effect) {
	if s.q == nil {
		return nil, nil
	}
	now := s.now()
	if !tr.IsFinal {
		s.machine.Touch(now)
		return nil, nil
	}

	if s.machine.State() == StateOnHold {
		// Whatever the caller said ends the hold; the re-ask invites a
		// fresh answer in its place.
		return nil, s.machine.InputReceived(now)
	}

	if s.q.InputType == types.InputSpelling && isSpellingDone(tr.Normalized()) {
		if buf := s.interp.Buffer(); buf != "" {
			return s.answer(buf, interpret.SourceSpelling, nil, tr, now), s.machine.InputReceived(now)
		}
		s.machine.Touch(now)
		return nil, nil
	}

	outcome := s.interp.Interpret(ctx, tr)
	switch {
	case outcome.Pending:
		return nil, s.machine.InputReceived(now)
	case s.accepts(outcome):
		return s.answer(outcome.Answer, outcome.Source, outcome.Option, tr, now), s.machine.InputReceived(now)
	default:
		s.machine.Touch(now)
		return nil, nil
	}
}

// accepts decides whether an interpretation outcome is submittable for the
// active question's input type. Select and date questions refuse the raw
// fallback so the escalation machine re-asks instead of submitting a
// mishearing.
func (s *Session) accepts(o interpret.Outcome) bool {
	if o.Answer == "" {
		return false
	}
	switch s.q.InputType {
	case types.InputSelect:
		return o.Source == interpret.SourceOption
	case types.InputDate:
		return o.Source == interpret.SourceDate
	case types.InputSpelling:
		// Spelled answers are submitted only through a done phrase.
		return false
	default:
		return true
	}
}

func (s *Session) answer(text string, src interpret.Source, opt *types.AnswerOption, tr types.Transcript, now time.Time) *Answer {
	return &Answer{
		SessionID:  s.id,
		QuestionID: s.q.ID,
		Text:       text,
		Source:     src,
		Option:     opt,
		Raw:        strings.TrimSpace(tr.Text),
		Confidence: tr.Confidence,
		At:         now,
	}
}

func isSpellingDone(normalized string) bool {
	_, ok := spellingDonePhrases[strings.TrimRight(normalized, ".,!?")]
	return ok
}
