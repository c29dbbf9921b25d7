// Package interpret turns final recognizer transcripts into structured
// answers for the active question. It routes by the question's input type:
// spelled input accumulates through the spelling decoder, date questions go
// through the spoken-date extractor, select questions through the option
// resolver. Anything that cannot be interpreted falls back to the raw
// transcript so the dialogue never dead-ends on a mishearing.
package interpret

import (
	"context"
	"log/slog"
	"strings"

	"github.com/quotevox/quotevox/internal/interpret/options"
	"github.com/quotevox/quotevox/internal/interpret/spelling"
	"github.com/quotevox/quotevox/internal/interpret/spokendate"
	"github.com/quotevox/quotevox/internal/question"
	"github.com/quotevox/quotevox/pkg/types"
)

// Source identifies which interpretation path produced an answer.
type Source string

const (
	// SourceSpelling answers come from the spelling decoder's buffer.
	SourceSpelling Source = "spelling"

	// SourceDate answers are extracted calendar components.
	SourceDate Source = "date"

	// SourceOption answers are resolved option values.
	SourceOption Source = "option"

	// SourceRaw answers are the transcript passed through untouched.
	SourceRaw Source = "raw"

	// SourceNormalized answers are free text tidied by the configured
	// normalizer.
	SourceNormalized Source = "normalized"
)

// Outcome is the result of interpreting one final transcript.
type Outcome struct {
	// Answer is the text to submit for the question. Empty while Pending.
	Answer string

	// Source names the interpretation path that produced Answer.
	Source Source

	// Option is the resolved answer option for select questions.
	Option *types.AnswerOption

	// Pending reports that the transcript was consumed but the answer is
	// not complete yet; spelled input spans several transcripts.
	Pending bool

	// Buffer is the spelling buffer after this transcript, for echoing
	// progress back to the speaker.
	Buffer string
}

// Normalizer tidies a free-text answer before submission. Implementations
// must return the input unchanged or an error rather than inventing content.
type Normalizer interface {
	Normalize(ctx context.Context, text string) (string, error)
}

// Interpreter routes transcripts for one dialogue session. It owns the
// spelling decoder of the active question; callers serialize access per
// session.
type Interpreter struct {
	normalizer Normalizer
	spellObs   func(buffer string)

	active  question.Question
	options []types.AnswerOption
	speller *spelling.Decoder
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithNormalizer enables LLM-backed tidying of free-text answers. Select,
// date and spelling interpretation never consult it.
func WithNormalizer(n Normalizer) Option {
	return func(it *Interpreter) { it.normalizer = n }
}

// WithSpellingObserver registers fn to receive the spelling buffer after
// every mutation.
func WithSpellingObserver(fn func(buffer string)) Option {
	return func(it *Interpreter) { it.spellObs = fn }
}

// New returns an Interpreter with no active question.
func New(opts ...Option) *Interpreter {
	it := &Interpreter{}
	for _, opt := range opts {
		opt(it)
	}
	it.speller = it.newSpeller(false)
	return it
}

// Activate makes q the active question and resets per-question state,
// including the spelling buffer.
func (it *Interpreter) Activate(q question.Question) {
	it.active = q
	it.options = q.Options
	it.speller = it.newSpeller(q.NumericSpelling)
}

// SetOptions replaces the active option list, for cascading questions whose
// options arrive after activation.
func (it *Interpreter) SetOptions(opts []types.AnswerOption) {
	it.options = opts
}

// Options returns the active option list.
func (it *Interpreter) Options() []types.AnswerOption {
	return it.options
}

// Buffer returns the spelling buffer decoded so far for the active question.
func (it *Interpreter) Buffer() string {
	return it.speller.Buffer()
}

// Interpret maps one final transcript to an Outcome for the active question.
func (it *Interpreter) Interpret(ctx context.Context, tr types.Transcript) Outcome {
	text := tr.Normalized()
	if text == "" {
		return Outcome{Source: SourceRaw}
	}

	switch it.active.InputType {
	case types.InputSpelling:
		if it.speller.Process(text) {
			return Outcome{
				Pending: true,
				Source:  SourceSpelling,
				Buffer:  it.speller.Buffer(),
			}
		}
		slog.Debug("transcript not spellable, treating as free text",
			"question", it.active.ID, "transcript", text)
		return it.fallback(ctx, tr)

	case types.InputDate:
		component := it.active.DateComponent
		if component == "" {
			component = spokendate.ComponentFull
		}
		if value, ok := spokendate.Extract(text, component); ok {
			return Outcome{Answer: value, Source: SourceDate}
		}
		return it.fallback(ctx, tr)

	case types.InputSelect:
		if opt := options.Resolve(text, it.options); opt != nil {
			return Outcome{Answer: opt.Value, Source: SourceOption, Option: opt}
		}
		return it.fallback(ctx, tr)

	default:
		return it.fallback(ctx, tr)
	}
}

// fallback hands back the raw transcript, tidied by the normalizer for
// free-text questions when one is configured. Normalizer failures keep the
// raw transcript; interpretation must never dead-end on a helper.
func (it *Interpreter) fallback(ctx context.Context, tr types.Transcript) Outcome {
	raw := strings.TrimSpace(tr.Text)
	if it.normalizer != nil && it.active.InputType == types.InputText {
		normalized, err := it.normalizer.Normalize(ctx, raw)
		switch {
		case err != nil:
			slog.Warn("answer normalizer failed, keeping raw transcript",
				"question", it.active.ID, "error", err)
		case strings.TrimSpace(normalized) != "":
			return Outcome{Answer: strings.TrimSpace(normalized), Source: SourceNormalized}
		}
	}
	return Outcome{Answer: raw, Source: SourceRaw}
}

func (it *Interpreter) newSpeller(numeric bool) *spelling.Decoder {
	var opts []spelling.Option
	if numeric {
		opts = append(opts, spelling.WithNumeric())
	}
	if it.spellObs != nil {
		opts = append(opts, spelling.WithObserver(it.spellObs))
	}
	return spelling.New(opts...)
}
