// Package spelling decodes letter-by-letter spoken input into text. It
// understands the NATO phonetic alphabet plus common recognizer mishearings,
// bare letters, editing words (delete, space) and whole-transcript commands
// that replace or insert letters in the text decoded so far.
package spelling

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/quotevox/quotevox/internal/observe"
)

// Decoder accumulates spelled characters in an owned buffer. One Decoder
// serves one spelling field for the duration of its capture; Reset starts
// the next one. Callers serialize access per dialogue session.
type Decoder struct {
	numeric  bool
	observer func(buffer string)
	buf      []rune
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithNumeric additionally decodes digit words and bare digits, for fields
// such as policy or phone numbers.
func WithNumeric() Option {
	return func(d *Decoder) { d.numeric = true }
}

// WithObserver registers fn to be called with the buffer contents after
// every mutation, so the caller can echo progress back to the speaker.
func WithObserver(fn func(buffer string)) Option {
	return func(d *Decoder) { d.observer = fn }
}

// New returns an empty Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Buffer returns the text decoded so far.
func (d *Decoder) Buffer() string { return string(d.buf) }

// Reset clears the buffer for a new spelling capture.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.notify()
}

// Process decodes one final transcript against the current buffer. It
// reports false when nothing in the transcript was recognized, so the
// caller can route the utterance elsewhere.
func (d *Decoder) Process(transcript string) bool {
	text := normalizeTranscript(transcript)
	if text == "" {
		return false
	}

	// Whole-transcript commands take precedence over the word loop.
	if cmd, ok := parseCorrection(text); ok {
		if !d.applyCorrection(cmd) {
			return false
		}
		observe.DefaultMetrics().RecordSpellingCommand(context.Background(), "correction")
		return true
	}
	if cmd, ok := parseInsert(text); ok {
		d.applyInsert(cmd)
		observe.DefaultMetrics().RecordSpellingCommand(context.Background(), "insert")
		return true
	}

	handled := false
	for _, word := range strings.Fields(text) {
		switch word {
		case "delete", "backspace", "clear":
			d.deleteLast()
			observe.DefaultMetrics().RecordSpellingCommand(context.Background(), "delete")
			handled = true
		case "space":
			d.append(' ')
			handled = true
		default:
			if letter, ok := resolveLetter(word); ok {
				d.append(toUpper(letter))
				handled = true
				continue
			}
			if d.numeric {
				if digit, ok := resolveDigit(word); ok {
					d.append(digit)
					handled = true
					continue
				}
			}
			// Filler or unrecognized word, skip it.
		}
	}
	return handled
}

// applyCorrection replaces occurrences of the source letter with the target.
// When the spoken source is not in the buffer it may itself be a mishearing,
// so the letters it is commonly confused with are tried before giving up.
func (d *Decoder) applyCorrection(cmd CorrectionCommand) bool {
	src := toUpper(cmd.Source)
	tgt := toUpper(cmd.Target)
	if !d.contains(src) {
		for _, alt := range similarLetters[cmd.Source] {
			if d.contains(toUpper(alt)) {
				src = toUpper(alt)
				break
			}
		}
	}
	if !d.contains(src) {
		slog.Debug("spelling: correction source not in buffer",
			"rule", correctionRule.name,
			"source", string(cmd.Source),
			"buffer", d.Buffer())
		return false
	}

	switch cmd.Position {
	case "first":
		for i, r := range d.buf {
			if r == src {
				d.buf[i] = tgt
				break
			}
		}
	case "last":
		for i := len(d.buf) - 1; i >= 0; i-- {
			if d.buf[i] == src {
				d.buf[i] = tgt
				break
			}
		}
	default:
		for i, r := range d.buf {
			if r == src {
				d.buf[i] = tgt
			}
		}
	}
	d.notify()
	return true
}

func (d *Decoder) applyInsert(cmd InsertCommand) {
	letter := toUpper(cmd.Letter)
	if cmd.AtFront {
		d.buf = append([]rune{letter}, d.buf...)
	} else {
		d.buf = append(d.buf, letter)
	}
	d.notify()
}

func (d *Decoder) append(r rune) {
	d.buf = append(d.buf, r)
	d.notify()
}

func (d *Decoder) deleteLast() {
	if len(d.buf) > 0 {
		d.buf = d.buf[:len(d.buf)-1]
	}
	d.notify()
}

func (d *Decoder) contains(r rune) bool {
	for _, b := range d.buf {
		if b == r {
			return true
		}
	}
	return false
}

func (d *Decoder) notify() {
	if d.observer != nil {
		d.observer(d.Buffer())
	}
}

// normalizeTranscript lowercases the transcript and reduces it to
// space-separated words of letters and digits.
func normalizeTranscript(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
