// Package llmassist implements the optional LLM-backed answer normalizer for
// free-text questions.
//
// The normalizer tidies what the recognizer heard — filler words, false
// starts, casing — before the answer is submitted. It never interprets
// select, date, or spelling input; those have deterministic decoders. It is
// wired into the interpreter only when an LLM provider is configured, and
// any error or timeout here makes the interpreter fall back to the raw
// transcript, so a flaky model can degrade quality but never availability.
package llmassist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quotevox/quotevox/internal/interpret"
	"github.com/quotevox/quotevox/pkg/provider/llm"
	"github.com/quotevox/quotevox/pkg/types"
)

const defaultTimeout = 2 * time.Second

// systemPrompt constrains the model to transcript cleanup. Anything beyond
// a single tidied line is rejected by the output guards below.
const systemPrompt = `You clean up voice transcripts of answers to insurance questions.
Return only the cleaned answer text on a single line: remove filler words (um, uh, erm, like),
false starts, and politeness; fix casing and obvious transcription slips; keep the meaning
and every factual detail unchanged. Never answer the question yourself, never add
information, never explain. If the transcript is already clean, return it unchanged.`

// Option is a functional option for configuring the Normalizer.
type Option func(*Normalizer)

// WithTimeout caps how long one normalization may take. The default is two
// seconds; the caller is mid-call with a human waiting.
func WithTimeout(d time.Duration) Option {
	return func(n *Normalizer) {
		n.timeout = d
	}
}

// Normalizer tidies free-text answers through an LLM provider.
type Normalizer struct {
	provider llm.Provider
	timeout  time.Duration
}

// New creates a Normalizer backed by provider.
func New(provider llm.Provider, opts ...Option) *Normalizer {
	n := &Normalizer{provider: provider, timeout: defaultTimeout}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize returns a tidied version of text. An error means the caller
// should keep the raw transcript.
func (n *Normalizer) Normalize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	resp, err := n.provider.Complete(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		Messages: []types.Message{
			{Role: "user", Content: text},
		},
		Temperature: 0.1,
		MaxTokens:   128,
	})
	if err != nil {
		return "", fmt.Errorf("llmassist: normalize: %w", err)
	}

	out, err := cleanOutput(text, resp.Content)
	if err != nil {
		return "", err
	}
	slog.Debug("answer normalized",
		"in_len", len(text),
		"out_len", len(out),
		"tokens", resp.Usage.TotalTokens)
	return out, nil
}

// cleanOutput applies the guards that keep a misbehaving model from
// corrupting an answer: single line, no decoration, plausible length.
func cleanOutput(input, output string) (string, error) {
	out := strings.Join(strings.Fields(output), " ")
	out = strings.Trim(out, `"'`)
	out = strings.TrimSpace(out)

	if out == "" {
		return "", errors.New("llmassist: empty normalization")
	}
	// A tidied transcript can only shrink or grow a little; anything bigger
	// means the model answered instead of cleaning.
	if len(out) > 3*len(input)+16 {
		return "", fmt.Errorf("llmassist: implausible normalization (%d chars from %d)", len(out), len(input))
	}
	return out, nil
}

// Ensure Normalizer satisfies the interpreter's seam at compile time.
var _ interpret.Normalizer = (*Normalizer)(nil)
