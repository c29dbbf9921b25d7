// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a streaming recognition service (e.g., Deepgram) and
// presents a uniform session interface: the caller feeds raw audio chunks in
// and receives [types.Transcript] values out of a single Results channel.
// Partial (interim) and final transcripts share that channel and are told
// apart by Transcript.IsFinal — the dialogue layer interprets only finals and
// uses partials to detect that the caller is still speaking.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"

	"github.com/quotevox/quotevox/pkg/types"
)

// ErrNotSupported is returned (possibly wrapped) by SessionHandle methods
// that the underlying service cannot perform, such as updating keyword
// boosts on an already-open stream. Callers should treat it as a soft
// failure: the session stays usable.
var ErrNotSupported = errors.New("stt: not supported")

// StreamConfig holds the parameters for a recognition session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz (e.g., 16000).
	SampleRate int

	// Channels is the number of audio channels (1 for telephony audio).
	Channels int

	// Language is a BCP-47 language tag (e.g., "en", "en-GB"). Empty means
	// the provider default.
	Language string

	// Keywords are vocabulary boosts applied for the whole session, typically
	// the option labels and aliases of the first question.
	Keywords []types.KeywordBoost
}

// SessionHandle is a live recognition session.
//
// The session owns its network connection and background goroutines; callers
// interact only through these methods and must call Close exactly once when
// done.
type SessionHandle interface {
	// SendAudio delivers one chunk of raw audio to the recognizer. It returns
	// an error if the session is closed. Implementations may buffer; callers
	// should treat a returned error as fatal for the session.
	SendAudio(chunk []byte) error

	// Results returns the channel carrying both partial and final transcripts
	// in arrival order. The implementation closes the channel when the
	// session ends, whether by Close, context cancellation, or a transport
	// failure. Callers must drain it to avoid blocking the reader goroutine.
	Results() <-chan types.Transcript

	// SetKeywords replaces the session's vocabulary boosts mid-stream, used
	// when the dialogue moves to a question with different option labels.
	// Providers whose protocol fixes vocabulary at connect time return an
	// error wrapping [ErrNotSupported]; the session remains usable.
	SetKeywords(keywords []types.KeywordBoost) error

	// Close flushes pending audio, tears down the connection, and releases
	// the session's goroutines. Safe to call more than once.
	Close() error
}

// Provider is the abstraction over any streaming STT backend.
type Provider interface {
	// Start opens a new recognition session with the given configuration.
	// The returned handle is ready to accept audio. Returns an error if the
	// connection cannot be established or the configuration is rejected.
	Start(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
