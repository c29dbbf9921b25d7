// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or the
// OpenAI speech endpoint). The primary entry point is Speak, which synthesizes
// one utterance and reports its lifecycle over an Event channel: the dialogue
// layer needs to know when the system starts and stops talking so it can pace
// silence escalation, while the synthesized audio itself flows to whatever
// sink the implementation was constructed with (a call leg, a file, nothing
// in console simulation).
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"

	"github.com/quotevox/quotevox/pkg/types"
)

// EventKind classifies a synthesis lifecycle event.
type EventKind string

const (
	// EventStarted is emitted when audible output begins.
	EventStarted EventKind = "started"

	// EventEnded is emitted after the last audio of the utterance. Always
	// preceded by EventStarted.
	EventEnded EventKind = "ended"

	// EventError is emitted when synthesis fails mid-utterance. It is the
	// last event on the channel.
	EventError EventKind = "error"
)

// Event is one synthesis lifecycle notification.
type Event struct {
	// Kind classifies the event.
	Kind EventKind

	// Err carries the failure for EventError and is nil otherwise.
	Err error
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Speak synthesizes text with the given voice and returns a channel of
	// lifecycle events. The channel emits EventStarted when audio begins,
	// then either EventEnded on success or EventError on failure, and is
	// closed by the implementation afterwards. Callers must drain it.
	//
	// A non-nil error return means synthesis could not be started at all
	// (bad voice, unreachable service); no channel is returned in that case.
	Speak(ctx context.Context, text string, voice types.VoiceProfile) (<-chan Event, error)

	// ListVoices returns all voice profiles available from this provider.
	// The list reflects the provider's current catalogue and may change
	// between calls if the underlying service adds or removes voices.
	ListVoices(ctx context.Context) ([]types.VoiceProfile, error)
}
