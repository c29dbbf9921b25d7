// Package types defines the shared types used across all QuoteVox packages.
//
// These types form the lingua franca between speech providers, the
// interpretation layer, the question flow store, and the dialogue manager.
// They are intentionally minimal — each package defines its own domain types,
// but cross-cutting data structures live here to avoid circular imports.
package types

import (
	"strings"
	"time"
)

// Transcript represents a speech-to-text result from an STT provider.
// Both partial (interim) and final transcripts use this type. The
// interpretation layer consumes only final transcripts; partials exist for
// UI feedback and for suppressing silence escalation while the caller is
// still speaking.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// Words contains per-word detail when available. May be nil for
	// providers that don't support word-level output.
	Words []WordDetail

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration

	// Duration is the length of the utterance.
	Duration time.Duration
}

// Normalized returns the transcript text lower-cased and trimmed, the form
// every interpretation component works on.
func (t Transcript) Normalized() string {
	return strings.ToLower(strings.TrimSpace(t.Text))
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// AnswerOption is one selectable answer for a select-type question.
// Identity is Value; Label is the display text. Aliases and Phonetics are
// alternate spoken forms treated as equivalent during resolution: aliases
// encode domain synonyms ("benzine" for petrol), phonetics encode known
// recognizer mishearings. Options are read-only while matching.
type AnswerOption struct {
	// Label is the display text shown to the user and spoken by TTS.
	Label string `yaml:"label" json:"label"`

	// Value is the canonical identifier submitted to the quote backend.
	Value string `yaml:"value" json:"value"`

	// Aliases are alternate spoken or written forms of this option.
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`

	// Phonetics are known speech-recognizer mistranscriptions of this option.
	Phonetics []string `yaml:"phonetics,omitempty" json:"phonetics,omitempty"`
}

// KeywordBoost represents a keyword to boost in STT recognition.
// Option labels and aliases of the active question are pushed as boosts so
// the recognizer favors domain vocabulary ("comprehensive", "third party").
type KeywordBoost struct {
	// Keyword is the text to boost.
	Keyword string

	// Boost is the intensity of the boost (provider-specific scale).
	Boost float64
}

// VoiceProfile describes a TTS voice configuration.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// SpeedFactor adjusts speaking rate (0.5–2.0, 1.0 = default).
	SpeedFactor float64

	// Metadata holds provider-specific voice attributes (gender, accent, etc.).
	Metadata map[string]string
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one
	// completion.
	MaxOutputTokens int
}
