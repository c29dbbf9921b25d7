// Package mock provides test doubles for the tts package interfaces.
//
// Provider records every Speak call and plays back a scripted event
// sequence, so dialogue tests can assert what was said without a synthesis
// service. Set SpeakFunc to control event timing by hand.
package mock

import (
	"context"
	"sync"

	"github.com/quotevox/quotevox/pkg/provider/tts"
	"github.com/quotevox/quotevox/pkg/types"
)

// SpeakCall records a single invocation of Provider.Speak.
type SpeakCall struct {
	// Text is the utterance passed to Speak.
	Text string
	// Voice is the voice profile passed to Speak.
	Voice types.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// SpeakFunc, if non-nil, replaces the default Speak behaviour entirely.
	// The call is still recorded.
	SpeakFunc func(ctx context.Context, text string, voice types.VoiceProfile) (<-chan tts.Event, error)

	// Script is the event sequence played back by each Speak call when
	// SpeakFunc is nil. Empty means started then ended.
	Script []tts.Event

	// SpeakErr, if non-nil, is returned as the error from Speak.
	SpeakErr error

	// Voices is returned by ListVoices.
	Voices []types.VoiceProfile

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall
}

// Speak records the call and plays back the scripted events on a channel
// that is closed once the script finishes.
func (p *Provider) Speak(ctx context.Context, text string, voice types.VoiceProfile) (<-chan tts.Event, error) {
	p.mu.Lock()
	p.SpeakCalls = append(p.SpeakCalls, SpeakCall{Text: text, Voice: voice})
	speakFunc := p.SpeakFunc
	script := p.Script
	speakErr := p.SpeakErr
	p.mu.Unlock()

	if speakFunc != nil {
		return speakFunc(ctx, text, voice)
	}
	if speakErr != nil {
		return nil, speakErr
	}

	if len(script) == 0 {
		script = []tts.Event{{Kind: tts.EventStarted}, {Kind: tts.EventEnded}}
	}
	events := make(chan tts.Event, len(script))
	for _, evt := range script {
		events <- evt
	}
	close(events)
	return events, nil
}

// ListVoices returns Voices, ListVoicesErr.
func (p *Provider) ListVoices(context.Context) ([]types.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListVoicesErr != nil {
		return nil, p.ListVoicesErr
	}
	return p.Voices, nil
}

// Spoken returns the texts passed to Speak so far, in order. Thread-safe.
func (p *Provider) Spoken() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	texts := make([]string, len(p.SpeakCalls))
	for i, c := range p.SpeakCalls {
		texts[i] = c.Text
	}
	return texts
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SpeakCalls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
