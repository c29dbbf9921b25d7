package tts

import (
	"context"
	"errors"

	"github.com/quotevox/quotevox/internal/resilience"
	"github.com/quotevox/quotevox/pkg/types"
)

// FailoverEntry names one provider in a [Failover] chain. Voice, when set,
// replaces the caller's voice for this provider; voice IDs are
// provider-specific, so each entry usually carries its own.
type FailoverEntry struct {
	Name     string
	Provider Provider
	Voice    types.VoiceProfile
}

// Failover is a Provider that tries a primary synthesis service and falls
// back to standbys, each behind its own circuit breaker. Only a failed Speak
// call triggers the next entry; an error event arriving after synthesis has
// started does not, since the utterance is already underway.
type Failover struct {
	group *resilience.Group[FailoverEntry]
}

// NewFailover builds a failover chain in entry order. The breaker config
// applies to every entry.
func NewFailover(cfg resilience.BreakerConfig, entries ...FailoverEntry) (*Failover, error) {
	if len(entries) == 0 {
		return nil, errors.New("tts: failover needs at least one provider")
	}
	for _, e := range entries {
		if e.Name == "" || e.Provider == nil {
			return nil, errors.New("tts: failover entry needs a name and a provider")
		}
	}
	g := resilience.NewGroup(entries[0].Name, entries[0], cfg)
	for _, e := range entries[1:] {
		g.Add(e.Name, e)
	}
	return &Failover{group: g}, nil
}

// Speak synthesizes with the first healthy provider in the chain.
func (f *Failover) Speak(ctx context.Context, text string, voice types.VoiceProfile) (<-chan Event, error) {
	// A cancelled context would fail every entry and charge each breaker
	// for a failure that is not the provider's.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resilience.DoResult(f.group, func(e FailoverEntry) (<-chan Event, error) {
		v := e.Voice
		if v.ID == "" && v.Provider == "" {
			v = voice
		}
		return e.Provider.Speak(ctx, text, v)
	})
}

// ListVoices returns the catalogue of the first provider that answers.
func (f *Failover) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resilience.DoResult(f.group, func(e FailoverEntry) ([]types.VoiceProfile, error) {
		return e.Provider.ListVoices(ctx)
	})
}

// Providers returns the entry names in trial order.
func (f *Failover) Providers() []string {
	return f.group.Names()
}

var _ Provider = (*Failover)(nil)
