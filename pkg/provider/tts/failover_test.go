package tts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quotevox/quotevox/internal/resilience"
	"github.com/quotevox/quotevox/pkg/provider/tts"
	"github.com/quotevox/quotevox/pkg/provider/tts/mock"
	"github.com/quotevox/quotevox/pkg/types"
)

func TestFailover_PrimaryHealthy(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{}
	standby := &mock.Provider{}
	f, err := tts.NewFailover(resilience.BreakerConfig{},
		tts.FailoverEntry{Name: "elevenlabs", Provider: primary, Voice: types.VoiceProfile{ID: "mel", Provider: "elevenlabs"}},
		tts.FailoverEntry{Name: "openai", Provider: standby, Voice: types.VoiceProfile{ID: "alloy", Provider: "openai"}},
	)
	if err != nil {
		t.Fatalf("NewFailover: %v", err)
	}

	events, err := f.Speak(context.Background(), "What fuel does the car use?", types.VoiceProfile{})
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	for range events {
	}

	if len(primary.SpeakCalls) != 1 {
		t.Fatalf("primary Speak calls = %d, want 1", len(primary.SpeakCalls))
	}
	if len(standby.SpeakCalls) != 0 {
		t.Fatalf("standby Speak calls = %d, want 0", len(standby.SpeakCalls))
	}
	// Each entry speaks with its own voice.
	if got := primary.SpeakCalls[0].Voice.ID; got != "mel" {
		t.Errorf("primary voice = %q, want mel", got)
	}
}

func TestFailover_FallsBackOnSpeakError(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{SpeakErr: errors.New("quota exceeded")}
	standby := &mock.Provider{}
	f, err := tts.NewFailover(resilience.BreakerConfig{},
		tts.FailoverEntry{Name: "elevenlabs", Provider: primary, Voice: types.VoiceProfile{ID: "mel"}},
		tts.FailoverEntry{Name: "openai", Provider: standby, Voice: types.VoiceProfile{ID: "alloy"}},
	)
	if err != nil {
		t.Fatalf("NewFailover: %v", err)
	}

	events, err := f.Speak(context.Background(), "And the model?", types.VoiceProfile{})
	if err != nil {
		t.Fatalf("Speak: %v, want standby to answer", err)
	}
	for range events {
	}

	if len(standby.SpeakCalls) != 1 {
		t.Fatalf("standby Speak calls = %d, want 1", len(standby.SpeakCalls))
	}
	if got := standby.SpeakCalls[0].Voice.ID; got != "alloy" {
		t.Errorf("standby voice = %q, want alloy", got)
	}
}

func TestFailover_OpenBreakerSkipsPrimary(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{SpeakErr: errors.New("service down")}
	standby := &mock.Provider{}
	f, err := tts.NewFailover(
		resilience.BreakerConfig{MaxFailures: 1, Cooldown: time.Minute},
		tts.FailoverEntry{Name: "elevenlabs", Provider: primary},
		tts.FailoverEntry{Name: "openai", Provider: standby},
	)
	if err != nil {
		t.Fatalf("NewFailover: %v", err)
	}

	for i := 0; i < 2; i++ {
		events, err := f.Speak(context.Background(), "Is the car petrol or diesel?", types.VoiceProfile{ID: "alloy"})
		if err != nil {
			t.Fatalf("Speak %d: %v", i, err)
		}
		for range events {
		}
	}

	// One failure trips the primary; the second Speak must not touch it.
	if len(primary.SpeakCalls) != 1 {
		t.Errorf("primary Speak calls = %d, want 1", len(primary.SpeakCalls))
	}
	if len(standby.SpeakCalls) != 2 {
		t.Errorf("standby Speak calls = %d, want 2", len(standby.SpeakCalls))
	}
}

func TestFailover_CallerVoiceWhenEntryHasNone(t *testing.T) {
	t.Parallel()

	primary := &mock.Provider{}
	f, err := tts.NewFailover(resilience.BreakerConfig{},
		tts.FailoverEntry{Name: "console", Provider: primary},
	)
	if err != nil {
		t.Fatalf("NewFailover: %v", err)
	}

	events, err := f.Speak(context.Background(), "hello", types.VoiceProfile{ID: "mel", Provider: "elevenlabs"})
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	for range events {
	}

	if got := primary.SpeakCalls[0].Voice.ID; got != "mel" {
		t.Errorf("voice = %q, want the caller's mel", got)
	}
}

func TestFailover_AllFail(t *testing.T) {
	t.Parallel()

	f, err := tts.NewFailover(resilience.BreakerConfig{},
		tts.FailoverEntry{Name: "elevenlabs", Provider: &mock.Provider{SpeakErr: errors.New("down")}},
		tts.FailoverEntry{Name: "openai", Provider: &mock.Provider{SpeakErr: errors.New("also down")}},
	)
	if err != nil {
		t.Fatalf("NewFailover: %v", err)
	}

	_, err = f.Speak(context.Background(), "hello", types.VoiceProfile{})
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("Speak = %v, want ErrAllFailed", err)
	}
}

func TestFailover_ListVoicesFallsThrough(t *testing.T) {
	t.Parallel()

	voices := []types.VoiceProfile{{ID: "alloy", Provider: "openai"}}
	f, err := tts.NewFailover(resilience.BreakerConfig{},
		tts.FailoverEntry{Name: "elevenlabs", Provider: &mock.Provider{ListVoicesErr: errors.New("down")}},
		tts.FailoverEntry{Name: "openai", Provider: &mock.Provider{Voices: voices}},
	)
	if err != nil {
		t.Fatalf("NewFailover: %v", err)
	}

	got, err := f.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(got) != 1 || got[0].ID != "alloy" {
		t.Errorf("ListVoices = %+v, want the standby's catalogue", got)
	}
}

func TestNewFailover_Validation(t *testing.T) {
	t.Parallel()

	if _, err := tts.NewFailover(resilience.BreakerConfig{}); err == nil {
		t.Error("NewFailover() with no entries succeeded, want error")
	}
	if _, err := tts.NewFailover(resilience.BreakerConfig{}, tts.FailoverEntry{Name: "x"}); err == nil {
		t.Error("NewFailover() with nil provider succeeded, want error")
	}
	if _, err := tts.NewFailover(resilience.BreakerConfig{}, tts.FailoverEntry{Provider: &mock.Provider{}}); err == nil {
		t.Error("NewFailover() with empty name succeeded, want error")
	}
}
