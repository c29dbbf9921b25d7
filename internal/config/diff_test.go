package config_test

import (
	"testing"

	"github.com/quotevox/quotevox/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			STT: config.ProviderEntry{Name: "deepgram", Options: map[string]any{"tier": "enhanced"}},
		},
		Flow: config.FlowConfig{ID: "motor-quote", File: "flow.yaml"},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.RestartNeeded() {
		t.Errorf("expected RestartNeeded=false for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RestartNeeded() {
		t.Error("a log level change alone should not need a restart")
	}
}

func TestDiff_ProviderNameChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Providers: config.ProvidersConfig{TTS: config.ProviderEntry{Name: "elevenlabs"}},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{TTS: config.ProviderEntry{Name: "openai"}},
	}

	d := config.Diff(old, new)
	if !d.ProvidersChanged {
		t.Error("expected ProvidersChanged=true")
	}
	if !d.RestartNeeded() {
		t.Error("expected RestartNeeded=true")
	}
}

func TestDiff_ProviderOptionsChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Providers: config.ProvidersConfig{
			STT: config.ProviderEntry{Name: "deepgram", Options: map[string]any{"tier": "base"}},
		},
	}
	new := &config.Config{
		Providers: config.ProvidersConfig{
			STT: config.ProviderEntry{Name: "deepgram", Options: map[string]any{"tier": "enhanced"}},
		},
	}

	d := config.Diff(old, new)
	if !d.ProvidersChanged {
		t.Error("expected ProvidersChanged=true for changed options")
	}
}

func TestDiff_FlowChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Flow: config.FlowConfig{ID: "motor-quote", File: "a.yaml"}}
	new := &config.Config{Flow: config.FlowConfig{ID: "motor-quote", File: "b.yaml"}}

	d := config.Diff(old, new)
	if !d.FlowChanged {
		t.Error("expected FlowChanged=true")
	}
}

func TestDiff_DialogChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Dialog: config.DialogConfig{SilenceTimeout: "10s"}}
	new := &config.Config{Dialog: config.DialogConfig{SilenceTimeout: "8s"}}

	d := config.Diff(old, new)
	if !d.DialogChanged {
		t.Error("expected DialogChanged=true")
	}
}

func TestDiff_VoiceChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Voice: config.VoiceConfig{VoiceID: "v1"}}
	new := &config.Config{Voice: config.VoiceConfig{VoiceID: "v2"}}

	d := config.Diff(old, new)
	if !d.VoiceChanged {
		t.Error("expected VoiceChanged=true")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogInfo},
		Backend: config.BackendConfig{BaseURL: "https://a.example.com"},
		Journal: config.JournalConfig{Path: "answers.jsonl"},
	}
	new := &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogWarn},
		Backend: config.BackendConfig{BaseURL: "https://b.example.com"},
		Journal: config.JournalConfig{},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.BackendChanged {
		t.Error("expected BackendChanged=true")
	}
	if !d.JournalChanged {
		t.Error("expected JournalChanged=true")
	}
	if d.DialogChanged || d.VoiceChanged || d.StreamChanged || d.FlowChanged || d.ProvidersChanged {
		t.Errorf("unexpected section flagged: %+v", d)
	}
}
