package config

import "reflect"

// ConfigDiff describes what changed between two configs. The log level is the
// only change applied to a running server; the remaining flags let the server
// log that a restart is needed for the change to take effect.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ProvidersChanged bool
	FlowChanged      bool
	BackendChanged   bool
	DialogChanged    bool
	VoiceChanged     bool
	StreamChanged    bool
	JournalChanged   bool
}

// RestartNeeded reports whether any changed section cannot be applied without
// restarting the server.
func (d ConfigDiff) RestartNeeded() bool {
	return d.ProvidersChanged || d.FlowChanged || d.BackendChanged ||
		d.DialogChanged || d.VoiceChanged || d.StreamChanged || d.JournalChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	d.ProvidersChanged = providersChanged(old.Providers, new.Providers)
	d.FlowChanged = old.Flow != new.Flow
	d.BackendChanged = old.Backend != new.Backend
	d.DialogChanged = old.Dialog != new.Dialog
	d.VoiceChanged = old.Voice != new.Voice
	d.StreamChanged = old.Stream != new.Stream
	d.JournalChanged = old.Journal != new.Journal

	return d
}

func providersChanged(old, new ProvidersConfig) bool {
	return entryChanged(old.STT, new.STT) ||
		entryChanged(old.TTS, new.TTS) ||
		entryChanged(old.TTSFallback, new.TTSFallback) ||
		entryChanged(old.LLM, new.LLM)
}

// entryChanged compares the fixed fields directly; the free-form Options map
// needs DeepEqual since its values may themselves be maps.
func entryChanged(old, new ProviderEntry) bool {
	if old.Name != new.Name || old.APIKey != new.APIKey || old.BaseURL != new.BaseURL || old.Model != new.Model {
		return true
	}
	return !reflect.DeepEqual(old.Options, new.Options)
}
