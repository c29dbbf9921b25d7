// Package openai provides a TTS provider backed by the OpenAI speech
// synthesis endpoint. It implements the tts.Provider interface.
//
// Unlike the ElevenLabs adapter this one is request/response: the whole
// utterance is synthesized in a single HTTP call and the audio body is
// streamed into the configured sink as it downloads.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/quotevox/quotevox/pkg/provider/tts"
	"github.com/quotevox/quotevox/pkg/types"
)

const defaultModel = "tts-1"

// builtinVoices is the fixed OpenAI voice catalogue. The speech endpoint has
// no list API, so ListVoices serves this table.
var builtinVoices = []string{
	"alloy", "ash", "ballad", "coral", "echo",
	"fable", "nova", "onyx", "sage", "shimmer",
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
	model   string
	sink    io.Writer
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithModel sets the speech model (e.g., "tts-1", "tts-1-hd", "gpt-4o-mini-tts").
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithAudioSink directs synthesized audio to w. Without it audio is
// discarded, which is what console simulation wants.
func WithAudioSink(w io.Writer) Option {
	return func(c *config) {
		c.sink = w
	}
}

// Provider implements tts.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
	sink   io.Writer
}

// New constructs a new OpenAI TTS Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel, sink: io.Discard}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: cfg.model, sink: cfg.sink}, nil
}

// Speak implements tts.Provider. An empty voice.ID falls back to "alloy".
func (p *Provider) Speak(ctx context.Context, text string, voice types.VoiceProfile) (<-chan tts.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("openai: text must not be empty")
	}
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = "alloy"
	}

	params := oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          text,
		Voice:          oai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if voice.SpeedFactor > 0 {
		params.Speed = param.NewOpt(voice.SpeedFactor)
	}

	resp, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: speech request: %w", err)
	}

	events := make(chan tts.Event, 4)
	go p.stream(resp, events)
	return events, nil
}

// stream copies the audio body into the sink and reports lifecycle events.
func (p *Provider) stream(resp *http.Response, events chan<- tts.Event) {
	defer close(events)
	defer resp.Body.Close()

	events <- tts.Event{Kind: tts.EventStarted}
	if _, err := io.Copy(p.sink, resp.Body); err != nil {
		events <- tts.Event{Kind: tts.EventError, Err: fmt.Errorf("openai: stream audio: %w", err)}
		return
	}
	events <- tts.Event{Kind: tts.EventEnded}
}

// ListVoices returns the static OpenAI voice catalogue.
func (p *Provider) ListVoices(_ context.Context) ([]types.VoiceProfile, error) {
	profiles := make([]types.VoiceProfile, 0, len(builtinVoices))
	for _, v := range builtinVoices {
		profiles = append(profiles, types.VoiceProfile{
			ID:       v,
			Name:     v,
			Provider: "openai",
		})
	}
	return profiles, nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
