// Package elevenlabs provides an ElevenLabs-backed TTS provider using the
// ElevenLabs streaming WebSocket API. It implements the tts.Provider
// interface.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/quotevox/quotevox/pkg/provider/tts"
	"github.com/quotevox/quotevox/pkg/types"
)

const (
	// wsEndpointFmt takes the voice ID and model ID.
	wsEndpointFmt    = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s"
	voicesEndpoint   = "https://api.elevenlabs.io/v1/voices"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "pcm_16000"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithOutputFormat sets the audio output format (e.g., "pcm_16000", "pcm_24000").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithAudioSink directs synthesized PCM to w. Without it audio is discarded,
// which is what console simulation wants.
func WithAudioSink(w io.Writer) Option {
	return func(p *Provider) {
		p.sink = w
	}
}

// WithEndpointFormat overrides the WebSocket endpoint format string. It must
// contain two %s verbs, filled with the voice ID and model ID. Used to point
// at a test or proxy server.
func WithEndpointFormat(format string) Option {
	return func(p *Provider) {
		p.endpointFmt = format
	}
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	model        string
	outputFormat string
	endpointFmt  string
	sink         io.Writer
	httpClient   *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		endpointFmt:  wsEndpointFmt,
		sink:         io.Discard,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent to ElevenLabs for a text fragment.
// An empty Text flushes the stream and ends the utterance.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// handshakeMessage opens the stream: it authenticates and selects the output
// format. ElevenLabs requires a non-empty first text value.
type handshakeMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
	OutputFormat  string         `json:"output_format,omitempty"`
}

// audioFrame is a JSON message received from ElevenLabs over the WebSocket.
type audioFrame struct {
	Audio   string `json:"audio"` // base64-encoded PCM, may be empty
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// Speak implements tts.Provider. It opens a WebSocket for the single
// utterance, streams decoded PCM to the configured sink, and reports
// lifecycle events on the returned channel.
func (p *Provider) Speak(ctx context.Context, text string, voice types.VoiceProfile) (<-chan tts.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("elevenlabs: text must not be empty")
	}
	if voice.ID == "" {
		return nil, errors.New("elevenlabs: voice.ID must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, buildVoiceURL(p.endpointFmt, voice.ID, p.model), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	handshake := handshakeMessage{
		Text:          " ",
		VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
		XiAPIKey:      p.apiKey,
		OutputFormat:  p.outputFormat,
	}
	if err := writeJSON(ctx, conn, handshake); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("elevenlabs: send handshake: %w", err)
	}

	events := make(chan tts.Event, 4)
	go p.synthesize(ctx, conn, text, events)
	return events, nil
}

// synthesize sends the utterance text plus the flush marker, then drains
// audio frames into the sink until the final frame arrives.
func (p *Provider) synthesize(ctx context.Context, conn *websocket.Conn, text string, events chan<- tts.Event) {
	defer close(events)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// ElevenLabs buffers input until a flush; trailing space forces the last
	// word to be synthesized with the rest.
	if err := writeJSON(ctx, conn, textMessage{Text: text + " "}); err != nil {
		events <- tts.Event{Kind: tts.EventError, Err: fmt.Errorf("elevenlabs: send text: %w", err)}
		return
	}
	if err := writeJSON(ctx, conn, textMessage{Text: ""}); err != nil {
		events <- tts.Event{Kind: tts.EventError, Err: fmt.Errorf("elevenlabs: flush: %w", err)}
		return
	}

	started := false
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			events <- tts.Event{Kind: tts.EventError, Err: fmt.Errorf("elevenlabs: read audio: %w", err)}
			return
		}

		pcm, final, err := decodeAudioFrame(msg)
		if err != nil {
			events <- tts.Event{Kind: tts.EventError, Err: err}
			return
		}
		if len(pcm) > 0 {
			if !started {
				started = true
				events <- tts.Event{Kind: tts.EventStarted}
			}
			if _, err := p.sink.Write(pcm); err != nil {
				events <- tts.Event{Kind: tts.EventError, Err: fmt.Errorf("elevenlabs: write sink: %w", err)}
				return
			}
		}
		if final {
			if !started {
				events <- tts.Event{Kind: tts.EventStarted}
			}
			events <- tts.Event{Kind: tts.EventEnded}
			return
		}
	}
}

// decodeAudioFrame parses one WebSocket message. It returns the decoded PCM
// (may be empty for the final marker frame), whether this frame ends the
// utterance, and an error for frames that signal a server-side failure.
func decodeAudioFrame(raw []byte) (pcm []byte, final bool, err error) {
	var frame audioFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, false, fmt.Errorf("elevenlabs: malformed frame: %w", err)
	}
	if frame.Message != "" && frame.Audio == "" && !frame.IsFinal {
		return nil, false, fmt.Errorf("elevenlabs: server: %s", frame.Message)
	}
	if frame.Audio == "" {
		return nil, frame.IsFinal, nil
	}
	pcm, err = base64.StdEncoding.DecodeString(frame.Audio)
	if err != nil {
		return nil, false, fmt.Errorf("elevenlabs: decode audio: %w", err)
	}
	return pcm, frame.IsFinal, nil
}

// writeJSON marshals v and writes it as a text message.
func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// buildVoiceURL fills the endpoint format with the voice and model IDs.
func buildVoiceURL(format, voiceID, model string) string {
	return fmt.Sprintf(format, voiceID, model)
}

// ---- ListVoices ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available from ElevenLabs for the configured
// API key.
func (p *Provider) ListVoices(ctx context.Context) ([]types.VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices read: %w", err)
	}
	profiles, err := parseVoicesResponse(body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return profiles, nil
}

// parseVoicesResponse parses the raw /v1/voices response body into
// VoiceProfile values.
func parseVoicesResponse(data []byte) ([]types.VoiceProfile, error) {
	var vr voicesResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, err
	}
	profiles := make([]types.VoiceProfile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		profiles = append(profiles, types.VoiceProfile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return profiles, nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
