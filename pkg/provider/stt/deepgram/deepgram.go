// Package deepgram provides a Deepgram-backed STT provider using the
// Deepgram live-streaming WebSocket API. It implements the stt.Provider
// interface.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/quotevox/quotevox/pkg/provider/stt"
	"github.com/quotevox/quotevox/pkg/types"
)

const (
	defaultEndpoint   = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model (e.g., "nova-3", "nova-2-phonecall").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default recognition language. A non-empty
// StreamConfig.Language takes precedence per session.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithSampleRate sets the default audio sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// WithEndpoint overrides the WebSocket endpoint, e.g. for a self-hosted
// Deepgram deployment.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey     string
	endpoint   string
	model      string
	language   string
	sampleRate int
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		model:      defaultModel,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Start implements stt.Provider. It dials the Deepgram WebSocket endpoint and
// spawns the session's reader and writer goroutines.
func (p *Provider) Start(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	rawURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+p.apiKey)

	conn, _, err := websocket.Dial(ctx, rawURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w", err)
	}
	// Raw audio chunks can exceed the library's 32 KiB default.
	conn.SetReadLimit(1 << 20)

	s := &session{
		conn:    conn,
		results: make(chan types.Transcript, 64),
		audio:   make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.writeLoop(ctx)
	return s, nil
}

// buildURL assembles the listen URL with query parameters for the session.
// Session config values take precedence over provider defaults.
func (p *Provider) buildURL(cfg stt.StreamConfig) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := p.language
	if cfg.Language != "" {
		lang = cfg.Language
	}
	rate := p.sampleRate
	if cfg.SampleRate > 0 {
		rate = cfg.SampleRate
	}
	channels := cfg.Channels
	if channels < 1 {
		channels = 1
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(rate))
	q.Set("channels", strconv.Itoa(channels))
	q.Set("encoding", "linear16")
	for _, kw := range cfg.Keywords {
		q.Add("keywords", fmt.Sprintf("%s:%g", kw.Keyword, kw.Boost))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- session ----

// session is a live Deepgram recognition stream.
type session struct {
	conn    *websocket.Conn
	results chan types.Transcript
	audio   chan []byte
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	kwMu     sync.Mutex
	keywords []types.KeywordBoost
}

// SendAudio queues one chunk of raw audio for delivery to Deepgram.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: session closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: session closed")
	}
}

// Results returns the channel carrying partial and final transcripts.
func (s *session) Results() <-chan types.Transcript {
	return s.results
}

// SetKeywords records the requested boosts but cannot apply them: the
// Deepgram listen protocol fixes keywords in the connect URL. The stored
// list is picked up if the caller reconnects.
func (s *session) SetKeywords(keywords []types.KeywordBoost) error {
	s.kwMu.Lock()
	s.keywords = keywords
	s.kwMu.Unlock()
	return fmt.Errorf("deepgram: update keywords on open stream: %w", stt.ErrNotSupported)
}

// Close flushes the stream and tears down the connection. Safe to call
// multiple times.
func (s *session) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		// Ask Deepgram to flush any buffered audio into a final result.
		closeMsg := []byte(`{"type":"CloseStream"}`)
		_ = s.conn.Write(context.Background(), websocket.MessageText, closeMsg)
		s.wg.Wait()
		err = s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return err
}

// writeLoop forwards queued audio chunks to the WebSocket until the session
// is closed or the context is cancelled.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk := <-s.audio:
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				slog.Debug("deepgram write failed", "error", err)
				return
			}
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// readLoop consumes WebSocket messages, converts Results payloads to
// transcripts, and publishes them in arrival order.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.results)
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
			default:
				slog.Debug("deepgram read failed", "error", err)
			}
			return
		}
		tr, ok := parseResult(msg)
		if !ok {
			continue
		}
		select {
		case s.results <- tr:
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ---- wire format ----

// listenResult mirrors the subset of the Deepgram Results message we consume.
type listenResult struct {
	Type     string  `json:"type"`
	IsFinal  bool    `json:"is_final"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Channel  struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseResult converts a raw Deepgram message into a Transcript. It reports
// ok=false for non-Results messages (Metadata, SpeechStarted, UtteranceEnd)
// and for Results frames without alternatives.
func parseResult(raw []byte) (types.Transcript, bool) {
	var res listenResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return types.Transcript{}, false
	}
	if res.Type != "Results" || len(res.Channel.Alternatives) == 0 {
		return types.Transcript{}, false
	}

	alt := res.Channel.Alternatives[0]
	tr := types.Transcript{
		Text:       alt.Transcript,
		IsFinal:    res.IsFinal,
		Confidence: alt.Confidence,
		Timestamp:  secondsToDuration(res.Start),
		Duration:   secondsToDuration(res.Duration),
	}
	for _, w := range alt.Words {
		tr.Words = append(tr.Words, types.WordDetail{
			Word:       w.Word,
			Start:      secondsToDuration(w.Start),
			End:        secondsToDuration(w.End),
			Confidence: w.Confidence,
		})
	}
	return tr, true
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Ensure session implements stt.SessionHandle at compile time.
var _ stt.SessionHandle = (*session)(nil)

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
