// Package backend is the REST client for the quote service that owns
// question flows and collects answers.
//
// The client is deliberately thin: JSON bodies, context deadlines, wrapped
// errors, and no retries. A failed submission surfaces to the dialogue
// layer, which re-asks the question rather than looping on the wire. A
// circuit breaker keeps the per-turn cost of a dead service bounded.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/quotevox/quotevox/internal/observe"
	"github.com/quotevox/quotevox/internal/question"
	"github.com/quotevox/quotevox/internal/resilience"
	"github.com/quotevox/quotevox/pkg/types"
)

// tracePropagator puts W3C trace context on outbound requests so the quote
// service can join its telemetry to ours.
var tracePropagator = propagation.TraceContext{}

const (
	defaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is echoed into error
	// messages.
	maxErrorBody = 512
)

// Submission is one answered question on its way to the quote service.
type Submission struct {
	SessionID  string    `json:"session_id"`
	QuestionID string    `json:"question_id"`
	Answer     string    `json:"answer"`
	Source     string    `json:"source"`
	RawText    string    `json:"raw_text,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Client talks to the quote service. Create one with New.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	breaker *resilience.Breaker
	metrics *observe.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: base URL is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultTimeout},
		metrics: observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "quote-backend"})
	}
	return c, nil
}

// SubmitAnswer posts one answer to the quote service. It does not retry.
func (c *Client) SubmitAnswer(ctx context.Context, sub Submission) (err error) {
	if sub.SessionID == "" || sub.QuestionID == "" {
		return errors.New("backend: submission needs session and question IDs")
	}
	ctx, span := observe.StartSpan(ctx, "backend.submit_answer",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("question_id", sub.QuestionID)),
	)
	defer func() { observe.EndSpan(span, err) }()

	start := time.Now()
	err = c.breaker.Do(func() error {
		path := "/v1/sessions/" + url.PathEscape(sub.SessionID) + "/answers"
		return c.postJSON(ctx, path, sub)
	})
	c.metrics.RecordProviderCall(ctx, "backend", "submit", time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordProviderError(ctx, "backend", "submit")
		return fmt.Errorf("backend: submit answer %s/%s: %w", sub.SessionID, sub.QuestionID, err)
	}
	return nil
}

// FetchFlow retrieves a question flow by ID, applying the same defaults and
// validation as the YAML loader. Unknown flows return an error wrapping
// [question.ErrNotFound].
func (c *Client) FetchFlow(ctx context.Context, flowID string) (_ *question.Flow, err error) {
	if flowID == "" {
		return nil, errors.New("backend: flow id is required")
	}
	ctx, span := observe.StartSpan(ctx, "backend.fetch_flow",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("flow_id", flowID)),
	)
	defer func() { observe.EndSpan(span, err) }()

	var (
		flow     question.Flow
		notFound bool
	)
	start := time.Now()
	err = c.breaker.Do(func() error {
		err := c.getJSON(ctx, "/v1/flows/"+url.PathEscape(flowID), &flow)
		if errors.Is(err, question.ErrNotFound) {
			// A 404 is an answer, not an outage; it must not charge
			// the breaker.
			notFound = true
			return nil
		}
		return err
	})
	c.metrics.RecordProviderCall(ctx, "backend", "flow", time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordProviderError(ctx, "backend", "flow")
		return nil, fmt.Errorf("backend: fetch flow %q: %w", flowID, err)
	}
	if notFound {
		return nil, fmt.Errorf("backend: fetch flow %q: %w", flowID, question.ErrNotFound)
	}

	flow.Normalize()
	if err := flow.Validate(); err != nil {
		return nil, fmt.Errorf("backend: flow %q invalid: %w", flowID, err)
	}
	return &flow, nil
}

// FetchOptions retrieves the option list for a question given the parent
// question's answer value. Unknown questions return an error wrapping
// [question.ErrNotFound].
func (c *Client) FetchOptions(ctx context.Context, questionID, parentValue string) (_ []types.AnswerOption, err error) {
	if questionID == "" {
		return nil, errors.New("backend: question id is required")
	}
	ctx, span := observe.StartSpan(ctx, "backend.fetch_options",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("question_id", questionID)),
	)
	defer func() { observe.EndSpan(span, err) }()

	path := "/v1/questions/" + url.PathEscape(questionID) + "/options"
	if parentValue != "" {
		path += "?parent=" + url.QueryEscape(parentValue)
	}

	var (
		opts     []types.AnswerOption
		notFound bool
	)
	start := time.Now()
	err = c.breaker.Do(func() error {
		err := c.getJSON(ctx, path, &opts)
		if errors.Is(err, question.ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	c.metrics.RecordProviderCall(ctx, "backend", "options", time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordProviderError(ctx, "backend", "options")
		return nil, fmt.Errorf("backend: fetch options for %q: %w", questionID, err)
	}
	if notFound {
		return nil, fmt.Errorf("backend: fetch options for %q: %w", questionID, question.ErrNotFound)
	}
	return opts, nil
}

// OptionsFor implements [question.OptionSource].
func (c *Client) OptionsFor(ctx context.Context, questionID, parentValue string) ([]types.AnswerOption, error) {
	return c.FetchOptions(ctx, questionID, parentValue)
}

// Ping checks that the quote service answers, for readiness probes. It
// bypasses the circuit breaker so readiness always reports the live state.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.getJSON(ctx, "/v1/ping", nil); err != nil {
		return fmt.Errorf("backend: ping: %w", err)
	}
	return nil
}

// postJSON sends body as JSON and checks for a 2xx response.
func (c *Client) postJSON(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tracePropagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// getJSON performs a GET and decodes the response into v when v is non-nil.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	tracePropagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// checkStatus maps a non-2xx response to an error, echoing a bounded body
// snippet. 404 becomes [question.ErrNotFound].
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return question.ErrNotFound
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if msg := strings.TrimSpace(string(snippet)); msg != "" {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

var _ question.OptionSource = (*Client)(nil)
