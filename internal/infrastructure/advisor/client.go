// Package advisor asks a generative model for column mapping suggestions
// between two raw sources. It is advisory: every failure yields no suggestion.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erp/unify/internal/infrastructure/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	errNoKey       = errors.New("advisor API key is not configured")
	errRateLimited = errors.New("advisor rate limit reached")
)

// maxErrorBody bounds how much of a failed response is logged
const maxErrorBody = 512

// Client calls the Gemini generateContent endpoint behind a rate limiter and
// a circuit breaker
type Client struct {
	cfg        config.AdvisorConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the transport client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client. Zero settings fall back to conservative defaults.
func New(cfg config.AdvisorConfig, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "schema-advisor",
		MaxRequests: 1,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("advisor circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// BreakerState exposes the breaker state for health output
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// SuggestSchemaMapping returns mapping suggestions, or nil on any failure
func (c *Client) SuggestSchemaMapping(ctx context.Context, req Request) *Suggestion {
	s, err := c.suggest(ctx, req)
	if err != nil {
		level := c.logger.Warn
		if errors.Is(err, errNoKey) {
			level = c.logger.Info
		}
		level("no schema mapping suggestion", zap.Error(err), zap.String("cause", causeOf(err)))
		return nil
	}
	c.logger.Info("schema mapping suggestion received",
		zap.Int("source_a_columns", len(s.SourceA)),
		zap.Int("source_b_columns", len(s.SourceB)),
	)
	return s
}

func (c *Client) suggest(ctx context.Context, req Request) (*Suggestion, error) {
	if !c.Enabled() {
		return nil, errNoKey
	}
	if !c.limiter.Allow() {
		return nil, errRateLimited
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, BuildPrompt(req))
	})
	if err != nil {
		return nil, err
	}
	return ParseSuggestion(out.(string))
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate posts the prompt and returns the concatenated text of the first candidate
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build advisor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("advisor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &statusError{code: resp.StatusCode, body: string(snippet)}
	}
	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode advisor response: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		return "", errors.New("advisor response has no candidates")
	}
	var text strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("advisor returned HTTP %d: %s", e.code, strings.TrimSpace(e.body))
}

// causeOf labels a failure for the log line
func causeOf(err error) string {
	var se *statusError
	switch {
	case errors.Is(err, errNoKey):
		return "no_api_key"
	case errors.Is(err, errRateLimited):
		return "rate_limited"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.As(err, &se) && se.code == http.StatusTooManyRequests:
		return "quota"
	case errors.As(err, &se):
		return "http_status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrMalformedAnswer):
		return "malformed_answer"
	}
	return "request_failed"
}
