// Package llm issues buffered and streamed probe requests against
// chat-completions and responses style endpoints and normalizes both
// into one timed, token-counted result.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/llmpulse/llmpulse/pkg/metrics"
)

// DefaultTimeout bounds a single call, including the full body or
// stream read.
const DefaultTimeout = 120 * time.Second

// Config is the immutable client configuration.
type Config struct {
	// Endpoint is the full URL of the chat-completions or responses API.
	Endpoint string

	// APIKey is sent both as a bearer token and under the api-key
	// header (Azure convention). Both carry the same secret.
	APIKey string

	// Model identifier, also used to pick the fallback tokenizer.
	Model string

	// Timeout bounds the whole request/response cycle. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// ReasoningEffort is an optional low/medium/high hint.
	ReasoningEffort string

	// MaxTokens caps the generated output when > 0.
	MaxTokens int

	// NoCache asks the responses API not to store the response
	// (store: false). Ignored by chat-completions endpoints.
	NoCache bool
}

// Completion is the normalized outcome of one successful call.
type Completion struct {
	Content string
	Timing  metrics.Timing
	Tokens  metrics.Tokens
}

// Client issues probe calls against one endpoint/model pair. It is
// read-only after construction; the batch runner calls it sequentially.
type Client struct {
	cfg        Config
	format     Format
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client and classifies the endpoint format once.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		format:     DetectFormat(cfg.Endpoint),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Format returns the wire format the client was classified with.
func (c *Client) Format() Format {
	return c.format
}

// newRequest marshals the body and attaches both auth headers.
func (c *Client) newRequest(ctx context.Context, prompt string, stream bool) (*http.Request, error) {
	body, err := json.Marshal(c.buildRequestBody(prompt, stream))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("api-key", c.cfg.APIKey)
	return req, nil
}

// Call issues one buffered request. Failures come back as a *CallError;
// nothing is retried and nothing panics past this boundary.
func (c *Client) Call(ctx context.Context, prompt string) (*Completion, error) {
	req, err := c.newRequest(ctx, prompt, false)
	if err != nil {
		return nil, unexpectedFailure(err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err, c.cfg.Timeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	latencyMS := elapsedMS(start)
	if err != nil {
		return nil, classifyTransport(err, c.cfg.Timeout)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("probe call rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("endpoint", c.cfg.Endpoint),
		)
		return nil, classifyStatus(resp.StatusCode)
	}

	content, tokens, cerr := c.parseEnvelope(body)
	if cerr != nil {
		return nil, cerr
	}

	// Some gateways omit usage; count locally so throughput still works.
	if tokens.CompletionTokens == 0 && content != "" {
		tokens.CompletionTokens = metrics.CountTokens(content, c.cfg.Model)
		tokens.TotalTokens = tokens.PromptTokens + tokens.CompletionTokens
	}

	c.logger.Debug("probe call complete",
		zap.Float64("latency_ms", latencyMS),
		zap.Int("completion_tokens", tokens.CompletionTokens),
	)

	return &Completion{
		Content: content,
		Timing:  metrics.Timing{TotalLatencyMS: latencyMS},
		Tokens:  tokens,
	}, nil
}

// parseEnvelope decodes a buffered success body per the classified
// format.
func (c *Client) parseEnvelope(body []byte) (string, metrics.Tokens, error) {
	if c.format == FormatResponses {
		var env responsesEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return "", metrics.Tokens{}, parseFailure(err)
		}
		content, tokens := extractResponses(&env)
		return content, tokens, nil
	}

	var env chatEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", metrics.Tokens{}, parseFailure(err)
	}
	content, tokens := extractChat(&env)
	return content, tokens, nil
}

// elapsedMS returns wall-clock milliseconds since start, rounded to two
// decimal places.
func elapsedMS(start time.Time) float64 {
	return metrics.Round2(float64(time.Since(start).Nanoseconds()) / 1e6)
}
