package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/llmpulse/llmpulse/pkg/metrics"
)

// SSE framing.
const (
	ssePrefix = "data: "
	sseDone   = "[DONE]"
)

// maxEventSize bounds a single SSE line. Delta events are tiny but a
// completed event can echo the whole response.
const maxEventSize = 1024 * 1024

// streamObservation is what one decoded event contributes, independent
// of how the accumulating loop folds it in.
type streamObservation struct {
	content          string
	reasoning        string
	completionTokens int
	hasUsage         bool
	terminal         bool
}

// responsesStreamEvent covers the responses-API event shapes the probe
// cares about. Unknown event types decode to the zero observation and
// fall through harmlessly.
type responsesStreamEvent struct {
	Type     string `json:"type"`
	Delta    string `json:"delta"`
	Text     string `json:"text"`
	Response struct {
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"response"`
}

// chatStreamChunk is one chat-completions delta event.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// interpretEvent decodes one SSE data payload. ok is false when the
// JSON is malformed; the stream continues either way.
func (c *Client) interpretEvent(data []byte) (streamObservation, bool) {
	if c.format == FormatResponses {
		return interpretResponsesEvent(data)
	}
	return interpretChatEvent(data)
}

func interpretResponsesEvent(data []byte) (streamObservation, bool) {
	var ev responsesStreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return streamObservation{}, false
	}

	var obs streamObservation
	switch ev.Type {
	case "response.output_text.delta":
		obs.content = ev.Delta
	case "response.reasoning_text.delta", "response.reasoning.delta":
		// Providers disagree on the key name here.
		if ev.Delta != "" {
			obs.reasoning = ev.Delta
		} else {
			obs.reasoning = ev.Text
		}
	case "response.completed":
		obs.terminal = true
		if ev.Response.Usage.OutputTokens > 0 {
			obs.completionTokens = ev.Response.Usage.OutputTokens
			obs.hasUsage = true
		}
	}
	return obs, true
}

func interpretChatEvent(data []byte) (streamObservation, bool) {
	var ev chatStreamChunk
	if err := json.Unmarshal(data, &ev); err != nil {
		return streamObservation{}, false
	}

	var obs streamObservation
	if len(ev.Choices) > 0 {
		obs.content = ev.Choices[0].Delta.Content
	}
	if ev.Usage != nil {
		obs.completionTokens = ev.Usage.CompletionTokens
		obs.hasUsage = true
	}
	return obs, true
}

// CallStream issues one streaming request and consumes the SSE stream
// until [DONE] or a terminal completion event. The first non-empty
// content fragment stamps TTFT, the first reasoning fragment stamps
// TTFR. A broken stream discards partial content and fails the call.
func (c *Client) CallStream(ctx context.Context, prompt string) (*Completion, error) {
	req, err := c.newRequest(ctx, prompt, true)
	if err != nil {
		return nil, unexpectedFailure(err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err, c.cfg.Timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("probe stream rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("endpoint", c.cfg.Endpoint),
		)
		return nil, classifyStatus(resp.StatusCode)
	}

	var (
		sb               strings.Builder
		ttft             *float64
		ttfr             *float64
		completionTokens int
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, ssePrefix))
		if data == sseDone {
			break
		}

		obs, ok := c.interpretEvent([]byte(data))
		if !ok {
			c.logger.Debug("skipping malformed stream event", zap.String("data", data))
			continue
		}

		if obs.content != "" {
			if ttft == nil {
				v := elapsedMS(start)
				ttft = &v
			}
			sb.WriteString(obs.content)
		}
		if obs.reasoning != "" && ttfr == nil {
			v := elapsedMS(start)
			ttfr = &v
		}
		if obs.hasUsage {
			completionTokens = obs.completionTokens
		}
		if obs.terminal {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, classifyTransport(err, c.cfg.Timeout)
	}

	totalMS := elapsedMS(start)
	content := sb.String()

	if completionTokens == 0 && content != "" {
		completionTokens = metrics.CountTokens(content, c.cfg.Model)
	}

	c.logger.Debug("probe stream complete",
		zap.Float64("latency_ms", totalMS),
		zap.Int("completion_tokens", completionTokens),
		zap.Bool("saw_content", content != ""),
	)

	// The stream never reports prompt tokens, so total == completion.
	return &Completion{
		Content: content,
		Timing:  metrics.Timing{TotalLatencyMS: totalMS, TTFTMS: ttft, TTFRMS: ttfr},
		Tokens:  metrics.Tokens{CompletionTokens: completionTokens, TotalTokens: completionTokens},
	}, nil
}
