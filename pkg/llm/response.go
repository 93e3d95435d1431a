package llm

import (
	"strings"

	"github.com/llmpulse/llmpulse/pkg/metrics"
)

// usage is the token accounting block. Chat-completions and the
// responses API use different key names; both sets live here so one
// struct decodes either envelope.
type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatEnvelope is the buffered chat-completions success envelope.
type chatEnvelope struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage usage `json:"usage"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Content []contentItem `json:"content"`
}

// responsesEnvelope is the buffered responses-API success envelope.
type responsesEnvelope struct {
	Output []outputItem `json:"output"`
	Usage  usage        `json:"usage"`
}

// extractChat pulls content and usage out of a chat-completions
// envelope. Missing choices mean empty content, not an error.
func extractChat(env *chatEnvelope) (string, metrics.Tokens) {
	var content string
	if len(env.Choices) > 0 {
		content = env.Choices[0].Message.Content
	}
	return content, metrics.Tokens{
		PromptTokens:     env.Usage.PromptTokens,
		CompletionTokens: env.Usage.CompletionTokens,
		TotalTokens:      env.Usage.TotalTokens,
	}
}

// extractResponses joins the output_text fragments of every message
// item, skipping reasoning and tool items.
func extractResponses(env *responsesEnvelope) (string, metrics.Tokens) {
	var sb strings.Builder
	for _, item := range env.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				sb.WriteString(c.Text)
			}
		}
	}
	return sb.String(), metrics.Tokens{
		PromptTokens:     env.Usage.InputTokens,
		CompletionTokens: env.Usage.OutputTokens,
		TotalTokens:      env.Usage.TotalTokens,
	}
}
