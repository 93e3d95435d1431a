package llm

// Message is a single chat-completions conversation entry. The probe
// always sends exactly one user message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat-completions request shape.
type chatRequest struct {
	Model           string    `json:"model"`
	Messages        []Message `json:"messages"`
	Stream          bool      `json:"stream"`
	ReasoningEffort string    `json:"reasoning_effort,omitempty"`
	MaxTokens       int       `json:"max_tokens,omitempty"`
}

// reasoningParams carries the effort hint in the responses format.
type reasoningParams struct {
	Effort string `json:"effort"`
}

// responsesRequest is the responses-API request shape.
type responsesRequest struct {
	Model           string           `json:"model"`
	Input           string           `json:"input"`
	Stream          bool             `json:"stream"`
	Reasoning       *reasoningParams `json:"reasoning,omitempty"`
	MaxOutputTokens int              `json:"max_output_tokens,omitempty"`
	Store           *bool            `json:"store,omitempty"`
}

// buildRequestBody produces the format-appropriate body for one call.
// Optional fields are left out entirely when not configured, never sent
// as null.
func (c *Client) buildRequestBody(prompt string, stream bool) any {
	if c.format == FormatResponses {
		req := &responsesRequest{
			Model:  c.cfg.Model,
			Input:  prompt,
			Stream: stream,
		}
		if c.cfg.ReasoningEffort != "" {
			req.Reasoning = &reasoningParams{Effort: c.cfg.ReasoningEffort}
		}
		if c.cfg.MaxTokens > 0 {
			req.MaxOutputTokens = c.cfg.MaxTokens
		}
		if c.cfg.NoCache {
			store := false
			req.Store = &store
		}
		return req
	}

	req := &chatRequest{
		Model:    c.cfg.Model,
		Messages: []Message{{Role: "user", Content: prompt}},
		Stream:   stream,
	}
	if c.cfg.ReasoningEffort != "" {
		req.ReasoningEffort = c.cfg.ReasoningEffort
	}
	if c.cfg.MaxTokens > 0 {
		req.MaxTokens = c.cfg.MaxTokens
	}
	return req
}
