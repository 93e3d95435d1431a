package llm

import "strings"

// Format selects which of the two supported wire shapes an endpoint
// speaks. It is detected once at client construction and fixed for the
// client's lifetime.
type Format int

const (
	// FormatChatCompletions is the OpenAI chat-completions shape.
	FormatChatCompletions Format = iota
	// FormatResponses is the responses-API shape used by OpenAI and
	// Azure /responses endpoints.
	FormatResponses
)

func (f Format) String() string {
	if f == FormatResponses {
		return "responses"
	}
	return "chat-completions"
}

// DetectFormat classifies an endpoint URL by its path.
func DetectFormat(endpoint string) Format {
	if strings.Contains(endpoint, "/responses") {
		return FormatResponses
	}
	return FormatChatCompletions
}
