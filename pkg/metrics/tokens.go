package metrics

import "github.com/pkoukk/tiktoken-go"

// fallbackEncoding is used when the model has no registered tokenizer.
// The cl100k family covers the GPT-3.5/4 generation and is a reasonable
// stand-in for most chat models.
const fallbackEncoding = "cl100k_base"

// CountTokens counts the tokens the model's tiktoken encoding would
// produce for text. Unrecognized models fall back to cl100k_base; if
// tokenizer data cannot be loaded at all, the count degrades to a rough
// length-based estimate. Deterministic for a given (text, model) pair.
func CountTokens(text, model string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return approxTokenCount(text)
		}
	}
	return len(enc.Encode(text, nil, nil))
}

// approxTokenCount is a last-resort estimate, roughly three bytes per
// token. Not token-accurate for any particular model.
func approxTokenCount(text string) int {
	return len(text) / 3
}
