package runner

// Config describes one batch of probe calls.
type Config struct {
	// Prompts to test, executed in order.
	Prompts []string

	// Runs is how many times each prompt is repeated.
	Runs int

	// Streaming selects the SSE call path, which is what makes TTFT
	// measurable at all.
	Streaming bool
}
