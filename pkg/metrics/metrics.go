// Package metrics turns individual probe calls into timing and token
// measurements and reduces batches of them into summary statistics.
package metrics

import "math"

// Status values recorded on a TestResult.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Timing holds the latency measurements for a single call, in
// milliseconds. TTFT and TTFR are only set for streaming calls that
// actually produced a content or reasoning fragment.
type Timing struct {
	TotalLatencyMS float64  `json:"total_latency_ms"`
	TTFTMS         *float64 `json:"ttft_ms,omitempty"`
	TTFRMS         *float64 `json:"ttfr_ms,omitempty"`
}

// Tokens holds the token usage for a single call. Streaming responses
// never report a prompt count, so there total equals completion.
type Tokens struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TestResult is one prompt execution as recorded by the batch runner.
// Successful results carry content, timing and tokens; failed results
// carry only the error message.
type TestResult struct {
	Prompt          string   `json:"prompt"`
	Status          string   `json:"status"`
	ErrorMessage    string   `json:"error,omitempty"`
	ResponseContent string   `json:"response,omitempty"`
	Timing          *Timing  `json:"timing,omitempty"`
	Tokens          *Tokens  `json:"tokens,omitempty"`
	TPS             *float64 `json:"tokens_per_second,omitempty"`
}

// AggregatedStats describes one metric across a batch.
type AggregatedStats struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// BatchSummary is the reduced view of a whole batch. Each stats pointer
// is nil when no sample for that metric exists, independently of the
// other metrics.
type BatchSummary struct {
	TotalRequests     int              `json:"total_requests"`
	Successful        int              `json:"successful"`
	Failed            int              `json:"failed"`
	LatencyStats      *AggregatedStats `json:"latency,omitempty"`
	TTFTStats         *AggregatedStats `json:"ttft,omitempty"`
	OutputTokensStats *AggregatedStats `json:"output_tokens,omitempty"`
	TPSStats          *AggregatedStats `json:"tokens_per_second,omitempty"`
}

// TPS returns tokens generated per second given a latency in
// milliseconds. Non-positive latency yields 0 rather than Inf.
func TPS(tokens int, latencyMS float64) float64 {
	if latencyMS <= 0 {
		return 0
	}
	return float64(tokens) / (latencyMS / 1000.0)
}

// Aggregate reduces a sample set to count, mean, sample standard
// deviation and range, each rounded to two decimal places. The input
// slice is not modified. Empty input yields the zero value.
func Aggregate(values []float64) AggregatedStats {
	if len(values) == 0 {
		return AggregatedStats{}
	}

	sum := 0.0
	min, max := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(len(values))

	std := 0.0
	if len(values) > 1 {
		sq := 0.0
		for _, v := range values {
			d := v - mean
			sq += d * d
		}
		std = math.Sqrt(sq / float64(len(values)-1))
	}

	return AggregatedStats{
		Count: len(values),
		Avg:   Round2(mean),
		Std:   Round2(std),
		Min:   Round2(min),
		Max:   Round2(max),
	}
}

// Summarize partitions results by status and aggregates each metric
// over whatever samples exist. Metrics are independent: a buffered
// batch has latency stats but no TTFT stats even when every call
// succeeded.
func Summarize(results []TestResult) BatchSummary {
	var (
		latencies    []float64
		ttfts        []float64
		outputTokens []float64
		tpsValues    []float64
		successful   int
	)

	for _, r := range results {
		if r.Status != StatusSuccess {
			continue
		}
		successful++

		if r.Timing != nil {
			latencies = append(latencies, r.Timing.TotalLatencyMS)
			if r.Timing.TTFTMS != nil {
				ttfts = append(ttfts, *r.Timing.TTFTMS)
			}
		}
		if r.Tokens != nil {
			outputTokens = append(outputTokens, float64(r.Tokens.CompletionTokens))
		}
		if r.TPS != nil {
			tpsValues = append(tpsValues, *r.TPS)
		}
	}

	summary := BatchSummary{
		TotalRequests: len(results),
		Successful:    successful,
		Failed:        len(results) - successful,
	}
	if len(latencies) > 0 {
		s := Aggregate(latencies)
		summary.LatencyStats = &s
	}
	if len(ttfts) > 0 {
		s := Aggregate(ttfts)
		summary.TTFTStats = &s
	}
	if len(outputTokens) > 0 {
		s := Aggregate(outputTokens)
		summary.OutputTokensStats = &s
	}
	if len(tpsValues) > 0 {
		s := Aggregate(tpsValues)
		summary.TPSStats = &s
	}
	return summary
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
