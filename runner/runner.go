// Package runner executes a batch of probe calls against one client
// and reduces the outcomes into a summary report.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/llmpulse/llmpulse/pkg/llm"
	"github.com/llmpulse/llmpulse/pkg/metrics"
)

// ProgressFunc is invoked after each completed call with the number of
// finished calls, the batch total, and a short label for the work just
// done.
type ProgressFunc func(done, total int, label string)

// Runner drives prompts x runs sequential calls through one client.
type Runner struct {
	client     *llm.Client
	logger     *zap.Logger
	onProgress ProgressFunc
}

// New builds a runner around an already-configured client.
func New(client *llm.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, logger: logger}
}

// OnProgress registers a progress callback. Set before Run.
func (r *Runner) OnProgress(fn ProgressFunc) {
	r.onProgress = fn
}

// Run executes every prompt cfg.Runs times, in prompt order then
// repetition order, one call at a time. A failed call is recorded and
// the batch continues; only context cancellation stops it early, in
// which case the results so far are returned alongside the error.
func (r *Runner) Run(ctx context.Context, cfg Config) ([]metrics.TestResult, metrics.BatchSummary, error) {
	total := len(cfg.Prompts) * cfg.Runs
	results := make([]metrics.TestResult, 0, total)

	r.logger.Debug("starting batch",
		zap.Int("prompts", len(cfg.Prompts)),
		zap.Int("runs", cfg.Runs),
		zap.Bool("streaming", cfg.Streaming),
	)

	done := 0
	for pi, prompt := range cfg.Prompts {
		for run := 0; run < cfg.Runs; run++ {
			if err := ctx.Err(); err != nil {
				return results, metrics.Summarize(results), err
			}

			results = append(results, r.runOne(ctx, prompt, cfg.Streaming))

			done++
			if r.onProgress != nil {
				label := fmt.Sprintf("prompt %d/%d run %d/%d", pi+1, len(cfg.Prompts), run+1, cfg.Runs)
				r.onProgress(done, total, label)
			}
		}
	}

	return results, metrics.Summarize(results), nil
}

// runOne issues one call and flattens the outcome into a TestResult.
func (r *Runner) runOne(ctx context.Context, prompt string, streaming bool) metrics.TestResult {
	var (
		comp *llm.Completion
		err  error
	)
	if streaming {
		comp, err = r.client.CallStream(ctx, prompt)
	} else {
		comp, err = r.client.Call(ctx, prompt)
	}

	if err != nil {
		r.logger.Warn("probe call failed",
			zap.String("prompt", truncate(prompt, 30)),
			zap.Error(err),
		)
		return metrics.TestResult{
			Prompt:       prompt,
			Status:       metrics.StatusError,
			ErrorMessage: err.Error(),
		}
	}

	result := metrics.TestResult{
		Prompt:          prompt,
		Status:          metrics.StatusSuccess,
		ResponseContent: comp.Content,
		Timing:          &comp.Timing,
		Tokens:          &comp.Tokens,
	}
	if tps := metrics.TPS(comp.Tokens.CompletionTokens, comp.Timing.TotalLatencyMS); tps > 0 {
		v := metrics.Round2(tps)
		result.TPS = &v
	}
	return result
}

// truncate shortens s for log lines.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
