package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/llmpulse/llmpulse/pkg/metrics"
)

// promptColumnWidth is how much of each prompt the table shows.
const promptColumnWidth = 30

// ResultsTable prints one row per call. The TTFT column only appears
// in streaming mode, which is the only mode where it can exist.
func (r *Renderer) ResultsTable(results []metrics.TestResult, streaming bool) {
	headers := []string{"#", "Prompt", "Status", "Latency (ms)"}
	if streaming {
		headers = append(headers, "TTFT (ms)")
	}
	headers = append(headers, "Tokens", "TPS")

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...)

	for i, res := range results {
		row := []string{
			strconv.Itoa(i + 1),
			truncate(res.Prompt, promptColumnWidth),
			r.statusCell(res.Status),
		}

		if res.Status == metrics.StatusSuccess && res.Timing != nil && res.Tokens != nil {
			row = append(row, formatMS(res.Timing.TotalLatencyMS))
			if streaming {
				row = append(row, formatOptional(res.Timing.TTFTMS))
			}
			row = append(row,
				strconv.Itoa(res.Tokens.CompletionTokens),
				formatOptional(res.TPS),
			)
		} else {
			row = append(row, "-")
			if streaming {
				row = append(row, "-")
			}
			row = append(row, "-", "-")
		}

		t.Row(row...)
	}

	fmt.Fprintln(r.out, t.String())
	r.errorLines(results)
}

// errorLines lists each failure under the table so the message is not
// lost to column truncation.
func (r *Renderer) errorLines(results []metrics.TestResult) {
	for i, res := range results {
		if res.Status != metrics.StatusError {
			continue
		}
		fmt.Fprintf(r.out, "  #%d %s: %s\n", i+1, truncate(res.Prompt, promptColumnWidth), res.ErrorMessage)
	}
}

// Summary prints request counts plus one stats line per metric that
// has samples.
func (r *Renderer) Summary(summary metrics.BatchSummary, streaming bool) {
	var b strings.Builder

	fmt.Fprintf(&b, "requests:  %d total, %d ok, %d failed", summary.TotalRequests, summary.Successful, summary.Failed)
	if summary.TotalRequests > 0 {
		rate := float64(summary.Successful) / float64(summary.TotalRequests) * 100
		fmt.Fprintf(&b, " (%.1f%% success)", rate)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "latency:   %s\n", statsLine(summary.LatencyStats, " ms"))
	if streaming {
		fmt.Fprintf(&b, "ttft:      %s\n", statsLine(summary.TTFTStats, " ms"))
	}
	fmt.Fprintf(&b, "tokens:    %s\n", statsLine(summary.OutputTokensStats, ""))
	fmt.Fprintf(&b, "tps:       %s", statsLine(summary.TPSStats, " tok/s"))

	r.panel("Batch summary", b.String())
}

// statsLine formats one metric as avg | std | range, or a dash when the
// metric has no samples.
func statsLine(stats *metrics.AggregatedStats, unit string) string {
	if stats == nil {
		return "-"
	}
	return fmt.Sprintf("avg %.2f%s | std %.2f%s | range [%.2f, %.2f]%s",
		stats.Avg, unit, stats.Std, unit, stats.Min, stats.Max, unit)
}

func (r *Renderer) statusCell(status string) string {
	if status == metrics.StatusSuccess {
		if r.styled {
			return okStyle.Render("ok")
		}
		return "ok"
	}
	if r.styled {
		return failStyle.Render("failed")
	}
	return "failed"
}

func formatMS(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
