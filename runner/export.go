package runner

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/llmpulse/llmpulse/pkg/metrics"
)

// Report is the JSON shape written by --output and printed by --json.
type Report struct {
	Summary metrics.BatchSummary `json:"summary"`
	Results []metrics.TestResult `json:"results"`
}

// NewReport pairs per-call results with their summary.
func NewReport(results []metrics.TestResult, summary metrics.BatchSummary) Report {
	return Report{Summary: summary, Results: results}
}

// JSON renders the report indented.
func (r Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not marshal report: %w", err)
	}
	return data, nil
}

// WriteFile saves the report to path.
func (r Report) WriteFile(path string) error {
	data, err := r.JSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write report %s: %w", path, err)
	}
	return nil
}
