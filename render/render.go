// Package render draws llmpulse's terminal output: the configuration
// panel, the per-call results table, the batch summary, the progress
// bar and optional markdown previews of model responses.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Renderer writes human-oriented output. Styling is dropped when the
// writer is not a terminal or the environment cannot do color.
type Renderer struct {
	out    io.Writer
	styled bool
}

// New builds a renderer for out, probing it for TTY-ness when it is a
// real file.
func New(out io.Writer) *Renderer {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd())) && termenv.EnvColorProfile() != termenv.Ascii
	}
	return &Renderer{out: out, styled: styled}
}

// RunInfo is what the banner shows before a batch starts.
type RunInfo struct {
	ConfigPath      string
	Endpoint        string
	Model           string
	ReasoningEffort string
	MaxTokens       int
	Streaming       bool
	Prompts         int
	Runs            int
	Timeout         time.Duration
}

// Banner prints the configuration panel.
func (r *Renderer) Banner(info RunInfo) {
	var b strings.Builder
	if info.ConfigPath != "" {
		fmt.Fprintf(&b, "config:     %s\n", info.ConfigPath)
	}
	fmt.Fprintf(&b, "endpoint:   %s\n", info.Endpoint)
	fmt.Fprintf(&b, "model:      %s\n", info.Model)
	if info.ReasoningEffort != "" {
		fmt.Fprintf(&b, "reasoning:  %s\n", info.ReasoningEffort)
	}
	if info.MaxTokens > 0 {
		fmt.Fprintf(&b, "max tokens: %d\n", info.MaxTokens)
	}

	mode := "buffered"
	if info.Streaming {
		mode = "streaming"
	}
	fmt.Fprintf(&b, "mode:       %s\n", mode)
	fmt.Fprintf(&b, "requests:   %d prompts x %d runs = %d\n", info.Prompts, info.Runs, info.Prompts*info.Runs)
	fmt.Fprintf(&b, "timeout:    %s", info.Timeout)

	r.panel("Probe configuration", b.String())
}

// panel frames body under a bold title, or falls back to plain text.
func (r *Renderer) panel(title, body string) {
	if r.styled {
		fmt.Fprintln(r.out, titleStyle.Render(title))
		fmt.Fprintln(r.out, borderStyle.Render(body))
		return
	}
	fmt.Fprintf(r.out, "== %s ==\n%s\n", title, body)
}

// truncate shortens s to maxLen characters with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
