package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressBar redraws an in-place batch progress line. It stays silent
// when the renderer is unstyled so piped output is not littered with
// carriage returns.
type ProgressBar struct {
	out     io.Writer
	bar     progress.Model
	total   int
	enabled bool
}

// Progress returns a bar for total steps tied to this renderer.
func (r *Renderer) Progress(total int) *ProgressBar {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return &ProgressBar{
		out:     r.out,
		bar:     bar,
		total:   total,
		enabled: r.styled && total > 0,
	}
}

// Update redraws the bar after done finished steps.
func (p *ProgressBar) Update(done int, label string) {
	if !p.enabled {
		return
	}
	frac := float64(done) / float64(p.total)
	fmt.Fprintf(p.out, "\r%s %d/%d %s   ", p.bar.ViewAs(frac), done, p.total, label)
}

// Done clears the bar line.
func (p *ProgressBar) Done() {
	if !p.enabled {
		return
	}
	fmt.Fprint(p.out, "\r"+strings.Repeat(" ", 100)+"\r")
}
