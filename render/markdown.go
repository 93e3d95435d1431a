package render

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// ShowResponse prints a model response, rendered as markdown when the
// terminal supports styling and verbatim otherwise.
func (r *Renderer) ShowResponse(prompt, content string) {
	if content == "" {
		return
	}

	fmt.Fprintf(r.out, "--- %s\n", truncate(prompt, promptColumnWidth))

	if r.styled {
		rendered, err := glamour.Render(content, "auto")
		if err == nil {
			fmt.Fprint(r.out, rendered)
			return
		}
	}
	fmt.Fprintln(r.out, content)
}
