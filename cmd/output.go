package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown writes md to w, styled for the terminal unless plain is set
// or rendering fails.
func renderMarkdown(w io.Writer, md string, plain bool) error {
	if !plain {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			out, err := r.Render(md)
			if err == nil {
				_, err = io.WriteString(w, out)
				return err
			}
		}
		logger.Debug("markdown rendering failed, printing raw text")
	}
	if !strings.HasSuffix(md, "\n") {
		md += "\n"
	}
	_, err := fmt.Fprint(w, md)
	return err
}
