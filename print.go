package showandtell

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
)

// WriteTerminal renders slides as styled terminal text. Code blocks keep
// their fences, so diagrams show as their source.
func WriteTerminal(w io.Writer, pres *Presentation, slides []*Slide) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return errors.Wrap(err, "create terminal renderer")
	}

	for i, s := range slides {
		out, err := r.Render(terminalMarkdown(pres, s, i+1, len(slides)))
		if err != nil {
			return errors.Wrapf(err, "render %s", s.SectionID)
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

func terminalMarkdown(pres *Presentation, s *Slide, n, total int) string {
	b := &strings.Builder{}
	title := s.Title
	if title == "" {
		title = s.SectionID
	}
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "> **%s** | slide %d of %d | `#%s`\n\n---\n\n", pres.Name, n, total, s.SectionID)
	if filepath.Ext(s.SourceFile) == ".html" {
		fmt.Fprintf(b, "_HTML slide, open %s in a browser._\n", s.SourceFile)
	} else {
		b.WriteString(strings.TrimSpace(s.Markup()))
		b.WriteString("\n")
	}
	if s.HasNotes() {
		b.WriteString("\n---\n\n**Notes**\n\n")
		b.WriteString(strings.TrimSpace(s.notes.Document().Markup()))
		b.WriteString("\n")
	}
	return b.String()
}
