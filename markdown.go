package showandtell

import (
	"github.com/connctd/showandtell/v2/markup"
)

func init() {
	RegisterSlideFormat("md", &MarkdownSlideFormat{})
	RegisterSlideFormat("markdown", &MarkdownSlideFormat{})
}

// MarkdownSlideFormat parses slides with the deck's configured markdown
// parser, so code blocks are highlighted and diagrams hydrated.
type MarkdownSlideFormat struct{}

func (m *MarkdownSlideFormat) Parser(d *Deck) markup.Parser {
	return d.markdown
}
