package showandtell

import (
	"github.com/connctd/showandtell/v2/markup"
)

// HTMLSlideFormat mounts the body as is. Diagram placeholders written by hand
// (<pre class="diagram unrendered" data-diagram="mermaid">) are hydrated like
// those coming from markdown.
type HTMLSlideFormat struct{}

func init() {
	RegisterSlideFormat("html", &HTMLSlideFormat{})
}

func (h *HTMLSlideFormat) Parser(*Deck) markup.Parser {
	return rawHTMLParser{}
}

type rawHTMLParser struct{}

func (rawHTMLParser) Parse(src []byte) ([]markup.Block, error) {
	if len(src) == 0 {
		return nil, nil
	}
	return []markup.Block{{Type: markup.Other, HTML: src}}, nil
}
