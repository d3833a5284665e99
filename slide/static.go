package slide

import (
	"bytes"
	"html/template"
	"io"

	"github.com/connctd/showandtell/v2/markup"
)

// Renderer is the synchronous first pass. It also serves as the parsers'
// markup.CodeHook, so nested fences and code spans take the same route as
// top level blocks.
type Renderer struct {
	code *CodeRenderer
}

func NewRenderer(code *CodeRenderer) *Renderer {
	return &Renderer{code: code}
}

// RenderStatic renders blocks in order into a fresh tree. Diagrams come out
// as placeholders.
func (r *Renderer) RenderStatic(blocks []markup.Block) (*Tree, error) {
	buf := &bytes.Buffer{}
	for _, b := range blocks {
		if b.Type == markup.FencedCode {
			buf.WriteString(string(r.renderCode(Code{Tag: LanguageTag(b.Info)}, b.Literal)))
			buf.WriteByte('\n')
			continue
		}
		buf.Write(b.HTML)
	}
	return NewTree(buf.Bytes())
}

// RenderCode implements markup.CodeHook.
func (r *Renderer) RenderCode(w io.Writer, info string, literal []byte, inline bool) {
	io.WriteString(w, string(r.renderCode(Code{Tag: LanguageTag(info), Inline: inline}, string(literal))))
}

func (r *Renderer) renderCode(c Code, content string) template.HTML {
	kind := c.Kind()
	switch kind.Kind {
	case Diagram:
		return RenderPlaceholder(content)
	default:
		return r.code.Render(content, kind)
	}
}
