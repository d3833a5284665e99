package slide

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
)

// CodeOptions configures the highlighter.
type CodeOptions struct {
	Style       string
	LineNumbers bool
}

// CodeRenderer renders Highlighted, Plain and Inline code to static markup.
// It never fails: anything the highlighter cannot handle comes out as
// escaped plain text.
type CodeRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func NewCodeRenderer(opts CodeOptions) *CodeRenderer {
	style := styles.Get(opts.Style)
	if style == nil {
		style = styles.Fallback
	}
	return &CodeRenderer{
		style: style,
		formatter: chromahtml.New(
			chromahtml.WithLineNumbers(opts.LineNumbers),
			chromahtml.TabWidth(4),
		),
	}
}

// Render renders content for the given kind. Diagram is not a code kind and
// renders as Plain here.
func (c *CodeRenderer) Render(content string, kind RenderKind) template.HTML {
	content = strings.TrimSuffix(content, "\n")

	switch kind.Kind {
	case Inline:
		return template.HTML("<code>" + html.EscapeString(content) + "</code>")
	case Highlighted:
		if out, ok := c.highlight(content, kind.Lang); ok {
			return out
		}
		return plain(content, kind.Lang)
	default:
		return plain(content, "")
	}
}

func (c *CodeRenderer) highlight(content, lang string) (out template.HTML, ok bool) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	// Lexers are third party regexp tables; a panic in one must not take the
	// slide down.
	defer func() {
		if r := recover(); r != nil {
			out, ok = "", false
		}
	}()

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return "", false
	}
	buf := &bytes.Buffer{}
	buf.WriteString(`<div class="code highlighted" data-lang="` + html.EscapeString(lang) + `">`)
	if err := c.formatter.Format(buf, c.style, iterator); err != nil {
		return "", false
	}
	buf.WriteString("</div>")
	return template.HTML(buf.String()), true
}

func plain(content, lang string) template.HTML {
	open := "<code>"
	if lang != "" {
		open = `<code class="language-` + html.EscapeString(lang) + `">`
	}
	return template.HTML(`<pre class="code plain">` + open + html.EscapeString(content) + "</code></pre>")
}
