package slide

import (
	"html/template"
	"strings"

	"golang.org/x/net/html"
)

// Marker classes carried by diagram elements. A placeholder starts as
// unrendered and ends as rendered or failed.
const (
	ClassDiagram    = "diagram"
	ClassUnrendered = "unrendered"
	ClassRendering  = "rendering"
	ClassRendered   = "rendered"
	ClassFailed     = "failed"
)

// RenderPlaceholder renders the inert first pass form of a diagram: its raw
// text, escaped, with the unrendered marker. The text is not inspected.
func RenderPlaceholder(content string) template.HTML {
	content = strings.TrimSuffix(content, "\n")
	return template.HTML(`<pre class="` + ClassDiagram + ` ` + ClassUnrendered + `" data-diagram="` + DiagramTag + `">` +
		html.EscapeString(content) + `</pre>`)
}
