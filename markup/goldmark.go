package markup

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// GoldmarkParser parses CommonMark with goldmark, plus the table and
// strikethrough extensions. Raw HTML passes through as it does with
// blackfriday.
type GoldmarkParser struct {
	md goldmark.Markdown
}

func NewGoldmark(hook CodeHook) *GoldmarkParser {
	opts := []goldmark.Option{
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	}
	if hook != nil {
		opts = append(opts, goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(util.Prioritized(&goldmarkCodeRenderer{hook: hook}, 100)),
		))
	}
	return &GoldmarkParser{md: goldmark.New(opts...)}
}

func (g *GoldmarkParser) Parse(src []byte) ([]Block, error) {
	doc := g.md.Parser().Parse(text.NewReader(src))

	var blocks []Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch code := n.(type) {
		case *ast.FencedCodeBlock:
			info := ""
			if code.Info != nil {
				info = string(code.Info.Segment.Value(src))
			}
			blocks = append(blocks, Block{
				Type:    FencedCode,
				Info:    info,
				Fenced:  true,
				Literal: string(linesOf(code, src)),
			})
			continue
		case *ast.CodeBlock:
			blocks = append(blocks, Block{
				Type:    FencedCode,
				Literal: string(linesOf(code, src)),
			})
			continue
		}

		buf := &bytes.Buffer{}
		if err := g.md.Renderer().Render(buf, src, n); err != nil {
			return nil, errors.Wrapf(err, "render %s block", n.Kind())
		}
		blocks = append(blocks, Block{
			Type: goldmarkBlockType(n.Kind()),
			HTML: buf.Bytes(),
		})
	}
	return blocks, nil
}

func goldmarkBlockType(k ast.NodeKind) BlockType {
	switch k {
	case ast.KindParagraph:
		return Paragraph
	case ast.KindList:
		return List
	case ast.KindHeading:
		return Heading
	case extast.KindTable:
		return Table
	default:
		return Other
	}
}

func linesOf(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.Bytes()
}

// goldmarkCodeRenderer overrides goldmark's code renderers with the hook.
type goldmarkCodeRenderer struct {
	hook CodeHook
}

func (r *goldmarkCodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFenced)
	reg.Register(ast.KindCodeBlock, r.renderIndented)
	reg.Register(ast.KindCodeSpan, r.renderSpan)
}

func (r *goldmarkCodeRenderer) renderFenced(w util.BufWriter, src []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	info := ""
	if n.Info != nil {
		info = string(n.Info.Segment.Value(src))
	}
	r.hook.RenderCode(w, info, linesOf(n, src), false)
	return ast.WalkContinue, nil
}

func (r *goldmarkCodeRenderer) renderIndented(w util.BufWriter, src []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.hook.RenderCode(w, "", linesOf(node, src), false)
	}
	return ast.WalkContinue, nil
}

func (r *goldmarkCodeRenderer) renderSpan(w util.BufWriter, src []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		}
	}
	r.hook.RenderCode(w, "", buf.Bytes(), true)
	return ast.WalkSkipChildren, nil
}
