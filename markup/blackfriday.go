package markup

import (
	"bytes"
	"io"

	blackfriday "github.com/russross/blackfriday/v2"
)

const markdownExtensions = blackfriday.NoIntraEmphasis | blackfriday.Tables | blackfriday.FencedCode |
	blackfriday.Strikethrough | blackfriday.SpaceHeadings | blackfriday.HeadingIDs |
	blackfriday.BackslashLineBreak | blackfriday.DefinitionLists

// BlackfridayParser parses markdown with blackfriday.
type BlackfridayParser struct {
	hook CodeHook
}

func NewBlackfriday(hook CodeHook) *BlackfridayParser {
	return &BlackfridayParser{hook: hook}
}

func (b *BlackfridayParser) Parse(src []byte) ([]Block, error) {
	// blackfriday keeps parser state on the Markdown value, so every call gets
	// a fresh one.
	doc := blackfriday.New(blackfriday.WithExtensions(markdownExtensions)).Parse(src)

	r := &codeHookRenderer{
		Renderer: blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.CommonHTMLFlags,
		}),
		hook: b.hook,
	}

	var blocks []Block
	for n := doc.FirstChild; n != nil; n = n.Next {
		if n.Type == blackfriday.CodeBlock {
			blocks = append(blocks, Block{
				Type:    FencedCode,
				Info:    string(n.CodeBlockData.Info),
				Fenced:  n.CodeBlockData.IsFenced,
				Literal: string(n.Literal),
			})
			continue
		}

		buf := &bytes.Buffer{}
		n.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
			return r.RenderNode(buf, node, entering)
		})
		blocks = append(blocks, Block{
			Type: blackfridayBlockType(n.Type),
			HTML: buf.Bytes(),
		})
	}
	return blocks, nil
}

func blackfridayBlockType(t blackfriday.NodeType) BlockType {
	switch t {
	case blackfriday.Paragraph:
		return Paragraph
	case blackfriday.List:
		return List
	case blackfriday.Heading:
		return Heading
	case blackfriday.Table:
		return Table
	default:
		return Other
	}
}

// codeHookRenderer hands code nodes to the hook and everything else to the
// wrapped blackfriday renderer.
type codeHookRenderer struct {
	blackfriday.Renderer
	hook CodeHook
}

func (c *codeHookRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	if c.hook == nil {
		return c.Renderer.RenderNode(w, node, entering)
	}
	switch node.Type {
	case blackfriday.CodeBlock:
		c.hook.RenderCode(w, string(node.CodeBlockData.Info), node.Literal, false)
		return blackfriday.GoToNext
	case blackfriday.Code:
		c.hook.RenderCode(w, "", node.Literal, true)
		return blackfriday.GoToNext
	}
	return c.Renderer.RenderNode(w, node, entering)
}
