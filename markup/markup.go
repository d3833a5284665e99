// Package markup turns slide markup into an ordered sequence of blocks.
//
// The grammar itself belongs to the wrapped libraries. This package only maps
// their syntax trees onto Block values and hands every code construct back to
// a CodeHook, so that classification happens in exactly one place.
package markup

import (
	"io"

	"github.com/pkg/errors"
)

// ErrUnknownParser is returned by New for an unregistered parser name.
var ErrUnknownParser = errors.New("unknown markup parser")

// BlockType discriminates the blocks produced by a Parser.
type BlockType uint8

const (
	Paragraph BlockType = iota
	List
	Heading
	Table
	FencedCode
	Other // block quotes, raw HTML, rules
)

func (t BlockType) String() string {
	switch t {
	case Paragraph:
		return "Paragraph"
	case List:
		return "List"
	case Heading:
		return "Heading"
	case Table:
		return "Table"
	case FencedCode:
		return "FencedCode"
	default:
		return "Other"
	}
}

// Block is one top level structural unit of a slide.
type Block struct {
	Type BlockType

	// Info is the raw info string after the opening fence. Empty for
	// indented code blocks and fences without a language.
	Info string
	// Fenced is false for indented code blocks.
	Fenced bool
	// Literal holds the code of a FencedCode block.
	Literal string

	// HTML is the static markup of every non code block.
	HTML []byte
}

// CodeHook renders code the parser finds while producing HTML for a
// non code block: fences nested in lists or quotes and inline code spans.
type CodeHook interface {
	RenderCode(w io.Writer, info string, literal []byte, inline bool)
}

// Parser is the markup parser contract.
type Parser interface {
	Parse(src []byte) ([]Block, error)
}

const (
	Blackfriday = "blackfriday"
	Goldmark    = "goldmark"
)

// New returns the parser registered under name. An empty name selects
// blackfriday.
func New(name string, hook CodeHook) (Parser, error) {
	switch name {
	case "", Blackfriday:
		return NewBlackfriday(hook), nil
	case Goldmark:
		return NewGoldmark(hook), nil
	default:
		return nil, errors.Wrap(ErrUnknownParser, name)
	}
}
