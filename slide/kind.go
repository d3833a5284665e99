package slide

import (
	"regexp"
	"strings"
)

// DiagramTag is the language tag that marks a fenced block as a diagram.
const DiagramTag = "mermaid"

// Kind is the render path of a code construct.
type Kind uint8

const (
	Plain Kind = iota
	Inline
	Highlighted
	Diagram
)

func (k Kind) String() string {
	switch k {
	case Inline:
		return "Inline"
	case Highlighted:
		return "Highlighted"
	case Diagram:
		return "Diagram"
	default:
		return "Plain"
	}
}

// RenderKind is the classification of a code construct. Lang is only set for
// Highlighted.
type RenderKind struct {
	Kind Kind
	Lang string
}

var languagePattern = regexp.MustCompile(`^[a-z0-9_#+.-]+$`)

// LanguageTag extracts the language tag from a fence info string: its first
// field, as written.
func LanguageTag(info string) string {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Classify maps a fenced block's language tag to its render kind. Only the
// exact DiagramTag is a diagram. Highlighter names are matched case
// insensitively, and tags that do not look like a language name render as
// Plain.
func Classify(tag string) RenderKind {
	if tag == DiagramTag {
		return RenderKind{Kind: Diagram}
	}
	lang := strings.ToLower(strings.TrimSpace(tag))
	switch {
	case lang == "":
		return RenderKind{Kind: Plain}
	case languagePattern.MatchString(lang):
		return RenderKind{Kind: Highlighted, Lang: lang}
	default:
		return RenderKind{Kind: Plain}
	}
}

// Code describes a code construct as found in the markup.
type Code struct {
	Tag    string
	Inline bool // a code span, no fence markers at all
}

func (c Code) Kind() RenderKind {
	if c.Inline {
		return RenderKind{Kind: Inline}
	}
	return Classify(c.Tag)
}
