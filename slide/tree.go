package slide

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var errDetached = errors.New("placeholder no longer belongs to a live tree")

// State is the hydration state of a diagram element.
type State uint8

const (
	NotDiagram State = iota
	Unrendered
	Rendering
	Rendered
	Failed
)

func (s State) String() string {
	switch s {
	case Unrendered:
		return "Unrendered"
	case Rendering:
		return "Rendering"
	case Rendered:
		return "Rendered"
	case Failed:
		return "Failed"
	default:
		return "NotDiagram"
	}
}

// Tree is the rendered document of one slide. Reads and the hydrator's
// mutations are serialized by the tree itself. Once detached, a tree rejects
// all further hydration.
type Tree struct {
	mu       sync.RWMutex
	root     *html.Node
	detached bool
}

// NewTree parses static markup into a tree rooted at
// <div class="slide-body">.
func NewTree(markup []byte) (*Tree, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: "slide-body"}},
	}
	nodes, err := html.ParseFragment(bytes.NewReader(markup), root)
	if err != nil {
		return nil, errors.Wrap(err, "parse static markup")
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Tree{root: root}, nil
}

func (t *Tree) Render(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return html.Render(w, t.root)
}

func (t *Tree) String() string {
	buf := &bytes.Buffer{}
	if err := t.Render(buf); err != nil {
		return ""
	}
	return buf.String()
}

// Placeholders returns the diagram elements still marked unrendered, in
// document order.
func (t *Tree) Placeholders() []*html.Node {
	return t.diagrams(Unrendered)
}

// Diagrams returns all diagram elements in document order.
func (t *Tree) Diagrams() []*html.Node {
	return t.diagrams(NotDiagram)
}

func (t *Tree) diagrams(only State) []*html.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var found []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if s := stateOf(n); s != NotDiagram && (only == NotDiagram || s == only) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(t.root)
	return found
}

// StateOf reports the hydration state of n.
func (t *Tree) StateOf(n *html.Node) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return stateOf(n)
}

// Text returns the text content of n.
func (t *Tree) Text(n *html.Node) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return textOf(n)
}

// Live reports whether the tree is still mounted.
func (t *Tree) Live() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.detached
}

func (t *Tree) detach() {
	t.mu.Lock()
	t.detached = true
	t.mu.Unlock()
}

// begin moves an unrendered placeholder to rendering and returns its text.
// ok is false if n is gone, detached or already claimed.
func (t *Tree) begin(n *html.Node) (description string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.owns(n) || stateOf(n) != Unrendered {
		return "", false
	}
	setState(n, Rendering)
	return textOf(n), true
}

// complete swaps the graphic into n.
func (t *Tree) complete(n *html.Node, id, graphic string) error {
	if strings.TrimSpace(graphic) == "" {
		return errors.New("diagram engine returned an empty graphic")
	}
	// n is only read here, so parsing can run alongside renders.
	nodes, err := html.ParseFragment(strings.NewReader(graphic), n)
	if err != nil {
		return errors.Wrap(err, "parse graphic")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.owns(n) {
		return errDetached
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	setAttr(n, "data-diagram-id", id)
	setState(n, Rendered)
	return nil
}

// fail marks n as failed and keeps its text. It reports false if n no longer
// belongs to a live tree.
func (t *Tree) fail(n *html.Node, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.owns(n) {
		return false
	}
	setAttr(n, "data-diagram-id", id)
	setState(n, Failed)
	return true
}

func (t *Tree) owns(n *html.Node) bool {
	if t.detached {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p == t.root {
			return true
		}
	}
	return false
}

func classes(n *html.Node) []string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func stateOf(n *html.Node) State {
	if n.Type != html.ElementNode {
		return NotDiagram
	}
	isDiagram := false
	state := NotDiagram
	for _, c := range classes(n) {
		switch c {
		case ClassDiagram:
			isDiagram = true
		case ClassUnrendered:
			state = Unrendered
		case ClassRendering:
			state = Rendering
		case ClassRendered:
			state = Rendered
		case ClassFailed:
			state = Failed
		}
	}
	if !isDiagram {
		return NotDiagram
	}
	return state
}

func setState(n *html.Node, s State) {
	marker := map[State]string{
		Unrendered: ClassUnrendered,
		Rendering:  ClassRendering,
		Rendered:   ClassRendered,
		Failed:     ClassFailed,
	}[s]

	kept := make([]string, 0, 2)
	for _, c := range classes(n) {
		switch c {
		case ClassUnrendered, ClassRendering, ClassRendered, ClassFailed:
		default:
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(append(kept, marker), " "))
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
	}
	return sb.String()
}
