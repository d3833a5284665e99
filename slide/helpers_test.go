package slide

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/connctd/showandtell/v2/diagram"
	"github.com/connctd/showandtell/v2/markup"
)

type fakeEngine struct {
	mu     sync.Mutex
	calls  []string // descriptions in call order
	events []string

	gate     chan struct{}
	onRender func(id string)
}

func (f *fakeEngine) Render(_ context.Context, id, description string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, description)
	f.events = append(f.events, "begin "+id)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.events = append(f.events, "end "+id)
		f.mu.Unlock()
	}()

	if f.gate != nil {
		<-f.gate
	}
	if f.onRender != nil {
		f.onRender(id)
	}
	if strings.TrimSpace(description) == "" {
		return "", diagram.ErrEmptyDescription
	}
	if strings.Contains(description, "-->>>") {
		return "", errors.New("Parse error on line 2")
	}
	return fmt.Sprintf(`<svg id="%s"><g class="nodes"></g></svg>`, id), nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type failure struct {
	id      string
	message string
}

type recordingSink struct {
	mu       sync.Mutex
	failures []failure
}

func (r *recordingSink) DiagramFailed(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure{id: id, message: message})
}

func newTestRenderer() *Renderer {
	return NewRenderer(NewCodeRenderer(CodeOptions{Style: "dracula", LineNumbers: true}))
}

func mustTree(t *testing.T, src string) *Tree {
	t.Helper()
	r := newTestRenderer()
	blocks, err := markup.NewBlackfriday(r).Parse([]byte(src))
	require.NoError(t, err)
	tree, err := r.RenderStatic(blocks)
	require.NoError(t, err)
	return tree
}

func newTestHydrator(engine diagram.Engine, sink Sink) *Hydrator {
	log, _ := test.NewNullLogger()
	return NewHydrator(engine, NewIDGenerator("test-diagram"), sink, log)
}

func fence(lang, body string) string {
	return "```" + lang + "\n" + body + "\n```\n\n"
}
