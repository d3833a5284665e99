package showandtell

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connctd/showandtell/v2/config"
	"github.com/connctd/showandtell/v2/diagram"
)

type countingEngine struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingEngine) Render(_ context.Context, id, description string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, id)
	c.mu.Unlock()
	if strings.TrimSpace(description) == "" {
		return "", diagram.ErrEmptyDescription
	}
	return fmt.Sprintf(`<svg id="%s"><g></g></svg>`, id), nil
}

func (c *countingEngine) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func newTestDeck(t *testing.T, slidesDir string, opts ...DeckOption) (*Deck, *countingEngine) {
	t.Helper()
	cfg := config.Default()
	cfg.Name = "Test Deck"
	cfg.SlidesDir = slidesDir
	engine := &countingEngine{}
	log, _ := test.NewNullLogger()
	deck, err := NewDeck(cfg, log, append([]DeckOption{WithEngine(engine)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { deck.Close() })
	return deck, engine
}

func waitDeck(t *testing.T, d *Deck) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
}

func copyDir(t *testing.T, src, dst string) {
	t.Helper()
	require.NoError(t, filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(src, path)
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		return ioutil.WriteFile(target, data, 0644)
	}))
}

func TestRenderSlides(t *testing.T) {
	deck, engine := newTestDeck(t, "./test_slides")
	require.NoError(t, deck.Load())
	waitDeck(t, deck)

	out, err := deck.RenderIndex()
	require.NoError(t, err)
	index := string(out)

	assert.Contains(t, index, "<title>Test Deck</title>")
	assert.Contains(t, index, `<section id="01_intro" data-has-notes="true" class="slide title-slide">`)
	assert.Contains(t, index, "<h1>Welcome</h1>")
	assert.Contains(t, index, "Welcome to <strong>Test Deck</strong>.")
	assert.Contains(t, index, "<code>code</code>")
	assert.Contains(t, index, "<em>hello</em>")

	assert.Contains(t, index, `<div class="code highlighted" data-lang="python">`)
	assert.Contains(t, index, `<svg id="02_superposition-diagram-1">`)
	assert.Contains(t, index, `<svg id="03_raw-diagram-1">`)
	assert.Contains(t, index, `<section id="04_chapter" class="chapter">`)
	assert.Contains(t, index, `<section id="04_chapter-01_first"`)
	assert.Contains(t, index, `<pre class="code plain"><code>no language here</code></pre>`)
	assert.Contains(t, index, `<svg id="04_chapter-02_second-diagram-1">`)
	assert.NotContains(t, index, "unrendered")
	assert.NotContains(t, index, "README")

	assert.Equal(t, 3, engine.count())
	assert.Len(t, deck.Presentation().Flatten(), 5)
	assert.True(t, strings.Index(index, `id="01_intro"`) < strings.Index(index, `id="02_superposition"`))
}

func TestReloadOnlyRemountsChangedSlides(t *testing.T) {
	dir := t.TempDir()
	copyDir(t, "./test_slides", dir)
	deck, engine := newTestDeck(t, dir)

	require.NoError(t, deck.Load())
	waitDeck(t, deck)
	require.Equal(t, 3, engine.count())

	require.NoError(t, deck.Load())
	waitDeck(t, deck)
	assert.Equal(t, 3, engine.count())

	path := filepath.Join(dir, "02_superposition.md")
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(path, append(data, []byte("\nOne more sip.\n")...), 0644))

	require.NoError(t, deck.Load())
	waitDeck(t, deck)
	assert.Equal(t, 4, engine.count())

	out, err := deck.RenderIndex()
	require.NoError(t, err)
	index := string(out)
	assert.Contains(t, index, "One more sip.")
	assert.Contains(t, index, `<svg id="02_superposition-diagram-2">`)
	assert.Contains(t, index, `<svg id="03_raw-diagram-1">`)

	require.NoError(t, os.Remove(filepath.Join(dir, "04_chapter", "02_second.md")))
	require.NoError(t, deck.Load())
	waitDeck(t, deck)
	out, err = deck.RenderIndex()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "04_chapter-02_second")
	assert.Equal(t, 4, engine.count())
}

func TestBrokenFrontMatterKeepsPreviousSlides(t *testing.T) {
	dir := t.TempDir()
	copyDir(t, "./test_slides", dir)
	deck, _ := newTestDeck(t, dir)
	require.NoError(t, deck.Load())
	before := deck.Presentation()

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "05_broken.md"), []byte("+++\ntitle: [unclosed\n+++\nbody\n"), 0644))
	err := deck.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "05_broken.md")
	assert.Same(t, before, deck.Presentation())
}

func TestFailedLoadLeavesViewsUntouched(t *testing.T) {
	dir := t.TempDir()
	copyDir(t, "./test_slides", dir)
	deck, engine := newTestDeck(t, dir)
	require.NoError(t, deck.Load())
	waitDeck(t, deck)
	require.Equal(t, 3, engine.count())
	views := len(deck.views)

	path := filepath.Join(dir, "02_superposition.md")
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(path, append(data, []byte("\nA second cup.\n")...), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "00_new.md"), []byte("```mermaid\npie\n\"a\" : 1\n```\n"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "05_broken.md"), []byte("+++\ntitle: [unclosed\n+++\nbody\n"), 0644))

	require.Error(t, deck.Load())
	waitDeck(t, deck)
	out, err := deck.RenderIndex()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "A second cup.")
	assert.NotContains(t, deck.Presentation().Find("02_superposition").Markup(), "A second cup.")
	assert.Equal(t, views, len(deck.views))
	assert.Equal(t, 3, engine.count())

	require.NoError(t, os.Remove(filepath.Join(dir, "05_broken.md")))
	require.NoError(t, deck.Load())
	waitDeck(t, deck)
	out, err = deck.RenderIndex()
	require.NoError(t, err)
	assert.Contains(t, string(out), "A second cup.")
	assert.Contains(t, string(out), `<svg id="00_new-diagram-1">`)
	assert.Equal(t, 5, engine.count())
}

func TestCollidingSectionIDsGetDistinctViews(t *testing.T) {
	dir := t.TempDir()
	diagramMD := "```mermaid\nflowchart LR\nA --> B\n```\n"
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "intro.md"), []byte(diagramMD), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "Intro.html"),
		[]byte(`<pre class="diagram unrendered" data-diagram="mermaid">flowchart LR
A --&gt; B</pre>`), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "a b.md"), []byte(diagramMD), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "a_b.md"), []byte(diagramMD), 0644))

	deck, engine := newTestDeck(t, dir)
	require.NoError(t, deck.Load())
	waitDeck(t, deck)

	out, err := deck.RenderIndex()
	require.NoError(t, err)
	index := string(out)
	for _, id := range []string{"intro", "intro-2", "a_b", "a_b-2"} {
		assert.Equal(t, 1, strings.Count(index, `<section id="`+id+`"`), id)
		assert.Equal(t, 2, strings.Count(index, `"`+id+`-diagram-1"`), id)
	}
	assert.Equal(t, 4, engine.count())

	intro := deck.Presentation().Find("intro-2")
	require.NotNil(t, intro)
	assert.Equal(t, filepath.Join(dir, "intro.md"), intro.SourceFile)

	require.NoError(t, os.Remove(filepath.Join(dir, "Intro.html")))
	require.NoError(t, deck.Load())
	waitDeck(t, deck)
	assert.NotNil(t, deck.Presentation().Find("intro-2"))
	assert.Nil(t, deck.Presentation().Find("intro"))
	assert.Equal(t, 4, engine.count())
}

func TestRenderSlide(t *testing.T) {
	deck, _ := newTestDeck(t, "./test_slides")
	require.NoError(t, deck.Load())
	waitDeck(t, deck)

	out, err := deck.RenderSlide("02_superposition")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), `<section id="02_superposition"`))
	assert.NotContains(t, string(out), "01_intro")

	out, err = deck.RenderSlide("04_chapter")
	require.NoError(t, err)
	assert.Contains(t, string(out), "04_chapter-02_second")

	_, err = deck.RenderSlide("nope")
	assert.Equal(t, ErrSlideNotFound, errors.Cause(err))
}

func TestDeckMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	deck, _ := newTestDeck(t, "./test_slides", WithRegisterer(reg))
	require.NoError(t, deck.Load())
	waitDeck(t, deck)

	families, err := reg.Gather()
	require.NoError(t, err)
	var rendered float64
	for _, f := range families {
		if f.GetName() != "showandtell_diagrams_rendered_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			rendered += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 3.0, rendered)
}

func TestParseFrontMatter(t *testing.T) {
	fm, body := parseFrontMatter([]byte("+++\ntitle: x\n+++\n# body\n"))
	assert.Equal(t, "\ntitle: x\n", string(fm))
	assert.Equal(t, "# body\n", string(body))

	fm, body = parseFrontMatter([]byte("# no front matter\n"))
	assert.Nil(t, fm)
	assert.Equal(t, "# no front matter\n", string(body))

	fm, body = parseFrontMatter([]byte("+++ dangling"))
	assert.Nil(t, fm)
	assert.Equal(t, "+++ dangling", string(body))
}

func TestGenerateSectionID(t *testing.T) {
	assert.Equal(t, "01_intro", generateSectionID("slides/01_Intro.md"))
	assert.Equal(t, "my_slide", generateSectionID("my slide.html"))
}

func TestTemplatesAreOptIn(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "a.md"), []byte("```go\nx := [[ .Name ]]\n```\n"), 0644))
	deck, _ := newTestDeck(t, dir)
	require.NoError(t, deck.Load())
	assert.Contains(t, deck.Presentation().Flatten()[0].Markup(), "[[ .Name ]]")
}

func TestEmitAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EmitAssets(dir))
	css, err := ioutil.ReadFile(filepath.Join(dir, "assets", "theme.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "pre.diagram")
	_, err = os.Stat(filepath.Join(dir, "assets", "livereload.js"))
	assert.NoError(t, err)
	require.NoError(t, EmitAssets(dir))
}

func TestLectureDeck(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EmitLecture(dir))
	assert.Error(t, EmitLecture(dir))
	assert.Len(t, LectureSlides(), 8)

	deck, engine := newTestDeck(t, dir)
	require.NoError(t, deck.Load())
	waitDeck(t, deck)

	slides := deck.Presentation().Flatten()
	require.Len(t, slides, 8)
	assert.Equal(t, "From Light Switches to Mocha Blends: Bits and Qubits in Plain Language", slides[0].Title)
	assert.True(t, slides[0].HasNotes())
	assert.Equal(t, 9, engine.count())

	for _, s := range slides {
		content := string(s.Content())
		assert.Contains(t, content, `data-lang="python"`, s.SectionID)
		assert.Contains(t, content, "<svg", s.SectionID)
	}
}

func TestWriteTerminal(t *testing.T) {
	deck, _ := newTestDeck(t, "./test_slides")
	require.NoError(t, deck.Load())
	pres := deck.Presentation()
	slides := pres.Flatten()

	md := terminalMarkdown(pres, slides[1], 2, len(slides))
	assert.True(t, strings.HasPrefix(md, "# Superposition\n"))
	assert.Contains(t, md, "slide 2 of 5")
	assert.Contains(t, md, "```mermaid")

	assert.Contains(t, terminalMarkdown(pres, slides[2], 3, len(slides)), "HTML slide")
	assert.Contains(t, terminalMarkdown(pres, slides[0], 1, len(slides)), "**Notes**")

	buf := &bytes.Buffer{}
	require.NoError(t, WriteTerminal(buf, pres, slides))
	assert.NotEmpty(t, buf.String())
}
