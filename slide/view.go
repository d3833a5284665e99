package slide

import (
	"context"
	"html/template"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/connctd/showandtell/v2/diagram"
	"github.com/connctd/showandtell/v2/markup"
)

// Document is the immutable markup of one slide.
type Document struct {
	markup string
}

func NewDocument(markup string) Document {
	return Document{markup: markup}
}

func (d Document) Markup() string {
	return d.markup
}

// ViewConfig wires a View.
type ViewConfig struct {
	// ID scopes the view's diagram ids. It should be unique on a page.
	ID       string
	Parser   markup.Parser
	Renderer *Renderer
	Engine   diagram.Engine
	Sink     Sink
	// Observe, if set, is called after every finished hydration pass.
	Observe func(Report)
	Logger  logrus.FieldLogger
}

// View is a mounted slide: a document, its rendered tree and the hydration
// pass running over it.
type View struct {
	id       string
	parser   markup.Parser
	renderer *Renderer
	hydrator *Hydrator
	observe  func(Report)
	log      logrus.FieldLogger

	mu      sync.RWMutex
	doc     Document
	tree    *Tree
	done    chan struct{}
	mounted bool

	// one hydration pass at a time per view
	hydrateMu sync.Mutex
}

func NewView(cfg ViewConfig) *View {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("view", cfg.ID)
	engine := cfg.Engine
	if engine == nil {
		engine = diagram.Disabled()
	}
	return &View{
		id:       cfg.ID,
		parser:   cfg.Parser,
		renderer: cfg.Renderer,
		hydrator: NewHydrator(engine, NewIDGenerator(cfg.ID+"-diagram"), cfg.Sink, log),
		observe:  cfg.Observe,
		log:      log,
	}
}

func (v *View) ID() string {
	return v.id
}

// Mount renders markup into a new tree, replaces the current one and
// schedules hydration. It returns as soon as the static tree is in place.
func (v *View) Mount(markup string) error {
	doc, tree, err := v.render(markup)
	if err != nil {
		return err
	}
	v.swap(doc, tree)
	return nil
}

func (v *View) render(markup string) (Document, *Tree, error) {
	doc := NewDocument(markup)
	blocks, err := v.parser.Parse([]byte(doc.Markup()))
	if err != nil {
		return doc, nil, errors.Wrapf(err, "parse %s", v.id)
	}
	tree, err := v.renderer.RenderStatic(blocks)
	if err != nil {
		return doc, nil, errors.Wrapf(err, "render %s", v.id)
	}
	return doc, tree, nil
}

func (v *View) swap(doc Document, tree *Tree) {
	done := make(chan struct{})
	v.mu.Lock()
	old := v.tree
	v.doc = doc
	v.tree = tree
	v.done = done
	v.mounted = true
	v.mu.Unlock()

	if old != nil {
		old.detach()
	}
	go v.hydrate(tree, done)
}

// Staged is a rendered document that is not shown yet.
type Staged struct {
	view    *View
	doc     Document
	tree    *Tree
	changed bool
}

// Stage renders markup without touching the mounted tree. Staging the
// markup that is already mounted yields an unchanged stage.
func (v *View) Stage(markup string) (*Staged, error) {
	v.mu.RLock()
	same := v.mounted && v.doc.Markup() == markup
	v.mu.RUnlock()
	if same {
		return &Staged{view: v}, nil
	}
	doc, tree, err := v.render(markup)
	if err != nil {
		return nil, err
	}
	return &Staged{view: v, doc: doc, tree: tree, changed: true}, nil
}

func (s *Staged) Changed() bool {
	return s.changed
}

// Commit replaces the mounted tree with the staged one and starts hydrating
// it. An unchanged stage does nothing.
func (s *Staged) Commit() {
	if s.changed {
		s.view.swap(s.doc, s.tree)
	}
}

// Update remounts the view if markup differs from the mounted document.
func (v *View) Update(markup string) (changed bool, err error) {
	staged, err := v.Stage(markup)
	if err != nil {
		return false, err
	}
	staged.Commit()
	return staged.Changed(), nil
}

// Unmount detaches the tree. A hydration pass still running drops its
// remaining results.
func (v *View) Unmount() {
	v.mu.Lock()
	tree := v.tree
	v.tree = nil
	v.mounted = false
	v.mu.Unlock()

	if tree != nil {
		tree.detach()
	}
}

func (v *View) hydrate(tree *Tree, done chan struct{}) {
	defer close(done)
	v.hydrateMu.Lock()
	defer v.hydrateMu.Unlock()

	// Hydration is not cancellable; engines bound their own calls.
	report := v.hydrator.Hydrate(context.Background(), tree)
	if report.Discovered > 0 {
		v.log.WithFields(logrus.Fields{
			"discovered": report.Discovered,
			"rendered":   report.Rendered,
			"failed":     report.Failed,
			"skipped":    report.Skipped,
		}).Debug("hydration finished")
	}
	if v.observe != nil {
		v.observe(report)
	}
}

// Document returns the mounted document.
func (v *View) Document() Document {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.doc
}

// Tree returns the mounted tree, nil when unmounted.
func (v *View) Tree() *Tree {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.tree
}

// HTML renders the current state of the tree.
func (v *View) HTML() template.HTML {
	tree := v.Tree()
	if tree == nil {
		return ""
	}
	return template.HTML(tree.String())
}

// Hydrated is closed once the latest hydration pass has finished.
func (v *View) Hydrated() <-chan struct{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return v.done
}

// Wait blocks until the latest hydration pass has finished.
func (v *View) Wait(ctx context.Context) error {
	select {
	case <-v.Hydrated():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
