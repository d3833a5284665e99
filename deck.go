package showandtell

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/connctd/showandtell/v2/config"
	"github.com/connctd/showandtell/v2/diagram"
	"github.com/connctd/showandtell/v2/markup"
	"github.com/connctd/showandtell/v2/slide"
)

// ErrSlideNotFound is returned for an unknown section id.
var ErrSlideNotFound = errors.New("slide not found")

type DeckOption func(*Deck)

// WithEngine replaces the configured diagram engine. The deck does not close
// an engine passed in this way.
func WithEngine(e diagram.Engine) DeckOption {
	return func(d *Deck) {
		d.engine = e
	}
}

// WithRegisterer counts hydration outcomes in reg.
func WithRegisterer(reg prometheus.Registerer) DeckOption {
	return func(d *Deck) {
		d.metrics = slide.NewMetrics(reg)
	}
}

// WithSink replaces the default logging sink for failed diagrams.
func WithSink(s slide.Sink) DeckOption {
	return func(d *Deck) {
		d.sink = s
	}
}

// WithLiveReload makes rendered pages load the livereload script.
func WithLiveReload() DeckOption {
	return func(d *Deck) {
		d.liveReload = true
	}
}

type slideViews struct {
	body  *slide.View
	notes *slide.View
}

// Deck is a slide folder mounted as views. Loading it again remounts only the
// slides whose markup changed.
type Deck struct {
	cfg        config.Config
	log        logrus.FieldLogger
	renderer   *slide.Renderer
	markdown   markup.Parser
	engine     diagram.Engine
	ownEngine  bool
	sink       slide.Sink
	metrics    *slide.Metrics
	liveReload bool

	loadLock sync.Mutex
	views    map[string]*slideViews // by source file

	mu   sync.RWMutex
	pres *Presentation

	obsLock   sync.Mutex
	observers []func(view string, r slide.Report)
}

func NewDeck(cfg config.Config, log logrus.FieldLogger, opts ...DeckOption) (*Deck, error) {
	d := &Deck{
		cfg:   cfg,
		log:   log,
		views: map[string]*slideViews{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sink == nil {
		d.sink = slide.LogSink{Log: log}
	}

	d.renderer = slide.NewRenderer(slide.NewCodeRenderer(slide.CodeOptions{
		Style:       cfg.HighlightStyle,
		LineNumbers: cfg.LineNumbers,
	}))
	md, err := markup.New(cfg.Parser, d.renderer)
	if err != nil {
		return nil, err
	}
	d.markdown = md

	if d.engine == nil {
		d.engine, err = diagram.New(cfg.Diagram, log.WithField("component", "diagram"))
		if err != nil {
			return nil, err
		}
		d.ownEngine = true
	}

	d.pres = d.newPresentation()
	return d, nil
}

func (d *Deck) newPresentation() *Presentation {
	return &Presentation{
		Name:        d.cfg.Name,
		Description: d.cfg.Description,
		RevealURL:   d.cfg.RevealURL,
		LiveReload:  d.liveReload,
	}
}

// OnHydrated registers fn to run after every finished hydration pass.
func (d *Deck) OnHydrated(fn func(view string, r slide.Report)) {
	d.obsLock.Lock()
	defer d.obsLock.Unlock()
	d.observers = append(d.observers, fn)
}

func (d *Deck) observe(view string) func(slide.Report) {
	return func(r slide.Report) {
		if d.metrics != nil {
			d.metrics.Observe(view, r)
		}
		d.obsLock.Lock()
		observers := append([]func(string, slide.Report){}, d.observers...)
		d.obsLock.Unlock()
		for _, fn := range observers {
			fn(view, r)
		}
	}
}

func (d *Deck) sinkFor(view string) slide.Sink {
	if d.metrics == nil {
		return d.sink
	}
	return slide.MultiSink{d.sink, d.metrics.Sink(view)}
}

func (d *Deck) newView(id string, parser markup.Parser) *slide.View {
	return slide.NewView(slide.ViewConfig{
		ID:       id,
		Parser:   parser,
		Renderer: d.renderer,
		Engine:   d.engine,
		Sink:     d.sinkFor(id),
		Observe:  d.observe(id),
		Logger:   d.log,
	})
}

// load is the state of one Load call. Nothing in it is visible before
// commit.
type load struct {
	pres    *Presentation
	seen    map[string]bool // source files
	used    map[string]bool // section ids
	pending []*pendingSlide
}

type pendingSlide struct {
	path     string
	id       string
	views    *slideViews
	replaces *slideViews
	body     *slide.Staged
	notes    *slide.Staged
}

// Load reads the slide folder. Slides are matched to the previous load by
// source file, unchanged ones keep their hydrated trees and removed ones are
// unmounted. Every slide is parsed before any view changes, so on error the
// previous presentation stays in place untouched.
func (d *Deck) Load() error {
	d.loadLock.Lock()
	defer d.loadLock.Unlock()

	l := &load{
		pres: d.newPresentation(),
		seen: map[string]bool{},
		used: map[string]bool{},
	}
	slides, err := d.loadFolder(l, d.cfg.SlidesDir, "")
	if err != nil {
		return err
	}
	l.pres.Slides = slides

	for _, p := range l.pending {
		if p.replaces != nil {
			p.replaces.body.Unmount()
			p.replaces.notes.Unmount()
		}
		d.views[p.path] = p.views
		p.body.Commit()
		p.notes.Commit()
		if p.body.Changed() {
			d.log.WithField("slide", p.id).Debug("slide mounted")
		}
	}

	d.mu.Lock()
	d.pres = l.pres
	d.mu.Unlock()

	for path, v := range d.views {
		if l.seen[path] {
			continue
		}
		d.log.WithField("file", path).Debug("slide removed")
		v.body.Unmount()
		v.notes.Unmount()
		delete(d.views, path)
	}
	return nil
}

func (d *Deck) loadFolder(l *load, dir, prefix string) ([]*Slide, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read slide folder")
	}

	var slides []*Slide
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || name == config.FileName {
			continue
		}
		slidePath := filepath.Join(dir, name)
		base := generateSectionID(slidePath)
		if prefix != "" {
			base = prefix + "-" + base
		}

		if e.IsDir() {
			id := d.claimID(l, base, slidePath)
			subSlides, err := d.loadFolder(l, slidePath, id)
			if err != nil {
				return nil, err
			}
			if len(subSlides) == 0 {
				delete(l.used, id)
				continue
			}
			slides = append(slides, &Slide{
				SourceFile: slidePath,
				SubSlides:  subSlides,
				SectionID:  id,
			})
			continue
		}

		format, exists := slideFormats[strings.TrimPrefix(filepath.Ext(name), ".")]
		if !exists {
			d.log.WithField("file", slidePath).Debug("no slide format, skipping")
			continue
		}
		s, err := d.loadSlide(l, slidePath, base, format)
		if err != nil {
			return nil, err
		}
		l.seen[slidePath] = true
		slides = append(slides, s)
	}
	return slides, nil
}

func (d *Deck) loadSlide(l *load, slidePath, base string, format SlideFormat) (*Slide, error) {
	buf, err := ioutil.ReadFile(slidePath)
	if err != nil {
		return nil, errors.Wrap(err, "read slide")
	}
	fm, body, err := decodeFrontMatter(slidePath, buf)
	if err != nil {
		return nil, err
	}

	p := &pendingSlide{path: slidePath}
	if v, exists := d.views[slidePath]; exists {
		if d.idFree(l, v.body.ID(), slidePath) {
			p.id = v.body.ID()
			p.views = v
		} else {
			p.replaces = v
		}
	}
	if p.views == nil {
		p.id = d.claimID(l, base, slidePath)
		p.views = &slideViews{
			body:  d.newView(p.id, format.Parser(d)),
			notes: d.newView(p.id+"-notes", d.markdown),
		}
	}
	l.used[p.id] = true

	s := &Slide{
		Title:      fm.Title,
		Layout:     fm.Layout,
		SourceFile: slidePath,
		SectionID:  p.id,
		body:       p.views.body,
		notes:      p.views.notes,
	}

	if fm.Template {
		if body, err = expandBody(slidePath, body, &SlideContext{Slide: s, Presentation: l.pres}); err != nil {
			return nil, err
		}
	}

	if p.body, err = p.views.body.Stage(string(body)); err != nil {
		return nil, err
	}
	if p.notes, err = p.views.notes.Stage(fm.Notes); err != nil {
		return nil, err
	}
	l.pending = append(l.pending, p)
	return s, nil
}

// claimID returns base, or base with a counter appended, such that no other
// slide of this load or live view shares its section or diagram id prefix.
func (d *Deck) claimID(l *load, base, path string) string {
	id := base
	for n := 2; !d.idFree(l, id, path); n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	l.used[id] = true
	return id
}

// idFree reports whether id can name the slide at path. Notes views are
// named id-notes, so those are checked too.
func (d *Deck) idFree(l *load, id, path string) bool {
	for used := range l.used {
		if idsClash(id, used) {
			return false
		}
	}
	for p, v := range d.views {
		if p != path && idsClash(id, v.body.ID()) {
			return false
		}
	}
	return true
}

func idsClash(a, b string) bool {
	return a == b || a == b+"-notes" || a+"-notes" == b
}

// Presentation returns the result of the latest successful load.
func (d *Deck) Presentation() *Presentation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pres
}

// RenderIndex renders the whole presentation from the current trees.
func (d *Deck) RenderIndex() ([]byte, error) {
	return renderIndex(d.Presentation())
}

// RenderSlide renders the section of one slide or chapter.
func (d *Deck) RenderSlide(sectionID string) ([]byte, error) {
	s := d.Presentation().Find(sectionID)
	if s == nil {
		return nil, errors.Wrap(ErrSlideNotFound, sectionID)
	}
	return renderSection(s)
}

func (d *Deck) allViews() []*slide.View {
	d.loadLock.Lock()
	defer d.loadLock.Unlock()
	views := make([]*slide.View, 0, 2*len(d.views))
	for _, v := range d.views {
		views = append(views, v.body, v.notes)
	}
	return views
}

// Wait blocks until every view has finished its latest hydration pass.
func (d *Deck) Wait(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, v := range d.allViews() {
		v := v
		g.Go(func() error {
			return v.Wait(ctx)
		})
	}
	return g.Wait()
}

// Close unmounts every view and releases the engine if the deck built it.
func (d *Deck) Close() error {
	for _, v := range d.allViews() {
		v.Unmount()
	}
	if d.ownEngine {
		return diagram.Close(d.engine)
	}
	return nil
}
