package showandtell

import (
	"bytes"
	"html/template"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/connctd/showandtell/v2/markup"
	"github.com/connctd/showandtell/v2/slide"
)

var Version = "undefined"

var frontMatterDelimiter = []byte(`+++`)

var mainTmpl = `[[define "main" ]] [[ template "base" . ]] [[ end ]]`

var baseTmpl = `
[[ define "base" ]]
<!DOCTYPE html>
<html lang="en">
	<head>
		<meta charset="utf-8">
		<title>[[ .Name ]]</title>
		[[ if .Description ]]<meta name="description" content="[[ .Description ]]">[[ end ]]
		<link rel="stylesheet" href="[[ .RevealURL ]]/dist/reveal.css">
		<link rel="stylesheet" href="[[ .RevealURL ]]/dist/theme/black.css">
		<link rel="stylesheet" href="assets/theme.css">
	</head>
	<body>
		<div class="reveal">
			<div class="slides">
				[[ range .Slides ]]
					[[ template "comboSlide" . ]]
				[[ end ]]
			</div>
		</div>
		[[ block "js" . ]]
		<script src="[[ .RevealURL ]]/dist/reveal.js"></script>
		<script src="[[ .RevealURL ]]/plugin/notes/notes.js"></script>
		<script>
			Reveal.initialize({ hash: true, plugins: [ RevealNotes ] });
		</script>
		[[ if .LiveReload ]]<script src="assets/livereload.js"></script>[[ end ]]
		[[ end ]]
	</body>
</html>
[[ end ]]
`

var comboSlide = `
[[ define "comboSlide" ]]
[[ if .SubSlides ]]
[[ template "subSlides" . ]]
[[ else ]]
[[ template "slide" . ]]
[[ end ]]
[[ end ]]
`

var subSlideTmpl = `
[[ define "subSlides" ]]
<section id="[[ .SectionID ]]" class="chapter">
[[ range .SubSlides ]]
	[[ template "comboSlide" . ]]
[[ end ]]
</section>
[[ end ]]
`

var slideTmpl = `
[[ define "slide" ]]
<section id="[[ .SectionID ]]" data-has-notes="[[ .HasNotes ]]" class="slide[[ if eq .Layout "title" ]] title-slide[[ end ]]">
[[ if .Title ]]<h1>[[ .Title ]]</h1>[[ end ]]
[[ .Content ]]
[[ if .HasNotes ]]
<aside class="notes">
[[ .Notes ]]
</aside>
[[ end ]]
</section>
[[ end ]]
`

// SlideFormat maps a slide file type onto the parser its body view uses.
type SlideFormat interface {
	Parser(d *Deck) markup.Parser
}

var slideFormats = map[string]SlideFormat{}

// RegisterSlideFormat makes files with the extension ext (without dot) load
// as slides.
func RegisterSlideFormat(ext string, format SlideFormat) {
	slideFormats[ext] = format
}

// Slide is one rendered slide or, with SubSlides, a vertical chapter. A Slide
// value is never modified after a load; the views it points to are shared
// with the slides of later loads of the same file.
type Slide struct {
	Title      string
	Layout     string
	SourceFile string
	SectionID  string
	SubSlides  []*Slide

	body  *slide.View
	notes *slide.View
}

// Content is the live body tree: placeholders until hydrated, graphics after.
func (s *Slide) Content() template.HTML {
	if s.body == nil {
		return ""
	}
	return s.body.HTML()
}

func (s *Slide) Notes() template.HTML {
	if s.notes == nil {
		return ""
	}
	return s.notes.HTML()
}

func (s *Slide) HasNotes() bool {
	return s.notes != nil && strings.TrimSpace(s.notes.Document().Markup()) != ""
}

// Markup returns the body source the view was mounted with.
func (s *Slide) Markup() string {
	if s.body == nil {
		return ""
	}
	return s.body.Document().Markup()
}

// SlideContext is what template actions in a slide body see.
type SlideContext struct {
	*Slide
	*Presentation
}

type Presentation struct {
	Name        string
	Description string
	RevealURL   string
	LiveReload  bool
	Slides      []*Slide
}

// Flatten returns all leaf slides in presentation order.
func (p *Presentation) Flatten() []*Slide {
	var out []*Slide
	var walk func([]*Slide)
	walk = func(slides []*Slide) {
		for _, s := range slides {
			if len(s.SubSlides) > 0 {
				walk(s.SubSlides)
				continue
			}
			out = append(out, s)
		}
	}
	walk(p.Slides)
	return out
}

// Find returns the slide or chapter with the given section id.
func (p *Presentation) Find(sectionID string) *Slide {
	var find func([]*Slide) *Slide
	find = func(slides []*Slide) *Slide {
		for _, s := range slides {
			if s.SectionID == sectionID {
				return s
			}
			if found := find(s.SubSlides); found != nil {
				return found
			}
		}
		return nil
	}
	return find(p.Slides)
}

var defaultTemplates = template.Must(newTemplates())

func newTemplates() (*template.Template, error) {
	var err error
	tmpl := template.New("main")
	tmpl.Delims("[[", "]]")
	for _, tmplStr := range []string{mainTmpl, baseTmpl, slideTmpl, subSlideTmpl, comboSlide} {
		tmpl, err = tmpl.Parse(tmplStr)
		if err != nil {
			return nil, err
		}
	}
	return tmpl, nil
}

// DefaultRenderer returns the page templates.
func DefaultRenderer() *template.Template {
	return defaultTemplates
}

type frontMatter struct {
	Title string `yaml:"title"`
	Notes string `yaml:"notes"`
	// Template enables [[ ]] actions in the body.
	Template bool   `yaml:"template"`
	Layout   string `yaml:"layout"`
}

func parseFrontMatter(in []byte) (fm []byte, content []byte) {
	if !bytes.HasPrefix(in, frontMatterDelimiter) {
		return nil, in
	}

	parts := bytes.SplitN(in, frontMatterDelimiter, 3)
	if len(parts) < 3 {
		return nil, in
	}

	return parts[1], bytes.TrimPrefix(parts[2], []byte("\n"))
}

func decodeFrontMatter(slidePath string, in []byte) (frontMatter, []byte, error) {
	raw, body := parseFrontMatter(in)
	fm := frontMatter{}
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &fm); err != nil {
			return fm, nil, errors.Wrapf(err, "front matter of %s", slidePath)
		}
	}
	if fm.Layout == "" {
		fm.Layout = "slide"
	}
	return fm, body, nil
}

// expandBody executes [[ ]] actions in a slide body. The body is markup, so
// this is text/template.
func expandBody(slidePath string, body []byte, ctx *SlideContext) ([]byte, error) {
	tmpl, err := texttemplate.New(filepath.Base(slidePath)).Delims("[[", "]]").Parse(string(body))
	if err != nil {
		return nil, errors.Wrapf(err, "parse template %s", slidePath)
	}
	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, ctx); err != nil {
		return nil, errors.Wrapf(err, "execute template %s", slidePath)
	}
	return buf.Bytes(), nil
}

func generateSectionID(slidePath string) string {
	extension := filepath.Ext(slidePath)
	fileName := filepath.Base(slidePath)
	name := strings.TrimSuffix(fileName, extension)

	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")

	return id
}

func renderIndex(pres *Presentation) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := DefaultRenderer().ExecuteTemplate(buf, "main", pres); err != nil {
		return nil, errors.Wrap(err, "render index")
	}
	return buf.Bytes(), nil
}

func renderSection(s *Slide) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := DefaultRenderer().ExecuteTemplate(buf, "comboSlide", s); err != nil {
		return nil, errors.Wrapf(err, "render %s", s.SectionID)
	}
	return buf.Bytes(), nil
}
