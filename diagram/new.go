package diagram

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	EngineMMDC  = "mmdc"
	EngineKroki = "kroki"
	EngineNone  = "none"
)

// Options selects and tunes an engine.
type Options struct {
	Engine      string
	MMDCPath    string
	KrokiURL    string
	Timeout     time.Duration
	CacheTTL    time.Duration
	Concurrency int
	Theme       Theme
}

// New builds the configured engine, wrapped as cache(limit(timeout(engine))).
// A missing mmdc binary is not fatal: diagrams fall back to text.
func New(opts Options, log logrus.FieldLogger) (Engine, error) {
	var base Engine
	switch opts.Engine {
	case "", EngineMMDC:
		path := opts.MMDCPath
		if path == "" {
			path = EngineMMDC
		}
		cli, err := NewCLI(path, opts.Theme)
		if err != nil {
			log.WithError(err).Warn("mermaid-cli unavailable, diagrams will be shown as text")
			return Disabled(), nil
		}
		base = cli
	case EngineKroki:
		base = NewKroki(opts.KrokiURL, nil, opts.Theme)
	case EngineNone:
		return Disabled(), nil
	default:
		return nil, errors.Errorf("unknown diagram engine %q", opts.Engine)
	}

	e := WithTimeout(base, opts.Timeout)
	e = Limit(e, opts.Concurrency)
	if opts.CacheTTL > 0 {
		e = NewCached(e, opts.CacheTTL)
	}
	return e, nil
}
