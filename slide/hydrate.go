package slide

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/connctd/showandtell/v2/diagram"
)

// Report summarizes one hydration pass.
type Report struct {
	Discovered int
	Rendered   int
	Failed     int
	Skipped    int // claimed elsewhere or detached mid pass
}

// Hydrator converts placeholders into graphics.
type Hydrator struct {
	engine diagram.Engine
	ids    *IDGenerator
	sink   Sink
	log    logrus.FieldLogger
}

func NewHydrator(engine diagram.Engine, ids *IDGenerator, sink Sink, log logrus.FieldLogger) *Hydrator {
	if sink == nil {
		sink = LogSink{Log: log}
	}
	return &Hydrator{
		engine: engine,
		ids:    ids,
		sink:   sink,
		log:    log,
	}
}

// Hydrate renders every unrendered placeholder of t, in document order and
// one at a time. Each failure is reported and isolated to its own element.
// Elements hydrated by an earlier pass are not touched again.
func (h *Hydrator) Hydrate(ctx context.Context, t *Tree) Report {
	pending := t.Placeholders()
	report := Report{Discovered: len(pending)}

	for _, n := range pending {
		description, ok := t.begin(n)
		if !ok {
			report.Skipped++
			continue
		}

		id := h.ids.Next()
		graphic, err := h.render(ctx, id, description)
		if err == nil {
			err = t.complete(n, id, graphic)
		}

		switch {
		case err == nil:
			report.Rendered++
			h.log.WithField("diagram", id).Debug("diagram rendered")
		case err == errDetached:
			report.Skipped++
		case t.fail(n, id):
			report.Failed++
			h.sink.DiagramFailed(id, err.Error())
		default:
			report.Skipped++
		}
	}
	return report
}

func (h *Hydrator) render(ctx context.Context, id, description string) (graphic string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("diagram engine panic: %v", r)
		}
	}()
	return h.engine.Render(ctx, id, description)
}
