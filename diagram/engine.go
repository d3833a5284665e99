// Package diagram adapts external diagram renderers to a single contract:
// render a textual description under a caller supplied id, or report why not.
package diagram

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyDescription is returned for blank diagram text.
	ErrEmptyDescription = errors.New("empty diagram description")
	// ErrDisabled is returned by the disabled engine.
	ErrDisabled = errors.New("diagram rendering is disabled")
)

// Engine renders a diagram description to graphic markup (SVG). The id must
// be used for the root element so graphics on one page never collide.
// Engines accept arbitrary text; bad syntax comes back as an error.
type Engine interface {
	Render(ctx context.Context, id, description string) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, id, description string) (string, error)

func (f EngineFunc) Render(ctx context.Context, id, description string) (string, error) {
	return f(ctx, id, description)
}

func validate(description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

type disabled struct{}

// Disabled returns an engine that fails every diagram with ErrDisabled, so
// diagrams stay readable as text.
func Disabled() Engine {
	return disabled{}
}

func (disabled) Render(_ context.Context, _, description string) (string, error) {
	if err := validate(description); err != nil {
		return "", err
	}
	return "", ErrDisabled
}
