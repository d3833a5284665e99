package slide

import (
	"fmt"
	"sync"
)

// IDGenerator hands out diagram ids ("<prefix>-1", "<prefix>-2", ...). It is
// owned by a single view and never resets, so an id is never reused while
// the view lives.
type IDGenerator struct {
	prefix  string
	counter uint64
	mu      sync.Mutex
}

func NewIDGenerator(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// Next returns the next id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// Current returns the number of ids handed out so far.
func (g *IDGenerator) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
