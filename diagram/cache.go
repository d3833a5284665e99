package diagram

import (
	"context"
	"hash/fnv"
	"io"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"
)

type cachedGraphic struct {
	description string
	id          string
	svg         string
}

// CachedEngine remembers successful renders by description. A hit is
// returned with the cached id replaced by the requested one. Failures are
// never cached, so a remount retries them.
type CachedEngine struct {
	next  Engine
	cache *gocache.Cache
}

func NewCached(next Engine, ttl time.Duration) *CachedEngine {
	return &CachedEngine{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedEngine) Render(ctx context.Context, id, description string) (string, error) {
	key := cacheKey(description)
	if v, ok := c.cache.Get(key); ok {
		g := v.(cachedGraphic)
		if g.description == description {
			return renameID(g.svg, g.id, id), nil
		}
	}

	svg, err := c.next.Render(ctx, id, description)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, cachedGraphic{description: description, id: id, svg: svg})
	return svg, nil
}

func (c *CachedEngine) Close() error {
	return Close(c.next)
}

func cacheKey(description string) string {
	h := fnv.New64a()
	h.Write([]byte(description))
	return strconv.FormatUint(h.Sum64(), 36)
}

type limitedEngine struct {
	next Engine
	sem  *semaphore.Weighted
}

// Limit caps the number of renders in flight across all callers. n <= 0
// returns next unchanged.
func Limit(next Engine, n int) Engine {
	if n <= 0 {
		return next
	}
	return &limitedEngine{next: next, sem: semaphore.NewWeighted(int64(n))}
}

func (l *limitedEngine) Render(ctx context.Context, id, description string) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.next.Render(ctx, id, description)
}

func (l *limitedEngine) Close() error {
	return Close(l.next)
}

type timeoutEngine struct {
	next    Engine
	timeout time.Duration
}

// WithTimeout bounds every render. d <= 0 returns next unchanged.
func WithTimeout(next Engine, d time.Duration) Engine {
	if d <= 0 {
		return next
	}
	return &timeoutEngine{next: next, timeout: d}
}

func (t *timeoutEngine) Render(ctx context.Context, id, description string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Render(ctx, id, description)
}

func (t *timeoutEngine) Close() error {
	return Close(t.next)
}

// Close releases resources held by e or anything it wraps.
func Close(e Engine) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
