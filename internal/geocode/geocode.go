// Package geocode attaches coordinates to city rows. Lookups go through a
// Geocoder, which decorators make rate limited, retrying and cached. Results
// persist in a Store between runs.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Coord is a WGS84 position.
type Coord struct {
	Lat float64
	Lon float64
}

// Key identifies a place by city and state/province.
type Key struct {
	City   string
	Region string
}

func (k Key) String() string { return k.City + ", " + k.Region }

// Geocoder resolves a place. found is false when the place is unknown; err is
// reserved for failures.
type Geocoder interface {
	Lookup(ctx context.Context, city, region string) (c Coord, found bool, err error)
}

// ErrTransient marks a failure worth retrying (timeouts, throttling).
var ErrTransient = errors.New("geocode: transient failure")

// Transient wraps err so that IsTransient reports true.
func Transient(err error) error { return fmt.Errorf("%w: %w", ErrTransient, err) }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// Static resolves places from a fixed table.
type Static map[Key]Coord

func (s Static) Lookup(_ context.Context, city, region string) (Coord, bool, error) {
	c, ok := s[Key{City: city, Region: region}]
	return c, ok, nil
}

// RateLimited spaces out calls to the wrapped Geocoder.
type RateLimited struct {
	inner Geocoder
	lim   *rate.Limiter
}

// NewRateLimited allows perSecond lookups with the given burst. A
// non-positive rate disables limiting.
func NewRateLimited(g Geocoder, perSecond float64, burst int) *RateLimited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: g, lim: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Lookup(ctx context.Context, city, region string) (Coord, bool, error) {
	if err := r.lim.Wait(ctx); err != nil {
		return Coord{}, false, err
	}
	return r.inner.Lookup(ctx, city, region)
}

// Retrying retries transient failures with exponential backoff. Other errors
// are returned immediately.
type Retrying struct {
	Inner      Geocoder
	MaxRetries uint64
	Initial    time.Duration // first wait; 0 uses 500ms
	Max        time.Duration // cap per wait; 0 uses 10s
}

func (r Retrying) Lookup(ctx context.Context, city, region string) (Coord, bool, error) {
	var (
		c     Coord
		found bool
	)
	op := func() error {
		var err error
		c, found, err = r.Inner.Lookup(ctx, city, region)
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	if r.Initial > 0 {
		b.InitialInterval = r.Initial
	}
	b.MaxInterval = 10 * time.Second
	if r.Max > 0 {
		b.MaxInterval = r.Max
	}
	b.MaxElapsedTime = 0

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, r.MaxRetries), ctx)); err != nil {
		return Coord{}, false, err
	}
	return c, found, nil
}

type cached struct {
	c     Coord
	found bool
}

// Cached memoizes lookups of the wrapped Geocoder, including not-found
// answers. Errors are not cached. Added returns what was resolved beyond the
// seed, for persisting.
type Cached struct {
	inner Geocoder

	mu      sync.Mutex
	entries map[Key]cached
	added   map[Key]Coord
}

// NewCached wraps g and pre-populates the memo with seed.
func NewCached(g Geocoder, seed map[Key]Coord) *Cached {
	c := &Cached{
		inner:   g,
		entries: make(map[Key]cached, len(seed)),
		added:   map[Key]Coord{},
	}
	for k, v := range seed {
		c.entries[k] = cached{c: v, found: true}
	}
	return c
}

func (c *Cached) Lookup(ctx context.Context, city, region string) (Coord, bool, error) {
	k := Key{City: city, Region: region}
	c.mu.Lock()
	e, ok := c.entries[k]
	c.mu.Unlock()
	if ok {
		return e.c, e.found, nil
	}

	coord, found, err := c.inner.Lookup(ctx, city, region)
	if err != nil {
		return Coord{}, false, err
	}
	c.mu.Lock()
	c.entries[k] = cached{c: coord, found: found}
	if found {
		c.added[k] = coord
	}
	c.mu.Unlock()
	return coord, found, nil
}

// Added returns a copy of the coordinates resolved since construction.
func (c *Cached) Added() map[Key]Coord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Key]Coord, len(c.added))
	for k, v := range c.added {
		out[k] = v
	}
	return out
}
