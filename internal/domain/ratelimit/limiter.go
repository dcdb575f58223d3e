// Package ratelimit implements per-identifier sliding-window admission.
//
// Each identifier owns the timestamps of its admitted requests inside the
// trailing window. A request is denied once the window holds MaxRequests
// entries; there is no credit accumulation between windows.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInvalidConfig = errors.New("rate limit: max requests and window must be positive")

// Config parameterises a Limiter.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the result of one admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is the whole number of seconds until a slot frees up. It is
	// at least 1 when the request was denied and 0 otherwise.
	RetryAfter int
	// Remaining is the number of further requests the window would admit now.
	Remaining int
}

// Limiter is safe for concurrent use. Construct it with New and release the
// janitor started by Start with Close.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a Limiter with no recorded history.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if cfg.MaxRequests <= 0 || cfg.Window <= 0 {
		return nil, ErrInvalidConfig
	}
	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the limiter parameters.
func (l *Limiter) Config() Config { return l.cfg }

// Admit records a request for id if the window has room.
func (l *Limiter) Admit(id string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entries := prune(l.windows[id], now.Add(-l.cfg.Window))

	if len(entries) >= l.cfg.MaxRequests {
		l.store(id, entries)
		return Decision{Allowed: false, RetryAfter: retryAfter(entries[0], l.cfg.Window, now)}
	}

	// Keep the sequence non-decreasing even if the clock steps backwards.
	if n := len(entries); n > 0 && now.Before(entries[n-1]) {
		now = entries[n-1]
	}
	entries = append(entries, now)
	l.store(id, entries)
	return Decision{Allowed: true, Remaining: l.cfg.MaxRequests - len(entries)}
}

// Sweep prunes every identifier and drops the ones left empty.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.Window)
	for id, entries := range l.windows {
		l.store(id, prune(entries, cutoff))
	}
}

// Len returns the number of identifiers with live history.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Start runs Sweep every interval until ctx is done or Close is called.
// Calling Start more than once has no effect.
func (l *Limiter) Start(ctx context.Context, interval time.Duration) {
	l.mu.Lock()
	if l.done != nil {
		l.mu.Unlock()
		return
	}
	l.done = make(chan struct{})
	l.mu.Unlock()

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stop:
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

// Close stops the janitor and waits for it to exit. It is safe to call on
// a limiter that was never started and to call more than once.
func (l *Limiter) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })

	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

func (l *Limiter) store(id string, entries []time.Time) {
	if len(entries) == 0 {
		delete(l.windows, id)
		return
	}
	l.windows[id] = entries
}

// prune drops entries at or before cutoff. entries is ordered, so the live
// suffix starts at the first entry after cutoff.
func prune(entries []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	return append(entries[:0:0], entries[i:]...)
}

func retryAfter(oldest time.Time, window time.Duration, now time.Time) int {
	wait := oldest.Add(window).Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
