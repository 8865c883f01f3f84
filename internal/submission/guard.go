package submission

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when a submission for the same key is already in flight.
var ErrBusy = errors.New("submission: already in flight")

// ErrSaturated is returned when every generation slot is taken. It matches ErrBusy.
var ErrSaturated = fmt.Errorf("%w: no free generation slot", ErrBusy)

// Guard allows one in-flight submission per key. With a capacity it also
// bounds the submissions in flight across all keys.
type Guard struct {
	mu    sync.Mutex
	keys  map[string]struct{}
	slots *semaphore.Weighted
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithCapacity caps concurrent submissions across every key. n <= 0 means no cap.
func WithCapacity(n int64) GuardOption {
	return func(g *Guard) {
		if n > 0 {
			g.slots = semaphore.NewWeighted(n)
		}
	}
}

// NewGuard constructs an empty Guard.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{keys: make(map[string]struct{})}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire claims the slot for key without blocking. The returned release must be called once.
func (g *Guard) Acquire(key string) (func(), error) {
	g.mu.Lock()
	if _, busy := g.keys[key]; busy {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	g.keys[key] = struct{}{}
	g.mu.Unlock()

	if g.slots != nil && !g.slots.TryAcquire(1) {
		g.forget(key)
		return nil, ErrSaturated
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if g.slots != nil {
				g.slots.Release(1)
			}
			g.forget(key)
		})
	}, nil
}

func (g *Guard) forget(key string) {
	g.mu.Lock()
	delete(g.keys, key)
	g.mu.Unlock()
}

// InFlight reports how many keys currently hold a slot.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}
