// Package pool provides a generic reusable-object pool. Instances are
// pre-constructed up to a configured size and cycled between an available
// stack and an active set instead of being allocated per spawn.
package pool

import (
	"errors"
	"fmt"
)

// ErrNoCapacity is returned by Acquire when the pool is at its maximum size,
// not expandable, and has no available instance.
var ErrNoCapacity = errors.New("pool: no capacity")

// ErrNotActive is returned by Release for an item the pool does not currently
// track as active. Double releases land here and leave the pool untouched.
var ErrNotActive = errors.New("pool: item not active")

// Policy controls the sizing behavior of a pool.
type Policy struct {
	InitialSize int  // Instances constructed up front
	MaxSize     int  // Hard cap; 0 means "use the registry default"
	Expandable  bool // Allow growth past MaxSize under pressure
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	if p.InitialSize < 0 || p.MaxSize < 0 {
		return fmt.Errorf("pool: negative size in policy %+v", p)
	}
	if p.MaxSize > 0 && p.InitialSize > p.MaxSize {
		return fmt.Errorf("pool: initial size %d exceeds max size %d", p.InitialSize, p.MaxSize)
	}
	return nil
}

// Stats is a read-only snapshot of pool occupancy.
type Stats struct {
	Active    int // Instances currently acquired
	Available int // Instances ready for reuse
	Total     int // Active + Available
	HighWater int // Largest Total ever observed
}

// Pool holds pre-constructed instances of one concrete kind. Every instance
// is in exactly one of the available stack or the active set; Acquire and
// Release are the only transitions. The pool is not safe for concurrent use;
// the director guarantees single-threaded dispatch.
//
// T must be comparable at runtime (pointer or interface holding a pointer),
// since active membership is tracked by identity.
type Pool[T any] struct {
	newFn   func() T
	resetFn func(T)
	policy  Policy

	available []T // LIFO so a released item is the next one reused
	active    map[any]struct{}
	highWater int
}

// New creates a pool with the given policy and construction/reset hooks.
// The policy must already be validated and have a resolved MaxSize.
func New[T any](policy Policy, newFn func() T, resetFn func(T)) *Pool[T] {
	return &Pool[T]{
		newFn:   newFn,
		resetFn: resetFn,
		policy:  policy,
		active:  make(map[any]struct{}),
	}
}

// Prewarm constructs up to n instances into the available stack. Growth past
// MaxSize is refused unless the pool is expandable; the returned count is the
// number actually constructed.
func (p *Pool[T]) Prewarm(n int) int {
	constructed := 0
	for i := 0; i < n; i++ {
		if !p.policy.Expandable && p.policy.MaxSize > 0 && p.total() >= p.policy.MaxSize {
			break
		}
		p.available = append(p.available, p.newFn())
		constructed++
	}
	p.recordHighWater()
	return constructed
}

// Acquire returns an instance for use, favoring reuse over construction.
// A new instance is constructed when the pool is below its cap, or past the
// cap when the policy is expandable. Returns ErrNoCapacity otherwise.
func (p *Pool[T]) Acquire() (T, error) {
	if n := len(p.available); n > 0 {
		item := p.available[n-1]
		p.available = p.available[:n-1]
		p.active[item] = struct{}{}
		return item, nil
	}

	if p.policy.MaxSize > 0 && p.total() >= p.policy.MaxSize && !p.policy.Expandable {
		var zero T
		return zero, ErrNoCapacity
	}

	item := p.newFn()
	p.active[item] = struct{}{}
	p.recordHighWater()
	return item, nil
}

// Release returns an item to the available stack after invoking the reset
// hook. Releasing an item that is not active is an error and a no-op.
func (p *Pool[T]) Release(item T) error {
	if _, ok := p.active[item]; !ok {
		return ErrNotActive
	}
	delete(p.active, item)
	if p.resetFn != nil {
		p.resetFn(item)
	}
	p.available = append(p.available, item)
	return nil
}

// IsActive reports whether the pool currently tracks item as acquired.
func (p *Pool[T]) IsActive(item T) bool {
	_, ok := p.active[item]
	return ok
}

// Drain removes every instance from the pool, active ones included, and
// returns them so the owner can run teardown hooks. The pool is empty but
// still usable afterwards.
func (p *Pool[T]) Drain() []T {
	items := make([]T, 0, p.total())
	items = append(items, p.available...)
	for key := range p.active {
		items = append(items, key.(T))
	}
	p.available = p.available[:0]
	p.active = make(map[any]struct{})
	return items
}

// Stats returns a snapshot of pool occupancy. No side effects.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Active:    len(p.active),
		Available: len(p.available),
		Total:     p.total(),
		HighWater: p.highWater,
	}
}

func (p *Pool[T]) total() int {
	return len(p.available) + len(p.active)
}

func (p *Pool[T]) recordHighWater() {
	if t := p.total(); t > p.highWater {
		p.highWater = t
	}
}
