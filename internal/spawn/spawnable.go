// Package spawn maps runtime-registered type identifiers to factories and
// their pools, and provides the facade that turns "spawn type X at P" into a
// registry lookup, a pool acquisition, and an activation.
//
// Nothing in this package is safe for concurrent use; the director owns the
// registry and dispatches all calls from its single tick thread.
package spawn

import "github.com/velmoren/towerd/internal/core"

// Spawnable is a poolable instance. The registry tracks it by identity only
// and never inspects it; all behavior goes through the owning Factory. The
// engine layer supplies pointer types, which keeps identity comparison cheap.
type Spawnable any

// Factory is the capability set the engine layer supplies per type
// identifier. This is data-driven polymorphism: one registration per enemy
// kind, no type hierarchy.
type Factory interface {
	// Create constructs a fresh inactive instance.
	Create() Spawnable

	// Reset returns an instance to its default state so it can be reused.
	// Called by the pool on every release.
	Reset(item Spawnable)

	// Activate places an instance into the world at the given transform and
	// marks it enabled.
	Activate(item Spawnable, at core.Transform)

	// Deactivate hides and disables an instance without destroying it.
	Deactivate(item Spawnable)
}
