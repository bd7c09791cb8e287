package spawn

import "github.com/velmoren/towerd/internal/core"

// Handle identifies a live spawned instance: the item itself plus the type
// identifier needed to return it to the right pool.
type Handle struct {
	TypeID string
	Item   Spawnable
	At     core.Transform
}

// Spawner is the stateless convenience layer over a registry. A spawn is a
// registry acquisition followed by an activation; a despawn is the mirror
// image. Failures come back as the registry's sentinel errors, never panics.
type Spawner struct {
	reg *Registry
}

// NewSpawner creates a spawner over the given registry.
func NewSpawner(reg *Registry) *Spawner {
	return &Spawner{reg: reg}
}

// Spawn acquires an instance of typeID, activates it at the given position
// and rotation, and returns a handle to it.
func (s *Spawner) Spawn(typeID string, pos core.Position, rot core.Rotation) (Handle, error) {
	item, err := s.reg.Acquire(typeID)
	if err != nil {
		return Handle{}, err
	}

	at := core.Transform{Position: pos, Rotation: rot}
	s.reg.regs[typeID].factory.Activate(item, at)

	return Handle{TypeID: typeID, Item: item, At: at}, nil
}

// Despawn deactivates a spawned instance and releases it back to its pool.
// Safe to call twice; the second call reports the pool's double-release
// error without touching the instance again.
func (s *Spawner) Despawn(h Handle) error {
	reg, ok := s.reg.regs[h.TypeID]
	if !ok {
		return s.reg.Release(h.TypeID, h.Item) // yields ErrNotRegistered
	}
	if reg.pool.IsActive(h.Item) {
		reg.factory.Deactivate(h.Item)
	}
	return s.reg.Release(h.TypeID, h.Item)
}
