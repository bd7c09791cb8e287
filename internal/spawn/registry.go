package spawn

import (
	"errors"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/velmoren/towerd/internal/pool"
)

// ErrNotRegistered is returned for any operation referencing an unknown type
// identifier.
var ErrNotRegistered = errors.New("spawn: type not registered")

// ErrWrongOwner is returned by Release when the item belongs to a different
// registration than the given type identifier.
var ErrWrongOwner = errors.New("spawn: item owned by a different type")

// DefaultMaxSize is the pool cap applied when a policy leaves MaxSize at 0.
const DefaultMaxSize = 64

// registration binds a type identifier to its factory, resolved policy, and
// pool. Owned exclusively by the registry; callers only ever see the typeID.
type registration struct {
	typeID  string
	factory Factory
	policy  pool.Policy
	pool    *pool.Pool[Spawnable]
}

// Registry owns one pool per registered type identifier. It is created per
// level (or shared across levels by an owner that clears it in between) and
// passed by reference to the director; there is no global instance.
type Registry struct {
	defaultMax int
	logger     *log.Logger
	regs       map[string]*registration
	owners     map[Spawnable]*registration // O(1) owning-pool lookup per item
}

// NewRegistry creates an empty registry. A nil logger falls back to the
// package default.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		defaultMax: DefaultMaxSize,
		logger:     logger,
		regs:       make(map[string]*registration),
		owners:     make(map[Spawnable]*registration),
	}
}

// SetDefaultMaxSize overrides the cap used for policies with MaxSize 0.
// Affects only registrations made after the call.
func (r *Registry) SetDefaultMaxSize(n int) {
	if n > 0 {
		r.defaultMax = n
	}
}

// Register creates a pool for typeID and pre-warms it to policy.InitialSize.
// Re-registering an existing typeID replaces the registration after draining
// the old pool; this is allowed but logged, since it orphans any instances
// still active under the old registration.
func (r *Registry) Register(typeID string, factory Factory, policy pool.Policy) error {
	if typeID == "" {
		return fmt.Errorf("spawn: empty type id")
	}
	if factory == nil {
		return fmt.Errorf("spawn: nil factory for %q", typeID)
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	if policy.MaxSize == 0 {
		policy.MaxSize = r.defaultMax
		if policy.InitialSize > policy.MaxSize {
			policy.InitialSize = policy.MaxSize
		}
	}

	if old, exists := r.regs[typeID]; exists {
		r.logger.Warn("replacing live registration", "type", typeID,
			"active", old.pool.Stats().Active)
		r.drain(old)
	}

	reg := &registration{typeID: typeID, factory: factory, policy: policy}
	reg.pool = pool.New(policy,
		func() Spawnable {
			item := factory.Create()
			r.owners[item] = reg
			return item
		},
		factory.Reset,
	)
	r.regs[typeID] = reg

	warmed := reg.pool.Prewarm(policy.InitialSize)
	if warmed < policy.InitialSize {
		r.logger.Warn("prewarm truncated", "type", typeID,
			"requested", policy.InitialSize, "constructed", warmed)
	}
	return nil
}

// Unregister drains and destroys the pool for typeID. Subsequent calls for
// that id fail with ErrNotRegistered.
func (r *Registry) Unregister(typeID string) error {
	reg, ok := r.regs[typeID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, typeID)
	}
	r.drain(reg)
	delete(r.regs, typeID)
	return nil
}

// Clear unregisters everything. Owners sharing one registry across levels
// call this between levels to avoid cross-level leakage.
func (r *Registry) Clear() {
	for id, reg := range r.regs {
		r.drain(reg)
		delete(r.regs, id)
	}
}

// IsRegistered reports whether typeID has a live registration.
func (r *Registry) IsRegistered(typeID string) bool {
	_, ok := r.regs[typeID]
	return ok
}

// TypeIDs returns all registered type identifiers, sorted for deterministic
// ordering. Used by validation tooling.
func (r *Registry) TypeIDs() []string {
	ids := make([]string, 0, len(r.regs))
	for id := range r.regs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Acquire takes an instance from typeID's pool. Returns ErrNotRegistered for
// unknown ids and pool.ErrNoCapacity when the pool is exhausted.
func (r *Registry) Acquire(typeID string) (Spawnable, error) {
	reg, ok := r.regs[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, typeID)
	}
	return reg.pool.Acquire()
}

// Release returns an item to typeID's pool. The item must have been created
// by that registration; the owner map makes the check O(1) so callers carry
// no bookkeeping. Double releases surface as pool.ErrNotActive.
func (r *Registry) Release(typeID string, item Spawnable) error {
	reg, ok := r.regs[typeID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, typeID)
	}
	if owner, known := r.owners[item]; known && owner != reg {
		return fmt.Errorf("%w: got %q, item belongs to %q", ErrWrongOwner, typeID, owner.typeID)
	}
	return reg.pool.Release(item)
}

// Owner returns the type identifier that created item, if any.
func (r *Registry) Owner(item Spawnable) (string, bool) {
	reg, ok := r.owners[item]
	if !ok {
		return "", false
	}
	return reg.typeID, true
}

// Stats returns the pool snapshot for typeID.
func (r *Registry) Stats(typeID string) (pool.Stats, error) {
	reg, ok := r.regs[typeID]
	if !ok {
		return pool.Stats{}, fmt.Errorf("%w: %q", ErrNotRegistered, typeID)
	}
	return reg.pool.Stats(), nil
}

// drain empties a registration's pool, deactivating every instance and
// dropping owner tracking.
func (r *Registry) drain(reg *registration) {
	for _, item := range reg.pool.Drain() {
		reg.factory.Deactivate(item)
		delete(r.owners, item)
	}
}
