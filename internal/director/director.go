// Package director sequences a level: it sizes pools from level hints,
// drives timed wave spawning through the spawn facade, tracks the live
// population via death notifications, and emits lifecycle events.
//
// The director is tick-driven and single-threaded: LoadLevel, Tick, Abort,
// and NotifyBaseDestroyed must all be called from one goroutine. The only
// call safe from other goroutines is OnEntityDied, which is queued and
// drained on the next tick.
package director

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/level"
	"github.com/velmoren/towerd/internal/spawn"
)

// FactorySource supplies factories for the enemy types a level references.
// The engine layer implements this over its prefab/template catalog.
type FactorySource interface {
	FactoryFor(typeID string) (spawn.Factory, bool)
}

// request is one pending spawn: a type and the point rotation it draws from.
type request struct {
	typeID string
	points *spawn.PointSet
}

// death is a queued OnEntityDied notification.
type death struct {
	typeID string
	item   spawn.Spawnable
}

// Progress is a read-only snapshot of the director's counters, consumed by
// the watch TUI and by tests.
type Progress struct {
	State        State
	WaveIndex    int
	TotalWaves   int
	Remaining    int // Spawn requests left in the current wave's queue
	Live         int // Spawned and not yet reported dead
	Spawned      int // Successful spawns in the current wave
	Skipped      int // Failed spawns in the current wave
	TotalSpawned int
	TotalSkipped int
}

// Director is the wave/level orchestrator state machine.
type Director struct {
	cfg       core.SimConfig
	reg       *spawn.Registry
	spawner   *spawn.Spawner
	factories FactorySource
	logger    *log.Logger
	rng       *rand.Rand

	state   State
	lvl     level.Level
	points  *spawn.PointSet
	waveIdx int

	queue     []request
	remaining int
	live      int

	// outstanding tracks every live handle so Abort can force-reclaim
	// instances whose death was never observed.
	outstanding map[spawn.Spawnable]spawn.Handle

	spawned, skipped           int
	totalSpawned, totalSkipped int

	now    core.Tick
	timers timerQueue
	subs   []Subscriber

	deathMu       sync.Mutex
	pendingDeaths []death
}

// New creates a director over the given registry. The registry is shared,
// not owned; it may outlive one level. A nil logger falls back to the
// package default.
func New(cfg core.SimConfig, reg *spawn.Registry, factories FactorySource, logger *log.Logger) *Director {
	if logger == nil {
		logger = log.Default()
	}
	return &Director{
		cfg:         cfg,
		reg:         reg,
		spawner:     spawn.NewSpawner(reg),
		factories:   factories,
		logger:      logger,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		state:       StateIdle,
		waveIdx:     -1,
		outstanding: make(map[spawn.Spawnable]spawn.Handle),
	}
}

// Subscribe adds a lifecycle event subscriber. Must be called before
// LoadLevel.
func (d *Director) Subscribe(fn Subscriber) {
	d.subs = append(d.subs, fn)
}

// State returns the current machine state.
func (d *Director) State() State {
	return d.state
}

// Now returns the current tick.
func (d *Director) Now() core.Tick {
	return d.now
}

// Level returns the loaded level definition.
func (d *Director) Level() level.Level {
	return d.lvl
}

// Progress returns a snapshot of the orchestration counters.
func (d *Director) Progress() Progress {
	return Progress{
		State:        d.state,
		WaveIndex:    d.waveIdx,
		TotalWaves:   len(d.lvl.Waves),
		Remaining:    d.remaining,
		Live:         d.live,
		Spawned:      d.spawned,
		Skipped:      d.skipped,
		TotalSpawned: d.totalSpawned,
		TotalSkipped: d.totalSkipped,
	}
}

// LoadLevel registers the level's pool hints and arms the first wave. Legal
// from Idle and from the terminal states; a level already in progress must
// be aborted first.
func (d *Director) LoadLevel(lvl level.Level) error {
	if d.state != StateIdle && !d.state.Terminal() {
		return fmt.Errorf("director: level %q still in progress (%s)", d.lvl.ID, d.state)
	}

	d.state = StateLevelLoading
	d.lvl = lvl
	d.points = spawn.NewPointSet(lvl.SpawnTransforms())
	d.waveIdx = -1
	d.queue = nil
	d.remaining = 0
	d.live = 0
	d.spawned, d.skipped = 0, 0
	d.totalSpawned, d.totalSkipped = 0, 0
	d.timers.clear()
	clear(d.outstanding)

	// Hinted policies apply only to types not already registered; existing
	// registrations win.
	for _, typeID := range sortedHintIDs(lvl) {
		if d.reg.IsRegistered(typeID) {
			continue
		}
		factory, ok := d.factories.FactoryFor(typeID)
		if !ok {
			d.logger.Warn("no factory for hinted type", "type", typeID)
			continue
		}
		if err := d.reg.Register(typeID, factory, lvl.Pools[typeID].Policy()); err != nil {
			return fmt.Errorf("director: registering %q: %w", typeID, err)
		}
	}

	if len(lvl.Waves) == 0 {
		// A level without waves completes vacuously; a cutscene-only level
		// is not an error.
		d.logger.Info("level has no waves, completing immediately", "level", lvl.ID)
		d.state = StateLevelComplete
		d.emit(Victory{})
		return nil
	}

	d.armWave(0)
	return nil
}

// Tick advances the simulation by one tick: queued deaths are drained first,
// then due timers fire. All timed waits and the wave-clear barrier resolve
// here; nothing blocks.
func (d *Director) Tick() {
	d.now++
	d.drainDeaths()
	d.timers.runDue(d.now)
}

// OnEntityDied reports the end of life of a spawned instance. It must be
// called exactly once per instance but tolerates duplicates, and is safe to
// call from any goroutine; processing happens on the next Tick.
func (d *Director) OnEntityDied(typeID string, item spawn.Spawnable) {
	d.deathMu.Lock()
	d.pendingDeaths = append(d.pendingDeaths, death{typeID: typeID, item: item})
	d.deathMu.Unlock()
}

// Abort cancels all pending timers and force-reclaims every outstanding
// instance, leaving no entity active in any pool owned by this level. Safe
// to call in any state; terminal afterwards.
func (d *Director) Abort() {
	if d.state.Terminal() {
		return
	}
	d.teardown()
	d.state = StateAborted
}

// NotifyBaseDestroyed signals that the defended structure fell. The level
// ends immediately in Defeat regardless of wave state.
func (d *Director) NotifyBaseDestroyed() {
	if d.state.Terminal() {
		return
	}
	d.teardown()
	d.state = StateAborted
	d.emit(Defeat{})
}

// teardown cancels timers and reclaims outstanding handles.
func (d *Director) teardown() {
	d.timers.clear()
	d.queue = nil
	d.remaining = 0
	for _, h := range d.outstanding {
		if err := d.spawner.Despawn(h); err != nil {
			d.logger.Warn("reclaim failed", "type", h.TypeID, "err", err)
		}
	}
	clear(d.outstanding)
	d.live = 0
}

// armWave moves to WaveStarting for the given index and schedules the wave
// start after its delay.
func (d *Director) armWave(index int) {
	d.waveIdx = index
	d.state = StateWaveStarting
	delay := d.lvl.Waves[index].StartDelay.Std()
	d.timers.schedule(d.now+d.delayTicks(delay), d.startWave)
}

// startWave builds the spawn queue and begins spawning. Malformed entries
// (count <= 0 or empty type) are dropped here, not at load time.
func (d *Director) startWave() {
	wave := d.lvl.Waves[d.waveIdx]

	var valid []level.SpawnEntry
	for _, e := range wave.Entries {
		if !e.Valid() {
			d.logger.Warn("dropping malformed wave entry",
				"wave", d.waveIdx, "type", e.TypeID, "count", e.Count)
			continue
		}
		valid = append(valid, e)
	}

	d.queue = d.buildQueue(valid)
	d.remaining = len(d.queue)
	d.live = 0
	d.spawned, d.skipped = 0, 0

	d.logger.Info("wave started", "level", d.lvl.ID, "wave", d.waveIdx,
		"name", wave.Name, "enemies", d.remaining)
	d.emit(WaveStarted{Index: d.waveIdx, Total: len(d.lvl.Waves)})

	if len(d.queue) == 0 {
		d.state = StateWaveWaitingClear
		d.checkClear()
		return
	}

	d.state = StateWaveSpawning
	d.timers.schedule(d.now+d.delayTicks(wave.SpawnInterval.Std()), d.spawnNext)
}

// buildQueue expands entries into individual spawn requests. With equal
// weights the order is a deterministic round-robin across entries so mixed
// waves interleave types; differing weights switch to a weighted random draw
// among entries with remaining count.
func (d *Director) buildQueue(entries []level.SpawnEntry) []request {
	if len(entries) == 0 {
		return nil
	}

	type cursor struct {
		entry     level.SpawnEntry
		remaining int
		points    *spawn.PointSet
	}

	cursors := make([]*cursor, len(entries))
	for i, e := range entries {
		points := d.points
		if len(e.SpawnPoints) > 0 {
			transforms := make([]core.Transform, len(e.SpawnPoints))
			for j, p := range e.SpawnPoints {
				transforms[j] = p.Transform()
			}
			points = spawn.NewPointSet(transforms)
		}
		cursors[i] = &cursor{entry: e, remaining: e.Count, points: points}
	}

	weighted := false
	for _, c := range cursors {
		if c.entry.Weight != cursors[0].entry.Weight {
			weighted = true
			break
		}
	}

	var queue []request
	if !weighted {
		for {
			progressed := false
			for _, c := range cursors {
				if c.remaining == 0 {
					continue
				}
				queue = append(queue, request{typeID: c.entry.TypeID, points: c.points})
				c.remaining--
				progressed = true
			}
			if !progressed {
				break
			}
		}
		return queue
	}

	for {
		totalWeight := 0.0
		for _, c := range cursors {
			if c.remaining > 0 {
				totalWeight += entryWeight(c.entry)
			}
		}
		if totalWeight == 0 {
			break
		}
		draw := d.rng.Float64() * totalWeight
		for _, c := range cursors {
			if c.remaining == 0 {
				continue
			}
			draw -= entryWeight(c.entry)
			if draw < 0 {
				queue = append(queue, request{typeID: c.entry.TypeID, points: c.points})
				c.remaining--
				break
			}
		}
	}
	return queue
}

// spawnNext pops one request from the queue. A failed spawn is skipped and
// logged, never retried, and never blocks wave completion.
func (d *Director) spawnNext() {
	if d.state != StateWaveSpawning || len(d.queue) == 0 {
		return
	}

	req := d.queue[0]
	d.queue = d.queue[1:]
	d.remaining--

	at := req.points.Next()
	h, err := d.spawner.Spawn(req.typeID, at.Position, at.Rotation)
	if err != nil {
		d.skipped++
		d.totalSkipped++
		d.logger.Warn("spawn skipped", "type", req.typeID, "wave", d.waveIdx, "err", err)
	} else {
		d.spawned++
		d.totalSpawned++
		d.live++
		d.outstanding[h.Item] = h
	}

	if len(d.queue) == 0 {
		d.state = StateWaveWaitingClear
		d.checkClear()
		return
	}

	wave := d.lvl.Waves[d.waveIdx]
	d.timers.schedule(d.now+d.delayTicks(wave.SpawnInterval.Std()), d.spawnNext)
}

// drainDeaths applies queued death notifications on the tick thread.
// Unknown items (duplicates, or instances already reclaimed by Abort) are
// ignored.
func (d *Director) drainDeaths() {
	d.deathMu.Lock()
	deaths := d.pendingDeaths
	d.pendingDeaths = nil
	d.deathMu.Unlock()

	for _, dn := range deaths {
		h, ok := d.outstanding[dn.item]
		if !ok {
			d.logger.Debug("ignoring death for untracked instance", "type", dn.typeID)
			continue
		}
		if dn.typeID != h.TypeID {
			d.logger.Warn("death reported with wrong type",
				"got", dn.typeID, "want", h.TypeID)
		}
		if err := d.spawner.Despawn(h); err != nil {
			d.logger.Warn("release on death failed", "type", h.TypeID, "err", err)
		}
		delete(d.outstanding, dn.item)
		d.live--
		d.checkClear()
	}
}

// checkClear resolves the wave-clear barrier: the spawn queue must be empty
// and the live population zero.
func (d *Director) checkClear() {
	if d.state != StateWaveWaitingClear || d.live > 0 || d.remaining > 0 {
		return
	}

	index := d.waveIdx
	d.logger.Info("wave completed", "level", d.lvl.ID, "wave", index,
		"spawned", d.spawned, "skipped", d.skipped)
	d.emit(WaveCompleted{Index: index})

	if index == len(d.lvl.Waves)-1 {
		d.state = StateLevelComplete
		d.logger.Info("level complete", "level", d.lvl.ID,
			"spawned", d.totalSpawned, "skipped", d.totalSkipped)
		d.emit(Victory{})
		return
	}

	next := index + 1
	d.state = StateWaveStarting
	d.timers.schedule(d.now+d.delayTicks(d.lvl.InterWaveDelay.Std()), func() {
		d.armWave(next)
	})
}

// entryWeight treats an unset weight as the default equal weight of 1.
func entryWeight(e level.SpawnEntry) float64 {
	if e.Weight <= 0 {
		return 1
	}
	return e.Weight
}

func (d *Director) emit(e Event) {
	for _, fn := range d.subs {
		fn(e)
	}
}

// delayTicks converts a duration into at least one tick, so a zero delay
// still yields to the next tick instead of re-entering synchronously.
func (d *Director) delayTicks(dur time.Duration) core.Tick {
	t := d.cfg.Ticks(dur)
	if t == 0 {
		t = 1
	}
	return t
}

// sortedHintIDs returns the level's pool hint type ids in deterministic
// order.
func sortedHintIDs(lvl level.Level) []string {
	ids := make([]string, 0, len(lvl.Pools))
	for id := range lvl.Pools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
