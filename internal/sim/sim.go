// Package sim runs a level headlessly: stub enemies are spawned through the
// real pool/registry/director pipeline, live for a seeded random lifetime,
// and either expire or breach the defended base. The same runner backs the
// run command, the watch TUI, and the SSH server.
package sim

import (
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/director"
	"github.com/velmoren/towerd/internal/level"
	"github.com/velmoren/towerd/internal/spawn"
)

// Outcome classifies how a simulated level ended.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeAborted Outcome = "aborted"
	OutcomeTimeout Outcome = "timeout"
)

// Options tune the battle model. Zero values fall back to defaults.
type Options struct {
	Cfg core.SimConfig

	// MinLifetime/MaxLifetime bound how long a spawned enemy stays alive.
	MinLifetime time.Duration
	MaxLifetime time.Duration

	// BreachChance is the per-enemy probability of reaching the base
	// instead of dying in the field. BaseHP is how many breaches the base
	// survives; zero means invulnerable.
	BreachChance float64
	BaseHP       int

	// MaxTicks aborts a run that never resolves. Zero means the default.
	MaxTicks core.Tick

	Logger *log.Logger
}

const (
	defaultMinLifetime = 500 * time.Millisecond
	defaultMaxLifetime = 2 * time.Second
	defaultMaxTicks    = core.Tick(100_000)
)

func (o *Options) fill() {
	if o.MinLifetime <= 0 {
		o.MinLifetime = defaultMinLifetime
	}
	if o.MaxLifetime < o.MinLifetime {
		o.MaxLifetime = o.MinLifetime + defaultMaxLifetime
	}
	if o.MaxTicks == 0 {
		o.MaxTicks = defaultMaxTicks
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// LogEntry is one lifecycle event with the tick it fired on.
type LogEntry struct {
	Tick  core.Tick
	Event director.Event
}

// Result summarizes a finished run.
type Result struct {
	LevelID        string
	Outcome        Outcome
	WavesCompleted int
	TotalWaves     int
	Spawned        int
	Skipped        int
	Breaches       int
	Ticks          core.Tick
	Duration       time.Duration
	Events         []LogEntry
}

// enemy is the stub battle unit. Its fate is sealed at activation: a death
// tick and whether it breaches the base when that tick arrives.
type enemy struct {
	typeID   string
	alive    bool
	reported bool
	diesAt   core.Tick
	breaches bool
	at       core.Transform
}

// stubFactory satisfies the spawn.Factory contract for one enemy type.
type stubFactory struct {
	typeID string
	r      *Runner
}

func (f *stubFactory) Create() spawn.Spawnable {
	return &enemy{typeID: f.typeID}
}

func (f *stubFactory) Reset(item spawn.Spawnable) {
	e := item.(*enemy)
	e.alive = false
	e.reported = false
	e.diesAt = 0
	e.breaches = false
	e.at = core.Transform{}
}

func (f *stubFactory) Activate(item spawn.Spawnable, at core.Transform) {
	e := item.(*enemy)
	e.alive = true
	e.reported = false
	e.at = at
	e.diesAt = f.r.dir.Now() + f.r.lifetimeTicks()
	e.breaches = f.r.rng.Float64() < f.r.opts.BreachChance
	f.r.field = append(f.r.field, e)
}

func (f *stubFactory) Deactivate(item spawn.Spawnable) {
	item.(*enemy).alive = false
}

// Runner drives one level to completion, one tick at a time.
type Runner struct {
	opts Options
	lvl  level.Level
	reg  *spawn.Registry
	dir  *director.Director
	rng  *rand.Rand

	field    []*enemy // activation order, scanned for due deaths
	baseHP   int
	breaches int
	aborted  bool
	events   []LogEntry
}

// New prepares a runner for the level. The level must already be validated.
func New(lvl level.Level, opts Options) (*Runner, error) {
	opts.fill()

	r := &Runner{
		opts:   opts,
		lvl:    lvl,
		rng:    rand.New(rand.NewSource(opts.Cfg.Seed)),
		baseHP: opts.BaseHP,
	}
	r.reg = spawn.NewRegistry(opts.Logger)
	r.dir = director.New(opts.Cfg, r.reg, r, opts.Logger)
	r.dir.Subscribe(func(e director.Event) {
		r.events = append(r.events, LogEntry{Tick: r.dir.Now(), Event: e})
	})

	if err := r.dir.LoadLevel(lvl); err != nil {
		return nil, err
	}
	return r, nil
}

// FactoryFor hands out a stub factory for any type the level names.
func (r *Runner) FactoryFor(typeID string) (spawn.Factory, bool) {
	return &stubFactory{typeID: typeID, r: r}, true
}

// Subscribe forwards lifecycle events, in addition to the runner's own log.
// Must be called before the first Step.
func (r *Runner) Subscribe(fn director.Subscriber) {
	r.dir.Subscribe(fn)
}

// Step advances the battle by one tick.
func (r *Runner) Step() {
	if r.Done() {
		return
	}
	r.dir.Tick()
	r.resolveDeaths()
}

// resolveDeaths reports every enemy whose time has come. Breaching enemies
// damage the base first; the director reclaims them either way.
func (r *Runner) resolveDeaths() {
	now := r.dir.Now()
	compact := r.field[:0]
	for _, e := range r.field {
		if !e.alive || e.reported {
			continue
		}
		if e.diesAt > now {
			compact = append(compact, e)
			continue
		}
		e.reported = true
		if e.breaches {
			r.breaches++
			if r.baseHP > 0 {
				r.baseHP--
				if r.baseHP == 0 {
					r.dir.NotifyBaseDestroyed()
					r.field = r.field[:0]
					return
				}
			}
		}
		r.dir.OnEntityDied(e.typeID, e)
	}
	r.field = compact
}

// Done reports whether the battle has resolved or exceeded its tick budget.
func (r *Runner) Done() bool {
	return r.dir.State().Terminal() || r.dir.Now() >= r.opts.MaxTicks
}

// Abort ends the battle early, reclaiming every live enemy.
func (r *Runner) Abort() {
	if r.dir.State().Terminal() {
		return
	}
	r.aborted = true
	r.dir.Abort()
	r.field = r.field[:0]
}

// Progress exposes the director's counters for live display.
func (r *Runner) Progress() director.Progress {
	return r.dir.Progress()
}

// Events returns the log collected so far.
func (r *Runner) Events() []LogEntry {
	return r.events
}

// Run steps until done and returns the summary.
func (r *Runner) Run() Result {
	for !r.Done() {
		r.Step()
	}
	return r.Result()
}

// Result summarizes the battle. Valid once Done reports true.
func (r *Runner) Result() Result {
	p := r.dir.Progress()

	outcome := OutcomeTimeout
	switch {
	case r.aborted:
		outcome = OutcomeAborted
	case hasEvent[director.Defeat](r.events):
		outcome = OutcomeDefeat
	case hasEvent[director.Victory](r.events):
		outcome = OutcomeVictory
	}

	completed := 0
	for _, le := range r.events {
		if _, ok := le.Event.(director.WaveCompleted); ok {
			completed++
		}
	}

	ticks := r.dir.Now()
	return Result{
		LevelID:        r.lvl.ID,
		Outcome:        outcome,
		WavesCompleted: completed,
		TotalWaves:     len(r.lvl.Waves),
		Spawned:        p.TotalSpawned,
		Skipped:        p.TotalSkipped,
		Breaches:       r.breaches,
		Ticks:          ticks,
		Duration:       time.Duration(ticks) * r.opts.Cfg.TickInterval(),
		Events:         r.events,
	}
}

// lifetimeTicks draws a seeded lifetime within the configured bounds.
func (r *Runner) lifetimeTicks() core.Tick {
	span := r.opts.MaxLifetime - r.opts.MinLifetime
	d := r.opts.MinLifetime
	if span > 0 {
		d += time.Duration(r.rng.Int63n(int64(span)))
	}
	t := r.opts.Cfg.Ticks(d)
	if t == 0 {
		t = 1
	}
	return t
}

func hasEvent[E director.Event](entries []LogEntry) bool {
	for _, le := range entries {
		if _, ok := le.Event.(E); ok {
			return true
		}
	}
	return false
}
