package director

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/level"
	"github.com/velmoren/towerd/internal/pool"
	"github.com/velmoren/towerd/internal/spawn"
)

// testUnit is the test stand-in for an engine-side enemy.
type testUnit struct {
	typeID string
	alive  bool
	at     core.Transform
}

// recorder captures the global spawn order across factories.
type recorder struct {
	order []string // type ids in activation order
	units []*testUnit
}

// testFactory implements the spawn.Factory contract and reports activations
// to the shared recorder.
type testFactory struct {
	typeID string
	rec    *recorder
}

func (f *testFactory) Create() spawn.Spawnable {
	return &testUnit{typeID: f.typeID}
}

func (f *testFactory) Reset(item spawn.Spawnable) {
	u := item.(*testUnit)
	u.at = core.Transform{}
}

func (f *testFactory) Activate(item spawn.Spawnable, at core.Transform) {
	u := item.(*testUnit)
	u.alive = true
	u.at = at
	if f.rec != nil {
		f.rec.order = append(f.rec.order, f.typeID)
		f.rec.units = append(f.rec.units, u)
	}
}

func (f *testFactory) Deactivate(item spawn.Spawnable) {
	item.(*testUnit).alive = false
}

type factoryMap map[string]spawn.Factory

func (m factoryMap) FactoryFor(typeID string) (spawn.Factory, bool) {
	f, ok := m[typeID]
	return f, ok
}

// harness bundles a director with its registry and recorder.
type harness struct {
	d   *Director
	reg *spawn.Registry
	rec *recorder

	started   []WaveStarted
	completed []WaveCompleted
	victories int
	defeats   int
}

func newHarness(t *testing.T, lvl level.Level, seed int64) *harness {
	t.Helper()

	logger := log.New(io.Discard)
	rec := &recorder{}

	factories := factoryMap{}
	for _, id := range lvl.TypeIDs() {
		factories[id] = &testFactory{typeID: id, rec: rec}
	}

	reg := spawn.NewRegistry(logger)
	cfg := core.SimConfig{TickRate: 30, Seed: seed}
	d := New(cfg, reg, factories, logger)

	h := &harness{d: d, reg: reg, rec: rec}
	d.Subscribe(func(e Event) {
		switch ev := e.(type) {
		case WaveStarted:
			h.started = append(h.started, ev)
		case WaveCompleted:
			h.completed = append(h.completed, ev)
		case Victory:
			h.victories++
		case Defeat:
			h.defeats++
		}
	})

	if err := d.LoadLevel(lvl); err != nil {
		t.Fatal(err)
	}
	return h
}

// killLive reports every currently alive unit dead.
func (h *harness) killLive() {
	for _, u := range h.rec.units {
		if u.alive {
			h.d.OnEntityDied(u.typeID, u)
		}
	}
}

// run ticks the director, killing everything alive after each tick, until
// the predicate holds or the tick budget runs out.
func (h *harness) run(t *testing.T, maxTicks int, pred func() bool) {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		h.d.Tick()
		h.killLive()
		if pred() {
			return
		}
	}
	t.Fatalf("condition not reached after %d ticks (state %s, progress %+v)",
		maxTicks, h.d.State(), h.d.Progress())
}

func makeLevel(waves ...level.Wave) level.Level {
	lvl := level.Level{
		ID:          "test",
		SpawnPoints: []level.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
		Pools:       map[string]level.PoolHint{},
		Waves:       waves,
	}
	for _, w := range waves {
		for _, e := range w.Entries {
			if e.TypeID != "" {
				lvl.Pools[e.TypeID] = level.PoolHint{Initial: 2, Max: 50, Expandable: true}
			}
		}
	}
	return lvl
}

func TestSingleWaveCompletesExactlyOnce(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{TypeID: "scout", Count: 5}},
	})
	h := newHarness(t, lvl, 1)

	h.run(t, 200, func() bool { return h.d.State().Terminal() })

	if len(h.started) != 1 || h.started[0].Index != 0 || h.started[0].Total != 1 {
		t.Errorf("started events = %+v", h.started)
	}
	if len(h.completed) != 1 || h.completed[0].Index != 0 {
		t.Errorf("completed events = %+v", h.completed)
	}
	if h.victories != 1 {
		t.Errorf("victories = %d, want 1", h.victories)
	}
	if h.defeats != 0 {
		t.Errorf("defeats = %d, want 0", h.defeats)
	}
	if got := h.d.Progress().TotalSpawned; got != 5 {
		t.Errorf("total spawned = %d, want 5", got)
	}
}

func TestMixedWaveInterleaves(t *testing.T) {
	// 5 scouts and 3 grunts with equal weight must interleave, never
	// degenerate to all scouts then all grunts.
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{
			{TypeID: "scout", Count: 5},
			{TypeID: "grunt", Count: 3},
		},
	})
	h := newHarness(t, lvl, 1)

	h.run(t, 400, func() bool { return h.d.State().Terminal() })

	want := []string{"scout", "grunt", "scout", "grunt", "scout", "grunt", "scout", "scout"}
	if len(h.rec.order) != len(want) {
		t.Fatalf("spawn order = %v", h.rec.order)
	}
	for i := range want {
		if h.rec.order[i] != want[i] {
			t.Fatalf("spawn order = %v, want %v", h.rec.order, want)
		}
	}
}

func TestWeightedQueuePreservesCounts(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{
			{TypeID: "scout", Count: 6, Weight: 3},
			{TypeID: "grunt", Count: 4, Weight: 1},
		},
	})
	h := newHarness(t, lvl, 42)

	h.run(t, 600, func() bool { return h.d.State().Terminal() })

	counts := map[string]int{}
	for _, id := range h.rec.order {
		counts[id]++
	}
	if counts["scout"] != 6 || counts["grunt"] != 4 {
		t.Errorf("spawned counts = %v, want scout:6 grunt:4", counts)
	}
}

func TestWeightedQueueIsDeterministicPerSeed(t *testing.T) {
	mk := func(seed int64) []string {
		lvl := makeLevel(level.Wave{
			Entries: []level.SpawnEntry{
				{TypeID: "scout", Count: 5, Weight: 2},
				{TypeID: "grunt", Count: 5, Weight: 1},
			},
		})
		h := newHarness(t, lvl, seed)
		h.run(t, 600, func() bool { return h.d.State().Terminal() })
		return h.rec.order
	}

	a, b := mk(7), mk(7)
	if len(a) != len(b) {
		t.Fatalf("same seed produced different lengths: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", a, b)
		}
	}
}

func TestUnregisteredTypeIsSkippedAndWaveCompletes(t *testing.T) {
	// "tank" has no factory, so its pool is never registered; its spawns
	// are skipped and must not block completion.
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{
			{TypeID: "scout", Count: 3},
			{TypeID: "tank", Count: 2},
		},
	})
	delete(lvl.Pools, "tank")
	h := newHarness(t, lvl, 1)

	h.run(t, 400, func() bool { return h.d.State().Terminal() })

	p := h.d.Progress()
	if p.TotalSpawned != 3 {
		t.Errorf("spawned = %d, want 3", p.TotalSpawned)
	}
	if p.TotalSkipped != 2 {
		t.Errorf("skipped = %d, want 2", p.TotalSkipped)
	}
	if len(h.completed) != 1 || h.victories != 1 {
		t.Errorf("completed=%v victories=%d", h.completed, h.victories)
	}
}

func TestNoCapacitySkipsWithoutBlocking(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{TypeID: "scout", Count: 5}},
	})
	lvl.Pools["scout"] = level.PoolHint{Initial: 2, Max: 2} // fixed cap 2

	logger := log.New(io.Discard)
	rec := &recorder{}
	reg := spawn.NewRegistry(logger)
	d := New(core.SimConfig{TickRate: 30, Seed: 1},
		reg, factoryMap{"scout": &testFactory{typeID: "scout", rec: rec}}, logger)

	completed := 0
	d.Subscribe(func(e Event) {
		if _, ok := e.(WaveCompleted); ok {
			completed++
		}
	})
	if err := d.LoadLevel(lvl); err != nil {
		t.Fatal(err)
	}

	// Never report deaths: the 2 capacity-bound spawns stay alive, the
	// other 3 are skipped. The wave must reach the clear barrier but not
	// complete while 2 are live.
	for i := 0; i < 400 && d.State() != StateWaveWaitingClear; i++ {
		d.Tick()
	}
	if d.State() != StateWaveWaitingClear {
		t.Fatalf("state = %s, want wave-clearing", d.State())
	}
	p := d.Progress()
	if p.Spawned != 2 || p.Skipped != 3 || p.Live != 2 {
		t.Errorf("progress = %+v", p)
	}

	// Conservation: once the live ones die, the wave resolves with
	// spawned - skipped accounting intact.
	for _, u := range rec.units {
		if u.alive {
			d.OnEntityDied("scout", u)
		}
	}
	d.Tick()
	if completed != 1 {
		t.Errorf("completed = %d, want 1", completed)
	}
}

func TestFiveWaveLevelVictory(t *testing.T) {
	// The documented table: 5, 8, 11, 12, 14 enemies, 50 total.
	counts := []int{5, 8, 11, 12, 14}
	waves := make([]level.Wave, len(counts))
	for i, n := range counts {
		waves[i] = level.Wave{Entries: []level.SpawnEntry{{TypeID: "scout", Count: n}}}
	}
	h := newHarness(t, makeLevel(waves...), 1)

	h.run(t, 2000, func() bool { return h.d.State().Terminal() })

	if len(h.started) != 5 || len(h.completed) != 5 {
		t.Fatalf("started=%d completed=%d, want 5/5", len(h.started), len(h.completed))
	}
	if last := h.completed[4]; last.Index != 4 {
		t.Errorf("final completion index = %d, want 4", last.Index)
	}
	if h.victories != 1 || h.defeats != 0 {
		t.Errorf("victories=%d defeats=%d, want 1/0", h.victories, h.defeats)
	}
	if got := h.d.Progress().TotalSpawned; got != 50 {
		t.Errorf("total spawned = %d, want 50", got)
	}
}

func TestAbortReclaimsOutstanding(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{TypeID: "scout", Count: 8}},
	})
	h := newHarness(t, lvl, 1)

	// Tick without killing until 3 are spawned and alive.
	for i := 0; i < 400 && h.d.Progress().Spawned < 3; i++ {
		h.d.Tick()
	}
	if h.d.Progress().Spawned != 3 {
		t.Fatalf("spawned = %d, want 3", h.d.Progress().Spawned)
	}

	h.d.Abort()

	if h.d.State() != StateAborted {
		t.Errorf("state = %s, want aborted", h.d.State())
	}
	if h.d.Progress().Live != 0 {
		t.Errorf("live = %d after abort, want 0", h.d.Progress().Live)
	}
	st, err := h.reg.Stats("scout")
	if err != nil {
		t.Fatal(err)
	}
	if st.Active != 0 {
		t.Errorf("pool still has %d active after abort", st.Active)
	}

	// No further waves may start.
	before := len(h.started)
	for i := 0; i < 100; i++ {
		h.d.Tick()
	}
	if len(h.started) != before {
		t.Error("WaveStarted fired after abort")
	}
}

func TestBaseDestroyedEmitsDefeat(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{TypeID: "scout", Count: 5}},
	})
	h := newHarness(t, lvl, 1)

	for i := 0; i < 200 && h.d.Progress().Spawned < 2; i++ {
		h.d.Tick()
	}
	h.d.NotifyBaseDestroyed()

	if h.defeats != 1 {
		t.Errorf("defeats = %d, want 1", h.defeats)
	}
	if h.victories != 0 {
		t.Errorf("victories = %d, want 0", h.victories)
	}
	if h.d.State() != StateAborted {
		t.Errorf("state = %s, want aborted", h.d.State())
	}
	st, _ := h.reg.Stats("scout")
	if st.Active != 0 {
		t.Errorf("pool still has %d active after defeat", st.Active)
	}
}

func TestZeroWaveLevelVacuousVictory(t *testing.T) {
	h := newHarness(t, makeLevel(), 1)

	if h.d.State() != StateLevelComplete {
		t.Errorf("state = %s, want level-complete", h.d.State())
	}
	if h.victories != 1 {
		t.Errorf("victories = %d, want 1", h.victories)
	}
	if len(h.started) != 0 {
		t.Errorf("no waves should start, got %v", h.started)
	}
}

func TestMalformedEntriesDroppedAtWaveStart(t *testing.T) {
	lvl := makeLevel(
		level.Wave{Entries: []level.SpawnEntry{
			{TypeID: "scout", Count: 2},
			{TypeID: "grunt", Count: 0},
			{TypeID: "", Count: 3},
		}},
		level.Wave{Entries: []level.SpawnEntry{{TypeID: "grunt", Count: -1}}},
	)
	h := newHarness(t, lvl, 1)

	h.run(t, 400, func() bool { return h.d.State().Terminal() })

	// Both waves complete: wave 0 spawns 2, wave 1 is entirely malformed
	// and completes vacuously.
	if len(h.completed) != 2 {
		t.Fatalf("completed = %v, want 2 waves", h.completed)
	}
	if got := h.d.Progress().TotalSpawned; got != 2 {
		t.Errorf("total spawned = %d, want 2", got)
	}
	if h.victories != 1 {
		t.Errorf("victories = %d, want 1", h.victories)
	}
}

func TestDuplicateDeathNotificationsTolerated(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{TypeID: "scout", Count: 1}},
	})
	h := newHarness(t, lvl, 1)

	for i := 0; i < 200 && h.d.Progress().Spawned < 1; i++ {
		h.d.Tick()
	}
	u := h.rec.units[0]

	// Report the same death three times.
	h.d.OnEntityDied("scout", u)
	h.d.OnEntityDied("scout", u)
	h.d.OnEntityDied("scout", u)
	h.d.Tick()

	if h.d.Progress().Live != 0 {
		t.Errorf("live = %d, want 0", h.d.Progress().Live)
	}
	st, _ := h.reg.Stats("scout")
	if st.Available != st.Total || st.Active != 0 {
		t.Errorf("pool stats corrupted by duplicate deaths: %+v", st)
	}
	if h.victories != 1 {
		t.Errorf("victories = %d, want 1", h.victories)
	}
}

func TestLoadLevelWhileRunningFails(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{TypeID: "scout", Count: 3}},
	})
	h := newHarness(t, lvl, 1)

	if err := h.d.LoadLevel(lvl); err == nil {
		t.Error("expected error loading a level mid-run")
	}

	h.d.Abort()
	if err := h.d.LoadLevel(lvl); err != nil {
		t.Errorf("load after abort failed: %v", err)
	}
}

func TestExistingRegistrationWinsOverHint(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{TypeID: "scout", Count: 1}},
	})
	lvl.Pools["scout"] = level.PoolHint{Initial: 30, Max: 40}

	logger := log.New(io.Discard)
	reg := spawn.NewRegistry(logger)
	f := &testFactory{typeID: "scout"}
	if err := reg.Register("scout", f, pool.Policy{InitialSize: 1, MaxSize: 5}); err != nil {
		t.Fatal(err)
	}

	d := New(core.SimConfig{TickRate: 30, Seed: 1}, reg,
		factoryMap{"scout": f}, logger)
	if err := d.LoadLevel(lvl); err != nil {
		t.Fatal(err)
	}

	// The pre-existing pool keeps its policy: only 1 prewarmed instance.
	st, _ := reg.Stats("scout")
	if st.Total != 1 {
		t.Errorf("hint overrode existing registration: %+v", st)
	}
}

func TestEntrySpawnPointSubset(t *testing.T) {
	lvl := makeLevel(level.Wave{
		Entries: []level.SpawnEntry{{
			TypeID:      "scout",
			Count:       4,
			SpawnPoints: []level.Point{{X: 99, Y: 99}},
		}},
	})
	h := newHarness(t, lvl, 1)

	// Tick without reporting deaths so positions survive inspection.
	for i := 0; i < 400 && h.d.Progress().Spawned < 4; i++ {
		h.d.Tick()
	}

	if len(h.rec.units) != 4 {
		t.Fatalf("spawned %d units, want 4", len(h.rec.units))
	}
	for i, u := range h.rec.units {
		if u.at.Position != core.Pos(99, 99) {
			t.Errorf("unit %d spawned at %+v, want the entry subset point", i, u.at)
		}
	}
}
