package pool

import (
	"errors"
	"testing"
)

type dummy struct {
	id     int
	resets int
}

func newCounter() (func() *dummy, *int) {
	created := 0
	return func() *dummy {
		created++
		return &dummy{id: created}
	}, &created
}

func TestPrewarmFillsAvailable(t *testing.T) {
	newFn, created := newCounter()
	p := New(Policy{InitialSize: 20, MaxSize: 50, Expandable: true}, newFn, nil)

	got := p.Prewarm(20)
	if got != 20 {
		t.Fatalf("Prewarm(20) = %d, want 20", got)
	}
	if *created != 20 {
		t.Errorf("expected 20 constructions, got %d", *created)
	}

	st := p.Stats()
	if st.Available != 20 || st.Active != 0 || st.Total != 20 {
		t.Errorf("unexpected stats after prewarm: %+v", st)
	}
}

func TestPrewarmTruncatesAtCap(t *testing.T) {
	newFn, _ := newCounter()
	p := New(Policy{MaxSize: 5}, newFn, nil)

	if got := p.Prewarm(8); got != 5 {
		t.Errorf("Prewarm(8) with cap 5 = %d, want 5", got)
	}
	if got := p.Prewarm(3); got != 0 {
		t.Errorf("second Prewarm should construct nothing, got %d", got)
	}
}

func TestAcquireGrowsExpandablePastCap(t *testing.T) {
	// Scenario: 20 prewarmed, cap 50, expandable; 25 acquires in a row.
	newFn, _ := newCounter()
	p := New(Policy{InitialSize: 20, MaxSize: 50, Expandable: true}, newFn, nil)
	p.Prewarm(20)

	for i := 0; i < 25; i++ {
		if _, err := p.Acquire(); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}

	st := p.Stats()
	if st.Active != 25 {
		t.Errorf("active = %d, want 25", st.Active)
	}
	if st.Available != 0 {
		t.Errorf("available = %d, want 0", st.Available)
	}

	// Push past the cap entirely.
	for i := 0; i < 30; i++ {
		if _, err := p.Acquire(); err != nil {
			t.Fatalf("acquire past cap failed: %v", err)
		}
	}
	st = p.Stats()
	if st.Active != 55 {
		t.Errorf("active = %d, want 55", st.Active)
	}
	if st.HighWater != 55 {
		t.Errorf("high water = %d, want 55", st.HighWater)
	}
}

func TestAcquireFailsAtCapWhenFixed(t *testing.T) {
	newFn, _ := newCounter()
	p := New(Policy{MaxSize: 3}, newFn, nil)

	for i := 0; i < 3; i++ {
		if _, err := p.Acquire(); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}

	if _, err := p.Acquire(); !errors.Is(err, ErrNoCapacity) {
		t.Errorf("expected ErrNoCapacity, got %v", err)
	}

	// The bound invariant: total never exceeds MaxSize for a fixed pool.
	if st := p.Stats(); st.Total > 3 {
		t.Errorf("total %d exceeds cap 3", st.Total)
	}
}

func TestReleaseThenAcquireReusesSameInstance(t *testing.T) {
	newFn, _ := newCounter()
	p := New(Policy{MaxSize: 10}, newFn, func(d *dummy) { d.resets++ })
	p.Prewarm(3)

	a, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Release(a); err != nil {
		t.Fatal(err)
	}

	b, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected the released instance to be reused first")
	}
	if a.resets != 1 {
		t.Errorf("reset hook ran %d times, want 1", a.resets)
	}
}

func TestDoubleReleaseIsRejected(t *testing.T) {
	newFn, _ := newCounter()
	p := New(Policy{MaxSize: 5}, newFn, nil)

	a, _ := p.Acquire()
	if err := p.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := p.Release(a); !errors.Is(err, ErrNotActive) {
		t.Errorf("expected ErrNotActive on double release, got %v", err)
	}

	// Pool invariants must survive the bad call.
	st := p.Stats()
	if st.Available != 1 || st.Active != 0 {
		t.Errorf("stats corrupted by double release: %+v", st)
	}
}

func TestReleaseForeignItemIsRejected(t *testing.T) {
	newFn, _ := newCounter()
	p := New(Policy{MaxSize: 5}, newFn, nil)
	p.Acquire()

	foreign := &dummy{id: 999}
	if err := p.Release(foreign); !errors.Is(err, ErrNotActive) {
		t.Errorf("expected ErrNotActive for foreign item, got %v", err)
	}
}

func TestDrainEmptiesBothSets(t *testing.T) {
	newFn, _ := newCounter()
	p := New(Policy{MaxSize: 10}, newFn, nil)
	p.Prewarm(4)
	p.Acquire()
	p.Acquire()

	items := p.Drain()
	if len(items) != 4 {
		t.Errorf("Drain returned %d items, want 4", len(items))
	}

	st := p.Stats()
	if st.Total != 0 {
		t.Errorf("pool not empty after drain: %+v", st)
	}
}

func TestPolicyValidate(t *testing.T) {
	cases := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"ok", Policy{InitialSize: 5, MaxSize: 10}, false},
		{"zero max means default", Policy{InitialSize: 5, MaxSize: 0}, false},
		{"initial exceeds max", Policy{InitialSize: 11, MaxSize: 10}, true},
		{"negative", Policy{InitialSize: -1}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.policy.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate(%+v) error = %v, wantErr %v", c.policy, err, c.wantErr)
			}
		})
	}
}
