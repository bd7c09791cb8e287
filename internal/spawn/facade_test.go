package spawn

import (
	"errors"
	"testing"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/pool"
)

func TestSpawnActivatesAtPosition(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register("scout", &stubFactory{}, pool.Policy{InitialSize: 2, MaxSize: 5})
	s := NewSpawner(r)

	h, err := s.Spawn("scout", core.Pos(10, 20), core.Rotation(90))
	if err != nil {
		t.Fatal(err)
	}

	u := h.Item.(*stubUnit)
	if !u.active {
		t.Error("spawned instance should be active")
	}
	if u.at.Position != core.Pos(10, 20) || u.at.Rotation != 90 {
		t.Errorf("instance activated at %+v, want (10,20)@90", u.at)
	}
	if h.TypeID != "scout" {
		t.Errorf("handle type = %q, want scout", h.TypeID)
	}
}

func TestSpawnUnknownType(t *testing.T) {
	s := NewSpawner(NewRegistry(quietLogger()))

	_, err := s.Spawn("tank", core.Pos(0, 0), 0)
	if !errors.Is(err, ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestSpawnNoCapacity(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register("scout", &stubFactory{}, pool.Policy{MaxSize: 1})
	s := NewSpawner(r)

	if _, err := s.Spawn("scout", core.Pos(0, 0), 0); err != nil {
		t.Fatal(err)
	}
	_, err := s.Spawn("scout", core.Pos(0, 0), 0)
	if !errors.Is(err, pool.ErrNoCapacity) {
		t.Errorf("expected ErrNoCapacity, got %v", err)
	}
}

func TestDespawnDeactivatesAndReleases(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register("scout", &stubFactory{}, pool.Policy{InitialSize: 1, MaxSize: 5})
	s := NewSpawner(r)

	h, err := s.Spawn("scout", core.Pos(1, 1), 0)
	if err != nil {
		t.Fatal(err)
	}
	u := h.Item.(*stubUnit)

	if err := s.Despawn(h); err != nil {
		t.Fatal(err)
	}
	if u.active {
		t.Error("despawned instance should be inactive")
	}
	if u.resets != 1 {
		t.Errorf("reset hook ran %d times, want 1", u.resets)
	}

	st, _ := r.Stats("scout")
	if st.Active != 0 || st.Available != 1 {
		t.Errorf("unexpected stats after despawn: %+v", st)
	}
}

func TestDoubleDespawnIsTolerated(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register("scout", &stubFactory{}, pool.Policy{InitialSize: 1, MaxSize: 5})
	s := NewSpawner(r)

	h, _ := s.Spawn("scout", core.Pos(0, 0), 0)
	if err := s.Despawn(h); err != nil {
		t.Fatal(err)
	}
	if err := s.Despawn(h); !errors.Is(err, pool.ErrNotActive) {
		t.Errorf("expected ErrNotActive on second despawn, got %v", err)
	}

	// Invariants intact: exactly one available instance.
	st, _ := r.Stats("scout")
	if st.Available != 1 || st.Active != 0 {
		t.Errorf("stats corrupted by double despawn: %+v", st)
	}
}

func TestReuseAfterDespawn(t *testing.T) {
	r := NewRegistry(quietLogger())
	r.Register("scout", &stubFactory{}, pool.Policy{InitialSize: 1, MaxSize: 5})
	s := NewSpawner(r)

	h1, _ := s.Spawn("scout", core.Pos(0, 0), 0)
	s.Despawn(h1)
	h2, _ := s.Spawn("scout", core.Pos(5, 5), 0)

	if h1.Item != h2.Item {
		t.Error("expected the released instance to be reused")
	}
}

func TestPointSetRotation(t *testing.T) {
	ps := NewPointSet([]core.Transform{
		{Position: core.Pos(0, 0)},
		{Position: core.Pos(1, 0)},
		{Position: core.Pos(2, 0)},
	})

	want := []float64{0, 1, 2, 0, 1}
	for i, x := range want {
		if got := ps.Next().Position.X; got != x {
			t.Errorf("Next() #%d at x=%v, want %v", i, got, x)
		}
	}

	ps.Reset()
	if got := ps.Next().Position.X; got != 0 {
		t.Errorf("after Reset, Next() at x=%v, want 0", got)
	}
}

func TestEmptyPointSet(t *testing.T) {
	ps := NewPointSet(nil)
	if ps.Len() != 0 {
		t.Errorf("Len = %d, want 0", ps.Len())
	}
	if got := ps.Next(); got != (core.Transform{}) {
		t.Errorf("empty set Next() = %+v, want zero transform", got)
	}
}
