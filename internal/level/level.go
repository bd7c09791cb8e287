// Package level defines the passive configuration data the director
// consumes: spawn entries, waves, and level definitions. Definitions are
// immutable once loaded; the director only reads them.
package level

import (
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/pool"
)

// Duration is a time.Duration that decodes from YAML either as a duration
// string ("1.5s", "800ms") or a bare number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("level: bad duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("level: duration must be a string or seconds number")
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Point is a spawn location in level coordinates with an optional facing.
type Point struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Facing float64 `yaml:"facing,omitempty"` // Degrees, CCW from +X
}

// Transform converts the point into a core transform.
func (p Point) Transform() core.Transform {
	return core.Transform{
		Position: core.Pos(p.X, p.Y),
		Rotation: core.Rotation(p.Facing),
	}
}

// SpawnEntry describes one enemy type's contribution to a wave.
type SpawnEntry struct {
	TypeID string  `yaml:"type"`
	Count  int     `yaml:"count"`
	Weight float64 `yaml:"weight,omitempty"` // 0 means equal weight

	// SpawnPoints restricts this entry to its own point subset. Empty means
	// the level-wide spawn point rotation.
	SpawnPoints []Point `yaml:"spawn_points,omitempty"`
}

// Valid reports whether the entry survives queue construction. Malformed
// entries are dropped at wave start, not at load, so one level can mix valid
// and invalid waves.
func (e SpawnEntry) Valid() bool {
	return e.TypeID != "" && e.Count > 0
}

// Wave is a timed batch of spawn requests.
type Wave struct {
	Name          string       `yaml:"name"`
	StartDelay    Duration     `yaml:"start_delay,omitempty"`
	SpawnInterval Duration     `yaml:"spawn_interval"`
	Entries       []SpawnEntry `yaml:"entries"`
}

// TotalCount sums the counts of the entries that survive filtering.
func (w Wave) TotalCount() int {
	total := 0
	for _, e := range w.Entries {
		if e.Valid() {
			total += e.Count
		}
	}
	return total
}

// PoolHint sizes the pool for one enemy type ahead of the first wave.
type PoolHint struct {
	Initial    int  `yaml:"initial"`
	Max        int  `yaml:"max"` // 0 means the registry default
	Expandable bool `yaml:"expandable,omitempty"`
}

// Policy converts the hint into a pool policy.
func (h PoolHint) Policy() pool.Policy {
	return pool.Policy{
		InitialSize: h.Initial,
		MaxSize:     h.Max,
		Expandable:  h.Expandable,
	}
}

// Level is a complete level definition: spawn geometry, pool sizing hints,
// and the wave sequence.
type Level struct {
	ID             string              `yaml:"id"`
	Name           string              `yaml:"name"`
	SpawnPoints    []Point             `yaml:"spawn_points"`
	Pools          map[string]PoolHint `yaml:"pools,omitempty"`
	InterWaveDelay Duration            `yaml:"inter_wave_delay,omitempty"`
	Waves          []Wave              `yaml:"waves"`

	// FilePath records where the definition was loaded from. Not part of the
	// schema.
	FilePath string `yaml:"-"`
}

// TypeIDs returns every enemy type the level references, from pool hints and
// wave entries, sorted and deduplicated.
func (l Level) TypeIDs() []string {
	seen := make(map[string]bool)
	for id := range l.Pools {
		seen[id] = true
	}
	for _, w := range l.Waves {
		for _, e := range w.Entries {
			if e.TypeID != "" {
				seen[e.TypeID] = true
			}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SpawnTransforms returns the level-wide spawn points as core transforms.
func (l Level) SpawnTransforms() []core.Transform {
	out := make([]core.Transform, len(l.SpawnPoints))
	for i, p := range l.SpawnPoints {
		out[i] = p.Transform()
	}
	return out
}

// TotalEnemies sums the valid spawn counts across all waves.
func (l Level) TotalEnemies() int {
	total := 0
	for _, w := range l.Waves {
		total += w.TotalCount()
	}
	return total
}
