package director

import "fmt"

// Event is a lifecycle notification emitted by the director. Events are
// one-directional and fire-and-forget: subscribers are invoked synchronously
// on the tick thread and must not call back into the director.
type Event interface {
	event()
}

// WaveStarted fires when a wave's start delay elapses and its spawn queue
// has been built.
type WaveStarted struct {
	Index int // 0-based wave index
	Total int // Total waves in the level
}

// WaveCompleted fires exactly once per wave, after the spawn queue is empty
// and the live population has cleared.
type WaveCompleted struct {
	Index int
}

// Victory fires when the final wave completes (or immediately for a level
// with no waves).
type Victory struct{}

// Defeat fires when the defended structure is destroyed. It is a legitimate
// game-state transition, not an error.
type Defeat struct{}

func (WaveStarted) event()   {}
func (WaveCompleted) event() {}
func (Victory) event()       {}
func (Defeat) event()        {}

// Subscriber receives lifecycle events.
type Subscriber func(Event)

// State identifies the director's position in the level state machine.
type State int

const (
	StateIdle State = iota
	StateLevelLoading
	StateWaveStarting
	StateWaveSpawning
	StateWaveWaitingClear
	StateLevelComplete
	StateAborted
)

// Terminal reports whether the state requires a fresh LoadLevel to leave.
func (s State) Terminal() bool {
	return s == StateLevelComplete || s == StateAborted
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLevelLoading:
		return "loading"
	case StateWaveStarting:
		return "wave-starting"
	case StateWaveSpawning:
		return "wave-spawning"
	case StateWaveWaitingClear:
		return "wave-clearing"
	case StateLevelComplete:
		return "level-complete"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
