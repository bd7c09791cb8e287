package director

import (
	"container/heap"

	"github.com/velmoren/towerd/internal/core"
)

// timer is a callback with a tick deadline. seq breaks ties so timers
// scheduled for the same tick fire in scheduling order.
type timer struct {
	due core.Tick
	seq uint64
	fn  func()
}

// timerQueue is the director's replacement for coroutine waits: every timed
// wait becomes a scheduled re-entry point processed by the tick loop, which
// keeps the director responsive to deaths and aborts mid-wait and lets tests
// drive time without real delays.
type timerQueue struct {
	timers timerHeap
	seq    uint64
}

// schedule registers fn to run once now reaches due.
func (q *timerQueue) schedule(due core.Tick, fn func()) {
	q.seq++
	heap.Push(&q.timers, timer{due: due, seq: q.seq, fn: fn})
}

// runDue fires every timer with a deadline at or before now, in deadline
// order. Timers scheduled by a firing callback for a past deadline run on
// the next tick, never recursively within this one.
func (q *timerQueue) runDue(now core.Tick) {
	var due []timer
	for q.timers.Len() > 0 && q.timers[0].due <= now {
		due = append(due, heap.Pop(&q.timers).(timer))
	}
	for _, t := range due {
		t.fn()
	}
}

// clear cancels every pending timer.
func (q *timerQueue) clear() {
	q.timers = q.timers[:0]
}

// pending returns the number of scheduled timers.
func (q *timerQueue) pending() int {
	return q.timers.Len()
}

type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}
