package core

import "sync"

// execGate models the single execution core and its interrupt priority
// logic. Per level it tracks the Idle/Pending/Running state of the
// dispatcher state machine plus the effective priority of whatever is
// running there (static priority, or a resource ceiling while a lock guard
// is held).
//
// The rules mirror a hardware priority interrupt controller:
//   - a level may start work only if no strictly higher level is pending or
//     running, and its priority exceeds the effective priority of every
//     running task;
//   - equal priority never preempts;
//   - runtime entry points double as preemption points, where a
//     lower-priority task waits out higher-priority activity.
type execGate struct {
	mu   sync.Mutex
	cond *sync.Cond

	// Indexed by level, 0..max. Index 0 is unused; declared levels start
	// at 1.
	pending []bool
	running []bool
	eff     []Priority // 0 when the level is not running

	max     Priority
	stopped bool
}

func newExecGate(max Priority) *execGate {
	g := &execGate{
		pending: make([]bool, max+1),
		running: make([]bool, max+1),
		eff:     make([]Priority, max+1),
		max:     max,
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// pend marks a level as having queued work and wakes the dispatchers. This
// is the emulated interrupt: it is what makes new work observable even from
// a context that never returns to an idle loop.
func (g *execGate) pend(level Priority) {
	g.mu.Lock()
	g.pending[level] = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// canStart reports whether a task at level may begin executing now.
// Caller holds g.mu.
func (g *execGate) canStart(level Priority) bool {
	for q := level + 1; q <= g.max; q++ {
		if g.pending[q] || g.running[q] {
			return false
		}
	}
	for l := Priority(1); l <= g.max; l++ {
		if g.running[l] && g.eff[l] >= level {
			return false
		}
	}
	return true
}

// higherActive reports whether any level strictly above p is pending or
// running. Caller holds g.mu.
func (g *execGate) higherActive(p Priority) bool {
	for q := p + 1; q <= g.max; q++ {
		if g.pending[q] || g.running[q] {
			return true
		}
	}
	return false
}

// raise is the lock acquisition half of the priority ceiling protocol,
// called from a running task at level. It first yields to any
// strictly-higher activity (the preemption point a real core would have
// taken before reaching the lock instruction), then lifts the level's
// effective priority to the ceiling. It returns the prior effective
// priority for restore.
func (g *execGate) raise(level, ceiling Priority) Priority {
	g.mu.Lock()
	defer g.mu.Unlock()
	for !g.stopped && g.higherActive(g.eff[level]) {
		g.cond.Wait()
	}
	prev := g.eff[level]
	if ceiling > g.eff[level] {
		g.eff[level] = ceiling
	}
	return prev
}

// restore lowers the level's effective priority back to prev on guard
// release and wakes levels that were excluded by the ceiling.
func (g *execGate) restore(level, prev Priority) {
	g.mu.Lock()
	g.eff[level] = prev
	g.mu.Unlock()
	g.cond.Broadcast()
}

func (g *execGate) stop() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.cond.Broadcast()
}
