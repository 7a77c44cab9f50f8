package core

import (
	"sync"
	"time"
)

// =============================================================================
// slotPool: fixed-capacity typed argument storage, one per task
// =============================================================================

// slotPool holds the argument payloads for one task. Capacity is fixed at
// build time from the task declaration; reserve fails instead of growing.
// A slot is claimed at spawn time, written once, and released by the
// dispatcher when the payload is copied out, so a task can respawn itself up
// to its capacity.
type slotPool[A any] struct {
	mu    sync.Mutex
	slots []A
	free  []int
}

func newSlotPool[A any](capacity int) *slotPool[A] {
	p := &slotPool[A]{
		slots: make([]A, capacity),
		free:  make([]int, capacity),
	}
	for i := range p.free {
		p.free[i] = i
	}
	return p
}

// reserve claims a free slot index. The critical section is a few
// instructions; the pool is safe to call from any context.
func (p *slotPool[A]) reserve() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return 0, false
	}
	slot := p.free[n-1]
	p.free = p.free[:n-1]
	return slot, true
}

// put writes the payload into a reserved slot.
func (p *slotPool[A]) put(slot int, args A) {
	p.slots[slot] = args
}

// take copies the payload out and frees the slot.
func (p *slotPool[A]) take(slot int) A {
	args := p.slots[slot]
	var zero A
	p.slots[slot] = zero // release references held by the payload
	p.mu.Lock()
	p.free = append(p.free, slot)
	p.mu.Unlock()
	return args
}

func (p *slotPool[A]) outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cap(p.free) - len(p.free)
}

// =============================================================================
// readyRing: fixed-capacity FIFO of pending invocations, one per level
// =============================================================================

// readyEntry is one pending invocation: which task, which argument slot, and
// when it was enqueued (for dispatch latency accounting).
type readyEntry struct {
	id       TaskID
	slot     int
	enqueued time.Time
}

// readyRing is the ready queue of one priority level. Producers are any
// goroutine holding a reserved argument slot; the only consumer is the
// level's dispatcher. Capacity equals the summed capacities of the level's
// member tasks, so a push after a successful slot reservation cannot
// overflow.
type readyRing struct {
	mu      sync.Mutex
	entries []readyEntry
	head    int
	count   int
}

func newReadyRing(capacity int) *readyRing {
	return &readyRing{entries: make([]readyEntry, capacity)}
}

func (r *readyRing) push(e readyEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == len(r.entries) {
		return false
	}
	tail := (r.head + r.count) % len(r.entries)
	r.entries[tail] = e
	r.count++
	return true
}

func (r *readyRing) pop() (readyEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return readyEntry{}, false
	}
	e := r.entries[r.head]
	r.entries[r.head] = readyEntry{}
	r.head = (r.head + 1) % len(r.entries)
	r.count--
	return e, true
}

func (r *readyRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
