package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Timestamp is a monotonic, non-decreasing instant measured from the app
// clock's epoch. It is the only time currency of the runtime; there are no
// blocking waits.
type Timestamp time.Duration

// scheduledSpawn is an invocation waiting for its deadline. The argument
// slot was claimed at schedule time, so firing never fails.
type scheduledSpawn struct {
	at    Timestamp
	id    TaskID
	slot  int
	index int // for heap interface
}

// scheduledHeap implements heap.Interface ordered by deadline.
type scheduledHeap []*scheduledSpawn

func (h scheduledHeap) Len() int           { return len(h) }
func (h scheduledHeap) Less(i, j int) bool { return h[i].at < h[j].at }
func (h scheduledHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *scheduledHeap) Push(x any) {
	n := len(*h)
	item := x.(*scheduledSpawn)
	item.index = n
	*h = append(*h, item)
}

func (h *scheduledHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *scheduledHeap) Peek() *scheduledSpawn {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// Clock is the monotonic clock service. Scheduled spawns sit in a deadline
// min-heap; a single timer is reprogrammed to the next-soonest deadline
// rather than ticking at a fixed rate. An invocation never fires before its
// deadline; once fired it is enqueued and dispatched under the ordinary
// preemption rules.
type Clock struct {
	app   *App
	epoch time.Time

	pq     scheduledHeap
	mu     sync.Mutex
	wakeup chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func newClock(app *App) *Clock {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Clock{
		app:    app,
		epoch:  time.Now(),
		pq:     make(scheduledHeap, 0),
		wakeup: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	heap.Init(&c.pq)
	go c.loop()
	return c
}

// Now returns the current monotonic timestamp.
func (c *Clock) Now() Timestamp {
	return Timestamp(time.Since(c.epoch))
}

// ScheduledCount returns the number of spawns waiting on a deadline.
func (c *Clock) ScheduledCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pq)
}

func (c *Clock) scheduleAt(id TaskID, slot int, at Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &scheduledSpawn{at: at, id: id, slot: slot}
	heap.Push(&c.pq, item)

	if item.index == 0 {
		select {
		case c.wakeup <- struct{}{}:
		default:
		}
	}
}

func (c *Clock) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		nextRun := c.untilNextDeadline()
		if nextRun < 0 {
			// No deadlines, wait indefinitely
			nextRun = 1000 * time.Hour
		}

		timer.Reset(nextRun)

		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			// Timer fired, enqueue all due spawns in one go
			c.fireDue()
		case <-c.wakeup:
			// New deadline added, need to reprogram
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// untilNextDeadline determines how long to wait until the next scheduled
// spawn. Returns 0 if a deadline is already due and -1 if none exist.
func (c *Clock) untilNextDeadline() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := c.pq.Peek()
	if item == nil {
		return -1
	}

	remaining := time.Duration(item.at - c.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// fireDue enqueues every spawn whose deadline has been reached.
func (c *Clock) fireDue() {
	c.mu.Lock()

	now := c.Now()
	// Collect due spawns to avoid holding the lock while enqueueing
	var due []*scheduledSpawn

	for c.pq.Len() > 0 {
		item := c.pq.Peek()
		if item.at > now {
			break
		}
		heap.Pop(&c.pq)
		due = append(due, item)
	}

	c.mu.Unlock()

	for _, item := range due {
		c.app.enqueue(item.id, item.slot)
	}
}

func (c *Clock) stopService() {
	c.cancel()

	c.mu.Lock()
	c.pq = make(scheduledHeap, 0)
	heap.Init(&c.pq)
	c.mu.Unlock()
}
