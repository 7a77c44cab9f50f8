package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// App is the built runtime: the dispatch table, one ready ring and one
// dispatcher goroutine per declared priority level, the execution gate, and
// the monotonic clock service. An App is created by Build and is immutable
// in structure; only Start and Stop change its lifecycle.
type App struct {
	table *DispatchTable
	tasks []boundTask  // indexed by TaskID
	rings []*readyRing // indexed by dispatcher slot
	gate  *execGate
	clock *Clock

	cfg *Config
	log *slog.Logger

	baseCtx context.Context

	started atomic.Bool
	stopped atomic.Bool

	spawned    atomic.Int64
	dispatched atomic.Int64
	rejected   atomic.Int64

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}

	failMu   sync.Mutex
	fatalErr error
}

// Build validates the declarations against the registry, constructs the
// dispatch table, sizes every queue, and binds the typed handlers. A non-nil
// error is always a *ConfigurationError listing every problem found.
//
// The returned app is not running; spawns are accepted immediately but
// nothing dispatches until Start.
func Build(tasks []TaskDecl, resources []ResourceDecl, reg *Registry, cfg *Config) (*App, error) {
	table, err := NewDispatchTable(tasks, resources)

	problems := registryParity(tasks, reg)
	if err != nil {
		problems = append(err.(*ConfigurationError).Problems, problems...)
	}
	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}

	app := &App{
		table: table,
		tasks: make([]boundTask, table.TaskCount()),
		cfg:   cfg.withDefaults(),
		done:  make(chan struct{}),
	}
	app.log = app.cfg.Logger
	app.baseCtx = WithLogger(context.Background(), app.log)
	app.gate = newExecGate(table.MaxLevel())

	levels := table.Levels()
	app.rings = make([]*readyRing, len(levels))
	for slot, level := range levels {
		app.rings[slot] = newReadyRing(table.levelCapacity(level))
	}

	for id := 0; id < table.TaskCount(); id++ {
		decl := table.TaskDecl(TaskID(id))
		bind, _ := reg.lookup(decl.Name)
		app.tasks[id] = bind(app, TaskID(id), decl.Capacity)
	}

	app.clock = newClock(app)
	return app, nil
}

// registryParity checks that declarations and registered handlers match
// one-to-one.
func registryParity(tasks []TaskDecl, reg *Registry) []string {
	var problems []string

	for _, name := range reg.duplicateNames() {
		problems = append(problems, fmt.Sprintf("task %q registered more than once", name))
	}

	declared := make(map[string]struct{}, len(tasks))
	for _, decl := range tasks {
		if decl.Name == "" {
			continue
		}
		declared[decl.Name] = struct{}{}
		if _, ok := reg.lookup(decl.Name); !ok {
			problems = append(problems, fmt.Sprintf("task %q declared but no handler registered", decl.Name))
		}
	}
	for _, name := range reg.names() {
		if _, ok := declared[name]; !ok {
			problems = append(problems, fmt.Sprintf("handler %q registered but task not declared", name))
		}
	}
	return problems
}

// Clock returns the app's monotonic clock service.
func (a *App) Clock() *Clock { return a.clock }

func (a *App) isStopped() bool { return a.stopped.Load() }

// Table returns the read-only dispatch table.
func (a *App) Table() *DispatchTable { return a.table }

// Start launches one dispatcher goroutine per declared priority level.
// Calling Start more than once is a no-op.
func (a *App) Start() {
	if !a.started.CompareAndSwap(false, true) {
		return
	}
	levels := a.table.Levels()
	a.log.Debug("starting dispatchers", "levels", len(levels))
	for slot, level := range levels {
		a.wg.Add(1)
		go a.dispatcherLoop(level, a.rings[slot])
	}
}

// Stop shuts the runtime down: dispatchers finish their current task (run to
// completion is never violated), pending queue entries are abandoned, and
// the clock service stops. Stop is idempotent and safe to call from a task.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.stopped.Store(true)
		a.clock.stopService()
		a.gate.stop()
		go func() {
			a.wg.Wait()
			close(a.done)
		}()
	})
}

// Wait blocks until the app has stopped, returning the fatal error if a task
// panic brought it down.
func (a *App) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		a.failMu.Lock()
		defer a.failMu.Unlock()
		return a.fatalErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue appends an invocation to its level's ready ring and pends the
// level. The argument slot was already reserved, so the ring (sized to the
// sum of its members' capacities) cannot overflow.
func (a *App) enqueue(id TaskID, slot int) {
	level, dslot := a.table.Lookup(id)
	ring := a.rings[dslot]
	if !ring.push(readyEntry{id: id, slot: slot, enqueued: time.Now()}) {
		// Unreachable while the sizing invariant holds; never swallowed.
		a.log.Error("ready ring overflow", "task", a.table.TaskName(id), "level", int(level))
		return
	}
	a.spawned.Inc()
	a.cfg.Metrics.RecordSpawn(a.table.TaskName(id), level)
	a.cfg.Metrics.RecordQueueDepth(level, ring.len())
	a.gate.pend(level)
}

func (a *App) noteQueueFull(id TaskID) {
	a.rejected.Inc()
	a.cfg.Metrics.RecordQueueFull(a.table.TaskName(id))
}

// dispatcherLoop is one emulated interrupt line. It waits for its level to
// be pended and admissible under the gate, then drains the ready ring one
// task at a time, each run to completion. Strictly higher levels get ahead
// between invocations; lower and equal levels wait.
func (a *App) dispatcherLoop(level Priority, ring *readyRing) {
	defer a.wg.Done()
	g := a.gate

	g.mu.Lock()
	for {
		for !g.stopped && !(g.pending[level] && g.canStart(level)) {
			g.cond.Wait()
		}
		if g.stopped {
			g.mu.Unlock()
			return
		}

		entry, ok := ring.pop()
		if !ok {
			// Spurious pend, queue already drained. Clearing the flag can
			// unblock lower levels whose admission check saw it set, so it
			// must wake them.
			g.pending[level] = false
			g.cond.Broadcast()
			continue
		}
		g.running[level] = true
		g.eff[level] = level
		g.mu.Unlock()

		a.runTask(level, entry)

		g.mu.Lock()
		g.running[level] = false
		g.eff[level] = 0
		if ring.len() == 0 {
			g.pending[level] = false
		}
		g.cond.Broadcast()
	}
}

// runTask executes one popped invocation with panic containment. A panic is
// reported through the PanicHandler and then brings the whole app down;
// there is no per-task restart.
func (a *App) runTask(level Priority, entry readyEntry) {
	name := a.table.TaskName(entry.id)
	ctx := withTaskInfo(a.baseCtx, TaskInfo{ID: entry.id, Name: name, Priority: level})

	start := time.Now()
	a.cfg.Metrics.RecordDispatchLatency(name, level, start.Sub(entry.enqueued))

	defer func() {
		a.cfg.Metrics.RecordTaskDuration(name, level, time.Since(start))
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			a.cfg.Metrics.RecordTaskPanic(name, rec)
			a.cfg.PanicHandler.HandlePanic(ctx, name, level, rec, stack)
			a.fail(fmt.Errorf("task %s panicked: %v", name, rec))
		}
	}()

	a.dispatched.Inc()
	a.tasks[entry.id].invoke(ctx, entry.slot)
}

func (a *App) fail(err error) {
	a.failMu.Lock()
	if a.fatalErr == nil {
		a.fatalErr = err
	}
	a.failMu.Unlock()
	a.Stop()
}
