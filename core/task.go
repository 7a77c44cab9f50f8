package core

import (
	"context"
	"time"
)

// TaskID is the dense index assigned to a task when the dispatch table is
// built. IDs are stable for the lifetime of the app.
type TaskID int

// Priority is a static priority level, higher = more urgent.
// Valid levels are 1..MaxPriority.
type Priority int

// MaxPriority bounds the number of emulated interrupt lines. One dispatcher
// goroutine is claimed per distinct declared level.
const MaxPriority Priority = 64

// Handler is the unit of work bound to a task at registration time. It runs
// to completion on the dispatcher goroutine of the task's priority level.
type Handler[A any] func(ctx context.Context, args A)

// TaskDecl is the static declaration of one task: its identity, priority
// level, maximum number of outstanding spawns, and the set of shared
// resources its handler may lock. Declarations are validated once by Build
// and are immutable afterwards.
type TaskDecl struct {
	Name     string
	Priority Priority

	// Capacity is the maximum number of outstanding (spawned but not yet
	// dispatched) invocations. Zero means 1.
	Capacity int

	// Resources names the shared resource cells the handler may lock.
	Resources []string
}

// ResourceDecl declares a shared resource cell by name. Its priority ceiling
// is derived from the tasks that list it in their access sets.
type ResourceDecl struct {
	Name string
}

// taskDescriptor is the built, immutable form of a TaskDecl plus its handler
// binding. The invoke closure copies the argument payload out of the task's
// slot pool, frees the slot, and calls the typed handler.
type taskDescriptor struct {
	id       TaskID
	name     string
	priority Priority
	capacity int
	slot     int // dispatcher slot: index of the task's level

	invoke func(ctx context.Context, slot int)
}

// =============================================================================
// TaskRef: typed spawn handle
// =============================================================================

// TaskRef is the typed handle returned by RegisterTask. After Build it is
// bound to the app and can spawn invocations of its task.
type TaskRef[A any] struct {
	name string
	pool *slotPool[A]

	app *App
	id  TaskID
}

// Name returns the declared task name.
func (r *TaskRef[A]) Name() string { return r.name }

// Spawn enqueues one invocation of the task carrying args and pends the
// task's priority level. It never blocks; if the task already has Capacity
// outstanding invocations it returns a SpawnError wrapping ErrQueueFull.
func (r *TaskRef[A]) Spawn(args A) error {
	if r.app == nil {
		return &SpawnError{Task: r.name, Err: ErrNotBuilt}
	}
	if r.app.isStopped() {
		return &SpawnError{Task: r.name, Err: ErrStopped}
	}
	slot, ok := r.pool.reserve()
	if !ok {
		r.app.noteQueueFull(r.id)
		return &SpawnError{Task: r.name, Err: ErrQueueFull}
	}
	r.pool.put(slot, args)
	r.app.enqueue(r.id, slot)
	return nil
}

// SpawnAt schedules one invocation to be enqueued once the app clock reaches
// at. The argument slot is claimed immediately, so capacity errors surface
// here and the deferred enqueue can never fail.
func (r *TaskRef[A]) SpawnAt(args A, at Timestamp) error {
	if r.app == nil {
		return &SpawnError{Task: r.name, Err: ErrNotBuilt}
	}
	if r.app.isStopped() {
		return &SpawnError{Task: r.name, Err: ErrStopped}
	}
	slot, ok := r.pool.reserve()
	if !ok {
		r.app.noteQueueFull(r.id)
		return &SpawnError{Task: r.name, Err: ErrQueueFull}
	}
	r.pool.put(slot, args)
	r.app.clock.scheduleAt(r.id, slot, at)
	return nil
}

// SpawnAfter schedules one invocation delay from now.
func (r *TaskRef[A]) SpawnAfter(args A, delay time.Duration) error {
	if r.app == nil {
		return &SpawnError{Task: r.name, Err: ErrNotBuilt}
	}
	return r.SpawnAt(args, r.app.clock.Now()+Timestamp(delay))
}

// =============================================================================
// Context helper: which task is running on this goroutine
// =============================================================================

// TaskInfo describes the task invocation bound to a dispatcher context.
type TaskInfo struct {
	ID       TaskID
	Name     string
	Priority Priority
}

type taskInfoKeyType struct{}

var taskInfoKey taskInfoKeyType

// CurrentTask returns the task invocation owning ctx, if ctx originates from
// a dispatcher goroutine.
func CurrentTask(ctx context.Context) (TaskInfo, bool) {
	if v := ctx.Value(taskInfoKey); v != nil {
		return v.(TaskInfo), true
	}
	return TaskInfo{}, false
}

func withTaskInfo(ctx context.Context, info TaskInfo) context.Context {
	return context.WithValue(ctx, taskInfoKey, info)
}
