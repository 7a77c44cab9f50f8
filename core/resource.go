package core

import (
	"context"
	"fmt"
)

// Resource is a shared state cell arbitrated by the priority ceiling
// protocol. The cell is declared statically (a ResourceDecl plus the access
// sets of its tasks); its ceiling is the maximum static priority among those
// tasks, computed once by the dispatch table.
//
// "Locking" is priority manipulation, not queueing: holding the guard raises
// the owning task's effective priority to the ceiling, which excludes every
// task that could ever touch the cell. There is no wait queue and no runtime
// deadlock detection because none is needed.
type Resource[T any] struct {
	app     *App
	name    string
	ceiling Priority
	value   T
}

// NewResource creates the cell named name with its initial value. The name
// must have been declared at Build and appear in at least one task's access
// set; otherwise the configuration is incomplete and an error is returned.
func NewResource[T any](app *App, name string, initial T) (*Resource[T], error) {
	ceiling, ok := app.table.Ceiling(name)
	if !ok {
		return nil, &ConfigurationError{Problems: []string{
			fmt.Sprintf("resource %q is not declared or has an empty access set", name),
		}}
	}
	return &Resource[T]{app: app, name: name, ceiling: ceiling, value: initial}, nil
}

// Name returns the declared resource name.
func (r *Resource[T]) Name() string { return r.name }

// Ceiling returns the precomputed priority ceiling.
func (r *Resource[T]) Ceiling() Priority { return r.ceiling }

// Lock grants exclusive access to the cell from the calling task. The
// caller's effective priority is raised to the ceiling for the guard's
// lifetime; Unlock restores it. Guards must be released in LIFO order when
// nested.
//
// Lock fails only on misuse: ctx does not belong to a task invocation, or
// the task did not declare this resource in its access set. Exclusion itself
// needs no failure path; it holds by construction.
func (r *Resource[T]) Lock(ctx context.Context) (*Guard[T], error) {
	info, ok := CurrentTask(ctx)
	if !ok {
		return nil, &LockError{Resource: r.name, Reason: "no task context"}
	}
	if !r.app.table.mayAccess(r.name, info.ID) {
		return nil, &LockError{Resource: r.name, Task: info.Name, Reason: "resource not in task's access set"}
	}

	prev := r.app.gate.raise(info.Priority, r.ceiling)
	return &Guard[T]{res: r, level: info.Priority, prev: prev}, nil
}

// With runs fn with the cell locked, releasing the guard on return even if
// fn panics.
func (r *Resource[T]) With(ctx context.Context, fn func(*T)) error {
	guard, err := r.Lock(ctx)
	if err != nil {
		return err
	}
	defer guard.Unlock()
	fn(guard.Value())
	return nil
}

// Guard is an exclusive borrow of a resource cell, scoped to one critical
// section of one task invocation.
type Guard[T any] struct {
	res      *Resource[T]
	level    Priority
	prev     Priority
	released bool
}

// Value returns the guarded cell. The pointer must not outlive the guard.
func (g *Guard[T]) Value() *T { return &g.res.value }

// Unlock releases the borrow and restores the holder's prior effective
// priority. Unlocking twice is a no-op.
func (g *Guard[T]) Unlock() {
	if g.released {
		return
	}
	g.released = true
	g.res.app.gate.restore(g.level, g.prev)
}
