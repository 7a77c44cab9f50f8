package core

import (
	"context"
	"sync"
)

// Registry binds task names to typed Go handlers. Handlers are registered
// before Build; Build performs a strict parity check between the registry
// and the task declarations (every declared task needs a handler, every
// registered handler needs a declaration).
type Registry struct {
	mu         sync.Mutex
	bindings   map[string]bindFunc
	duplicates []string
}

// bindFunc finalizes one registration once the dispatch table assigned the
// task its ID and capacity. It returns the type-erased invoke closure used
// by the dispatcher.
type bindFunc func(app *App, id TaskID, capacity int) boundTask

type boundTask struct {
	invoke      func(ctx context.Context, slot int)
	outstanding func() int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]bindFunc)}
}

// RegisterTask binds handler to the task named name and returns the typed
// spawn handle. The handle is inert until Build links it to an app. Payload
// storage is a fixed-capacity typed pool created at Build, sized from the
// declaration.
func RegisterTask[A any](reg *Registry, name string, handler Handler[A]) *TaskRef[A] {
	ref := &TaskRef[A]{name: name}
	reg.add(name, func(app *App, id TaskID, capacity int) boundTask {
		pool := newSlotPool[A](capacity)
		ref.pool = pool
		ref.app = app
		ref.id = id
		return boundTask{
			invoke: func(ctx context.Context, slot int) {
				args := pool.take(slot)
				handler(ctx, args)
			},
			outstanding: pool.outstanding,
		}
	})
	return ref
}

func (r *Registry) add(name string, bind bindFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bindings[name]; exists {
		r.duplicates = append(r.duplicates, name)
		return
	}
	r.bindings[name] = bind
}

func (r *Registry) lookup(name string) (bindFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bind, ok := r.bindings[name]
	return bind, ok
}

func (r *Registry) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	return names
}

func (r *Registry) duplicateNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.duplicates...)
}
