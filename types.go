package irqsched

import (
	"context"

	"irqsched/core"
)

// Re-export commonly used types from the core package for convenience.
// This allows users to import only the irqsched package for most use cases.

// TaskID identifies a declared task.
type TaskID = core.TaskID

// Priority is a static priority level, higher = more urgent.
type Priority = core.Priority

// TaskDecl is the static declaration of one task.
type TaskDecl = core.TaskDecl

// ResourceDecl declares a shared resource cell.
type ResourceDecl = core.ResourceDecl

// TaskRef is the typed spawn handle returned by RegisterTask.
type TaskRef[A any] = core.TaskRef[A]

// Resource is a shared state cell arbitrated by the priority ceiling
// protocol.
type Resource[T any] = core.Resource[T]

// Guard is an exclusive borrow of a resource cell.
type Guard[T any] = core.Guard[T]

// App is the built runtime.
type App = core.App

// Config holds the optional collaborators of an App.
type Config = core.Config

// Registry binds task names to typed handlers.
type Registry = core.Registry

// Timestamp is a monotonic instant on the app clock.
type Timestamp = core.Timestamp

// TaskInfo describes the task invocation bound to a dispatcher context.
type TaskInfo = core.TaskInfo

// Metrics is the runtime metrics interface.
type Metrics = core.Metrics

// PanicHandler handles task panics.
type PanicHandler = core.PanicHandler

// Error values.
var (
	ErrQueueFull = core.ErrQueueFull
	ErrNotBuilt  = core.ErrNotBuilt
	ErrStopped   = core.ErrStopped
)

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return core.NewRegistry()
}

// RegisterTask binds a typed handler to a task name.
func RegisterTask[A any](reg *Registry, name string, handler core.Handler[A]) *TaskRef[A] {
	return core.RegisterTask(reg, name, handler)
}

// Build validates the declarations and constructs the runtime.
func Build(tasks []TaskDecl, resources []ResourceDecl, reg *Registry, cfg *Config) (*App, error) {
	return core.Build(tasks, resources, reg, cfg)
}

// NewResource creates a shared resource cell against a built app.
func NewResource[T any](app *App, name string, initial T) (*Resource[T], error) {
	return core.NewResource(app, name, initial)
}

// CurrentTask returns the task invocation owning ctx.
func CurrentTask(ctx context.Context) (TaskInfo, bool) {
	return core.CurrentTask(ctx)
}
