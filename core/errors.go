package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrQueueFull is returned by spawn operations when a task already has its
// declared Capacity of outstanding invocations. It is the only recoverable
// error on the steady-state path; the caller decides retry/drop policy.
var ErrQueueFull = errors.New("task queue full")

// ErrNotBuilt is returned when a TaskRef is used before Build bound it to an
// app.
var ErrNotBuilt = errors.New("task not bound: Build was not called")

// ErrStopped is returned when spawning into an app that has been stopped.
var ErrStopped = errors.New("app stopped")

// SpawnError wraps a spawn failure with the task it was aimed at.
type SpawnError struct {
	Task string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Task, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ConfigurationError aggregates every problem found while validating the
// static task and resource declarations. It is produced only by Build and
// NewDispatchTable; no configuration problem is representable at runtime.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n- %s", strings.Join(e.Problems, "\n- "))
}

// LockError reports misuse of a resource cell: locking from outside a task
// context, or from a task that did not declare the resource in its access
// set. Both are programming errors surfaced explicitly rather than swallowed.
type LockError struct {
	Resource string
	Task     string
	Reason   string
}

func (e *LockError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("lock %s: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("lock %s from task %s: %s", e.Resource, e.Task, e.Reason)
}
