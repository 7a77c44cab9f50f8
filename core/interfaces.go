package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task body panics during execution.
//
// There is no isolation or restart boundary between tasks sharing the
// address space, so a panic is fatal to the whole app: after the handler
// returns, the app stops and Wait reports the panic as its terminal error.
// The handler only decides how the failure is reported first.
//
// Implementations must be safe for concurrent use.
type PanicHandler interface {
	// HandlePanic receives the context of the panicked invocation, the task
	// name, its priority level, the recovered value, and the stack trace.
	HandlePanic(ctx context.Context, task string, level Priority, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler reports panics to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, task string, level Priority, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Task %s @ level %d] Panic: %v\nStack trace:\n%s", task, level, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting runtime execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus,
// StatsD, etc.).
//
// Methods must be non-blocking and fast; they are called on spawn and
// dispatch paths.
type Metrics interface {
	// RecordSpawn records one successful spawn of task at level.
	RecordSpawn(task string, level Priority)

	// RecordQueueFull records a spawn rejected because the task reached its
	// declared capacity.
	RecordQueueFull(task string)

	// RecordDispatchLatency records the time an invocation spent in its
	// ready queue before execution began.
	RecordDispatchLatency(task string, level Priority, wait time.Duration)

	// RecordTaskDuration records how long a task body took to run.
	RecordTaskDuration(task string, level Priority, duration time.Duration)

	// RecordQueueDepth records the current ready queue depth of a level.
	RecordQueueDepth(level Priority, depth int)

	// RecordTaskPanic records that a task body panicked.
	RecordTaskPanic(task string, panicInfo any)
}

// NilMetrics provides a no-op metrics implementation. It is the default when
// no metrics interface is configured.
type NilMetrics struct{}

// RecordSpawn is a no-op.
func (m *NilMetrics) RecordSpawn(task string, level Priority) {}

// RecordQueueFull is a no-op.
func (m *NilMetrics) RecordQueueFull(task string) {}

// RecordDispatchLatency is a no-op.
func (m *NilMetrics) RecordDispatchLatency(task string, level Priority, wait time.Duration) {}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(task string, level Priority, duration time.Duration) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(level Priority, depth int) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(task string, panicInfo any) {}

// =============================================================================
// Config: app-level configuration
// =============================================================================

// Config holds the optional collaborators of an App. Zero values select the
// defaults.
type Config struct {
	// PanicHandler is called when a task panics. Defaults to
	// DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger receives dispatcher and clock debug logging. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with default collaborators.
func DefaultConfig() *Config {
	return &Config{
		PanicHandler: &DefaultPanicHandler{},
		Metrics:      &NilMetrics{},
		Logger:       slog.Default(),
	}
}

func (c *Config) withDefaults() *Config {
	out := DefaultConfig()
	if c == nil {
		return out
	}
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	return out
}
