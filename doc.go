// Package irqsched provides a static, priority-preemptive task runtime
// modeled on interrupt-driven scheduling for embedded targets.
//
// Tasks, priorities, queue capacities, and shared-resource access sets are
// all declared before the runtime starts. Spawning a task enqueues an
// invocation with a typed argument payload into a fixed-capacity ready
// queue and pends the task's priority level; one dispatcher goroutine per
// level plays the role of an interrupt line and runs each invocation to
// completion. Strictly higher levels get ahead of queued lower-priority
// work; equal levels are FIFO.
//
// # Quick Start
//
// Register handlers, declare the static layout, build, and start:
//
//	reg := irqsched.NewRegistry()
//	blink := irqsched.RegisterTask(reg, "blink", func(ctx context.Context, on bool) {
//		// runs to completion on the level-2 dispatcher
//	})
//
//	app, err := irqsched.Build([]irqsched.TaskDecl{
//		{Name: "blink", Priority: 2, Capacity: 4},
//	}, nil, reg, nil)
//	if err != nil {
//		// *ConfigurationError: the declarations are inconsistent
//	}
//	app.Start()
//	defer app.Stop()
//
//	if err := blink.Spawn(true); err != nil {
//		// errors.Is(err, irqsched.ErrQueueFull): capacity reached
//	}
//
// # Key Concepts
//
// Spawn: enqueue one invocation of a task with captured arguments. Spawn
// never blocks; beyond the task's declared capacity it returns ErrQueueFull
// and the caller decides retry/drop policy.
//
// Priority ceiling: shared state lives in Resource cells. Locking a cell
// raises the holder's effective priority to the cell's precomputed ceiling,
// which excludes every other task that could touch it. No wait queues, no
// runtime deadlock detection.
//
// Monotonic clock: SpawnAt/SpawnAfter defer an invocation to a deadline on
// the app's monotonic clock. A single timer is reprogrammed to the
// next-soonest deadline; invocations never fire early.
//
// Declarations can also be loaded from HCL manifests; see the config
// package.
package irqsched
