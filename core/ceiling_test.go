package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"
)

// TestResource_CeilingScenario verifies the priority ceiling exclusion
// Given: Tasks at priorities 1 and 3 both locking a resource (ceiling 3)
// When: The priority-1 task holds the lock and the priority-3 task is spawned
// Then: The priority-3 task never runs mid-critical-section; it is excluded
// until the guard is released
func TestResource_CeilingScenario(t *testing.T) {
	var log eventLog
	reg := NewRegistry()

	var app *App
	var res *Resource[int]
	var high *TaskRef[struct{}]

	low := RegisterTask(reg, "low", func(ctx context.Context, _ struct{}) {
		guard, err := res.Lock(ctx)
		if err != nil {
			t.Errorf("low Lock failed: %v", err)
			return
		}
		log.record("low-locked")
		*guard.Value() = 1

		// Spawn the higher-priority accessor from inside the critical
		// section; the ceiling keeps it out until the guard is released.
		if err := high.Spawn(struct{}{}); err != nil {
			t.Errorf("spawn high failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)

		*guard.Value() = 2
		log.record("low-cs-end")
		guard.Unlock()
	})

	high = RegisterTask(reg, "high", func(ctx context.Context, _ struct{}) {
		err := res.With(ctx, func(v *int) {
			log.record(fmt.Sprintf("high-saw-%d", *v))
		})
		if err != nil {
			t.Errorf("high With failed: %v", err)
		}
	})

	var err error
	app, err = Build([]TaskDecl{
		{Name: "low", Priority: 1, Capacity: 1, Resources: []string{"r"}},
		{Name: "high", Priority: 3, Capacity: 1, Resources: []string{"r"}},
	}, []ResourceDecl{{Name: "r"}}, reg, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	res, err = NewResource(app, "r", 0)
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}
	if res.Ceiling() != 3 {
		t.Fatalf("Ceiling() = %d, want 3", res.Ceiling())
	}

	app.Start()
	defer app.Stop()

	if err := low.Spawn(struct{}{}); err != nil {
		t.Fatalf("Spawn low failed: %v", err)
	}

	waitUntil(t, func() bool { return log.indexOf("high-saw-2") >= 0 }, "high to run")

	// high observed only the fully-updated value, after the critical section
	if i, j := log.indexOf("low-cs-end"), log.indexOf("high-saw-2"); i > j {
		t.Errorf("high ran before the critical section ended:\n%v", log.snapshot())
	}
	if log.indexOf("high-saw-1") >= 0 {
		t.Errorf("high observed a partially-updated resource:\n%v", log.snapshot())
	}
}

// TestResource_MutualExclusionFuzz verifies exclusion under random
// interleavings
// Given: Two tasks at different priorities hammering one resource
// When: Many invocations are spawned from concurrent producers
// Then: No two critical sections ever overlap
func TestResource_MutualExclusionFuzz(t *testing.T) {
	const perTask = 40

	var held atomic.Bool
	var overlaps, executed atomic.Int64
	reg := NewRegistry()

	var res *Resource[int]
	body := func(ctx context.Context, n int) {
		err := res.With(ctx, func(v *int) {
			if !held.CompareAndSwap(false, true) {
				overlaps.Inc()
			}
			*v++
			time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
			held.Store(false)
		})
		if err != nil {
			t.Errorf("With failed: %v", err)
		}
		executed.Inc()
	}

	taskLow := RegisterTask(reg, "fuzz-low", body)
	taskHigh := RegisterTask(reg, "fuzz-high", body)

	app, err := Build([]TaskDecl{
		{Name: "fuzz-low", Priority: 1, Capacity: perTask, Resources: []string{"cell"}},
		{Name: "fuzz-high", Priority: 2, Capacity: perTask, Resources: []string{"cell"}},
	}, []ResourceDecl{{Name: "cell"}}, reg, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	res, err = NewResource(app, "cell", 0)
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}

	app.Start()
	defer app.Stop()

	var wg sync.WaitGroup
	for _, ref := range []*TaskRef[int]{taskLow, taskHigh} {
		wg.Add(1)
		go func(ref *TaskRef[int]) {
			defer wg.Done()
			for n := 0; n < perTask; n++ {
				for {
					err := ref.Spawn(n)
					if err == nil {
						break
					}
					if !errors.Is(err, ErrQueueFull) {
						t.Errorf("Spawn failed: %v", err)
						return
					}
					time.Sleep(100 * time.Microsecond)
				}
			}
		}(ref)
	}
	wg.Wait()

	deadline := time.Now().Add(10 * time.Second)
	for executed.Load() < 2*perTask && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := executed.Load(); got != 2*perTask {
		t.Fatalf("executed = %d, want %d", got, 2*perTask)
	}
	if got := overlaps.Load(); got != 0 {
		t.Errorf("observed %d overlapping critical sections", got)
	}
}

// TestResource_LockMisuse verifies the explicit misuse errors
func TestResource_LockMisuse(t *testing.T) {
	reg := NewRegistry()

	var res *Resource[int]
	errCh := make(chan error, 1)
	outsider := RegisterTask(reg, "outsider", func(ctx context.Context, _ struct{}) {
		_, err := res.Lock(ctx)
		errCh <- err
	})
	RegisterTask(reg, "member", func(ctx context.Context, _ struct{}) {})

	app, err := Build([]TaskDecl{
		{Name: "outsider", Priority: 1},
		{Name: "member", Priority: 2, Resources: []string{"cell"}},
	}, []ResourceDecl{{Name: "cell"}}, reg, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	res, err = NewResource(app, "cell", 0)
	if err != nil {
		t.Fatalf("NewResource failed: %v", err)
	}

	// Locking without a task context
	if _, err := res.Lock(context.Background()); err == nil {
		t.Error("Lock outside a task context succeeded, want LockError")
	}

	// Locking from a task that did not declare access
	app.Start()
	defer app.Stop()
	if err := outsider.Spawn(struct{}{}); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	var lockErr *LockError
	select {
	case err := <-errCh:
		if !errors.As(err, &lockErr) {
			t.Errorf("Lock from non-accessor = %v, want *LockError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("outsider task never ran")
	}

	// Unknown resource name
	if _, err := NewResource(app, "ghost", 0); err == nil {
		t.Error("NewResource(ghost) succeeded, want ConfigurationError")
	}
}
