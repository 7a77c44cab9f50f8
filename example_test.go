package irqsched_test

import (
	"context"
	"fmt"
	"time"

	"irqsched"
)

// Example mirrors the canonical spawn example: a task receives (1, 2),
// respawns itself with (2, 3), and stops the app.
func Example() {
	type fooArgs struct {
		X int32
		Y uint32
	}

	reg := irqsched.NewRegistry()
	var app *irqsched.App
	var foo *irqsched.TaskRef[fooArgs]

	foo = irqsched.RegisterTask(reg, "foo", func(ctx context.Context, args fooArgs) {
		fmt.Printf("foo %d, %d\n", args.X, args.Y)
		if args.X == 2 {
			app.Stop()
			return
		}
		_ = foo.Spawn(fooArgs{X: 2, Y: 3})
	})

	app, _ = irqsched.Build([]irqsched.TaskDecl{
		{Name: "foo", Priority: 1, Capacity: 2},
	}, nil, reg, nil)

	_ = foo.Spawn(fooArgs{X: 1, Y: 2})
	app.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.Wait(ctx)

	// Output:
	// foo 1, 2
	// foo 2, 3
}

// ExampleResource shows scoped access to shared state under the priority
// ceiling protocol.
func ExampleResource() {
	reg := irqsched.NewRegistry()
	var app *irqsched.App
	var counter *irqsched.Resource[int]

	bump := irqsched.RegisterTask(reg, "bump", func(ctx context.Context, delta int) {
		_ = counter.With(ctx, func(v *int) {
			*v += delta
			fmt.Println("counter =", *v)
		})
		if delta == 2 {
			app.Stop()
		}
	})

	app, _ = irqsched.Build(
		[]irqsched.TaskDecl{
			{Name: "bump", Priority: 1, Capacity: 2, Resources: []string{"counter"}},
		},
		[]irqsched.ResourceDecl{{Name: "counter"}},
		reg, nil,
	)
	counter, _ = irqsched.NewResource(app, "counter", 0)

	_ = bump.Spawn(1)
	_ = bump.Spawn(2)
	app.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.Wait(ctx)

	// Output:
	// counter = 1
	// counter = 3
}
