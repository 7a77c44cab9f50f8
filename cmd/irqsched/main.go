// Command irqsched validates task manifests and runs a small built-in demo
// of the runtime.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/urfave/cli/v2"

	"irqsched"
	"irqsched/config"
	"irqsched/core"
)

func main() {
	app := &cli.App{
		Name:  "irqsched",
		Usage: "static priority-preemptive task runtime tooling",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "validate a task manifest and print the dispatch table",
				ArgsUsage: "<manifest.hcl> [more.hcl ...]",
				Action:    runCheck,
			},
			{
				Name:   "demo",
				Usage:  "run the bundled ping/respawn demo app",
				Action: runDemo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runCheck(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("check: at least one manifest path required", 2)
	}
	logger := newLogger(c)
	ctx := core.WithLogger(context.Background(), logger)

	manifest, err := config.Load(ctx, c.Args().Slice()...)
	if err != nil {
		return err
	}

	tasks, resources := manifest.Decls()
	table, err := core.NewDispatchTable(tasks, resources)
	if err != nil {
		return err
	}

	fmt.Printf("%d task(s), %d priority level(s)\n\n", table.TaskCount(), len(table.Levels()))
	fmt.Println("TASK            LEVEL  SLOT  CAPACITY  RESOURCES")
	for id := 0; id < table.TaskCount(); id++ {
		decl := table.TaskDecl(core.TaskID(id))
		level, slot := table.Lookup(core.TaskID(id))
		fmt.Printf("%-15s %5d %5d %9d  %v\n", decl.Name, level, slot, decl.Capacity, decl.Resources)
	}

	ceilings := table.Ceilings()
	if len(ceilings) > 0 {
		names := make([]string, 0, len(ceilings))
		for name := range ceilings {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Println("\nRESOURCE        CEILING")
		for _, name := range names {
			fmt.Printf("%-15s %7d\n", name, ceilings[name])
		}
	}
	return nil
}

// runDemo mirrors the classic spawn example: a task spawned with (1, 2)
// respawns itself with (2, 3), and the second invocation requests shutdown.
func runDemo(c *cli.Context) error {
	logger := newLogger(c)

	type pingArgs struct {
		X int32
		Y uint32
	}

	reg := irqsched.NewRegistry()
	var ping *irqsched.TaskRef[pingArgs]
	var app *irqsched.App

	ping = irqsched.RegisterTask(reg, "ping", func(ctx context.Context, args pingArgs) {
		logger.Info("ping", "x", args.X, "y", args.Y)
		if args.X == 2 {
			app.Stop()
			return
		}
		if err := ping.Spawn(pingArgs{X: 2, Y: 3}); err != nil {
			logger.Error("respawn failed", "err", err)
		}
	})

	var err error
	app, err = irqsched.Build([]irqsched.TaskDecl{
		{Name: "ping", Priority: 1, Capacity: 2},
	}, nil, reg, &irqsched.Config{Logger: logger})
	if err != nil {
		return err
	}

	if err := ping.Spawn(pingArgs{X: 1, Y: 2}); err != nil {
		return err
	}
	app.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.Wait(ctx)
}
