package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler"
	"github.com/riftlang/rift/compiler/format"
	"github.com/riftlang/rift/compiler/sample"
)

func main() {
	samplesCmd := &cli.Command{
		Name:   "samples",
		Action: samplesAct,
		Args:   cli.Args{},
	}

	lowerCmd := &cli.Command{
		Name:   "lower",
		Action: lowerAct,
		Args:   cli.Args{},
	}

	dumpCmd := &cli.Command{
		Name:   "dump",
		Action: dumpAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "rift",
		Description: "rift is a tool for inspecting the rift compiler middle end",
		Commands: []*cli.Command{
			samplesCmd,
			lowerCmd,
			dumpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func samplesAct(c *cli.Command) (err error) {
	for _, name := range sample.Names() {
		fmt.Printf("%v\n", name)
	}

	return nil
}

// lower runs the full pipeline on the named samples, all of them by
// default, and prints the final graphs.
func lowerAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	names := c.Args
	if len(names) == 0 {
		names = sample.Names()
	}

	for _, name := range names {
		err = dump(ctx, name, "ssa")
		if err != nil {
			return errors.Wrap(err, "%v", name)
		}
	}

	return nil
}

// dump prints the graph as it stands after the given stage.
func dumpAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		return errors.New("stage expected: build or one of %v", compiler.Stages)
	}

	stage := c.Args[0]

	names := c.Args[1:]
	if len(names) == 0 {
		names = sample.Names()
	}

	for _, name := range names {
		err = dump(ctx, name, stage)
		if err != nil {
			return errors.Wrap(err, "%v", name)
		}
	}

	return nil
}

func dump(ctx context.Context, name, stage string) (err error) {
	g, err := sample.Build(name)
	if err != nil {
		return errors.Wrap(err, "build")
	}

	if stage != "build" {
		err = compiler.LowerTo(ctx, g, stage)
		if err != nil {
			return errors.Wrap(err, "lower")
		}
	}

	b, err := format.Format(ctx, nil, g)
	if err != nil {
		return errors.Wrap(err, "format")
	}

	fmt.Printf("%v after %v\n%s", name, stage, b)

	return nil
}
