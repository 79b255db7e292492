package compiler

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler/dce"
	"github.com/riftlang/rift/compiler/format"
	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/mid"
)

// Stages of Lower in execution order. Each name is accepted by LowerTo.
var Stages = []string{"inline", "cont", "ret", "thread", "ssa"}

// Lower brings a frontend-built graph to its analyzable form: loop
// conditions inlined, cont and ret operations dissolved into block
// outputs, variable loads and stores converted to direct value flow.
// Unused code is removed and the graph is linted after every stage.
func Lower(ctx context.Context, g *ir.Graph) error {
	return LowerTo(ctx, g, "ssa")
}

// LowerTo stops after the named stage, for inspecting intermediate forms.
func LowerTo(ctx context.Context, g *ir.Graph, last string) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower", "to", last)
	defer tr.Finish("err", &err)

	known := false

	for _, st := range Stages {
		known = known || st == last
	}

	if !known {
		return errors.New("unknown stage: %v", last)
	}

	for _, st := range Stages {
		switch st {
		case "inline":
			err = mid.InlineLoopConds(ctx, g)
		case "cont":
			err = mid.NormalizeExits(ctx, g, ir.Cont)
		case "ret":
			err = mid.NormalizeExits(ctx, g, ir.Ret)
		case "thread":
			err = mid.ThreadLoadStores(ctx, g)
		case "ssa":
			err = mid.ConvertToSSA(ctx, g)
		}
		if err != nil {
			return errors.Wrap(err, "%v", st)
		}

		err = cleanup(ctx, g, st)
		if err != nil {
			return errors.Wrap(err, "%v", st)
		}

		if st == last {
			break
		}
	}

	return nil
}

func cleanup(ctx context.Context, g *ir.Graph, stage string) (err error) {
	err = dce.Run(ctx, g)
	if err != nil {
		return errors.Wrap(err, "dce")
	}

	err = ir.Lint(g)
	if err != nil {
		return errors.Wrap(err, "lint")
	}

	tr := tlog.SpanFromContext(ctx)

	if tr.If("dump") {
		b, err := format.Format(ctx, nil, g)
		if err != nil {
			return errors.Wrap(err, "format")
		}

		tr.Printf("stage %v\n%s", stage, b)
	}

	return nil
}
