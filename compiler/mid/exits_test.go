package mid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/compiler/dce"
	"github.com/riftlang/rift/compiler/format"
	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/sample"
	"github.com/riftlang/rift/compiler/tp"
)

func build(t *testing.T, name string) *ir.Graph {
	g, err := sample.Build(name)
	require.NoError(t, err)

	return g
}

// pipe runs pipeline stages in order, cleaning up and linting after each,
// the way the full pipeline does.
func pipe(t *testing.T, g *ir.Graph, stages ...string) {
	ctx := context.Background()

	for _, st := range stages {
		var err error

		switch st {
		case "inline":
			err = InlineLoopConds(ctx, g)
		case "cont":
			err = NormalizeExits(ctx, g, ir.Cont)
		case "ret":
			err = NormalizeExits(ctx, g, ir.Ret)
		case "thread":
			err = ThreadLoadStores(ctx, g)
		case "ssa":
			err = ConvertToSSA(ctx, g)
		default:
			t.Fatalf("unknown stage %v", st)
		}

		require.NoError(t, err, st)
		require.NoError(t, dce.Run(ctx, g), st)
		require.NoError(t, ir.Lint(g), st)
	}
}

func dump(t *testing.T, g *ir.Graph) string {
	b, err := format.Format(context.Background(), nil, g)
	require.NoError(t, err)

	return string(b)
}

func findKind(g *ir.Graph, b ir.Block, k ir.Kind) (r []ir.Node) {
	for _, n := range g.Code(b) {
		if g.Kind(n) == k {
			r = append(r, n)
		}

		for _, sub := range g.Blocks(n) {
			r = append(r, findKind(g, sub, k)...)
		}
	}

	return r
}

func TestNormalizeContBreak(t *testing.T) {
	g := build(t, "loopbreak")
	pipe(t, g, "inline", "cont")

	require.Empty(t, findKind(g, g.Root(), ir.Cont))

	loop := findKind(g, g.Root(), ir.Loop)[0]
	body := g.Blocks(loop)[0]

	// the body decides whether to iterate again
	outs := g.BlockOuts(body)
	require.NotEmpty(t, outs)
	require.IsType(t, tp.Bool{}, g.TypeOf(outs[0]))

	// blocks that never fall through are marked for the threader
	require.NotEmpty(t, findKind(g, g.Root(), ir.Escape))
}

func TestNormalizeContUntouched(t *testing.T) {
	// no cont ops anywhere, the graph comes out byte-identical
	g := build(t, "maybe")
	pipe(t, g, "inline")

	before := dump(t, g)

	pipe(t, g, "cont")

	require.Equal(t, before, dump(t, g))
}

func TestNormalizeRetStraight(t *testing.T) {
	g := build(t, "straight")
	pipe(t, g, "inline", "cont", "ret")

	require.Empty(t, findKind(g, g.Root(), ir.Ret))

	outs := g.BlockOuts(g.Root())
	require.Len(t, outs, 1)
	require.IsType(t, tp.Int{}, g.TypeOf(outs[0]))
}

func TestNormalizeRetEarly(t *testing.T) {
	g := build(t, "condret")
	pipe(t, g, "inline", "cont", "ret")

	require.Empty(t, findKind(g, g.Root(), ir.Ret))

	// the early return became a conditional choosing between values
	require.NotEmpty(t, findKind(g, g.Root(), ir.If))

	outs := g.BlockOuts(g.Root())
	require.Len(t, outs, 1)
	require.IsType(t, tp.Int{}, g.TypeOf(outs[0]))
}

func TestNormalizeRetLoop(t *testing.T) {
	g := build(t, "nestedloops")
	pipe(t, g, "inline", "cont", "ret")

	require.Empty(t, findKind(g, g.Root(), ir.Ret))
	require.Empty(t, findKind(g, g.Root(), ir.Cont))

	// the return from the outer body travels through loop-carried slots
	outer := findKind(g, g.Root(), ir.Loop)[0]
	body := g.Blocks(outer)[0]

	require.True(t, len(g.BlockIns(body)) >= 3, "iteration, exit flag and payload")
	require.Len(t, g.BlockOuts(body), len(g.BlockIns(body)))
	require.Len(t, g.Outs(outer), len(g.BlockIns(body))-1)

	// not entering the loop at all must mean no exit
	flag := g.Ins(outer)[2]
	require.Equal(t, ir.Const, g.Kind(g.Producer(flag)))
	require.Equal(t, false, g.Lit(g.Producer(flag)))

	outs := g.BlockOuts(g.Root())
	require.Len(t, outs, 1)
	require.IsType(t, tp.Int{}, g.TypeOf(outs[0]))
}

func TestNormalizeRetIdempotent(t *testing.T) {
	g := build(t, "condret")
	pipe(t, g, "inline", "cont", "ret")

	before := dump(t, g)

	pipe(t, g, "ret")

	require.Equal(t, before, dump(t, g))
}

func TestNormalizeExitsKind(t *testing.T) {
	g := ir.New()

	err := NormalizeExits(context.Background(), g, ir.Add)
	require.Error(t, err)
}

func TestContWithoutLoopPanics(t *testing.T) {
	g := ir.New()

	n := g.NewNode(ir.Cont, g.False())
	g.Append(g.Root(), n)

	require.Panics(t, func() {
		_ = NormalizeExits(context.Background(), g, ir.Cont)
	})
}
