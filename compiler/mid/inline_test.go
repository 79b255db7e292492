package mid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/tp"
)

func TestInlineLoopConds(t *testing.T) {
	g := build(t, "counter")
	pipe(t, g, "inline")

	loops := findKind(g, g.Root(), ir.Loop)
	require.Len(t, loops, 1)

	n := loops[0]

	// test block dissolved, condition computed before the loop
	require.Len(t, g.Blocks(n), 1)
	require.Len(t, g.Ins(n), 2)
	require.IsType(t, tp.Bool{}, g.TypeOf(g.Ins(n)[1]))

	// and recomputed at the end of the body, carried by a trailing cont
	body := g.Blocks(n)[0]
	code := g.Code(body)

	require.NotEmpty(t, code)

	last := code[len(code)-1]
	require.Equal(t, ir.Cont, g.Kind(last))
	require.Len(t, g.Ins(last), 1)
	require.IsType(t, tp.Bool{}, g.TypeOf(g.Ins(last)[0]))
}

func TestInlineLoopCondsNested(t *testing.T) {
	g := build(t, "nestedloops")
	pipe(t, g, "inline")

	loops := findKind(g, g.Root(), ir.Loop)
	require.Len(t, loops, 2)

	for _, n := range loops {
		require.Len(t, g.Blocks(n), 1)
		require.Len(t, g.Ins(n), 2)
	}
}
