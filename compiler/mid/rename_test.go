package mid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/sample"
	"github.com/riftlang/rift/compiler/tp"
)

func TestConvertToSSA(t *testing.T) {
	for _, name := range sample.Names() {
		t.Run(name, func(t *testing.T) {
			g := build(t, name)
			pipe(t, g, "inline", "cont", "ret", "thread", "ssa")

			// pure value flow, nothing memory- or control-shaped left
			for _, k := range []ir.Kind{ir.Load, ir.Store, ir.Ret, ir.Cont, ir.Escape} {
				require.Empty(t, findKind(g, g.Root(), k), "%v left", k)
			}

			require.Len(t, g.BlockOuts(g.Root()), 1)
		})
	}
}

func TestConvertToSSAIdempotent(t *testing.T) {
	g := build(t, "loopcont")
	pipe(t, g, "inline", "cont", "ret", "thread", "ssa")

	want := dump(t, g)

	pipe(t, g, "ssa")

	require.Equal(t, want, dump(t, g))
}

func TestUndefinedLoadPanics(t *testing.T) {
	g := ir.New()

	n := g.NewLoad("ghost", tp.Int{})
	g.Append(g.Root(), n)
	g.SetBlockOuts(g.Root(), g.Outs(n)[0])

	require.Panics(t, func() {
		_ = ConvertToSSA(context.Background(), g)
	})
}
