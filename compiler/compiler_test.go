package compiler

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/compiler/format"
	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/sample"
)

func TestLower(t *testing.T) {
	gold := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	exact := map[string]bool{"straight": true, "maybe": true, "counter": true}

	for _, name := range sample.Names() {
		t.Run(name, func(t *testing.T) {
			g, err := sample.Build(name)
			require.NoError(t, err)

			err = Lower(context.Background(), g)
			require.NoError(t, err)

			require.NoError(t, ir.Lint(g))

			for _, k := range []ir.Kind{ir.Load, ir.Store, ir.Ret, ir.Cont, ir.Escape} {
				require.Zero(t, count(g, g.Root(), k), "%v left", k)
			}

			require.Len(t, g.BlockOuts(g.Root()), 1)

			if !exact[name] {
				return
			}

			b, err := format.Format(context.Background(), nil, g)
			require.NoError(t, err)

			gold.Assert(t, name, b)
		})
	}
}

func TestLowerDeterministic(t *testing.T) {
	dumps := make([]string, 2)

	for i := range dumps {
		g, err := sample.Build("nestedloops")
		require.NoError(t, err)

		err = Lower(context.Background(), g)
		require.NoError(t, err)

		b, err := format.Format(context.Background(), nil, g)
		require.NoError(t, err)

		dumps[i] = string(b)
	}

	require.Equal(t, dumps[0], dumps[1])
}

func TestLowerTo(t *testing.T) {
	g, err := sample.Build("condret")
	require.NoError(t, err)

	err = LowerTo(context.Background(), g, "parse")
	require.Error(t, err)

	err = LowerTo(context.Background(), g, "cont")
	require.NoError(t, err)

	require.NoError(t, ir.Lint(g))

	// rets are dissolved by a later stage
	require.NotZero(t, count(g, g.Root(), ir.Ret))
}

func count(g *ir.Graph, b ir.Block, k ir.Kind) (total int) {
	for _, n := range g.Code(b) {
		if g.Kind(n) == k {
			total++
		}

		for _, sub := range g.Blocks(n) {
			total += count(g, sub, k)
		}
	}

	return total
}
