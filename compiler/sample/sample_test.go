package sample

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/riftlang/rift/compiler/format"
	"github.com/riftlang/rift/compiler/ir"
)

func TestBuild(t *testing.T) {
	gold := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, name := range Names() {
		name := name

		t.Run(name, func(t *testing.T) {
			g, err := Build(name)
			require.NoError(t, err)

			require.NoError(t, ir.Lint(g))

			b, err := format.Format(context.Background(), nil, g)
			require.NoError(t, err)

			gold.Assert(t, name, b)
		})
	}
}

func TestBuildUnknown(t *testing.T) {
	_, err := Build("nonesuch")
	require.Error(t, err)
}
