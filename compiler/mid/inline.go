package mid

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler/ir"
)

type (
	inliner struct {
		g *ir.Graph

		tr tlog.Span
	}
)

// InlineLoopConds dissolves the separate condition block of every loop.
// The condition code is cloned twice: once in front of the loop node,
// computing the first-iteration condition passed as loop input, and once at
// the end of the body, where a trailing cont op carries the next-iteration
// condition. Exit normalization later turns that cont into the body's
// condition output.
func InlineLoopConds(ctx context.Context, g *ir.Graph) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "inline loop conds")
	defer tr.Finish("err", &err)

	c := &inliner{g: g, tr: tr}

	c.block(g.Root())

	return nil
}

func (c *inliner) block(b ir.Block) {
	g := c.g

	code := append([]ir.Node{}, g.Code(b)...)

	for _, n := range code {
		for _, sub := range g.Blocks(n) {
			c.block(sub)
		}

		if g.Kind(n) == ir.Loop && len(g.Blocks(n)) == 2 {
			c.loop(n)
		}
	}
}

func (c *inliner) loop(n ir.Node) {
	g := c.g

	body := g.Blocks(n)[0]
	test := g.Blocks(n)[1]

	// first evaluation, in front of the loop

	outs := g.CloneBlockBefore(n, test, map[ir.Value]ir.Value{})
	g.InsertIn(n, 1, outs[0])

	// next evaluation, at the end of the body

	outs = g.CloneBlockAppend(body, test, map[ir.Value]ir.Value{})
	g.Append(body, g.NewNode(ir.Cont, outs[0]))

	g.EraseBlock(n, 1)

	c.tr.V("inline").Printw("loop cond inlined", "loop", n, "cond", g.Ins(n)[1], "next", outs[0])
}
