package mid

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler/ir"
)

type (
	renamer struct {
		g *ir.Graph

		tr tlog.Span
	}
)

// ConvertToSSA resolves loads and stores into direct value references and
// removes them. After threading every load finds its value in the scope
// chain: a store in the same block before it, a loop-carried or branch slot
// planted by the threader, or a binding from an enclosing block.
//
// The pass is a no-op on a graph already converted.
func ConvertToSSA(ctx context.Context, g *ir.Graph) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "convert to ssa")
	defer tr.Finish("err", &err)

	c := &renamer{g: g, tr: tr}

	c.block(g.Root(), nil)

	return nil
}

func (c *renamer) block(b ir.Block, prev *env[ir.Value]) {
	g := c.g

	e := newEnv[ir.Value](b, prev)

	code := append([]ir.Node{}, g.Code(b)...)

	for _, n := range code {
		switch g.Kind(n) {
		case ir.Store:
			e.setVar(g.Name(n), g.Ins(n)[0])
			g.Destroy(n)
		case ir.Load:
			v, ok := e.findVar(g.Name(n))
			if !ok {
				panic(g.Name(n))
			}

			c.tr.V("rename").Printw("load resolved", "name", g.Name(n), "val", v, "uses", g.Uses(g.Outs(n)[0]))

			g.ReplaceUses(g.Outs(n)[0], v)
			g.Destroy(n)
		default:
			for _, sub := range g.Blocks(n) {
				c.block(sub, e)
			}
		}
	}
}
