// Package dce removes operations whose results are never observed.
//
// Liveness is tracked per node. Side-effecting operations and producers of
// the root block outputs seed the worklist, inputs of live nodes and
// outputs of their blocks extend it. Marking a node inside a nested block
// marks the structural node holding it too, so a conditional survives as
// long as anything inside does. Input and output slots are never pruned,
// slot arity is part of the node shape.
package dce

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/set"
)

type (
	pass struct {
		g *ir.Graph

		live set.Bitmap
		q    []ir.Node

		tr tlog.Span
	}
)

func Run(ctx context.Context, g *ir.Graph) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "dce")
	defer tr.Finish("err", &err)

	p := &pass{g: g, live: set.MakeBitmap(g.NodeCount()), tr: tr}

	p.seed(g.Root())

	for _, v := range g.BlockOuts(g.Root()) {
		p.mark(g.Producer(v))
	}

	for len(p.q) != 0 {
		n := p.q[len(p.q)-1]
		p.q = p.q[:len(p.q)-1]

		for _, v := range g.Ins(n) {
			p.mark(g.Producer(v))
		}

		for _, b := range g.Blocks(n) {
			for _, v := range g.BlockOuts(b) {
				p.mark(g.Producer(v))
			}
		}
	}

	tr.V("dce").Printw("live set", "count", p.live.Size(), "live", p.live)

	removed := p.sweep(g.Root())

	tr.Printw("unused code removed", "nodes", removed)

	return nil
}

func (p *pass) seed(b ir.Block) {
	g := p.g

	for _, n := range g.Code(b) {
		switch g.Kind(n) {
		case ir.Store, ir.Ret, ir.Cont, ir.Escape:
			p.mark(n)
		}

		for _, sub := range g.Blocks(n) {
			p.seed(sub)
		}
	}
}

// mark queues the node and makes sure the chain of structural nodes
// holding it is live too. Block input producers are the in pseudo nodes,
// marking those pulls in the owner the same way.
func (p *pass) mark(n ir.Node) {
	if p.live.IsSet(int(n)) {
		return
	}

	p.live.Set(int(n))
	p.q = append(p.q, n)

	if own := p.g.BlockOwner(p.g.Owner(n)); own != ir.NoNode {
		p.mark(own)
	}
}

func (p *pass) sweep(b ir.Block) (removed int) {
	g := p.g

	code := append([]ir.Node{}, g.Code(b)...)

	for i := len(code) - 1; i >= 0; i-- {
		n := code[i]

		if p.live.IsSet(int(n)) {
			for _, sub := range g.Blocks(n) {
				removed += p.sweep(sub)
			}

			continue
		}

		p.tr.V("dce").Printw("remove", "node", n, "kind", g.Kind(n))

		g.DestroyRec(n)
		removed++
	}

	return removed
}
