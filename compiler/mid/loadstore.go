package mid

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/tp"
)

type (
	threader struct {
		g *ir.Graph

		tr tlog.Span
	}
)

// ThreadLoadStores makes variable mutations inside nested blocks visible
// outside them. A name stored in an if branch becomes an output of both
// branches and of the node, stored back after it. A name stored in a loop
// body becomes a loop-carried slot. Loads and stores themselves are left
// in place for ConvertToSSA to resolve.
//
// Escape markers left by exit normalization are consumed here: a branch
// that never falls through may contribute a name it does not define, a
// placeholder definition is planted at its top.
func ThreadLoadStores(ctx context.Context, g *ir.Graph) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "thread load stores")
	defer tr.Finish("err", &err)

	c := &threader{g: g, tr: tr}

	c.block(g.Root(), nil)

	return nil
}

func (c *threader) block(b ir.Block, prev *env[tp.Type]) *env[tp.Type] {
	g := c.g

	e := newEnv[tp.Type](b, prev)

	code := append([]ir.Node{}, g.Code(b)...)

	for _, n := range code {
		switch g.Kind(n) {
		case ir.Store:
			e.setVar(g.Name(n), g.TypeOf(g.Ins(n)[0]))
		case ir.Escape:
			e.escaped = true
			g.Destroy(n)
		case ir.If:
			e0 := c.block(g.Blocks(n)[0], e)
			e1 := c.block(g.Blocks(n)[1], e)

			c.ifRule(n, e, e0, e1)
		case ir.Loop:
			be := c.block(g.Blocks(n)[0], e)

			c.loopRule(n, e, be)
		case ir.Func:
			c.block(g.Blocks(n)[0], e)
		}
	}

	return e
}

// ifRule threads every name defined in either branch, provided the other
// side can produce some value for it: its own definition, one visible from
// an enclosing scope, or a placeholder if it never falls through. A name
// failing that, or failing type unification, stays private to its branch.
func (c *threader) ifRule(n ir.Node, cur, e0, e1 *env[tp.Type]) {
	g := c.g

	names := append([]string{}, e0.defined()...)
	seen := map[string]bool{}

	for _, name := range names {
		seen[name] = true
	}
	for _, name := range e1.defined() {
		if !seen[name] {
			names = append(names, name)
		}
	}

	b0 := g.Blocks(n)[0]
	b1 := g.Blocks(n)[1]

	last := n

	for _, name := range names {
		t0, ok0 := e0.findVar(name)
		t1, ok1 := e1.findVar(name)

		if !ok0 && !e0.escaped || !ok1 && !e1.escaped {
			c.tr.V("thread").Printw("name stays private", "if", n, "name", name)
			continue
		}

		var t tp.Type

		switch {
		case !ok0:
			t = t1
		case !ok1:
			t = t0
		default:
			var ok bool

			t, ok = tp.Unify(t0, t1)
			if !ok {
				c.tr.V("thread").Printw("type conflict, name stays private", "if", n, "name", name, "types", []tp.Type{t0, t1})
				continue
			}
		}

		if !ok0 {
			c.plant(b0, name, t)
		}
		if !ok1 {
			c.plant(b1, name, t)
		}

		c.branchOut(b0, name, t)
		c.branchOut(b1, name, t)

		o := g.AddOut(n, t)

		st := g.NewStore(name, o)
		g.InsertAfter(st, last)
		last = st

		cur.setVar(name, t)

		c.tr.V("thread").Printw("name threaded", "if", n, "name", name, "type", t, "out", o)
	}
}

// loopRule turns every name that the body redefines and the enclosing
// scope can see into a loop-carried slot: value in before the node, slot
// stored at the body top, current value out at the body end and stored
// back after the node.
func (c *threader) loopRule(n ir.Node, cur, be *env[tp.Type]) {
	g := c.g

	body := g.Blocks(n)[0]

	anchor := ir.NoNode
	if code := g.Code(body); len(code) != 0 {
		anchor = code[0]
	}

	last := n

	for _, name := range be.defined() {
		t0, ok := cur.findVar(name)
		if !ok {
			c.tr.V("thread").Printw("name stays local to the body", "loop", n, "name", name)
			continue
		}

		t, ok := tp.Unify(t0, be.vars[name])
		if !ok {
			c.tr.V("thread").Printw("type conflict, name stays local", "loop", n, "name", name, "types", []tp.Type{t0, be.vars[name]})
			continue
		}

		ld := g.NewLoad(name, t)
		g.InsertBefore(ld, n)
		g.AddIn(n, g.Outs(ld)[0])

		slot := g.AddBlockIn(body, t)

		st := g.NewStore(name, slot)
		if anchor == ir.NoNode {
			g.Append(body, st)
		} else {
			g.InsertBefore(st, anchor)
		}

		c.branchOut(body, name, t)

		o := g.AddOut(n, t)

		so := g.NewStore(name, o)
		g.InsertAfter(so, last)
		last = so

		cur.setVar(name, t)

		c.tr.V("thread").Printw("name loop-carried", "loop", n, "name", name, "type", t, "out", o)
	}
}

// branchOut loads the name at the end of the block and registers the
// loaded value as one more block output.
func (c *threader) branchOut(b ir.Block, name string, t tp.Type) {
	g := c.g

	ld := g.NewLoad(name, t)
	g.Append(b, ld)
	g.RegisterOut(b, g.Outs(ld)[0])
}

// plant defines the name at the top of an escaped block. The value is
// never observed, the block does not fall through.
func (c *threader) plant(b ir.Block, name string, t tp.Type) {
	g := c.g

	u := g.NewUninit(t)
	st := g.NewStore(name, g.Outs(u)[0])

	g.Prepend(b, st)
	g.Prepend(b, u)
}
