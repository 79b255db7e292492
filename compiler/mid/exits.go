package mid

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/tp"
)

type (
	exiter struct {
		g    *ir.Graph
		kind ir.Kind

		// target is the block exits of the active kind land at.
		// NoBlock outside any destination.
		target ir.Block

		units map[tp.Type]ir.Value

		tv, fv ir.Value

		tr tlog.Span
	}

	// exitPair describes whether control has left a region and with what
	// payload. has is compared by handle against the cached true and false
	// constants. true means the region always exits, false never,
	// any other value is only known at runtime.
	exitPair struct {
		has  ir.Value
		vals []ir.Value
	}

	exitStatus int
)

const (
	wont exitStatus = iota
	might
	will
)

// NormalizeExits removes exit operations of the given kind (ir.Ret or
// ir.Cont) from the graph, replacing control flow that jumps out of nested
// blocks with conditions threaded through block outputs. After the pass no
// exit op of that kind remains: returned or continued-with values arrive at
// the destination block as its ordinary outputs.
//
// Ret exits land at the root block. Cont exits land at the innermost
// enclosing loop body, where the first value becomes the body's
// continue-iterating output.
func NormalizeExits(ctx context.Context, g *ir.Graph, kind ir.Kind) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "normalize exits", "kind", kind)
	defer tr.Finish("err", &err)

	if kind != ir.Ret && kind != ir.Cont {
		return errors.New("unsupported exit kind: %v", kind)
	}

	e := &exiter{
		g:      g,
		kind:   kind,
		target: ir.NoBlock,
		units:  map[tp.Type]ir.Value{},
		tv:     g.True(),
		fv:     g.False(),
		tr:     tr,
	}

	if kind == ir.Ret {
		e.target = g.Root()
	}

	p := e.block(g.Root())

	if e.status(p) != wont {
		panic(kind)
	}

	return nil
}

// block scans the code bottom-up tracking whether control has exited.
// It returns the block's final exit pair, already reset to wont if the
// block is the destination of the active kind.
func (e *exiter) block(b ir.Block) exitPair {
	g := e.g

	p := exitPair{has: e.fv}

	code := append([]ir.Node{}, g.Code(b)...)

	for i := 0; i < len(code); i++ {
		n := code[i]

		switch g.Kind(n) {
		case e.kind:
			p = exitPair{has: e.tv, vals: append([]ir.Value{}, g.Ins(n)...)}
			g.Destroy(n)
		case ir.If:
			p = e.ifNode(n)
		case ir.Loop:
			p = e.loop(n)
		case ir.Func:
			e.fn(n)
			continue
		default:
			continue
		}

		if st := e.status(p); st == will {
			e.deleteAfter(code[i+1:])
			break
		} else if st == might && i+1 < len(code) {
			p = e.guard(b, code[i+1:], p)
			break
		}
	}

	st := e.status(p)

	e.tr.V("exits").Printw("block", "block", b, "status", st, "vals", p.vals)

	if st == will {
		g.Append(b, g.NewNode(ir.Escape))
	}

	if b == e.target && st != wont {
		g.SetBlockOuts(b, p.vals...)

		p = exitPair{has: e.fv}
	}

	return p
}

// guard wraps the not-yet-scanned remainder of the block into a fresh
// conditional on the exit flag. The exit branch replays the pending exit,
// the other branch is scanned as usual. The block's outputs move to the
// new node so both branches provide them.
func (e *exiter) guard(b ir.Block, rest []ir.Node, p exitPair) exitPair {
	g := e.g

	n := g.NewIf(p.has)
	g.InsertBefore(n, rest[0])

	exit := g.Blocks(n)[0]
	cont := g.Blocks(n)[1]

	for _, m := range rest {
		g.Move(m, cont)
	}

	outs := append([]ir.Value{}, g.BlockOuts(b)...)
	mapped := make([]ir.Value, len(outs))

	for i, v := range outs {
		g.RegisterOut(exit, e.unit(g.TypeOf(v)))
		g.RegisterOut(cont, v)

		mapped[i] = g.AddOut(n, g.TypeOf(v))
	}

	g.SetBlockOuts(b, mapped...)

	g.Append(exit, g.NewNode(e.kind, p.vals...))

	e.tr.V("exits").Printw("guard", "block", b, "cond", p.has, "if", n)

	return e.ifNode(n)
}

// ifNode merges the exit pairs of both branches. Payload values become
// branch and node outputs, placeholder-filled on the side that does not
// exit. The combined exit flag is static true when both branches exit.
func (e *exiter) ifNode(n ir.Node) exitPair {
	g := e.g

	b0 := g.Blocks(n)[0]
	b1 := g.Blocks(n)[1]

	p0 := e.block(b0)
	p1 := e.block(b1)

	s0 := e.status(p0)
	s1 := e.status(p1)

	if s0 == wont && s1 == wont {
		return exitPair{has: e.fv}
	}

	if s0 == wont {
		p0.vals = e.placeholders(p1.vals)
	}
	if s1 == wont {
		p1.vals = e.placeholders(p0.vals)
	}

	if len(p0.vals) != len(p1.vals) {
		panic(n)
	}

	p := exitPair{vals: make([]ir.Value, len(p0.vals))}

	for i := range p0.vals {
		t, ok := tp.Unify(g.TypeOf(p0.vals[i]), g.TypeOf(p1.vals[i]))
		if !ok {
			panic(n)
		}

		g.RegisterOut(b0, p0.vals[i])
		g.RegisterOut(b1, p1.vals[i])

		p.vals[i] = g.AddOut(n, t)
	}

	if s0 == will && s1 == will {
		p.has = e.tv
	} else {
		g.RegisterOut(b0, p0.has)
		g.RegisterOut(b1, p1.has)

		p.has = g.AddOut(n, tp.Bool{})
	}

	return p
}

// loop processes the body and, unless the body never exits, stops
// iteration when the exit flag comes up: the continue output is forced
// false and the flag with the payload travel through loop-carried slots.
// From outside the loop the exit is never certain since the body may not
// run at all.
func (e *exiter) loop(n ir.Node) exitPair {
	g := e.g

	body := g.Blocks(n)[0]

	saved := e.target
	if e.kind == ir.Cont {
		e.target = body
	}

	p := e.block(body)

	e.target = saved

	if e.status(p) == wont {
		return exitPair{has: e.fv}
	}

	// stop iterating once exited

	stop := g.NewIf(p.has)
	g.Append(body, stop)

	tb := g.Blocks(stop)[0]
	eb := g.Blocks(stop)[1]

	g.RegisterOut(tb, e.fv)
	g.RegisterOut(eb, g.BlockOuts(body)[0])

	cond := g.AddOut(stop, tp.Bool{})
	g.SetBlockOut(body, 0, cond)

	// carry the flag and the payload out of the loop

	q := exitPair{}

	g.AddIn(n, e.fv)
	g.AddBlockIn(body, tp.Bool{})
	g.RegisterOut(body, p.has)
	q.has = g.AddOut(n, tp.Bool{})

	q.vals = make([]ir.Value, len(p.vals))

	for i, v := range p.vals {
		t := g.TypeOf(v)

		g.AddIn(n, e.unit(t))
		g.AddBlockIn(body, t)
		g.RegisterOut(body, v)

		q.vals[i] = g.AddOut(n, t)
	}

	e.tr.V("exits").Printw("loop exit carried", "loop", n, "has", q.has, "vals", q.vals)

	return q
}

// fn processes a nested function. Its rets land at its own block,
// its conts bind to loops inside it, never to an enclosing one.
func (e *exiter) fn(n ir.Node) {
	g := e.g

	b := g.Blocks(n)[0]

	saved := e.target

	if e.kind == ir.Ret {
		e.target = b
	} else {
		e.target = ir.NoBlock
	}

	p := e.block(b)

	e.target = saved

	if e.status(p) != wont {
		panic(n)
	}
}

// deleteAfter removes unreachable operations. Uses of their outputs,
// possible since nested blocks were processed before the exit, are
// redirected to placeholders first.
func (e *exiter) deleteAfter(rest []ir.Node) {
	g := e.g

	for i := len(rest) - 1; i >= 0; i-- {
		n := rest[i]

		for _, v := range g.Outs(n) {
			if len(g.Uses(v)) != 0 {
				g.ReplaceUses(v, e.unit(g.TypeOf(v)))
			}
		}

		g.DestroyRec(n)
	}
}

func (e *exiter) placeholders(ref []ir.Value) []ir.Value {
	res := make([]ir.Value, len(ref))

	for i, v := range ref {
		res[i] = e.unit(e.g.TypeOf(v))
	}

	return res
}

// unit returns a cached placeholder value of the type, an uninit op
// hoisted to the front of the root block so it dominates every use.
func (e *exiter) unit(t tp.Type) ir.Value {
	if v, ok := e.units[t]; ok {
		return v
	}

	n := e.g.NewUninit(t)
	e.g.Prepend(e.g.Root(), n)

	v := e.g.Outs(n)[0]
	e.units[t] = v

	return v
}

func (e *exiter) status(p exitPair) exitStatus {
	switch p.has {
	case e.tv:
		return will
	case e.fv:
		return wont
	}

	return might
}

func (s exitStatus) String() string {
	switch s {
	case wont:
		return "wont"
	case might:
		return "might"
	case will:
		return "will"
	}

	return "status?"
}
