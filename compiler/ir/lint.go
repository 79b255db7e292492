package ir

import (
	"tlog.app/go/errors"

	"github.com/riftlang/rift/compiler/tp"
)

// Lint checks structural invariants: arities of control flow nodes,
// input/output list consistency and use list integrity.
// The passes assume these hold and panic where Lint would report.
func Lint(g *Graph) error {
	return g.lintBlock(g.root)
}

func (g *Graph) lintBlock(b Block) (err error) {
	if g.blocks[b].dead {
		return errors.New("dead block")
	}

	for _, v := range g.BlockOuts(b) {
		if err = g.lintVal(v); err != nil {
			return errors.Wrap(err, "block %v output", b)
		}
	}

	for _, n := range g.blocks[b].code {
		if err = g.lintNode(b, n); err != nil {
			return errors.Wrap(err, "block %v", b)
		}

		for _, sub := range g.nodes[n].blocks {
			if g.BlockOwner(sub) != n {
				return errors.New("node %v: block %v owner mismatch", n, sub)
			}

			if err = g.lintBlock(sub); err != nil {
				return err
			}
		}
	}

	return nil
}

func (g *Graph) lintNode(b Block, n Node) (err error) {
	if g.nodes[n].dead {
		return errors.New("dead node %v in code", n)
	}

	if g.nodes[n].owner != b {
		return errors.New("node %v: owner mismatch", n)
	}

	for i, v := range g.nodes[n].ins {
		if err = g.lintVal(v); err != nil {
			return errors.Wrap(err, "node %v (%v) input %d", n, g.nodes[n].kind, i)
		}

		if !g.hasUse(v, Use{User: n, Idx: i}) {
			return errors.New("node %v (%v) input %d: use not tracked", n, g.nodes[n].kind, i)
		}
	}

	switch k := g.nodes[n].kind; k {
	case Const:
		err = g.lintArity(n, 0, 1, 0)
	case Uninit:
		err = g.lintArity(n, 0, 1, 0)
	case Load:
		err = g.lintArity(n, 0, 1, 0)

		if err == nil && g.nodes[n].name == "" {
			err = errors.New("unnamed load")
		}
	case Store:
		err = g.lintArity(n, 1, 0, 0)

		if err == nil && g.nodes[n].name == "" {
			err = errors.New("unnamed store")
		}
	case If:
		err = g.lintIf(n)
	case Loop:
		err = g.lintLoop(n)
	case Func:
		err = g.lintArity(n, 0, 0, 1)
	case Ret, Cont, Escape:
		if len(g.nodes[n].blocks) != 0 {
			err = errors.New("unexpected blocks")
		}
	case Add, Mul, Eq, Less:
		err = g.lintArity(n, 2, 1, 0)
	case Not:
		err = g.lintArity(n, 1, 1, 0)
	case In, Out:
		err = errors.New("pseudo node in code")
	default:
		err = errors.New("unknown kind %d", k)
	}

	if err != nil {
		return errors.Wrap(err, "node %v (%v)", n, g.nodes[n].kind)
	}

	return nil
}

func (g *Graph) lintIf(n Node) error {
	if err := g.lintArity(n, 1, -1, 2); err != nil {
		return err
	}

	if _, ok := g.TypeOf(g.nodes[n].ins[0]).(tp.Bool); !ok {
		return errors.New("condition is %v, not bool", g.TypeOf(g.nodes[n].ins[0]))
	}

	then, els := g.nodes[n].blocks[0], g.nodes[n].blocks[1]

	if len(g.BlockIns(then)) != 0 || len(g.BlockIns(els)) != 0 {
		return errors.New("branch with inputs")
	}

	if len(g.BlockOuts(then)) != len(g.nodes[n].outs) || len(g.BlockOuts(els)) != len(g.nodes[n].outs) {
		return errors.New("branch output arity: then %d, else %d, node %d",
			len(g.BlockOuts(then)), len(g.BlockOuts(els)), len(g.nodes[n].outs))
	}

	return nil
}

func (g *Graph) lintLoop(n Node) error {
	switch len(g.nodes[n].blocks) {
	case 2: // body + continuation test, before inlining
		test := g.nodes[n].blocks[1]

		if len(g.BlockOuts(test)) != 1 {
			return errors.New("test block outputs %d", len(g.BlockOuts(test)))
		}

		if _, ok := g.TypeOf(g.BlockOuts(test)[0]).(tp.Bool); !ok {
			return errors.New("test output is %v, not bool", g.TypeOf(g.BlockOuts(test)[0]))
		}

		if len(g.nodes[n].outs) != 0 {
			return errors.New("outputs before normalization")
		}

		return nil
	case 1:
	default:
		return errors.New("blocks %d", len(g.nodes[n].blocks))
	}

	body := g.nodes[n].blocks[0]

	bins := len(g.BlockIns(body))
	bouts := len(g.BlockOuts(body))

	if bins < 1 {
		return errors.New("body without iteration input")
	}

	if bouts == 0 && len(g.nodes[n].outs) == 0 {
		// inlined but not yet normalized: condition still carried by a trailing cont
		return nil
	}

	if bouts != bins {
		return errors.New("body arity: %d inputs, %d outputs", bins, bouts)
	}

	if len(g.nodes[n].outs) != bouts-1 {
		return errors.New("node outputs %d, body outputs %d", len(g.nodes[n].outs), bouts)
	}

	if len(g.nodes[n].ins) != len(g.nodes[n].outs)+2 {
		return errors.New("node inputs %d, outputs %d", len(g.nodes[n].ins), len(g.nodes[n].outs))
	}

	if _, ok := g.TypeOf(g.nodes[n].ins[1]).(tp.Bool); !ok {
		return errors.New("initial condition is %v, not bool", g.TypeOf(g.nodes[n].ins[1]))
	}

	if _, ok := g.TypeOf(g.BlockOuts(body)[0]).(tp.Bool); !ok {
		return errors.New("next condition is %v, not bool", g.TypeOf(g.BlockOuts(body)[0]))
	}

	return nil
}

func (g *Graph) lintArity(n Node, ins, outs, blocks int) error {
	if ins >= 0 && len(g.nodes[n].ins) != ins {
		return errors.New("inputs %d, want %d", len(g.nodes[n].ins), ins)
	}

	if outs >= 0 && len(g.nodes[n].outs) != outs {
		return errors.New("outputs %d, want %d", len(g.nodes[n].outs), outs)
	}

	if len(g.nodes[n].blocks) != blocks {
		return errors.New("blocks %d, want %d", len(g.nodes[n].blocks), blocks)
	}

	return nil
}

func (g *Graph) lintVal(v Value) error {
	if v == NoValue {
		return errors.New("no value")
	}

	if g.vals[v].dead {
		return errors.New("dead value %v", v)
	}

	return nil
}

func (g *Graph) hasUse(v Value, u Use) bool {
	for _, x := range g.vals[v].uses {
		if x == u {
			return true
		}
	}

	return false
}
