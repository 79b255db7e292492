package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/riftlang/rift/compiler/ir"
)

// Format renders a deterministic, indented dump of the IR.
// Value numbers are arena indices and stable for a fixed build sequence.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ir.Graph:
		return formatGraph(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatGraph(ctx context.Context, b []byte, g *ir.Graph, d int) (_ []byte, err error) {
	b = app(b, d, "graph {\n")

	b, err = formatBlock(ctx, b, g, g.Root(), d+1)
	if err != nil {
		return nil, errors.Wrap(err, "root")
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, g *ir.Graph, blk ir.Block, d int) (_ []byte, err error) {
	if ins := g.BlockIns(blk); len(ins) != 0 {
		b = app(b, d, "in (")

		for i, v := range ins {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = hfmt.Appendf(b, "%%%d %v", v, g.TypeOf(v))
		}

		b = append(b, ")\n"...)
	}

	for _, n := range g.Code(blk) {
		b, err = formatNode(ctx, b, g, n, d)
		if err != nil {
			return nil, errors.Wrap(err, "node %v", n)
		}
	}

	if outs := g.BlockOuts(blk); len(outs) != 0 {
		b = app(b, d, "out (")
		b = vals(b, outs)
		b = append(b, ")\n"...)
	}

	return b, nil
}

func formatNode(ctx context.Context, b []byte, g *ir.Graph, n ir.Node, d int) (_ []byte, err error) {
	b = app(b, d, "")

	if outs := g.Outs(n); len(outs) != 0 {
		b = vals(b, outs)
		b = append(b, " = "...)
	}

	switch k := g.Kind(n); k {
	case ir.Const:
		b = hfmt.Appendf(b, "const %v", g.Lit(n))
	case ir.Uninit:
		b = append(b, "uninit"...)
	case ir.Load:
		b = hfmt.Appendf(b, "load %v", g.Name(n))
	case ir.Store:
		b = hfmt.Appendf(b, "store %v, ", g.Name(n))
		b = vals(b, g.Ins(n))
	case ir.Add, ir.Mul, ir.Eq, ir.Less, ir.Not, ir.Ret, ir.Cont:
		b = append(b, k.String()...)

		if len(g.Ins(n)) != 0 {
			b = append(b, ' ')
			b = vals(b, g.Ins(n))
		}
	case ir.Escape:
		b = append(b, "escape"...)
	case ir.If:
		b = append(b, "if "...)
		b = vals(b, g.Ins(n))
		b = types(b, g, g.Outs(n))

		b, err = formatSub(ctx, b, g, g.Blocks(n)[0], d)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		b = append(b, " else"...)

		b, err = formatSub(ctx, b, g, g.Blocks(n)[1], d)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}

		b = append(b, '\n')

		return b, nil
	case ir.Loop:
		b = append(b, "loop "...)
		b = vals(b, g.Ins(n))
		b = types(b, g, g.Outs(n))

		b, err = formatSub(ctx, b, g, g.Blocks(n)[0], d)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		if len(g.Blocks(n)) == 2 {
			b = append(b, " test"...)

			b, err = formatSub(ctx, b, g, g.Blocks(n)[1], d)
			if err != nil {
				return nil, errors.Wrap(err, "test")
			}
		}

		b = append(b, '\n')

		return b, nil
	case ir.Func:
		b = append(b, "func"...)

		b, err = formatSub(ctx, b, g, g.Blocks(n)[0], d)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		b = append(b, '\n')

		return b, nil
	default:
		return nil, errors.New("unsupported kind: %v", k)
	}

	b = types(b, g, g.Outs(n))
	b = append(b, '\n')

	return b, nil
}

func formatSub(ctx context.Context, b []byte, g *ir.Graph, blk ir.Block, d int) (_ []byte, err error) {
	b = append(b, " {\n"...)

	b, err = formatBlock(ctx, b, g, blk, d+1)
	if err != nil {
		return nil, err
	}

	b = app(b, d, "}")

	return b, nil
}

func vals(b []byte, list []ir.Value) []byte {
	for i, v := range list {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%%%d", v)
	}

	return b
}

func types(b []byte, g *ir.Graph, outs []ir.Value) []byte {
	switch len(outs) {
	case 0:
		return b
	case 1:
		return hfmt.Appendf(b, " : %v", g.TypeOf(outs[0]))
	}

	b = append(b, " : ("...)

	for i, v := range outs {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = hfmt.Appendf(b, "%v", g.TypeOf(v))
	}

	b = append(b, ')')

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
