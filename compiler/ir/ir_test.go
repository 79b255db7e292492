package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/tlog/tlwire"

	"github.com/riftlang/rift/compiler/tp"
)

func TestUses(t *testing.T) {
	g := New()

	a := g.AddBlockIn(g.Root(), tp.Int{})
	b := g.AddBlockIn(g.Root(), tp.Int{})

	n := g.NewNode(Add, a, a)
	v := g.AddOut(n, tp.Int{})
	g.Append(g.Root(), n)

	require.Equal(t, []Use{{n, 0}, {n, 1}}, g.Uses(a))

	g.SetIn(n, 1, b)

	assert.Equal(t, []Use{{n, 0}}, g.Uses(a))
	assert.Equal(t, []Use{{n, 1}}, g.Uses(b))

	g.SetBlockOuts(g.Root(), v)

	require.NoError(t, Lint(g))
}

func TestInsertErase(t *testing.T) {
	g := New()

	a := g.AddBlockIn(g.Root(), tp.Int{})
	b := g.AddBlockIn(g.Root(), tp.Int{})
	c := g.AddBlockIn(g.Root(), tp.Int{})

	n := g.NewNode(Ret, a, c)
	g.Append(g.Root(), n)

	g.InsertIn(n, 1, b)

	assert.Equal(t, []Value{a, b, c}, g.Ins(n))
	assert.Equal(t, []Use{{n, 2}}, g.Uses(c))

	g.EraseIn(n, 0)

	assert.Equal(t, []Value{b, c}, g.Ins(n))
	assert.Equal(t, []Use{{n, 0}}, g.Uses(b))
	assert.Equal(t, []Use{{n, 1}}, g.Uses(c))
	assert.Empty(t, g.Uses(a))
}

func TestReplaceUses(t *testing.T) {
	g := New()

	a := g.AddBlockIn(g.Root(), tp.Int{})
	b := g.AddBlockIn(g.Root(), tp.Int{})

	n := g.NewNode(Add, a, a)
	v := g.AddOut(n, tp.Int{})
	g.Append(g.Root(), n)

	g.SetBlockOuts(g.Root(), a)

	g.ReplaceUses(a, b)

	assert.Empty(t, g.Uses(a))
	assert.Equal(t, []Value{b, b}, g.Ins(n))
	assert.Equal(t, []Value{b}, g.BlockOuts(g.Root()))

	g.SetBlockOuts(g.Root(), v)

	require.NoError(t, Lint(g))
}

func TestDestroy(t *testing.T) {
	g := New()

	c := g.NewConst(int64(1), tp.Int{})
	g.Append(g.Root(), c)

	n := g.NewNode(Ret, g.Outs(c)[0])
	g.Append(g.Root(), n)

	require.Panics(t, func() {
		g.Destroy(c)
	})

	g.Destroy(n)

	assert.True(t, g.Dead(n))
	assert.Empty(t, g.Uses(g.Outs(c)[0]))
	assert.Equal(t, []Node{c}, g.Code(g.Root()))

	g.Destroy(c)
}

func TestDestroyRec(t *testing.T) {
	g := New()

	p := g.AddBlockIn(g.Root(), tp.Bool{})

	n := g.NewIf(p)
	g.Append(g.Root(), n)

	c := g.NewConst(int64(1), tp.Int{})
	g.Append(g.Blocks(n)[0], c)
	g.RegisterOut(g.Blocks(n)[0], g.Outs(c)[0])

	g.DestroyRec(n)

	assert.True(t, g.Dead(n))
	assert.True(t, g.Dead(c))
	assert.Empty(t, g.Uses(p))
	assert.Empty(t, g.Code(g.Root()))
}

func TestClone(t *testing.T) {
	g := New()

	a := g.AddBlockIn(g.Root(), tp.Int{})

	n := g.NewIf(g.True())
	g.Append(g.Root(), n)

	src := g.Blocks(n)[0]

	c := g.NewConst(int64(2), tp.Int{})
	g.Append(src, c)

	add := g.NewNode(Add, a, g.Outs(c)[0])
	v := g.AddOut(add, tp.Int{})
	g.Append(src, add)

	g.SetBlockOuts(src, v)

	ren := map[Value]Value{}
	outs := g.CloneBlockBefore(n, src, ren)

	require.Len(t, outs, 1)
	assert.NotEqual(t, v, outs[0])

	add2 := g.Producer(outs[0])
	assert.Equal(t, Add, g.Kind(add2))

	// outer values stay, cloned ones are remapped
	assert.Equal(t, a, g.Ins(add2)[0])
	assert.NotEqual(t, g.Ins(add)[1], g.Ins(add2)[1])
	assert.Equal(t, int64(2), g.Lit(g.Producer(g.Ins(add2)[1])))
}

func TestTrueFalseCached(t *testing.T) {
	g := New()

	tv := g.True()
	assert.Equal(t, tv, g.True())

	// an unused constant may be swept, the cache recovers
	g.Destroy(g.Producer(tv))

	tv2 := g.True()
	assert.NotEqual(t, tv, tv2)
	assert.Equal(t, true, g.Lit(g.Producer(tv2)))
}

func TestLintCatches(t *testing.T) {
	g := New()

	a := g.AddBlockIn(g.Root(), tp.Int{})

	n := g.NewNode(Store, a)
	g.Append(g.Root(), n)

	require.Error(t, Lint(g)) // unnamed store

	g.nodes[n].name = "x"

	require.NoError(t, Lint(g))

	// int condition
	m := g.NewIf(a)
	g.Append(g.Root(), m)

	require.Error(t, Lint(g))
}

func TestUseTlogAppend(t *testing.T) {
	u := Use{User: 5, Idx: 1}

	var e tlwire.Encoder

	exp := e.AppendMap(nil, 2)
	exp = e.AppendKeyInt64(exp, "n", 5)
	exp = e.AppendKeyInt64(exp, "i", 1)

	assert.Equal(t, exp, u.TlogAppend(nil))
}
