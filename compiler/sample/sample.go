// Package sample builds small source graphs exercising the lowering
// passes: early returns, breaks and continues, branch-local and
// loop-carried variables. Tests and the command line tool feed them
// through the pipeline instead of a parsed source file.
package sample

import (
	"tlog.app/go/errors"

	"github.com/riftlang/rift/compiler/ir"
	"github.com/riftlang/rift/compiler/tp"
)

type (
	bld struct {
		g   *ir.Graph
		blk ir.Block

		test ir.Block // innermost loop condition, for continue
	}
)

var samples = []struct {
	name  string
	build func(c *bld)
}{
	{"straight", straight},
	{"condret", condret},
	{"retelse", retelse},
	{"maybe", maybe},
	{"counter", counter},
	{"loopbreak", loopbreak},
	{"loopcont", loopcont},
	{"nestedloops", nestedloops},
	{"func", fn},
}

func Names() []string {
	r := make([]string, len(samples))

	for i, s := range samples {
		r[i] = s.name
	}

	return r
}

func Build(name string) (*ir.Graph, error) {
	for _, s := range samples {
		if s.name != name {
			continue
		}

		g := ir.New()
		s.build(&bld{g: g, blk: g.Root()})

		return g, nil
	}

	return nil, errors.New("unknown sample: %v", name)
}

// a + b squared, unreachable code after the return
//
//	func(a, b int) int {
//		c := a + b
//		return c * c
//		d := 2
//	}
func straight(c *bld) {
	c.param("a", tp.Int{})
	c.param("b", tp.Int{})

	c.store("c", c.op(ir.Add, c.load("a", tp.Int{}), c.load("b", tp.Int{})))
	c.ret(c.op(ir.Mul, c.load("c", tp.Int{}), c.load("c", tp.Int{})))

	c.store("d", c.cst(2))
}

// early return
//
//	func(a, b int) int {
//		if a < b {
//			return b
//		}
//		return a
//	}
func condret(c *bld) {
	c.param("a", tp.Int{})
	c.param("b", tp.Int{})

	c.iff(c.op(ir.Less, c.load("a", tp.Int{}), c.load("b", tp.Int{})), func() {
		c.ret(c.load("b", tp.Int{}))
	}, nil)

	c.ret(c.load("a", tp.Int{}))
}

// return in one branch, variable born in the other
//
//	func(p bool, a int) int {
//		if p {
//			return a
//		} else {
//			x = 2
//		}
//		return x * a
//	}
func retelse(c *bld) {
	c.param("p", tp.Bool{})
	c.param("a", tp.Int{})

	c.iff(c.load("p", tp.Bool{}), func() {
		c.ret(c.load("a", tp.Int{}))
	}, func() {
		c.store("x", c.cst(2))
	})

	c.ret(c.op(ir.Mul, c.load("x", tp.Int{}), c.load("a", tp.Int{})))
}

// variable maybe updated in a branch
//
//	func(a int, p bool) int {
//		x := a
//		if p {
//			x = x * x
//		}
//		return x
//	}
func maybe(c *bld) {
	c.param("a", tp.Int{})
	c.param("p", tp.Bool{})

	c.store("x", c.load("a", tp.Int{}))

	c.iff(c.load("p", tp.Bool{}), func() {
		c.store("x", c.op(ir.Mul, c.load("x", tp.Int{}), c.load("x", tp.Int{})))
	}, nil)

	c.ret(c.load("x", tp.Int{}))
}

// loop-carried counter
//
//	func(n int) int {
//		i := 0
//		for i < n {
//			i = i + 1
//		}
//		return i
//	}
func counter(c *bld) {
	c.param("n", tp.Int{})

	c.store("i", c.cst(0))

	c.loop(func() {
		c.out(c.op(ir.Less, c.load("i", tp.Int{}), c.load("n", tp.Int{})))
	}, func() {
		c.store("i", c.op(ir.Add, c.load("i", tp.Int{}), c.cst(1)))
	})

	c.ret(c.load("i", tp.Int{}))
}

// break out of a loop
//
//	func(n, k int) int {
//		i := 0
//		for i < n {
//			if i*i == k {
//				break
//			}
//			i = i + 1
//		}
//		return i
//	}
func loopbreak(c *bld) {
	c.param("n", tp.Int{})
	c.param("k", tp.Int{})

	c.store("i", c.cst(0))

	c.loop(func() {
		c.out(c.op(ir.Less, c.load("i", tp.Int{}), c.load("n", tp.Int{})))
	}, func() {
		c.iff(c.op(ir.Eq, c.op(ir.Mul, c.load("i", tp.Int{}), c.load("i", tp.Int{})), c.load("k", tp.Int{})), func() {
			c.brk()
		}, nil)

		c.store("i", c.op(ir.Add, c.load("i", tp.Int{}), c.cst(1)))
	})

	c.ret(c.load("i", tp.Int{}))
}

// skip an iteration
//
//	func(n int) int {
//		i := 0
//		s := 0
//		for i < n {
//			i = i + 1
//			if i == 2 {
//				continue
//			}
//			s = s + i
//		}
//		return s
//	}
func loopcont(c *bld) {
	c.param("n", tp.Int{})

	c.store("i", c.cst(0))
	c.store("s", c.cst(0))

	c.loop(func() {
		c.out(c.op(ir.Less, c.load("i", tp.Int{}), c.load("n", tp.Int{})))
	}, func() {
		c.store("i", c.op(ir.Add, c.load("i", tp.Int{}), c.cst(1)))

		c.iff(c.op(ir.Eq, c.load("i", tp.Int{}), c.cst(2)), func() {
			c.cont()
		}, nil)

		c.store("s", c.op(ir.Add, c.load("s", tp.Int{}), c.load("i", tp.Int{})))
	})

	c.ret(c.load("s", tp.Int{}))
}

// inner break, return from the middle of the outer body
//
//	func(n int) int {
//		s := 0
//		i := 0
//		for i < n {
//			j := 0
//			for j < i {
//				if j == 3 {
//					break
//				}
//				s = s + j
//				j = j + 1
//			}
//			if 100 < s {
//				return s
//			}
//			i = i + 1
//		}
//		return s
//	}
func nestedloops(c *bld) {
	c.param("n", tp.Int{})

	c.store("s", c.cst(0))
	c.store("i", c.cst(0))

	c.loop(func() {
		c.out(c.op(ir.Less, c.load("i", tp.Int{}), c.load("n", tp.Int{})))
	}, func() {
		c.store("j", c.cst(0))

		c.loop(func() {
			c.out(c.op(ir.Less, c.load("j", tp.Int{}), c.load("i", tp.Int{})))
		}, func() {
			c.iff(c.op(ir.Eq, c.load("j", tp.Int{}), c.cst(3)), func() {
				c.brk()
			}, nil)

			c.store("s", c.op(ir.Add, c.load("s", tp.Int{}), c.load("j", tp.Int{})))
			c.store("j", c.op(ir.Add, c.load("j", tp.Int{}), c.cst(1)))
		})

		c.iff(c.op(ir.Less, c.cst(100), c.load("s", tp.Int{})), func() {
			c.ret(c.load("s", tp.Int{}))
		}, nil)

		c.store("i", c.op(ir.Add, c.load("i", tp.Int{}), c.cst(1)))
	})

	c.ret(c.load("s", tp.Int{}))
}

// nested function capturing an outer value
//
//	func(a int) int {
//		_ = func() int {
//			return a + 1
//		}
//		return a
//	}
func fn(c *bld) {
	c.param("a", tp.Int{})

	n := c.g.NewFunc()
	c.add(n)

	saved := c.blk
	c.blk = c.g.Blocks(n)[0]

	c.ret(c.op(ir.Add, c.load("a", tp.Int{}), c.cst(1)))

	c.blk = saved

	c.ret(c.load("a", tp.Int{}))
}

//
// builder
//

func (c *bld) add(n ir.Node) ir.Node {
	c.g.Append(c.blk, n)

	return n
}

func (c *bld) param(name string, t tp.Type) {
	v := c.g.AddBlockIn(c.g.Root(), t)
	c.add(c.g.NewStore(name, v))
}

func (c *bld) op(k ir.Kind, ins ...ir.Value) ir.Value {
	n := c.g.NewNode(k, ins...)

	t := tp.Type(tp.Int{})

	switch k {
	case ir.Eq, ir.Less, ir.Not:
		t = tp.Bool{}
	}

	v := c.g.AddOut(n, t)
	c.add(n)

	return v
}

func (c *bld) cst(x int64) ir.Value {
	n := c.g.NewConst(x, tp.Int{})
	c.add(n)

	return c.g.Outs(n)[0]
}

func (c *bld) load(name string, t tp.Type) ir.Value {
	n := c.g.NewLoad(name, t)
	c.add(n)

	return c.g.Outs(n)[0]
}

func (c *bld) store(name string, v ir.Value) {
	c.add(c.g.NewStore(name, v))
}

func (c *bld) ret(vals ...ir.Value) {
	c.add(c.g.NewRet(vals...))
}

// brk leaves the loop: stop iterating, unconditionally.
func (c *bld) brk() {
	c.add(c.g.NewCont(c.g.False()))
}

// cont jumps to the next iteration. The loop condition is reevaluated at
// the jump site, the builder clones the test block code for that.
func (c *bld) cont() {
	outs := c.g.CloneBlockAppend(c.blk, c.test, map[ir.Value]ir.Value{})
	c.add(c.g.NewCont(outs[0]))
}

func (c *bld) iff(cond ir.Value, then, els func()) ir.Node {
	n := c.g.NewIf(cond)
	c.add(n)

	saved := c.blk

	c.blk = c.g.Blocks(n)[0]
	then()

	if els != nil {
		c.blk = c.g.Blocks(n)[1]
		els()
	}

	c.blk = saved

	return n
}

func (c *bld) loop(test, body func()) ir.Node {
	n := c.g.NewLoop(c.cst(1 << 30))
	c.add(n)

	saved := c.blk
	savedTest := c.test

	c.test = c.g.Blocks(n)[1]

	c.blk = c.test
	test()

	c.blk = c.g.Blocks(n)[0]
	body()

	c.test = savedTest
	c.blk = saved

	return n
}

func (c *bld) out(vs ...ir.Value) {
	c.g.SetBlockOuts(c.blk, vs...)
}
