package ir

import (
	"tlog.app/go/tlog/tlwire"

	"github.com/riftlang/rift/compiler/tp"
)

type (
	// Value, Node and Block are handles into per-graph arenas.
	// A destroyed handle must not be used again.
	Value int
	Node  int
	Block int

	Kind int

	// Use is a single reference to a value: input Idx of node User.
	// Block outputs are inputs of the block's out pseudo node.
	Use struct {
		User Node
		Idx  int
	}

	val struct {
		typ  tp.Type
		node Node // producer, in/out pseudo nodes included
		uses []Use
		dead bool
	}

	nod struct {
		kind   Kind
		name   string // load, store
		lit    any    // const
		ins    []Value
		outs   []Value
		blocks []Block
		owner  Block
		dead   bool
	}

	blk struct {
		owner Node // NoNode for the root block
		param Node // produces block inputs
		ret   Node // consumes block outputs
		code  []Node
		dead  bool
	}

	Graph struct {
		vals   []val
		nodes  []nod
		blocks []blk

		root Block

		tv, fv Value // cached bool constants
	}
)

const (
	In Kind = iota // block inputs pseudo node
	Out            // block outputs pseudo node
	Const
	Uninit
	Load
	Store
	If
	Loop
	Func
	Ret
	Cont
	Escape
	Add
	Mul
	Eq
	Less
	Not
)

const (
	NoValue Value = -1
	NoNode  Node  = -1
	NoBlock Block = -1
)

var kindNames = []string{"in", "out", "const", "uninit", "load", "store", "if", "loop", "func", "ret", "cont", "escape", "add", "mul", "eq", "less", "not"}

func New() *Graph {
	g := &Graph{tv: NoValue, fv: NoValue}
	g.root = g.newBlock(NoNode)

	return g
}

func (g *Graph) Root() Block { return g.root }

// NewNode creates an unplaced node. Outputs are added with AddOut.
func (g *Graph) NewNode(k Kind, ins ...Value) Node {
	n := Node(len(g.nodes))
	g.nodes = append(g.nodes, nod{kind: k, owner: NoBlock})

	for _, v := range ins {
		g.AddIn(n, v)
	}

	return n
}

func (g *Graph) NewConst(lit any, t tp.Type) Node {
	n := g.NewNode(Const)
	g.nodes[n].lit = lit
	g.AddOut(n, t)

	return n
}

func (g *Graph) NewUninit(t tp.Type) Node {
	n := g.NewNode(Uninit)
	g.AddOut(n, t)

	return n
}

func (g *Graph) NewLoad(name string, t tp.Type) Node {
	n := g.NewNode(Load)
	g.nodes[n].name = name
	g.AddOut(n, t)

	return n
}

func (g *Graph) NewStore(name string, x Value) Node {
	n := g.NewNode(Store, x)
	g.nodes[n].name = name

	return n
}

func (g *Graph) NewIf(cond Value) Node {
	n := g.NewNode(If, cond)
	g.AddBlock(n)
	g.AddBlock(n)

	return n
}

// NewLoop creates a loop with a body block (iteration index input added)
// and a separate continuation test block. InlineLoopConds erases the test
// block and brings the loop to its canonical one-block shape.
func (g *Graph) NewLoop(maxTrip Value) Node {
	n := g.NewNode(Loop, maxTrip)

	body := g.AddBlock(n)
	g.AddBlockIn(body, tp.Int{})

	g.AddBlock(n)

	return n
}

func (g *Graph) NewFunc() Node {
	n := g.NewNode(Func)
	g.AddBlock(n)

	return n
}

func (g *Graph) NewRet(vals ...Value) Node { return g.NewNode(Ret, vals...) }

func (g *Graph) NewCont(vals ...Value) Node { return g.NewNode(Cont, vals...) }

// True and False are cached constants, created at the front of the root
// block on first use. Handle identity against them is meaningful.
// An unused cached constant may be swept between passes, then it is
// created anew.
func (g *Graph) True() Value {
	if g.tv == NoValue || g.vals[g.tv].dead {
		n := g.NewConst(true, tp.Bool{})
		g.Prepend(g.root, n)
		g.tv = g.nodes[n].outs[0]
	}

	return g.tv
}

func (g *Graph) False() Value {
	if g.fv == NoValue || g.vals[g.fv].dead {
		n := g.NewConst(false, tp.Bool{})
		g.Prepend(g.root, n)
		g.fv = g.nodes[n].outs[0]
	}

	return g.fv
}

//
// accessors
//

func (g *Graph) Kind(n Node) Kind { return g.nodes[n].kind }

func (g *Graph) Name(n Node) string { return g.nodes[n].name }

func (g *Graph) Lit(n Node) any { return g.nodes[n].lit }

// Ins returns the live input list. Callers must not append to it.
func (g *Graph) Ins(n Node) []Value { return g.nodes[n].ins }

func (g *Graph) Outs(n Node) []Value { return g.nodes[n].outs }

func (g *Graph) Blocks(n Node) []Block { return g.nodes[n].blocks }

func (g *Graph) Owner(n Node) Block { return g.nodes[n].owner }

func (g *Graph) Code(b Block) []Node { return g.blocks[b].code }

func (g *Graph) BlockIns(b Block) []Value { return g.nodes[g.blocks[b].param].outs }

func (g *Graph) BlockOuts(b Block) []Value { return g.nodes[g.blocks[b].ret].ins }

func (g *Graph) BlockOwner(b Block) Node { return g.blocks[b].owner }

func (g *Graph) TypeOf(v Value) tp.Type { return g.vals[v].typ }

func (g *Graph) Producer(v Value) Node { return g.vals[v].node }

func (g *Graph) Uses(v Value) []Use { return g.vals[v].uses }

func (g *Graph) Dead(n Node) bool { return g.nodes[n].dead }

// NodeCount is the arena size, destroyed nodes included.
func (g *Graph) NodeCount() int { return len(g.nodes) }

//
// node mutation
//

func (g *Graph) AddIn(n Node, v Value) {
	g.addUse(v, Use{User: n, Idx: len(g.nodes[n].ins)})
	g.nodes[n].ins = append(g.nodes[n].ins, v)
}

func (g *Graph) InsertIn(n Node, i int, v Value) {
	ins := g.nodes[n].ins

	for j := i; j < len(ins); j++ {
		g.moveUse(ins[j], Use{User: n, Idx: j}, Use{User: n, Idx: j + 1})
	}

	ins = append(ins, NoValue)
	copy(ins[i+1:], ins[i:])
	ins[i] = v
	g.nodes[n].ins = ins

	g.addUse(v, Use{User: n, Idx: i})
}

func (g *Graph) SetIn(n Node, i int, v Value) {
	g.delUse(g.nodes[n].ins[i], Use{User: n, Idx: i})
	g.nodes[n].ins[i] = v
	g.addUse(v, Use{User: n, Idx: i})
}

func (g *Graph) EraseIn(n Node, i int) {
	ins := g.nodes[n].ins

	g.delUse(ins[i], Use{User: n, Idx: i})

	for j := i + 1; j < len(ins); j++ {
		g.moveUse(ins[j], Use{User: n, Idx: j}, Use{User: n, Idx: j - 1})
	}

	g.nodes[n].ins = append(ins[:i], ins[i+1:]...)
}

func (g *Graph) AddOut(n Node, t tp.Type) Value {
	v := g.newVal(t, n)
	g.nodes[n].outs = append(g.nodes[n].outs, v)

	return v
}

//
// block mutation
//

func (g *Graph) AddBlock(n Node) Block {
	b := g.newBlock(n)
	g.nodes[n].blocks = append(g.nodes[n].blocks, b)

	return b
}

func (g *Graph) AddBlockIn(b Block, t tp.Type) Value {
	return g.AddOut(g.blocks[b].param, t)
}

func (g *Graph) EraseBlockIn(b Block, i int) {
	p := g.blocks[b].param
	outs := g.nodes[p].outs

	v := outs[i]
	if len(g.vals[v].uses) != 0 {
		panic(v)
	}

	g.vals[v].dead = true
	g.nodes[p].outs = append(outs[:i], outs[i+1:]...)
}

func (g *Graph) RegisterOut(b Block, v Value) {
	g.AddIn(g.blocks[b].ret, v)
}

func (g *Graph) SetBlockOut(b Block, i int, v Value) {
	g.SetIn(g.blocks[b].ret, i, v)
}

func (g *Graph) EraseBlockOut(b Block, i int) {
	g.EraseIn(g.blocks[b].ret, i)
}

func (g *Graph) SetBlockOuts(b Block, vals ...Value) {
	for len(g.BlockOuts(b)) != 0 {
		g.EraseBlockOut(b, len(g.BlockOuts(b))-1)
	}

	for _, v := range vals {
		g.RegisterOut(b, v)
	}
}

//
// placement
//

func (g *Graph) Append(b Block, n Node) {
	g.nodes[n].owner = b
	g.blocks[b].code = append(g.blocks[b].code, n)
}

func (g *Graph) Prepend(b Block, n Node) {
	g.nodes[n].owner = b

	code := append(g.blocks[b].code, NoNode)
	copy(code[1:], code)
	code[0] = n
	g.blocks[b].code = code
}

func (g *Graph) InsertBefore(n, at Node) {
	g.insertAt(n, at, 0)
}

func (g *Graph) InsertAfter(n, at Node) {
	g.insertAt(n, at, 1)
}

func (g *Graph) insertAt(n, at Node, d int) {
	b := g.nodes[at].owner
	i := g.index(b, at) + d

	g.nodes[n].owner = b

	code := append(g.blocks[b].code, NoNode)
	copy(code[i+1:], code[i:])
	code[i] = n
	g.blocks[b].code = code
}

// Move removes the node from its block and appends it to another.
// Uses are untouched.
func (g *Graph) Move(n Node, to Block) {
	g.unlink(n)
	g.Append(to, n)
}

//
// destruction
//

// ReplaceUses rewrites every use of old, block outputs included.
func (g *Graph) ReplaceUses(old, new Value) {
	uses := append([]Use{}, g.vals[old].uses...)

	for _, u := range uses {
		g.SetIn(u.User, u.Idx, new)
	}
}

// Destroy panics if any output is still used.
func (g *Graph) Destroy(n Node) {
	for _, v := range g.nodes[n].outs {
		if len(g.vals[v].uses) != 0 {
			panic(n)
		}
	}

	if len(g.nodes[n].blocks) != 0 {
		panic(n)
	}

	for i := range g.nodes[n].ins {
		g.delUse(g.nodes[n].ins[i], Use{User: n, Idx: i})
	}

	g.nodes[n].ins = nil

	for _, v := range g.nodes[n].outs {
		g.vals[v].dead = true
	}

	g.unlink(n)
	g.nodes[n].dead = true
}

// DestroyRec destroys owned blocks' contents first, in reverse order.
func (g *Graph) DestroyRec(n Node) {
	for _, b := range g.nodes[n].blocks {
		g.destroyBlock(b)
	}

	g.nodes[n].blocks = nil

	g.Destroy(n)
}

// EraseBlock destroys block i of the node and removes it.
func (g *Graph) EraseBlock(n Node, i int) {
	b := g.nodes[n].blocks[i]

	g.destroyBlock(b)

	g.nodes[n].blocks = append(g.nodes[n].blocks[:i], g.nodes[n].blocks[i+1:]...)
}

func (g *Graph) destroyBlock(b Block) {
	g.SetBlockOuts(b)

	code := g.blocks[b].code

	for i := len(code) - 1; i >= 0; i-- {
		g.DestroyRec(code[i])
	}

	for _, v := range g.nodes[g.blocks[b].param].outs {
		if len(g.vals[v].uses) != 0 {
			panic(v)
		}

		g.vals[v].dead = true
	}

	g.nodes[g.blocks[b].param].dead = true
	g.nodes[g.blocks[b].ret].dead = true
	g.blocks[b].dead = true
}

//
// clone
//

// CloneBlockBefore clones src's operations before at, remapping values
// through ren, and returns the remapped output list of src.
func (g *Graph) CloneBlockBefore(at Node, src Block, ren map[Value]Value) []Value {
	return g.cloneBlockContents(src, ren, func(n Node) { g.InsertBefore(n, at) })
}

// CloneBlockAppend clones src's operations at the end of dst.
func (g *Graph) CloneBlockAppend(dst, src Block, ren map[Value]Value) []Value {
	return g.cloneBlockContents(src, ren, func(n Node) { g.Append(dst, n) })
}

func (g *Graph) cloneBlockContents(src Block, ren map[Value]Value, place func(Node)) []Value {
	for _, n := range g.blocks[src].code {
		place(g.cloneNode(n, ren))
	}

	outs := g.BlockOuts(src)
	res := make([]Value, len(outs))

	for i, v := range outs {
		res[i] = g.renamed(v, ren)
	}

	return res
}

func (g *Graph) cloneNode(n Node, ren map[Value]Value) Node {
	c := g.NewNode(g.nodes[n].kind)
	g.nodes[c].name = g.nodes[n].name
	g.nodes[c].lit = g.nodes[n].lit

	for _, v := range g.nodes[n].ins {
		g.AddIn(c, g.renamed(v, ren))
	}

	for _, v := range g.nodes[n].outs {
		ren[v] = g.AddOut(c, g.vals[v].typ)
	}

	for _, b := range g.nodes[n].blocks {
		cb := g.AddBlock(c)

		for _, v := range g.BlockIns(b) {
			ren[v] = g.AddBlockIn(cb, g.vals[v].typ)
		}

		for _, m := range g.blocks[b].code {
			g.Append(cb, g.cloneNode(m, ren))
		}

		for _, v := range g.BlockOuts(b) {
			g.RegisterOut(cb, g.renamed(v, ren))
		}
	}

	return c
}

func (g *Graph) renamed(v Value, ren map[Value]Value) Value {
	if r, ok := ren[v]; ok {
		return r
	}

	return v
}

//
// internals
//

func (g *Graph) newVal(t tp.Type, n Node) Value {
	v := Value(len(g.vals))
	g.vals = append(g.vals, val{typ: t, node: n})

	return v
}

func (g *Graph) newBlock(owner Node) Block {
	b := Block(len(g.blocks))
	g.blocks = append(g.blocks, blk{owner: owner, param: NoNode, ret: NoNode})

	param := g.NewNode(In)
	ret := g.NewNode(Out)

	g.nodes[param].owner = b
	g.nodes[ret].owner = b

	g.blocks[b].param = param
	g.blocks[b].ret = ret

	return b
}

func (g *Graph) index(b Block, n Node) int {
	for i, m := range g.blocks[b].code {
		if m == n {
			return i
		}
	}

	panic(n)
}

func (g *Graph) unlink(n Node) {
	b := g.nodes[n].owner
	if b == NoBlock {
		return
	}

	i := g.index(b, n)
	g.blocks[b].code = append(g.blocks[b].code[:i], g.blocks[b].code[i+1:]...)
	g.nodes[n].owner = NoBlock
}

func (g *Graph) addUse(v Value, u Use) {
	if v == NoValue {
		return
	}

	g.vals[v].uses = append(g.vals[v].uses, u)
}

func (g *Graph) delUse(v Value, u Use) {
	if v == NoValue {
		return
	}

	uses := g.vals[v].uses

	for i, x := range uses {
		if x == u {
			g.vals[v].uses = append(uses[:i], uses[i+1:]...)
			return
		}
	}

	panic(u)
}

func (g *Graph) moveUse(v Value, from, to Use) {
	if v == NoValue {
		return
	}

	for i, x := range g.vals[v].uses {
		if x == from {
			g.vals[v].uses[i] = to
			return
		}
	}

	panic(from)
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "kind?"
}

func (u Use) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt64(b, "n", int64(u.User))
	b = e.AppendKeyInt64(b, "i", int64(u.Idx))

	return b
}
