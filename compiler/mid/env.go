package mid

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/riftlang/rift/compiler/ir"
)

type (
	// env is one scope frame: name bindings of a single block.
	// Lookup walks outward through prev. The threader binds types,
	// the renamer binds values.
	env[T any] struct {
		block ir.Block
		prev  *env[T]

		names []string // insertion order
		vars  map[string]T

		escaped bool

		from loc.PC
	}
)

func newEnv[T any](b ir.Block, prev *env[T]) *env[T] {
	e := &env[T]{
		block: b,
		prev:  prev,
		vars:  map[string]T{},
		from:  loc.Caller(1),
	}

	tlog.V("scope").Printw("new scope", "block", b, "from", e.from)

	return e
}

func (e *env[T]) setVar(name string, v T) {
	if _, ok := e.vars[name]; !ok {
		e.names = append(e.names, name)
	}

	e.vars[name] = v

	tlog.V("vars").Printw("set var", "block", e.block, "name", name, "val", v)
}

func (e *env[T]) findVar(name string) (v T, ok bool) {
	for s := e; s != nil; s = s.prev {
		if v, ok = s.vars[name]; ok {
			return v, ok
		}
	}

	return v, false
}

// defined lists the names bound in this frame alone, in binding order.
func (e *env[T]) defined() []string {
	return e.names
}
