package tp

type (
	Type interface {
		String() string
	}

	Bool struct{}

	Int struct{}

	Float struct{}

	Untyped struct{}
)

// Unify returns the common type of two candidates.
// Equal types unify to themselves, untyped unifies with anything,
// the rest fails. Callers decide whether failure is fatal.
func Unify(x, y Type) (Type, bool) {
	if x == y {
		return x, true
	}

	if (x == Untyped{}) {
		return y, true
	}

	if (y == Untyped{}) {
		return x, true
	}

	return nil, false
}

func (x Bool) String() string { return "bool" }

func (x Int) String() string { return "int" }

func (x Float) String() string { return "float" }

func (x Untyped) String() string { return "untyped" }
