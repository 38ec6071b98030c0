package value

import "github.com/VFabricio/rinha-vm/code"

// Local is one slot in a function body's local-slot layout: a parameter
// or a let-bound name, in the order it appears on the operand stack.
type Local struct {
	Name string
}

// Function is a compiled function-table entry (§3 "Function entry").
// Index is the entry's own position in the function table and doubles
// as the memoization key's function component, so it is set once, when
// the entry is appended, and never changes afterwards.
type Function struct {
	Arity    uint16
	Bytecode code.Instructions
	// Captured lists the free-variable names this function's body
	// closes over, in the order the compiler's free-variable walk
	// first encountered them (§4.1 "computed captured parameters").
	// Kept as an ordered slice rather than a set so closure
	// construction builds its capture list deterministically.
	Captured []string
	Locals   []Local
	Index    uint16
}

// NumLocals returns how many local slots this function's body uses.
func (f *Function) NumLocals() int {
	return len(f.Locals)
}

// LocalSlot returns the slot index of a local with the given name, and
// whether one exists. Scans backwards so a later (shadowing) local of
// the same name wins, matching compiler.resolveLocal's resolution
// order for the same name within one function body.
func (f *Function) LocalSlot(name string) (int, bool) {
	for i := len(f.Locals) - 1; i >= 0; i-- {
		if f.Locals[i].Name == name {
			return i, true
		}
	}
	return 0, false
}
