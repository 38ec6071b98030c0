// Package value implements the runtime value model (§3 Value/FinalValue)
// the VM operates on. Values are a closed tagged sum; compound values
// (Tuple, Closure) hold their children by reference so that duplicating
// a value for LocalGet or a closure capture is a cheap pointer copy, the
// same sharing discipline the teacher's object.Object hierarchy uses for
// *object.Array/*object.Hash.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which variant of Value (or FinalValue) a value is.
type Kind int

const (
	BoolKind Kind = iota
	IntKind
	StrKind
	TupleKind
	ClosureKind
)

func (k Kind) String() string {
	switch k {
	case BoolKind:
		return "Bool"
	case IntKind:
		return "Int"
	case StrKind:
		return "Str"
	case TupleKind:
		return "Tuple"
	case ClosureKind:
		return "Closure"
	default:
		return "Unknown"
	}
}

// Value is any runtime value living on the operand stack, a global
// binding or a closure's captured-bindings list.
type Value interface {
	Kind() Kind
	Display() string
}

// Bool is the boolean value variant.
type Bool struct{ Value bool }

func (Bool) Kind() Kind { return BoolKind }
func (b Bool) Display() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Int is the 32-bit signed integer value variant. Arithmetic on it
// wraps using Go's native int32 overflow behavior (§9 Open Questions:
// the original source uses native 32-bit signed wrapping; we document
// rather than guard against overflow, matching that choice).
type Int struct{ Value int32 }

func (Int) Kind() Kind { return IntKind }
func (i Int) Display() string {
	return strconv.FormatInt(int64(i.Value), 10)
}

// Str is the immutable string value variant.
type Str struct{ Value string }

func (Str) Kind() Kind { return StrKind }
func (s Str) Display() string {
	return s.Value
}

// Tuple is a 2-tuple of values.
type Tuple struct {
	First, Second Value
}

func (Tuple) Kind() Kind { return TupleKind }
func (t Tuple) Display() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(t.First.Display())
	b.WriteString(", ")
	b.WriteString(t.Second.Display())
	b.WriteByte(')')
	return b.String()
}

// Binding is one (name, value) pair in a closure's captured-bindings
// list. The list is kept as a small ordered slice rather than a map:
// per §9 Design notes, captured environments are short enough that
// linear scan beats hashing for the workloads of interest.
type Binding struct {
	Name  string
	Value Value
}

// Closure is a function value: a reference to its compiled Function
// entry (by table index) plus the bindings it captured at creation time.
type Closure struct {
	FunctionIndex uint16
	Captured      []Binding
}

func (Closure) Kind() Kind { return ClosureKind }
func (Closure) Display() string {
	return "<#closure>"
}

// Lookup finds a captured binding by name.
func (c Closure) Lookup(name string) (Value, bool) {
	for _, b := range c.Captured {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

// Equal implements the structural equality required by §4.2's Eq/Neq
// semantics: same-kind values compare structurally, cross-kind pairs
// are never equal, and two closures are never equal to one another
// (§9 Open Questions: closure equality is always-false; the source
// never exercises it otherwise).
func Equal(a, b Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Bool:
		return av.Value == b.(Bool).Value
	case Int:
		return av.Value == b.(Int).Value
	case Str:
		return av.Value == b.(Str).Value
	case Tuple:
		bv := b.(Tuple)
		return Equal(av.First, bv.First) && Equal(av.Second, bv.Second)
	case Closure:
		return false
	default:
		return false
	}
}

// DisplayAsAddend renders v the way Add's string-concatenation branch
// does: strings pass through raw, integers print in base 10, anything
// else is a type error the caller must have already excluded.
func DisplayAsAddend(v Value) (string, error) {
	switch v := v.(type) {
	case Str:
		return v.Value, nil
	case Int:
		return strconv.FormatInt(int64(v.Value), 10), nil
	default:
		return "", fmt.Errorf("cannot use a %s as a string/int addend", v.Kind())
	}
}
