// Package ast defines the term tree the compiler consumes (§3 "Term
// (input)"). Producing this tree from Rinha source text is explicitly
// out of scope (§1): the tree is handed to us already built, by an
// external front-end. What lives here is the typed shape of that tree,
// plus a JSON decoding adapter mirroring the tagged-union encoding the
// reference `rinha` AST format uses (see original_source/src/ast.rs,
// whose `#[serde(tag = "kind")] enum Term` this package's decoder
// matches field-for-field), since the CLI still has to read an AST
// from somewhere to run it end to end.
package ast

import (
	"encoding/json"
	"fmt"
)

// Location is the source span a term was parsed from. The compiler
// never inspects it; it exists so error messages produced further up
// the external front-end can point back at source text.
type Location struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Filename string `json:"filename"`
}

// Term is any node in the AST. All term nodes are immutable once
// produced by the parser (§3): nothing in this package mutates a Term
// after it is decoded.
type Term interface {
	termNode()
}

// BinaryOp is the operator tag carried by a Binary term.
type BinaryOp string

const (
	Add BinaryOp = "Add"
	Sub BinaryOp = "Sub"
	Mul BinaryOp = "Mul"
	Div BinaryOp = "Div"
	Rem BinaryOp = "Rem"
	Eq  BinaryOp = "Eq"
	Neq BinaryOp = "Neq"
	Gt  BinaryOp = "Gt"
	Lt  BinaryOp = "Lt"
	Gte BinaryOp = "Gte"
	Lte BinaryOp = "Lte"
	And BinaryOp = "And"
	Or  BinaryOp = "Or"
)

// Int is an integer literal.
type Int struct {
	Value    int32
	Location Location
}

func (*Int) termNode() {}

// Bool is a boolean literal.
type Bool struct {
	Value    bool
	Location Location
}

func (*Bool) termNode() {}

// Str is a string literal.
type Str struct {
	Value    string
	Location Location
}

func (*Str) termNode() {}

// Binary is a binary operator application.
type Binary struct {
	Lhs, Rhs Term
	Op       BinaryOp
	Location Location
}

func (*Binary) termNode() {}

// Let is a `let name = value; next` binding.
type Let struct {
	Name     string
	Value    Term
	Next     Term
	Location Location
}

func (*Let) termNode() {}

// Var is a variable reference.
type Var struct {
	Text     string
	Location Location
}

func (*Var) termNode() {}

// Parameter is one formal parameter of a Function term.
type Parameter struct {
	Text string
}

// Function is an anonymous function literal.
type Function struct {
	Parameters []Parameter
	Value      Term
	Location   Location
}

func (*Function) termNode() {}

// Call is a function application.
type Call struct {
	Callee    Term
	Arguments []Term
	Location  Location
}

func (*Call) termNode() {}

// Tuple is a 2-tuple construction.
type Tuple struct {
	First, Second Term
	Location      Location
}

func (*Tuple) termNode() {}

// First projects the first component of a tuple.
type First struct {
	Value    Term
	Location Location
}

func (*First) termNode() {}

// Second projects the second component of a tuple.
type Second struct {
	Value    Term
	Location Location
}

func (*Second) termNode() {}

// If is a conditional term.
type If struct {
	Condition, Then, Otherwise Term
	Location                   Location
}

func (*If) termNode() {}

// Print evaluates its argument, writes it to standard output, and
// evaluates to that same argument's value.
type Print struct {
	Value    Term
	Location Location
}

func (*Print) termNode() {}

// Error is a parse-time failure the front-end decided to carry into the
// tree instead of failing outright. The compiler must reject any
// program containing one (§4.1, §7).
type Error struct {
	Message  string
	Location Location
}

func (*Error) termNode() {}

// File is the top-level decoded document: a name, a root expression and
// its source location.
type File struct {
	Name       string
	Expression Term
	Location   Location
}

// rawTerm is the wire shape every term kind decodes through: a "kind"
// discriminator plus the union of every kind's fields, matching the
// tagged-enum JSON the rinha AST format uses.
type rawTerm struct {
	Kind       string            `json:"kind"`
	Value      json.RawMessage   `json:"value"`
	Text       string            `json:"text"`
	Name       json.RawMessage   `json:"name"`
	Next       json.RawMessage   `json:"next"`
	Lhs        json.RawMessage   `json:"lhs"`
	Rhs        json.RawMessage   `json:"rhs"`
	Op         BinaryOp          `json:"op"`
	Condition  json.RawMessage   `json:"condition"`
	Then       json.RawMessage   `json:"then"`
	Otherwise  json.RawMessage   `json:"otherwise"`
	First      json.RawMessage   `json:"first"`
	Second     json.RawMessage   `json:"second"`
	Callee     json.RawMessage   `json:"callee"`
	Arguments  []json.RawMessage `json:"arguments"`
	Parameters []struct {
		Text string `json:"text"`
	} `json:"parameters"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// UnmarshalTerm decodes any term kind, dispatching on the "kind" tag.
func UnmarshalTerm(data []byte) (Term, error) {
	var raw rawTerm
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw.term()
}

func decodeSub(data json.RawMessage) (Term, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing term")
	}
	return UnmarshalTerm(data)
}

func (raw rawTerm) term() (Term, error) {
	switch raw.Kind {
	case "Int":
		var v struct {
			Value int32 `json:"value"`
		}
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &v.Value); err != nil {
				return nil, err
			}
		}
		return &Int{Value: v.Value, Location: raw.Location}, nil
	case "Bool":
		var v struct {
			Value bool `json:"value"`
		}
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &v.Value); err != nil {
				return nil, err
			}
		}
		return &Bool{Value: v.Value, Location: raw.Location}, nil
	case "Str":
		var v struct {
			Value string `json:"value"`
		}
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &v.Value); err != nil {
				return nil, err
			}
		}
		return &Str{Value: v.Value, Location: raw.Location}, nil
	case "Binary":
		lhs, err := decodeSub(raw.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeSub(raw.Rhs)
		if err != nil {
			return nil, err
		}
		return &Binary{Lhs: lhs, Rhs: rhs, Op: raw.Op, Location: raw.Location}, nil
	case "Let":
		var name struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw.Name, &name); err != nil {
			return nil, err
		}
		val, err := decodeSub(raw.Value)
		if err != nil {
			return nil, err
		}
		next, err := decodeSub(raw.Next)
		if err != nil {
			return nil, err
		}
		return &Let{Name: name.Text, Value: val, Next: next, Location: raw.Location}, nil
	case "Var":
		return &Var{Text: raw.Text, Location: raw.Location}, nil
	case "Function":
		params := make([]Parameter, len(raw.Parameters))
		for i, p := range raw.Parameters {
			params[i] = Parameter{Text: p.Text}
		}
		body, err := decodeSub(raw.Value)
		if err != nil {
			return nil, err
		}
		return &Function{Parameters: params, Value: body, Location: raw.Location}, nil
	case "Call":
		callee, err := decodeSub(raw.Callee)
		if err != nil {
			return nil, err
		}
		args := make([]Term, len(raw.Arguments))
		for i, a := range raw.Arguments {
			t, err := decodeSub(a)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		return &Call{Callee: callee, Arguments: args, Location: raw.Location}, nil
	case "Tuple":
		first, err := decodeSub(raw.First)
		if err != nil {
			return nil, err
		}
		second, err := decodeSub(raw.Second)
		if err != nil {
			return nil, err
		}
		return &Tuple{First: first, Second: second, Location: raw.Location}, nil
	case "First":
		v, err := decodeSub(raw.Value)
		if err != nil {
			return nil, err
		}
		return &First{Value: v, Location: raw.Location}, nil
	case "Second":
		v, err := decodeSub(raw.Value)
		if err != nil {
			return nil, err
		}
		return &Second{Value: v, Location: raw.Location}, nil
	case "If":
		cond, err := decodeSub(raw.Condition)
		if err != nil {
			return nil, err
		}
		then, err := decodeSub(raw.Then)
		if err != nil {
			return nil, err
		}
		otherwise, err := decodeSub(raw.Otherwise)
		if err != nil {
			return nil, err
		}
		return &If{Condition: cond, Then: then, Otherwise: otherwise, Location: raw.Location}, nil
	case "Print":
		v, err := decodeSub(raw.Value)
		if err != nil {
			return nil, err
		}
		return &Print{Value: v, Location: raw.Location}, nil
	case "Error":
		return &Error{Message: raw.Message, Location: raw.Location}, nil
	default:
		return nil, fmt.Errorf("unknown term kind %q", raw.Kind)
	}
}

// UnmarshalFile decodes a top-level File document (an "expression" key
// wrapping the root Term, plus the document's own name/location).
func UnmarshalFile(data []byte) (*File, error) {
	var raw struct {
		Name       string          `json:"name"`
		Expression json.RawMessage `json:"expression"`
		Location   Location        `json:"location"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	expr, err := decodeSub(raw.Expression)
	if err != nil {
		return nil, fmt.Errorf("decoding expression: %w", err)
	}
	return &File{Name: raw.Name, Expression: expr, Location: raw.Location}, nil
}
