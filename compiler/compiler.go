// Package compiler walks a Rinha term tree and emits bytecode directly
// into a *vm.VM's runtime pools (§4.1 "Compiler(term, vm)"). This
// inverts the teacher's own vm -> compiler import direction
// (yourfavoritedev-golang-interpreter has vm depend on compiler.Bytecode):
// here compiler imports vm, because the contract is a compiler that
// mutates a pre-existing VM's constant/identifier/function pools as it
// goes, rather than handing back a self-contained Bytecode value for a
// VM to consume afterwards. vm never imports compiler, so the
// inversion introduces no import cycle.
package compiler

import (
	"fmt"

	"github.com/VFabricio/rinha-vm/ast"
	"github.com/VFabricio/rinha-vm/code"
	"github.com/VFabricio/rinha-vm/value"
	"github.com/VFabricio/rinha-vm/vm"
)

// jumpInstrWidth is the encoded size of an If or Jump instruction: one
// opcode byte plus a four-byte skip-distance operand (code/instruction.go's
// If and Jump definitions).
const jumpInstrWidth = 5

// Compiler compiles one function body's (or the top-level program's)
// term tree into a flat instruction stream. A Compiler for a nested
// function literal holds a pointer to its enclosing Compiler; its
// presence marks a function body, where a Let pushes a local slot
// instead of emitting GlobalSet and a tail-position call becomes
// TailCall. Var resolution never walks that chain; it only ever resolves against this
// compiler's own locals (§4.1: a function's free variables are
// resolved at runtime, through the closure's captured-bindings list,
// not at compile time through an enclosing symbol table).
type Compiler struct {
	parent       *Compiler
	machine      *vm.VM
	instructions code.Instructions
	locals       []string
}

// Compile compiles term against machine, appending to machine's
// constant, identifier and function pools as it goes, and returns the
// resulting top-level instruction stream.
func Compile(term ast.Term, machine *vm.VM) (code.Instructions, error) {
	c := &Compiler{machine: machine}
	if err := c.compileTerm(term, false); err != nil {
		return nil, err
	}
	return c.instructions, nil
}

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	pos := len(c.instructions)
	c.instructions = append(c.instructions, code.Make(op, operands...)...)
	return pos
}

// resolveLocal finds name among this compiler's own locals, scanning
// from the most recently declared backwards so a later `let` shadowing
// an earlier one of the same name resolves to the later slot.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i] == name {
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) patchJump(pos int) error {
	target := len(c.instructions)
	skip := target - (pos + jumpInstrWidth)
	if skip < 0 {
		return fmt.Errorf("internal error: negative jump distance at %d", pos)
	}
	if skip > code.MaxJumpDistance {
		return fmt.Errorf("jump distance %d exceeds maximum of %d", skip, code.MaxJumpDistance)
	}
	op := code.Opcode(c.instructions[pos])
	copy(c.instructions[pos:pos+jumpInstrWidth], code.Make(op, skip))
	return nil
}

// compileTerm recursively compiles term. tail reports whether term
// occupies the tail position of the function body currently being
// compiled (§4.1, §8): true only for the root of a function's body,
// and for the branches of an If or the next-expression of a Let
// reached while still in tail position. Everything else (binary
// operands, tuple/print/first/second children, call arguments, a
// let's bound value, an if's condition) compiles with tail=false,
// since each of those wraps its child's value in further computation
// before the function can return.
func (c *Compiler) compileTerm(term ast.Term, tail bool) error {
	switch t := term.(type) {
	case *ast.Int:
		idx, err := c.machine.AddConstant(value.Int{Value: t.Value})
		if err != nil {
			return err
		}
		c.emit(code.Constant, int(idx))

	case *ast.Bool:
		if t.Value {
			c.emit(code.True)
		} else {
			c.emit(code.False)
		}

	case *ast.Str:
		idx, err := c.machine.AddConstant(value.Str{Value: t.Value})
		if err != nil {
			return err
		}
		c.emit(code.Constant, int(idx))

	case *ast.Binary:
		if err := c.compileTerm(t.Lhs, false); err != nil {
			return err
		}
		if err := c.compileTerm(t.Rhs, false); err != nil {
			return err
		}
		op, err := binaryOpcode(t.Op)
		if err != nil {
			return err
		}
		c.emit(op)

	case *ast.Tuple:
		if err := c.compileTerm(t.First, false); err != nil {
			return err
		}
		if err := c.compileTerm(t.Second, false); err != nil {
			return err
		}
		c.emit(code.Tuple)

	case *ast.First:
		if err := c.compileTerm(t.Value, false); err != nil {
			return err
		}
		c.emit(code.First)

	case *ast.Second:
		if err := c.compileTerm(t.Value, false); err != nil {
			return err
		}
		c.emit(code.Second)

	case *ast.Let:
		if err := c.compileTerm(t.Value, false); err != nil {
			return err
		}
		if c.parent != nil {
			// The value is already sitting on the stack exactly where
			// this local's slot will be read from (§3: no explicit
			// local-store instruction; locals are populated purely by
			// stack push order).
			c.locals = append(c.locals, t.Name)
		} else {
			idx, err := c.machine.AddIdentifier(t.Name)
			if err != nil {
				return err
			}
			c.emit(code.GlobalSet, int(idx))
		}
		if err := c.compileTerm(t.Next, tail); err != nil {
			return err
		}

	case *ast.Var:
		idx, err := c.machine.AddIdentifier(t.Text)
		if err != nil {
			return err
		}
		if slot, ok := c.resolveLocal(t.Text); ok {
			c.emit(code.LocalGet, slot, int(idx))
		} else {
			c.emit(code.GlobalGet, int(idx))
		}

	case *ast.Print:
		if err := c.compileTerm(t.Value, false); err != nil {
			return err
		}
		c.emit(code.Print)

	case *ast.If:
		if err := c.compileTerm(t.Condition, false); err != nil {
			return err
		}
		ifPos := c.emit(code.If, 0)
		if err := c.compileTerm(t.Then, tail); err != nil {
			return err
		}
		jumpPos := c.emit(code.Jump, 0)
		if err := c.patchJump(ifPos); err != nil {
			return err
		}
		if err := c.compileTerm(t.Otherwise, tail); err != nil {
			return err
		}
		if err := c.patchJump(jumpPos); err != nil {
			return err
		}

	case *ast.Function:
		if err := c.compileFunction(t); err != nil {
			return err
		}

	case *ast.Call:
		if err := c.compileTerm(t.Callee, false); err != nil {
			return err
		}
		for _, arg := range t.Arguments {
			if err := c.compileTerm(arg, false); err != nil {
				return err
			}
		}
		arity := len(t.Arguments)
		if tail && c.parent != nil {
			c.emit(code.TailCall, arity)
		} else {
			c.emit(code.Call, arity)
		}

	case *ast.Error:
		return &SourceError{Message: t.Message}

	default:
		return fmt.Errorf("compiler: unhandled term type %T", term)
	}

	return nil
}

func (c *Compiler) compileFunction(fn *ast.Function) error {
	env := make(map[string]struct{}, len(fn.Parameters))
	for _, p := range fn.Parameters {
		env[p.Text] = struct{}{}
	}
	captured := computeCaptured(fn.Value, env)

	child := &Compiler{parent: c, machine: c.machine}
	for _, p := range fn.Parameters {
		child.locals = append(child.locals, p.Text)
	}

	if err := child.compileTerm(fn.Value, true); err != nil {
		return err
	}
	child.emit(code.Return, len(child.locals))

	compiledFn := &value.Function{
		Arity:    uint16(len(fn.Parameters)),
		Bytecode: child.instructions,
		Captured: captured,
		Locals:   toLocals(child.locals),
	}
	idx, err := c.machine.AddFunction(compiledFn)
	if err != nil {
		return err
	}
	c.emit(code.Closure, int(idx))
	return nil
}

func toLocals(names []string) []value.Local {
	locals := make([]value.Local, len(names))
	for i, n := range names {
		locals[i] = value.Local{Name: n}
	}
	return locals
}

func binaryOpcode(op ast.BinaryOp) (code.Opcode, error) {
	switch op {
	case ast.Add:
		return code.Add, nil
	case ast.Sub:
		return code.Sub, nil
	case ast.Mul:
		return code.Mul, nil
	case ast.Div:
		return code.Div, nil
	case ast.Rem:
		return code.Rem, nil
	case ast.Eq:
		return code.Eq, nil
	case ast.Neq:
		return code.Neq, nil
	case ast.Gt:
		return code.Gt, nil
	case ast.Lt:
		return code.Lt, nil
	case ast.Gte:
		return code.Gte, nil
	case ast.Lte:
		return code.Lte, nil
	case ast.And:
		return code.And, nil
	case ast.Or:
		return code.Or, nil
	default:
		return 0, fmt.Errorf("unknown binary operator %q", op)
	}
}
