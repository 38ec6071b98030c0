// Package vm implements the stack-based bytecode machine (§4.2, §4.3):
// a fixed operand stack, a call-frame stack, the three runtime pools
// (constants, identifiers, functions) the compiler fills in-place, an
// append-only global-bindings list, and the per-call memoization
// gating of pure unary-int functions.
//
// Grounded on the teacher's vm.Run outer/inner dispatch-loop split
// (yourfavoritedev-golang-interpreter/vm/vm.go): the inner loop walks a
// single frame's instructions advancing its own IP; Call, TailCall and
// Return each persist the current IP and break back out to the outer
// loop so a frame-stack mutation takes effect before the next
// instruction fetch reads vm.currentFrame() again.
package vm

import (
	"fmt"
	"io"

	"github.com/VFabricio/rinha-vm/code"
	"github.com/VFabricio/rinha-vm/internal/diagnostics"
	"github.com/VFabricio/rinha-vm/value"
)

// StackSize and MaxFrames are arbitrary numbers, same as the teacher's
// own StackSize/MaxFrames constants; a program that needs more than
// this many live operand slots or call frames is treated as a runtime
// invariant violation rather than silently growing forever.
const (
	StackSize = 1 << 16
	MaxFrames = 1 << 16

	// MaxPoolEntries bounds the constant, identifier and function
	// pools (§3: "at most 65,535 entries" in each, so a pool index
	// always fits the two-byte operand that addresses it).
	MaxPoolEntries = 65535
)

// VM is one compile-and-run session: the three runtime pools the
// compiler appends to, the global-bindings list, the operand stack,
// the call-frame stack, and the memoization table.
type VM struct {
	Constants   []value.Value
	Identifiers []string
	Functions   []*value.Function

	identifierIndex map[string]uint16

	// Globals is an append-only list, not a map (§9 "Globals as
	// list, not map"): GlobalGet resolves a name by scanning from the
	// end, so a later binding of the same name shadows an earlier one
	// without ever needing to remove it.
	Globals []value.Binding

	Stack []value.Value
	sp    int

	Frames []*Frame

	Memo *memoTable

	// Stdout is where Print writes (§4.2); New takes it as a parameter
	// so the CLI can pass os.Stdout and tests can capture output.
	Stdout io.Writer
}

// New builds a VM with empty pools, ready for a compiler to fill in.
func New(stdout io.Writer) *VM {
	return &VM{
		identifierIndex: make(map[string]uint16),
		Memo:            newMemoTable(),
		Stdout:          stdout,
	}
}

// AddConstant interns v into the constant pool, returning its existing
// index if an equal value (§3: same kind, same structural value) was
// already interned, or appending a new entry otherwise. Only literal
// values (Bool/Int/Str) are ever interned this way; tuples and
// closures are built at runtime and never live in this pool.
func (vm *VM) AddConstant(v value.Value) (uint16, error) {
	for i, c := range vm.Constants {
		if c.Kind() == v.Kind() && value.Equal(c, v) {
			return uint16(i), nil
		}
	}
	if len(vm.Constants) >= MaxPoolEntries {
		return 0, fmt.Errorf("constant pool overflow: more than %d entries", MaxPoolEntries)
	}
	vm.Constants = append(vm.Constants, v)
	return uint16(len(vm.Constants) - 1), nil
}

// AddIdentifier interns name into the identifier pool.
func (vm *VM) AddIdentifier(name string) (uint16, error) {
	if idx, ok := vm.identifierIndex[name]; ok {
		return idx, nil
	}
	if len(vm.Identifiers) >= MaxPoolEntries {
		return 0, fmt.Errorf("identifier pool overflow: more than %d entries", MaxPoolEntries)
	}
	idx := uint16(len(vm.Identifiers))
	vm.Identifiers = append(vm.Identifiers, name)
	vm.identifierIndex[name] = idx
	return idx, nil
}

// AddFunction appends fn to the function table, stamping its final
// Index as it goes, and returns that index.
func (vm *VM) AddFunction(fn *value.Function) (uint16, error) {
	if len(vm.Functions) >= MaxPoolEntries {
		return 0, fmt.Errorf("function table overflow: more than %d entries", MaxPoolEntries)
	}
	idx := uint16(len(vm.Functions))
	fn.Index = idx
	vm.Functions = append(vm.Functions, fn)
	return idx, nil
}

// Run executes a compiled top-level instruction stream to completion
// and returns the final exported value of the program's last
// expression (§3 FinalValue).
func (vm *VM) Run(instructions code.Instructions) (value.FinalValue, error) {
	var result value.FinalValue
	err := diagnostics.Guard(func() error {
		vm.Stack = make([]value.Value, StackSize)
		vm.sp = 0
		vm.Frames = make([]*Frame, 0, 64)
		vm.pushFrame(newFrame(instructions, nil, value.Closure{}, 0))

		if err := vm.runLoop(); err != nil {
			return err
		}

		if vm.sp != 1 {
			diagnostics.Fail("stack should hold exactly one value at termination, holds %d", vm.sp)
		}
		result = value.ToFinal(vm.Stack[vm.sp-1])
		return nil
	})
	return result, err
}

// runLoop is the outer/inner dispatch split: the outer loop fetches
// the current frame, the inner loop advances that frame's IP one
// instruction at a time until either the frame's own instructions run
// out, or an instruction mutates the frame stack (Call, TailCall,
// Return) and "continue outer" forces a fresh fetch.
func (vm *VM) runLoop() error {
outer:
	for len(vm.Frames) > 0 {
		frame := vm.currentFrame()

		for frame.IP < len(frame.Bytecode) {
			opcode := code.Opcode(frame.Bytecode[frame.IP])
			def, lookupErr := code.Lookup(byte(opcode))
			if lookupErr != nil {
				diagnostics.Fail("%s", lookupErr)
			}
			operands, width := code.ReadOperands(def, frame.Bytecode[frame.IP+1:])
			instrLen := 1 + width

			switch opcode {
			case code.Constant:
				vm.push(vm.Constants[uint16(operands[0])])
				frame.IP += instrLen

			case code.True:
				vm.push(value.Bool{Value: true})
				frame.IP += instrLen

			case code.False:
				vm.push(value.Bool{Value: false})
				frame.IP += instrLen

			case code.Add, code.Sub, code.Mul, code.Div, code.Rem,
				code.Eq, code.Neq, code.Gt, code.Lt, code.Gte, code.Lte,
				code.And, code.Or:
				if err := vm.executeBinary(opcode); err != nil {
					return err
				}
				frame.IP += instrLen

			case code.Tuple:
				second := vm.pop()
				first := vm.pop()
				vm.push(value.Tuple{First: first, Second: second})
				frame.IP += instrLen

			case code.First:
				t, err := vm.popTuple()
				if err != nil {
					return err
				}
				vm.push(t.First)
				frame.IP += instrLen

			case code.Second:
				t, err := vm.popTuple()
				if err != nil {
					return err
				}
				vm.push(t.Second)
				frame.IP += instrLen

			case code.Print:
				top := vm.peek()
				fmt.Fprintln(vm.Stdout, top.Display())
				frame.Pure = false
				frame.IP += instrLen

			case code.GlobalSet:
				name := vm.Identifiers[uint16(operands[0])]
				v := vm.pop()
				vm.Globals = append(vm.Globals, value.Binding{Name: name, Value: v})
				frame.IP += instrLen

			case code.GlobalGet:
				name := vm.Identifiers[uint16(operands[0])]
				v, err := vm.resolveGlobal(frame, name)
				if err != nil {
					return err
				}
				vm.push(v)
				frame.IP += instrLen

			case code.LocalGet:
				slot := operands[0]
				vm.push(vm.Stack[frame.FrameIndex+slot])
				frame.IP += instrLen

			case code.If:
				cond, err := vm.popBool()
				if err != nil {
					return err
				}
				skip := operands[0]
				frame.IP += instrLen
				if !cond.Value {
					frame.IP += skip
				}

			case code.Jump:
				skip := operands[0]
				frame.IP += instrLen
				frame.IP += skip

			case code.Closure:
				fn := vm.Functions[uint16(operands[0])]
				vm.push(vm.buildClosure(frame, fn))
				frame.IP += instrLen

			case code.Call:
				arity := operands[0]
				frame.IP += instrLen
				changed, err := vm.call(arity)
				if err != nil {
					return err
				}
				if changed {
					continue outer
				}

			case code.TailCall:
				arity := operands[0]
				frame.IP += instrLen
				changed, err := vm.tailCall(frame, arity)
				if err != nil {
					return err
				}
				if changed {
					continue outer
				}

			case code.Return:
				locals := operands[0]
				frame.IP += instrLen
				vm.doReturn(frame, locals)
				continue outer

			default:
				diagnostics.Fail("unhandled opcode %s", def.Name)
			}
		}

		// The synthetic top-level frame legitimately ends this way:
		// its instructions are the whole program, with no trailing
		// Return. Any other frame running out of instructions without
		// having executed Return is a compiler bug.
		if frame.Function == nil {
			vm.popFrame()
			continue outer
		}
		diagnostics.Fail("function body exhausted instructions without Return")
	}
	return nil
}

func (vm *VM) currentFrame() *Frame {
	return vm.Frames[len(vm.Frames)-1]
}

func (vm *VM) pushFrame(f *Frame) {
	if len(vm.Frames) >= MaxFrames {
		diagnostics.Fail("call frame stack overflow: more than %d frames", MaxFrames)
	}
	vm.Frames = append(vm.Frames, f)
}

func (vm *VM) popFrame() *Frame {
	f := vm.currentFrame()
	vm.Frames = vm.Frames[:len(vm.Frames)-1]
	return f
}

func (vm *VM) push(v value.Value) {
	if vm.sp >= StackSize {
		diagnostics.Fail("operand stack overflow: more than %d values", StackSize)
	}
	vm.Stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	if vm.sp <= 0 {
		diagnostics.Fail("operand stack underflow")
	}
	vm.sp--
	return vm.Stack[vm.sp]
}

func (vm *VM) peek() value.Value {
	if vm.sp <= 0 {
		diagnostics.Fail("operand stack underflow")
	}
	return vm.Stack[vm.sp-1]
}

func (vm *VM) popBool() (value.Bool, error) {
	v := vm.pop()
	b, ok := v.(value.Bool)
	if !ok {
		return value.Bool{}, typeErrorf("expected a Bool condition, got %s", v.Kind())
	}
	return b, nil
}

func (vm *VM) popTuple() (value.Tuple, error) {
	v := vm.pop()
	t, ok := v.(value.Tuple)
	if !ok {
		return value.Tuple{}, typeErrorf("expected a Tuple, got %s", v.Kind())
	}
	return t, nil
}

// resolveGlobal looks a name up first in the current frame's closure
// captures, then in the append-only global list, scanning from the
// most recent binding backwards so later bindings shadow earlier ones
// (§9 "Globals as list, not map").
func (vm *VM) resolveGlobal(frame *Frame, name string) (value.Value, error) {
	if v, ok := frame.Closure.Lookup(name); ok {
		return v, nil
	}
	for i := len(vm.Globals) - 1; i >= 0; i-- {
		if vm.Globals[i].Name == name {
			return vm.Globals[i].Value, nil
		}
	}
	return nil, &LookupError{Name: name}
}

// buildClosure resolves fn's free-variable set against the enclosing
// frame, in the order the compiler recorded them (§4.1): first the
// enclosing frame's own local slots, then the enclosing closure's own
// captures. A name resolved by neither is left uncaptured and falls
// through to global resolution at call time.
func (vm *VM) buildClosure(frame *Frame, fn *value.Function) value.Closure {
	captured := make([]value.Binding, 0, len(fn.Captured))
	for _, name := range fn.Captured {
		if frame.Function != nil {
			if slot, ok := frame.Function.LocalSlot(name); ok {
				captured = append(captured, value.Binding{
					Name:  name,
					Value: vm.Stack[frame.FrameIndex+slot],
				})
				continue
			}
		}
		if v, ok := frame.Closure.Lookup(name); ok {
			captured = append(captured, value.Binding{Name: name, Value: v})
		}
	}
	return value.Closure{FunctionIndex: fn.Index, Captured: captured}
}

// call implements the Call opcode (§4.2): it reports whether the
// frame stack changed (a new frame was pushed, or a memo hit answered
// the call without one).
func (vm *VM) call(arity int) (bool, error) {
	calleeIdx := vm.sp - 1 - arity
	closure, ok := vm.Stack[calleeIdx].(value.Closure)
	if !ok {
		return false, typeErrorf("attempt to call a non-function value")
	}
	fn := vm.Functions[closure.FunctionIndex]
	if int(fn.Arity) != arity {
		return false, typeErrorf("wrong number of arguments: want=%d, got=%d", fn.Arity, arity)
	}

	key, eligible := unaryIntKey(fn, vm.Stack[calleeIdx+1:vm.sp])
	if eligible {
		if cached, hit := vm.Memo.lookup(key); hit {
			vm.sp = calleeIdx
			vm.push(cached)
			return false, nil
		}
	}

	frameIndex := vm.sp - arity
	newF := newFrame(fn.Bytecode, fn, closure, frameIndex)
	if eligible {
		newF.memoKey = &key
	}
	vm.pushFrame(newF)
	return true, nil
}

// tailCall implements the TailCall opcode (§4.2, §8): a call in tail
// position reuses the caller's own stack region in place instead of
// growing the call-frame stack, so mutually tail-recursive calls run
// in constant frame-stack depth.
func (vm *VM) tailCall(caller *Frame, arity int) (bool, error) {
	calleeIdx := vm.sp - 1 - arity
	closure, ok := vm.Stack[calleeIdx].(value.Closure)
	if !ok {
		return false, typeErrorf("attempt to call a non-function value")
	}
	fn := vm.Functions[closure.FunctionIndex]
	if int(fn.Arity) != arity {
		return false, typeErrorf("wrong number of arguments: want=%d, got=%d", fn.Arity, arity)
	}

	key, eligible := unaryIntKey(fn, vm.Stack[calleeIdx+1:vm.sp])
	if eligible {
		if cached, hit := vm.Memo.lookup(key); hit {
			vm.sp = calleeIdx
			vm.push(cached)
			return false, nil
		}
	}

	// The caller's own closure slot sits one below its frame index; the
	// callee's closure+args region is shifted down to start there,
	// discarding the caller's now-dead locals in the same motion.
	base := caller.FrameIndex - 1
	region := arity + 1
	copy(vm.Stack[base:base+region], vm.Stack[calleeIdx:calleeIdx+region])
	vm.sp = base + region

	vm.popFrame()
	newF := newFrame(fn.Bytecode, fn, closure, base+1)
	if eligible {
		newF.memoKey = &key
	}
	vm.pushFrame(newF)
	return true, nil
}

// doReturn implements the Return opcode (§4.2): it pops the function's
// result, records it in the memo table if this frame was both
// eligible (its own memoKey was set when it was pushed) and pure
// (never executed Print), tears the frame's stack region down to the
// caller's own top, and pushes the result back for the caller to see.
func (vm *VM) doReturn(frame *Frame, locals int) {
	if frame.numLocals() != locals {
		diagnostics.Fail("Return locals mismatch: compiled %d, frame has %d", locals, frame.numLocals())
	}
	result := vm.pop()

	if frame.memoKey != nil && frame.Pure {
		vm.Memo.record(*frame.memoKey, result)
	}

	vm.sp = frame.FrameIndex - 1
	vm.push(result)
	vm.popFrame()
}
