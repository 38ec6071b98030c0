package vm

import (
	"github.com/VFabricio/rinha-vm/code"
	"github.com/VFabricio/rinha-vm/value"
)

// Frame is a per-invocation call-frame record (§3 "Call frame"): the
// bytecode it is executing, where it is in that bytecode, the closure
// it belongs to, and the operand-stack index of its own slot #0. Built
// on the same shape as the teacher's vm.Frame, generalized with a
// Function back-reference (nil at the synthetic top-level frame) so
// Closure construction can resolve names to local slots, and Return can
// check the local count, without walking back through the closure's
// FunctionIndex each time.
type Frame struct {
	Bytecode code.Instructions
	IP       int
	Closure  value.Closure
	Function *value.Function // nil for the synthetic top-level frame
	// FrameIndex is the operand-stack position of this frame's slot #0.
	FrameIndex int
	// Pure is cleared the first time this frame executes a Print
	// instruction (§4.2 "Purity tracking"); only pure frame executions
	// are eligible for memoization.
	Pure bool
	// memoKey is set once, when this frame is pushed for a call
	// eligible for memoization (§4.3: a unary call whose one argument
	// is an Int), and consumed by its own Return. Keeping this on the
	// frame rather than behind one VM-wide scratch slot means a
	// non-eligible call nested inside an eligible one can never steal
	// or misattribute the pending record.
	memoKey *memoKey
}

func newFrame(bytecode code.Instructions, fn *value.Function, closure value.Closure, frameIndex int) *Frame {
	return &Frame{
		Bytecode:   bytecode,
		IP:         0,
		Closure:    closure,
		Function:   fn,
		FrameIndex: frameIndex,
		Pure:       true,
	}
}

// numLocals reports how many local slots this frame's function declares,
// or 0 for the synthetic top-level frame (which has none).
func (f *Frame) numLocals() int {
	if f.Function == nil {
		return 0
	}
	return f.Function.NumLocals()
}
