// Package code defines the fixed instruction set executed by the VM.
//
// An Instructions value is a flat byte stream: each instruction starts
// with a one-byte Opcode followed by zero, one or two fixed-width
// immediates, exactly as described by that Opcode's Definition. This
// mirrors the teacher's bytecode encoding (one-byte opcode + a few
// fixed-width operands) but the opcode set and operand widths are the
// ones the bytecode compiler and VM actually need: jump targets are
// four bytes wide since the compiler must reject them only once they
// would overflow a signed 32-bit distance (see MaxJumpDistance).
package code

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Instructions is a stream of encoded bytecode instructions.
type Instructions []byte

// Opcode is the first byte of every instruction.
type Opcode byte

const (
	Constant Opcode = iota
	True
	False
	Add
	Sub
	Mul
	Div
	Rem
	Eq
	Neq
	Gt
	Lt
	Gte
	Lte
	And
	Or
	Tuple
	First
	Second
	Print
	GlobalSet
	GlobalGet
	LocalGet
	If
	Jump
	Closure
	Call
	TailCall
	Return
)

// Definition describes an Opcode's human readable name and the byte
// width of each of its immediates, in order.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	Constant:  {"Constant", []int{2}},
	True:      {"True", []int{}},
	False:     {"False", []int{}},
	Add:       {"Add", []int{}},
	Sub:       {"Sub", []int{}},
	Mul:       {"Mul", []int{}},
	Div:       {"Div", []int{}},
	Rem:       {"Rem", []int{}},
	Eq:        {"Eq", []int{}},
	Neq:       {"Neq", []int{}},
	Gt:        {"Gt", []int{}},
	Lt:        {"Lt", []int{}},
	Gte:       {"Gte", []int{}},
	Lte:       {"Lte", []int{}},
	And:       {"And", []int{}},
	Or:        {"Or", []int{}},
	Tuple:     {"Tuple", []int{}},
	First:     {"First", []int{}},
	Second:    {"Second", []int{}},
	Print:     {"Print", []int{}},
	GlobalSet: {"GlobalSet", []int{2}},
	GlobalGet: {"GlobalGet", []int{2}},
	// LocalGet carries both the local slot index and the identifier pool
	// index of the variable's name: the slot drives the stack access; the
	// VM does not read the identifier, which shows up only in disassembly.
	LocalGet: {"LocalGet", []int{2, 2}},
	If:       {"If", []int{4}},
	Jump:     {"Jump", []int{4}},
	Closure:  {"Closure", []int{2}},
	Call:     {"Call", []int{2}},
	TailCall: {"TailCall", []int{2}},
	Return:   {"Return", []int{2}},
}

// Lookup finds the Definition for the given raw opcode byte.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes a single instruction from an Opcode and its operands.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}

	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}

	instruction := make([]byte, instructionLen)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 4:
			binary.BigEndian.PutUint32(instruction[offset:], uint32(o))
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}

	return instruction
}

// ReadOperands decodes the operands following an instruction's opcode
// byte and reports how many bytes it consumed doing so.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 4:
			operands[i] = int(ReadUint32(ins[offset:]))
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ins[offset])
		}
		offset += width
	}

	return operands, offset
}

// ReadUint16 decodes a two-byte big-endian operand.
func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

// ReadUint32 decodes a four-byte big-endian operand.
func ReadUint32(ins Instructions) uint32 {
	return binary.BigEndian.Uint32(ins)
}

// MaxJumpDistance is the largest skip a single If/Jump instruction can
// encode before the compiler must reject the program (§4.1: "a computed
// jump distance exceeds 2^31 - 1").
const MaxJumpDistance = (1 << 31) - 1

// String renders a fully decoded instruction stream, one line per
// instruction, in "<offset> <name> <operands...>" form. Used by the
// disasm CLI verb and by tests that assert on emitted bytecode shape.
func (ins Instructions) String() string {
	var out bytes.Buffer

	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))

		i += 1 + read
	}

	return out.String()
}

func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	operandCount := len(def.OperandWidths)

	if len(operands) != operandCount {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d\n",
			len(operands), operandCount)
	}

	switch operandCount {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}

	return fmt.Sprintf("ERROR: unhandled operandCount for %s\n", def.Name)
}
