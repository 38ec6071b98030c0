package vm

import (
	"github.com/VFabricio/rinha-vm/code"
	"github.com/VFabricio/rinha-vm/value"
)

// executeBinary pops the right then the left operand, applies op, and
// pushes the result (§4.2 "Binary operators"). Arithmetic and ordering
// operators require both operands to be Int, except Add, which also
// accepts a Str on either side and performs string concatenation
// (§4.2: "Add also accepts a string operand, concatenating the
// Display form of the other side").
func (vm *VM) executeBinary(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch op {
	case code.Add:
		return vm.executeAdd(left, right)
	case code.Sub, code.Mul, code.Div, code.Rem,
		code.Gt, code.Lt, code.Gte, code.Lte:
		return vm.executeIntOp(op, left, right)
	case code.Eq:
		vm.push(value.Bool{Value: value.Equal(left, right)})
		return nil
	case code.Neq:
		vm.push(value.Bool{Value: !value.Equal(left, right)})
		return nil
	case code.And, code.Or:
		return vm.executeBoolOp(op, left, right)
	default:
		return typeErrorf("not a binary operator: %v", op)
	}
}

func (vm *VM) executeAdd(left, right value.Value) error {
	li, lok := left.(value.Int)
	ri, rok := right.(value.Int)
	if lok && rok {
		vm.push(value.Int{Value: li.Value + ri.Value})
		return nil
	}

	ls, err := value.DisplayAsAddend(left)
	if err != nil {
		return typeErrorf("Add: %s", err)
	}
	rs, err := value.DisplayAsAddend(right)
	if err != nil {
		return typeErrorf("Add: %s", err)
	}
	vm.push(value.Str{Value: ls + rs})
	return nil
}

func (vm *VM) executeIntOp(op code.Opcode, left, right value.Value) error {
	li, lok := left.(value.Int)
	ri, rok := right.(value.Int)
	if !lok || !rok {
		return typeErrorf("%s: expected two Ints, got %s and %s", opName(op), left.Kind(), right.Kind())
	}

	switch op {
	case code.Sub:
		vm.push(value.Int{Value: li.Value - ri.Value})
	case code.Mul:
		vm.push(value.Int{Value: li.Value * ri.Value})
	case code.Div:
		if ri.Value == 0 {
			return arithmeticErrorf("division by zero")
		}
		vm.push(value.Int{Value: li.Value / ri.Value})
	case code.Rem:
		if ri.Value == 0 {
			return arithmeticErrorf("remainder by zero")
		}
		vm.push(value.Int{Value: li.Value % ri.Value})
	case code.Gt:
		vm.push(value.Bool{Value: li.Value > ri.Value})
	case code.Lt:
		vm.push(value.Bool{Value: li.Value < ri.Value})
	case code.Gte:
		vm.push(value.Bool{Value: li.Value >= ri.Value})
	case code.Lte:
		vm.push(value.Bool{Value: li.Value <= ri.Value})
	}
	return nil
}

func (vm *VM) executeBoolOp(op code.Opcode, left, right value.Value) error {
	lb, lok := left.(value.Bool)
	rb, rok := right.(value.Bool)
	if !lok || !rok {
		return typeErrorf("%s: expected two Bools, got %s and %s", opName(op), left.Kind(), right.Kind())
	}
	switch op {
	case code.And:
		vm.push(value.Bool{Value: lb.Value && rb.Value})
	case code.Or:
		vm.push(value.Bool{Value: lb.Value || rb.Value})
	}
	return nil
}

func opName(op code.Opcode) string {
	def, err := code.Lookup(byte(op))
	if err != nil {
		return "unknown"
	}
	return def.Name
}
