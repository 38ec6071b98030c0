package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VFabricio/rinha-vm/ast"
	"github.com/VFabricio/rinha-vm/compiler"
	"github.com/VFabricio/rinha-vm/value"
	"github.com/VFabricio/rinha-vm/vm"
)

func run(t *testing.T, term ast.Term) (value.FinalValue, *bytes.Buffer) {
	t.Helper()
	var stdout bytes.Buffer
	machine := vm.New(&stdout)

	instructions, err := compiler.Compile(term, machine)
	require.NoError(t, err)

	result, err := machine.Run(instructions)
	require.NoError(t, err)
	return result, &stdout
}

func TestArithmetic(t *testing.T) {
	// 1 + 2 * 3
	term := &ast.Binary{
		Lhs: &ast.Int{Value: 1},
		Rhs: &ast.Binary{
			Lhs: &ast.Int{Value: 2},
			Rhs: &ast.Int{Value: 3},
			Op:  ast.Mul,
		},
		Op: ast.Add,
	}
	result, _ := run(t, term)
	require.Equal(t, value.Int{Value: 7}, result)
}

func TestStringConcatenationViaAdd(t *testing.T) {
	term := &ast.Binary{
		Lhs: &ast.Str{Value: "count: "},
		Rhs: &ast.Int{Value: 3},
		Op:  ast.Add,
	}
	result, _ := run(t, term)
	require.Equal(t, value.Str{Value: "count: 3"}, result)
}

func TestIfElse(t *testing.T) {
	term := &ast.If{
		Condition: &ast.Binary{Lhs: &ast.Int{Value: 1}, Rhs: &ast.Int{Value: 2}, Op: ast.Lt},
		Then:      &ast.Str{Value: "yes"},
		Otherwise: &ast.Str{Value: "no"},
	}
	result, _ := run(t, term)
	require.Equal(t, value.Str{Value: "yes"}, result)
}

func TestTupleFirstSecond(t *testing.T) {
	term := &ast.First{
		Value: &ast.Tuple{First: &ast.Int{Value: 10}, Second: &ast.Int{Value: 20}},
	}
	result, _ := run(t, term)
	require.Equal(t, value.Int{Value: 10}, result)
}

func TestPrintReturnsItsArgumentAndWritesStdout(t *testing.T) {
	term := &ast.Print{Value: &ast.Int{Value: 99}}
	result, stdout := run(t, term)
	require.Equal(t, value.Int{Value: 99}, result)
	require.Equal(t, "99\n", stdout.String())
}

// recursiveFib builds `let fib = fn(n) { if (n < 2) { n } else { fib(n-1) + fib(n-2) } }; fib(10)`,
// a non-tail-recursive global function exercising ordinary Call dispatch
// and global self-reference resolved dynamically at call time.
func recursiveFib(arg int32) ast.Term {
	fibBody := &ast.If{
		Condition: &ast.Binary{Lhs: &ast.Var{Text: "n"}, Rhs: &ast.Int{Value: 2}, Op: ast.Lt},
		Then:      &ast.Var{Text: "n"},
		Otherwise: &ast.Binary{
			Lhs: &ast.Call{
				Callee:    &ast.Var{Text: "fib"},
				Arguments: []ast.Term{&ast.Binary{Lhs: &ast.Var{Text: "n"}, Rhs: &ast.Int{Value: 1}, Op: ast.Sub}},
			},
			Rhs: &ast.Call{
				Callee:    &ast.Var{Text: "fib"},
				Arguments: []ast.Term{&ast.Binary{Lhs: &ast.Var{Text: "n"}, Rhs: &ast.Int{Value: 2}, Op: ast.Sub}},
			},
			Op: ast.Add,
		},
	}

	return &ast.Let{
		Name:  "fib",
		Value: &ast.Function{Parameters: []ast.Parameter{{Text: "n"}}, Value: fibBody},
		Next: &ast.Call{
			Callee:    &ast.Var{Text: "fib"},
			Arguments: []ast.Term{&ast.Int{Value: arg}},
		},
	}
}

func TestRecursiveGlobalFunction(t *testing.T) {
	result, _ := run(t, recursiveFib(10))
	require.Equal(t, value.Int{Value: 55}, result)
}

// tailCountdown builds `let loop = fn(n, acc) { if (n == 0) { acc } else { loop(n-1, acc+1) } }; loop(iterations, 0)`,
// whose recursive call sits in tail position. acc counts iterations
// rather than summing n, so its final value is just iterations itself
// (no int32 overflow risk) while iterations can still be driven far
// past vm.MaxFrames to prove the call-frame stack stays constant depth.
func tailCountdown(iterations int32) ast.Term {
	body := &ast.If{
		Condition: &ast.Binary{Lhs: &ast.Var{Text: "n"}, Rhs: &ast.Int{Value: 0}, Op: ast.Eq},
		Then:      &ast.Var{Text: "acc"},
		Otherwise: &ast.Call{
			Callee: &ast.Var{Text: "loop"},
			Arguments: []ast.Term{
				&ast.Binary{Lhs: &ast.Var{Text: "n"}, Rhs: &ast.Int{Value: 1}, Op: ast.Sub},
				&ast.Binary{Lhs: &ast.Var{Text: "acc"}, Rhs: &ast.Int{Value: 1}, Op: ast.Add},
			},
		},
	}

	return &ast.Let{
		Name:  "loop",
		Value: &ast.Function{Parameters: []ast.Parameter{{Text: "n"}, {Text: "acc"}}, Value: body},
		Next: &ast.Call{
			Callee:    &ast.Var{Text: "loop"},
			Arguments: []ast.Term{&ast.Int{Value: iterations}, &ast.Int{Value: 0}},
		},
	}
}

func TestTailCallRunsInConstantFrameDepth(t *testing.T) {
	// Far beyond vm.MaxFrames if each iteration grew the call-frame
	// stack; only passes because TailCall reuses the caller's frame.
	result, _ := run(t, tailCountdown(100000))
	require.Equal(t, value.Int{Value: 100000}, result)
}

func TestClosureCapturesEnclosingParameter(t *testing.T) {
	// (fn(a) { fn(b) { a + b } })(10)(5)
	term := &ast.Call{
		Callee: &ast.Call{
			Callee: &ast.Function{
				Parameters: []ast.Parameter{{Text: "a"}},
				Value: &ast.Function{
					Parameters: []ast.Parameter{{Text: "b"}},
					Value: &ast.Binary{
						Lhs: &ast.Var{Text: "a"},
						Rhs: &ast.Var{Text: "b"},
						Op:  ast.Add,
					},
				},
			},
			Arguments: []ast.Term{&ast.Int{Value: 10}},
		},
		Arguments: []ast.Term{&ast.Int{Value: 5}},
	}
	result, _ := run(t, term)
	require.Equal(t, value.Int{Value: 15}, result)
}

func TestDivisionByZeroIsARuntimeError(t *testing.T) {
	var stdout bytes.Buffer
	machine := vm.New(&stdout)
	term := &ast.Binary{Lhs: &ast.Int{Value: 1}, Rhs: &ast.Int{Value: 0}, Op: ast.Div}

	instructions, err := compiler.Compile(term, machine)
	require.NoError(t, err)

	_, err = machine.Run(instructions)
	require.Error(t, err)
	var arithErr *vm.ArithmeticError
	require.ErrorAs(t, err, &arithErr)
}

func TestUnknownGlobalIsARuntimeError(t *testing.T) {
	var stdout bytes.Buffer
	machine := vm.New(&stdout)
	term := &ast.Var{Text: "nope"}

	instructions, err := compiler.Compile(term, machine)
	require.NoError(t, err)

	_, err = machine.Run(instructions)
	require.Error(t, err)
	var lookupErr *vm.LookupError
	require.ErrorAs(t, err, &lookupErr)
}
