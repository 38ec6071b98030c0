package code_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VFabricio/rinha-vm/code"
)

func TestMakeAndReadOperands(t *testing.T) {
	cases := []struct {
		op        code.Opcode
		operands  []int
		wantWidth int
	}{
		{code.Constant, []int{65534}, 2},
		{code.LocalGet, []int{3, 200}, 4},
		{code.If, []int{70000}, 4},
		{code.Call, []int{2}, 2},
		{code.Return, []int{0}, 2},
	}

	for _, tt := range cases {
		ins := code.Make(tt.op, tt.operands...)
		require.Equal(t, byte(tt.op), ins[0])

		def, err := code.Lookup(byte(tt.op))
		require.NoError(t, err)

		operands, n := code.ReadOperands(def, ins[1:])
		require.Equal(t, tt.wantWidth, n)
		require.Equal(t, tt.operands, operands)
	}
}

func TestInstructionsString(t *testing.T) {
	instructions := []code.Instructions{
		code.Make(code.Constant, 1),
		code.Make(code.Add),
		code.Make(code.LocalGet, 0, 2),
		code.Make(code.Return, 1),
	}

	var concatted code.Instructions
	for _, ins := range instructions {
		concatted = append(concatted, ins...)
	}

	want := "0000 Constant 1\n0003 Add\n0004 LocalGet 0 2\n0009 Return 1\n"
	require.Equal(t, want, concatted.String())
}

func TestLookupUndefinedOpcode(t *testing.T) {
	_, err := code.Lookup(255)
	require.Error(t, err)
}
