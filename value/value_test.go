package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VFabricio/rinha-vm/value"
)

func TestDisplay(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want string
	}{
		{"true", value.Bool{Value: true}, "true"},
		{"false", value.Bool{Value: false}, "false"},
		{"positive int", value.Int{Value: 42}, "42"},
		{"negative int", value.Int{Value: -7}, "-7"},
		{"string", value.Str{Value: "hello"}, "hello"},
		{"tuple", value.Tuple{First: value.Int{Value: 1}, Second: value.Bool{Value: true}}, "(1, true)"},
		{"nested tuple", value.Tuple{
			First:  value.Tuple{First: value.Int{Value: 1}, Second: value.Int{Value: 2}},
			Second: value.Str{Value: "x"},
		}, "((1, 2), x)"},
		{"closure", value.Closure{}, "<#closure>"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.v.Display())
		})
	}
}

func TestEqual(t *testing.T) {
	require.True(t, value.Equal(value.Int{Value: 3}, value.Int{Value: 3}))
	require.False(t, value.Equal(value.Int{Value: 3}, value.Int{Value: 4}))
	require.False(t, value.Equal(value.Int{Value: 3}, value.Bool{Value: true}))
	require.True(t, value.Equal(value.Str{Value: "a"}, value.Str{Value: "a"}))
	require.True(t, value.Equal(
		value.Tuple{First: value.Int{Value: 1}, Second: value.Int{Value: 2}},
		value.Tuple{First: value.Int{Value: 1}, Second: value.Int{Value: 2}},
	))
	require.False(t, value.Equal(
		value.Tuple{First: value.Int{Value: 1}, Second: value.Int{Value: 2}},
		value.Tuple{First: value.Int{Value: 1}, Second: value.Int{Value: 3}},
	))
	// Two closures are never equal, even to themselves (§9 Open Questions).
	c := value.Closure{FunctionIndex: 0}
	require.False(t, value.Equal(c, c))
}

func TestDisplayAsAddend(t *testing.T) {
	s, err := value.DisplayAsAddend(value.Str{Value: "foo"})
	require.NoError(t, err)
	require.Equal(t, "foo", s)

	s, err = value.DisplayAsAddend(value.Int{Value: -3})
	require.NoError(t, err)
	require.Equal(t, "-3", s)

	_, err = value.DisplayAsAddend(value.Bool{Value: true})
	require.Error(t, err)
}

func TestToFinalCollapsesClosures(t *testing.T) {
	closure := value.Closure{FunctionIndex: 5, Captured: []value.Binding{{Name: "x", Value: value.Int{Value: 1}}}}
	final := value.ToFinal(closure)
	require.Equal(t, value.FinalClosure{}, final)
	require.Equal(t, "<#closure>", final.Display())

	tuple := value.Tuple{First: closure, Second: value.Int{Value: 9}}
	finalTuple, ok := value.ToFinal(tuple).(value.FinalTuple)
	require.True(t, ok)
	require.Equal(t, value.FinalClosure{}, finalTuple.First)
	require.Equal(t, "(<#closure>, 9)", finalTuple.Display())
}
