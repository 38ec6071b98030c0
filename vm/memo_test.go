package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VFabricio/rinha-vm/value"
)

func TestUnaryIntKeyEligibility(t *testing.T) {
	fn := &value.Function{Index: 3}

	_, ok := unaryIntKey(fn, []value.Value{value.Int{Value: 5}})
	require.True(t, ok)

	_, ok = unaryIntKey(fn, []value.Value{value.Str{Value: "5"}})
	require.False(t, ok)

	_, ok = unaryIntKey(fn, []value.Value{value.Int{Value: 1}, value.Int{Value: 2}})
	require.False(t, ok)

	_, ok = unaryIntKey(fn, nil)
	require.False(t, ok)
}

func TestMemoTableRecordAndLookup(t *testing.T) {
	m := newMemoTable()
	key := memoKey{functionIndex: 1, arg: 7}

	_, hit := m.lookup(key)
	require.False(t, hit)

	m.record(key, value.Int{Value: 42})

	v, hit := m.lookup(key)
	require.True(t, hit)
	require.Equal(t, value.Int{Value: 42}, v)
}

func TestMemoKeyDistinguishesFunctionIndex(t *testing.T) {
	m := newMemoTable()
	m.record(memoKey{functionIndex: 1, arg: 7}, value.Int{Value: 1})
	m.record(memoKey{functionIndex: 2, arg: 7}, value.Int{Value: 2})

	v1, _ := m.lookup(memoKey{functionIndex: 1, arg: 7})
	v2, _ := m.lookup(memoKey{functionIndex: 2, arg: 7})
	require.Equal(t, value.Int{Value: 1}, v1)
	require.Equal(t, value.Int{Value: 2}, v2)
}
