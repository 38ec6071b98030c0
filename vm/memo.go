package vm

import "github.com/VFabricio/rinha-vm/value"

// memoKey identifies a memoized call: the function table index (not
// closure identity, §4.3) and the single integer argument.
type memoKey struct {
	functionIndex uint16
	arg           int32
}

// memoTable is the single global cache of pure unary-int calls. No
// eviction: it grows for the VM's lifetime (§4.3).
type memoTable struct {
	entries map[memoKey]value.Value
}

func newMemoTable() *memoTable {
	return &memoTable{entries: make(map[memoKey]value.Value)}
}

func (m *memoTable) lookup(key memoKey) (value.Value, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *memoTable) record(key memoKey, v value.Value) {
	m.entries[key] = v
}

// unaryIntKey reports the memoization key for a call to fn with the
// given argument stack value, and whether that call is even eligible
// for memoization: exactly one argument, and that argument is an Int.
func unaryIntKey(fn *value.Function, args []value.Value) (memoKey, bool) {
	if len(args) != 1 {
		return memoKey{}, false
	}
	i, ok := args[0].(value.Int)
	if !ok {
		return memoKey{}, false
	}
	return memoKey{functionIndex: fn.Index, arg: i.Value}, true
}
