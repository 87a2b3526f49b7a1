package object

import (
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// ArgumentsExotic is the `arguments` object. In mapped mode (sloppy-mode
// functions with simple parameter lists) numeric indices are re-routed
// through the backing environment so `arguments[0] = x` also updates the
// corresponding parameter, and vice versa.
type ArgumentsExotic struct {
	*PlainObject
	mappedNames []string // mappedNames[i] is the parameter name backing index i, "" if unmapped
	paramEnv    Environment
}

func NewArgumentsExotic(h *heap.Heap, proto value.Value, args []value.Value, mapped []string, paramEnv Environment) *ArgumentsExotic {
	base := NewPlainObject(h, proto)
	a := &ArgumentsExotic{PlainObject: base, mappedNames: mapped, paramEnv: paramEnv}
	for i, v := range args {
		_, _ = base.DefineOwnProperty(StringKey(value.IntFromIndex(int64(i)).Canonical()), DataDescriptor(v, true, true, true))
	}
	_, _ = base.DefineOwnProperty(StringKey("length"), DataDescriptor(value.Number(float64(len(args))), true, false, true))
	return a
}

func (a *ArgumentsExotic) mappedParam(key PropertyKey) (string, bool) {
	idx, ok := key.IndexForm()
	if !ok || a.paramEnv == nil || int(idx) >= len(a.mappedNames) {
		return "", false
	}
	name := a.mappedNames[idx]
	return name, name != ""
}

func (a *ArgumentsExotic) Get(key PropertyKey, receiver value.Value) (value.Value, *errors.ScriptError) {
	if name, ok := a.mappedParam(key); ok {
		return a.paramEnv.GetBindingValue(name, false)
	}
	return a.PlainObject.Get(key, receiver)
}

func (a *ArgumentsExotic) Set(key PropertyKey, v value.Value, receiver value.Value) (bool, *errors.ScriptError) {
	if name, ok := a.mappedParam(key); ok {
		if err := a.paramEnv.SetMutableBinding(name, v, false); err != nil {
			return false, err
		}
	}
	return a.PlainObject.Set(key, v, receiver)
}

func (a *ArgumentsExotic) Scan(v *heap.Visitor) {
	a.PlainObject.Scan(v)
	if a.paramEnv != nil {
		v.Mark(a.paramEnv)
	}
}
