package object

import (
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// StringExotic wraps a boxed primitive string (`new String("x")`);
// integer-indexed own properties up to length are synthesized
// read-only, non-configurable, enumerable data properties backed by the
// underlying code unit sequence rather than stored in the property
// table.
type StringExotic struct {
	*PlainObject
	Value *value.InternedString
}

func NewStringExotic(h *heap.Heap, proto value.Value, s *value.InternedString) *StringExotic {
	base := NewPlainObject(h, proto)
	se := &StringExotic{PlainObject: base, Value: s}
	_, _ = base.DefineOwnProperty(StringKey(lengthKeyStr), DataDescriptor(value.Number(float64(len([]rune(s.Canonical())))), false, false, false))
	return se
}

func (se *StringExotic) runes() []rune { return []rune(se.Value.Canonical()) }

func (se *StringExotic) GetOwnProperty(key PropertyKey) (Descriptor, bool) {
	if idx, ok := key.IndexForm(); ok {
		r := se.runes()
		if idx >= 0 && int(idx) < len(r) {
			return DataDescriptor(value.Str(string(r[idx])), false, true, false), true
		}
		return Descriptor{}, false
	}
	return se.PlainObject.GetOwnProperty(key)
}

func (se *StringExotic) HasProperty(key PropertyKey) bool {
	if idx, ok := key.IndexForm(); ok {
		return idx >= 0 && int(idx) < len(se.runes())
	}
	return se.PlainObject.HasProperty(key)
}

func (se *StringExotic) Get(key PropertyKey, receiver value.Value) (value.Value, *errors.ScriptError) {
	if d, ok := se.GetOwnProperty(key); ok {
		return d.Value, nil
	}
	return se.PlainObject.Get(key, receiver)
}

func (se *StringExotic) DefineOwnProperty(key PropertyKey, desc Descriptor) (bool, *errors.ScriptError) {
	if idx, ok := key.IndexForm(); ok {
		r := se.runes()
		if idx >= 0 && int(idx) < len(r) {
			return false, nil // string indices are never configurable
		}
	}
	return se.PlainObject.DefineOwnProperty(key, desc)
}

func (se *StringExotic) OwnPropertyKeys() []PropertyKey {
	r := se.runes()
	keys := make([]PropertyKey, 0, len(r)+4)
	for i := range r {
		keys = append(keys, StringKey(value.IntFromIndex(int64(i)).Canonical()))
	}
	keys = append(keys, se.PlainObject.OwnPropertyKeys()...)
	return keys
}
