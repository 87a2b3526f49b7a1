package object

import (
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// IntegerIndexedExotic is the TypedArray view exotic kind: numeric keys
// within [0, length) bypass the property table entirely and read/write
// straight through to the backing element slice. The element kind
// (Int8Array vs Float64Array, …) and the coercion rules for
// writes are a builtins-library concern; this core only owns the
// exotic-object dispatch shape the builtins library plugs element
// coercion into via Coerce.
type IntegerIndexedExotic struct {
	*PlainObject
	Buffer []value.Value
	// Coerce converts a value.Value to the element kind's canonical
	// numeric form before storage (e.g. ToInt8, ToUint32, …). Defaults to
	// identity; the builtins library overrides it per element kind.
	Coerce func(value.Value) value.Value
}

func NewIntegerIndexedExotic(h *heap.Heap, proto value.Value, length int) *IntegerIndexedExotic {
	base := NewPlainObject(h, proto)
	buf := make([]value.Value, length)
	for i := range buf {
		buf[i] = value.Number(0)
	}
	return &IntegerIndexedExotic{PlainObject: base, Buffer: buf, Coerce: func(v value.Value) value.Value { return v }}
}

func (ia *IntegerIndexedExotic) inBounds(idx int64) bool {
	return idx >= 0 && int(idx) < len(ia.Buffer)
}

func (ia *IntegerIndexedExotic) GetOwnProperty(key PropertyKey) (Descriptor, bool) {
	if idx, ok := key.IndexForm(); ok {
		if !ia.inBounds(idx) {
			return Descriptor{}, false
		}
		return DataDescriptor(ia.Buffer[idx], true, true, true), true
	}
	return ia.PlainObject.GetOwnProperty(key)
}

func (ia *IntegerIndexedExotic) HasProperty(key PropertyKey) bool {
	if idx, ok := key.IndexForm(); ok {
		return ia.inBounds(idx)
	}
	return ia.PlainObject.HasProperty(key)
}

func (ia *IntegerIndexedExotic) Get(key PropertyKey, receiver value.Value) (value.Value, *errors.ScriptError) {
	if idx, ok := key.IndexForm(); ok {
		if !ia.inBounds(idx) {
			return value.Undefined, nil
		}
		return ia.Buffer[idx], nil
	}
	return ia.PlainObject.Get(key, receiver)
}

func (ia *IntegerIndexedExotic) Set(key PropertyKey, v value.Value, receiver value.Value) (bool, *errors.ScriptError) {
	if idx, ok := key.IndexForm(); ok {
		if !ia.inBounds(idx) {
			return true, nil // out-of-bounds integer-indexed writes are silently ignored
		}
		ia.Buffer[idx] = ia.Coerce(v)
		return true, nil
	}
	return ia.PlainObject.Set(key, v, receiver)
}

func (ia *IntegerIndexedExotic) DefineOwnProperty(key PropertyKey, desc Descriptor) (bool, *errors.ScriptError) {
	if idx, ok := key.IndexForm(); ok {
		if !ia.inBounds(idx) || desc.IsAccessor() {
			return false, nil
		}
		if desc.HasValue {
			ia.Buffer[idx] = ia.Coerce(desc.Value)
		}
		return true, nil
	}
	return ia.PlainObject.DefineOwnProperty(key, desc)
}

func (ia *IntegerIndexedExotic) Delete(key PropertyKey) bool {
	if idx, ok := key.IndexForm(); ok {
		return !ia.inBounds(idx)
	}
	return ia.PlainObject.Delete(key)
}

func (ia *IntegerIndexedExotic) OwnPropertyKeys() []PropertyKey {
	keys := make([]PropertyKey, 0, len(ia.Buffer))
	for i := range ia.Buffer {
		keys = append(keys, StringKey(value.IntFromIndex(int64(i)).Canonical()))
	}
	return append(keys, ia.PlainObject.OwnPropertyKeys()...)
}

func (ia *IntegerIndexedExotic) Scan(v *heap.Visitor) {
	ia.PlainObject.Scan(v)
	for _, e := range ia.Buffer {
		v.MarkValue(e)
	}
}
