package object

import (
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

const lengthKeyStr = "length"

// ArrayExotic overrides DefineOwnProperty to enforce the Array length
// invariant: length always equals one past the largest integer-named
// own property, and assigning a smaller length deletes excess indices in
// descending order.
type ArrayExotic struct {
	*PlainObject
}

func NewArrayExotic(h *heap.Heap, proto value.Value) *ArrayExotic {
	base := NewPlainObject(h, proto)
	a := &ArrayExotic{PlainObject: base}
	// length starts writable, non-enumerable, non-configurable, value 0.
	_, _ = base.DefineOwnProperty(StringKey(lengthKeyStr), DataDescriptor(value.Number(0), true, false, false))
	return a
}

func (a *ArrayExotic) length() uint32 {
	desc, _ := a.PlainObject.GetOwnProperty(StringKey(lengthKeyStr))
	return uint32(desc.Value.AsNumber())
}

func (a *ArrayExotic) setLength(n uint32, writable bool) {
	_, _ = a.PlainObject.DefineOwnProperty(StringKey(lengthKeyStr), DataDescriptor(value.Number(float64(n)), writable, false, false))
}

func (a *ArrayExotic) DefineOwnProperty(key PropertyKey, desc Descriptor) (bool, *errors.ScriptError) {
	if key.IsString() && key.str.Canonical() == lengthKeyStr {
		return a.defineLength(desc)
	}
	if idx, ok := key.IndexForm(); ok {
		oldLen := a.length()
		lenDesc, _ := a.PlainObject.GetOwnProperty(StringKey(lengthKeyStr))
		if uint64(idx) >= uint64(oldLen) && !lenDesc.Writable {
			return false, nil
		}
		ok, err := a.PlainObject.DefineOwnProperty(key, desc)
		if err != nil || !ok {
			return ok, err
		}
		if uint64(idx) >= uint64(oldLen) {
			a.setLength(uint32(idx)+1, lenDesc.Writable)
		}
		return true, nil
	}
	return a.PlainObject.DefineOwnProperty(key, desc)
}

func (a *ArrayExotic) defineLength(desc Descriptor) (bool, *errors.ScriptError) {
	if !desc.HasValue {
		return a.PlainObject.DefineOwnProperty(StringKey(lengthKeyStr), desc)
	}
	newLen := uint32(desc.Value.AsNumber())
	if float64(newLen) != desc.Value.AsNumber() {
		return false, errors.Rangef(errors.Position{}, "invalid array length")
	}
	oldDesc, _ := a.PlainObject.GetOwnProperty(StringKey(lengthKeyStr))
	oldLen := uint32(oldDesc.Value.AsNumber())
	if newLen >= oldLen {
		desc.Value = value.Number(float64(newLen))
		return a.PlainObject.DefineOwnProperty(StringKey(lengthKeyStr), desc)
	}
	if !oldDesc.Writable {
		return false, nil
	}
	newWritable := true
	if desc.HasWritable && !desc.Writable {
		newWritable = false
	}
	// OwnPropertyKeys returns integer indices ascending; walk in reverse
	// to delete excess indices in descending order.
	keys := a.PlainObject.OwnPropertyKeys()
	for i := len(keys) - 1; i >= 0; i-- {
		idx, ok := keys[i].IndexForm()
		if !ok || uint32(idx) < newLen {
			continue
		}
		d, _ := a.PlainObject.GetOwnProperty(keys[i])
		if !d.Configurable {
			a.setLength(uint32(idx)+1, newWritable)
			return false, nil
		}
		a.PlainObject.Delete(keys[i])
	}
	a.setLength(newLen, newWritable)
	return true, nil
}

func (a *ArrayExotic) Length() uint32 { return a.length() }
