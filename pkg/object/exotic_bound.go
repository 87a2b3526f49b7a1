package object

import (
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// BoundFunctionExotic stores the target function, the bound `this`, and
// the bound leading arguments. Calling it is an interpreter concern
// (package interp); this type only carries the data the call family's
// `call`/`new` handlers need to reconstruct the effective argument list.
type BoundFunctionExotic struct {
	*PlainObject
	Target    value.Value
	BoundThis value.Value
	BoundArgs []value.Value
}

func NewBoundFunctionExotic(h *heap.Heap, proto, target, boundThis value.Value, boundArgs []value.Value) *BoundFunctionExotic {
	base := NewPlainObject(h, proto)
	return &BoundFunctionExotic{PlainObject: base, Target: target, BoundThis: boundThis, BoundArgs: append([]value.Value{}, boundArgs...)}
}

func (b *BoundFunctionExotic) Scan(v *heap.Visitor) {
	b.PlainObject.Scan(v)
	v.MarkValue(b.Target)
	v.MarkValue(b.BoundThis)
	for _, a := range b.BoundArgs {
		v.MarkValue(a)
	}
}
