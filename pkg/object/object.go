package object

import (
	"sort"

	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// Obj is the eleven-operation meta-object protocol every object kind
// exposes. Exotic kinds embed *PlainObject and override only the
// operations their exotic behavior actually changes; Go's method
// promotion supplies the "default: delegate to the ordinary
// implementation" behavior for free.
type Obj interface {
	heap.Cell

	GetPrototypeOf() value.Value
	SetPrototypeOf(proto value.Value) bool
	IsExtensible() bool
	PreventExtensions() bool
	GetOwnProperty(key PropertyKey) (Descriptor, bool)
	DefineOwnProperty(key PropertyKey, desc Descriptor) (bool, *errors.ScriptError)
	HasProperty(key PropertyKey) bool
	Get(key PropertyKey, receiver value.Value) (value.Value, *errors.ScriptError)
	Set(key PropertyKey, v value.Value, receiver value.Value) (bool, *errors.ScriptError)
	Delete(key PropertyKey) bool
	OwnPropertyKeys() []PropertyKey

	// Shape exposes the current layout pointer for the interpreter's
	// property-reference inline cache; it is not part of the
	// ECMAScript-visible MOP.
	Shape() *Shape
}

type propSlot struct {
	value  value.Value
	getter value.Value
	setter value.Value
}

// PlainObject is the ordinary object implementation: a Shape (layout)
// plus a parallel slice of value slots, a prototype slot, and an
// extensibility flag. Every exotic kind in this package embeds one.
type PlainObject struct {
	heap.Header
	shape      *Shape
	prototype  value.Value
	extensible bool
	slots      []propSlot

	// Private storage is looked up by PrivateName cell identity, not by
	// PropertyKey, and is never enumerated.
	privateFields map[*PrivateName]value.Value
	privateMethods map[*PrivateName]value.Value
	privateGetters map[*PrivateName]value.Value
	privateSetters map[*PrivateName]value.Value
}

// NewPlainObject allocates (but does not publish) a bare object with the
// given prototype. Callers must call h.Publish once construction is
// complete.
func NewPlainObject(h *heap.Heap, prototype value.Value) *PlainObject {
	o := &PlainObject{shape: RootShape(), prototype: prototype, extensible: true}
	h.NewCell(&o.Header, heap.KindObject)
	return o
}

func (o *PlainObject) Shape() *Shape { return o.shape }

func (o *PlainObject) Scan(v *heap.Visitor) {
	v.MarkValue(o.prototype)
	for _, s := range o.slots {
		v.MarkValue(s.value)
		v.MarkValue(s.getter)
		v.MarkValue(s.setter)
	}
	for _, pv := range o.privateFields {
		v.MarkValue(pv)
	}
	for _, pv := range o.privateMethods {
		v.MarkValue(pv)
	}
	for _, pv := range o.privateGetters {
		v.MarkValue(pv)
	}
	for _, pv := range o.privateSetters {
		v.MarkValue(pv)
	}
}

func (o *PlainObject) Free() {}

func (o *PlainObject) GetPrototypeOf() value.Value { return o.prototype }

func (o *PlainObject) SetPrototypeOf(proto value.Value) bool {
	if value.SameValueZero(proto, o.prototype) {
		return true
	}
	if !o.extensible {
		return false
	}
	// Cycle check: walk the prototype chain of proto looking for o.
	cur := proto
	for cur.IsObject() {
		if cell, ok := cur.HeapCell(); ok {
			if po, ok := cell.(*PlainObject); ok && po == o {
				return false
			}
			obj, ok := cell.(Obj)
			if !ok {
				break
			}
			cur = obj.GetPrototypeOf()
			continue
		}
		break
	}
	o.prototype = proto
	return true
}

func (o *PlainObject) IsExtensible() bool { return o.extensible }

func (o *PlainObject) PreventExtensions() bool {
	o.extensible = false
	return true
}

func (o *PlainObject) GetOwnProperty(key PropertyKey) (Descriptor, bool) {
	f, ok := o.shape.FieldByKey(key)
	if !ok {
		return Descriptor{}, false
	}
	slot := o.slots[f.Offset]
	if f.IsAccessor {
		return AccessorDescriptor(slot.getter, slot.setter, f.Enumerable, f.Configurable), true
	}
	return DataDescriptor(slot.value, f.Writable, f.Enumerable, f.Configurable), true
}

func (o *PlainObject) DefineOwnProperty(key PropertyKey, desc Descriptor) (bool, *errors.ScriptError) {
	current, exists := o.GetOwnProperty(key)
	applied, ok := ValidateAndApplyPropertyDescriptor(current, exists, o.extensible, desc)
	if !ok {
		return false, nil
	}
	if !exists {
		o.shape = o.shape.WithField(key, applied.Writable, applied.Enumerable, applied.Configurable, applied.IsAccessor())
		f, _ := o.shape.FieldByKey(key)
		o.growSlots(f.Offset + 1)
		o.slots[f.Offset] = propSlot{value: applied.Value, getter: applied.Get, setter: applied.Set}
		return true, nil
	}
	f, _ := o.shape.FieldByKey(key)
	if applied.IsAccessor() != f.IsAccessor || applied.Writable != f.Writable ||
		applied.Enumerable != f.Enumerable || applied.Configurable != f.Configurable {
		o.shape = o.shape.WithReconfiguredField(key, applied.Writable, applied.Enumerable, applied.Configurable, applied.IsAccessor())
	}
	o.slots[f.Offset] = propSlot{value: applied.Value, getter: applied.Get, setter: applied.Set}
	return true, nil
}

func (o *PlainObject) growSlots(n int) {
	for len(o.slots) < n {
		o.slots = append(o.slots, propSlot{})
	}
}

func (o *PlainObject) HasProperty(key PropertyKey) bool {
	if _, ok := o.GetOwnProperty(key); ok {
		return true
	}
	proto := o.prototype
	for proto.IsObject() {
		obj, ok := asObj(proto)
		if !ok {
			return false
		}
		if _, ok := obj.GetOwnProperty(key); ok {
			return true
		}
		proto = obj.GetPrototypeOf()
	}
	return false
}

func asObj(v value.Value) (Obj, bool) {
	c, ok := v.HeapCell()
	if !ok {
		return nil, false
	}
	obj, ok := c.(Obj)
	return obj, ok
}

func (o *PlainObject) Get(key PropertyKey, receiver value.Value) (value.Value, *errors.ScriptError) {
	desc, ok := o.GetOwnProperty(key)
	if !ok {
		proto := o.prototype
		if !proto.IsObject() {
			return value.Undefined, nil
		}
		obj, ok := asObj(proto)
		if !ok {
			return value.Undefined, nil
		}
		return obj.Get(key, receiver)
	}
	if desc.IsAccessor() {
		if desc.Get.IsUndefined() {
			return value.Undefined, nil
		}
		return CallGetter(desc.Get, receiver)
	}
	return desc.Value, nil
}

func (o *PlainObject) Set(key PropertyKey, v value.Value, receiver value.Value) (bool, *errors.ScriptError) {
	desc, ok := o.GetOwnProperty(key)
	if !ok {
		proto := o.prototype
		if proto.IsObject() {
			if obj, ok := asObj(proto); ok {
				if obj.HasProperty(key) {
					return obj.Set(key, v, receiver)
				}
			}
		}
		if !o.extensible {
			return false, nil
		}
		return o.DefineOwnProperty(key, DataDescriptor(v, true, true, true))
	}
	if desc.IsAccessor() {
		if desc.Set.IsUndefined() {
			return false, nil
		}
		return CallSetter(desc.Set, receiver, v)
	}
	if !desc.Writable {
		return false, nil
	}
	if !value.SameValueZero(receiver, value.Undefined) {
		if rc, ok := receiver.HeapCell(); ok {
			if ro, ok := rc.(Obj); ok && ro != Obj(o) {
				return ro.DefineOwnProperty(key, DataDescriptor(v, true, desc.Enumerable, desc.Configurable))
			}
		}
	}
	f, _ := o.shape.FieldByKey(key)
	o.slots[f.Offset].value = v
	return true, nil
}

func (o *PlainObject) Delete(key PropertyKey) bool {
	f, ok := o.shape.FieldByKey(key)
	if !ok {
		return true
	}
	if !f.Configurable {
		return false
	}
	o.shape = o.shape.WithoutField(key)
	newSlots := make([]propSlot, 0, len(o.slots)-1)
	for i, s := range o.slots {
		if i == f.Offset {
			continue
		}
		newSlots = append(newSlots, s)
	}
	o.slots = newSlots
	return true
}

// OwnPropertyKeys returns keys in the canonical order: integer-indexed
// keys ascending, then string keys in insertion order, then symbol keys
// in insertion order.
func (o *PlainObject) OwnPropertyKeys() []PropertyKey {
	var indices []int64
	var strs []PropertyKey
	var syms []PropertyKey
	indexOf := map[int64]PropertyKey{}
	for _, f := range o.shape.fields {
		if f.Key.IsString() {
			if idx, ok := f.Key.IndexForm(); ok {
				indices = append(indices, idx)
				indexOf[idx] = f.Key
				continue
			}
			strs = append(strs, f.Key)
		} else {
			syms = append(syms, f.Key)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	out := make([]PropertyKey, 0, len(indices)+len(strs)+len(syms))
	for _, idx := range indices {
		out = append(out, indexOf[idx])
	}
	out = append(out, strs...)
	out = append(out, syms...)
	return out
}

// CallGetter/CallSetter invoke an accessor function. They are declared
// as package-level variables rather than direct calls into package
// interp to avoid an import cycle (object is a dependency of interp);
// the interpreter installs its real call implementation at startup via
// SetAccessorInvoker.
var CallGetter = func(getter value.Value, this value.Value) (value.Value, *errors.ScriptError) {
	return value.Undefined, nil
}

var CallSetter = func(setter value.Value, this value.Value, v value.Value) (bool, *errors.ScriptError) {
	return true, nil
}

// SetAccessorInvoker is called once at runtime startup (package interp)
// to plug in the real Call implementation.
func SetAccessorInvoker(
	get func(value.Value, value.Value) (value.Value, *errors.ScriptError),
	set func(value.Value, value.Value, value.Value) (bool, *errors.ScriptError),
) {
	CallGetter = get
	CallSetter = set
}
