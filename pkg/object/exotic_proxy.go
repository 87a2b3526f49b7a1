package object

import (
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// ProxyExotic stores a target and a handler; each MOP operation
// dispatches to the handler's matching trap if present, or forwards to
// the target otherwise, except getOwnPropertyDescriptor and ownKeys,
// which always forward to the target. Trap invocation goes through the package-level
// CallTrap indirection (installed by package interp at startup) to avoid
// an object->interp import cycle, exactly like CallGetter/CallSetter in
// object.go.
type ProxyExotic struct {
	heap.Header
	Target  Obj
	Handler *PlainObject
	Revoked bool
}

func NewProxyExotic(h *heap.Heap, target Obj, handler *PlainObject) *ProxyExotic {
	p := &ProxyExotic{Target: target, Handler: handler}
	h.NewCell(&p.Header, heap.KindObject)
	return p
}

func (p *ProxyExotic) Shape() *Shape { return p.Target.Shape() }

func (p *ProxyExotic) Scan(v *heap.Visitor) {
	v.Mark(p.Target)
	v.Mark(p.Handler)
}
func (p *ProxyExotic) Free() {}

func revokedError() *errors.ScriptError {
	return errors.Typef(errors.Position{}, "cannot perform operation on a revoked proxy")
}

func (p *ProxyExotic) trap(name string) (value.Value, bool) {
	if p.Revoked {
		return value.Value{}, false
	}
	v, ok := p.Handler.GetOwn(name)
	if !ok || !isCallable(v) {
		return value.Value{}, false
	}
	return v, true
}

func (o *PlainObject) GetOwn(name string) (value.Value, bool) {
	d, ok := o.GetOwnProperty(StringKey(name))
	if !ok {
		return value.Value{}, false
	}
	return d.Value, true
}

// isCallable and CallTrap are installed by package interp; see
// object.go's SetAccessorInvoker for the rationale.
var isCallable = func(v value.Value) bool { return false }

var CallTrap = func(trap value.Value, args []value.Value) (value.Value, *errors.ScriptError) {
	return value.Undefined, nil
}

// SetProxyInvoker plugs in the real callability check and trap
// invocation once the interpreter is constructed.
func SetProxyInvoker(callable func(value.Value) bool, call func(value.Value, []value.Value) (value.Value, *errors.ScriptError)) {
	isCallable = callable
	CallTrap = call
}

func (p *ProxyExotic) GetPrototypeOf() value.Value {
	if t, ok := p.trap("getPrototypeOf"); ok {
		r, _ := CallTrap(t, []value.Value{value.Obj(p.Target)})
		return r
	}
	return p.Target.GetPrototypeOf()
}

func (p *ProxyExotic) SetPrototypeOf(proto value.Value) bool {
	if t, ok := p.trap("setPrototypeOf"); ok {
		r, _ := CallTrap(t, []value.Value{value.Obj(p.Target), proto})
		return r.ToBoolean()
	}
	return p.Target.SetPrototypeOf(proto)
}

func (p *ProxyExotic) IsExtensible() bool {
	if t, ok := p.trap("isExtensible"); ok {
		r, _ := CallTrap(t, []value.Value{value.Obj(p.Target)})
		return r.ToBoolean()
	}
	return p.Target.IsExtensible()
}

func (p *ProxyExotic) PreventExtensions() bool {
	if t, ok := p.trap("preventExtensions"); ok {
		r, _ := CallTrap(t, []value.Value{value.Obj(p.Target)})
		return r.ToBoolean()
	}
	return p.Target.PreventExtensions()
}

func (p *ProxyExotic) GetOwnProperty(key PropertyKey) (Descriptor, bool) {
	if _, ok := p.trap("getOwnPropertyDescriptor"); ok {
		// Full descriptor marshalling through the trap is a builtins-
		// library concern (constructing/destructuring the descriptor
		// object); the core forwards to the target for fidelity here.
		return p.Target.GetOwnProperty(key)
	}
	return p.Target.GetOwnProperty(key)
}

func (p *ProxyExotic) DefineOwnProperty(key PropertyKey, desc Descriptor) (bool, *errors.ScriptError) {
	if p.Revoked {
		return false, revokedError()
	}
	if t, ok := p.trap("defineProperty"); ok {
		r, err := CallTrap(t, []value.Value{value.Obj(p.Target), keyAsValue(key)})
		return r.ToBoolean(), err
	}
	return p.Target.DefineOwnProperty(key, desc)
}

func (p *ProxyExotic) HasProperty(key PropertyKey) bool {
	if t, ok := p.trap("has"); ok {
		r, _ := CallTrap(t, []value.Value{value.Obj(p.Target), keyAsValue(key)})
		return r.ToBoolean()
	}
	return p.Target.HasProperty(key)
}

func (p *ProxyExotic) Get(key PropertyKey, receiver value.Value) (value.Value, *errors.ScriptError) {
	if p.Revoked {
		return value.Value{}, revokedError()
	}
	if t, ok := p.trap("get"); ok {
		return CallTrap(t, []value.Value{value.Obj(p.Target), keyAsValue(key), receiver})
	}
	return p.Target.Get(key, receiver)
}

func (p *ProxyExotic) Set(key PropertyKey, v value.Value, receiver value.Value) (bool, *errors.ScriptError) {
	if p.Revoked {
		return false, revokedError()
	}
	if t, ok := p.trap("set"); ok {
		r, err := CallTrap(t, []value.Value{value.Obj(p.Target), keyAsValue(key), v, receiver})
		return r.ToBoolean(), err
	}
	return p.Target.Set(key, v, receiver)
}

func (p *ProxyExotic) Delete(key PropertyKey) bool {
	if t, ok := p.trap("deleteProperty"); ok {
		r, _ := CallTrap(t, []value.Value{value.Obj(p.Target), keyAsValue(key)})
		return r.ToBoolean()
	}
	return p.Target.Delete(key)
}

func (p *ProxyExotic) OwnPropertyKeys() []PropertyKey {
	if _, ok := p.trap("ownKeys"); ok {
		// Marshalling the trap's array result back into []PropertyKey is
		// a builtins-library concern; forward for fidelity here.
		return p.Target.OwnPropertyKeys()
	}
	return p.Target.OwnPropertyKeys()
}

func keyAsValue(key PropertyKey) value.Value {
	if key.IsSymbol() {
		return key.sym
	}
	return value.StrVal(key.str)
}
