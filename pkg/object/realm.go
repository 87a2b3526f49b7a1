package object

import (
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// Realm is a fresh, independent value universe: a global object, a
// global environment, and a symbol registry. Values do not
// automatically cross realms; the out-of-scope builtins library
// populates GlobalObject, this package only owns the container.
type Realm struct {
	heap.Header
	GlobalObject *PlainObject
	GlobalEnv    *GlobalEnvironment
	symbols      map[string]value.Value // well-known + registered (Symbol.for) symbols
}

func NewRealm(h *heap.Heap) *Realm {
	global := NewPlainObject(h, value.Null)
	h.Publish(global)
	env := NewGlobalEnvironment(h, global)
	r := &Realm{GlobalObject: global, GlobalEnv: env, symbols: map[string]value.Value{}}
	h.NewCell(&r.Header, heap.KindObject)
	return r
}

func (r *Realm) Scan(v *heap.Visitor) {
	v.Mark(r.GlobalObject)
	v.Mark(r.GlobalEnv)
	for _, s := range r.symbols {
		v.MarkValue(s)
	}
}
func (r *Realm) Free() {}

// SymbolFor looks key up in registry, the process-wide Symbol.for table
// that lives on the host runtime (package host) because registered
// symbols are shared across every realm. It returns the zero Value when
// key is not registered; it neither reads nor fills this Realm's own
// symbols map.
func (r *Realm) SymbolFor(key string, registry map[string]value.Value) value.Value {
	if s, ok := registry[key]; ok {
		return s
	}
	return value.Value{}
}
