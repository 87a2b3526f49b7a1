package object

import (
	"esrt/pkg/errors"
	"esrt/pkg/value"
)

// PrivateEnvironment is a linked chain of scopes holding sets of
// declared private names, parallel to the ordinary environment chain
// and active inside class bodies.
type PrivateEnvironment struct {
	Outer *PrivateEnvironment
	Names map[string]*PrivateName // description -> cell declared in this scope
}

func NewPrivateEnvironment(outer *PrivateEnvironment) *PrivateEnvironment {
	return &PrivateEnvironment{Outer: outer, Names: map[string]*PrivateName{}}
}

// Resolve looks up the PrivateName cell for a syntactic `#x` by walking
// outward from the innermost class scope. Returns (nil, false) if no
// enclosing class declares it — a syntax-time condition the compiler
// turns into a SyntaxError.
func (pe *PrivateEnvironment) Resolve(desc string) (*PrivateName, bool) {
	for e := pe; e != nil; e = e.Outer {
		if n, ok := e.Names[desc]; ok {
			return n, true
		}
	}
	return nil, false
}

// GetPrivateField reads a private field/method/getter on o by cell
// identity. Accessing an undeclared private name is a TypeError at
// runtime if it somehow reaches this path unguarded by the compiler's
// static check.
func (o *PlainObject) GetPrivateField(name *PrivateName) (value.Value, *errors.ScriptError) {
	if v, ok := o.privateFields[name]; ok {
		return v, nil
	}
	if v, ok := o.privateMethods[name]; ok {
		return v, nil
	}
	if g, ok := o.privateGetters[name]; ok {
		if g.IsUndefined() {
			return value.Value{}, errors.Typef(errors.Position{}, "'#%s' was defined without a getter", name.Description)
		}
		return CallGetter(g, value.Obj(o))
	}
	return value.Value{}, errors.Typef(errors.Position{}, "cannot read private member #%s from an object whose class did not declare it", name.Description)
}

func (o *PlainObject) SetPrivateField(name *PrivateName, v value.Value) *errors.ScriptError {
	if _, ok := o.privateMethods[name]; ok {
		return errors.Typef(errors.Position{}, "'#%s' was defined without a setter", name.Description)
	}
	if s, ok := o.privateSetters[name]; ok {
		if s.IsUndefined() {
			return errors.Typef(errors.Position{}, "'#%s' was defined without a setter", name.Description)
		}
		_, err := CallSetter(s, value.Obj(o), v)
		return err
	}
	if _, ok := o.privateFields[name]; ok {
		if o.privateFields == nil {
			o.privateFields = map[*PrivateName]value.Value{}
		}
		o.privateFields[name] = v
		return nil
	}
	return errors.Typef(errors.Position{}, "cannot write private member #%s to an object whose class did not declare it", name.Description)
}

// DeclarePrivateField installs storage for a fresh `#x` at class
// evaluation time: a fresh private-name cell is installed for each
// declared #x.
func (o *PlainObject) DeclarePrivateField(name *PrivateName, initial value.Value) {
	if o.privateFields == nil {
		o.privateFields = map[*PrivateName]value.Value{}
	}
	o.privateFields[name] = initial
}

func (o *PlainObject) DeclarePrivateMethod(name *PrivateName, fn value.Value) {
	if o.privateMethods == nil {
		o.privateMethods = map[*PrivateName]value.Value{}
	}
	o.privateMethods[name] = fn
}

func (o *PlainObject) DeclarePrivateAccessor(name *PrivateName, get, set value.Value) {
	if o.privateGetters == nil {
		o.privateGetters = map[*PrivateName]value.Value{}
	}
	if o.privateSetters == nil {
		o.privateSetters = map[*PrivateName]value.Value{}
	}
	o.privateGetters[name] = get
	o.privateSetters[name] = set
}

// HasPrivateField reports whether o carries storage for name — the
// runtime-side half of the `#x in obj` brand check.
func (o *PlainObject) HasPrivateField(name *PrivateName) bool {
	if _, ok := o.privateFields[name]; ok {
		return true
	}
	if _, ok := o.privateMethods[name]; ok {
		return true
	}
	if _, ok := o.privateGetters[name]; ok {
		return true
	}
	_, ok := o.privateSetters[name]
	return ok
}
