package interp

import (
	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// objectPrototype is the prototype newly-created plain objects and
// arrays inherit from. It is always null: nothing installs an
// Object.prototype/Array.prototype onto the realm, so property lookups
// simply stop at the object's own properties, which is
// observably correct for every operation this package itself performs.
func (it *Interp) objectPrototype() value.Value { return value.Null }

func (it *Interp) newArray(elems []value.Value) value.Value {
	arr := object.NewArrayExotic(it.Heap, it.objectPrototype())
	it.Heap.Publish(arr)
	for i, e := range elems {
		_, _ = arr.DefineOwnProperty(object.StringKey(itoa(i)), object.DataDescriptor(e, true, true, true))
	}
	return value.Obj(arr)
}

func (it *Interp) propName(f *Frame, nameIdx uint16) object.PropertyKey {
	return object.StringKey(f.proto.Constants[nameIdx].AsString().Canonical())
}

func (it *Interp) keyAsValue(key object.PropertyKey) value.Value {
	if key.IsSymbol() {
		return key.Symbol()
	}
	return value.StrVal(key.String())
}

func (it *Interp) getProperty(v value.Value, key object.PropertyKey) (value.Value, *errors.ScriptError) {
	if v.IsString() {
		se := object.NewStringExotic(it.Heap, it.objectPrototype(), v.AsString())
		it.Heap.Publish(se)
		return se.Get(key, v)
	}
	obj, ok := it.asObj(v)
	if !ok {
		return value.Value{}, errors.Typef(errors.Position{}, "cannot read properties of %s", typeofString(v))
	}
	return obj.Get(key, v)
}

func (it *Interp) setProperty(v value.Value, key object.PropertyKey, val value.Value) *errors.ScriptError {
	obj, ok := it.asObj(v)
	if !ok {
		if v.IsNullish() {
			return errors.Typef(errors.Position{}, "cannot set properties of %s", typeofString(v))
		}
		return nil // primitive wrapper write: silently discarded, as for a non-strict property set on a primitive
	}
	_, err := obj.Set(key, val, v)
	return err
}

func (it *Interp) getIndexed(arr, idx value.Value) (value.Value, *errors.ScriptError) {
	key, err := it.toPropertyKeyValue(idx)
	if err != nil {
		return value.Value{}, err
	}
	return it.getProperty(arr, key)
}

func (it *Interp) setIndexed(arr, idx, val value.Value) *errors.ScriptError {
	key, err := it.toPropertyKeyValue(idx)
	if err != nil {
		return err
	}
	return it.setProperty(arr, key, val)
}

func (it *Interp) getLength(v value.Value) (float64, *errors.ScriptError) {
	if v.IsString() {
		return float64(v.AsString().Len()), nil
	}
	prop, err := it.getProperty(v, object.StringKey("length"))
	if err != nil {
		return 0, err
	}
	return it.toNumber(prop)
}

// arraySlice implements the OpArraySlice primitive the compiler uses for
// rest-parameter extraction: elements from array[start:] as a fresh
// array.
func (it *Interp) arraySlice(arr, startVal value.Value) (value.Value, *errors.ScriptError) {
	length, err := it.getLength(arr)
	if err != nil {
		return value.Value{}, err
	}
	start, err := it.toNumber(startVal)
	if err != nil {
		return value.Value{}, err
	}
	var out []value.Value
	for i := int(start); i < int(length); i++ {
		v, err := it.getIndexed(arr, value.Number(float64(i)))
		if err != nil {
			return value.Value{}, err
		}
		out = append(out, v)
	}
	return it.newArray(out), nil
}

// arraySpreadInto appends every element of src onto the array already in
// dest, returning dest. Used to lower array-literal/call-argument spread
// elements, which the compiler desugars through compileArrayLiteral.
func (it *Interp) arraySpreadInto(dest, src value.Value) (value.Value, *errors.ScriptError) {
	destObj, ok := it.asObj(dest)
	if !ok {
		return value.Value{}, errors.Typef(errors.Position{}, "spread target is not an array")
	}
	destLen, err := it.getLength(dest)
	if err != nil {
		return value.Value{}, err
	}
	err2 := it.forOfEach(src, func(v value.Value) *errors.ScriptError {
		_, serr := destObj.DefineOwnProperty(object.StringKey(itoa(int(destLen))), object.DataDescriptor(v, true, true, true))
		destLen++
		return serr
	})
	if err2 != nil {
		return value.Value{}, err2
	}
	return dest, nil
}

func (it *Interp) objectSpreadInto(dest, src value.Value) *errors.ScriptError {
	destObj, ok := it.asObj(dest)
	if !ok {
		return errors.Typef(errors.Position{}, "spread target is not an object")
	}
	if src.IsNullish() {
		return nil // spreading null/undefined into an object literal is a no-op
	}
	srcObj, ok := it.asObj(src)
	if !ok {
		return nil
	}
	for _, key := range srcObj.OwnPropertyKeys() {
		desc, ok := srcObj.GetOwnProperty(key)
		if !ok || !desc.Enumerable {
			continue
		}
		v, err := srcObj.Get(key, src)
		if err != nil {
			return err
		}
		if _, err := destObj.DefineOwnProperty(key, object.DataDescriptor(v, true, true, true)); err != nil {
			return err
		}
	}
	return nil
}

// copyObjectExcluding implements the `const {a, ...rest} = obj` rest
// pattern: every own enumerable property of src except those in
// excluded.
func (it *Interp) copyObjectExcluding(src value.Value, excluded []object.PropertyKey) (value.Value, *errors.ScriptError) {
	dest := object.NewPlainObject(it.Heap, it.objectPrototype())
	it.Heap.Publish(dest)
	if src.IsNullish() {
		return value.Obj(dest), nil
	}
	srcObj, ok := it.asObj(src)
	if !ok {
		return value.Obj(dest), nil
	}
	for _, key := range srcObj.OwnPropertyKeys() {
		skip := false
		for _, ex := range excluded {
			if ex.Equal(key) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		desc, ok := srcObj.GetOwnProperty(key)
		if !ok || !desc.Enumerable {
			continue
		}
		v, err := srcObj.Get(key, src)
		if err != nil {
			return value.Value{}, err
		}
		if _, err := dest.DefineOwnProperty(key, object.DataDescriptor(v, true, true, true)); err != nil {
			return value.Value{}, err
		}
	}
	return value.Obj(dest), nil
}

func (it *Interp) ownKeysArray(v value.Value) value.Value {
	obj, ok := it.asObj(v)
	if !ok {
		return it.newArray(nil)
	}
	keys := obj.OwnPropertyKeys()
	out := make([]value.Value, 0, len(keys))
	for _, k := range keys {
		if k.IsSymbol() {
			continue
		}
		out = append(out, it.keyAsValue(k))
	}
	return it.newArray(out)
}

func (it *Interp) defineAccessor(target value.Value, key object.PropertyKey, getter, setter value.Value) {
	obj, ok := it.asObj(target)
	if !ok {
		return
	}
	current, exists := obj.GetOwnProperty(key)
	desc := object.Descriptor{Enumerable: false, Configurable: true, HasEnumerable: true, HasConfigurable: true}
	if exists && current.IsAccessor() {
		desc.Get, desc.Set = current.Get, current.Set
	}
	if !getter.IsUndefined() {
		desc.Get, desc.HasGet = getter, true
	} else if !exists {
		desc.HasGet = true
	}
	if !setter.IsUndefined() {
		desc.Set, desc.HasSet = setter, true
	} else if !exists {
		desc.HasSet = true
	}
	_, _ = obj.DefineOwnProperty(key, desc)
}

func (it *Interp) getSuperProperty(f *Frame, key object.PropertyKey) (value.Value, *errors.ScriptError) {
	if !f.hasHome {
		return value.Value{}, errors.Referencef(errors.Position{}, "'super' keyword is only valid inside a method")
	}
	homeObj, ok := it.asObj(f.homeObject)
	if !ok {
		return value.Value{}, errors.Typef(errors.Position{}, "home object has no prototype")
	}
	proto := homeObj.GetPrototypeOf()
	protoObj, ok := it.asObj(proto)
	if !ok {
		return value.Undefined, nil
	}
	return protoObj.Get(key, f.thisValue)
}

func (it *Interp) setSuperProperty(f *Frame, key object.PropertyKey, v value.Value) *errors.ScriptError {
	if !f.hasHome {
		return errors.Referencef(errors.Position{}, "'super' keyword is only valid inside a method")
	}
	homeObj, ok := it.asObj(f.homeObject)
	if !ok {
		return errors.Typef(errors.Position{}, "home object has no prototype")
	}
	proto := homeObj.GetPrototypeOf()
	protoObj, ok := it.asObj(proto)
	if !ok {
		return nil
	}
	_, err := protoObj.Set(key, v, f.thisValue)
	return err
}

// globalNameAt/resolveBindingRef/setBindingRef/initBindingRef implement
// the dynamically-resolved half of variable access: a BindingRef entry
// is either BindingGlobal (routed through the realm's global
// environment by name) or BindingModuleImport (routed to the owning
// module's environment, wired in by pkg/modules at link time).
func (it *Interp) globalNameAt(f *Frame, idx uint16) string {
	return f.proto.BindingRefs[idx].Name
}

func (it *Interp) resolveBindingRef(f *Frame, idx uint16, strictRead bool) (value.Value, *errors.ScriptError) {
	ref := f.proto.BindingRefs[idx]
	switch ref.Kind {
	case bytecode.BindingModuleImport:
		return it.resolveModuleImport(ref.Name)
	default:
		if !strictRead && !it.Realm.GlobalEnv.HasBinding(ref.Name) {
			return value.Undefined, nil
		}
		return it.Realm.GlobalEnv.GetBindingValue(ref.Name, false)
	}
}

func (it *Interp) setBindingRef(f *Frame, idx uint16, v value.Value) *errors.ScriptError {
	ref := f.proto.BindingRefs[idx]
	if ref.Kind == bytecode.BindingModuleImport {
		return errors.Typef(errors.Position{}, "assignment to imported binding %q", ref.Name)
	}
	if !it.Realm.GlobalEnv.HasBinding(ref.Name) {
		if err := it.Realm.GlobalEnv.CreateMutableBinding(ref.Name, true); err != nil {
			return err
		}
		return it.Realm.GlobalEnv.InitializeBinding(ref.Name, v)
	}
	return it.Realm.GlobalEnv.SetMutableBinding(ref.Name, v, false)
}

func (it *Interp) initBindingRef(f *Frame, idx uint16, v value.Value) {
	ref := f.proto.BindingRefs[idx]
	if !it.Realm.GlobalEnv.HasBinding(ref.Name) {
		_ = it.Realm.GlobalEnv.CreateMutableBinding(ref.Name, true)
	}
	_ = it.Realm.GlobalEnv.InitializeBinding(ref.Name, v)
}

// resolveModuleImport forwards to the interpreter's ModuleLoader (see
// interp.go), which pkg/modules installs when it links a module; with no
// loader installed the import is a ReferenceError.
func (it *Interp) resolveModuleImport(name string) (value.Value, *errors.ScriptError) {
	if it.ModuleLoader == nil {
		return value.Value{}, errors.Referencef(errors.Position{}, "no module loader registered for import %q", name)
	}
	return it.ModuleLoader.ResolveImport(name)
}

func (it *Interp) newArgumentsObject(f *Frame) value.Value {
	mapped := make([]string, 0, f.proto.ParamCount)
	for i := 0; i < f.proto.ParamCount; i++ {
		mapped = append(mapped, "")
	}
	ao := object.NewArgumentsExotic(it.Heap, it.objectPrototype(), f.args, mapped, nil)
	it.Heap.Publish(ao)
	return value.Obj(ao)
}
