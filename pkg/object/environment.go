package object

import (
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// Environment is a lexical binding frame. All five subkinds implement
// the same eleven operations; GetThisBinding and
// HasSuperBinding are meaningful only for function/global/module
// environments, and WithBaseObject only for `with` object environments
// — the others return their respective zero/false defaults.
type Environment interface {
	heap.Cell
	Outer() Environment

	HasBinding(name string) bool
	CreateMutableBinding(name string, deletable bool) *errors.ScriptError
	CreateImmutableBinding(name string, strict bool) *errors.ScriptError
	InitializeBinding(name string, v value.Value) *errors.ScriptError
	SetMutableBinding(name string, v value.Value, strict bool) *errors.ScriptError
	GetBindingValue(name string, strict bool) (value.Value, *errors.ScriptError)
	DeleteBinding(name string) bool
	HasThisBinding() bool
	GetThisBinding() (value.Value, *errors.ScriptError)
	HasSuperBinding() bool
	WithBaseObject() (value.Value, bool)
}

type binding struct {
	value       value.Value
	mutable     bool
	strict      bool
	initialized bool
	deletable   bool
}

// DeclarativeEnvironment implements name -> {mutable, initialized,
// value} bindings directly, with no backing object. A binding is
// created uninitialized; a read before InitializeBinding throws
// ReferenceError — the "temporal dead zone" invariant.
type DeclarativeEnvironment struct {
	heap.Header
	outer    Environment
	bindings map[string]*binding
	order    []string
}

func NewDeclarativeEnvironment(h *heap.Heap, outer Environment) *DeclarativeEnvironment {
	e := &DeclarativeEnvironment{outer: outer, bindings: map[string]*binding{}}
	h.NewCell(&e.Header, heap.KindEnvDeclarative)
	return e
}

func (e *DeclarativeEnvironment) Outer() Environment { return e.outer }

func (e *DeclarativeEnvironment) Scan(v *heap.Visitor) {
	if e.outer != nil {
		v.Mark(e.outer)
	}
	for _, b := range e.bindings {
		v.MarkValue(b.value)
	}
}
func (e *DeclarativeEnvironment) Free() {}

func (e *DeclarativeEnvironment) HasBinding(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

func (e *DeclarativeEnvironment) createBinding(name string, mutable, strict, deletable bool) *errors.ScriptError {
	if _, ok := e.bindings[name]; ok {
		return errors.Typef(errors.Position{}, "binding %q already declared", name)
	}
	e.bindings[name] = &binding{mutable: mutable, strict: strict, deletable: deletable}
	e.order = append(e.order, name)
	return nil
}

func (e *DeclarativeEnvironment) CreateMutableBinding(name string, deletable bool) *errors.ScriptError {
	return e.createBinding(name, true, false, deletable)
}

func (e *DeclarativeEnvironment) CreateImmutableBinding(name string, strict bool) *errors.ScriptError {
	return e.createBinding(name, false, strict, false)
}

func (e *DeclarativeEnvironment) InitializeBinding(name string, v value.Value) *errors.ScriptError {
	b, ok := e.bindings[name]
	if !ok {
		return errors.Referencef(errors.Position{}, "%s is not defined", name)
	}
	b.value = v
	b.initialized = true
	return nil
}

func (e *DeclarativeEnvironment) SetMutableBinding(name string, v value.Value, strict bool) *errors.ScriptError {
	b, ok := e.bindings[name]
	if !ok {
		if strict {
			return errors.Referencef(errors.Position{}, "%s is not defined", name)
		}
		e.bindings[name] = &binding{value: v, mutable: true, initialized: true, deletable: true}
		e.order = append(e.order, name)
		return nil
	}
	if !b.initialized {
		return errors.Referencef(errors.Position{}, "cannot access %q before initialization", name)
	}
	if !b.mutable {
		return errors.Typef(errors.Position{}, "assignment to constant variable %q", name)
	}
	b.value = v
	return nil
}

func (e *DeclarativeEnvironment) GetBindingValue(name string, strict bool) (value.Value, *errors.ScriptError) {
	b, ok := e.bindings[name]
	if !ok {
		return value.Value{}, errors.Referencef(errors.Position{}, "%s is not defined", name)
	}
	if !b.initialized {
		return value.Value{}, errors.Referencef(errors.Position{}, "cannot access %q before initialization", name)
	}
	return b.value, nil
}

func (e *DeclarativeEnvironment) DeleteBinding(name string) bool {
	b, ok := e.bindings[name]
	if !ok {
		return true
	}
	if !b.deletable {
		return false
	}
	delete(e.bindings, name)
	return true
}

func (e *DeclarativeEnvironment) HasThisBinding() bool                           { return false }
func (e *DeclarativeEnvironment) GetThisBinding() (value.Value, *errors.ScriptError) {
	return value.Value{}, errors.Referencef(errors.Position{}, "no 'this' binding in this scope")
}
func (e *DeclarativeEnvironment) HasSuperBinding() bool                { return false }
func (e *DeclarativeEnvironment) WithBaseObject() (value.Value, bool) { return value.Value{}, false }

// ObjectEnvironment routes bindings through a backing object — used for
// `with` statements (IsWith true: WithBaseObject returns the object) and
// as the global environment's object-record half.
type ObjectEnvironment struct {
	heap.Header
	outer  Environment
	base   Obj
	IsWith bool
}

func NewObjectEnvironment(h *heap.Heap, outer Environment, base Obj, isWith bool) *ObjectEnvironment {
	e := &ObjectEnvironment{outer: outer, base: base, IsWith: isWith}
	h.NewCell(&e.Header, heap.KindEnvObject)
	return e
}

func (e *ObjectEnvironment) Outer() Environment { return e.outer }
func (e *ObjectEnvironment) Scan(v *heap.Visitor) {
	if e.outer != nil {
		v.Mark(e.outer)
	}
	v.Mark(e.base)
}
func (e *ObjectEnvironment) Free() {}

func (e *ObjectEnvironment) HasBinding(name string) bool { return e.base.HasProperty(StringKey(name)) }

func (e *ObjectEnvironment) CreateMutableBinding(name string, deletable bool) *errors.ScriptError {
	_, err := e.base.DefineOwnProperty(StringKey(name), DataDescriptor(value.Undefined, true, true, deletable))
	return err
}
func (e *ObjectEnvironment) CreateImmutableBinding(name string, strict bool) *errors.ScriptError {
	_, err := e.base.DefineOwnProperty(StringKey(name), DataDescriptor(value.Undefined, false, true, false))
	return err
}
func (e *ObjectEnvironment) InitializeBinding(name string, v value.Value) *errors.ScriptError {
	_, err := e.base.Set(StringKey(name), v, value.Obj(e.base))
	return err
}
func (e *ObjectEnvironment) SetMutableBinding(name string, v value.Value, strict bool) *errors.ScriptError {
	ok, err := e.base.Set(StringKey(name), v, value.Obj(e.base))
	if err != nil {
		return err
	}
	if !ok && strict {
		return errors.Typef(errors.Position{}, "cannot assign to read only property %q", name)
	}
	return nil
}
func (e *ObjectEnvironment) GetBindingValue(name string, strict bool) (value.Value, *errors.ScriptError) {
	if !e.base.HasProperty(StringKey(name)) {
		if strict {
			return value.Value{}, errors.Referencef(errors.Position{}, "%s is not defined", name)
		}
		return value.Undefined, nil
	}
	return e.base.Get(StringKey(name), value.Obj(e.base))
}
func (e *ObjectEnvironment) DeleteBinding(name string) bool { return e.base.Delete(StringKey(name)) }
func (e *ObjectEnvironment) HasThisBinding() bool           { return false }
func (e *ObjectEnvironment) GetThisBinding() (value.Value, *errors.ScriptError) {
	return value.Value{}, errors.Referencef(errors.Position{}, "no 'this' binding in this scope")
}
func (e *ObjectEnvironment) HasSuperBinding() bool { return false }
func (e *ObjectEnvironment) WithBaseObject() (value.Value, bool) {
	if e.IsWith {
		return value.Obj(e.base), true
	}
	return value.Value{}, false
}

// ThisStatus tracks a function environment's `this` initialization: a
// derived-class constructor's `this` starts Uninitialized until
// super(...) runs.
type ThisStatus uint8

const (
	ThisLexical ThisStatus = iota // arrow function: no own `this`, use Outer's
	ThisUninitialized
	ThisInitialized
)

// FunctionEnvironment is a DeclarativeEnvironment plus `this`,
// `new.target`, the home object (for super property lookup), and a
// super-binding flag.
type FunctionEnvironment struct {
	DeclarativeEnvironment
	thisValue  value.Value
	thisStatus ThisStatus
	newTarget  value.Value
	homeObject value.Value
	hasHome    bool
}

func NewFunctionEnvironment(h *heap.Heap, outer Environment, status ThisStatus) *FunctionEnvironment {
	e := &FunctionEnvironment{DeclarativeEnvironment: DeclarativeEnvironment{outer: outer, bindings: map[string]*binding{}}, thisStatus: status}
	h.NewCell(&e.Header, heap.KindEnvFunction)
	return e
}

func (e *FunctionEnvironment) Scan(v *heap.Visitor) {
	e.DeclarativeEnvironment.Scan(v)
	v.MarkValue(e.thisValue)
	v.MarkValue(e.newTarget)
	v.MarkValue(e.homeObject)
}

func (e *FunctionEnvironment) BindThis(v value.Value) *errors.ScriptError {
	if e.thisStatus == ThisInitialized {
		return errors.Referencef(errors.Position{}, "super called twice")
	}
	e.thisValue = v
	e.thisStatus = ThisInitialized
	return nil
}

func (e *FunctionEnvironment) SetHomeObject(v value.Value) { e.homeObject, e.hasHome = v, true }
func (e *FunctionEnvironment) HomeObject() (value.Value, bool) { return e.homeObject, e.hasHome }
func (e *FunctionEnvironment) SetNewTarget(v value.Value)      { e.newTarget = v }
func (e *FunctionEnvironment) NewTarget() value.Value          { return e.newTarget }

func (e *FunctionEnvironment) HasThisBinding() bool { return e.thisStatus != ThisLexical }

func (e *FunctionEnvironment) GetThisBinding() (value.Value, *errors.ScriptError) {
	if e.thisStatus == ThisLexical {
		return value.Value{}, errors.Referencef(errors.Position{}, "no 'this' binding in this scope")
	}
	if e.thisStatus == ThisUninitialized {
		return value.Value{}, errors.Referencef(errors.Position{}, "must call super constructor before accessing 'this'")
	}
	return e.thisValue, nil
}

func (e *FunctionEnvironment) HasSuperBinding() bool { return e.hasHome }

// GlobalEnvironment overlays a DeclarativeEnvironment (for let/const/
// class at top level) on top of an ObjectEnvironment backed by the
// realm's global object (for var/function declarations and any
// script-visible global property).
type GlobalEnvironment struct {
	heap.Header
	declarative *DeclarativeEnvironment
	object      *ObjectEnvironment
	varNames    map[string]bool
}

func NewGlobalEnvironment(h *heap.Heap, globalObject Obj) *GlobalEnvironment {
	e := &GlobalEnvironment{varNames: map[string]bool{}}
	e.declarative = NewDeclarativeEnvironment(h, nil)
	e.object = NewObjectEnvironment(h, nil, globalObject, false)
	h.NewCell(&e.Header, heap.KindEnvGlobal)
	return e
}

func (e *GlobalEnvironment) Outer() Environment { return nil }
func (e *GlobalEnvironment) Scan(v *heap.Visitor) {
	v.Mark(e.declarative)
	v.Mark(e.object)
}
func (e *GlobalEnvironment) Free() {}

func (e *GlobalEnvironment) HasBinding(name string) bool {
	return e.declarative.HasBinding(name) || e.object.HasBinding(name)
}
func (e *GlobalEnvironment) CreateMutableBinding(name string, deletable bool) *errors.ScriptError {
	return e.declarative.CreateMutableBinding(name, deletable)
}
func (e *GlobalEnvironment) CreateImmutableBinding(name string, strict bool) *errors.ScriptError {
	return e.declarative.CreateImmutableBinding(name, strict)
}
func (e *GlobalEnvironment) InitializeBinding(name string, v value.Value) *errors.ScriptError {
	if e.declarative.HasBinding(name) {
		return e.declarative.InitializeBinding(name, v)
	}
	return e.object.InitializeBinding(name, v)
}
func (e *GlobalEnvironment) SetMutableBinding(name string, v value.Value, strict bool) *errors.ScriptError {
	if e.declarative.HasBinding(name) {
		return e.declarative.SetMutableBinding(name, v, strict)
	}
	return e.object.SetMutableBinding(name, v, strict)
}
func (e *GlobalEnvironment) GetBindingValue(name string, strict bool) (value.Value, *errors.ScriptError) {
	if e.declarative.HasBinding(name) {
		return e.declarative.GetBindingValue(name, strict)
	}
	return e.object.GetBindingValue(name, strict)
}
func (e *GlobalEnvironment) DeleteBinding(name string) bool {
	if e.declarative.HasBinding(name) {
		return e.declarative.DeleteBinding(name)
	}
	return e.object.DeleteBinding(name)
}
func (e *GlobalEnvironment) HasThisBinding() bool { return true }
func (e *GlobalEnvironment) GetThisBinding() (value.Value, *errors.ScriptError) {
	return value.Obj(e.object.base), nil
}
func (e *GlobalEnvironment) HasSuperBinding() bool                { return false }
func (e *GlobalEnvironment) WithBaseObject() (value.Value, bool) { return value.Value{}, false }

// DeclareVar records a top-level `var`/function declaration so repeated
// evaluation (e.g. direct eval re-entering the same script) knows it was
// already hoisted.
func (e *GlobalEnvironment) DeclareVar(name string) { e.varNames[name] = true }
func (e *GlobalEnvironment) HasVarDeclaration(name string) bool { return e.varNames[name] }

// ModuleRef lets a ModuleEnvironment redirect an import binding to its
// target module's environment without this package importing the
// modules package (which itself depends on object for Environment and
// Obj). The modules package implements this interface on *modules.Module.
type ModuleRef interface {
	// Environment returns the target module's environment and whether it
	// has been created yet. Callers raise ReferenceError if it has not
	// been created.
	Environment() (Environment, bool)
}

type importBinding struct {
	module ModuleRef
	name   string
}

// ModuleEnvironment is a DeclarativeEnvironment plus live import
// bindings: reading an import binding redirects to the target module's
// environment on every read.
type ModuleEnvironment struct {
	DeclarativeEnvironment
	imports map[string]importBinding
}

func NewModuleEnvironment(h *heap.Heap, outer Environment) *ModuleEnvironment {
	e := &ModuleEnvironment{
		DeclarativeEnvironment: DeclarativeEnvironment{outer: outer, bindings: map[string]*binding{}},
		imports:                map[string]importBinding{},
	}
	h.NewCell(&e.Header, heap.KindEnvModule)
	return e
}

// CreateImportBinding installs a redirection name -> {module, export
// name}, resolved on every subsequent read/write.
func (e *ModuleEnvironment) CreateImportBinding(name string, mod ModuleRef, exportName string) {
	e.imports[name] = importBinding{module: mod, name: exportName}
}

func (e *ModuleEnvironment) HasBinding(name string) bool {
	if _, ok := e.imports[name]; ok {
		return true
	}
	return e.DeclarativeEnvironment.HasBinding(name)
}

func (e *ModuleEnvironment) GetBindingValue(name string, strict bool) (value.Value, *errors.ScriptError) {
	if ib, ok := e.imports[name]; ok {
		targetEnv, created := ib.module.Environment()
		if !created {
			return value.Value{}, errors.Referencef(errors.Position{}, "cannot access imported binding %q before its module is linked", name)
		}
		return targetEnv.GetBindingValue(ib.name, true)
	}
	return e.DeclarativeEnvironment.GetBindingValue(name, strict)
}

func (e *ModuleEnvironment) SetMutableBinding(name string, v value.Value, strict bool) *errors.ScriptError {
	if _, ok := e.imports[name]; ok {
		return errors.Typef(errors.Position{}, "assignment to imported binding %q", name)
	}
	return e.DeclarativeEnvironment.SetMutableBinding(name, v, strict)
}

func (e *ModuleEnvironment) HasThisBinding() bool { return true }
func (e *ModuleEnvironment) GetThisBinding() (value.Value, *errors.ScriptError) {
	return value.Undefined, nil // modules have `this === undefined`
}
