// Package modules implements the module-linking graph: resolving a
// module's static dependencies (pkg/bytecode.FunctionProto.ModuleRequests),
// linking them into one connected environment graph, and evaluating
// them in dependency order.
//
// The state machine and the dfsIndex/dfsAncestorIndex/cycleRoot linking
// algorithm are grounded on the original implementation's module header
// (_examples/original_source/src/lib/include/rjs_module.h) and its
// inner_module_link/inner_module_evaluation functions
// (_examples/original_source/src/lib/rjs_module_opt.c): a depth-first
// walk over the dependency graph that assigns each module a DFS index
// and an ancestor index, and collapses a strongly-connected component of
// circular imports onto one cycle root once the walk returns to it. The
// original's separate ALLOCATED/LOADED/LOADING_REQUESTED statuses exist
// to track an asynchronous module-fetch phase; this package's Resolver
// returns an already-compiled FunctionProto synchronously, so those are
// collapsed into the single StatusUnlinked starting state (see
// DESIGN.md). Likewise, the original's EVALUATING_ASYNC status and its
// async-parent bookkeeping exist to support top-level await reordering
// evaluation across a cycle; this package does not implement top-level
// await reordering and evaluates every module's body synchronously to
// completion, so StatusEvaluatingAsync is never assigned (also recorded
// in DESIGN.md as a scope reduction).
package modules

import (
	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/interp"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// Status is one state of a module's linking/evaluation lifecycle.
type Status uint8

const (
	StatusUnlinked Status = iota
	StatusLinking
	StatusLinked
	StatusEvaluating
	StatusEvaluatingAsync
	StatusEvaluated
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusUnlinked:
		return "unlinked"
	case StatusLinking:
		return "linking"
	case StatusLinked:
		return "linked"
	case StatusEvaluating:
		return "evaluating"
	case StatusEvaluatingAsync:
		return "evaluating-async"
	case StatusEvaluated:
		return "evaluated"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Module is one linked module record: its compiled body, its resolved
// dependency edges (parallel to Proto.ModuleRequests), and the linking
// state the Tarjan-style walk maintains while it runs.
type Module struct {
	heap.Header

	Specifier string
	Proto     *bytecode.FunctionProto
	Status    Status
	EvalError *errors.ScriptError

	requires []*Module // resolved 1:1 against Proto.ModuleRequests

	dfsIndex         int
	dfsAncestorIndex int
	cycleRoot        *Module

	realm *object.Realm
	it    *interp.Interp
}

// Environment satisfies object.ModuleRef: an import binding compiled
// through the object.ModuleEnvironment path (rather than this package's
// own BindingModuleImport/ModuleLoader path, which is the one the
// compiler and interpreter actually wire up — see DESIGN.md) redirects
// here.
func (m *Module) Environment() (object.Environment, bool) {
	if m.realm == nil {
		return nil, false
	}
	return m.realm.GlobalEnv, true
}

func (m *Module) Scan(v *heap.Visitor) {
	for _, dep := range m.requires {
		if dep != nil {
			v.Mark(dep)
		}
	}
	if m.realm != nil {
		v.Mark(m.realm)
	}
}

func (m *Module) Free() {}

// exportTarget resolves one ExportEntry, following star re-exports and
// named re-exports into whichever module actually owns the binding.
func (m *Module) exportTarget(name string) (*Module, string, bool) {
	for _, e := range m.Proto.Exports {
		if e.IsStar {
			continue
		}
		if e.ExportName != name {
			continue
		}
		if e.ModuleRequest < 0 {
			return m, e.LocalName, true
		}
		dep := m.requires[e.ModuleRequest]
		return dep.exportTarget(e.LocalName)
	}
	for _, e := range m.Proto.Exports {
		if !e.IsStar {
			continue
		}
		dep := m.requires[e.ModuleRequest]
		if target, local, ok := dep.exportTarget(name); ok {
			return target, local, ok
		}
	}
	return nil, "", false
}

// GetExport reads a linked-and-evaluated module's exported binding by
// name ("default" for `export default`, "*" is rejected here — a
// namespace-import request is handled by Loader.resolveImportFor directly).
func (m *Module) GetExport(name string) (value.Value, *errors.ScriptError) {
	target, local, ok := m.exportTarget(name)
	if !ok {
		return value.Value{}, errors.Referencef(errors.Position{}, "module %q has no export named %q", m.Specifier, name)
	}
	if target.realm == nil {
		return value.Value{}, errors.Referencef(errors.Position{}, "cannot read export %q of %q before it is evaluated", name, target.Specifier)
	}
	return target.realm.GlobalEnv.GetBindingValue(local, true)
}

// exportedNames lists every name m exports, expanding star re-exports
// and deduplicating against seen (shared across the whole recursion so
// a diamond of star re-exports lists each name once).
func exportedNames(m *Module, seen map[string]bool) []string {
	var names []string
	for _, e := range m.Proto.Exports {
		if e.IsStar {
			dep := m.requires[e.ModuleRequest]
			names = append(names, exportedNames(dep, seen)...)
			continue
		}
		if seen[e.ExportName] {
			continue
		}
		seen[e.ExportName] = true
		names = append(names, e.ExportName)
	}
	return names
}

// namespaceObject builds the frozen object `import * as ns` binds to:
// an object.ModuleNamespaceExotic backed by a lazily-dispatching
// exportEnvironment so each property read re-resolves through m's
// (possibly re-exported) export graph rather than copying values once.
func (m *Module) namespaceObject(h *heap.Heap) value.Value {
	names := exportedNames(m, map[string]bool{})
	env := newExportEnvironment(h, m)
	h.Publish(env)
	ns := object.NewModuleNamespaceExotic(h, m, env, names)
	h.Publish(ns)
	return value.Obj(ns)
}

// exportEnvironment is a minimal, read-only object.Environment that
// dispatches GetBindingValue through m.GetExport. It exists only to
// satisfy ModuleNamespaceExotic's ExportEnv field, which expects live
// binding reads rather than a snapshot.
type exportEnvironment struct {
	heap.Header
	mod *Module
}

func newExportEnvironment(h *heap.Heap, mod *Module) *exportEnvironment {
	e := &exportEnvironment{mod: mod}
	h.NewCell(&e.Header, heap.KindEnvModule)
	return e
}

func (e *exportEnvironment) Outer() object.Environment { return nil }
func (e *exportEnvironment) HasBinding(name string) bool {
	_, _, ok := e.mod.exportTarget(name)
	return ok
}
func (e *exportEnvironment) CreateMutableBinding(name string, deletable bool) *errors.ScriptError {
	return errors.Typef(errors.Position{}, "cannot declare %q on a module namespace", name)
}
func (e *exportEnvironment) CreateImmutableBinding(name string, strict bool) *errors.ScriptError {
	return e.CreateMutableBinding(name, false)
}
func (e *exportEnvironment) InitializeBinding(name string, v value.Value) *errors.ScriptError {
	return nil
}
func (e *exportEnvironment) SetMutableBinding(name string, v value.Value, strict bool) *errors.ScriptError {
	return errors.Typef(errors.Position{}, "assignment to imported binding %q", name)
}
func (e *exportEnvironment) GetBindingValue(name string, strict bool) (value.Value, *errors.ScriptError) {
	return e.mod.GetExport(name)
}
func (e *exportEnvironment) DeleteBinding(name string) bool { return false }
func (e *exportEnvironment) HasThisBinding() bool           { return false }
func (e *exportEnvironment) GetThisBinding() (value.Value, *errors.ScriptError) {
	return value.Undefined, nil
}
func (e *exportEnvironment) HasSuperBinding() bool               { return false }
func (e *exportEnvironment) WithBaseObject() (value.Value, bool) { return value.Value{}, false }
func (e *exportEnvironment) Scan(v *heap.Visitor)                { v.Mark(e.mod) }
func (e *exportEnvironment) Free()                               {}
