package object

import (
	"sort"

	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/value"
)

// ModuleNamespaceExotic is the frozen, sorted-key object returned by
// `import * as ns`. Exports resolve lazily through the owning module's
// environment rather than being copied at namespace creation time, so
// live bindings keep working through the namespace.
type ModuleNamespaceExotic struct {
	heap.Header
	Module     ModuleRef
	ExportEnv  Environment // the module's own environment, holding the real bindings
	ExportKeys []string    // sorted export names, computed once at namespace creation
}

func NewModuleNamespaceExotic(h *heap.Heap, mod ModuleRef, env Environment, exportNames []string) *ModuleNamespaceExotic {
	sorted := append([]string{}, exportNames...)
	sort.Strings(sorted)
	ns := &ModuleNamespaceExotic{Module: mod, ExportEnv: env, ExportKeys: sorted}
	h.NewCell(&ns.Header, heap.KindObject)
	return ns
}

func (ns *ModuleNamespaceExotic) Shape() *Shape { return RootShape() }

func (ns *ModuleNamespaceExotic) Scan(v *heap.Visitor) {
	if ns.ExportEnv != nil {
		v.Mark(ns.ExportEnv)
	}
}
func (ns *ModuleNamespaceExotic) Free() {}

func (ns *ModuleNamespaceExotic) GetPrototypeOf() value.Value  { return value.Null }
func (ns *ModuleNamespaceExotic) SetPrototypeOf(value.Value) bool { return false }
func (ns *ModuleNamespaceExotic) IsExtensible() bool           { return false }
func (ns *ModuleNamespaceExotic) PreventExtensions() bool      { return true }

func (ns *ModuleNamespaceExotic) hasExport(key PropertyKey) bool {
	if !key.IsString() {
		return false
	}
	name := key.str.Canonical()
	for _, n := range ns.ExportKeys {
		if n == name {
			return true
		}
	}
	return false
}

func (ns *ModuleNamespaceExotic) GetOwnProperty(key PropertyKey) (Descriptor, bool) {
	if !ns.hasExport(key) {
		return Descriptor{}, false
	}
	v, err := ns.ExportEnv.GetBindingValue(key.str.Canonical(), true)
	if err != nil {
		return Descriptor{}, false
	}
	return DataDescriptor(v, true, true, false), true
}

func (ns *ModuleNamespaceExotic) DefineOwnProperty(key PropertyKey, desc Descriptor) (bool, *errors.ScriptError) {
	return false, nil // frozen
}
func (ns *ModuleNamespaceExotic) HasProperty(key PropertyKey) bool { return ns.hasExport(key) }

func (ns *ModuleNamespaceExotic) Get(key PropertyKey, receiver value.Value) (value.Value, *errors.ScriptError) {
	if !ns.hasExport(key) {
		return value.Undefined, nil
	}
	return ns.ExportEnv.GetBindingValue(key.str.Canonical(), true)
}

func (ns *ModuleNamespaceExotic) Set(key PropertyKey, v value.Value, receiver value.Value) (bool, *errors.ScriptError) {
	return false, nil
}
func (ns *ModuleNamespaceExotic) Delete(key PropertyKey) bool { return !ns.hasExport(key) }

func (ns *ModuleNamespaceExotic) OwnPropertyKeys() []PropertyKey {
	out := make([]PropertyKey, 0, len(ns.ExportKeys))
	for _, n := range ns.ExportKeys {
		out = append(out, StringKey(n))
	}
	return out
}
