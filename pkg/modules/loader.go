package modules

import (
	"fmt"
	"strings"

	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/interp"
	"esrt/pkg/job"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// Resolver is the host-supplied half of module loading: turning an
// import specifier plus its importing module (nil for the program's own
// entry point) into a compiled module body. pkg/host owns the concrete
// implementation (resolving a specifier against the filesystem and
// running it through pkg/compiler); this package only consumes the
// result.
type Resolver interface {
	Resolve(specifier string, referrer *Module) (*bytecode.FunctionProto, error)
}

// Loader is the host-wide module registry: every module it has ever
// loaded, keyed by specifier, plus the Tarjan-style linking state it
// threads through while Link runs. One Loader is shared by every module
// it loads; each module gets its own *object.Realm/*interp.Interp pair
// sharing the Loader's single Heap (a simplification over true ES
// modules, which share one realm's global object across every module in
// a program).
type Loader struct {
	Heap     *heap.Heap
	Resolver Resolver
	Jobs     *job.Queue

	modules map[string]*Module

	// linkStack/nextIndex are working state for the Tarjan walk inside
	// Link; reset at the start of each top-level Link call, the same way
	// the original implementation threads dfs_index through one call to
	// rjs_module_link rather than across calls.
	linkStack []*Module
	nextIndex int
}

func NewLoader(h *heap.Heap, resolver Resolver, jobs *job.Queue) *Loader {
	l := &Loader{Heap: h, Resolver: resolver, Jobs: jobs, modules: map[string]*Module{}}
	h.RegisterRoot(l)
	return l
}

// GCRoots marks every module this loader has ever registered, including
// ones not (yet) reachable from a linked entry point.
func (l *Loader) GCRoots(v *heap.Visitor) {
	for _, m := range l.modules {
		v.Mark(m)
	}
}

// Load resolves specifier (and, transitively, every module it statically
// imports) into a registered *Module, reusing an already-registered
// module for a specifier seen before — the mechanism that turns a
// circular import graph into a finite DAG of Module nodes rather than an
// infinite Resolve recursion.
func (l *Loader) Load(specifier string, referrer *Module) (*Module, error) {
	if m, ok := l.modules[specifier]; ok {
		return m, nil
	}
	proto, err := l.Resolver.Resolve(specifier, referrer)
	if err != nil {
		return nil, fmt.Errorf("resolving module %q: %w", specifier, err)
	}

	m := &Module{Specifier: specifier, Proto: proto, Status: StatusUnlinked, dfsIndex: -1, dfsAncestorIndex: -1}
	l.Heap.NewCell(&m.Header, heap.KindModule)
	l.Heap.Publish(m)
	l.modules[specifier] = m

	for _, req := range proto.ModuleRequests {
		dep, err := l.Load(req, m)
		if err != nil {
			return nil, err
		}
		m.requires = append(m.requires, dep)
	}
	return m, nil
}

// Link runs the original implementation's inner_module_link algorithm
// (_examples/original_source/src/lib/rjs_module_opt.c) over entry's
// dependency graph: a depth-first walk that assigns each newly-visited
// module a dfsIndex/dfsAncestorIndex pair and, once a walk returns to a
// module whose ancestor index still equals its own index, pops every
// module back to it off the link stack and marks the whole popped run
// (one strongly-connected component of mutually-circular imports) as
// StatusLinked in one step, sharing that component's cycleRoot.
func (l *Loader) Link(entry *Module) error {
	l.linkStack = l.linkStack[:0]
	l.nextIndex = 0
	if err := l.innerLink(entry); err != nil {
		return err
	}
	if entry.Status != StatusLinked {
		return fmt.Errorf("module %q failed to link", entry.Specifier)
	}
	return nil
}

func (l *Loader) innerLink(m *Module) error {
	switch m.Status {
	case StatusLinking, StatusLinked, StatusEvaluating, StatusEvaluatingAsync, StatusEvaluated:
		return nil
	case StatusErrored:
		return m.EvalError
	}

	m.Status = StatusLinking
	m.dfsIndex = l.nextIndex
	m.dfsAncestorIndex = l.nextIndex
	l.nextIndex++
	l.linkStack = append(l.linkStack, m)

	m.realm = object.NewRealm(l.Heap)
	m.it = interp.NewInterp(l.Heap, m.realm)
	m.it.SetJobs(l.Jobs)
	m.it.ModuleLoader = &moduleLoaderView{loader: l, self: m}

	for _, dep := range m.requires {
		if err := l.innerLink(dep); err != nil {
			m.Status = StatusErrored
			return err
		}
		if dep.Status == StatusLinking && dep.dfsAncestorIndex < m.dfsAncestorIndex {
			m.dfsAncestorIndex = dep.dfsAncestorIndex
		}
	}

	if m.dfsAncestorIndex == m.dfsIndex {
		for {
			n := len(l.linkStack) - 1
			top := l.linkStack[n]
			l.linkStack = l.linkStack[:n]
			top.Status = StatusLinked
			top.cycleRoot = m
			if top == m {
				break
			}
		}
	}
	return nil
}

// Evaluate runs the original implementation's inner_module_evaluation
// walk (same file as Link), evaluating every not-yet-evaluated
// dependency before entry's own body, in post-order over the DAG Link
// already built. Per the package doc comment, this runs every module's
// body synchronously to completion: it does not reorder evaluation for
// an `await` at module top level the way the original's
// EVALUATING_ASYNC/async-parent bookkeeping does.
func (l *Loader) Evaluate(entry *Module) (value.Value, *errors.ScriptError) {
	if entry.Status != StatusLinked && entry.Status != StatusEvaluated {
		return value.Value{}, errors.Typef(errors.Position{}, "module %q is not linked", entry.Specifier)
	}
	return l.innerEvaluate(entry)
}

func (l *Loader) innerEvaluate(m *Module) (value.Value, *errors.ScriptError) {
	switch m.Status {
	case StatusEvaluated:
		return value.Undefined, nil
	case StatusErrored:
		return value.Value{}, m.EvalError
	case StatusEvaluating, StatusEvaluatingAsync:
		return value.Undefined, nil
	}

	m.Status = StatusEvaluating
	for _, dep := range m.requires {
		if _, err := l.innerEvaluate(dep); err != nil {
			m.Status = StatusErrored
			m.EvalError = err
			return value.Value{}, err
		}
	}

	result, err := m.it.RunProgram(m.Proto)
	if err != nil {
		m.Status = StatusErrored
		m.EvalError = err
		return value.Value{}, err
	}
	m.Status = StatusEvaluated
	return result, nil
}

// EvaluateDeferred schedules entry's evaluation as a job.ModuleEvaluation
// job rather than running it inline — the path a dynamic `import()`
// expression uses, since per spec that always kicks off evaluation as a
// queued job rather than synchronously at the call site.
func (l *Loader) EvaluateDeferred(entry *Module, onSettled func(value.Value, *errors.ScriptError)) {
	l.Jobs.Enqueue(job.ModuleEvaluation, func() {
		v, err := l.innerEvaluate(entry)
		onSettled(v, err)
	})
}

// moduleLoaderView adapts the shared Loader into one module's private
// interp.ModuleLoader view, so ResolveImport can interpret a bare
// specifier relative to which module is asking (the same specifier text
// resolves against different requires slots depending on the asker).
type moduleLoaderView struct {
	loader *Loader
	self   *Module
}

func (v *moduleLoaderView) ResolveImport(ref string) (value.Value, *errors.ScriptError) {
	return v.loader.resolveImportFor(v.self, ref)
}

func (l *Loader) resolveImportFor(m *Module, ref string) (value.Value, *errors.ScriptError) {
	source, name, ok := strings.Cut(ref, "#")
	if !ok {
		return value.Value{}, errors.Referencef(errors.Position{}, "malformed module import reference %q", ref)
	}

	var dep *Module
	for i, req := range m.Proto.ModuleRequests {
		if req == source {
			dep = m.requires[i]
			break
		}
	}
	if dep == nil {
		return value.Value{}, errors.Referencef(errors.Position{}, "module %q has no recorded dependency on %q", m.Specifier, source)
	}
	if dep.Status != StatusLinked && dep.Status != StatusEvaluating && dep.Status != StatusEvaluated {
		return value.Value{}, errors.Referencef(errors.Position{}, "cannot import from %q before it is linked", dep.Specifier)
	}

	if name == "*" {
		return dep.namespaceObject(l.Heap), nil
	}
	return dep.GetExport(name)
}
