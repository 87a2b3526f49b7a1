package host

import (
	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/interp"
	"esrt/pkg/job"
	"esrt/pkg/modules"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// Runtime is one embeddable engine instance: a heap, a realm, the
// interpreter running against it, the shared job queue every promise
// reaction and module-evaluation continuation is scheduled onto, the
// module loader, and the process-wide pieces (global symbol registry,
// locale comparator) object.Realm's own doc comments say live here
// rather than on Realm itself.
type Runtime struct {
	Config Config

	Heap   *heap.Heap
	Realm  *object.Realm
	Interp *interp.Interp
	Jobs   *job.Queue
	Loader *modules.Loader

	Locale *Comparator

	symbols map[string]value.Value
}

// New constructs a Runtime from cfg with no module resolver configured;
// call SetModuleResolver before RunModule if the embedder needs
// import/export support (a pure-script embedder can skip it entirely).
func New(cfg Config) *Runtime {
	h := heap.New(cfg.HeapMarkStackCapacity)
	h.PressureMultiple = cfg.GCTriggerRatio
	h.MaxCells = cfg.MaxCells

	realm := object.NewRealm(h)
	it := interp.NewInterp(h, realm)
	jobs := &job.Queue{}
	it.SetJobs(jobs)

	rt := &Runtime{
		Config:  cfg,
		Heap:    h,
		Realm:   realm,
		Interp:  it,
		Jobs:    jobs,
		Locale:  NewComparatorFromEnv(cfg.Locale),
		symbols: map[string]value.Value{},
	}
	h.RegisterRoot(rt)
	return rt
}

// SetModuleResolver installs resolver as the Runtime's module loader,
// replacing any previously installed one. Modules already loaded under a
// prior resolver are discarded along with it — this is meant to be
// called once, before the first RunModule, not swapped mid-program.
func (rt *Runtime) SetModuleResolver(resolver modules.Resolver) {
	rt.Loader = modules.NewLoader(rt.Heap, resolver, rt.Jobs)
}

// Close releases the Runtime's heap roots. With no native resources of
// its own (no open files, no OS handles) the engine's entire teardown is
// unregistering rt so a longer-lived process embedding several Runtimes
// doesn't keep scanning a dead one on every collection.
func (rt *Runtime) Close() {
	rt.Heap.UnregisterRoot(rt)
}

// GCRoots marks the process-wide symbol registry; every other live root
// (frames, realms, modules) is already covered by interp.Interp and
// modules.Loader registering themselves.
func (rt *Runtime) GCRoots(v *heap.Visitor) {
	for _, s := range rt.symbols {
		v.MarkValue(s)
	}
}

// SymbolFor implements the process-wide half of Symbol.for: the same
// key always returns the same symbol value from this Runtime, no matter
// which realm asks (see object.Realm.SymbolFor's doc comment on why the
// registry lives here instead of on Realm).
func (rt *Runtime) SymbolFor(key string) value.Value {
	if s, ok := rt.symbols[key]; ok {
		return s
	}
	sym := object.NewSymbol(rt.Heap, key, true)
	rt.Heap.Publish(sym)
	v := value.Obj(sym)
	rt.symbols[key] = v
	return v
}

// RunScript compiles and runs proto as a plain (non-module) top-level
// script against the Runtime's own realm.
func (rt *Runtime) RunScript(proto *bytecode.FunctionProto) (value.Value, *errors.ScriptError) {
	return rt.Interp.RunProgram(proto)
}

// RunModule loads, links, and evaluates specifier as the program's
// entry module, returning its completion value (the module body's own
// last expression statement, per RunProgram's convention — modules have
// no return value of their own in the ECMAScript sense).
func (rt *Runtime) RunModule(specifier string) (value.Value, error) {
	if rt.Loader == nil {
		return value.Value{}, errors.Typef(errors.Position{}, "runtime has no module resolver configured")
	}
	mod, err := rt.Loader.Load(specifier, nil)
	if err != nil {
		return value.Value{}, err
	}
	if err := rt.Loader.Link(mod); err != nil {
		return value.Value{}, err
	}
	v, scriptErr := rt.Loader.Evaluate(mod)
	if scriptErr != nil {
		return value.Value{}, scriptErr
	}
	return v, nil
}

// Drain runs every queued job (promise reactions, deferred module
// evaluation) to completion, then reports whether a GC collection is
// due per the configured pressure ratio and runs one if so — the single
// call an embedder's event loop makes once per turn.
func (rt *Runtime) Drain() {
	rt.Jobs.Drain()
	if rt.Heap.ShouldCollect() {
		rt.Heap.Collect()
	}
}

// RequestGC forces an immediate collection regardless of ShouldCollect,
// for an embedder (or a test) that wants a deterministic collection
// point.
func (rt *Runtime) RequestGC() {
	rt.Heap.Collect()
}
