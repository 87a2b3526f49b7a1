// Package interp implements the register-based bytecode interpreter:
// the call-frame stack, the instruction dispatch loop, the call family
// (direct calls, methods, construction, tail calls), exception
// propagation through a function's exception table, and the
// generator/async suspension model built on top of it.
package interp

import (
	"esrt/pkg/bytecode"
	"esrt/pkg/heap"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// upvalueCell is the shared storage an OpLoadFree/OpSetUpvalue pair
// reads and writes: either still open (pointing at a slot in some live
// frame's register window) or closed (holding its own copy once that
// frame returned).
type upvalueCell struct {
	open  bool
	frame *Frame
	slot  int
	value value.Value
}

func (u *upvalueCell) get() value.Value {
	if u.open {
		return u.frame.registers[u.slot]
	}
	return u.value
}

func (u *upvalueCell) set(v value.Value) {
	if u.open {
		u.frame.registers[u.slot] = v
		return
	}
	u.value = v
}

func (u *upvalueCell) close() {
	if u.open {
		u.value = u.frame.registers[u.slot]
		u.open = false
		u.frame = nil
	}
}

// FunctionObject is a callable script closure: a FunctionProto plus the
// upvalue cells captured at the OpClosure site that created it.
type FunctionObject struct {
	*object.PlainObject
	Proto      *bytecode.FunctionProto
	Upvalues   []*upvalueCell
	HomeObject value.Value // set for methods, read by OpGetSuper/OpLoadSuper
	HasHome    bool
}

func newFunctionObject(h *heap.Heap, proto value.Value, fnProto *bytecode.FunctionProto, upvalues []*upvalueCell) *FunctionObject {
	base := object.NewPlainObject(h, proto)
	fn := &FunctionObject{PlainObject: base, Proto: fnProto, Upvalues: upvalues}
	return fn
}

func (f *FunctionObject) Scan(v *heap.Visitor) {
	f.PlainObject.Scan(v)
	for _, uv := range f.Upvalues {
		if !uv.open {
			v.MarkValue(uv.value)
		}
	}
	v.MarkValue(f.HomeObject)
}

// GeneratorState tracks a generator object's lifecycle across its
// suspended frame.
type GeneratorState uint8

const (
	GeneratorSuspendedStart GeneratorState = iota
	GeneratorSuspendedYield
	GeneratorExecuting
	GeneratorCompleted
)

// GeneratorObject bridges a suspended generator body to the
// script-visible .next()/.return()/.throw() object. Unlike a
// goroutine-based design, the body never runs concurrently with
// anything: frame holds the entire paused call, and ResumeGenerator
// (generator.go) pushes it back onto the interpreter's frame stack to
// continue exactly where OpYield/OpYieldDelegated left off.
type GeneratorObject struct {
	*object.PlainObject
	State GeneratorState
	frame *Frame

	// delegateActive/delegateIter track an in-progress yield* delegation:
	// while active, a resume re-enters the same OpYieldDelegated
	// instruction rather than advancing past it, so it can keep driving
	// the same inner iterator across multiple .next() calls.
	delegateActive bool
	delegateIter   value.Value
}

func (g *GeneratorObject) Scan(v *heap.Visitor) {
	g.PlainObject.Scan(v)
	v.MarkValue(g.delegateIter)
	if g.frame != nil {
		for _, r := range g.frame.registers {
			v.MarkValue(r)
		}
	}
}

// PromiseState mirrors the three-state Promise lifecycle; settlement is
// single-shot, enforced by resolvePromise/rejectPromise in async.go.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

type promiseReaction struct {
	onFulfilled, onRejected value.Value
	result                  *PromiseObject // the derived promise .then returns
}

// PromiseObject is the native backing of the engine's Promise value.
// Reactions holds the script-visible callbacks a future Promise.prototype
// .then registers (pkg/host); nativeReactions holds the engine's own
// internal continuations — currently just doAwait's frame-resume
// closures (async.go) — which settle before any script-visible reaction
// runs, matching spec order (await's continuation is itself a .then
// under the hood).
type PromiseObject struct {
	*object.PlainObject
	State           PromiseState
	Result          value.Value
	Reactions       []promiseReaction
	nativeReactions []func(v value.Value, rejected bool)

	// frame is the async body this promise backs, set for as long as it
	// is suspended at an await and detached from it.frames; Scan marks
	// its registers here for the same reason GeneratorObject.Scan marks
	// its own frame's, since neither frame is reachable through
	// Interp.GCRoots while parked.
	frame *Frame
}

func (p *PromiseObject) Scan(v *heap.Visitor) {
	p.PlainObject.Scan(v)
	v.MarkValue(p.Result)
	for _, r := range p.Reactions {
		v.MarkValue(r.onFulfilled)
		v.MarkValue(r.onRejected)
	}
	if p.frame != nil {
		for _, r := range p.frame.registers {
			v.MarkValue(r)
		}
	}
}
