package interp

import (
	"esrt/pkg/errors"
	"esrt/pkg/job"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// newPromise allocates a fresh pending promise. pkg/host's Promise
// constructor and combinators (all/race/allSettled, not yet written)
// will build on this same primitive.
func (it *Interp) newPromise() *PromiseObject {
	p := &PromiseObject{
		PlainObject: object.NewPlainObject(it.Heap, it.objectPrototype()),
		State:       PromisePending,
	}
	it.Heap.Publish(p)
	return p
}

func (it *Interp) asPromise(v value.Value) (*PromiseObject, bool) {
	cell, ok := v.HeapCell()
	if !ok {
		return nil, false
	}
	p, ok := cell.(*PromiseObject)
	return p, ok
}

// resolvePromise settles p with v, chaining through v's own settlement
// first if v is itself a promise (the ECMAScript resolution-procedure
// thenable check, narrowed to our own PromiseObject since no host
// thenables exist yet).
func (it *Interp) resolvePromise(p *PromiseObject, v value.Value) {
	if p.State != PromisePending {
		return
	}
	if inner, ok := it.asPromise(v); ok && inner != p {
		it.onSettled(inner, func(settled value.Value, rejected bool) {
			if rejected {
				it.rejectPromise(p, settled)
			} else {
				it.resolvePromise(p, settled)
			}
		})
		return
	}
	p.State = PromiseFulfilled
	p.Result = v
	it.scheduleNativeReactions(p)
}

func (it *Interp) rejectPromise(p *PromiseObject, v value.Value) {
	if p.State != PromisePending {
		return
	}
	p.State = PromiseRejected
	p.Result = v
	it.scheduleNativeReactions(p)
}

// onSettled queues cb as a microtask once p settles, running it
// immediately (still as a microtask, never synchronously) if p has
// already settled by the time this is called. Used internally by
// doAwait to resume a suspended async frame; pkg/host's Promise.prototype
// .then will build its script-visible reactions on the same mechanism
// once it exists.
func (it *Interp) onSettled(p *PromiseObject, cb func(v value.Value, rejected bool)) {
	if p.State == PromisePending {
		p.nativeReactions = append(p.nativeReactions, cb)
		return
	}
	v, rejected := p.Result, p.State == PromiseRejected
	it.Jobs.Enqueue(job.PromiseReaction, func() { cb(v, rejected) })
}

func (it *Interp) scheduleNativeReactions(p *PromiseObject) {
	reactions := p.nativeReactions
	p.nativeReactions = nil
	v, rejected := p.Result, p.State == PromiseRejected
	for _, r := range reactions {
		r := r
		it.Jobs.Enqueue(job.PromiseReaction, func() { r(v, rejected) })
	}
}

// DrainMicrotasks runs every queued job (promise reactions, thenable
// resolution steps, module-evaluation continuations) to completion,
// including ones newly queued by jobs that ran earlier in the drain (an
// await resuming may itself settle another promise with waiting
// reactions). pkg/host's runtime Drain() calls this once per turn of
// its own event loop.
func (it *Interp) DrainMicrotasks() {
	it.Jobs.Drain()
}

// runAsync implements calling an async function: its body runs
// synchronously up to its first await (or to completion), backed by a
// promise that is either already settled or pending on that await's
// microtask by the time this returns.
func (it *Interp) runAsync(fn *FunctionObject, thisVal value.Value, args []value.Value, newTarget value.Value) (value.Value, *errors.ScriptError) {
	frame := it.makeFrame(fn, thisVal, args, newTarget)
	frame.isAsyncBody = true
	p := it.newPromise()
	frame.promise = p
	p.frame = frame

	if err := it.pushFrame(frame); err != nil {
		return value.Value{}, err
	}
	base := len(it.frames) - 1
	_, err := it.run(base)
	it.popFrame()
	if err != nil {
		it.rejectPromise(p, it.thrownValue(err))
	}
	return value.Obj(p), nil
}

// doAwait implements OpAwait: suspend the async frame until awaited (or
// the promise it's coerced into) settles, then resume with its value or
// inject its rejection as a thrown exception.
func (it *Interp) doAwait(f *Frame, rx byte, awaited value.Value) (stepResult, error) {
	f.resumeReg = rx
	p, ok := it.asPromise(awaited)
	if !ok {
		p = it.newPromise()
		it.resolvePromise(p, awaited)
	}
	it.onSettled(p, func(v value.Value, rejected bool) {
		it.resumeAsync(f, v, rejected)
	})
	return stepResult{kind: stepSuspended, value: value.Undefined}, nil
}

// resumeAsync re-enters a frame doAwait parked, once the promise it was
// waiting on has settled. Unlike ResumeGenerator, nothing outside the
// engine drives this: it only ever runs as a microtask queued by
// doAwait/onSettled, so there is no caller to report a result to except
// the frame's own promise.
func (it *Interp) resumeAsync(f *Frame, v value.Value, rejected bool) {
	base := len(it.frames)
	if err := it.pushFrame(f); err != nil {
		it.rejectPromise(f.promise, it.thrownValue(err))
		return
	}

	if rejected {
		// f.ip points past the paused OpAwait; f.ip-1 lies inside it.
		unwound, retVal, err := it.unwind(base, f.ip-1, &ThrowCompletion{Value: v})
		if !unwound {
			it.popFrame()
			if err != nil {
				it.rejectPromise(f.promise, it.thrownValue(err))
			} else {
				it.resolvePromise(f.promise, retVal)
			}
			return
		}
	} else {
		f.registers[f.resumeReg] = v
	}

	_, err := it.run(base)
	it.popFrame()
	if err != nil {
		it.rejectPromise(f.promise, it.thrownValue(err))
	}
	// A clean return already resolved f.promise via finishGeneratorOrAsync.
}
