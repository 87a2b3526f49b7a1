package interp

import (
	"esrt/pkg/errors"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// createGenerator builds a generator function's frame but never runs it:
// the frame sits suspended on the returned GeneratorObject until
// ResumeGenerator drives it, matching ECMAScript's rule that calling a
// generator function produces an iterator without executing any of its
// body.
func (it *Interp) createGenerator(fn *FunctionObject, thisVal value.Value, args []value.Value, newTarget value.Value) value.Value {
	frame := it.makeFrame(fn, thisVal, args, newTarget)
	frame.isGeneratorBody = true
	gen := &GeneratorObject{
		PlainObject: object.NewPlainObject(it.Heap, it.objectPrototype()),
		State:       GeneratorSuspendedStart,
		frame:       frame,
	}
	it.Heap.Publish(gen)
	frame.gen = gen
	return value.Obj(gen)
}

// ResumeKind selects which of .next()/.return()/.throw() is driving a
// ResumeGenerator call.
type ResumeKind uint8

const (
	ResumeNext ResumeKind = iota
	ResumeReturn
	ResumeThrow
)

// ResumeGenerator drives a suspended generator one step, pushing its
// saved frame back onto the interpreter's frame stack and running the
// shared dispatch loop until the body yields again, returns, or throws.
// It always pops that frame back off before returning, per run()'s
// convention that a base frame is popped by whoever pushed it.
//
// The returned error, when non-nil, is either a *ThrowCompletion (the
// value passed to .throw() on a generator that was never started or
// already done) or a *errors.ScriptError (an engine-level failure, or an
// exception the body left uncaught, including one injected by .throw(),
// which unwind reports as a ScriptError); both are handled by
// callers the same way every other interpreter entry point's errors are.
func (it *Interp) ResumeGenerator(gen *GeneratorObject, kind ResumeKind, sentValue value.Value) (value.Value, bool, error) {
	if gen.State == GeneratorExecuting {
		return value.Value{}, false, errors.Typef(errors.Position{}, "generator is already executing")
	}
	if gen.State == GeneratorCompleted {
		if kind == ResumeThrow {
			return value.Value{}, true, &ThrowCompletion{Value: sentValue}
		}
		return sentValue, true, nil
	}

	f := gen.frame
	startingFresh := gen.State == GeneratorSuspendedStart
	gen.State = GeneratorExecuting

	base := len(it.frames)
	if err := it.pushFrame(f); err != nil {
		gen.State = GeneratorCompleted
		return value.Value{}, true, err
	}

	switch {
	case kind == ResumeReturn:
		// Completing a suspended generator from the outside settles it
		// immediately with the given value; any finally blocks lexically
		// enclosing the paused yield are not re-entered (see DESIGN.md).
		it.popFrame()
		gen.State = GeneratorCompleted
		return sentValue, true, nil

	case kind == ResumeThrow && startingFresh:
		it.popFrame()
		gen.State = GeneratorCompleted
		return value.Value{}, true, &ThrowCompletion{Value: sentValue}

	case kind == ResumeThrow:
		// f.ip points past the paused OpYield (or, mid-yield*, at the
		// OpYieldDelegated itself); the throw site must lie inside it.
		throwPC := f.ip - 1
		if f.gen.delegateActive {
			throwPC = f.ip
		}
		unwound, retVal, err := it.unwind(base, throwPC, &ThrowCompletion{Value: sentValue})
		if !unwound {
			it.popFrame()
			gen.State = GeneratorCompleted
			if err != nil {
				return value.Value{}, true, err
			}
			return retVal, true, nil
		}
		// A catch/finally handler inside the body caught it: fall
		// through and keep running from the handler's PC.

	default: // ResumeNext
		if !startingFresh {
			f.registers[f.resumeReg] = sentValue
		}
	}

	v, err := it.run(base)
	it.popFrame()
	if err != nil {
		gen.State = GeneratorCompleted
		return value.Value{}, true, err
	}
	done := gen.State != GeneratorSuspendedYield
	if done {
		gen.State = GeneratorCompleted
	}
	return v, done, nil
}

// doYield implements OpYield: park the frame with the yielded value as
// run()'s result, recording resumeReg so the next ResumeGenerator(...,
// ResumeNext, ...) call knows where to write the sent-in value before
// continuing execution past this instruction.
func (it *Interp) doYield(f *Frame, resumeReg byte, yielded value.Value) (stepResult, error) {
	f.resumeReg = resumeReg
	if f.gen != nil {
		f.gen.State = GeneratorSuspendedYield
	}
	return stepResult{kind: stepSuspended, value: yielded}, nil
}

// doYieldDelegated implements `yield*`: drive the inner iterable's
// @@iterator/.next() protocol, yielding each produced value in turn and
// writing the inner iterator's final return value into resultReg once it
// reports done. instrStart/afterInstr are OpYieldDelegated's own start
// offset and the offset just past its operands: a resume that lands
// mid-delegation must rewind f.ip to instrStart so the next
// ResumeGenerator call re-enters this same instruction and keeps driving
// the same inner iterator, while a delegation that finishes in one go
// advances past it like any other opcode.
func (it *Interp) doYieldDelegated(f *Frame, instrStart, afterInstr int, resultReg, outputReg, iterReg byte) (stepResult, error) {
	if !f.gen.delegateActive {
		iterVal, err := it.getIterator(f.registers[iterReg])
		if err != nil {
			f.ip = afterInstr
			return stepResult{}, err
		}
		f.gen.delegateActive = true
		f.gen.delegateIter = iterVal
		f.registers[iterReg] = iterVal
	}

	res, err := it.iteratorNext(f.gen.delegateIter, value.Undefined)
	if err != nil {
		f.gen.delegateActive = false
		f.ip = afterInstr
		return stepResult{}, err
	}
	done, val, err := it.iteratorResultParts(res)
	if err != nil {
		f.gen.delegateActive = false
		f.ip = afterInstr
		return stepResult{}, err
	}
	if done {
		f.gen.delegateActive = false
		f.registers[resultReg] = val
		f.ip = afterInstr
		return stepResult{kind: stepContinue}, nil
	}

	f.ip = instrStart
	f.resumeReg = outputReg
	f.gen.State = GeneratorSuspendedYield
	return stepResult{kind: stepSuspended, value: val}, nil
}

func (it *Interp) getIterator(v value.Value) (value.Value, *errors.ScriptError) {
	obj, ok := it.asObj(v)
	if !ok {
		return value.Value{}, errors.Typef(errors.Position{}, "value is not iterable")
	}
	iterFn, err := obj.Get(object.StringKey("@@iterator"), v)
	if err != nil {
		return value.Value{}, err
	}
	return it.callValue(iterFn, v, nil)
}

func (it *Interp) iteratorNext(iter, sent value.Value) (value.Value, *errors.ScriptError) {
	obj, ok := it.asObj(iter)
	if !ok {
		return value.Value{}, errors.Typef(errors.Position{}, "iterator is not an object")
	}
	nextFn, err := obj.Get(object.StringKey("next"), iter)
	if err != nil {
		return value.Value{}, err
	}
	var args []value.Value
	if !sent.IsUndefined() {
		args = []value.Value{sent}
	}
	return it.callValue(nextFn, iter, args)
}

func (it *Interp) iteratorResultParts(res value.Value) (bool, value.Value, *errors.ScriptError) {
	obj, ok := it.asObj(res)
	if !ok {
		return false, value.Value{}, errors.Typef(errors.Position{}, "iterator result is not an object")
	}
	doneVal, err := obj.Get(object.StringKey("done"), res)
	if err != nil {
		return false, value.Value{}, err
	}
	val, err := obj.Get(object.StringKey("value"), res)
	if err != nil {
		return false, value.Value{}, err
	}
	return doneVal.ToBoolean(), val, nil
}
