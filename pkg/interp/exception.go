package interp

import (
	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// ThrowCompletion is a thrown ECMAScript value that did not originate as
// one of the engine's own ScriptErrors (see errors.ScriptError's doc
// comment): the result of a user `throw expr` statement, carrying
// whatever value expr evaluated to, including non-Error values like a
// thrown string or plain object.
type ThrowCompletion struct {
	Value value.Value
}

func (t *ThrowCompletion) Error() string { return "uncaught exception" }

// thrownValue extracts the script-visible value an exception handler's
// catch binding should see: a user throw's value as-is, or a freshly
// built Error-shaped object for an engine-originated ScriptError.
func (it *Interp) thrownValue(err error) value.Value {
	switch e := err.(type) {
	case *ThrowCompletion:
		return e.Value
	case *errors.ScriptError:
		return it.errorObjectFrom(e)
	default:
		return value.Undefined
	}
}

func (it *Interp) errorObjectFrom(se *errors.ScriptError) value.Value {
	o := object.NewPlainObject(it.Heap, it.objectPrototype())
	it.Heap.Publish(o)
	_, _ = o.DefineOwnProperty(object.StringKey("name"), object.DataDescriptor(value.Str(string(se.ErrKind)), true, false, true))
	_, _ = o.DefineOwnProperty(object.StringKey("message"), object.DataDescriptor(value.Str(se.Msg), true, false, true))
	_, _ = o.DefineOwnProperty(object.StringKey("stack"), object.DataDescriptor(value.Str(se.Error()), true, false, true))
	return value.Obj(o)
}

// unwind looks for a handler covering throwPC (the instruction that just
// threw, in the frame that was executing at call time) in the topmost
// live frame at or above base, walking outward through enclosing calls
// when a frame's exception table has no match. Only the innermost
// frame's throw site is throwPC; once unwind pops to an enclosing
// frame, the last byte of the call instruction that frame is paused at
// (f.ip-1, since its saved ip already points past that call) is the
// relevant site instead.
// A *errors.Fatal propagates immediately: it is not catchable by script.
// The returned bool reports whether a handler was found and installed
// (run()'s loop should continue); if not, the returned *errors.ScriptError
// is the function's result.
func (it *Interp) unwind(base, throwPC int, err error) (handled bool, retVal value.Value, fatal *errors.ScriptError) {
	if fa, ok := err.(*errors.Fatal); ok {
		panic(fa)
	}
	thrown := it.thrownValue(err)

	pc := throwPC
	first := true
	for len(it.frames) > base {
		f := it.top()
		if !first {
			// An enclosing frame is paused on the call that led to the
			// frame just popped. Its saved ip already points past that
			// call (for a call that ends a try block, at the range's
			// exclusive end), so f.ip-1, inside the call instruction, is
			// its throw site.
			pc = f.ip - 1
		}
		first = false
		if handler, ok := findHandler(f, pc); ok {
			f.ip = handler.HandlerPC
			if handler.IsCatch && handler.CatchReg >= 0 {
				f.registers[handler.CatchReg] = thrown
			}
			if handler.IsFinally && handler.FinallyReg >= 0 {
				f.registers[handler.FinallyReg] = thrown
			}
			return true, value.Value{}, nil
		}
		if len(it.frames) == base+1 {
			// No handler anywhere on the stack up to base: surfaces as
			// the script-level *errors.ScriptError this function returns.
			if se, ok := err.(*errors.ScriptError); ok {
				return false, value.Value{}, se
			}
			return false, value.Value{}, errors.Typef(errors.Position{}, "uncaught exception: %s", describeThrown(thrown))
		}
		it.popFrame()
	}
	return false, value.Value{}, nil
}

func describeThrown(v value.Value) string {
	if v.IsString() {
		return v.AsString().Canonical()
	}
	return typeofString(v) + " value"
}

// findHandler returns the innermost exception-table entry covering pc,
// preferring entries that appear earlier in the table —
// compile_statement.go appends a try's own entries only after compiling
// its body and catch clause, so a nested try's entries (and a try's
// catch entry, ahead of its finally entries) come first, and scanning
// forward finds the innermost match first.
func findHandler(f *Frame, pc int) (bytecode.ExceptionHandler, bool) {
	table := f.proto.ExceptionTable
	for i := 0; i < len(table); i++ {
		h := table[i]
		if pc >= h.TryStart && pc < h.TryEnd {
			return h, true
		}
	}
	return bytecode.ExceptionHandler{}, false
}
