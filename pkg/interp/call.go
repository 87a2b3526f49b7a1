package interp

import (
	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// isCallableValue reports whether v can sit on the left of a call
// expression or the right of `new`: a script closure, a bound function
// (unwrapped to its target), or a proxy whose target is callable.
// Installed into object.SetProxyInvoker so exotic_proxy.go's own
// callability check (used by its trap lookup) agrees with this one.
func (it *Interp) isCallableValue(v value.Value) bool {
	cell, ok := v.HeapCell()
	if !ok {
		return false
	}
	switch t := cell.(type) {
	case *FunctionObject:
		return true
	case *object.BoundFunctionExotic:
		return it.isCallableValue(t.Target)
	case *object.ProxyExotic:
		return it.isCallableValue(value.Obj(t.Target))
	default:
		return false
	}
}

// callValue is the general call entry point used by every interpreter
// path that doesn't already hold a *FunctionObject: property accessors,
// iterator protocol drivers, instanceof, spread calls.
func (it *Interp) callValue(callee, thisVal value.Value, args []value.Value) (value.Value, *errors.ScriptError) {
	cell, ok := callee.HeapCell()
	if !ok {
		return value.Value{}, errors.Typef(errors.Position{}, "%s is not a function", typeofString(callee))
	}
	switch t := cell.(type) {
	case *FunctionObject:
		return it.callFunction(t, thisVal, args, value.Undefined, false)
	case *object.BoundFunctionExotic:
		merged := append(append([]value.Value{}, t.BoundArgs...), args...)
		return it.callValue(t.Target, t.BoundThis, merged)
	case *object.ProxyExotic:
		// No "apply" trap machinery exists yet (see exotic_proxy.go);
		// calling a proxy forwards to its target, matching every other
		// trap exotic_proxy.go hasn't implemented.
		return it.callValue(value.Obj(t.Target), thisVal, args)
	default:
		return value.Value{}, errors.Typef(errors.Position{}, "value is not callable")
	}
}

func (it *Interp) callGetterHook(getter, thisVal value.Value) (value.Value, *errors.ScriptError) {
	return it.callValue(getter, thisVal, nil)
}

func (it *Interp) callSetterHook(setter, thisVal, v value.Value) (bool, *errors.ScriptError) {
	_, err := it.callValue(setter, thisVal, []value.Value{v})
	return err == nil, err
}

func (it *Interp) callProxyTrapHook(trap value.Value, args []value.Value) (value.Value, *errors.ScriptError) {
	if len(args) == 0 {
		return it.callValue(trap, value.Undefined, nil)
	}
	return it.callValue(trap, args[0], args[1:])
}

// callFunction pushes a fresh frame for a script closure's body and
// drives the shared dispatch loop until that frame (and anything it
// calls) settles, returning the body's result or its uncaught error.
// Generator and async functions never reach that shared loop this way:
// calling either produces its wrapper object (a GeneratorObject or a
// PromiseObject) without running the body to completion here, per
// ECMAScript's own call semantics for them.
func (it *Interp) callFunction(fn *FunctionObject, thisVal value.Value, args []value.Value, newTarget value.Value, isConstruct bool) (value.Value, *errors.ScriptError) {
	if v, handled, err := it.startSpecialBody(fn, thisVal, args, newTarget); handled {
		return v, err
	}
	frame := it.makeFrame(fn, thisVal, args, newTarget)
	if err := it.pushFrame(frame); err != nil {
		return value.Value{}, err
	}
	base := len(it.frames) - 1
	v, err := it.run(base)
	it.popFrame()
	return v, err
}

// startSpecialBody reports whether fn is a generator or async function
// and, if so, already computed its call result: a suspended-start
// GeneratorObject, or a promise backing its synchronous run to the
// first await/return. Both dispatchCall and callFunction funnel through
// this so a generator/async function is never pushed and run as an
// ordinary frame regardless of which call path invoked it.
func (it *Interp) startSpecialBody(fn *FunctionObject, thisVal value.Value, args []value.Value, newTarget value.Value) (value.Value, bool, *errors.ScriptError) {
	if fn.Proto.IsGenerator {
		return it.createGenerator(fn, thisVal, args, newTarget), true, nil
	}
	if fn.Proto.IsAsync {
		v, err := it.runAsync(fn, thisVal, args, newTarget)
		return v, true, err
	}
	return value.Value{}, false, nil
}

func (it *Interp) makeFrame(fn *FunctionObject, thisVal value.Value, args []value.Value, newTarget value.Value) *Frame {
	proto := fn.Proto
	registers := make([]value.Value, proto.NumRegs)
	for i := range registers {
		registers[i] = value.Undefined
	}
	for i := 0; i < proto.ParamCount && i < len(args); i++ {
		registers[i] = args[i]
	}
	home, hasHome := value.Value{}, false
	if fn.HasHome {
		home, hasHome = fn.HomeObject, true
	}
	return &Frame{
		fn:         fn,
		proto:      proto,
		registers:  registers,
		thisValue:  thisVal,
		newTarget:  newTarget,
		homeObject: home,
		hasHome:    hasHome,
		args:       append([]value.Value{}, args...),
	}
}

// execCallFamily decodes and executes one OpCall/OpNew-family
// instruction. Argument registers for every non-spread variant start
// immediately at dest+1, a load-bearing convention of the compiler's
// register allocator (see compileCallExpression/compileNewExpression:
// dest is always allocated immediately before the contiguous argument
// block, and the allocator never frees and reuses a register in between).
func (it *Interp) execCallFamily(f *Frame, op bytecode.OpCode, reg func() byte, u16 func() uint16) (stepResult, error) {
	switch op {
	case bytecode.OpCall, bytecode.OpTailCall:
		dest, fnReg, argCount := reg(), reg(), reg()
		args := append([]value.Value{}, f.registers[int(dest)+1:int(dest)+1+int(argCount)]...)
		return it.dispatchCall(f, dest, f.registers[fnReg], value.Undefined, args, op == bytecode.OpTailCall)

	case bytecode.OpCallMethod, bytecode.OpTailCallMethod:
		dest, fnReg, thisReg, argCount := reg(), reg(), reg(), reg()
		args := append([]value.Value{}, f.registers[int(dest)+1:int(dest)+1+int(argCount)]...)
		return it.dispatchCall(f, dest, f.registers[fnReg], f.registers[thisReg], args, op == bytecode.OpTailCallMethod)

	case bytecode.OpSpreadCall:
		dest, fnReg, argsReg := reg(), reg(), reg()
		args, err := it.extractArrayElements(f.registers[argsReg])
		if err != nil {
			return stepResult{}, err
		}
		return it.dispatchCall(f, dest, f.registers[fnReg], value.Undefined, args, false)

	case bytecode.OpSpreadCallMethod:
		dest, fnReg, thisReg, argsReg := reg(), reg(), reg(), reg()
		args, err := it.extractArrayElements(f.registers[argsReg])
		if err != nil {
			return stepResult{}, err
		}
		return it.dispatchCall(f, dest, f.registers[fnReg], f.registers[thisReg], args, false)

	case bytecode.OpNew:
		dest, ctorReg, argCount := reg(), reg(), reg()
		args := append([]value.Value{}, f.registers[int(dest)+1:int(dest)+1+int(argCount)]...)
		v, err := it.construct(f.registers[ctorReg], args)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[dest] = v
		return stepResult{kind: stepContinue}, nil

	case bytecode.OpSpreadNew:
		dest, ctorReg, argsReg := reg(), reg(), reg()
		args, err := it.extractArrayElements(f.registers[argsReg])
		if err != nil {
			return stepResult{}, err
		}
		v, err := it.construct(f.registers[ctorReg], args)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[dest] = v
		return stepResult{kind: stepContinue}, nil

	default:
		return stepResult{}, &errors.Fatal{Reason: "interp: unreachable call opcode"}
	}
}

func (it *Interp) extractArrayElements(arr value.Value) ([]value.Value, *errors.ScriptError) {
	length, err := it.getLength(arr)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, 0, int(length))
	for i := 0; i < int(length); i++ {
		v, err := it.getIndexed(arr, value.Number(float64(i)))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// dispatchCall resolves callee (unwrapping bound functions, forwarding
// proxies) down to a concrete *FunctionObject and either pushes a new
// frame for it (ordinary call) or replaces the current frame in place
// (tail call, so a self-recursive tail loop never grows the interpreter's
// own frame stack). Native (non-script) callables settle synchronously
// through callValue instead, since they have no frame of their own.
func (it *Interp) dispatchCall(f *Frame, dest byte, callee, thisVal value.Value, args []value.Value, isTail bool) (stepResult, error) {
	fn, thisVal, args, ok := it.resolveCallTarget(callee, thisVal, args)
	if !ok {
		v, err := it.callValue(callee, thisVal, args)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[dest] = v
		return stepResult{kind: stepContinue}, nil
	}

	if v, handled, err := it.startSpecialBody(fn, thisVal, args, value.Undefined); handled {
		if err != nil {
			return stepResult{}, err
		}
		f.registers[dest] = v
		return stepResult{kind: stepContinue}, nil
	}

	newFrame := it.makeFrame(fn, thisVal, args, value.Undefined)
	if isTail {
		newFrame.resultReg = f.resultReg
		it.popFrame()
	} else {
		newFrame.resultReg = dest
	}
	if err := it.pushFrame(newFrame); err != nil {
		return stepResult{}, err
	}
	return stepResult{kind: stepContinue}, nil
}

// asCallableFunctionObject unwraps bound functions/proxies down to a
// concrete script *FunctionObject, the same way resolveCallTarget does
// for a call's callee, for call sites (OpCreateGenerator) that only have
// a bare value and no argument list to thread through yet.
func (it *Interp) asCallableFunctionObject(v value.Value) (*FunctionObject, bool) {
	fn, _, _, ok := it.resolveCallTarget(v, value.Undefined, nil)
	return fn, ok
}

// resolveCallTarget unwraps bound functions and proxies until it either
// finds a script *FunctionObject (the common fast path, handled by
// pushing/replacing a frame directly) or bottoms out at something
// callValue must handle generically (native functions, once pkg/host
// registers any).
func (it *Interp) resolveCallTarget(callee, thisVal value.Value, args []value.Value) (*FunctionObject, value.Value, []value.Value, bool) {
	cell, ok := callee.HeapCell()
	if !ok {
		return nil, thisVal, args, false
	}
	switch t := cell.(type) {
	case *FunctionObject:
		return t, thisVal, args, true
	case *object.BoundFunctionExotic:
		merged := append(append([]value.Value{}, t.BoundArgs...), args...)
		return it.resolveCallTarget(t.Target, t.BoundThis, merged)
	case *object.ProxyExotic:
		return it.resolveCallTarget(value.Obj(t.Target), thisVal, args)
	default:
		return nil, thisVal, args, false
	}
}

// construct implements `new`: allocate a fresh object inheriting from
// the constructor's "prototype" property, run the constructor with that
// object as `this` and new.target, then use the constructor's own
// return value if it returned an object (the ECMAScript [[Construct]]
// rule), otherwise the allocated object.
func (it *Interp) construct(ctor value.Value, args []value.Value) (value.Value, *errors.ScriptError) {
	if !it.isCallableValue(ctor) {
		return value.Value{}, errors.Typef(errors.Position{}, "%s is not a constructor", typeofString(ctor))
	}
	ctorObj, ok := it.asObj(ctor)
	if !ok {
		return value.Value{}, errors.Typef(errors.Position{}, "value is not a constructor")
	}
	protoVal, err := ctorObj.Get(object.StringKey("prototype"), ctor)
	if err != nil {
		return value.Value{}, err
	}
	if !protoVal.IsObject() {
		protoVal = it.objectPrototype()
	}
	instance := object.NewPlainObject(it.Heap, protoVal)
	it.Heap.Publish(instance)
	thisVal := value.Obj(instance)

	result, err := it.callValue(ctor, thisVal, args)
	if err != nil {
		return value.Value{}, err
	}
	if result.IsObject() {
		return result, nil
	}
	return thisVal, nil
}

// execClosure reads an OpClosure instruction's FuncProtoIdx + upvalue
// descriptor list and instantiates a new FunctionObject capturing the
// current frame's live upvalue cells.
func (it *Interp) execClosure(f *Frame, ip int) (stepResult, error) {
	code := f.proto.Code
	dest := code[ip]
	ip++
	protoIdx := readU16(code, ip)
	ip += 2
	count := code[ip]
	ip++

	childProto := f.proto.Functions[protoIdx]
	upvalues := make([]*upvalueCell, count)
	for i := 0; i < int(count); i++ {
		isLocal := code[ip] != 0
		idx := int(code[ip+1])
		ip += 2
		if isLocal {
			upvalues[i] = it.openUpvalue(f, idx)
		} else {
			upvalues[i] = f.fn.Upvalues[idx]
		}
	}

	fn := newFunctionObject(it.Heap, it.functionPrototype(), childProto, upvalues)
	it.Heap.Publish(fn)
	f.ip = ip
	f.registers[dest] = value.Obj(fn)
	return stepResult{kind: stepContinue}, nil
}

// functionPrototype is the prototype newly-created closures inherit
// from; like objectPrototype, this is a stopgap until pkg/host installs
// a real Function.prototype onto the realm.
func (it *Interp) functionPrototype() value.Value { return value.Null }

// openUpvalue returns the shared cell for local slot idx in f, creating
// it the first time this frame's local is captured so that two closures
// created from the same call share the same cell.
func (it *Interp) openUpvalue(f *Frame, idx int) *upvalueCell {
	for _, existing := range f.openUpvalues {
		if existing.open && existing.frame == f && existing.slot == idx {
			return existing
		}
	}
	cell := &upvalueCell{open: true, frame: f, slot: idx}
	f.openUpvalues = append(f.openUpvalues, cell)
	return cell
}
