package interp

import (
	"math"

	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/heap"
	"esrt/pkg/job"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// Interp is the engine's one interpreter instance: the heap, the realm
// it executes against, and the live call-frame stack. A suspended
// generator/async body is parked by detaching its *Frame onto its
// GeneratorObject/PromiseObject (see generator.go); resuming it later
// pushes that same frame back onto this stack rather than unwinding and
// rebuilding it.
type Interp struct {
	Heap  *heap.Heap
	Realm *object.Realm

	frames []*Frame

	// ModuleLoader resolves BindingModuleImport references; nil until
	// pkg/host wires in a module registry (see pkg/modules).
	ModuleLoader ModuleLoader

	// Jobs is the queue every promise reaction this interpreter settles
	// schedules onto (see async.go). NewInterp gives every Interp its own
	// private queue so it's always non-nil and usable standalone (tests
	// construct an Interp directly with no embedder around it); an
	// embedder sharing one queue across several Interps (pkg/host.Runtime
	// across its module graph) calls SetJobs to replace it.
	Jobs *job.Queue
}

// ModuleLoader is the interpreter's narrow view of the module system:
// just enough to resolve a "module#exportName" BindingRef into a live
// value. pkg/modules implements it against the module linking graph.
type ModuleLoader interface {
	ResolveImport(ref string) (value.Value, *errors.ScriptError)
}

// NewInterp wires a fresh interpreter against an existing heap and
// realm, and installs its Call/property-trap implementations into the
// no-op hooks package object declares to avoid an import cycle.
func NewInterp(h *heap.Heap, realm *object.Realm) *Interp {
	it := &Interp{Heap: h, Realm: realm, Jobs: &job.Queue{}}
	h.RegisterRoot(it)
	object.SetAccessorInvoker(it.callGetterHook, it.callSetterHook)
	object.SetProxyInvoker(it.isCallableValue, it.callProxyTrapHook)
	return it
}

// SetJobs replaces it's private job queue with a shared one, so an
// embedder draining one queue (pkg/host.Runtime.Drain) also drains every
// reaction this interpreter schedules — needed because each module in a
// program gets its own Interp (pkg/modules.Loader) but every one of them
// must feed the same drain point.
func (it *Interp) SetJobs(j *job.Queue) { it.Jobs = j }

// GCRoots marks everything reachable from a live interpreter: every
// frame's register window, its this/new.target/home-object, its copied
// arguments, and the realm itself.
func (it *Interp) GCRoots(v *heap.Visitor) {
	for _, f := range it.frames {
		for _, r := range f.registers {
			v.MarkValue(r)
		}
		v.MarkValue(f.thisValue)
		v.MarkValue(f.newTarget)
		v.MarkValue(f.homeObject)
		for _, a := range f.args {
			v.MarkValue(a)
		}
		for _, w := range f.withStack {
			v.MarkValue(w)
		}
		if f.fn != nil {
			v.Mark(f.fn)
		}
	}
}

func (it *Interp) asObj(v value.Value) (object.Obj, bool) {
	c, ok := v.HeapCell()
	if !ok {
		return nil, false
	}
	obj, ok := c.(object.Obj)
	return obj, ok
}

// RunProgram executes a top-level script FunctionProto to completion and
// returns the value of its last evaluated expression statement (register
// 0 on fallthrough, per the compiler's top-level convention) or the
// thrown error.
func (it *Interp) RunProgram(proto *bytecode.FunctionProto) (value.Value, *errors.ScriptError) {
	fn := newFunctionObject(it.Heap, value.Null, proto, nil)
	it.Heap.Publish(fn)
	thisVal, _ := it.Realm.GlobalEnv.GetThisBinding()
	return it.callFunction(fn, thisVal, nil, value.Undefined, false)
}

func (it *Interp) pushFrame(f *Frame) *errors.ScriptError {
	if len(it.frames) >= maxFrames {
		return errors.Rangef(errors.Position{}, "call stack size exceeded")
	}
	it.frames = append(it.frames, f)
	return nil
}

func (it *Interp) popFrame() {
	it.frames = it.frames[:len(it.frames)-1]
}

func (it *Interp) top() *Frame {
	return it.frames[len(it.frames)-1]
}

// run is the single dispatch loop: it always operates on the topmost
// frame, re-fetching it every iteration rather than recursing. It never
// pops the frame at index base, under any exit: normal completion,
// an uncaught throw, or a suspension (see stepSuspended below) all
// leave that frame for run's own caller to pop exactly once, which is
// what lets ResumeGenerator (generator.go) push a previously-suspended
// frame back in and reuse this same loop unmodified.
func (it *Interp) run(base int) (value.Value, *errors.ScriptError) {
	for {
		f := it.frames[len(it.frames)-1]
		if len(it.frames) <= base {
			panic("interp: run() popped below its own base frame")
		}
		if f.ip >= len(f.proto.Code) {
			// Falling off the end of a function body behaves like an
			// implicit `return undefined`; at the top level it instead
			// surfaces the last value computed into register 0.
			if len(it.frames) == base+1 {
				return f.registers[0], nil
			}
			it.popFrame()
			continue
		}

		pc := f.ip
		result, err := it.step(f)
		if err != nil {
			// pc, not f.ip, is the throw site: individual step() cases are
			// inconsistent about whether they advance f.ip before
			// returning an error (OpThrow does, most arithmetic/property
			// opcodes don't), so the instruction's start position is
			// captured here, before step() runs, rather than inferred
			// from f.ip afterward.
			unwound, retVal, rerr := it.unwind(base, pc, err)
			if unwound {
				continue
			}
			return retVal, rerr
		}
		switch result.kind {
		case stepContinue:
		case stepReturned:
			if len(it.frames) == base+1 {
				return result.value, nil
			}
			it.popFrame()
			caller := it.top()
			caller.registers[result.destReg] = result.value
		case stepSuspended:
			// A generator/async body yielded or awaited: doYield/doAwait
			// has already parked this frame on its GeneratorObject/
			// PromiseObject (see generator.go) without popping it, so
			// run() simply stops here and leaves the pop to its caller.
			return result.value, nil
		}
	}
}

type stepKind uint8

const (
	stepContinue stepKind = iota
	stepReturned
	stepSuspended
)

type stepResult struct {
	kind    stepKind
	value   value.Value
	destReg byte
}

func readU16(code []byte, at int) uint16 {
	return uint16(code[at])<<8 | uint16(code[at+1])
}

// step decodes and executes exactly one instruction at f.ip, advancing
// f.ip past its operands before it returns (branches overwrite ip
// themselves). A non-nil error means the instruction raised a script
// exception, which the caller unwinds via the function's exception
// table.
func (it *Interp) step(f *Frame) (stepResult, error) {
	code := f.proto.Code
	op := bytecode.OpCode(code[f.ip])
	ip := f.ip + 1

	reg := func() byte { b := code[ip]; ip++; return b }
	u16 := func() uint16 { v := readU16(code, ip); ip += 2; return v }
	jumpOffset := func() int16 { return int16(readU16(code, ip)) }

	switch op {
	case bytecode.OpLoadConst:
		rx, idx := reg(), u16()
		f.registers[rx] = f.proto.Constants[idx]
	case bytecode.OpLoadNull:
		rx := reg()
		f.registers[rx] = value.Null
	case bytecode.OpLoadUndefined:
		rx := reg()
		f.registers[rx] = value.Undefined
	case bytecode.OpLoadTrue:
		rx := reg()
		f.registers[rx] = value.True
	case bytecode.OpLoadFalse:
		rx := reg()
		f.registers[rx] = value.False
	case bytecode.OpMove:
		rx, ry := reg(), reg()
		f.registers[rx] = f.registers[ry]

	case bytecode.OpAdd:
		rx, ry, rz := reg(), reg(), reg()
		v, err := it.add(f.registers[ry], f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide, bytecode.OpRemainder, bytecode.OpExponent:
		rx, ry, rz := reg(), reg(), reg()
		a, err := it.toNumber(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		b, err := it.toNumber(f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Number(arith(op, a, b))
	case bytecode.OpStringConcat:
		rx, ry, rz := reg(), reg(), reg()
		a, err := it.toString(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		b, err := it.toString(f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Str(a + b)
	case bytecode.OpNegate:
		rx, ry := reg(), reg()
		n, err := it.toNumber(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Number(-n)
	case bytecode.OpNot:
		rx, ry := reg(), reg()
		f.registers[rx] = value.Bool(!f.registers[ry].ToBoolean())
	case bytecode.OpTypeof:
		rx, ry := reg(), reg()
		f.registers[rx] = value.Str(typeofString(f.registers[ry]))
	case bytecode.OpToNumber:
		rx, ry := reg(), reg()
		n, err := it.toNumber(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Number(n)

	case bytecode.OpEqual, bytecode.OpNotEqual:
		rx, ry, rz := reg(), reg(), reg()
		eq, err := it.looseEquals(f.registers[ry], f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Bool(eq == (op == bytecode.OpEqual))
	case bytecode.OpStrictEqual, bytecode.OpStrictNotEqual:
		rx, ry, rz := reg(), reg(), reg()
		eq := strictEquals(f.registers[ry], f.registers[rz])
		f.registers[rx] = value.Bool(eq == (op == bytecode.OpStrictEqual))
	case bytecode.OpGreater, bytecode.OpLess, bytecode.OpLessEqual, bytecode.OpGreaterEqual:
		rx, ry, rz := reg(), reg(), reg()
		res, err := it.relational(op, f.registers[ry], f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = res
	case bytecode.OpIn:
		rx, ry, rz := reg(), reg(), reg()
		key, err := it.toPropertyKeyValue(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		obj, ok := it.asObj(f.registers[rz])
		if !ok {
			return stepResult{}, errors.Typef(errors.Position{}, "cannot use 'in' operator on a non-object")
		}
		f.registers[rx] = value.Bool(obj.HasProperty(key))
	case bytecode.OpInstanceof:
		rx, ry, rz := reg(), reg(), reg()
		res, err := it.instanceOf(f.registers[ry], f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Bool(res)

	case bytecode.OpBitwiseNot:
		rx, ry := reg(), reg()
		n, err := it.toInt32(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Number(float64(^n))
	case bytecode.OpBitwiseAnd, bytecode.OpBitwiseOr, bytecode.OpBitwiseXor:
		rx, ry, rz := reg(), reg(), reg()
		a, err := it.toInt32(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		b, err := it.toInt32(f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Number(float64(bitwise(op, a, b)))
	case bytecode.OpShiftLeft, bytecode.OpShiftRight:
		rx, ry, rz := reg(), reg(), reg()
		a, err := it.toInt32(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		b, err := it.toUint32(f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		shift := uint(b & 31)
		if op == bytecode.OpShiftLeft {
			f.registers[rx] = value.Number(float64(a << shift))
		} else {
			f.registers[rx] = value.Number(float64(a >> shift))
		}
	case bytecode.OpUnsignedShiftRight:
		rx, ry, rz := reg(), reg(), reg()
		a, err := it.toUint32(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		b, err := it.toUint32(f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Number(float64(a >> uint(b&31)))

	case bytecode.OpIsNull:
		rx, ry := reg(), reg()
		f.registers[rx] = value.Bool(f.registers[ry].IsNull())
	case bytecode.OpIsUndefined:
		rx, ry := reg(), reg()
		f.registers[rx] = value.Bool(f.registers[ry].IsUndefined())
	case bytecode.OpIsNullish:
		rx, ry := reg(), reg()
		f.registers[rx] = value.Bool(f.registers[ry].IsNullish())
	case bytecode.OpJumpIfNull:
		ry, off := reg(), jumpOffset()
		if f.registers[ry].IsNull() {
			ip = f.ip + 3 + int(off)
		}
	case bytecode.OpJumpIfUndefined:
		ry, off := reg(), jumpOffset()
		if f.registers[ry].IsUndefined() {
			ip = f.ip + 3 + int(off)
		}
	case bytecode.OpJumpIfNullish:
		ry, off := reg(), jumpOffset()
		if f.registers[ry].IsNullish() {
			ip = f.ip + 3 + int(off)
		}

	case bytecode.OpJumpIfFalse:
		ry, off := reg(), jumpOffset()
		if !f.registers[ry].ToBoolean() {
			ip = f.ip + 3 + int(off)
		}
	case bytecode.OpJump:
		off := jumpOffset()
		ip = f.ip + 1 + int(off)

	case bytecode.OpReturn:
		rx := reg()
		f.ip = ip
		return it.doReturn(f, f.registers[rx]), nil
	case bytecode.OpReturnUndefined:
		f.ip = ip
		return it.doReturn(f, value.Undefined), nil

	case bytecode.OpClosure:
		return it.execClosure(f, ip)
	case bytecode.OpLoadFree:
		rx, idx := reg(), reg()
		f.registers[rx] = f.fn.Upvalues[idx].get()
	case bytecode.OpSetUpvalue:
		idx, ry := reg(), reg()
		f.fn.Upvalues[idx].set(f.registers[ry])

	case bytecode.OpMakeArray:
		rx, start, count := reg(), reg(), reg()
		arr := it.newArray(f.registers[start : int(start)+int(count)])
		f.registers[rx] = arr
	case bytecode.OpAllocArray:
		rx, length := reg(), u16()
		elems := make([]value.Value, length)
		for i := range elems {
			elems[i] = value.Undefined
		}
		f.registers[rx] = it.newArray(elems)
	case bytecode.OpArrayCopy:
		rx, destOffset, start, count := reg(), u16(), reg(), reg()
		arrObj, _ := it.asObj(f.registers[rx])
		for i := 0; i < int(count); i++ {
			idx := int(destOffset) + i
			_, _ = arrObj.Set(object.StringKey(itoa(idx)), f.registers[int(start)+i], f.registers[rx])
		}
	case bytecode.OpGetIndex:
		rx, arr, idxReg := reg(), reg(), reg()
		v, err := it.getIndexed(f.registers[arr], f.registers[idxReg])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSetIndex:
		arr, idxReg, val := reg(), reg(), reg()
		if err := it.setIndexed(f.registers[arr], f.registers[idxReg], f.registers[val]); err != nil {
			return stepResult{}, err
		}
	case bytecode.OpGetLength:
		rx, ry := reg(), reg()
		l, err := it.getLength(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Number(l)
	case bytecode.OpArraySlice:
		rx, ry, rz := reg(), reg(), reg()
		v, err := it.arraySlice(f.registers[ry], f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpArraySpread:
		rx, ry := reg(), reg()
		v, err := it.arraySpreadInto(f.registers[rx], f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v

	case bytecode.OpMakeEmptyObject:
		rx := reg()
		o := object.NewPlainObject(it.Heap, it.objectPrototype())
		it.Heap.Publish(o)
		f.registers[rx] = value.Obj(o)
	case bytecode.OpGetProp:
		rx, ry, nameIdx := reg(), reg(), u16()
		name := it.propName(f, nameIdx)
		v, err := it.getProperty(f.registers[ry], name)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSetProp:
		objReg, nameIdx, valReg := reg(), u16(), reg()
		name := it.propName(f, nameIdx)
		if err := it.setProperty(f.registers[objReg], name, f.registers[valReg]); err != nil {
			return stepResult{}, err
		}
	case bytecode.OpDeleteProp:
		rx, ry, nameIdx := reg(), reg(), u16()
		name := it.propName(f, nameIdx)
		obj, ok := it.asObj(f.registers[ry])
		if !ok {
			f.registers[rx] = value.True
		} else {
			f.registers[rx] = value.Bool(obj.Delete(name))
		}
	case bytecode.OpDeleteIndex:
		rx, ry, rz := reg(), reg(), reg()
		obj, ok := it.asObj(f.registers[ry])
		if !ok {
			f.registers[rx] = value.True
			break
		}
		key, err := it.toPropertyKeyValue(f.registers[rz])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = value.Bool(obj.Delete(key))
	case bytecode.OpToPropertyKey:
		rx, ry := reg(), reg()
		key, err := it.toPropertyKeyValue(f.registers[ry])
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = it.keyAsValue(key)
	case bytecode.OpObjectSpread:
		rx, ry := reg(), reg()
		if err := it.objectSpreadInto(f.registers[rx], f.registers[ry]); err != nil {
			return stepResult{}, err
		}
	case bytecode.OpCopyObjectExcluding:
		rx, ry, count := reg(), reg(), reg()
		excluded := make([]object.PropertyKey, count)
		for i := 0; i < int(count); i++ {
			excluded[i], _ = it.toPropertyKeyValue(f.registers[int(ry)+1+i])
		}
		v, err := it.copyObjectExcluding(f.registers[ry], excluded)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpGetOwnKeys:
		rx, ry := reg(), reg()
		f.registers[rx] = it.ownKeysArray(f.registers[ry])
	case bytecode.OpDefineMethod:
		objReg, valReg, nameIdx := reg(), reg(), u16()
		name := it.propName(f, nameIdx)
		obj, _ := it.asObj(f.registers[objReg])
		_, _ = obj.DefineOwnProperty(name, object.DataDescriptor(f.registers[valReg], true, false, true))
	case bytecode.OpDefineMethodComputed:
		objReg, valReg, keyReg := reg(), reg(), reg()
		key, err := it.toPropertyKeyValue(f.registers[keyReg])
		if err != nil {
			return stepResult{}, err
		}
		obj, _ := it.asObj(f.registers[objReg])
		_, _ = obj.DefineOwnProperty(key, object.DataDescriptor(f.registers[valReg], true, false, true))
	case bytecode.OpDefineAccessor:
		objReg, getReg, setReg, nameIdx := reg(), reg(), reg(), u16()
		name := it.propName(f, nameIdx)
		it.defineAccessor(f.registers[objReg], name, f.registers[getReg], f.registers[setReg])
	case bytecode.OpDefineAccessorComputed:
		objReg, getReg, setReg, keyReg := reg(), reg(), reg(), reg()
		key, err := it.toPropertyKeyValue(f.registers[keyReg])
		if err != nil {
			return stepResult{}, err
		}
		it.defineAccessor(f.registers[objReg], key, f.registers[getReg], f.registers[setReg])
	case bytecode.OpSetPrototype:
		objReg, protoReg := reg(), reg()
		obj, ok := it.asObj(f.registers[objReg])
		if ok {
			obj.SetPrototypeOf(f.registers[protoReg])
		}

	case bytecode.OpGetPrivateField, bytecode.OpSetPrivateField, bytecode.OpSetPrivateAccessor:
		return stepResult{}, errors.Typef(errors.Position{}, "private fields are not yet supported")

	case bytecode.OpLoadThis:
		rx := reg()
		f.registers[rx] = f.thisValue
	case bytecode.OpSetThis:
		ry := reg()
		f.thisValue = f.registers[ry]
	case bytecode.OpLoadNewTarget:
		rx := reg()
		f.registers[rx] = f.newTarget
	case bytecode.OpLoadSuper:
		rx := reg()
		f.registers[rx] = f.homeObject
	case bytecode.OpGetSuper:
		rx, nameIdx := reg(), u16()
		v, err := it.getSuperProperty(f, it.propName(f, nameIdx))
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSetSuper:
		nameIdx, valReg := u16(), reg()
		if err := it.setSuperProperty(f, it.propName(f, nameIdx), f.registers[valReg]); err != nil {
			return stepResult{}, err
		}
	case bytecode.OpGetSuperComputed:
		rx, keyReg := reg(), reg()
		key, err := it.toPropertyKeyValue(f.registers[keyReg])
		if err != nil {
			return stepResult{}, err
		}
		v, err := it.getSuperProperty(f, key)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSetSuperComputed:
		keyReg, valReg := reg(), reg()
		key, err := it.toPropertyKeyValue(f.registers[keyReg])
		if err != nil {
			return stepResult{}, err
		}
		if err := it.setSuperProperty(f, key, f.registers[valReg]); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpGetGlobal:
		rx, idx := reg(), u16()
		v, err := it.Realm.GlobalEnv.GetBindingValue(it.globalNameAt(f, idx), false)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSetGlobal:
		idx, ry := u16(), reg()
		if err := it.Realm.GlobalEnv.SetMutableBinding(it.globalNameAt(f, idx), f.registers[ry], false); err != nil {
			return stepResult{}, err
		}
	case bytecode.OpDeleteGlobal:
		rx, idx := reg(), u16()
		f.registers[rx] = value.Bool(it.Realm.GlobalEnv.DeleteBinding(it.globalNameAt(f, idx)))
	case bytecode.OpTypeofIdentifier:
		rx, idx := reg(), u16()
		v, _ := it.resolveBindingRef(f, idx, false)
		f.registers[rx] = value.Str(typeofString(v))
	case bytecode.OpGetBinding:
		rx, idx := reg(), u16()
		v, err := it.resolveBindingRef(f, idx, true)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSetBinding:
		idx, ry := u16(), reg()
		if err := it.setBindingRef(f, idx, f.registers[ry]); err != nil {
			return stepResult{}, err
		}
	case bytecode.OpInitBinding:
		idx, ry := u16(), reg()
		it.initBindingRef(f, idx, f.registers[ry])

	case bytecode.OpPushWithObject:
		ry := reg()
		f.withStack = append(f.withStack, f.registers[ry])
	case bytecode.OpPopWithObject:
		f.withStack = f.withStack[:len(f.withStack)-1]
	case bytecode.OpGetWithProperty:
		rx, nameIdx := reg(), u16()
		name := it.propName(f, nameIdx)
		v, err := it.getProperty(f.withStack[len(f.withStack)-1], name)
		if err != nil {
			return stepResult{}, err
		}
		f.registers[rx] = v
	case bytecode.OpSetWithProperty:
		nameIdx, valReg := u16(), reg()
		name := it.propName(f, nameIdx)
		if err := it.setProperty(f.withStack[len(f.withStack)-1], name, f.registers[valReg]); err != nil {
			return stepResult{}, err
		}

	case bytecode.OpGetArguments:
		rx := reg()
		f.registers[rx] = it.newArgumentsObject(f)

	case bytecode.OpThrow:
		rx := reg()
		f.ip = ip
		return stepResult{}, &ThrowCompletion{Value: f.registers[rx]}
	case bytecode.OpPushBreak, bytecode.OpPushContinue, bytecode.OpHandlePending, bytecode.OpReturnFinally:
		// Compression decision: try/catch/finally lowering (see
		// compile_statement.go) never emits these; they remain in the
		// opcode table for disassembler completeness only.
		u16()

	case bytecode.OpTypeGuardIterable:
		ry := reg()
		if !it.isIterable(f.registers[ry]) {
			return stepResult{}, errors.Typef(errors.Position{}, "value is not iterable")
		}
	case bytecode.OpTypeGuardIteratorReturn:
		ry := reg()
		_ = ry // closing an iterator early is handled inline at the for-of call sites

	case bytecode.OpCall, bytecode.OpCallMethod, bytecode.OpTailCall, bytecode.OpTailCallMethod,
		bytecode.OpSpreadCall, bytecode.OpSpreadCallMethod, bytecode.OpNew, bytecode.OpSpreadNew:
		// execCallFamily consumes its own operands through reg()/u16(),
		// which advance the ip closed over above; f.ip must be set only
		// after that consumption, not before, or a call that pushes a
		// new frame leaves this one resuming mid-instruction.
		result, err := it.execCallFamily(f, op, reg, u16)
		f.ip = ip
		return result, err

	case bytecode.OpCreateGenerator:
		// Not emitted by this compiler (generator functions are instead
		// routed through startSpecialBody at the call site itself, see
		// call.go); kept for disassembler/bytecode-table completeness
		// and any future lowering that constructs a generator from a bare
		// function value directly.
		rx, fnReg := reg(), reg()
		fn, ok := it.asCallableFunctionObject(f.registers[fnReg])
		if !ok {
			return stepResult{}, errors.Typef(errors.Position{}, "value is not a generator function")
		}
		f.registers[rx] = it.createGenerator(fn, value.Undefined, nil, value.Undefined)
	case bytecode.OpYield:
		rx, ry := reg(), reg()
		f.ip = ip
		return it.doYield(f, rx, f.registers[ry])
	case bytecode.OpYieldDelegated:
		// instrStart, unlike ip, is this instruction's own start offset:
		// doYieldDelegated needs both, since a still-in-progress
		// delegation must rewind f.ip back to instrStart so the next
		// resume re-enters this same instruction, while a delegation
		// that just completed advances past it like any other opcode.
		instrStart := f.ip
		resultReg, outputReg, iterReg := reg(), reg(), reg()
		return it.doYieldDelegated(f, instrStart, ip, resultReg, outputReg, iterReg)
	case bytecode.OpResumeGenerator:
		// Not emitted by this compiler; ResumeGenerator (generator.go)
		// resumes a suspended body by pushing its saved frame back onto
		// the interpreter's own frame stack, not by stepping over a
		// marker opcode.
	case bytecode.OpAwait:
		rx, promiseReg := reg(), reg()
		f.ip = ip
		return it.doAwait(f, rx, f.registers[promiseReg])

	case bytecode.OpEvalModule, bytecode.OpGetModuleExport, bytecode.OpCreateNamespace,
		bytecode.OpLoadImportMeta, bytecode.OpDynamicImport:
		return stepResult{}, errors.Typef(errors.Position{}, "module operations require a host-registered module loader")

	default:
		return stepResult{}, &errors.Fatal{Reason: "interp: unknown opcode " + op.String()}
	}

	f.ip = ip
	return stepResult{kind: stepContinue}, nil
}

func (it *Interp) doReturn(f *Frame, v value.Value) stepResult {
	if f.isGeneratorBody || f.isAsyncBody {
		return it.finishGeneratorOrAsync(f, v)
	}
	return stepResult{kind: stepReturned, value: v, destReg: f.resultReg}
}

// finishGeneratorOrAsync settles a returning generator/async frame: a
// generator is marked done and its return value handed back as run()'s
// suspended result (ResumeGenerator reads gen.State to tell this apart
// from an ordinary yield); an async function instead resolves its
// promise directly, since nothing is synchronously waiting on run()'s
// return value the way ResumeGenerator's caller is.
func (it *Interp) finishGeneratorOrAsync(f *Frame, v value.Value) stepResult {
	if f.isGeneratorBody {
		f.gen.State = GeneratorCompleted
		return stepResult{kind: stepSuspended, value: v}
	}
	it.resolvePromise(f.promise, v)
	return stepResult{kind: stepSuspended, value: v}
}

func arith(op bytecode.OpCode, a, b float64) float64 {
	switch op {
	case bytecode.OpSubtract:
		return a - b
	case bytecode.OpMultiply:
		return a * b
	case bytecode.OpDivide:
		return a / b
	case bytecode.OpRemainder:
		return math.Mod(a, b)
	case bytecode.OpExponent:
		return math.Pow(a, b)
	default:
		return math.NaN()
	}
}

func bitwise(op bytecode.OpCode, a, b int32) int32 {
	switch op {
	case bytecode.OpBitwiseAnd:
		return a & b
	case bytecode.OpBitwiseOr:
		return a | b
	case bytecode.OpBitwiseXor:
		return a ^ b
	default:
		return 0
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	p := len(buf)
	for i > 0 {
		p--
		buf[p] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		p--
		buf[p] = '-'
	}
	return string(buf[p:])
}
