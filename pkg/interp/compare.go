package interp

import (
	"esrt/pkg/bytecode"
	"esrt/pkg/errors"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

func (it *Interp) bigIntString(v value.Value) string {
	if cell, ok := v.HeapCell(); ok {
		if bi, ok := cell.(*object.BigInt); ok {
			return bi.V.String()
		}
	}
	return "0"
}

// add implements the `+` operator's ECMAScript semantics: both operands
// go through ToPrimitive first; if either primitive is a string the
// result concatenates, otherwise both go through ToNumber and add.
func (it *Interp) add(a, b value.Value) (value.Value, *errors.ScriptError) {
	pa, err := it.toPrimitive(a, "default")
	if err != nil {
		return value.Value{}, err
	}
	pb, err := it.toPrimitive(b, "default")
	if err != nil {
		return value.Value{}, err
	}
	if pa.IsString() || pb.IsString() {
		sa, err := it.toString(pa)
		if err != nil {
			return value.Value{}, err
		}
		sb, err := it.toString(pb)
		if err != nil {
			return value.Value{}, err
		}
		return value.Str(sa + sb), nil
	}
	na, err := it.toNumber(pa)
	if err != nil {
		return value.Value{}, err
	}
	nb, err := it.toNumber(pb)
	if err != nil {
		return value.Value{}, err
	}
	return value.Number(na + nb), nil
}

// strictEquals implements `===`: no coercion, and object/function
// values compare by heap-cell identity.
func strictEquals(a, b value.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch a.Type() {
	case value.TypeUndefined, value.TypeNull:
		return true
	case value.TypeNumber:
		return a.AsNumber() == b.AsNumber() // NaN !== NaN, +0 === -0, unlike SameValueZero
	case value.TypeBoolean:
		return a.AsBool() == b.AsBool()
	case value.TypeString:
		return a.AsString().Canonical() == b.AsString().Canonical()
	default:
		ac, aok := a.HeapCell()
		bc, bok := b.HeapCell()
		return aok && bok && ac == bc
	}
}

// looseEquals implements `==`: the Abstract Equality Comparison table,
// recursing at most once per side after a ToPrimitive/ToNumber coercion.
func (it *Interp) looseEquals(a, b value.Value) (bool, *errors.ScriptError) {
	if a.Type() == b.Type() {
		return strictEquals(a, b), nil
	}
	if a.IsNullish() && b.IsNullish() {
		return true, nil
	}
	if a.IsNullish() || b.IsNullish() {
		return false, nil
	}
	if a.IsNumber() && b.IsString() {
		n, err := it.toNumber(b)
		if err != nil {
			return false, err
		}
		return a.AsNumber() == n, nil
	}
	if a.IsString() && b.IsNumber() {
		return it.looseEquals(b, a)
	}
	if a.IsBoolean() {
		n, err := it.toNumber(a)
		if err != nil {
			return false, err
		}
		return it.looseEquals(value.Number(n), b)
	}
	if b.IsBoolean() {
		return it.looseEquals(b, a)
	}
	if (a.IsNumber() || a.IsString()) && b.IsObject() {
		pb, err := it.toPrimitive(b, "default")
		if err != nil {
			return false, err
		}
		return it.looseEquals(a, pb)
	}
	if a.IsObject() && (b.IsNumber() || b.IsString()) {
		return it.looseEquals(b, a)
	}
	return false, nil
}

func (it *Interp) relational(op bytecode.OpCode, a, b value.Value) (value.Value, *errors.ScriptError) {
	pa, err := it.toPrimitive(a, "number")
	if err != nil {
		return value.Value{}, err
	}
	pb, err := it.toPrimitive(b, "number")
	if err != nil {
		return value.Value{}, err
	}
	if pa.IsString() && pb.IsString() {
		sa, sb := pa.AsString().Canonical(), pb.AsString().Canonical()
		switch op {
		case bytecode.OpLess:
			return value.Bool(sa < sb), nil
		case bytecode.OpGreater:
			return value.Bool(sa > sb), nil
		case bytecode.OpLessEqual:
			return value.Bool(sa <= sb), nil
		default:
			return value.Bool(sa >= sb), nil
		}
	}
	na, err := it.toNumber(pa)
	if err != nil {
		return value.Value{}, err
	}
	nb, err := it.toNumber(pb)
	if err != nil {
		return value.Value{}, err
	}
	if na != na || nb != nb { // either is NaN
		return value.False, nil
	}
	switch op {
	case bytecode.OpLess:
		return value.Bool(na < nb), nil
	case bytecode.OpGreater:
		return value.Bool(na > nb), nil
	case bytecode.OpLessEqual:
		return value.Bool(na <= nb), nil
	default:
		return value.Bool(na >= nb), nil
	}
}

func (it *Interp) instanceOf(v, ctor value.Value) (bool, *errors.ScriptError) {
	ctorObj, ok := it.asObj(ctor)
	if !ok || !it.isCallableValue(ctor) {
		return false, errors.Typef(errors.Position{}, "right-hand side of 'instanceof' is not callable")
	}
	protoVal, err := ctorObj.Get(object.StringKey("prototype"), ctor)
	if err != nil {
		return false, err
	}
	if !v.IsObject() {
		return false, nil
	}
	vObj, ok := it.asObj(v)
	if !ok {
		return false, nil
	}
	cur := vObj.GetPrototypeOf()
	for cur.IsObject() {
		curObj, ok := it.asObj(cur)
		if !ok {
			break
		}
		if strictEquals(cur, protoVal) {
			return true, nil
		}
		cur = curObj.GetPrototypeOf()
	}
	return false, nil
}

func (it *Interp) isIterable(v value.Value) bool {
	if v.IsString() {
		return true
	}
	obj, ok := it.asObj(v)
	if !ok {
		return false
	}
	fn, err := obj.Get(object.StringKey("@@iterator"), v)
	return err == nil && it.isCallableValue(fn)
}

// forOfEach drives the iterator protocol over an iterable value,
// invoking fn once per produced value; used by array/object spread,
// which don't go through the compiler's for-of bytecode lowering. The
// step-by-step primitives it calls (getIterator/iteratorNext/
// iteratorResultParts, generator.go) are the same ones doYieldDelegated
// uses to drive a yield*'s inner iterator one step at a time.
func (it *Interp) forOfEach(v value.Value, fn func(value.Value) *errors.ScriptError) *errors.ScriptError {
	iter, err := it.getIterator(v)
	if err != nil {
		return err
	}
	for {
		res, err := it.iteratorNext(iter, value.Undefined)
		if err != nil {
			return err
		}
		done, val, err := it.iteratorResultParts(res)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := fn(val); err != nil {
			return err
		}
	}
}
