// Package value defines the tagged Value type shared by every other core
// package: ten variants, fixed-size and passed by copy, with only the
// heap-cell variants owned by the garbage collector.
package value

import (
	"math"

	"esrt/pkg/heap"
)

// Type is the primitive tag: exactly ten variants.
type Type uint8

const (
	TypeUndefined Type = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeBigInt
	TypeObject
	TypePrivateName
	TypeGCThing
)

func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeBigInt:
		return "bigint"
	case TypeObject:
		return "object"
	case TypePrivateName:
		return "private-name"
	case TypeGCThing:
		return "gc-thing"
	default:
		return "unknown"
	}
}

// Value is the fixed-size slot every register, stack entry, and property
// record holds. Strings are not heap cells, so they live in str and are
// managed by Go's own allocator/GC via the intern table in intern.go;
// every other non-primitive variant holds a heap.Cell in cell.
type Value struct {
	typ  Type
	num  float64
	str  *InternedString
	cell heap.Cell
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, num: 1}
	False     = Value{typ: TypeBoolean, num: 0}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Number(n float64) Value { return Value{typ: TypeNumber, num: n} }

func Str(s string) Value { return Value{typ: TypeString, str: Intern(s)} }

func StrVal(s *InternedString) Value { return Value{typ: TypeString, str: s} }

func Sym(cell heap.Cell) Value { return Value{typ: TypeSymbol, cell: cell} }

func BigIntVal(cell heap.Cell) Value { return Value{typ: TypeBigInt, cell: cell} }

func Obj(cell heap.Cell) Value { return Value{typ: TypeObject, cell: cell} }

func PrivName(cell heap.Cell) Value { return Value{typ: TypePrivateName, cell: cell} }

func GCThing(cell heap.Cell) Value { return Value{typ: TypeGCThing, cell: cell} }

func (v Value) Type() Type         { return v.typ }
func (v Value) IsUndefined() bool  { return v.typ == TypeUndefined }
func (v Value) IsNull() bool       { return v.typ == TypeNull }
func (v Value) IsNullish() bool    { return v.typ == TypeUndefined || v.typ == TypeNull }
func (v Value) IsBoolean() bool    { return v.typ == TypeBoolean }
func (v Value) IsNumber() bool     { return v.typ == TypeNumber }
func (v Value) IsString() bool     { return v.typ == TypeString }
func (v Value) IsObject() bool     { return v.typ == TypeObject }
func (v Value) IsSymbol() bool     { return v.typ == TypeSymbol }
func (v Value) IsBigInt() bool     { return v.typ == TypeBigInt }
func (v Value) IsPrivateName() bool { return v.typ == TypePrivateName }

func (v Value) AsBool() bool              { return v.num != 0 }
func (v Value) AsNumber() float64         { return v.num }
func (v Value) AsString() *InternedString { return v.str }
func (v Value) AsCell() heap.Cell         { return v.cell }

// HeapCell implements heap.CellHolder, letting the collector mark a
// Value's underlying cell (if any) without this package needing to know
// about the collector's root-walking logic.
func (v Value) HeapCell() (heap.Cell, bool) {
	if v.cell != nil {
		return v.cell, true
	}
	return nil, false
}

// ToBoolean implements the ECMAScript ToBoolean abstract operation for
// the primitive variants; object truthiness (always true) is decided
// here since exotic "document.all"-style falsy objects do not exist in
// this engine.
func (v Value) ToBoolean() bool {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return false
	case TypeBoolean:
		return v.num != 0
	case TypeNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case TypeString:
		return v.str != nil && v.str.Len() > 0
	default:
		return true
	}
}

// SameValueZero implements the SameValueZero abstract operation used by
// Map/Set key comparison and Array.prototype.includes: like strict
// equality but NaN equals NaN and +0 equals -0 (as for StrictEquals),
// i.e. it does NOT distinguish +0/-0 either. Strict (===) semantics,
// which differ from this only in treating NaN as unequal to itself, live
// in the interpreter's strictEquals (the OpStrictEqual handler).
func SameValueZero(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean, TypeNumber:
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		return a.num == b.num
	case TypeString:
		return a.str.Canonical() == b.str.Canonical()
	default:
		return a.cell == b.cell
	}
}
