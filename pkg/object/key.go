// Package object implements the value and object model: the
// eleven-operation meta-object protocol, property descriptors, exotic
// object variants, environments, private names, and realms.
package object

import (
	"fmt"

	"esrt/pkg/value"
)

// KeyKind distinguishes the three property-key universes. Private keys
// are never stored in an ordinary Shape/property table — they live in
// the parallel private-field tables described in private.go.
type KeyKind uint8

const (
	KeyString KeyKind = iota
	KeySymbol
)

// PropertyKey is an interned string or a symbol cell identity. Private
// names are looked up through a separate path
// (PlainObject.GetPrivateField / SetPrivateField) and never constructed
// as a PropertyKey.
type PropertyKey struct {
	kind KeyKind
	str  *value.InternedString
	sym  value.Value
}

func StringKey(s string) PropertyKey         { return PropertyKey{kind: KeyString, str: value.Intern(s)} }
func InternedKey(s *value.InternedString) PropertyKey { return PropertyKey{kind: KeyString, str: s} }
func SymbolKey(sym value.Value) PropertyKey  { return PropertyKey{kind: KeySymbol, sym: sym} }

func (k PropertyKey) IsString() bool { return k.kind == KeyString }
func (k PropertyKey) IsSymbol() bool { return k.kind == KeySymbol }
func (k PropertyKey) String() *value.InternedString { return k.str }
func (k PropertyKey) Symbol() value.Value            { return k.sym }

// IndexForm reports the integer-index form of a string key, used by
// Array/TypedArray exotic dispatch.
func (k PropertyKey) IndexForm() (int64, bool) {
	if k.kind != KeyString || k.str == nil {
		return 0, false
	}
	return k.str.IndexForm()
}

// hashKey is the string used to index the Shape transition map and the
// property lookup table; it must not collide between distinct keys.
func (k PropertyKey) hashKey() string {
	switch k.kind {
	case KeyString:
		return "s:" + k.str.Canonical()
	case KeySymbol:
		if c, ok := k.sym.HeapCell(); ok {
			return fmt.Sprintf("y:%p", c)
		}
		return "y:<nil>"
	default:
		return "?"
	}
}

func (k PropertyKey) Equal(other PropertyKey) bool {
	if k.kind != other.kind {
		return false
	}
	if k.kind == KeyString {
		return k.str.Canonical() == other.str.Canonical()
	}
	sc, sok := k.sym.HeapCell()
	oc, ook := other.sym.HeapCell()
	return sok && ook && sc == oc
}

func (k PropertyKey) DebugName() string {
	switch k.kind {
	case KeyString:
		return k.str.Canonical()
	case KeySymbol:
		return fmt.Sprintf("Symbol(%s)", k.hashKey())
	default:
		return "<unknown-key>"
	}
}
