package object

import "esrt/pkg/value"

// Descriptor is the up-to-eight-field property descriptor bag. HasX
// fields record which of the optional fields were actually supplied by
// the caller (as opposed to present-but-zero), which DefineOwnProperty's
// compatibility check needs to distinguish "leave attribute as-is" from
// "set attribute to its zero value".
type Descriptor struct {
	Value        value.Value
	Get          value.Value
	Set          value.Value
	Writable     bool
	Enumerable   bool
	Configurable bool

	HasValue        bool
	HasGet          bool
	HasSet          bool
	HasWritable     bool
	HasEnumerable   bool
	HasConfigurable bool
}

func (d Descriptor) IsAccessor() bool { return d.HasGet || d.HasSet }
func (d Descriptor) IsData() bool     { return d.HasValue || d.HasWritable }
func (d Descriptor) IsGeneric() bool  { return !d.IsAccessor() && !d.IsData() }

func DataDescriptor(v value.Value, writable, enumerable, configurable bool) Descriptor {
	return Descriptor{
		Value: v, Writable: writable, Enumerable: enumerable, Configurable: configurable,
		HasValue: true, HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	}
}

func AccessorDescriptor(get, set value.Value, enumerable, configurable bool) Descriptor {
	return Descriptor{
		Get: get, Set: set, Enumerable: enumerable, Configurable: configurable,
		HasGet: true, HasSet: true, HasEnumerable: true, HasConfigurable: true,
	}
}

// ValidateAndApplyPropertyDescriptor implements the abstract operation of
// the same name: it decides whether replacing `current` (absent if
// !currentExists) with `desc` on an object whose extensibility is
// `extensible` is legal, and if so what the resulting descriptor is.
// This is shared by every exotic kind's DefineOwnProperty override so
// the compatibility rules are enforced in exactly one place.
func ValidateAndApplyPropertyDescriptor(current Descriptor, currentExists, extensible bool, desc Descriptor) (Descriptor, bool) {
	if !currentExists {
		if !extensible {
			return Descriptor{}, false
		}
		return completeDescriptor(desc), true
	}
	if desc.IsGeneric() && !desc.HasEnumerable && !desc.HasConfigurable {
		return current, true // no-op redefinition
	}
	if !current.Configurable {
		if desc.HasConfigurable && desc.Configurable {
			return Descriptor{}, false
		}
		if desc.HasEnumerable && desc.Enumerable != current.Enumerable {
			return Descriptor{}, false
		}
		if desc.IsData() != current.IsData() && (desc.IsAccessor() != current.IsAccessor()) {
			if desc.IsAccessor() || current.IsAccessor() {
				return Descriptor{}, false
			}
		}
		if current.IsData() && desc.IsData() {
			if !current.Writable {
				if desc.HasWritable && desc.Writable {
					return Descriptor{}, false
				}
				if desc.HasValue && !value.SameValueZero(desc.Value, current.Value) {
					return Descriptor{}, false
				}
			}
		} else if current.IsAccessor() && desc.IsAccessor() {
			if desc.HasGet && !sameCell(desc.Get, current.Get) {
				return Descriptor{}, false
			}
			if desc.HasSet && !sameCell(desc.Set, current.Set) {
				return Descriptor{}, false
			}
		}
	}
	return mergeDescriptor(current, desc), true
}

func sameCell(a, b value.Value) bool {
	ac, aok := a.HeapCell()
	bc, bok := b.HeapCell()
	if !aok && !bok {
		return a.IsUndefined() == b.IsUndefined()
	}
	return aok && bok && ac == bc
}

func completeDescriptor(desc Descriptor) Descriptor {
	out := desc
	if desc.IsAccessor() {
		if !out.HasGet {
			out.Get = value.Undefined
		}
		if !out.HasSet {
			out.Set = value.Undefined
		}
	} else {
		if !out.HasValue {
			out.Value = value.Undefined
		}
		if !out.HasWritable {
			out.Writable = false
		}
	}
	if !out.HasEnumerable {
		out.Enumerable = false
	}
	if !out.HasConfigurable {
		out.Configurable = false
	}
	out.HasValue, out.HasGet, out.HasSet = out.IsData(), desc.HasGet || desc.IsAccessor(), desc.HasSet || desc.IsAccessor()
	return out
}

func mergeDescriptor(current Descriptor, desc Descriptor) Descriptor {
	out := current
	switchingKind := (desc.IsAccessor() && current.IsData()) || (desc.IsData() && current.IsAccessor())
	if switchingKind {
		out = Descriptor{Enumerable: current.Enumerable, Configurable: current.Configurable}
		if desc.IsAccessor() {
			out.Get, out.Set = value.Undefined, value.Undefined
		} else {
			out.Value, out.Writable = value.Undefined, false
		}
	}
	if desc.HasValue {
		out.Value, out.HasValue = desc.Value, true
	}
	if desc.HasWritable {
		out.Writable, out.HasWritable = desc.Writable, true
	}
	if desc.HasGet {
		out.Get, out.HasGet = desc.Get, true
	}
	if desc.HasSet {
		out.Set, out.HasSet = desc.Set, true
	}
	if desc.HasEnumerable {
		out.Enumerable, out.HasEnumerable = desc.Enumerable, true
	}
	if desc.HasConfigurable {
		out.Configurable, out.HasConfigurable = desc.Configurable, true
	}
	return out
}
