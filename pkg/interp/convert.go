package interp

import (
	"math"
	"strconv"
	"strings"

	"esrt/pkg/errors"
	"esrt/pkg/object"
	"esrt/pkg/value"
)

// toPrimitive implements the ToPrimitive abstract operation: objects are
// asked for @@toPrimitive, then valueOf/toString (or the reverse order
// for a "string" hint), everything else is already primitive.
func (it *Interp) toPrimitive(v value.Value, hint string) (value.Value, *errors.ScriptError) {
	if !v.IsObject() {
		return v, nil
	}
	obj, ok := it.asObj(v)
	if !ok {
		return v, nil
	}
	methods := []string{"valueOf", "toString"}
	if hint == "string" {
		methods = []string{"toString", "valueOf"}
	}
	for _, name := range methods {
		fn, err := obj.Get(object.StringKey(name), v)
		if err != nil {
			return value.Value{}, err
		}
		if !it.isCallableValue(fn) {
			continue
		}
		res, err := it.callValue(fn, v, nil)
		if err != nil {
			return value.Value{}, err
		}
		if !res.IsObject() {
			return res, nil
		}
	}
	return value.Value{}, errors.Typef(errors.Position{}, "cannot convert object to primitive value")
}

func (it *Interp) toNumber(v value.Value) (float64, *errors.ScriptError) {
	switch v.Type() {
	case value.TypeNumber:
		return v.AsNumber(), nil
	case value.TypeBoolean:
		if v.AsBool() {
			return 1, nil
		}
		return 0, nil
	case value.TypeUndefined:
		return math.NaN(), nil
	case value.TypeNull:
		return 0, nil
	case value.TypeString:
		return parseStringToNumber(v.AsString().Canonical()), nil
	case value.TypeBigInt:
		return 0, errors.Typef(errors.Position{}, "cannot convert a BigInt to a number")
	default:
		prim, err := it.toPrimitive(v, "number")
		if err != nil {
			return 0, err
		}
		if prim.IsObject() {
			return math.NaN(), nil
		}
		return it.toNumber(prim)
	}
}

func parseStringToNumber(s string) float64 {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0
	}
	if len(str) >= 2 && (strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X")) {
		if i, err := strconv.ParseUint(str[2:], 16, 64); err == nil {
			return float64(i)
		}
		return math.NaN()
	}
	if len(str) >= 2 && (strings.HasPrefix(str, "0o") || strings.HasPrefix(str, "0O")) {
		if i, err := strconv.ParseUint(str[2:], 8, 64); err == nil {
			return float64(i)
		}
		return math.NaN()
	}
	if len(str) >= 2 && (strings.HasPrefix(str, "0b") || strings.HasPrefix(str, "0B")) {
		if i, err := strconv.ParseUint(str[2:], 2, 64); err == nil {
			return float64(i)
		}
		return math.NaN()
	}
	if str == "Infinity" || str == "+Infinity" {
		return math.Inf(1)
	}
	if str == "-Infinity" {
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func numberToString(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs < 1e-6 || abs >= 1e21 {
		exp := strconv.FormatFloat(f, 'e', -1, 64)
		return cleanExponentialFormat(exp)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// cleanExponentialFormat rewrites Go's "1.5e+07" rendering as the
// ECMAScript-required "1.5e+7" (no leading zero in the exponent).
func cleanExponentialFormat(s string) string {
	idx := strings.IndexAny(s, "eE")
	if idx < 0 {
		return s
	}
	mantissa, exp := s[:idx], s[idx+1:]
	sign := "+"
	if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
		if exp[0] == '-' {
			sign = "-"
		}
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + sign + exp
}

func (it *Interp) toString(v value.Value) (string, *errors.ScriptError) {
	switch v.Type() {
	case value.TypeString:
		return v.AsString().Canonical(), nil
	case value.TypeNumber:
		return numberToString(v.AsNumber()), nil
	case value.TypeBoolean:
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case value.TypeUndefined:
		return "undefined", nil
	case value.TypeNull:
		return "null", nil
	case value.TypeSymbol:
		return "", errors.Typef(errors.Position{}, "cannot convert a Symbol value to a string")
	case value.TypeBigInt:
		return it.bigIntString(v), nil
	default:
		prim, err := it.toPrimitive(v, "string")
		if err != nil {
			return "", err
		}
		if prim.IsObject() {
			return "[object Object]", nil
		}
		return it.toString(prim)
	}
}

func (it *Interp) toInt32(v value.Value) (int32, *errors.ScriptError) {
	n, err := it.toNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, nil
	}
	return int32(uint32(int64(n))), nil
}

func (it *Interp) toUint32(v value.Value) (uint32, *errors.ScriptError) {
	n, err := it.toNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, nil
	}
	return uint32(int64(n)), nil
}

func (it *Interp) toPropertyKeyValue(v value.Value) (object.PropertyKey, *errors.ScriptError) {
	if v.IsSymbol() {
		return object.SymbolKey(v), nil
	}
	s, err := it.toString(v)
	if err != nil {
		return object.PropertyKey{}, err
	}
	return object.StringKey(s), nil
}

func typeofString(v value.Value) string {
	switch v.Type() {
	case value.TypeUndefined:
		return "undefined"
	case value.TypeNull:
		return "object"
	case value.TypeBoolean:
		return "boolean"
	case value.TypeNumber:
		return "number"
	case value.TypeString:
		return "string"
	case value.TypeSymbol:
		return "symbol"
	case value.TypeBigInt:
		return "bigint"
	default:
		return "object"
	}
}
