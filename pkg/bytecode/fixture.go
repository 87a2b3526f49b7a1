package bytecode

import (
	"encoding/json"
	"strconv"

	"esrt/pkg/value"
)

// ProtoDump is a JSON-friendly projection of a FunctionProto: its header
// fields, constants, module requests, exports and disassembly text.
// fixture_test.go reads it back with tidwall/gjson and patches it with
// tidwall/sjson rather than hand-editing a golden file whenever an
// unrelated field changes shape.
type ProtoDump struct {
	Name           string        `json:"name"`
	ParamCount     int           `json:"paramCount"`
	NumRegs        int           `json:"numRegs"`
	IsGenerator    bool          `json:"isGenerator"`
	IsAsync        bool          `json:"isAsync"`
	Constants      []string      `json:"constants,omitempty"`
	ModuleRequests []string      `json:"moduleRequests,omitempty"`
	Exports        []ExportEntry `json:"exports,omitempty"`
	Disassembly    string        `json:"disassembly"`
}

// Dump projects proto into a ProtoDump, ready to be marshaled by a
// caller that wants only part of it (DumpJSON marshals the whole thing).
func Dump(proto *FunctionProto) ProtoDump {
	d := ProtoDump{
		Name:           proto.Name,
		ParamCount:     proto.ParamCount,
		NumRegs:        proto.NumRegs,
		IsGenerator:    proto.IsGenerator,
		IsAsync:        proto.IsAsync,
		ModuleRequests: proto.ModuleRequests,
		Exports:        proto.Exports,
		Disassembly:    Disassemble(proto),
	}
	for _, c := range proto.Constants {
		d.Constants = append(d.Constants, constantLabel(c))
	}
	return d
}

// DumpJSON renders proto as indented JSON. cmd/esrt's `disasm`
// subcommand does not use it: it prints Disassemble's text and the raw
// side tables directly.
func DumpJSON(proto *FunctionProto) (string, error) {
	b, err := json.MarshalIndent(Dump(proto), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func constantLabel(v value.Value) string {
	switch v.Type() {
	case value.TypeUndefined:
		return "undefined"
	case value.TypeNull:
		return "null"
	case value.TypeBoolean:
		return strconv.FormatBool(v.AsBool())
	case value.TypeNumber:
		return strconv.FormatFloat(v.AsNumber(), 'g', -1, 64)
	case value.TypeString:
		return strconv.Quote(v.AsString().Canonical())
	default:
		return "<" + v.Type().String() + ">"
	}
}
