package bytecode_test

import (
	"testing"

	"esrt/pkg/bytecode"
	"esrt/pkg/value"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func sampleModuleProto() *bytecode.FunctionProto {
	p := bytecode.NewFunctionProto("mod", 0)
	idx := p.AddConstant(value.Number(7))
	p.WriteOpCode(bytecode.OpLoadConst, 1)
	p.WriteByte(0)
	p.WriteUint16(idx)
	p.WriteOpCode(bytecode.OpReturnUndefined, 1)
	reqIdx := p.AddModuleRequest("./util.js")
	p.AddExport(bytecode.ExportEntry{LocalName: "value", ExportName: "value", ModuleRequest: -1})
	p.AddExport(bytecode.ExportEntry{ModuleRequest: reqIdx, IsStar: true})
	return p
}

// TestDumpJSONRoundTripsExportsAndRequests confirms DumpJSON's shape is
// stable enough for tidwall/gjson to read back its name, module-request,
// export and disassembly fields.
func TestDumpJSONRoundTripsExportsAndRequests(t *testing.T) {
	out, err := bytecode.DumpJSON(sampleModuleProto())
	require.NoError(t, err)

	require.Equal(t, "mod", gjson.Get(out, "name").String())
	require.Equal(t, "./util.js", gjson.Get(out, "moduleRequests.0").String())
	require.Equal(t, "value", gjson.Get(out, "exports.0.ExportName").String())
	require.True(t, gjson.Get(out, "exports.1.IsStar").Bool())
	require.Contains(t, gjson.Get(out, "disassembly").String(), "== mod ==")
}

// TestPatchedFixturePreservesUnrelatedFields exercises the tidwall/sjson
// side of the same fixture: tweaking one field of a golden dump (as a
// test author adjusting an expectation would) without hand-editing the
// whole JSON blob, then confirming every other field survived untouched.
func TestPatchedFixturePreservesUnrelatedFields(t *testing.T) {
	original, err := bytecode.DumpJSON(sampleModuleProto())
	require.NoError(t, err)

	patched, err := sjson.Set(original, "numRegs", 99)
	require.NoError(t, err)

	require.Equal(t, int64(99), gjson.Get(patched, "numRegs").Int())
	require.Equal(t, gjson.Get(original, "name").String(), gjson.Get(patched, "name").String())
	require.Equal(t, gjson.Get(original, "disassembly").String(), gjson.Get(patched, "disassembly").String())
}
