package bytecode_test

import (
	"testing"

	"esrt/pkg/bytecode"
	"esrt/pkg/value"
	"github.com/stretchr/testify/require"
)

func TestAddConstantDeduplicates(t *testing.T) {
	p := bytecode.NewFunctionProto("f", 0)
	a := p.AddConstant(value.Number(1))
	b := p.AddConstant(value.Number(2))
	c := p.AddConstant(value.Number(1))
	require.Equal(t, a, c)
	require.NotEqual(t, a, b)
	require.Len(t, p.Constants, 2)
}

func TestAddUpvalueDeduplicatesByShape(t *testing.T) {
	p := bytecode.NewFunctionProto("f", 0)
	i0 := p.AddUpvalue(bytecode.UpvalueRef{FromParentLocal: true, Index: 2})
	i1 := p.AddUpvalue(bytecode.UpvalueRef{FromParentLocal: false, Index: 2})
	i2 := p.AddUpvalue(bytecode.UpvalueRef{FromParentLocal: true, Index: 2})
	require.Equal(t, 0, i0)
	require.Equal(t, 1, i1)
	require.Equal(t, i0, i2)
	require.Len(t, p.Upvalues, 2)
}

func TestWriteUint16RoundTrips(t *testing.T) {
	p := bytecode.NewFunctionProto("f", 0)
	p.WriteOpCode(bytecode.OpLoadConst, 1)
	p.WriteByte(0)
	p.WriteUint16(0x1234)
	require.Equal(t, []byte{byte(bytecode.OpLoadConst), 0, 0x12, 0x34}, p.Code)
}

func TestPatchUint16OverwritesJumpTarget(t *testing.T) {
	p := bytecode.NewFunctionProto("f", 0)
	p.WriteOpCode(bytecode.OpJump, 1)
	jumpOperand := len(p.Code)
	p.WriteUint16(0) // placeholder
	p.WriteOpCode(bytecode.OpReturnUndefined, 2)
	p.PatchUint16(jumpOperand, uint16(len(p.Code)-jumpOperand-2))
	require.Equal(t, byte(0), p.Code[jumpOperand])
	require.Equal(t, byte(1), p.Code[jumpOperand+1])
}

func TestAddBindingRefAndPropertyRefGrowTables(t *testing.T) {
	p := bytecode.NewFunctionProto("f", 0)
	idx := p.AddBindingRef(bytecode.BindingRef{Kind: bytecode.BindingGlobal, Name: "x", Slot: -1})
	require.EqualValues(t, 0, idx)
	require.Equal(t, "global", p.BindingRefs[0].Kind.String())

	slot := p.AddPropertyRef(p.AddConstant(value.Str("prop")))
	require.EqualValues(t, 0, slot)
	require.Len(t, p.PropertyRefs, 1)
}

func TestAddFunctionIndexesNestedProtos(t *testing.T) {
	p := bytecode.NewFunctionProto("outer", 0)
	child := bytecode.NewFunctionProto("inner", 1)
	idx := p.AddFunction(child)
	require.EqualValues(t, 0, idx)
	require.Same(t, child, p.Functions[0])
}

func TestGetLineOutOfRangeReturnsZero(t *testing.T) {
	p := bytecode.NewFunctionProto("f", 0)
	require.Equal(t, 0, p.GetLine(5))
	p.WriteOpCode(bytecode.OpReturnUndefined, 7)
	require.Equal(t, 7, p.GetLine(0))
}
