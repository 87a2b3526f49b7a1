package bytecode_test

import (
	"strings"
	"testing"

	"esrt/pkg/bytecode"
	"esrt/pkg/value"
	"github.com/stretchr/testify/require"
)

func TestDisassembleRegisterConstantInstruction(t *testing.T) {
	p := bytecode.NewFunctionProto("main", 0)
	idx := p.AddConstant(value.Number(42))
	p.WriteOpCode(bytecode.OpLoadConst, 1)
	p.WriteByte(0)
	p.WriteUint16(idx)
	p.WriteOpCode(bytecode.OpReturnUndefined, 1)

	out := bytecode.Disassemble(p)
	require.Contains(t, out, "== main ==")
	require.Contains(t, out, "OpLoadConst R0 #0")
	require.Contains(t, out, "OpReturnUndefined")
}

func TestDisassembleJumpPrintsAbsoluteTarget(t *testing.T) {
	p := bytecode.NewFunctionProto("main", 0)
	p.WriteOpCode(bytecode.OpJumpIfFalse, 1)
	p.WriteByte(0)
	jumpAt := len(p.Code)
	p.WriteUint16(0)
	p.WriteOpCode(bytecode.OpLoadTrue, 2)
	p.WriteByte(1)
	target := len(p.Code)
	p.WriteOpCode(bytecode.OpReturnUndefined, 3)
	p.PatchUint16(jumpAt, uint16(target-jumpAt-2))

	out := bytecode.Disassemble(p)
	line := ""
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "OpJumpIfFalse") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	require.Contains(t, line, "->6")
}

func TestDisassembleClosureListsUpvalues(t *testing.T) {
	p := bytecode.NewFunctionProto("outer", 0)
	child := bytecode.NewFunctionProto("inner", 0)
	protoIdx := p.AddFunction(child)

	p.WriteOpCode(bytecode.OpClosure, 1)
	p.WriteByte(0)
	p.WriteUint16(protoIdx)
	p.WriteByte(2) // upvalue count
	p.WriteByte(1) // IsLocal
	p.WriteByte(0) // Index
	p.WriteByte(0) // IsLocal = false
	p.WriteByte(3) // Index

	out := bytecode.Disassemble(p)
	require.Contains(t, out, "OpClosure R0 proto=0 upvalues=2")
	require.Contains(t, out, "[local 0]")
	require.Contains(t, out, "[upvalue 3]")
	require.Contains(t, out, "== inner ==")
}

func TestDisassembleIncludesExceptionTable(t *testing.T) {
	p := bytecode.NewFunctionProto("main", 0)
	p.WriteOpCode(bytecode.OpReturnUndefined, 1)
	p.ExceptionTable = append(p.ExceptionTable, bytecode.ExceptionHandler{
		TryStart: 0, TryEnd: 1, HandlerPC: 1, CatchReg: 0, IsCatch: true, FinallyReg: -1,
	})

	out := bytecode.Disassemble(p)
	require.Contains(t, out, "-- exception table --")
	require.Contains(t, out, "try=[0,1) handler=1 catch=true finally=false")
}
