package compiler

import (
	"fmt"
	"math"

	"esrt/pkg/bytecode"
)

// Generic emission primitives. Most compile_* methods build instructions
// directly from these rather than one named wrapper per opcode — the
// opcode table in pkg/bytecode is too wide for that to stay readable.

func (c *Compiler) emitOp(op bytecode.OpCode, line int) {
	c.proto.WriteOpCode(op, line)
}

func (c *Compiler) emitReg(r Register) {
	c.proto.WriteByte(byte(r))
}

func (c *Compiler) emitU16(v uint16) {
	c.proto.WriteUint16(v)
}

// emit1 through emit4 cover the fixed-arity register-operand shapes that
// dominate the opcode table.
func (c *Compiler) emit1(op bytecode.OpCode, a Register, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
}

func (c *Compiler) emit2(op bytecode.OpCode, a, b Register, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
	c.emitReg(b)
}

func (c *Compiler) emit3(op bytecode.OpCode, a, b, d Register, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
	c.emitReg(b)
	c.emitReg(d)
}

func (c *Compiler) emit4(op bytecode.OpCode, a, b, d, e Register, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
	c.emitReg(b)
	c.emitReg(d)
	c.emitReg(e)
}

func (c *Compiler) emitRegU16(op bytecode.OpCode, a Register, idx uint16, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
	c.emitU16(idx)
}

func (c *Compiler) emitU16Reg(op bytecode.OpCode, idx uint16, a Register, line int) {
	c.emitOp(op, line)
	c.emitU16(idx)
	c.emitReg(a)
}

// emitRegRegU16 covers the common "Rx Ry NameIdx(16)" property-access
// shape (OpGetProp, OpDeleteProp, OpGetPrivateField, OpDefineMethod).
func (c *Compiler) emitRegRegU16(op bytecode.OpCode, a, b Register, idx uint16, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
	c.emitReg(b)
	c.emitU16(idx)
}

// emitRegU16Reg covers the "ObjReg NameIdx(16) ValueReg" shape (OpSetProp).
func (c *Compiler) emitRegU16Reg(op bytecode.OpCode, a Register, idx uint16, b Register, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
	c.emitU16(idx)
	c.emitReg(b)
}

// emit3U16 covers the "Rx Ry Rz NameIdx(16)" shape (OpDefineAccessor,
// OpSetPrivateAccessor): three registers followed by a name index.
func (c *Compiler) emit3U16(op bytecode.OpCode, a, b, d Register, idx uint16, line int) {
	c.emitOp(op, line)
	c.emitReg(a)
	c.emitReg(b)
	c.emitReg(d)
	c.emitU16(idx)
}

func (c *Compiler) emitU16Only(op bytecode.OpCode, idx uint16, line int) {
	c.emitOp(op, line)
	c.emitU16(idx)
}

func (c *Compiler) emitNone(op bytecode.OpCode, line int) {
	c.emitOp(op, line)
}

func (c *Compiler) emitMove(dest, src Register, line int) {
	if dest == src {
		return
	}
	c.emit2(bytecode.OpMove, dest, src, line)
}

// --- Jump placeholder / patch ---

// emitPlaceholderJump emits a jump-family instruction with a 0xFFFF
// placeholder offset, returning the position of the opcode byte so the
// caller can patch it once the real target is known.
func (c *Compiler) emitPlaceholderJump(op bytecode.OpCode, cond Register, line int) int {
	pos := len(c.proto.Code)
	c.emitOp(op, line)
	switch op {
	case bytecode.OpJumpIfFalse, bytecode.OpJumpIfNull, bytecode.OpJumpIfUndefined, bytecode.OpJumpIfNullish:
		c.emitReg(cond)
	case bytecode.OpJump, bytecode.OpPushBreak, bytecode.OpPushContinue:
		// no register operand
	default:
		panic(fmt.Sprintf("compiler: %s is not a jump-family opcode", op))
	}
	c.emitU16(0xFFFF)
	return pos
}

func (c *Compiler) jumpOperandOffset(placeholderPos int) int {
	op := bytecode.OpCode(c.proto.Code[placeholderPos])
	switch op {
	case bytecode.OpJumpIfFalse, bytecode.OpJumpIfNull, bytecode.OpJumpIfUndefined, bytecode.OpJumpIfNullish:
		return placeholderPos + 2
	default:
		return placeholderPos + 1
	}
}

// patchJumpHere patches a placeholder jump to target the current end of
// the code buffer (a forward jump to "here").
func (c *Compiler) patchJumpHere(placeholderPos int) error {
	return c.patchJumpToTarget(placeholderPos, len(c.proto.Code))
}

// patchJumpToTarget patches a placeholder jump to target an arbitrary PC
// (used for backward jumps, e.g. loop conditions).
func (c *Compiler) patchJumpToTarget(placeholderPos int, targetPC int) error {
	operandPos := c.jumpOperandOffset(placeholderPos)
	operandEnd := operandPos + 2
	offset := targetPC - operandEnd
	if offset > math.MaxInt16 || offset < math.MinInt16 {
		return fmt.Errorf("compiler: jump offset %d exceeds 16-bit range", offset)
	}
	c.proto.PatchUint16(operandPos, uint16(int16(offset)))
	return nil
}

// --- Closures ---

// emitClosure emits OpClosure for childIdx, followed by one (isLocal,
// index) pair per entry in upvalues — the format the disassembler and
// interpreter both expect.
func (c *Compiler) emitClosure(dest Register, childIdx uint16, upvalues []bytecode.UpvalueRef, line int) {
	c.emitOp(bytecode.OpClosure, line)
	c.emitReg(dest)
	c.emitU16(childIdx)
	c.proto.WriteByte(byte(len(upvalues)))
	for _, uv := range upvalues {
		if uv.FromParentLocal {
			c.proto.WriteByte(1)
		} else {
			c.proto.WriteByte(0)
		}
		c.proto.WriteByte(byte(uv.Index))
	}
}
