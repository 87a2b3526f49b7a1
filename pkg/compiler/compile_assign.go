package compiler

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/bytecode"
	"esrt/pkg/value"
)

// compileAssignmentExpression lowers `target op= value`. Compound
// operators (`+=`, `&&=`, ...) read the target first, combine, then
// write back; `=` against a destructuring pattern fans out through
// compileDestructuringAssign instead of a single register move.
func (c *Compiler) compileAssignmentExpression(e *ast.AssignmentExpression) Register {
	line := e.Line()
	if e.Operator == "=" {
		if pat, ok := e.Target.(ast.Pattern); ok {
			if !isSimpleIdentifier(pat) {
				val := c.compileExpression(e.Value)
				c.compileDestructuringAssign(pat, val, line)
				return val
			}
		}
		val := c.compileExpression(e.Value)
		c.assignTo(e.Target, val, line)
		return val
	}

	if op, ok := logicalCompoundOps[e.Operator]; ok {
		return c.compileLogicalCompoundAssign(e, op, line)
	}

	old := c.compileExpression(e.Target)
	rhs := c.compileExpression(e.Value)
	result := c.alloc()
	binOp, ok := binaryOps[compoundBase(e.Operator)]
	if !ok {
		c.addError(fmt.Errorf("compiler: unsupported compound assignment operator %q", e.Operator))
		return old
	}
	c.emit3(binOp, result, old, rhs, line)
	c.assignTo(e.Target, result, line)
	return result
}

func compoundBase(op string) string {
	return op[:len(op)-1]
}

var logicalCompoundOps = map[string]bytecode.OpCode{
	"&&=": bytecode.OpJumpIfFalse,
	"||=": bytecode.OpJumpIfFalse,
	"??=": bytecode.OpJumpIfNullish,
}

// compileLogicalCompoundAssign handles &&=, ||=, ??=, which must not
// evaluate (or assign) the right-hand side unless the short-circuit
// condition calls for it.
func (c *Compiler) compileLogicalCompoundAssign(e *ast.AssignmentExpression, _ bytecode.OpCode, line int) Register {
	old := c.compileExpression(e.Target)
	var placeholder int
	switch e.Operator {
	case "&&=":
		placeholder = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, old, line)
	case "||=":
		notOld := c.alloc()
		c.emit2(bytecode.OpNot, notOld, old, line)
		placeholder = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, notOld, line)
	case "??=":
		isNullish := c.alloc()
		c.emit2(bytecode.OpIsNullish, isNullish, old, line)
		placeholder = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, isNullish, line)
	}
	val := c.compileExpression(e.Value)
	c.assignTo(e.Target, val, line)
	c.emitMove(old, val, line)
	if err := c.patchJumpHere(placeholder); err != nil {
		c.addError(err)
	}
	return old
}

func isSimpleIdentifier(p ast.Pattern) bool {
	_, ok := p.(*ast.Identifier)
	return ok
}

// assignTo writes src into whatever target denotes: a bare identifier
// binding, or a (possibly computed, possibly private) member target.
func (c *Compiler) assignTo(target ast.Expression, src Register, line int) {
	switch t := target.(type) {
	case *ast.Identifier:
		c.storeVariable(t.Name, src, line)
	case *ast.MemberExpression:
		if _, ok := t.Object.(*ast.SuperExpression); ok {
			if t.Computed {
				key := c.compileExpression(t.Property)
				c.emit2(bytecode.OpSetSuperComputed, key, src, line)
			} else {
				nameIdx := c.propertyNameConstant(t.Property, false, line)
				c.emitU16Reg(bytecode.OpSetSuper, nameIdx, src, line)
			}
			return
		}
		obj := c.compileExpression(t.Object)
		if t.Computed {
			key := c.compileExpression(t.Property)
			c.emit3(bytecode.OpSetIndex, obj, key, src, line)
		} else {
			nameIdx := c.propertyNameConstant(t.Property, false, line)
			c.emitRegU16Reg(bytecode.OpSetProp, obj, nameIdx, src, line)
		}
	case *ast.PrivateMemberExpression:
		obj := c.compileExpression(t.Object)
		nameIdx := c.addConstant(value.Str(t.Field.Name))
		c.emitRegRegU16(bytecode.OpSetPrivateField, obj, src, nameIdx, line)
	default:
		c.addError(fmt.Errorf("compiler: unsupported assignment target %T", target))
	}
}

// compileDestructuringAssign fans src (already-evaluated) out across an
// array or object pattern, recursing for nested patterns and applying
// AssignmentPattern defaults when the corresponding source value is
// undefined.
func (c *Compiler) compileDestructuringAssign(pat ast.Pattern, src Register, line int) {
	switch p := pat.(type) {
	case *ast.Identifier:
		c.storeVariable(p.Name, src, line)
	case *ast.AssignmentPattern:
		resolved := c.applyPatternDefault(src, p.Default, line)
		c.compileDestructuringAssign(p.Target, resolved, line)
	case *ast.ArrayPattern:
		for i, el := range p.Elements {
			if el == nil {
				continue
			}
			idx := c.alloc()
			c.emitRegU16(bytecode.OpLoadConst, idx, c.addConstant(value.Number(float64(i))), line)
			elVal := c.alloc()
			c.emit3(bytecode.OpGetIndex, elVal, src, idx, line)
			c.compileDestructuringAssign(el, elVal, line)
		}
		if p.Rest != nil {
			startIdx := c.alloc()
			c.emitRegU16(bytecode.OpLoadConst, startIdx, c.addConstant(value.Number(float64(len(p.Elements)))), line)
			restArr := c.alloc()
			c.emit3(bytecode.OpArraySlice, restArr, src, startIdx, line)
			c.compileDestructuringAssign(p.Rest, restArr, line)
		}
	case *ast.ObjectPattern:
		taken := make([]string, 0, len(p.Properties))
		for _, prop := range p.Properties {
			if prop.Computed {
				keyReg := c.compileExpression(prop.Key)
				tmp := c.alloc()
				c.emit2(bytecode.OpToPropertyKey, tmp, keyReg, line)
				val := c.alloc()
				c.emit3(bytecode.OpGetIndex, val, src, tmp, line)
				c.compileDestructuringAssign(prop.Value, val, line)
				continue
			}
			ident, ok := prop.Key.(*ast.Identifier)
			if !ok {
				c.addError(fmt.Errorf("compiler: unsupported object-pattern key %T", prop.Key))
				continue
			}
			taken = append(taken, ident.Name)
			nameIdx := c.addConstant(value.Str(ident.Name))
			val := c.alloc()
			c.emitRegRegU16(bytecode.OpGetProp, val, src, nameIdx, line)
			c.compileDestructuringAssign(prop.Value, val, line)
		}
		if p.Rest != nil {
			rest := c.alloc()
			c.emit1(bytecode.OpMakeEmptyObject, rest, line)
			c.emit2(bytecode.OpObjectSpread, rest, src, line)
			for _, name := range taken {
				nameIdx := c.addConstant(value.Str(name))
				delDest := c.alloc()
				c.emitRegRegU16(bytecode.OpDeleteProp, delDest, rest, nameIdx, line)
			}
			c.compileDestructuringAssign(p.Rest, rest, line)
		}
	default:
		c.addError(fmt.Errorf("compiler: unsupported destructuring pattern %T", pat))
	}
}

// declarePattern binds a fresh declaration (parameter, or a let/const/var
// declarator) rather than writing through an existing binding: its
// Identifier leaf calls SymbolTable.Define instead of storeVariable.
func (c *Compiler) declarePattern(pat ast.Pattern, src Register, line int) {
	switch p := pat.(type) {
	case *ast.Identifier:
		c.table.Define(p.Name, src)
	case *ast.AssignmentPattern:
		resolved := c.applyPatternDefault(src, p.Default, line)
		c.declarePattern(p.Target, resolved, line)
	case *ast.ArrayPattern:
		for i, el := range p.Elements {
			if el == nil {
				continue
			}
			idx := c.alloc()
			c.emitRegU16(bytecode.OpLoadConst, idx, c.addConstant(value.Number(float64(i))), line)
			elVal := c.alloc()
			c.emit3(bytecode.OpGetIndex, elVal, src, idx, line)
			c.declarePattern(el, elVal, line)
		}
		if p.Rest != nil {
			startIdx := c.alloc()
			c.emitRegU16(bytecode.OpLoadConst, startIdx, c.addConstant(value.Number(float64(len(p.Elements)))), line)
			restArr := c.alloc()
			c.emit3(bytecode.OpArraySlice, restArr, src, startIdx, line)
			c.declarePattern(p.Rest, restArr, line)
		}
	case *ast.ObjectPattern:
		taken := make([]string, 0, len(p.Properties))
		for _, prop := range p.Properties {
			if prop.Computed {
				keyReg := c.compileExpression(prop.Key)
				tmp := c.alloc()
				c.emit2(bytecode.OpToPropertyKey, tmp, keyReg, line)
				val := c.alloc()
				c.emit3(bytecode.OpGetIndex, val, src, tmp, line)
				c.declarePattern(prop.Value, val, line)
				continue
			}
			ident, ok := prop.Key.(*ast.Identifier)
			if !ok {
				c.addError(fmt.Errorf("compiler: unsupported object-pattern key %T", prop.Key))
				continue
			}
			taken = append(taken, ident.Name)
			nameIdx := c.addConstant(value.Str(ident.Name))
			val := c.alloc()
			c.emitRegRegU16(bytecode.OpGetProp, val, src, nameIdx, line)
			c.declarePattern(prop.Value, val, line)
		}
		if p.Rest != nil {
			rest := c.alloc()
			c.emit1(bytecode.OpMakeEmptyObject, rest, line)
			c.emit2(bytecode.OpObjectSpread, rest, src, line)
			for _, name := range taken {
				nameIdx := c.addConstant(value.Str(name))
				delDest := c.alloc()
				c.emitRegRegU16(bytecode.OpDeleteProp, delDest, rest, nameIdx, line)
			}
			c.declarePattern(p.Rest, rest, line)
		}
	default:
		c.addError(fmt.Errorf("compiler: unsupported declaration pattern %T", pat))
	}
}

// assignHoistedPattern is declarePattern's counterpart for `var`:  every
// name it binds was already predefined (as nilRegister) by the
// enclosing function's hoisting pass, so identifiers update their
// existing symbol-table entry instead of creating a new one.
func (c *Compiler) assignHoistedPattern(pat ast.Pattern, src Register, line int) {
	if ident, ok := pat.(*ast.Identifier); ok {
		c.table.UpdateRegister(ident.Name, src)
		return
	}
	switch p := pat.(type) {
	case *ast.AssignmentPattern:
		resolved := c.applyPatternDefault(src, p.Default, line)
		c.assignHoistedPattern(p.Target, resolved, line)
	case *ast.ArrayPattern:
		for i, el := range p.Elements {
			if el == nil {
				continue
			}
			idx := c.alloc()
			c.emitRegU16(bytecode.OpLoadConst, idx, c.addConstant(value.Number(float64(i))), line)
			elVal := c.alloc()
			c.emit3(bytecode.OpGetIndex, elVal, src, idx, line)
			c.assignHoistedPattern(el, elVal, line)
		}
		if p.Rest != nil {
			startIdx := c.alloc()
			c.emitRegU16(bytecode.OpLoadConst, startIdx, c.addConstant(value.Number(float64(len(p.Elements)))), line)
			restArr := c.alloc()
			c.emit3(bytecode.OpArraySlice, restArr, src, startIdx, line)
			c.assignHoistedPattern(p.Rest, restArr, line)
		}
	case *ast.ObjectPattern:
		taken := make([]string, 0, len(p.Properties))
		for _, prop := range p.Properties {
			if prop.Computed {
				keyReg := c.compileExpression(prop.Key)
				tmp := c.alloc()
				c.emit2(bytecode.OpToPropertyKey, tmp, keyReg, line)
				val := c.alloc()
				c.emit3(bytecode.OpGetIndex, val, src, tmp, line)
				c.assignHoistedPattern(prop.Value, val, line)
				continue
			}
			ident, ok := prop.Key.(*ast.Identifier)
			if !ok {
				c.addError(fmt.Errorf("compiler: unsupported object-pattern key %T", prop.Key))
				continue
			}
			taken = append(taken, ident.Name)
			nameIdx := c.addConstant(value.Str(ident.Name))
			val := c.alloc()
			c.emitRegRegU16(bytecode.OpGetProp, val, src, nameIdx, line)
			c.assignHoistedPattern(prop.Value, val, line)
		}
		if p.Rest != nil {
			rest := c.alloc()
			c.emit1(bytecode.OpMakeEmptyObject, rest, line)
			c.emit2(bytecode.OpObjectSpread, rest, src, line)
			for _, name := range taken {
				nameIdx := c.addConstant(value.Str(name))
				delDest := c.alloc()
				c.emitRegRegU16(bytecode.OpDeleteProp, delDest, rest, nameIdx, line)
			}
			c.assignHoistedPattern(p.Rest, rest, line)
		}
	default:
		c.addError(fmt.Errorf("compiler: unsupported declaration pattern %T", pat))
	}
}

// applyPatternDefault substitutes def for src when src is undefined,
// returning the register holding whichever value actually applies.
func (c *Compiler) applyPatternDefault(src Register, def ast.Expression, line int) Register {
	isUndef := c.alloc()
	c.emit2(bytecode.OpIsUndefined, isUndef, src, line)
	placeholder := c.emitPlaceholderJump(bytecode.OpJumpIfFalse, isUndef, line)
	defVal := c.compileExpression(def)
	c.emitMove(src, defVal, line)
	if err := c.patchJumpHere(placeholder); err != nil {
		c.addError(err)
	}
	return src
}
