package compiler

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/bytecode"
	"esrt/pkg/value"
)

// compileExpression lowers expr, returning the register holding its
// result. Unlike the teacher's hinted allocator, every expression here
// allocates its own fresh destination register; the simplification
// trades away hint-driven register reuse for a smaller, more readable
// lowering (see DESIGN.md).
func (c *Compiler) compileExpression(expr ast.Expression) Register {
	line := expr.Line()
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		dest := c.alloc()
		c.emitRegU16(bytecode.OpLoadConst, dest, c.addConstant(value.Number(e.Value)), line)
		return dest
	case *ast.StringLiteral:
		dest := c.alloc()
		c.emitRegU16(bytecode.OpLoadConst, dest, c.addConstant(value.Str(e.Value)), line)
		return dest
	case *ast.BooleanLiteral:
		dest := c.alloc()
		if e.Value {
			c.emit1(bytecode.OpLoadTrue, dest, line)
		} else {
			c.emit1(bytecode.OpLoadFalse, dest, line)
		}
		return dest
	case *ast.NullLiteral:
		dest := c.alloc()
		c.emit1(bytecode.OpLoadNull, dest, line)
		return dest
	case *ast.UndefinedLiteral:
		dest := c.alloc()
		c.emit1(bytecode.OpLoadUndefined, dest, line)
		return dest
	case *ast.Identifier:
		return c.loadVariable(e.Name, line)
	case *ast.ThisExpression:
		dest := c.alloc()
		c.emit1(bytecode.OpLoadThis, dest, line)
		return dest
	case *ast.NewTargetExpression:
		dest := c.alloc()
		c.emit1(bytecode.OpLoadNewTarget, dest, line)
		return dest
	case *ast.ImportMetaExpression:
		dest := c.alloc()
		c.emit1(bytecode.OpLoadImportMeta, dest, line)
		return dest
	case *ast.TemplateLiteral:
		return c.compileTemplateLiteral(e)
	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(e)
	case *ast.ObjectLiteral:
		return c.compileObjectLiteral(e)
	case *ast.FunctionLiteral:
		return c.compileFunctionLiteral(e)
	case *ast.ArrowFunctionLiteral:
		return c.compileArrowFunctionLiteral(e)
	case *ast.ClassLiteral:
		return c.compileClassLiteral(e)
	case *ast.UnaryExpression:
		return c.compileUnaryExpression(e)
	case *ast.UpdateExpression:
		return c.compileUpdateExpression(e)
	case *ast.BinaryExpression:
		return c.compileBinaryExpression(e)
	case *ast.LogicalExpression:
		return c.compileLogicalExpression(e)
	case *ast.ConditionalExpression:
		return c.compileConditionalExpression(e)
	case *ast.AssignmentExpression:
		return c.compileAssignmentExpression(e)
	case *ast.SequenceExpression:
		var last Register
		for _, inner := range e.Expressions {
			last = c.compileExpression(inner)
		}
		return last
	case *ast.MemberExpression:
		return c.compileMemberExpression(e)
	case *ast.PrivateMemberExpression:
		return c.compilePrivateMemberExpression(e)
	case *ast.CallExpression:
		return c.compileCallExpression(e)
	case *ast.NewExpression:
		return c.compileNewExpression(e)
	case *ast.YieldExpression:
		return c.compileYieldExpression(e)
	case *ast.AwaitExpression:
		return c.compileAwaitExpression(e)
	case *ast.DynamicImportExpression:
		spec := c.compileExpression(e.Specifier)
		dest := c.alloc()
		c.emit2(bytecode.OpDynamicImport, dest, spec, line)
		return dest
	default:
		c.addError(fmt.Errorf("compiler: unsupported expression node %T", expr))
		return c.alloc()
	}
}

func (c *Compiler) compileTemplateLiteral(e *ast.TemplateLiteral) Register {
	line := e.Line()
	result := c.alloc()
	c.emitRegU16(bytecode.OpLoadConst, result, c.addConstant(value.Str(e.Quasis[0])), line)
	for i, expr := range e.Expressions {
		valReg := c.compileExpression(expr)
		strReg := c.alloc()
		c.emit3(bytecode.OpStringConcat, strReg, result, valReg, line)
		result = strReg
		if e.Quasis[i+1] != "" {
			quasiReg := c.alloc()
			c.emitRegU16(bytecode.OpLoadConst, quasiReg, c.addConstant(value.Str(e.Quasis[i+1])), line)
			combined := c.alloc()
			c.emit3(bytecode.OpStringConcat, combined, result, quasiReg, line)
			result = combined
		}
	}
	return result
}

func (c *Compiler) compileArrayLiteral(e *ast.ArrayLiteral) Register {
	line := e.Line()
	if hasArraySpread(e.Elements) {
		return c.compileSpreadArrayLiteral(e, line)
	}
	count := len(e.Elements)
	first, err := c.regAlloc.AllocContiguous(maxInt(count, 1))
	if err != nil {
		c.addError(err)
		return c.alloc()
	}
	for i, el := range e.Elements {
		target := first + Register(i)
		if el == nil {
			c.emit1(bytecode.OpLoadUndefined, target, line)
			continue
		}
		val := c.compileExpression(el)
		c.emitMove(target, val, line)
	}
	arr := c.alloc()
	c.emit3(bytecode.OpMakeArray, arr, first, Register(count), line)
	return arr
}

func hasArraySpread(elements []ast.Expression) bool {
	for _, el := range elements {
		if _, ok := el.(*ast.SpreadElement); ok {
			return true
		}
	}
	return false
}

// compileSpreadArrayLiteral builds an array one element (or spread
// iterable's worth of elements) at a time via OpArraySpread, since a
// spread's length isn't known at compile time and so can't share the
// contiguous-register layout compileArrayLiteral's fast path uses.
func (c *Compiler) compileSpreadArrayLiteral(e *ast.ArrayLiteral, line int) Register {
	arr := c.alloc()
	c.emitRegU16(bytecode.OpAllocArray, arr, 0, line)
	for _, el := range e.Elements {
		if spread, ok := el.(*ast.SpreadElement); ok {
			val := c.compileExpression(spread.Argument)
			c.emit2(bytecode.OpArraySpread, arr, val, line)
			continue
		}
		var val Register
		if el == nil {
			val = c.alloc()
			c.emit1(bytecode.OpLoadUndefined, val, line)
		} else {
			val = c.compileExpression(el)
		}
		wrapped := c.alloc()
		c.emit3(bytecode.OpMakeArray, wrapped, val, 1, line)
		c.emit2(bytecode.OpArraySpread, arr, wrapped, line)
	}
	return arr
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (c *Compiler) compileObjectLiteral(e *ast.ObjectLiteral) Register {
	line := e.Line()
	dest := c.alloc()
	c.emit1(bytecode.OpMakeEmptyObject, dest, line)
	for _, prop := range e.Properties {
		switch prop.Kind {
		case ast.PropertySpread:
			src := c.compileExpression(prop.Value)
			c.emit2(bytecode.OpObjectSpread, dest, src, line)
		case ast.PropertyGet, ast.PropertySet, ast.PropertyMethod:
			fn := c.compileExpression(prop.Value)
			nameIdx := c.propertyNameConstant(prop.Key, prop.Computed, line)
			c.emitRegRegU16(bytecode.OpDefineMethod, dest, fn, nameIdx, line)
		default:
			val := c.compileExpression(prop.Value)
			if prop.Computed {
				key := c.compileExpression(prop.Key)
				tmp := c.alloc()
				c.emit2(bytecode.OpToPropertyKey, tmp, key, line)
				c.emit3(bytecode.OpSetIndex, dest, tmp, val, line)
			} else {
				nameIdx := c.propertyNameConstant(prop.Key, false, line)
				c.emitRegU16Reg(bytecode.OpSetProp, dest, nameIdx, val, line)
			}
		}
	}
	return dest
}

// propertyNameConstant interns a non-computed property key (identifier
// or string literal) as a constant and returns its pool index.
func (c *Compiler) propertyNameConstant(key ast.Expression, computed bool, line int) uint16 {
	if computed {
		return 0
	}
	switch k := key.(type) {
	case *ast.Identifier:
		return c.addConstant(value.Str(k.Name))
	case *ast.StringLiteral:
		return c.addConstant(value.Str(k.Value))
	default:
		c.addError(fmt.Errorf("compiler: unsupported property key node %T", key))
		return 0
	}
}

func (c *Compiler) compileUnaryExpression(e *ast.UnaryExpression) Register {
	line := e.Line()
	switch e.Operator {
	case "typeof":
		// typeof on a bare identifier must not throw ReferenceError for an
		// undeclared name, so an unresolved or dynamically-bound name goes
		// through OpTypeofIdentifier (a safe lookup-by-BindingRef) instead
		// of the ordinary loadVariable path; a name resolved to a local or
		// upvalue reads its register/cell like any other expression.
		if ident, ok := e.Operand.(*ast.Identifier); ok {
			if sym, table, found := c.table.Resolve(ident.Name); found && sym.Kind != symBindingRef {
				var src Register
				if !c.crossesFunctionBoundary(table) {
					src = sym.Register
				} else {
					upIdx := c.resolveUpvalue(ident.Name)
					src = c.alloc()
					c.emit2(bytecode.OpLoadFree, src, Register(upIdx), line)
				}
				dest := c.alloc()
				c.emit2(bytecode.OpTypeof, dest, src, line)
				return dest
			}
			var idx uint16
			if sym, _, found := c.table.Resolve(ident.Name); found && sym.Kind == symBindingRef {
				idx = sym.BindingIdx
			} else {
				idx = c.proto.AddBindingRef(bytecode.BindingRef{Kind: bytecode.BindingGlobal, Name: ident.Name, Slot: -1})
			}
			dest := c.alloc()
			c.emitRegU16(bytecode.OpTypeofIdentifier, dest, idx, line)
			return dest
		}
		src := c.compileExpression(e.Operand)
		dest := c.alloc()
		c.emit2(bytecode.OpTypeof, dest, src, line)
		return dest
	case "-":
		src := c.compileExpression(e.Operand)
		dest := c.alloc()
		c.emit2(bytecode.OpNegate, dest, src, line)
		return dest
	case "!":
		src := c.compileExpression(e.Operand)
		dest := c.alloc()
		c.emit2(bytecode.OpNot, dest, src, line)
		return dest
	case "~":
		src := c.compileExpression(e.Operand)
		dest := c.alloc()
		c.emit2(bytecode.OpBitwiseNot, dest, src, line)
		return dest
	case "+":
		src := c.compileExpression(e.Operand)
		dest := c.alloc()
		c.emit2(bytecode.OpToNumber, dest, src, line)
		return dest
	case "void":
		c.compileExpression(e.Operand)
		dest := c.alloc()
		c.emit1(bytecode.OpLoadUndefined, dest, line)
		return dest
	case "delete":
		return c.compileDeleteExpression(e.Operand, line)
	default:
		c.addError(fmt.Errorf("compiler: unsupported unary operator %q", e.Operator))
		return c.alloc()
	}
}

func (c *Compiler) compileDeleteExpression(target ast.Expression, line int) Register {
	dest := c.alloc()
	switch t := target.(type) {
	case *ast.MemberExpression:
		obj := c.compileExpression(t.Object)
		if t.Computed {
			key := c.compileExpression(t.Property)
			c.emit3(bytecode.OpDeleteIndex, dest, obj, key, line)
		} else {
			nameIdx := c.propertyNameConstant(t.Property, false, line)
			c.emitRegRegU16(bytecode.OpDeleteProp, dest, obj, nameIdx, line)
		}
	default:
		c.emit1(bytecode.OpLoadTrue, dest, line)
	}
	return dest
}

func (c *Compiler) compileUpdateExpression(e *ast.UpdateExpression) Register {
	line := e.Line()
	one := c.alloc()
	c.emitRegU16(bytecode.OpLoadConst, one, c.addConstant(value.Number(1)), line)
	old := c.compileExpression(e.Operand)
	updated := c.alloc()
	if e.Operator == "++" {
		c.emit3(bytecode.OpAdd, updated, old, one, line)
	} else {
		c.emit3(bytecode.OpSubtract, updated, old, one, line)
	}
	c.assignTo(e.Operand, updated, line)
	if e.Prefix {
		return updated
	}
	return old
}

func (c *Compiler) compileBinaryExpression(e *ast.BinaryExpression) Register {
	line := e.Line()
	left := c.compileExpression(e.Left)
	right := c.compileExpression(e.Right)
	dest := c.alloc()
	op, ok := binaryOps[e.Operator]
	if !ok {
		c.addError(fmt.Errorf("compiler: unsupported binary operator %q", e.Operator))
		return dest
	}
	c.emit3(op, dest, left, right, line)
	return dest
}

var binaryOps = map[string]bytecode.OpCode{
	"+": bytecode.OpAdd, "-": bytecode.OpSubtract, "*": bytecode.OpMultiply,
	"/": bytecode.OpDivide, "%": bytecode.OpRemainder, "**": bytecode.OpExponent,
	"==": bytecode.OpEqual, "!=": bytecode.OpNotEqual,
	"===": bytecode.OpStrictEqual, "!==": bytecode.OpStrictNotEqual,
	">": bytecode.OpGreater, "<": bytecode.OpLess,
	"<=": bytecode.OpLessEqual, ">=": bytecode.OpGreaterEqual,
	"in": bytecode.OpIn, "instanceof": bytecode.OpInstanceof,
	"&": bytecode.OpBitwiseAnd, "|": bytecode.OpBitwiseOr, "^": bytecode.OpBitwiseXor,
	"<<": bytecode.OpShiftLeft, ">>": bytecode.OpShiftRight, ">>>": bytecode.OpUnsignedShiftRight,
}

// compileLogicalExpression short-circuits && / || / ?? with a jump
// instead of evaluating both operands unconditionally.
func (c *Compiler) compileLogicalExpression(e *ast.LogicalExpression) Register {
	line := e.Line()
	dest := c.compileExpression(e.Left)
	var placeholder int
	switch e.Operator {
	case "&&":
		placeholder = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, dest, line)
	case "||":
		notDest := c.alloc()
		c.emit2(bytecode.OpNot, notDest, dest, line)
		placeholder = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, notDest, line)
	case "??":
		isNullish := c.alloc()
		c.emit2(bytecode.OpIsNullish, isNullish, dest, line)
		placeholder = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, isNullish, line)
	default:
		c.addError(fmt.Errorf("compiler: unsupported logical operator %q", e.Operator))
		return dest
	}
	right := c.compileExpression(e.Right)
	c.emitMove(dest, right, line)
	if err := c.patchJumpHere(placeholder); err != nil {
		c.addError(err)
	}
	return dest
}

func (c *Compiler) compileConditionalExpression(e *ast.ConditionalExpression) Register {
	line := e.Line()
	test := c.compileExpression(e.Test)
	dest := c.alloc()
	elseJump := c.emitPlaceholderJump(bytecode.OpJumpIfFalse, test, line)
	thenVal := c.compileExpression(e.Consequent)
	c.emitMove(dest, thenVal, line)
	endJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	if err := c.patchJumpHere(elseJump); err != nil {
		c.addError(err)
	}
	elseVal := c.compileExpression(e.Alternate)
	c.emitMove(dest, elseVal, line)
	if err := c.patchJumpHere(endJump); err != nil {
		c.addError(err)
	}
	return dest
}

// compileMemberExpression lowers `.prop`/`[expr]` access, including one
// link of an optional-chain (`?.`): a null/undefined base short-circuits
// straight to the chain's end via the shared optBase jump list that
// compileCallExpression/compileMemberExpression thread through Object.
func (c *Compiler) compileMemberExpression(e *ast.MemberExpression) Register {
	line := e.Line()
	if _, ok := e.Object.(*ast.SuperExpression); ok {
		return c.compileSuperMember(e)
	}
	obj := c.compileExpression(e.Object)
	dest := c.alloc()
	var optJump int
	hasOptJump := false
	if e.Optional {
		optJump = c.emitPlaceholderJump(bytecode.OpJumpIfNullish, obj, line)
		hasOptJump = true
	}
	if e.Computed {
		key := c.compileExpression(e.Property)
		c.emit3(bytecode.OpGetIndex, dest, obj, key, line)
	} else {
		nameIdx := c.propertyNameConstant(e.Property, false, line)
		c.emitRegRegU16(bytecode.OpGetProp, dest, obj, nameIdx, line)
	}
	if hasOptJump {
		if err := c.patchJumpHere(optJump); err != nil {
			c.addError(err)
		}
	}
	return dest
}

func (c *Compiler) compileSuperMember(e *ast.MemberExpression) Register {
	line := e.Line()
	dest := c.alloc()
	if e.Computed {
		key := c.compileExpression(e.Property)
		c.emit2(bytecode.OpGetSuperComputed, dest, key, line)
	} else {
		nameIdx := c.propertyNameConstant(e.Property, false, line)
		c.emitRegU16(bytecode.OpGetSuper, dest, nameIdx, line)
	}
	return dest
}

// compileSuperCall lowers `super(args)`, the explicit parent-constructor
// call a derived class's constructor body may make. compileConstructorFunction
// binds `this` before the constructor body ever runs, as a simplification
// of the derived-class construction protocol (see its own doc comment) —
// the parent constructor already ran against that `this` by the time any
// statement in the body executes, so there is no later point at which a
// second, explicitly-argumented invocation could still do anything. Rather
// than emit a call that silently no-ops or double-runs the parent
// constructor, a source-level super(...) call is rejected here with a
// concrete diagnostic instead of falling through to compileExpression's
// generic "unsupported expression node" error.
func (c *Compiler) compileSuperCall(e *ast.CallExpression, line int) Register {
	c.addError(fmt.Errorf("compiler:%d: super(...) calls are not supported; this engine's derived-class construction already binds `this` before the constructor body runs", line))
	return c.alloc()
}

func (c *Compiler) compilePrivateMemberExpression(e *ast.PrivateMemberExpression) Register {
	line := e.Line()
	obj := c.compileExpression(e.Object)
	dest := c.alloc()
	nameIdx := c.addConstant(value.Str(e.Field.Name))
	c.emitRegRegU16(bytecode.OpGetPrivateField, dest, obj, nameIdx, line)
	return dest
}

// compileCallExpression lowers a normal or optionally-chained call; a
// tail call is emitted instead of OpCall when this expression sits in
// tail position (set by compileReturnStatement before recursing).
func (c *Compiler) compileCallExpression(e *ast.CallExpression) Register {
	line := e.Line()
	// Only this call is in tail position, not the calls nested in its
	// callee or arguments; an async body never tail-calls, since its
	// frame must stay to settle the body's promise.
	tail := c.inTailPosition && !c.isAsync
	c.inTailPosition = false
	if _, ok := e.Callee.(*ast.SuperExpression); ok {
		return c.compileSuperCall(e, line)
	}
	spread := hasSpread(e.Args)

	var fnReg, thisReg Register
	isMethod := false
	if member, ok := e.Callee.(*ast.MemberExpression); ok {
		thisReg = c.compileExpression(member.Object)
		dest := c.alloc()
		if member.Computed {
			key := c.compileExpression(member.Property)
			c.emit3(bytecode.OpGetIndex, dest, thisReg, key, line)
		} else {
			nameIdx := c.propertyNameConstant(member.Property, false, line)
			c.emitRegRegU16(bytecode.OpGetProp, dest, thisReg, nameIdx, line)
		}
		fnReg = dest
		isMethod = true
	} else {
		fnReg = c.compileExpression(e.Callee)
	}

	dest := c.alloc()
	if spread {
		argsReg := c.compileSpreadArgsArray(e.Args)
		if isMethod {
			if tail {
				c.emit4(bytecode.OpSpreadCallMethod, dest, fnReg, thisReg, argsReg, line)
			} else {
				c.emit4(bytecode.OpSpreadCallMethod, dest, fnReg, thisReg, argsReg, line)
			}
		} else {
			c.emit3(bytecode.OpSpreadCall, dest, fnReg, argsReg, line)
		}
		return dest
	}

	first, err := c.regAlloc.AllocContiguous(maxInt(len(e.Args), 1))
	if err != nil {
		c.addError(err)
		return dest
	}
	for i, arg := range e.Args {
		v := c.compileExpression(arg)
		c.emitMove(first+Register(i), v, line)
	}
	argCount := Register(len(e.Args))
	if isMethod {
		if tail {
			c.emit4(bytecode.OpTailCallMethod, dest, fnReg, thisReg, argCount, line)
		} else {
			c.emit4(bytecode.OpCallMethod, dest, fnReg, thisReg, argCount, line)
		}
	} else {
		if tail {
			c.emit3(bytecode.OpTailCall, dest, fnReg, argCount, line)
		} else {
			c.emit3(bytecode.OpCall, dest, fnReg, argCount, line)
		}
	}
	return dest
}

func hasSpread(args []ast.Expression) bool {
	for _, a := range args {
		if _, ok := a.(*ast.SpreadElement); ok {
			return true
		}
	}
	return false
}

// compileSpreadArgsArray evaluates a call's argument list (which
// contains at least one spread) into a single array register, the shape
// OpSpreadCall/OpSpreadCallMethod expect.
func (c *Compiler) compileSpreadArgsArray(args []ast.Expression) Register {
	lit := &ast.ArrayLiteral{Elements: args}
	return c.compileArrayLiteral(lit)
}

func (c *Compiler) compileNewExpression(e *ast.NewExpression) Register {
	line := e.Line()
	ctor := c.compileExpression(e.Callee)
	dest := c.alloc()
	if hasSpread(e.Args) {
		argsReg := c.compileSpreadArgsArray(e.Args)
		c.emit3(bytecode.OpSpreadNew, dest, ctor, argsReg, line)
		return dest
	}
	first, err := c.regAlloc.AllocContiguous(maxInt(len(e.Args), 1))
	if err != nil {
		c.addError(err)
		return dest
	}
	for i, arg := range e.Args {
		v := c.compileExpression(arg)
		c.emitMove(first+Register(i), v, line)
	}
	c.emit3(bytecode.OpNew, dest, ctor, Register(len(e.Args)), line)
	return dest
}

func (c *Compiler) compileYieldExpression(e *ast.YieldExpression) Register {
	line := e.Line()
	var arg Register
	if e.Argument != nil {
		arg = c.compileExpression(e.Argument)
	} else {
		arg = c.alloc()
		c.emit1(bytecode.OpLoadUndefined, arg, line)
	}
	dest := c.alloc()
	if e.Delegate {
		output := c.alloc()
		c.emit3(bytecode.OpYieldDelegated, dest, output, arg, line)
	} else {
		c.emit2(bytecode.OpYield, dest, arg, line)
	}
	return dest
}

func (c *Compiler) compileAwaitExpression(e *ast.AwaitExpression) Register {
	line := e.Line()
	arg := c.compileExpression(e.Argument)
	dest := c.alloc()
	c.emit2(bytecode.OpAwait, dest, arg, line)
	return dest
}
