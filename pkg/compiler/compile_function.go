package compiler

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/bytecode"
	"esrt/pkg/value"
)

// compileFunctionLiteral compiles a named or anonymous function body in
// its own child Compiler and emits the OpClosure that instantiates it in
// the current function, capturing whatever upvalues the body resolved.
func (c *Compiler) compileFunctionLiteral(e *ast.FunctionLiteral) Register {
	return c.compileFunctionLike(e.Name, e.Params, e.Rest, e.Body, nil, e.IsGenerator, e.IsAsync, false, e.Line())
}

func (c *Compiler) compileArrowFunctionLiteral(e *ast.ArrowFunctionLiteral) Register {
	return c.compileFunctionLike("", e.Params, e.Rest, e.Body, e.ExpressionBody, false, e.IsAsync, true, e.Line())
}

// compileFunctionLike is shared by function/arrow literals and class
// methods/accessors. Exactly one of body/exprBody is non-nil.
func (c *Compiler) compileFunctionLike(name string, params []ast.Param, rest ast.Pattern, body *ast.BlockStatement, exprBody ast.Expression, isGenerator, isAsync, isArrow bool, line int) Register {
	fc := newChildCompiler(c, name, len(params))
	fc.isGenerator = isGenerator
	fc.isAsync = isAsync
	fc.proto.IsGenerator = isGenerator
	fc.proto.IsAsync = isAsync
	fc.proto.IsArrow = isArrow

	for _, p := range params {
		reg := fc.alloc()
		fc.declarePattern(p.Target, reg, line)
	}
	if rest != nil {
		argsReg := fc.alloc()
		fc.emit1(bytecode.OpGetArguments, argsReg, line)
		startIdx := fc.alloc()
		fc.emitRegU16(bytecode.OpLoadConst, startIdx, fc.addConstant(value.Number(float64(len(params)))), line)
		restArr := fc.alloc()
		fc.emit3(bytecode.OpArraySlice, restArr, argsReg, startIdx, line)
		fc.declarePattern(rest, restArr, line)
	}

	if exprBody != nil {
		result := fc.compileExpression(exprBody)
		fc.emit1(bytecode.OpReturn, result, line)
	} else {
		fc.hoistVarDeclarations(body.Statements)
		fc.compileHoistedBlock(body.Statements)
		fc.emitNone(bytecode.OpReturnUndefined, line)
	}
	fc.proto.NumRegs = fc.regAlloc.MaxRegs()
	for _, err := range fc.errs {
		c.addError(err)
	}

	childIdx := c.proto.AddFunction(fc.proto)
	dest := c.alloc()
	c.emitClosure(dest, childIdx, fc.proto.Upvalues, line)
	if name != "" {
		c.table.Define(name, dest)
	}
	return dest
}

// compileClassLiteral desugars a class body into: an empty object
// standing in for the prototype, a constructor function (synthesized if
// the class declares none), one OpDefineMethod/OpDefineAccessor per
// member, and field initializers run at construction time by the
// constructor itself — member Values for ClassField aren't executed
// here, they're threaded into the constructor's prologue.
func (c *Compiler) compileClassLiteral(e *ast.ClassLiteral) Register {
	line := e.Line()
	proto := c.alloc()
	c.emit1(bytecode.OpMakeEmptyObject, proto, line)

	if e.SuperClass != nil {
		super := c.compileExpression(e.SuperClass)
		c.emit2(bytecode.OpSetPrototype, proto, super, line)
	}

	var instanceFields, staticFields, staticMembers []ast.ClassMember
	var ctor *ast.FunctionLiteral

	for _, m := range e.Members {
		switch m.Kind {
		case ast.ClassField:
			if m.Static {
				staticFields = append(staticFields, m)
			} else {
				instanceFields = append(instanceFields, m)
			}
			continue
		case ast.ClassMethod:
			if ident, ok := m.Key.(*ast.Identifier); ok && ident.Name == "constructor" && !m.Static {
				ctor, _ = m.Value.(*ast.FunctionLiteral)
				continue
			}
		}
		if m.Static {
			staticMembers = append(staticMembers, m)
			continue
		}
		c.compileClassMember(proto, m, line)
	}

	ctorDest := c.compileConstructorFunction(e.Name, ctor, instanceFields, line)
	if e.Name != "" {
		c.table.Define(e.Name, ctorDest)
	}
	c.emit2(bytecode.OpSetPrototype, ctorDest, proto, line)

	for _, m := range staticMembers {
		c.compileClassMember(ctorDest, m, line)
	}

	for _, m := range staticFields {
		var val Register
		if m.Value != nil {
			val = c.compileExpression(m.Value)
		} else {
			val = c.alloc()
			c.emit1(bytecode.OpLoadUndefined, val, line)
		}
		nameIdx := c.propertyNameConstant(m.Key, m.Computed, line)
		c.emitRegU16Reg(bytecode.OpSetProp, ctorDest, nameIdx, val, line)
	}
	return ctorDest
}

// compileClassMember defines one non-constructor, non-field method or
// accessor onto target: the class prototype for instance members, the
// constructor object for static ones.
func (c *Compiler) compileClassMember(target Register, m ast.ClassMember, line int) {
	fn, ok := m.Value.(*ast.FunctionLiteral)
	if !ok {
		c.addError(fmt.Errorf("compiler: class member %v has non-function value", m.Kind))
		return
	}
	fnReg := c.compileFunctionLiteral(fn)
	nameIdx := c.propertyNameConstant(m.Key, m.Computed, line)
	switch m.Kind {
	case ast.ClassGetter:
		undef := c.alloc()
		c.emit1(bytecode.OpLoadUndefined, undef, line)
		c.emit3U16(bytecode.OpDefineAccessor, target, fnReg, undef, nameIdx, line)
	case ast.ClassSetter:
		undef := c.alloc()
		c.emit1(bytecode.OpLoadUndefined, undef, line)
		c.emit3U16(bytecode.OpDefineAccessor, target, undef, fnReg, nameIdx, line)
	default:
		c.emitRegRegU16(bytecode.OpDefineMethod, target, fnReg, nameIdx, line)
	}
}

// compileConstructorFunction builds the class's constructor as its own
// child Compiler: instance field initializers run first (after an
// implicit super() call is assumed already handled by the interpreter's
// derived-class construction protocol), then the user-written
// constructor body, if any.
func (c *Compiler) compileConstructorFunction(name string, ctor *ast.FunctionLiteral, fields []ast.ClassMember, line int) Register {
	params := []ast.Param(nil)
	var rest ast.Pattern
	var body *ast.BlockStatement
	if ctor != nil {
		params = ctor.Params
		rest = ctor.Rest
		body = ctor.Body
	}

	fc := newChildCompiler(c, name, len(params))
	for _, p := range params {
		reg := fc.alloc()
		fc.declarePattern(p.Target, reg, line)
	}
	if rest != nil {
		argsReg := fc.alloc()
		fc.emit1(bytecode.OpGetArguments, argsReg, line)
		startIdx := fc.alloc()
		fc.emitRegU16(bytecode.OpLoadConst, startIdx, fc.addConstant(value.Number(float64(len(params)))), line)
		restArr := fc.alloc()
		fc.emit3(bytecode.OpArraySlice, restArr, argsReg, startIdx, line)
		fc.declarePattern(rest, restArr, line)
	}

	thisReg := fc.alloc()
	fc.emit1(bytecode.OpLoadThis, thisReg, line)
	for _, field := range fields {
		var val Register
		if field.Value != nil {
			val = fc.compileExpression(field.Value)
		} else {
			val = fc.alloc()
			fc.emit1(bytecode.OpLoadUndefined, val, line)
		}
		nameIdx := fc.propertyNameConstant(field.Key, field.Computed, line)
		fc.emitRegU16Reg(bytecode.OpSetProp, thisReg, nameIdx, val, line)
	}

	if body != nil {
		fc.hoistVarDeclarations(body.Statements)
		fc.compileHoistedBlock(body.Statements)
	}
	fc.emitNone(bytecode.OpReturnUndefined, line)
	fc.proto.NumRegs = fc.regAlloc.MaxRegs()
	for _, err := range fc.errs {
		c.addError(err)
	}

	childIdx := c.proto.AddFunction(fc.proto)
	dest := c.alloc()
	c.emitClosure(dest, childIdx, fc.proto.Upvalues, line)
	return dest
}
