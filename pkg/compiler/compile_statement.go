package compiler

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/bytecode"
	"esrt/pkg/value"
)

// compileStatement dispatches on stmt's concrete type. Every ast
// statement node defined in pkg/ast has a case here.
func (c *Compiler) compileStatement(stmt ast.Statement) {
	line := stmt.Line()
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		c.compileExpression(s.Expr)
	case *ast.VariableDeclaration:
		c.compileVariableDeclaration(s, line)
	case *ast.BlockStatement:
		c.pushBlockScope()
		c.compileHoistedBlock(s.Statements)
		c.popBlockScope()
	case *ast.IfStatement:
		c.compileIfStatement(s, line)
	case *ast.WhileStatement:
		c.compileWhileStatement(s, "", line)
	case *ast.DoWhileStatement:
		c.compileDoWhileStatement(s, "", line)
	case *ast.ForStatement:
		c.compileForStatement(s, "", line)
	case *ast.ForInStatement:
		c.compileForInStatement(s, "", line)
	case *ast.ForOfStatement:
		c.compileForOfStatement(s, "", line)
	case *ast.BreakStatement:
		c.compileBreakStatement(s, line)
	case *ast.ContinueStatement:
		c.compileContinueStatement(s, line)
	case *ast.ReturnStatement:
		c.compileReturnStatement(s, line)
	case *ast.ThrowStatement:
		c.compileThrowStatement(s, line)
	case *ast.TryStatement:
		c.compileTryStatement(s, line)
	case *ast.SwitchStatement:
		c.compileSwitchStatement(s, line)
	case *ast.LabeledStatement:
		c.compileLabeledStatement(s, line)
	case *ast.WithStatement:
		c.compileWithStatement(s, line)
	case *ast.EmptyStatement:
		// nothing to emit
	case *ast.FunctionLiteral:
		c.compileFunctionLiteral(s)
	case *ast.ClassLiteral:
		c.compileClassLiteral(s)
	case *ast.ImportDeclaration:
		c.compileImportDeclaration(s)
	case *ast.ExportDeclaration:
		c.compileExportDeclaration(s)
	default:
		c.addError(fmt.Errorf("compiler: unsupported statement node %T", stmt))
	}
}

// compileHoistedBlock compiles stmts as one block body: function
// declarations appearing directly in the list are bound before anything
// else runs (the block-scoped hoisting every other statement kind
// doesn't get), then every statement compiles in source order.
func (c *Compiler) compileHoistedBlock(stmts []ast.Statement) {
	hoisted := make(map[ast.Statement]bool)
	for _, stmt := range stmts {
		if fn, ok := stmt.(*ast.FunctionLiteral); ok && fn.Name != "" {
			c.compileFunctionLiteral(fn)
			hoisted[stmt] = true
		}
	}
	for _, stmt := range stmts {
		if hoisted[stmt] {
			continue
		}
		c.compileStatement(stmt)
	}
}

// hoistVarDeclarations predeclares (as nilRegister, to be filled in once
// each declarator actually runs) every `var` name reachable from stmts
// without crossing a function boundary, the way `var` hoists to the
// nearest enclosing function scope regardless of how deeply nested the
// declaration's block is.
func (c *Compiler) hoistVarDeclarations(stmts []ast.Statement) {
	for _, stmt := range stmts {
		c.hoistVarDeclarationsIn(stmt)
	}
}

func (c *Compiler) hoistVarDeclarationsIn(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		if s.Kind == ast.DeclVar {
			for _, d := range s.Declarators {
				c.hoistPatternNames(d.Target)
			}
		}
	case *ast.BlockStatement:
		c.hoistVarDeclarations(s.Statements)
	case *ast.IfStatement:
		c.hoistVarDeclarationsIn(s.Consequent)
		if s.Alternate != nil {
			c.hoistVarDeclarationsIn(s.Alternate)
		}
	case *ast.WhileStatement:
		c.hoistVarDeclarationsIn(s.Body)
	case *ast.DoWhileStatement:
		c.hoistVarDeclarationsIn(s.Body)
	case *ast.ForStatement:
		if vd, ok := s.Init.(*ast.VariableDeclaration); ok && vd.Kind == ast.DeclVar {
			for _, d := range vd.Declarators {
				c.hoistPatternNames(d.Target)
			}
		}
		c.hoistVarDeclarationsIn(s.Body)
	case *ast.ForInStatement:
		if vd, ok := s.Left.(*ast.VariableDeclaration); ok && vd.Kind == ast.DeclVar {
			for _, d := range vd.Declarators {
				c.hoistPatternNames(d.Target)
			}
		}
		c.hoistVarDeclarationsIn(s.Body)
	case *ast.ForOfStatement:
		if vd, ok := s.Left.(*ast.VariableDeclaration); ok && vd.Kind == ast.DeclVar {
			for _, d := range vd.Declarators {
				c.hoistPatternNames(d.Target)
			}
		}
		c.hoistVarDeclarationsIn(s.Body)
	case *ast.TryStatement:
		c.hoistVarDeclarations(s.Block.Statements)
		if s.Catch != nil {
			c.hoistVarDeclarations(s.Catch.Body.Statements)
		}
		if s.Finally != nil {
			c.hoistVarDeclarations(s.Finally.Statements)
		}
	case *ast.SwitchStatement:
		for _, cs := range s.Cases {
			c.hoistVarDeclarations(cs.Consequent)
		}
	case *ast.LabeledStatement:
		c.hoistVarDeclarationsIn(s.Body)
	case *ast.WithStatement:
		c.hoistVarDeclarationsIn(s.Body)
	}
	// FunctionLiteral/ClassLiteral statements own their own scope: var
	// hoisting never crosses into a nested function body.
}

func (c *Compiler) hoistPatternNames(pat ast.Pattern) {
	switch p := pat.(type) {
	case *ast.Identifier:
		if !c.table.IsDefinedInScope(p.Name) {
			c.table.Define(p.Name, nilRegister)
		}
	case *ast.AssignmentPattern:
		c.hoistPatternNames(p.Target)
	case *ast.ArrayPattern:
		for _, el := range p.Elements {
			if el != nil {
				c.hoistPatternNames(el)
			}
		}
		if p.Rest != nil {
			c.hoistPatternNames(p.Rest)
		}
	case *ast.ObjectPattern:
		for _, prop := range p.Properties {
			c.hoistPatternNames(prop.Value)
		}
		if p.Rest != nil {
			c.hoistPatternNames(p.Rest)
		}
	}
}

func (c *Compiler) compileVariableDeclaration(s *ast.VariableDeclaration, line int) {
	for _, d := range s.Declarators {
		var val Register
		if d.Init != nil {
			val = c.compileExpression(d.Init)
		} else {
			val = c.alloc()
			c.emit1(bytecode.OpLoadUndefined, val, line)
		}
		if s.Kind == ast.DeclVar {
			c.assignHoistedPattern(d.Target, val, line)
		} else {
			c.declarePattern(d.Target, val, line)
		}
	}
}

func (c *Compiler) compileIfStatement(s *ast.IfStatement, line int) {
	test := c.compileExpression(s.Test)
	elseJump := c.emitPlaceholderJump(bytecode.OpJumpIfFalse, test, line)
	c.compileStatement(s.Consequent)
	if s.Alternate != nil {
		endJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
		if err := c.patchJumpHere(elseJump); err != nil {
			c.addError(err)
		}
		c.compileStatement(s.Alternate)
		if err := c.patchJumpHere(endJump); err != nil {
			c.addError(err)
		}
		return
	}
	if err := c.patchJumpHere(elseJump); err != nil {
		c.addError(err)
	}
}

// --- Loops ---

func (c *Compiler) finishLoop(loop *loopContext) {
	for _, pos := range loop.ContinuePlaceholders {
		if err := c.patchJumpToTarget(pos, loop.ContinueTargetPos); err != nil {
			c.addError(err)
		}
	}
	for _, pos := range loop.BreakPlaceholders {
		if err := c.patchJumpHere(pos); err != nil {
			c.addError(err)
		}
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
}

func (c *Compiler) compileWhileStatement(s *ast.WhileStatement, label string, line int) {
	loop := &loopContext{Label: label, IsContinuable: true}
	c.loopStack = append(c.loopStack, loop)
	testPos := len(c.proto.Code)
	loop.ContinueTargetPos = testPos
	test := c.compileExpression(s.Test)
	exitJump := c.emitPlaceholderJump(bytecode.OpJumpIfFalse, test, line)
	c.compileStatement(s.Body)
	backJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	if err := c.patchJumpToTarget(backJump, testPos); err != nil {
		c.addError(err)
	}
	if err := c.patchJumpHere(exitJump); err != nil {
		c.addError(err)
	}
	c.finishLoop(loop)
}

func (c *Compiler) compileDoWhileStatement(s *ast.DoWhileStatement, label string, line int) {
	loop := &loopContext{Label: label, IsContinuable: true}
	c.loopStack = append(c.loopStack, loop)
	bodyStart := len(c.proto.Code)
	c.compileStatement(s.Body)
	loop.ContinueTargetPos = len(c.proto.Code)
	test := c.compileExpression(s.Test)
	exitJump := c.emitPlaceholderJump(bytecode.OpJumpIfFalse, test, line)
	backJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	if err := c.patchJumpToTarget(backJump, bodyStart); err != nil {
		c.addError(err)
	}
	if err := c.patchJumpHere(exitJump); err != nil {
		c.addError(err)
	}
	c.finishLoop(loop)
}

func (c *Compiler) compileForStatement(s *ast.ForStatement, label string, line int) {
	c.pushBlockScope()
	if s.Init != nil {
		switch init := s.Init.(type) {
		case *ast.VariableDeclaration:
			c.compileVariableDeclaration(init, line)
		case ast.Expression:
			c.compileExpression(init)
		}
	}
	loop := &loopContext{Label: label, IsContinuable: true}
	c.loopStack = append(c.loopStack, loop)
	testPos := len(c.proto.Code)
	var exitJump int
	hasExit := s.Test != nil
	if hasExit {
		test := c.compileExpression(s.Test)
		exitJump = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, test, line)
	}
	c.compileStatement(s.Body)
	loop.ContinueTargetPos = len(c.proto.Code)
	if s.Update != nil {
		c.compileExpression(s.Update)
	}
	backJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	if err := c.patchJumpToTarget(backJump, testPos); err != nil {
		c.addError(err)
	}
	if hasExit {
		if err := c.patchJumpHere(exitJump); err != nil {
			c.addError(err)
		}
	}
	c.finishLoop(loop)
	c.popBlockScope()
}

// bindForTarget binds one for-in/for-of iteration value, whether the
// loop head declares a fresh binding (`for (const x in ...)`) or
// assigns into an existing one (`for (x in ...)`).
func (c *Compiler) bindForTarget(left ast.Node, val Register, line int) {
	switch l := left.(type) {
	case *ast.VariableDeclaration:
		d := l.Declarators[0]
		if l.Kind == ast.DeclVar {
			c.assignHoistedPattern(d.Target, val, line)
		} else {
			c.declarePattern(d.Target, val, line)
		}
	case ast.Pattern:
		c.compileDestructuringAssign(l, val, line)
	default:
		c.addError(fmt.Errorf("compiler: unsupported for-loop binding target %T", left))
	}
}

func (c *Compiler) compileForInStatement(s *ast.ForInStatement, label string, line int) {
	c.pushBlockScope()
	obj := c.compileExpression(s.Right)
	keys := c.alloc()
	c.emit2(bytecode.OpGetOwnKeys, keys, obj, line)
	idx := c.alloc()
	c.emitRegU16(bytecode.OpLoadConst, idx, c.addConstant(value.Number(0)), line)
	one := c.alloc()
	c.emitRegU16(bytecode.OpLoadConst, one, c.addConstant(value.Number(1)), line)
	length := c.alloc()
	c.emit2(bytecode.OpGetLength, length, keys, line)

	loop := &loopContext{Label: label, IsContinuable: true}
	c.loopStack = append(c.loopStack, loop)
	testPos := len(c.proto.Code)
	cond := c.alloc()
	c.emit3(bytecode.OpLess, cond, idx, length, line)
	exitJump := c.emitPlaceholderJump(bytecode.OpJumpIfFalse, cond, line)

	keyVal := c.alloc()
	c.emit3(bytecode.OpGetIndex, keyVal, keys, idx, line)
	c.pushBlockScope()
	c.bindForTarget(s.Left, keyVal, line)
	c.compileStatement(s.Body)
	c.popBlockScope()

	loop.ContinueTargetPos = len(c.proto.Code)
	newIdx := c.alloc()
	c.emit3(bytecode.OpAdd, newIdx, idx, one, line)
	c.emitMove(idx, newIdx, line)
	backJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	if err := c.patchJumpToTarget(backJump, testPos); err != nil {
		c.addError(err)
	}
	if err := c.patchJumpHere(exitJump); err != nil {
		c.addError(err)
	}
	c.finishLoop(loop)
	c.popBlockScope()
}

// compileForOfStatement lowers the iterator protocol through generic
// property/call instructions (no dedicated iterator opcodes exist):
// obj["@@iterator"]() once, then iter.next() each pass, reading .done
// and .value off the result object.
func (c *Compiler) compileForOfStatement(s *ast.ForOfStatement, label string, line int) {
	c.pushBlockScope()
	iterable := c.compileExpression(s.Right)
	c.emit1(bytecode.OpTypeGuardIterable, iterable, line)
	iterMethodName := c.addConstant(value.Str("@@iterator"))
	iterMethod := c.alloc()
	c.emitRegRegU16(bytecode.OpGetProp, iterMethod, iterable, iterMethodName, line)
	iter := c.alloc()
	c.emit4(bytecode.OpCallMethod, iter, iterMethod, iterable, 0, line)

	nextName := c.addConstant(value.Str("next"))
	doneName := c.addConstant(value.Str("done"))
	valueName := c.addConstant(value.Str("value"))

	loop := &loopContext{Label: label, IsContinuable: true}
	c.loopStack = append(c.loopStack, loop)
	testPos := len(c.proto.Code)
	loop.ContinueTargetPos = testPos

	nextMethod := c.alloc()
	c.emitRegRegU16(bytecode.OpGetProp, nextMethod, iter, nextName, line)
	result := c.alloc()
	c.emit4(bytecode.OpCallMethod, result, nextMethod, iter, 0, line)
	if s.Await {
		awaited := c.alloc()
		c.emit2(bytecode.OpAwait, awaited, result, line)
		result = awaited
	}
	done := c.alloc()
	c.emitRegRegU16(bytecode.OpGetProp, done, result, doneName, line)
	notDone := c.alloc()
	c.emit2(bytecode.OpNot, notDone, done, line)
	exitJump := c.emitPlaceholderJump(bytecode.OpJumpIfFalse, notDone, line)

	val := c.alloc()
	c.emitRegRegU16(bytecode.OpGetProp, val, result, valueName, line)
	c.pushBlockScope()
	c.bindForTarget(s.Left, val, line)
	c.compileStatement(s.Body)
	c.popBlockScope()

	backJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	if err := c.patchJumpToTarget(backJump, testPos); err != nil {
		c.addError(err)
	}
	if err := c.patchJumpHere(exitJump); err != nil {
		c.addError(err)
	}
	c.emit1(bytecode.OpTypeGuardIteratorReturn, iter, line)
	c.finishLoop(loop)
	c.popBlockScope()
}

// --- break / continue / labels ---

func (c *Compiler) findBreakTarget(label string) *loopContext {
	if label == "" {
		if len(c.loopStack) == 0 {
			return nil
		}
		return c.loopStack[len(c.loopStack)-1]
	}
	for i := len(c.loopStack) - 1; i >= 0; i-- {
		if c.loopStack[i].Label == label {
			return c.loopStack[i]
		}
	}
	return nil
}

func (c *Compiler) findContinueTarget(label string) *loopContext {
	for i := len(c.loopStack) - 1; i >= 0; i-- {
		lc := c.loopStack[i]
		if label == "" {
			if lc.IsContinuable {
				return lc
			}
			continue
		}
		if lc.Label == label {
			if lc.IsContinuable {
				return lc
			}
			return nil
		}
	}
	return nil
}

func (c *Compiler) compileBreakStatement(s *ast.BreakStatement, line int) {
	loop := c.findBreakTarget(s.Label)
	if loop == nil {
		c.addError(fmt.Errorf("compiler: break outside of a loop or labeled statement (label %q)", s.Label))
		return
	}
	pos := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	loop.BreakPlaceholders = append(loop.BreakPlaceholders, pos)
}

func (c *Compiler) compileContinueStatement(s *ast.ContinueStatement, line int) {
	loop := c.findContinueTarget(s.Label)
	if loop == nil {
		c.addError(fmt.Errorf("compiler: continue outside of a loop (label %q)", s.Label))
		return
	}
	pos := c.emitPlaceholderJump(bytecode.OpJump, 0, line)
	loop.ContinuePlaceholders = append(loop.ContinuePlaceholders, pos)
}

func (c *Compiler) compileLabeledStatement(s *ast.LabeledStatement, line int) {
	switch body := s.Body.(type) {
	case *ast.WhileStatement:
		c.compileWhileStatement(body, s.Label, line)
	case *ast.DoWhileStatement:
		c.compileDoWhileStatement(body, s.Label, line)
	case *ast.ForStatement:
		c.compileForStatement(body, s.Label, line)
	case *ast.ForInStatement:
		c.compileForInStatement(body, s.Label, line)
	case *ast.ForOfStatement:
		c.compileForOfStatement(body, s.Label, line)
	default:
		loop := &loopContext{Label: s.Label, IsContinuable: false}
		c.loopStack = append(c.loopStack, loop)
		c.compileStatement(s.Body)
		for _, pos := range loop.BreakPlaceholders {
			if err := c.patchJumpHere(pos); err != nil {
				c.addError(err)
			}
		}
		c.loopStack = c.loopStack[:len(c.loopStack)-1]
	}
}

// --- return / throw / try ---

func (c *Compiler) compileReturnStatement(s *ast.ReturnStatement, line int) {
	if s.Argument == nil {
		c.emitNone(bytecode.OpReturnUndefined, line)
		return
	}
	if call, ok := s.Argument.(*ast.CallExpression); ok {
		wasTail := c.inTailPosition
		c.inTailPosition = true
		val := c.compileCallExpression(call)
		c.inTailPosition = wasTail
		c.emit1(bytecode.OpReturn, val, line)
		return
	}
	val := c.compileExpression(s.Argument)
	c.emit1(bytecode.OpReturn, val, line)
}

func (c *Compiler) compileThrowStatement(s *ast.ThrowStatement, line int) {
	val := c.compileExpression(s.Argument)
	c.emit1(bytecode.OpThrow, val, line)
}

// compileTryStatement builds one IsCatch exception-table entry covering
// the try block, and (when a finally clause exists) IsFinally entries
// covering the try block and the catch block, each pointing at a
// handler that runs a second copy of the finally body before
// re-throwing. Duplicating the finally body trades code size for
// avoiding the pending-action/return-detour state machine a single
// shared copy would need (see DESIGN.md).
func (c *Compiler) compileTryStatement(s *ast.TryStatement, line int) {
	tryStart := len(c.proto.Code)
	c.pushBlockScope()
	c.compileHoistedBlock(s.Block.Statements)
	c.popBlockScope()
	tryEnd := len(c.proto.Code)

	catchStart, catchEnd := -1, -1
	afterCatch := -1
	if s.Catch != nil {
		afterCatch = c.emitPlaceholderJump(bytecode.OpJump, 0, line)
		catchStart = len(c.proto.Code)
		c.pushBlockScope()
		catchReg := -1
		if s.Catch.Param != nil {
			reg := c.alloc()
			c.declarePattern(s.Catch.Param, reg, line)
			catchReg = int(reg)
		}
		c.compileHoistedBlock(s.Catch.Body.Statements)
		c.popBlockScope()
		catchEnd = len(c.proto.Code)
		c.proto.ExceptionTable = append(c.proto.ExceptionTable, bytecode.ExceptionHandler{
			TryStart: tryStart, TryEnd: tryEnd, HandlerPC: catchStart,
			CatchReg: catchReg, IsCatch: true, FinallyReg: -1,
		})
	}
	if afterCatch >= 0 {
		if err := c.patchJumpHere(afterCatch); err != nil {
			c.addError(err)
		}
	}

	if s.Finally != nil {
		c.pushBlockScope()
		c.compileHoistedBlock(s.Finally.Statements)
		c.popBlockScope()
		skipRethrow := c.emitPlaceholderJump(bytecode.OpJump, 0, line)

		rethrowPC := len(c.proto.Code)
		excReg := c.alloc()
		c.pushBlockScope()
		c.compileHoistedBlock(s.Finally.Statements)
		c.popBlockScope()
		c.emit1(bytecode.OpThrow, excReg, line)
		if err := c.patchJumpHere(skipRethrow); err != nil {
			c.addError(err)
		}

		c.proto.ExceptionTable = append(c.proto.ExceptionTable, bytecode.ExceptionHandler{
			TryStart: tryStart, TryEnd: tryEnd, HandlerPC: rethrowPC,
			CatchReg: -1, FinallyReg: int(excReg), IsFinally: true,
		})
		if catchStart >= 0 {
			c.proto.ExceptionTable = append(c.proto.ExceptionTable, bytecode.ExceptionHandler{
				TryStart: catchStart, TryEnd: catchEnd, HandlerPC: rethrowPC,
				CatchReg: -1, FinallyReg: int(excReg), IsFinally: true,
			})
		}
	}
}

// --- switch ---

func (c *Compiler) compileSwitchStatement(s *ast.SwitchStatement, line int) {
	disc := c.compileExpression(s.Discriminant)
	c.pushBlockScope()
	sw := &loopContext{IsContinuable: false}
	c.loopStack = append(c.loopStack, sw)

	caseJumps := make([]int, len(s.Cases))
	defaultIdx := -1
	for i, cs := range s.Cases {
		if cs.Test == nil {
			defaultIdx = i
			continue
		}
		testVal := c.compileExpression(cs.Test)
		eq := c.alloc()
		c.emit3(bytecode.OpStrictEqual, eq, disc, testVal, line)
		caseJumps[i] = c.emitPlaceholderJump(bytecode.OpJumpIfFalse, eq, line)
	}
	defaultJump := c.emitPlaceholderJump(bytecode.OpJump, 0, line)

	bodyStarts := make([]int, len(s.Cases))
	for i, cs := range s.Cases {
		bodyStarts[i] = len(c.proto.Code)
		for _, stmt := range cs.Consequent {
			c.compileStatement(stmt)
		}
	}

	for i, cs := range s.Cases {
		if cs.Test == nil {
			continue
		}
		if err := c.patchJumpToTarget(caseJumps[i], bodyStarts[i]); err != nil {
			c.addError(err)
		}
	}
	if defaultIdx >= 0 {
		if err := c.patchJumpToTarget(defaultJump, bodyStarts[defaultIdx]); err != nil {
			c.addError(err)
		}
	} else {
		if err := c.patchJumpHere(defaultJump); err != nil {
			c.addError(err)
		}
	}

	for _, pos := range sw.BreakPlaceholders {
		if err := c.patchJumpHere(pos); err != nil {
			c.addError(err)
		}
	}
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	c.popBlockScope()
}

// --- with ---

func (c *Compiler) compileWithStatement(s *ast.WithStatement, line int) {
	obj := c.compileExpression(s.Object)
	c.emit1(bytecode.OpPushWithObject, obj, line)
	c.compileStatement(s.Body)
	c.emitNone(bytecode.OpPopWithObject, line)
}

// --- modules ---

// compileImportDeclaration binds each imported name to a BindingRef
// resolved at link time by pkg/modules, and records the source in the
// module's static request list so pkg/modules can discover its
// dependency graph without any lexer/parser access to the source text.
func (c *Compiler) compileImportDeclaration(s *ast.ImportDeclaration) {
	c.root.proto.AddModuleRequest(s.Source)
	for _, spec := range s.Specifiers {
		imported := spec.Imported
		if spec.IsDefault {
			imported = "default"
		} else if spec.IsNamespace {
			imported = "*"
		}
		idx := c.proto.AddBindingRef(bytecode.BindingRef{
			Kind: bytecode.BindingModuleImport,
			Name: s.Source + "#" + imported,
			Slot: -1,
		})
		c.table.DefineBindingRef(spec.Local, idx)
	}
}

// compileExportDeclaration evaluates whatever expression or declaration
// an export wraps, binding it under its local name exactly as the
// unwrapped statement would, and records an ExportEntry per exported
// name so pkg/modules can build a module's export list without
// re-parsing its source. `export default expr` has no natural local
// name, so its value is additionally bound under the synthetic global
// name "*default*" via OpInitBinding.
func (c *Compiler) compileExportDeclaration(s *ast.ExportDeclaration) {
	line := s.Line()
	root := c.root

	switch {
	case s.Declaration != nil:
		c.compileStatement(s.Declaration)
		for _, name := range exportedDeclarationNames(s.Declaration) {
			root.proto.AddExport(bytecode.ExportEntry{LocalName: name, ExportName: name, ModuleRequest: -1})
		}

	case s.Default != nil:
		reg := c.compileExpression(s.Default)
		idx := c.proto.AddBindingRef(bytecode.BindingRef{Kind: bytecode.BindingGlobal, Name: "*default*", Slot: -1})
		c.emitU16Reg(bytecode.OpInitBinding, idx, reg, line)
		root.proto.AddExport(bytecode.ExportEntry{LocalName: "*default*", ExportName: "default", ModuleRequest: -1})

	case s.IsStarExport:
		reqIdx := root.proto.AddModuleRequest(s.Source)
		root.proto.AddExport(bytecode.ExportEntry{ModuleRequest: reqIdx, IsStar: true})

	case s.Source != "":
		reqIdx := root.proto.AddModuleRequest(s.Source)
		for _, spec := range s.Specifiers {
			root.proto.AddExport(bytecode.ExportEntry{LocalName: spec.Local, ExportName: spec.Exported, ModuleRequest: reqIdx})
		}

	default:
		for _, spec := range s.Specifiers {
			root.proto.AddExport(bytecode.ExportEntry{LocalName: spec.Local, ExportName: spec.Exported, ModuleRequest: -1})
		}
	}
}

// exportedDeclarationNames lists the binding names `export <decl>`
// introduces. Declarator targets beyond a bare identifier (destructuring
// patterns) are skipped: a rare-enough export shape that pkg/modules
// falling back to "not exported" for it is an acceptable simplification
// for now (see DESIGN.md).
func exportedDeclarationNames(decl ast.Statement) []string {
	switch d := decl.(type) {
	case *ast.FunctionLiteral:
		return []string{d.Name}
	case *ast.ClassLiteral:
		return []string{d.Name}
	case *ast.VariableDeclaration:
		var names []string
		for _, decl := range d.Declarators {
			if id, ok := decl.Target.(*ast.Identifier); ok {
				names = append(names, id.Name)
			}
		}
		return names
	default:
		return nil
	}
}
