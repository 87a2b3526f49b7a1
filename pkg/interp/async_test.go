package interp_test

import (
	"testing"

	"esrt/pkg/ast"
	"esrt/pkg/interp"
	"github.com/stretchr/testify/require"
)

// asyncProgram builds: async function go() { var a = await 41; return a + 1; }
// return go();
func asyncProgram() *ast.Program {
	fn := &ast.FunctionLiteral{
		Name:    "go",
		IsAsync: true,
		Body: block(
			&ast.VariableDeclaration{
				Kind: ast.DeclLet,
				Declarators: []ast.Declarator{{
					Target: id("a"),
					Init:   &ast.AwaitExpression{Argument: num(41)},
				}},
			},
			&ast.ReturnStatement{
				Argument: &ast.BinaryExpression{Operator: "+", Left: id("a"), Right: num(1)},
			},
		),
	}
	call := &ast.CallExpression{Callee: id("go"), Args: nil}
	return &ast.Program{Statements: []ast.Statement{fn, &ast.ReturnStatement{Argument: call}}}
}

// TestAsyncFunctionReturnsPendingPromiseThenSettles confirms calling an
// async function returns its backing promise immediately, and that
// draining the microtask queue (standing in for awaiting a non-promise
// value, coerced into one synchronously) resumes the body to completion.
func TestAsyncFunctionReturnsPendingPromiseThenSettles(t *testing.T) {
	it, v := setupInterp(t, asyncProgram())

	cell, ok := v.HeapCell()
	require.True(t, ok)
	p, ok := cell.(*interp.PromiseObject)
	require.True(t, ok)

	it.DrainMicrotasks()
	require.Equal(t, interp.PromiseFulfilled, p.State)
	require.Equal(t, float64(42), p.Result.AsNumber())
}

// asyncThrowProgram builds: async function go() { throw 7; }
// return go();
func asyncThrowProgram() *ast.Program {
	fn := &ast.FunctionLiteral{
		Name:    "go",
		IsAsync: true,
		Body:    block(&ast.ThrowStatement{Argument: num(7)}),
	}
	call := &ast.CallExpression{Callee: id("go"), Args: nil}
	return &ast.Program{Statements: []ast.Statement{fn, &ast.ReturnStatement{Argument: call}}}
}

// TestAsyncFunctionThrowRejectsPromise confirms an uncaught throw inside
// an async body (before any await) rejects its promise synchronously.
func TestAsyncFunctionThrowRejectsPromise(t *testing.T) {
	_, v := setupInterp(t, asyncThrowProgram())

	cell, ok := v.HeapCell()
	require.True(t, ok)
	p, ok := cell.(*interp.PromiseObject)
	require.True(t, ok)
	require.Equal(t, interp.PromiseRejected, p.State)
	require.Equal(t, float64(7), p.Result.AsNumber())
}
