package interp_test

import (
	"testing"

	"esrt/pkg/ast"
	"esrt/pkg/compiler"
	"esrt/pkg/heap"
	"esrt/pkg/interp"
	"esrt/pkg/object"
	"esrt/pkg/value"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, prog *ast.Program) (value.Value, error) {
	t.Helper()
	proto, err := compiler.Compile(prog)
	require.NoError(t, err)

	h := heap.New(1 << 16)
	realm := object.NewRealm(h)
	it := interp.NewInterp(h, realm)
	v, scriptErr := it.RunProgram(proto)
	if scriptErr != nil {
		return value.Value{}, scriptErr
	}
	return v, nil
}

// id builds a bare `*ast.Identifier` reference.
func id(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(n float64) *ast.NumberLiteral { return &ast.NumberLiteral{Value: n} }

func block(stmts ...ast.Statement) *ast.BlockStatement {
	return &ast.BlockStatement{Statements: stmts}
}

// TestCallIIFEReturnsParameterPlusOne exercises the call family's
// argument-register convention end to end: an immediately invoked
// function literal, one parameter, one add, one return.
func TestCallIIFEReturnsParameterPlusOne(t *testing.T) {
	fn := &ast.FunctionLiteral{
		Params: []ast.Param{{Target: id("x")}},
		Body: block(&ast.ReturnStatement{
			Argument: &ast.BinaryExpression{Operator: "+", Left: id("x"), Right: num(1)},
		}),
	}
	call := &ast.CallExpression{Callee: fn, Args: []ast.Expression{num(41)}}
	prog := &ast.Program{Statements: []ast.Statement{&ast.ReturnStatement{Argument: call}}}

	v, err := run(t, prog)
	require.NoError(t, err)
	require.Equal(t, float64(42), v.AsNumber())
}

// TestNestedCallThrowCaughtByEnclosingTry exercises unwind() walking
// past a fully-popped inner frame to find a handler in an outer one,
// using each enclosing frame's own resumption PC rather than the
// innermost throw site (see DESIGN.md's exception.go entry).
func TestNestedCallThrowCaughtByEnclosingTry(t *testing.T) {
	thrower := &ast.FunctionLiteral{
		Body: block(&ast.ThrowStatement{Argument: num(5)}),
	}
	middle := &ast.FunctionLiteral{
		Body: block(&ast.ReturnStatement{
			Argument: &ast.CallExpression{Callee: thrower, Args: nil},
		}),
	}
	tryStmt := &ast.TryStatement{
		Block: block(&ast.ExpressionStatement{
			Expr: &ast.CallExpression{Callee: middle, Args: nil},
		}),
		Catch: &ast.CatchClause{
			Param: id("e"),
			Body: block(&ast.ReturnStatement{
				Argument: &ast.BinaryExpression{Operator: "+", Left: id("e"), Right: num(1)},
			}),
		},
	}
	prog := &ast.Program{Statements: []ast.Statement{tryStmt}}

	v, err := run(t, prog)
	require.NoError(t, err)
	require.Equal(t, float64(6), v.AsNumber())
}

// TestUncaughtThrowPastOutermostFrameReportsError confirms unwind stops
// at the program's own base frame without popping past it and surfaces
// an error rather than a value.
func TestUncaughtThrowPastOutermostFrameReportsError(t *testing.T) {
	prog := &ast.Program{Statements: []ast.Statement{
		&ast.ThrowStatement{Argument: num(1)},
	}}

	_, err := run(t, prog)
	require.Error(t, err)
}
