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

// setupInterp compiles prog and runs it to completion, returning both
// the live *interp.Interp (so a test can keep driving a returned
// generator/promise) and the program's result value.
func setupInterp(t *testing.T, prog *ast.Program) (*interp.Interp, value.Value) {
	t.Helper()
	proto, err := compiler.Compile(prog)
	require.NoError(t, err)

	h := heap.New(1 << 16)
	realm := object.NewRealm(h)
	it := interp.NewInterp(h, realm)
	v, scriptErr := it.RunProgram(proto)
	require.NoError(t, scriptErr)
	return it, v
}

// genProgram builds: function* gen() { var a = yield 1; return a + 1; }
// return gen();
func genProgram() *ast.Program {
	genFn := &ast.FunctionLiteral{
		Name:        "gen",
		IsGenerator: true,
		Body: block(
			&ast.VariableDeclaration{
				Kind: ast.DeclLet,
				Declarators: []ast.Declarator{{
					Target: id("a"),
					Init:   &ast.YieldExpression{Argument: num(1)},
				}},
			},
			&ast.ReturnStatement{
				Argument: &ast.BinaryExpression{Operator: "+", Left: id("a"), Right: num(1)},
			},
		),
	}
	call := &ast.CallExpression{Callee: id("gen"), Args: nil}
	return &ast.Program{Statements: []ast.Statement{genFn, &ast.ReturnStatement{Argument: call}}}
}

// TestGeneratorCallProducesUnstartedIterator confirms calling a generator
// function never runs its body: the returned value is a *GeneratorObject
// sitting at GeneratorSuspendedStart.
func TestGeneratorCallProducesUnstartedIterator(t *testing.T) {
	_, v := setupInterp(t, genProgram())

	cell, ok := v.HeapCell()
	require.True(t, ok)
	gen, ok := cell.(*interp.GeneratorObject)
	require.True(t, ok)
	require.Equal(t, interp.GeneratorSuspendedStart, gen.State)
}

// TestGeneratorYieldThenResumeCompletes drives a generator through one
// yield and one resume, exercising createGenerator/doYield/ResumeGenerator
// end to end.
func TestGeneratorYieldThenResumeCompletes(t *testing.T) {
	it, v := setupInterp(t, genProgram())
	cell, _ := v.HeapCell()
	gen := cell.(*interp.GeneratorObject)

	yielded, done, err := it.ResumeGenerator(gen, interp.ResumeNext, value.Undefined)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, float64(1), yielded.AsNumber())
	require.Equal(t, interp.GeneratorSuspendedYield, gen.State)

	result, done, err := it.ResumeGenerator(gen, interp.ResumeNext, value.Number(10))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, float64(11), result.AsNumber())
	require.Equal(t, interp.GeneratorCompleted, gen.State)
}

// TestGeneratorThrowIntoSuspendedBodyUncaught confirms .throw() on a
// generator paused at a yield, with no enclosing catch, completes the
// generator and reports the thrown value through the normal error path.
func TestGeneratorThrowIntoSuspendedBodyUncaught(t *testing.T) {
	it, v := setupInterp(t, genProgram())
	cell, _ := v.HeapCell()
	gen := cell.(*interp.GeneratorObject)

	_, _, err := it.ResumeGenerator(gen, interp.ResumeNext, value.Undefined)
	require.NoError(t, err)

	_, done, err := it.ResumeGenerator(gen, interp.ResumeThrow, value.Number(99))
	require.Error(t, err)
	require.True(t, done)
	require.Equal(t, interp.GeneratorCompleted, gen.State)
}

// TestGeneratorResumeAfterCompletionIsNoop confirms resuming an already
// completed generator never re-enters run() and just echoes sentValue.
func TestGeneratorResumeAfterCompletionIsNoop(t *testing.T) {
	it, v := setupInterp(t, genProgram())
	cell, _ := v.HeapCell()
	gen := cell.(*interp.GeneratorObject)

	_, _, _ = it.ResumeGenerator(gen, interp.ResumeNext, value.Undefined)
	_, _, _ = it.ResumeGenerator(gen, interp.ResumeNext, value.Number(10))
	require.Equal(t, interp.GeneratorCompleted, gen.State)

	v2, done, err := it.ResumeGenerator(gen, interp.ResumeNext, value.Number(42))
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, float64(42), v2.AsNumber())
}
