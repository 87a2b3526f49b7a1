package ast_test

import (
	"testing"

	"esrt/pkg/ast"
	"github.com/stretchr/testify/require"
)

func TestIdentifierSatisfiesPattern(t *testing.T) {
	var p ast.Pattern = &ast.Identifier{Pos: ast.Pos{L: 3}, Name: "x"}
	require.Equal(t, 3, p.Line())
	require.Equal(t, "x", p.String())
}

func TestArrayPatternHoldsRestAndElisions(t *testing.T) {
	pat := &ast.ArrayPattern{
		Elements: []ast.Pattern{&ast.Identifier{Name: "a"}, nil, &ast.Identifier{Name: "c"}},
		Rest:     &ast.Identifier{Name: "rest"},
	}
	require.Len(t, pat.Elements, 3)
	require.Nil(t, pat.Elements[1])
	require.NotNil(t, pat.Rest)
}

func TestTemplateLiteralQuasiExpressionInterleaving(t *testing.T) {
	lit := &ast.TemplateLiteral{
		Quasis:      []string{"a", "b", "c"},
		Expressions: []ast.Expression{&ast.NumberLiteral{Value: 1}, &ast.NumberLiteral{Value: 2}},
	}
	require.Len(t, lit.Quasis, len(lit.Expressions)+1)
}

func TestForStatementInitAcceptsDeclarationOrExpression(t *testing.T) {
	decl := &ast.ForStatement{Init: &ast.VariableDeclaration{Kind: ast.DeclLet}}
	expr := &ast.ForStatement{Init: &ast.Identifier{Name: "i"}}
	_, declIsDecl := decl.Init.(*ast.VariableDeclaration)
	_, exprIsExpr := expr.Init.(ast.Expression)
	require.True(t, declIsDecl)
	require.True(t, exprIsExpr)
}

func TestClassMemberKindDistinguishesFieldsFromMethods(t *testing.T) {
	field := ast.ClassMember{Kind: ast.ClassField, Key: &ast.Identifier{Name: "x"}}
	method := ast.ClassMember{Kind: ast.ClassMethod, Key: &ast.Identifier{Name: "run"}}
	require.NotEqual(t, field.Kind, method.Kind)
}
