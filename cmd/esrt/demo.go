package main

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/bytecode"
	"esrt/pkg/compiler"
)

// This CLI has no lexer/parser to load a script file with (see
// pkg/ast's own package doc comment and spec.md's Non-goals), and the
// bytecode file format spec.md §6 describes is explicitly "not a
// persisted artifact" — there is nothing on disk for `run`/`disasm` to
// read. What they operate on instead is one of a small set of built-in
// demo programs, hand-built the same way pkg/compiler's own tests build
// their fixtures, compiled in-process via compiler.Compile.
var demos = map[string]func() *ast.Program{
	"arith":  demoArith,
	"module": demoModuleEntry,
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	return names
}

func buildDemo(name string) (*bytecode.FunctionProto, error) {
	build, ok := demos[name]
	if !ok {
		return nil, fmt.Errorf("unknown demo %q (available: %v)", name, demoNames())
	}
	proto, err := compiler.Compile(build())
	if err != nil {
		return nil, fmt.Errorf("compiling demo %q: %w", name, err)
	}
	return proto, nil
}

// demoArith: return (2 + 3) * 4;
func demoArith() *ast.Program {
	expr := &ast.BinaryExpression{
		Operator: "*",
		Left: &ast.BinaryExpression{
			Operator: "+",
			Left:     &ast.NumberLiteral{Value: 2},
			Right:    &ast.NumberLiteral{Value: 3},
		},
		Right: &ast.NumberLiteral{Value: 4},
	}
	return &ast.Program{Statements: []ast.Statement{&ast.ReturnStatement{Argument: expr}}}
}

// demoModuleEntry: export const answer = 41 + 1;
func demoModuleEntry() *ast.Program {
	decl := &ast.VariableDeclaration{
		Kind: ast.DeclConst,
		Declarators: []ast.Declarator{{
			Target: &ast.Identifier{Name: "answer"},
			Init: &ast.BinaryExpression{
				Operator: "+",
				Left:     &ast.NumberLiteral{Value: 41},
				Right:    &ast.NumberLiteral{Value: 1},
			},
		}},
	}
	export := &ast.ExportDeclaration{Declaration: decl}
	return &ast.Program{IsModule: true, Statements: []ast.Statement{export}}
}
