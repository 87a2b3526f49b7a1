// Package compiler lowers an ast.Program into a bytecode.FunctionProto:
// virtual register allocation (capped at 256 per function), scope and
// binding resolution, and one-byte-opcode emission for every construct
// pkg/ast defines.
package compiler

import (
	"fmt"

	"esrt/pkg/ast"
	"esrt/pkg/bytecode"
	"esrt/pkg/value"
)

// freeSymbol is one entry pending upvalue capture: a name this function
// body referenced that isn't bound locally, recorded so the enclosing
// closure instruction knows what to capture.
type freeSymbol struct {
	Name     string
	Register Register // register in the *enclosing* function, if resolved there
}

// loopContext tracks one active loop's (or switch's, or plain labeled
// block's) break/continue patch targets. IsContinuable is false for a
// switch or a labeled non-loop block: those accept `break label` but a
// bare `continue` must skip past them to the nearest real loop.
type loopContext struct {
	Label                string
	ContinueTargetPos    int
	IsContinuable        bool
	BreakPlaceholders    []int
	ContinuePlaceholders []int
}

// finallyContext tracks one active try-finally, so break/continue/return
// inside the try or catch block can detour through the finally first.
type finallyContext struct {
	FinallyPos              int
	LoopStackDepthAtEntry   int
}

// Compiler lowers one function body (or the top-level program, treated
// as an implicit function) into a *bytecode.FunctionProto.
type Compiler struct {
	proto     *bytecode.FunctionProto
	regAlloc  *RegisterAllocator
	table     *SymbolTable
	enclosing *Compiler
	root      *Compiler // the outermost Compiler, owner of globalNames

	freeSymbols []freeSymbol

	loopStack    []*loopContext
	finallyStack []*finallyContext

	line int

	globalNames map[string]uint16 // root-compiler only

	isGenerator bool
	isAsync     bool

	inTailPosition bool

	errs []error
}

// NewCompiler creates the top-level Compiler for a Program.
func NewCompiler() *Compiler {
	c := &Compiler{
		proto:       bytecode.NewFunctionProto("<main>", 0),
		regAlloc:    NewRegisterAllocator(),
		table:       NewSymbolTable(),
		globalNames: make(map[string]uint16),
	}
	c.table.FunctionScope = true
	c.root = c
	return c
}

func newChildCompiler(enclosing *Compiler, name string, paramCount int) *Compiler {
	c := &Compiler{
		proto:     bytecode.NewFunctionProto(name, paramCount),
		regAlloc:  NewRegisterAllocator(),
		table:     NewEnclosedSymbolTable(enclosing.table),
		enclosing: enclosing,
		root:      enclosing.root,
	}
	c.table.FunctionScope = true
	return c
}

// Compile lowers prog into its FunctionProto. Returns the first error
// encountered, if any; partial bytecode may still have been emitted.
func Compile(prog *ast.Program) (*bytecode.FunctionProto, error) {
	c := NewCompiler()
	c.hoistVarDeclarations(prog.Statements)
	c.compileHoistedBlock(prog.Statements)
	c.emitNone(bytecode.OpReturnUndefined, c.line)
	c.proto.NumRegs = c.regAlloc.MaxRegs()
	if len(c.errs) > 0 {
		return c.proto, c.errs[0]
	}
	return c.proto, nil
}

func (c *Compiler) addError(err error) {
	c.errs = append(c.errs, err)
}

func (c *Compiler) alloc() Register {
	r, err := c.regAlloc.Alloc()
	if err != nil {
		c.addError(err)
		return 0
	}
	return r
}

// --- Scopes ---

func (c *Compiler) pushBlockScope() {
	c.table = NewEnclosedSymbolTable(c.table)
}

func (c *Compiler) popBlockScope() {
	c.table = c.table.Outer
}

// --- Constants and globals ---

func (c *Compiler) addConstant(v value.Value) uint16 {
	return c.proto.AddConstant(v)
}

func (c *Compiler) globalIndex(name string) uint16 {
	root := c.root
	if idx, ok := root.globalNames[name]; ok {
		return idx
	}
	idx := uint16(len(root.globalNames))
	root.globalNames[name] = idx
	return idx
}

// --- Variable resolution ---

// loadVariable emits whatever instruction sequence reads name's current
// value into a fresh register, and returns that register. Locals resolve
// to a direct register (in this function or an enclosing block of the
// same function); names bound in an outer function become upvalues;
// anything unresolved falls back to a dynamic global/binding lookup.
func (c *Compiler) loadVariable(name string, line int) Register {
	if sym, table, found := c.table.Resolve(name); found {
		if sym.Kind == symBindingRef {
			dest := c.alloc()
			c.emitRegU16(bytecode.OpGetBinding, dest, sym.BindingIdx, line)
			return dest
		}
		if !c.crossesFunctionBoundary(table) {
			return sym.Register
		}
		upIdx := c.resolveUpvalue(name)
		dest := c.alloc()
		c.emit2(bytecode.OpLoadFree, dest, Register(upIdx), line)
		return dest
	}

	// Unresolved: dynamic global lookup via the binding-reference table.
	idx := c.proto.AddBindingRef(bytecode.BindingRef{Kind: bytecode.BindingGlobal, Name: name, Slot: -1})
	dest := c.alloc()
	c.emitRegU16(bytecode.OpGetBinding, dest, idx, line)
	return dest
}

// crossesFunctionBoundary reports whether definingTable belongs to an
// enclosing function rather than the current one.
func (c *Compiler) crossesFunctionBoundary(definingTable *SymbolTable) bool {
	for t := c.table; t != nil; t = t.Outer {
		if t == definingTable {
			return false
		}
		if t.FunctionScope {
			return true
		}
	}
	return true
}

// resolveUpvalue finds or creates an upvalue slot in this function for
// name, recursing into the enclosing Compiler when name is itself free
// there too.
func (c *Compiler) resolveUpvalue(name string) int {
	for i, fs := range c.freeSymbols {
		if fs.Name == name {
			return i
		}
	}
	if c.enclosing == nil {
		panic("compiler: resolveUpvalue called with no enclosing compiler for " + name)
	}
	sym, table, found := c.enclosing.table.Resolve(name)
	if !found {
		panic("compiler: free variable " + name + " not found in enclosing scope")
	}
	var ref bytecode.UpvalueRef
	if !c.enclosing.crossesFunctionBoundary(table) {
		ref = bytecode.UpvalueRef{FromParentLocal: true, Index: int(sym.Register)}
	} else {
		parentIdx := c.enclosing.resolveUpvalue(name)
		ref = bytecode.UpvalueRef{FromParentLocal: false, Index: parentIdx}
	}
	idx := c.proto.AddUpvalue(ref)
	c.freeSymbols = append(c.freeSymbols, freeSymbol{Name: name, Register: sym.Register})
	return idx
}

// storeVariable emits whatever instruction sequence writes src into
// name's binding.
func (c *Compiler) storeVariable(name string, src Register, line int) {
	if sym, table, found := c.table.Resolve(name); found {
		if sym.Kind == symBindingRef {
			c.emitU16Reg(bytecode.OpSetBinding, sym.BindingIdx, src, line)
			return
		}
		if !c.crossesFunctionBoundary(table) {
			c.emitMove(sym.Register, src, line)
			return
		}
		upIdx := c.resolveUpvalue(name)
		c.emit2(bytecode.OpSetUpvalue, Register(upIdx), src, line)
		return
	}
	idx := c.proto.AddBindingRef(bytecode.BindingRef{Kind: bytecode.BindingGlobal, Name: name, Slot: -1})
	c.emitU16Reg(bytecode.OpSetBinding, idx, src, line)
}

func (c *Compiler) String() string {
	return fmt.Sprintf("Compiler(%s)", c.proto.Name)
}
