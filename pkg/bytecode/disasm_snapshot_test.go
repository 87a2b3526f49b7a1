package bytecode_test

import (
	"testing"

	"esrt/pkg/bytecode"
	"github.com/gkampitakis/go-snaps/snaps"
)

// TestDisassembleModuleSnapshot snapshots the disassembly of a hand-built
// module-style proto that reads an imported binding, so a change to
// opcode formatting shows up as a diff here instead of silently
// drifting. Disassemble does not print the module-request and export
// tables set up here, so they are not part of the snapshot.
func TestDisassembleModuleSnapshot(t *testing.T) {
	p := bytecode.NewFunctionProto("main", 0)
	p.AddModuleRequest("./util.js")
	idx := p.AddBindingRef(bytecode.BindingRef{
		Kind: bytecode.BindingModuleImport,
		Name: "./util.js#helper",
		Slot: -1,
	})
	p.WriteOpCode(bytecode.OpGetBinding, 1)
	p.WriteByte(0)
	p.WriteUint16(idx)
	p.WriteOpCode(bytecode.OpReturn, 1)
	p.WriteByte(0)
	p.AddExport(bytecode.ExportEntry{LocalName: "main", ExportName: "default", ModuleRequest: -1})

	snaps.MatchSnapshot(t, bytecode.Disassemble(p))
}
