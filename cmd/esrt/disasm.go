package main

import (
	"fmt"

	"esrt/pkg/bytecode"
	"github.com/spf13/cobra"
)

func newDisasmCmd() *cobra.Command {
	var dumpCode, dumpImport, dumpExport, dumpPropRef bool

	cmd := &cobra.Command{
		Use:   "disasm <demo>",
		Short: "Disassemble a built-in demo program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proto, err := buildDemo(args[0])
			if err != nil {
				return err
			}

			// With no --dump-* flag given, print everything: the
			// disassembly text (code, exception table, nested functions)
			// followed by the import, export and property-ref tables,
			// which the disassembly does not include; each flag alone
			// narrows to just that slice.
			any := dumpCode || dumpImport || dumpExport || dumpPropRef
			if !any || dumpCode {
				fmt.Fprintln(cmd.OutOrStdout(), bytecode.Disassemble(proto))
			}
			if !any || dumpImport {
				for _, req := range proto.ModuleRequests {
					fmt.Fprintf(cmd.OutOrStdout(), "import %s\n", req)
				}
			}
			if !any || dumpExport {
				for _, e := range proto.Exports {
					if e.IsStar {
						fmt.Fprintf(cmd.OutOrStdout(), "export * from request[%d]\n", e.ModuleRequest)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "export %s as %s\n", e.LocalName, e.ExportName)
				}
			}
			if !any || dumpPropRef {
				for i, ref := range proto.PropertyRefs {
					fmt.Fprintf(cmd.OutOrStdout(), "propref[%d] name=#%d\n", i, ref.NameIdx)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dumpCode, "dump-code", false, "print the instruction stream")
	cmd.Flags().BoolVar(&dumpImport, "dump-import", false, "print the module request table")
	cmd.Flags().BoolVar(&dumpExport, "dump-export", false, "print the export table")
	cmd.Flags().BoolVar(&dumpPropRef, "dump-propref", false, "print the property-reference slot table")
	return cmd
}
