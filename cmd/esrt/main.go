// Command esrt is the host-embedding CLI surface spec.md §6 describes as
// an "out-of-scope external collaborator" of the engine proper: a thin
// cobra front end over pkg/host.Runtime, exercising the same lifecycle
// (New, SetModuleResolver, RunScript/RunModule, Drain, Close) any other
// embedder would drive.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "esrt",
		Short: "esrt: an embeddable ECMAScript bytecode interpreter",
	}
	root.PersistentFlags().String("log-level", "", "silent, info, or debug")
	root.AddCommand(newRunCmd())
	root.AddCommand(newDisasmCmd())
	return root
}
