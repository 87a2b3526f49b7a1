package main

import (
	"fmt"
	"os"

	"esrt/pkg/host"
	"github.com/spf13/cobra"
)

// validModes lists the values the --mode flag accepts, mirroring spec.md
// §6's CLI mode option (script/module/eval);
// this engine's two demo programs stand in for the two non-eval modes
// since there's no parser to feed an `eval`-style string through.
var validModes = map[string]bool{"script": true, "module": true}

func newRunCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "run <demo>",
		Short: "Run a built-in demo program to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validModes[mode] {
				return fmt.Errorf("unknown --mode %q (want script or module)", mode)
			}
			logf := logLevelPrinter(cmd)

			cfg := host.DefaultConfig()
			rt := host.New(cfg)
			defer rt.Close()

			if mode == "module" {
				newLoaderFor(rt, newDemoResolver())
				v, err := rt.RunModule(args[0])
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				rt.Drain()
				logf("module %q evaluated", args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", v.Type())
				return nil
			}

			proto, err := buildDemo(args[0])
			if err != nil {
				return err
			}
			v, scriptErr := rt.RunScript(proto)
			if scriptErr != nil {
				fmt.Fprintln(os.Stderr, scriptErr.Error())
				os.Exit(1)
			}
			rt.Drain()
			logf("script %q returned a %s", args[0], v.Type())
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", v.Type())
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "script", "script or module")
	return cmd
}

// logLevelPrinter returns a logger gated by the root command's
// --log-level flag, the engine's entire "structured logging" surface
// (see DESIGN.md: the teacher has no logging library, writing
// diagnostics straight to os.Stderr via fmt, which this mirrors).
func logLevelPrinter(cmd *cobra.Command) func(format string, args ...any) {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		if root := cmd.Root(); root != nil {
			level, _ = root.PersistentFlags().GetString("log-level")
		}
	}
	if level != "info" && level != "debug" {
		return func(string, ...any) {}
	}
	return func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "esrt: "+format+"\n", args...)
	}
}
