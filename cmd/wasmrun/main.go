// Command wasmrun executes a WebAssembly module to completion, or dumps its
// section listing. Exit code 0 means the entry function completed; any
// trap, assert failure or malformed module exits non-zero.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-interp/dump"
	"github.com/wippyai/wasm-interp/engine"
	"github.com/wippyai/wasm-interp/host"
	"github.com/wippyai/wasm-interp/wasm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file        string
		dumpListing bool
		interactive bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:           "wasmrun",
		Short:         "Execute or inspect a WebAssembly module",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			m, err := wasm.ParseModuleValidate(data)
			if err != nil {
				return err
			}

			if dumpListing {
				dump.Dump(cmd.OutOrStdout(), m)
				return nil
			}

			if interactive {
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					return fmt.Errorf("interactive mode requires a terminal")
				}
				return runInteractive(file, m)
			}

			newLogger := zap.NewProduction
			if verbose {
				newLogger = zap.NewDevelopment
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			hosts := host.DefaultRegistry(host.WithLogger(logger))
			vm, err := engine.New(m, engine.WithLogger(logger), engine.WithHostRegistry(hosts))
			if err != nil {
				return err
			}
			return vm.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the module to execute")
	cmd.Flags().BoolVarP(&dumpListing, "dump", "d", false, "dump a textual section listing instead of executing")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "inspect the module interactively")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
