package main

import (
	"github.com/spf13/cobra"

	"github.com/techdivision/import-app-simple/internal/importrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var serial string
	var singleTransaction bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one import",
		Long: "Run the configured modules as one import. Only one import may run per lock store;\n" +
			"a second invocation exits with status 1 while the first is still running.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := importrun.Run(cmd.Context(), cfg, importrun.Options{
				Serial:            serial,
				SingleTransaction: singleTransaction,
				LogLevel:          logLevel,
			})
			if err != nil {
				return err
			}
			if result.ExitCode != 0 {
				return &exitError{code: result.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serial, "serial", "", "Serial identifying this run (generated when empty)")
	cmd.Flags().BoolVar(&singleTransaction, "single-transaction", false, "Wrap all module work in one database transaction")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
