package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/techdivision/import-app-simple/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check the environment an import depends on",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			printer := newStatusPrinter(cmd.OutOrStdout())
			results := preflight.RunAll(cmd.Context(), cfg)
			printer.header("Preflight")
			for _, result := range results {
				state := checkPassed
				switch {
				case !result.Passed:
					state = checkFailed
				case strings.EqualFold(result.Detail, "Disabled"):
					state = checkInfo
				}
				printer.line(result.Name, state, result.Detail)
			}

			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
