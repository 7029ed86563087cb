package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/techdivision/import-app-simple/internal/pidfile"
)

type lockStoreView struct {
	Path    string   `json:"path"`
	Locked  bool     `json:"locked"`
	Serials []string `json:"serials"`
}

func newPidCommand(ctx *commandContext) *cobra.Command {
	pidCmd := &cobra.Command{
		Use:   "pid",
		Short: "Inspect and clean the lock store",
	}
	pidCmd.AddCommand(newPidShowCommand(ctx))
	pidCmd.AddCommand(newPidClearCommand(ctx))
	return pidCmd
}

func newPidShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the serials recorded in the lock store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.Paths.PidFile
			locked, err := pidfile.Locked(path)
			if err != nil {
				return err
			}
			serials, err := pidfile.ReadSerials(path)
			if err != nil {
				return err
			}
			view := lockStoreView{Path: path, Locked: locked, Serials: serials}
			if view.Serials == nil {
				view.Serials = []string{}
			}
			if asJSON {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lock store: %s\n", path)
			fmt.Fprintf(out, "Locked:     %s\n", yesNo(locked))
			if len(serials) == 0 {
				fmt.Fprintln(out, "No serials recorded")
				return nil
			}
			rows := make([][]string, 0, len(serials))
			for i, serial := range serials {
				rows = append(rows, []string{strconv.Itoa(i + 1), serial})
			}
			fmt.Fprintln(out, renderTable([]column{{title: "#", numeric: true}, {title: "Serial"}}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newPidClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete a stale lock store",
		Long:  "Delete the lock store left behind by a crashed import. Refuses while an import holds the lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.Paths.PidFile
			if err := pidfile.Remove(path); err != nil {
				if errors.Is(err, pidfile.ErrAlreadyRunning) {
					return fmt.Errorf("lock store %s is held by a running import", path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared lock store %s\n", path)
			return nil
		},
	}
}
