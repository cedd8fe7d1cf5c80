package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animrig/internal/config"
	"animrig/internal/preflight"
)

func newCheckCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify external tools and directories the pipeline needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				state := "OK"
				if !r.Passed {
					state = "MISSING"
					if r.Optional {
						state = "MISSING (optional)"
					}
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows))

			if failed := preflight.RequiredFailures(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	return cmd
}
