package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shootsort/internal/preflight"
	"shootsort/internal/settings"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [source]",
		Short: "Check that the environment is ready for a run",
		Long: `Doctor verifies the pieces a run depends on: source and output
access, log and state directories, the history database, and the
geocoding service when enabled. Without a source argument it checks the
roots remembered from the previous run, if any.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var inputRoot, outputRoot string
			if len(args) > 0 {
				inputRoot = args[0]
			} else {
				remembered, err := settings.Load(cfg.SettingsPath())
				if err != nil {
					return err
				}
				inputRoot = remembered.LastInputRoot
				outputRoot = remembered.LastOutputRoot
			}
			if inputRoot != "" && outputRoot == "" {
				outputRoot = filepath.Join(inputRoot, groupDirName(cfg))
			}

			results := preflight.RunAll(cmd.Context(), cfg, inputRoot, outputRoot)

			rows := make([][]string, 0, len(results))
			failed := 0
			for _, result := range results {
				status := "ok"
				if !result.Passed {
					status = "failed"
					failed++
				}
				rows = append(rows, []string{result.Name, status, result.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows))

			if failed > 0 {
				names := make([]string, 0, failed)
				for _, result := range results {
					if !result.Passed {
						names = append(names, result.Name)
					}
				}
				return fmt.Errorf("%d checks failed: %s", failed, strings.Join(names, ", "))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
	return cmd
}
