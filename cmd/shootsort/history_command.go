package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shootsort/internal/runlog"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past runs and the groups they created",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runlog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return printRunDetail(cmd, store, args[0])
			}
			return printRecentRuns(cmd, store, limitFlag)
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func printRecentRuns(cmd *cobra.Command, store *runlog.Store, limit int) error {
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := string(run.Status)
		if run.DryRun {
			status += " (dry)"
		}
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(historyTimeLayout),
			status,
			run.InputRoot,
			strconv.Itoa(run.GroupsCreated),
			strconv.Itoa(run.ImagesMoved),
			strconv.Itoa(run.SinglesLeft),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Started", "Status", "Source", "Groups", "Moved", "Singles"},
		rows,
		4, 5, 6,
	))
	return nil
}

func printRunDetail(cmd *cobra.Command, store *runlog.Store, runID string) error {
	run, err := store.RunByID(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	out := cmd.OutOrStdout()
	const labelWidth = 10
	writeField := func(label, value string) {
		fmt.Fprintf(out, "  %-*s %s\n", labelWidth, label+":", value)
	}

	fmt.Fprintf(out, "Run %s\n", run.ID)
	writeField("Source", run.InputRoot)
	writeField("Output", run.OutputRoot)
	status := string(run.Status)
	if run.DryRun {
		status += " (dry run)"
	}
	writeField("Status", status)
	writeField("Started", run.StartedAt.Local().Format(historyTimeLayout))
	if run.FinishedAt != nil {
		writeField("Finished", run.FinishedAt.Local().Format(historyTimeLayout))
	}
	writeField("Options", fmt.Sprintf("threshold %.3gs, min group %d, recurse %t",
		run.ThresholdSeconds, run.MinGroupSize, run.Recurse))
	writeField("Images", fmt.Sprintf("%d found, %d moved, %d singles, %d skipped",
		run.ImagesFound, run.ImagesMoved, run.SinglesLeft, run.Skipped))
	if run.Failures > 0 {
		writeField("Failures", strconv.Itoa(run.Failures))
	}
	if run.ErrorMessage != "" {
		writeField("Error", run.ErrorMessage)
	}

	groups, err := store.GroupsForRun(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(out, "No groups recorded for this run")
		return nil
	}

	rows := make([][]string, 0, len(groups))
	for _, group := range groups {
		outcome := "ok"
		if group.ErrorMessage != "" {
			outcome = group.ErrorMessage
		}
		rows = append(rows, []string{
			group.Name,
			strconv.Itoa(group.Size),
			strconv.Itoa(group.Moved),
			group.EndedAt.Sub(group.StartedAt).Round(time.Second).String(),
			outcome,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "Images", "Moved", "Span", "Outcome"},
		rows,
		1, 2,
	))
	return nil
}
