package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"shootsort/internal/engine"
)

// printRunSummary renders the per-group table, per-file failures, and
// the closing one-line account of a run.
func printRunSummary(w io.Writer, s engine.Summary) {
	if len(s.Groups) > 0 {
		fmt.Fprintln(w, renderTable(
			[]string{"Group", "Images", "Moved", "Span", "Outcome"},
			groupRows(s),
			1, 2,
		))
	}
	for _, g := range s.Groups {
		for _, f := range g.Failed {
			fmt.Fprintf(w, "failed to move %s: %v\n", f.Path, f.Err)
		}
	}
	if s.Skipped > 0 {
		fmt.Fprintf(w, "%d unreadable files skipped\n", s.Skipped)
	}
	if s.DryRun {
		fmt.Fprintf(w, "dry run: %d groups planned covering %d images, %d singles left\n",
			s.GroupsCreated, s.PlannedImages(), s.SinglesLeft)
		return
	}
	fmt.Fprintln(w, s.String())
}

func groupRows(s engine.Summary) [][]string {
	rows := make([][]string, 0, len(s.Groups))
	for _, g := range s.Groups {
		outcome := "ok"
		switch {
		case g.Err != nil:
			outcome = g.Err.Error()
		case s.DryRun:
			outcome = "planned"
		case len(g.Failed) > 0:
			outcome = fmt.Sprintf("%d moves failed", len(g.Failed))
		}
		moved := strconv.Itoa(g.Moved)
		if s.DryRun {
			moved = "-"
		}
		rows = append(rows, []string{
			g.Name.String(),
			strconv.Itoa(g.Size),
			moved,
			g.End.Sub(g.Start).Round(time.Second).String(),
			outcome,
		})
	}
	return rows
}
