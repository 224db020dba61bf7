package preflight

import (
	"context"
	"strings"

	"shootsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable checks. Input and output roots are
// optional; when empty the corresponding checks are skipped so the doctor
// command works without a target tree.
func RunAll(ctx context.Context, cfg *config.Config, inputRoot, outputRoot string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if strings.TrimSpace(inputRoot) != "" {
		results = append(results, CheckReadableTree("Input root", inputRoot))
	}
	if strings.TrimSpace(outputRoot) != "" {
		results = append(results, CheckWritableTarget("Output root", outputRoot))
	}

	results = append(results,
		CheckWritableTarget("Log directory", cfg.Paths.LogDir),
		CheckWritableTarget("State directory", cfg.Paths.StateDir),
	)

	if cfg.History.Enabled {
		results = append(results, CheckHistory(cfg))
	}
	if cfg.Geocode.Enabled {
		results = append(results, CheckGeocoder(ctx, cfg))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
