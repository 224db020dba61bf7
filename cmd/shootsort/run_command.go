package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shootsort/internal/config"
	"shootsort/internal/engine"
	"shootsort/internal/geocode"
	"shootsort/internal/logging"
	"shootsort/internal/place"
	"shootsort/internal/runlog"
	"shootsort/internal/settings"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag    string
		recurseFlag   bool
		thresholdFlag float64
		minGroupFlag  int
		dryRunFlag    bool
		offlineFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "run [source]",
		Short: "Group a shoot's images into session folders",
		Long: `Run scans the source for images, clusters them by capture time, and
moves every session of at least the minimum size into a named folder
under the output root. Images that never reach a large enough session
stay where they are. Omitting the source reuses the one from the
previous run.

SIGUSR1 pauses or resumes a run in flight; SIGINT and SIGTERM cancel
it between files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			source, err := resolveSource(cfg, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			opts := engine.Options{
				InputRoot:        source,
				OutputRoot:       strings.TrimSpace(outputFlag),
				Recurse:          cfg.Grouping.Recurse,
				ThresholdSeconds: cfg.Grouping.ThresholdSeconds,
				MinGroupSize:     cfg.Grouping.MinGroupSize,
				DryRun:           dryRunFlag,
				Offline:          offlineFlag,
			}
			applyGroupingFlags(cmd, &opts, recurseFlag, thresholdFlag, minGroupFlag)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			interactive := isTerminalWriter(cmd.ErrOrStderr())
			logger, err := newRunLogger(cfg, interactive)
			if err != nil {
				return err
			}

			deps, cleanup := newEngineDeps(cfg, logger, offlineFlag, newRunReporter(cmd.ErrOrStderr()))
			defer cleanup()

			runner := engine.NewRunner(cfg, logger, deps)
			stopPause := notifyPauseToggle(runner.Gate(), logger)
			defer stopPause()

			summary, runErr := runner.Run(runCtx, opts)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}

			printRunSummary(cmd.OutOrStdout(), summary)
			if runErr != nil {
				return runErr
			}

			if !opts.DryRun {
				saved := settings.Settings{
					LastInputRoot:  summary.InputRoot,
					LastOutputRoot: summary.OutputRoot,
					UpdatedAt:      time.Now().UTC(),
				}
				if err := settings.Save(cfg.SettingsPath(), saved); err != nil {
					logger.Warn("remember run roots", logging.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Destination root for session folders (default: group folder inside the source)")
	cmd.Flags().BoolVarP(&recurseFlag, "recurse", "r", false, "Descend into subdirectories of the source")
	cmd.Flags().Float64VarP(&thresholdFlag, "threshold", "t", 0, "Maximum seconds between captures in one session")
	cmd.Flags().IntVar(&minGroupFlag, "min-group-size", 0, "Smallest session that becomes a folder")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Report what would move without touching anything")
	cmd.Flags().BoolVar(&offlineFlag, "offline", false, "Skip reverse geocoding for this run")

	return cmd
}

// resolveSource returns the source argument, falling back to the root
// remembered from the previous successful run.
func resolveSource(cfg *config.Config, args []string, errOut io.Writer) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	remembered, err := settings.Load(cfg.SettingsPath())
	if err != nil {
		return "", err
	}
	if remembered.LastInputRoot == "" {
		return "", errors.New("no source given and no previous run to reuse; pass a folder to process")
	}
	fmt.Fprintf(errOut, "reusing last source %s\n", remembered.LastInputRoot)
	return remembered.LastInputRoot, nil
}

// applyGroupingFlags overlays explicitly-set flags on the configured
// grouping defaults.
func applyGroupingFlags(cmd *cobra.Command, opts *engine.Options, recurse bool, threshold float64, minGroup int) {
	if cmd.Flags().Changed("recurse") {
		opts.Recurse = recurse
	}
	if cmd.Flags().Changed("threshold") {
		opts.ThresholdSeconds = threshold
	}
	if cmd.Flags().Changed("min-group-size") {
		opts.MinGroupSize = minGroup
	}
}

// newEngineDeps wires the optional collaborators a run needs. The
// returned cleanup must not run until the last engine call has returned.
func newEngineDeps(cfg *config.Config, logger *slog.Logger, offline bool, reporter engine.Reporter) (engine.Deps, func()) {
	deps := engine.Deps{Reporter: reporter}
	var closers []func()

	if cfg.Geocode.Enabled && !offline {
		client := geocode.NewClient(cfg, logger)
		closers = append(closers, client.Close)
		deps.Resolver = place.NewResolver(client, groupDirName(cfg), logger)
	}
	if cfg.History.Enabled {
		store, err := runlog.Open(cfg)
		if err != nil {
			logger.Warn("run history unavailable", logging.Error(err))
		} else {
			closers = append(closers, func() { _ = store.Close() })
			deps.History = store
		}
	}

	return deps, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// newRunLogger builds the logger for one run, writing to a per-run log
// file. When a progress bar owns the terminal, log lines go to the log
// file only.
func newRunLogger(cfg *config.Config, interactive bool) (*slog.Logger, error) {
	fileName := "shootsort-" + time.Now().Format("20060102-150405") + ".log"
	if !interactive {
		return logging.NewFromConfig(cfg, fileName)
	}
	if cfg.Paths.LogDir == "" {
		return logging.NewNop(), nil
	}
	logPath := filepath.Join(cfg.Paths.LogDir, fileName)
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
}

// notifyPauseToggle flips the gate on SIGUSR1 until the returned stop
// function runs.
func notifyPauseToggle(gate *engine.Gate, logger *slog.Logger) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		for range ch {
			if gate.Toggle() {
				logger.Info("run paused; send SIGUSR1 again to resume")
			} else {
				logger.Info("run resumed")
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}
