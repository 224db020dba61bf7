package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shootsort/internal/engine"
	"shootsort/internal/logging"
	"shootsort/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag    string
		recurseFlag   bool
		thresholdFlag float64
		minGroupFlag  int
		offlineFlag   bool
		quietFlag     int
	)

	cmd := &cobra.Command{
		Use:   "watch [source]",
		Short: "Watch a folder and group images after each burst of activity",
		Long: `Watch keeps an eye on the source folder and starts a grouping run
once file activity has been calm for the configured quiet period, so a
session is never split while a card is still copying. It runs until
interrupted.`,
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
				Offline:          offlineFlag,
			}
			applyGroupingFlags(cmd, &opts, recurseFlag, thresholdFlag, minGroupFlag)

			watchCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger, err := logging.NewFromConfig(cfg, "")
			if err != nil {
				return err
			}

			deps, cleanup := newEngineDeps(cfg, logger, offlineFlag, engine.NopReporter{})
			defer cleanup()

			runner := engine.NewRunner(cfg, logger, deps)
			stopPause := notifyPauseToggle(runner.Gate(), logger)
			defer stopPause()

			out := cmd.OutOrStdout()
			runFn := func(runCtx context.Context) error {
				summary, runErr := runner.Run(runCtx, opts)
				if errors.Is(runErr, engine.ErrNoImages) {
					// The trigger may have been a deletion or a non-image
					// file; an empty tree is not an error while watching.
					return nil
				}
				if runErr != nil {
					return runErr
				}
				fmt.Fprintln(out, summary.String())
				return nil
			}

			var quiet time.Duration
			if cmd.Flags().Changed("quiet") {
				quiet = time.Duration(quietFlag) * time.Second
			}
			watcher, err := watch.New(cfg, watch.Options{
				Root:    source,
				Recurse: opts.Recurse,
				Quiet:   quiet,
				Run:     runFn,
			}, logger)
			if err != nil {
				return err
			}
			return watcher.Watch(watchCtx)
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Destination root for session folders (default: group folder inside the source)")
	cmd.Flags().BoolVarP(&recurseFlag, "recurse", "r", false, "Watch subdirectories of the source as well")
	cmd.Flags().Float64VarP(&thresholdFlag, "threshold", "t", 0, "Maximum seconds between captures in one session")
	cmd.Flags().IntVar(&minGroupFlag, "min-group-size", 0, "Smallest session that becomes a folder")
	cmd.Flags().BoolVar(&offlineFlag, "offline", false, "Skip reverse geocoding")
	cmd.Flags().IntVar(&quietFlag, "quiet", 0, "Seconds of calm before a run starts (default from config)")

	return cmd
}
