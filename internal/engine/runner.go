package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shootsort/internal/cluster"
	"shootsort/internal/config"
	"shootsort/internal/discover"
	"shootsort/internal/imagemeta"
	"shootsort/internal/logging"
	"shootsort/internal/naming"
	"shootsort/internal/place"
	"shootsort/internal/relocate"
	"shootsort/internal/runlog"
)

const lockFileName = ".shootsort.lock"

// Extractor reads capture metadata from one image file.
type Extractor interface {
	Extract(ctx context.Context, path string) (imagemeta.Record, error)
}

// Resolver turns extracted metadata into a place label.
type Resolver interface {
	Resolve(ctx context.Context, rec imagemeta.Record) place.Resolution
}

// Mover relocates one session's files into its destination folder.
type Mover interface {
	Move(ctx context.Context, outputRoot string, group relocate.Group) relocate.Result
}

// History persists run and group records.
type History interface {
	BeginRun(ctx context.Context, run *runlog.Run) error
	FinishRun(ctx context.Context, run *runlog.Run) error
	RecordGroup(ctx context.Context, group *runlog.GroupRecord) error
}

// Deps carries the collaborators a Runner drives. Nil fields fall back to
// the package defaults; a nil History disables run persistence.
type Deps struct {
	Extractor Extractor
	Resolver  Resolver
	Mover     Mover
	History   History
	Reporter  Reporter
	Gate      *Gate
}

// Runner executes grouping runs over an image tree.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	baseLogger *slog.Logger
	extractor  Extractor
	resolver   Resolver
	mover      Mover
	history    History
	reporter   Reporter
	gate       *Gate
	now        func() time.Time
	newRunID   func() string
}

// NewRunner wires a Runner from configuration and collaborators.
func NewRunner(cfg *config.Config, logger *slog.Logger, deps Deps) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "engine"),
		baseLogger: logger,
		extractor:  deps.Extractor,
		resolver:   deps.Resolver,
		mover:      deps.Mover,
		history:    deps.History,
		reporter:   deps.Reporter,
		gate:       deps.Gate,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	if r.extractor == nil {
		r.extractor = imagemeta.NewExtractor(logger)
	}
	if r.resolver == nil {
		r.resolver = place.NewResolver(nil, r.groupDirName(), logger)
	}
	if r.mover == nil {
		r.mover = relocate.NewMover(logger)
	}
	if r.reporter == nil {
		r.reporter = NopReporter{}
	}
	if r.gate == nil {
		r.gate = NewGate()
	}
	return r
}

// Gate returns the pause gate driving this runner.
func (r *Runner) Gate() *Gate { return r.gate }

// Run executes one grouping pass over opts.InputRoot.
//
// The run proceeds in three phases: scan (discover, extract, resolve),
// partition (sort and cluster), and move (name and relocate each kept
// session in chronological order). Per-image and per-group failures are
// isolated and counted; only input validation, discovery errors, a held
// run lock, and cancellation end the run early. The returned Summary is
// populated even when err is non-nil.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	started := r.now()

	if err := opts.validate(); err != nil {
		return Summary{DryRun: opts.DryRun}, err
	}
	inputRoot, outputRoot, err := r.resolveRoots(opts)
	if err != nil {
		return Summary{DryRun: opts.DryRun}, err
	}

	summary := Summary{
		RunID:      r.newRunID(),
		InputRoot:  inputRoot,
		OutputRoot: outputRoot,
		DryRun:     opts.DryRun,
	}
	ctx = logging.WithRunID(ctx, summary.RunID)
	log := logging.WithContext(ctx, r.logger)

	// Ledger writes must survive run cancellation so the history reflects
	// how far the run got.
	ledgerCtx := context.WithoutCancel(ctx)
	hist := r.history
	runRow := &runlog.Run{
		ID:               summary.RunID,
		StartedAt:        started.UTC(),
		InputRoot:        inputRoot,
		OutputRoot:       outputRoot,
		Recurse:          opts.Recurse,
		ThresholdSeconds: opts.ThresholdSeconds,
		MinGroupSize:     opts.MinGroupSize,
		DryRun:           opts.DryRun,
	}
	if hist != nil {
		if err := hist.BeginRun(ledgerCtx, runRow); err != nil {
			log.Warn("run history unavailable", logging.Error(err))
			hist = nil
		}
	}
	finish := func(status runlog.Status, runErr error) {
		summary.Elapsed = r.elapsed(started)
		if hist == nil {
			return
		}
		runRow.Status = status
		runRow.ImagesFound = summary.Discovered
		runRow.ImagesMoved = summary.ImagesMoved
		runRow.GroupsCreated = summary.GroupsCreated
		runRow.SinglesLeft = summary.SinglesLeft
		runRow.Skipped = summary.Skipped
		runRow.Failures = summary.FailedGroups + summary.FailedMoves
		if runErr != nil {
			runRow.ErrorMessage = runErr.Error()
		}
		if err := hist.FinishRun(ledgerCtx, runRow); err != nil {
			log.Warn("record run outcome", logging.Error(err))
		}
	}

	paths, err := discover.Images(inputRoot, discover.Options{
		Recurse:       opts.Recurse,
		SkipDirPrefix: r.groupDirName(),
	})
	if err != nil {
		err = fmt.Errorf("discover images: %w", err)
		finish(runlog.StatusFailed, err)
		return summary, err
	}
	if len(paths) == 0 {
		finish(runlog.StatusFailed, ErrNoImages)
		return summary, ErrNoImages
	}
	summary.Discovered = len(paths)

	// The lock is taken only once there is real work, so a run over an
	// imageless tree leaves no output root behind.
	if !opts.DryRun {
		release, err := r.acquireLock(outputRoot)
		if err != nil {
			finish(runlog.StatusFailed, err)
			return summary, err
		}
		defer release()
	}

	resolver := r.resolver
	if opts.Offline {
		resolver = place.NewResolver(nil, r.groupDirName(), r.baseLogger)
	}

	log.Info("run started",
		logging.String("input", inputRoot),
		logging.String("output", outputRoot),
		logging.Int(logging.FieldCount, len(paths)),
		logging.Bool("dry_run", opts.DryRun))
	r.reporter.RunStarted(len(paths))

	records := make([]imagemeta.Record, 0, len(paths))
	places := make(map[string]place.Resolution, len(paths))
	for i, path := range paths {
		if err := r.gate.Wait(ctx); err != nil {
			finish(runlog.StatusCanceled, err)
			return summary, err
		}
		rec, err := r.extractor.Extract(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				finish(runlog.StatusCanceled, ctxErr)
				return summary, ctxErr
			}
			summary.Skipped++
			log.Warn("skipping unreadable image",
				logging.String(logging.FieldImage, path),
				logging.Error(err))
			continue
		}
		places[rec.Path] = resolver.Resolve(ctx, rec)
		records = append(records, rec)

		elapsed := r.elapsed(started)
		r.reporter.ImageScanned(i+1, len(paths), elapsed, estimateRemaining(elapsed, i+1, len(paths)))
	}

	threshold := time.Duration(opts.ThresholdSeconds * float64(time.Second))
	clusters, singles := cluster.Partition(records, threshold, opts.MinGroupSize)
	summary.SinglesLeft = len(singles)
	log.Info("sessions partitioned",
		logging.Int("sessions", len(clusters)),
		logging.Int("singles", len(singles)),
		logging.Int("skipped", summary.Skipped))

	seq := naming.NewSequencer()
	for _, cl := range clusters {
		if err := r.gate.Wait(ctx); err != nil {
			finish(runlog.StatusCanceled, err)
			return summary, err
		}
		gr := r.handleCluster(ctx, outputRoot, seq, cl, places, opts.DryRun)
		summary.Groups = append(summary.Groups, gr)
		summary.ImagesMoved += gr.Moved
		summary.FailedMoves += len(gr.Failed)
		if gr.Err != nil {
			summary.FailedGroups++
		} else {
			summary.GroupsCreated++
		}
		if hist != nil {
			r.recordGroup(ledgerCtx, hist, summary.RunID, gr)
		}
		r.reporter.GroupHandled(gr)
		if gr.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				finish(runlog.StatusCanceled, ctxErr)
				return summary, ctxErr
			}
		}
	}

	finish(runlog.StatusCompleted, nil)
	log.Info("run finished",
		logging.Int("groups", summary.GroupsCreated),
		logging.Int("moved", summary.ImagesMoved),
		logging.Int("singles", summary.SinglesLeft),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed_groups", summary.FailedGroups),
		logging.Int("failed_moves", summary.FailedMoves),
		logging.Duration("elapsed", summary.Elapsed))
	r.reporter.RunFinished(summary)
	return summary, nil
}

func (r *Runner) handleCluster(ctx context.Context, outputRoot string, seq *naming.Sequencer, cl cluster.Cluster, places map[string]place.Resolution, dryRun bool) GroupResult {
	// First member by capture time names the whole session.
	first := cl.Records[0]
	placeToken := place.Unknown
	if res, ok := places[first.Path]; ok && res.Place != "" {
		placeToken = res.Place
	}
	name := seq.Next(placeToken, cl.Start(), cl.Size())
	gr := GroupResult{
		Name:    name,
		DirPath: filepath.Join(outputRoot, name.String()),
		Start:   cl.Start(),
		End:     cl.End(),
		Size:    cl.Size(),
	}
	log := logging.WithContext(ctx, r.logger)
	log.Debug("session formed",
		logging.String(logging.FieldGroup, name.String()),
		logging.Time("start", gr.Start),
		logging.Time("end", gr.End),
		logging.Int(logging.FieldCount, gr.Size))
	if dryRun {
		log.Info("dry run: would create group",
			logging.String(logging.FieldGroup, name.String()),
			logging.Int(logging.FieldCount, gr.Size))
		return gr
	}
	result := r.mover.Move(ctx, outputRoot, relocate.Group{Name: name, Records: cl.Records})
	gr.Moved = result.Moved
	gr.Failed = result.Failed
	gr.Err = result.Err
	return gr
}

func (r *Runner) recordGroup(ctx context.Context, hist History, runID string, gr GroupResult) {
	rec := &runlog.GroupRecord{
		RunID:     runID,
		Name:      gr.Name.String(),
		Place:     gr.Name.Place,
		StartedAt: gr.Start,
		EndedAt:   gr.End,
		Size:      gr.Size,
		Moved:     gr.Moved,
	}
	if gr.Err != nil {
		rec.ErrorMessage = gr.Err.Error()
	}
	if err := hist.RecordGroup(ctx, rec); err != nil {
		r.logger.Warn("record group outcome",
			logging.String(logging.FieldGroup, rec.Name),
			logging.Error(err))
	}
}

func (r *Runner) acquireLock(outputRoot string) (func(), error) {
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	lock := flock.New(filepath.Join(outputRoot, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunActive
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("release run lock", logging.Error(err))
		}
	}, nil
}

func (r *Runner) resolveRoots(opts Options) (string, string, error) {
	inputRoot, err := filepath.Abs(opts.InputRoot)
	if err != nil {
		return "", "", fmt.Errorf("resolve input root: %w", err)
	}
	outputRoot := strings.TrimSpace(opts.OutputRoot)
	if outputRoot == "" {
		base := inputRoot
		if info, err := os.Stat(inputRoot); err == nil && !info.IsDir() {
			base = filepath.Dir(inputRoot)
		}
		outputRoot = filepath.Join(base, r.groupDirName())
	} else {
		outputRoot, err = filepath.Abs(outputRoot)
		if err != nil {
			return "", "", fmt.Errorf("resolve output root: %w", err)
		}
	}
	return inputRoot, outputRoot, nil
}

func (r *Runner) groupDirName() string {
	if r.cfg != nil && strings.TrimSpace(r.cfg.Grouping.GroupDirName) != "" {
		return r.cfg.Grouping.GroupDirName
	}
	return discover.DefaultSkipPrefix
}

func (r *Runner) elapsed(started time.Time) time.Duration {
	elapsed := r.now().Sub(started) - r.gate.PausedFor()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// estimateRemaining projects time left from the average per-image cost so far.
func estimateRemaining(elapsed time.Duration, done, total int) time.Duration {
	if done <= 0 || done >= total || elapsed <= 0 {
		return 0
	}
	return time.Duration(float64(elapsed) / float64(done) * float64(total-done))
}
