package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"shootsort/internal/naming"
	"shootsort/internal/relocate"
)

var (
	// ErrNoImages reports a run whose input root contained no image files.
	ErrNoImages = errors.New("no images found")
	// ErrInvalidThreshold reports a non-positive gap threshold.
	ErrInvalidThreshold = errors.New("gap threshold must be positive")
	// ErrInvalidMinGroup reports a minimum group size below one.
	ErrInvalidMinGroup = errors.New("minimum group size must be at least one")
	// ErrRunActive reports that another process already holds the run lock
	// for the requested output root.
	ErrRunActive = errors.New("another run is already active for this output root")
)

// Options describes one grouping run.
type Options struct {
	// InputRoot is the file or directory to process.
	InputRoot string
	// OutputRoot receives the group folders. Empty selects the configured
	// group directory under the input root.
	OutputRoot string
	// Recurse descends into subdirectories of the input root.
	Recurse bool
	// ThresholdSeconds is the maximum capture-time gap, in fractional
	// seconds, between consecutive members of one session.
	ThresholdSeconds float64
	// MinGroupSize is the smallest cluster that becomes a named group.
	MinGroupSize int
	// DryRun reports what a run would do without touching the filesystem.
	DryRun bool
	// Offline disables reverse geocoding for this run.
	Offline bool
}

func (o Options) validate() error {
	if strings.TrimSpace(o.InputRoot) == "" {
		return errors.New("input root is required")
	}
	if o.ThresholdSeconds <= 0 {
		return ErrInvalidThreshold
	}
	if o.MinGroupSize < 1 {
		return ErrInvalidMinGroup
	}
	return nil
}

// GroupResult captures the outcome for one named session.
type GroupResult struct {
	// Name is the generated group name.
	Name naming.Name
	// DirPath is the destination folder, computed even on dry runs.
	DirPath string
	// Start and End bound the session's capture times.
	Start time.Time
	End   time.Time
	// Size is the session member count.
	Size int
	// Moved counts files that reached the destination folder.
	Moved int
	// Failed lists per-file move failures.
	Failed []relocate.FileFailure
	// Err is set when the whole group failed, such as a destination
	// collision. Moved and Failed may still be partially populated.
	Err error
}

// Summary is the final accounting of one run. It is populated even when
// the run ends early, so callers always see how far it got.
type Summary struct {
	RunID      string
	InputRoot  string
	OutputRoot string
	DryRun     bool

	// Discovered counts image files found under the input root.
	Discovered int
	// Skipped counts unreadable files excluded from clustering.
	Skipped int
	// GroupsCreated counts sessions whose folder was created, or would
	// have been on a dry run.
	GroupsCreated int
	// FailedGroups counts sessions that failed as a whole.
	FailedGroups int
	// ImagesMoved counts files relocated into group folders.
	ImagesMoved int
	// FailedMoves counts individual file moves that failed.
	FailedMoves int
	// SinglesLeft counts images below the minimum group size, left in place.
	SinglesLeft int

	// Elapsed is wall time excluding any paused stretches.
	Elapsed time.Duration
	// Groups holds the per-session outcomes in chronological order.
	Groups []GroupResult
}

// String renders the one-line run outcome shown to the operator.
func (s Summary) String() string {
	return fmt.Sprintf("%d groups created, %d images moved, %d singles left",
		s.GroupsCreated, s.ImagesMoved, s.SinglesLeft)
}

// PlannedImages sums the member counts of all handled sessions. On a dry
// run this is the number of files that a real run would move.
func (s Summary) PlannedImages() int {
	total := 0
	for _, g := range s.Groups {
		total += g.Size
	}
	return total
}

// Reporter receives progress events from a run. Calls happen on the run
// goroutine, so implementations must return quickly.
type Reporter interface {
	// RunStarted fires after discovery with the total image count.
	RunStarted(total int)
	// ImageScanned fires after each image is extracted and resolved.
	// Remaining is a projection from the average per-image cost so far.
	ImageScanned(done, total int, elapsed, remaining time.Duration)
	// GroupHandled fires after each session is named and relocated.
	GroupHandled(result GroupResult)
	// RunFinished fires once with the final summary.
	RunFinished(summary Summary)
}

// NopReporter discards all progress events.
type NopReporter struct{}

func (NopReporter) RunStarted(int)                                      {}
func (NopReporter) ImageScanned(int, int, time.Duration, time.Duration) {}
func (NopReporter) GroupHandled(GroupResult)                            {}
func (NopReporter) RunFinished(Summary)                                 {}
