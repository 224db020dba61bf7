// Package relocate moves grouped images into their group directories.
// Failures are isolated at two levels: a group that cannot get its
// directory fails whole, and inside a healthy group each file move
// stands alone.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"shootsort/internal/fileutil"
	"shootsort/internal/imagemeta"
	"shootsort/internal/logging"
	"shootsort/internal/naming"
)

var (
	// ErrDestinationCollision means the group directory already exists
	// with content in it. Nothing is moved into a colliding directory.
	ErrDestinationCollision = errors.New("destination already exists")
	// ErrFileMove marks a single file that could not be moved. The rest
	// of the group proceeds.
	ErrFileMove = errors.New("file move failed")
)

// Group is one cluster scheduled to move into one directory.
type Group struct {
	Name    naming.Name
	Records []imagemeta.Record
}

// FileFailure records one file that could not be moved.
type FileFailure struct {
	Path string
	Err  error
}

// Result is the outcome of moving one group.
type Result struct {
	DirName string
	DirPath string
	Moved   int
	Failed  []FileFailure
	// Err is set for group-level failures: collisions, directory
	// creation errors, or cancellation part way through.
	Err error
}

type Mover struct {
	logger *slog.Logger
}

func NewMover(logger *slog.Logger) *Mover {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mover{logger: logging.NewComponentLogger(logger, "relocate")}
}

// Move relocates every record of the group into outputRoot/<group name>.
// An existing empty directory is reused; an existing file or non-empty
// directory aborts the group untouched. Existing destination files are
// never overwritten.
func (m *Mover) Move(ctx context.Context, outputRoot string, group Group) Result {
	result := Result{
		DirName: group.Name.String(),
		DirPath: filepath.Join(outputRoot, group.Name.String()),
	}

	if err := m.prepareDir(result.DirPath); err != nil {
		result.Err = err
		m.logger.Warn("group directory unavailable",
			logging.String(logging.FieldGroup, result.DirName),
			logging.Error(err))
		return result
	}

	for _, rec := range group.Records {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		dest := filepath.Join(result.DirPath, filepath.Base(rec.Path))
		if err := m.moveOne(rec.Path, dest); err != nil {
			result.Failed = append(result.Failed, FileFailure{Path: rec.Path, Err: err})
			m.logger.Warn("file move failed",
				logging.String(logging.FieldGroup, result.DirName),
				logging.String(logging.FieldImage, rec.Path),
				logging.Error(err))
			continue
		}
		result.Moved++
	}

	m.logger.Info("group relocated",
		logging.String(logging.FieldGroup, result.DirName),
		logging.Int("moved", result.Moved),
		logging.Int("failed", len(result.Failed)))
	return result
}

func (m *Mover) prepareDir(dirPath string) error {
	info, err := os.Stat(dirPath)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s is a file", ErrDestinationCollision, dirPath)
	case err == nil:
		entries, err := os.ReadDir(dirPath)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", dirPath, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: %s is not empty", ErrDestinationCollision, dirPath)
		}
		return nil
	case os.IsNotExist(err):
		return os.MkdirAll(dirPath, 0o755)
	default:
		return fmt.Errorf("inspect %s: %w", dirPath, err)
	}
}

func (m *Mover) moveOne(src, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrFileMove, dest)
	}
	if err := fileutil.MoveFile(src, dest); err != nil {
		return fmt.Errorf("%w: %w", ErrFileMove, err)
	}
	return nil
}
