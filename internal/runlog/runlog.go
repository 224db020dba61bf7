// Package runlog persists run history in SQLite: one row per organizer
// invocation plus one per group it created. History powers the history
// command and gives failed runs a durable trace.
package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"shootsort/internal/config"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Run is one organizer invocation.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       *time.Time
	InputRoot        string
	OutputRoot       string
	Recurse          bool
	ThresholdSeconds float64
	MinGroupSize     int
	DryRun           bool
	Status           Status
	ImagesFound      int
	ImagesMoved      int
	GroupsCreated    int
	SinglesLeft      int
	Skipped          int
	Failures         int
	ErrorMessage     string
}

// GroupRecord is one group created (or attempted) during a run.
// StartedAt and EndedAt are the capture-time window, not wall clock.
type GroupRecord struct {
	ID           int64
	RunID        string
	Name         string
	Place        string
	StartedAt    time.Time
	EndedAt      time.Time
	Size         int
	Moved        int
	ErrorMessage string
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BeginRun inserts the run in running state.
func (s *Store) BeginRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = StatusRunning

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, started_at, input_root, output_root, recurse,
            threshold_seconds, min_group_size, dry_run, status
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.InputRoot,
		run.OutputRoot,
		boolToInt(run.Recurse),
		run.ThresholdSeconds,
		run.MinGroupSize,
		boolToInt(run.DryRun),
		run.Status,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the final status and counters for a run.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET finished_at = ?, status = ?, images_found = ?, images_moved = ?,
             groups_created = ?, singles_left = ?, skipped = ?, failures = ?,
             error_message = ?
         WHERE id = ?`,
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Status,
		run.ImagesFound,
		run.ImagesMoved,
		run.GroupsCreated,
		run.SinglesLeft,
		run.Skipped,
		run.Failures,
		nullableString(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordGroup inserts one group row and assigns its identifier.
func (s *Store) RecordGroup(ctx context.Context, group *GroupRecord) error {
	if group == nil {
		return errors.New("group is nil")
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_groups (
            run_id, name, place, started_at, ended_at, size, moved, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		group.RunID,
		group.Name,
		group.Place,
		group.StartedAt.UTC().Format(time.RFC3339Nano),
		group.EndedAt.UTC().Format(time.RFC3339Nano),
		group.Size,
		group.Moved,
		nullableString(group.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	group.ID = id
	return nil
}

// RunByID fetches a run, or nil when it does not exist.
func (s *Store) RunByID(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GroupsForRun returns a run's groups in creation order.
func (s *Store) GroupsForRun(ctx context.Context, runID string) ([]*GroupRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+groupColumns+` FROM run_groups WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*GroupRecord
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

const runColumns = "id, started_at, finished_at, input_root, output_root, recurse, " +
	"threshold_seconds, min_group_size, dry_run, status, images_found, images_moved, " +
	"groups_created, singles_left, skipped, failures, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		startedRaw  string
		finishedRaw sql.NullString
		inputRoot   string
		outputRoot  string
		recurse     int
		threshold   float64
		minGroup    int
		dryRun      int
		statusStr   string
		found       int
		moved       int
		groups      int
		singles     int
		skipped     int
		failures    int
		errMsg      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&startedRaw,
		&finishedRaw,
		&inputRoot,
		&outputRoot,
		&recurse,
		&threshold,
		&minGroup,
		&dryRun,
		&statusStr,
		&found,
		&moved,
		&groups,
		&singles,
		&skipped,
		&failures,
		&errMsg,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:               id,
		InputRoot:        inputRoot,
		OutputRoot:       outputRoot,
		Recurse:          recurse != 0,
		ThresholdSeconds: threshold,
		MinGroupSize:     minGroup,
		DryRun:           dryRun != 0,
		Status:           Status(statusStr),
		ImagesFound:      found,
		ImagesMoved:      moved,
		GroupsCreated:    groups,
		SinglesLeft:      singles,
		Skipped:          skipped,
		Failures:         failures,
		ErrorMessage:     errMsg.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

const groupColumns = "id, run_id, name, place, started_at, ended_at, size, moved, error_message"

func scanGroup(scanner interface{ Scan(dest ...any) error }) (*GroupRecord, error) {
	var (
		id        int64
		runID     string
		name      string
		placeName string
		startRaw  string
		endRaw    string
		size      int
		moved     int
		errMsg    sql.NullString
	)

	if err := scanner.Scan(&id, &runID, &name, &placeName, &startRaw, &endRaw, &size, &moved, &errMsg); err != nil {
		return nil, err
	}

	group := &GroupRecord{
		ID:           id,
		RunID:        runID,
		Name:         name,
		Place:        placeName,
		Size:         size,
		Moved:        moved,
		ErrorMessage: errMsg.String,
	}
	if start, err := parseTimeString(startRaw); err == nil {
		group.StartedAt = start
	}
	if end, err := parseTimeString(endRaw); err == nil {
		group.EndedAt = end
	}
	return group, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
