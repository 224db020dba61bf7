package runlog_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shootsort/internal/runlog"
	"shootsort/internal/testsupport"
)

func TestBeginAndFinishRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := &runlog.Run{
		ID:               "run-0001",
		InputRoot:        "/shoots/in",
		OutputRoot:       "/shoots/out",
		Recurse:          true,
		ThresholdSeconds: 1.5,
		MinGroupSize:     5,
	}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	fetched, err := store.RunByID(ctx, "run-0001")
	if err != nil {
		t.Fatalf("RunByID: %v", err)
	}
	if fetched == nil || fetched.Status != runlog.StatusRunning {
		t.Fatalf("fetched = %+v, want running run", fetched)
	}
	if fetched.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil while running", fetched.FinishedAt)
	}
	if !fetched.Recurse || fetched.ThresholdSeconds != 1.5 || fetched.MinGroupSize != 5 {
		t.Errorf("options did not round-trip: %+v", fetched)
	}

	run.Status = runlog.StatusCompleted
	run.ImagesFound = 9
	run.ImagesMoved = 5
	run.GroupsCreated = 1
	run.SinglesLeft = 4
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	fetched, err = store.RunByID(ctx, "run-0001")
	if err != nil {
		t.Fatalf("RunByID after finish: %v", err)
	}
	if fetched.Status != runlog.StatusCompleted {
		t.Errorf("Status = %q, want completed", fetched.Status)
	}
	if fetched.FinishedAt == nil {
		t.Error("FinishedAt not recorded")
	}
	if fetched.ImagesFound != 9 || fetched.ImagesMoved != 5 ||
		fetched.GroupsCreated != 1 || fetched.SinglesLeft != 4 {
		t.Errorf("counters did not round-trip: %+v", fetched)
	}
}

func TestFinishRunRecordsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := &runlog.Run{ID: "run-broken", InputRoot: "/a", OutputRoot: "/b", ThresholdSeconds: 1, MinGroupSize: 5}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	run.Status = runlog.StatusFailed
	run.ErrorMessage = "no images found"
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	fetched, err := store.RunByID(ctx, "run-broken")
	if err != nil {
		t.Fatalf("RunByID: %v", err)
	}
	if fetched.Status != runlog.StatusFailed || fetched.ErrorMessage != "no images found" {
		t.Errorf("fetched = %+v, want failed with message", fetched)
	}
}

func TestRecordGroupRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run := &runlog.Run{ID: "run-groups", InputRoot: "/a", OutputRoot: "/b", ThresholdSeconds: 1, MinGroupSize: 5}
	if err := store.BeginRun(ctx, run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	start := time.Date(2025, 4, 10, 6, 25, 0, 0, time.UTC)
	first := &runlog.GroupRecord{
		RunID:     "run-groups",
		Name:      "sydney_20250410-0625_01_5",
		Place:     "sydney",
		StartedAt: start,
		EndedAt:   start.Add(4 * time.Second),
		Size:      5,
		Moved:     5,
	}
	second := &runlog.GroupRecord{
		RunID:        "run-groups",
		Name:         "unknown_20250410-0700_02_6",
		Place:        "unknown",
		StartedAt:    start.Add(35 * time.Minute),
		EndedAt:      start.Add(36 * time.Minute),
		Size:         6,
		Moved:        0,
		ErrorMessage: "destination already exists",
	}
	for _, g := range []*runlog.GroupRecord{first, second} {
		if err := store.RecordGroup(ctx, g); err != nil {
			t.Fatalf("RecordGroup(%s): %v", g.Name, err)
		}
		if g.ID == 0 {
			t.Fatalf("RecordGroup(%s): id not assigned", g.Name)
		}
	}

	groups, err := store.GroupsForRun(ctx, "run-groups")
	if err != nil {
		t.Fatalf("GroupsForRun: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Name != first.Name || groups[1].Name != second.Name {
		t.Errorf("order = %q, %q", groups[0].Name, groups[1].Name)
	}
	if !groups[0].StartedAt.Equal(start) || !groups[0].EndedAt.Equal(start.Add(4*time.Second)) {
		t.Errorf("window = %v..%v", groups[0].StartedAt, groups[0].EndedAt)
	}
	if groups[1].ErrorMessage != "destination already exists" {
		t.Errorf("ErrorMessage = %q", groups[1].ErrorMessage)
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2025, 4, 10, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &runlog.Run{
			ID:               fmt.Sprintf("run-%d", i),
			StartedAt:        base.Add(time.Duration(i) * time.Hour),
			InputRoot:        "/a",
			OutputRoot:       "/b",
			ThresholdSeconds: 1,
			MinGroupSize:     5,
		}
		if err := store.BeginRun(ctx, run); err != nil {
			t.Fatalf("BeginRun(%d): %v", i, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Errorf("order = %q, %q, want run-2, run-1", runs[0].ID, runs[1].ID)
	}
}

func TestRunByIDMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	run, err := store.RunByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("RunByID: %v", err)
	}
	if run != nil {
		t.Fatalf("run = %+v, want nil", run)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := runlog.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	run := &runlog.Run{ID: "run-persist", InputRoot: "/a", OutputRoot: "/b", ThresholdSeconds: 1, MinGroupSize: 5}
	if err := store.BeginRun(context.Background(), run); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.RunByID(context.Background(), "run-persist")
	if err != nil {
		t.Fatalf("RunByID: %v", err)
	}
	if fetched == nil {
		t.Fatal("run lost across reopen")
	}
}
