package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"shootsort/internal/testsupport"
)

func newTestWatcher(t *testing.T, root string, quiet time.Duration, run RunFunc) *Watcher {
	t.Helper()
	w, err := New(testsupport.NewConfig(t), Options{Root: root, Quiet: quiet, Run: run}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func TestNewValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	run := func(context.Context) error { return nil }

	if _, err := New(cfg, Options{Run: run}, nil); err == nil {
		t.Fatal("missing root should fail")
	}
	if _, err := New(cfg, Options{Root: t.TempDir()}, nil); err == nil {
		t.Fatal("missing run callback should fail")
	}
	if _, err := New(cfg, Options{Root: t.TempDir(), Run: run}, nil); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}

func TestLoopDebouncesBurst(t *testing.T) {
	root := t.TempDir()
	runs := make(chan struct{}, 4)
	w := newTestWatcher(t, root, 40*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	done := make(chan error, 1)
	go func() { done <- w.loop(ctx, events, errs, nil) }()

	for i := 0; i < 3; i++ {
		events <- fsnotify.Event{Name: filepath.Join(root, fmt.Sprintf("img%d.jpg", i)), Op: fsnotify.Create}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced run never fired")
	}
	select {
	case <-runs:
		t.Fatal("one burst fired more than one run")
	case <-time.After(150 * time.Millisecond):
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("loop returned %v, want context.Canceled", err)
	}
}

func TestLoopFiresAgainAfterNewActivity(t *testing.T) {
	root := t.TempDir()
	runs := make(chan struct{}, 4)
	w := newTestWatcher(t, root, 30*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	go func() { _ = w.loop(ctx, events, errs, nil) }()

	events <- fsnotify.Event{Name: filepath.Join(root, "first.jpg"), Op: fsnotify.Create}
	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("first run never fired")
	}

	events <- fsnotify.Event{Name: filepath.Join(root, "second.jpg"), Op: fsnotify.Write}
	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("second run never fired")
	}
}

func TestLoopIgnoresIrrelevantEvents(t *testing.T) {
	root := t.TempDir()
	runs := make(chan struct{}, 4)
	w := newTestWatcher(t, root, 30*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	go func() { _ = w.loop(ctx, events, errs, nil) }()

	events <- fsnotify.Event{Name: filepath.Join(root, "_groups", "sydney_20250410-0625_01_5", "img.jpg"), Op: fsnotify.Create}
	events <- fsnotify.Event{Name: filepath.Join(root, ".shootsort.lock"), Op: fsnotify.Create}
	events <- fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write}
	events <- fsnotify.Event{Name: filepath.Join(root, "img.jpg"), Op: fsnotify.Chmod}

	select {
	case <-runs:
		t.Fatal("irrelevant events triggered a run")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestLoopSurvivesWatchErrors(t *testing.T) {
	root := t.TempDir()
	runs := make(chan struct{}, 2)
	w := newTestWatcher(t, root, 30*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	go func() { _ = w.loop(ctx, events, errs, nil) }()

	errs <- errors.New("inotify overflow")
	events <- fsnotify.Event{Name: filepath.Join(root, "after.jpg"), Op: fsnotify.Create}

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("run never fired after a watch error")
	}
}

func TestRelevant(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root, time.Second, func(context.Context) error { return nil })

	sub := filepath.Join(root, "incoming")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cases := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"image create", fsnotify.Event{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Create}, true},
		{"image remove", fsnotify.Event{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Remove}, true},
		{"uppercase extension", fsnotify.Event{Name: filepath.Join(root, "b.JPG"), Op: fsnotify.Write}, true},
		{"directory create", fsnotify.Event{Name: sub, Op: fsnotify.Create}, true},
		{"chmod only", fsnotify.Event{Name: filepath.Join(root, "a.jpg"), Op: fsnotify.Chmod}, false},
		{"hidden file", fsnotify.Event{Name: filepath.Join(root, ".shootsort.lock"), Op: fsnotify.Create}, false},
		{"inside group dir", fsnotify.Event{Name: filepath.Join(root, "_groups", "x", "a.jpg"), Op: fsnotify.Write}, false},
		{"non-image file", fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write}, false},
	}
	for _, tc := range cases {
		if got := w.relevant(tc.event); got != tc.want {
			t.Errorf("%s: relevant = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWatchTriggersRunOnRealEvents(t *testing.T) {
	root := t.TempDir()
	runs := make(chan struct{}, 2)
	w := newTestWatcher(t, root, 50*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Let the watcher register before generating events.
	time.Sleep(50 * time.Millisecond)
	testsupport.WriteImage(t, filepath.Join(root, "fresh.jpg"), time.Now())

	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("file write did not trigger a run")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch returned %v, want context.Canceled", err)
	}
}
