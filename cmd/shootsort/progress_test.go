package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"shootsort/internal/engine"
	"shootsort/internal/naming"
	"shootsort/internal/relocate"
)

func TestNewRunReporterPrefersLinesOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	if _, ok := newRunReporter(&buf).(*lineReporter); !ok {
		t.Fatal("expected a line reporter for a non-terminal writer")
	}
}

func TestLineReporterThrottles(t *testing.T) {
	var buf bytes.Buffer
	r := &lineReporter{out: &buf, interval: time.Hour}

	r.RunStarted(10)
	r.ImageScanned(1, 10, time.Second, 9*time.Second)
	r.ImageScanned(2, 10, 2*time.Second, 8*time.Second)
	r.ImageScanned(3, 10, 3*time.Second, 7*time.Second)
	r.ImageScanned(10, 10, 10*time.Second, 0)

	out := buf.String()
	requireContains(t, out, "scanning 10 images")
	requireContains(t, out, "scanned 1/10")
	requireContains(t, out, "scanned 10/10")
	if strings.Contains(out, "scanned 2/10") || strings.Contains(out, "scanned 3/10") {
		t.Fatalf("intermediate lines not throttled:\n%s", out)
	}
}

func TestLineReporterReportsGroupFailure(t *testing.T) {
	var buf bytes.Buffer
	r := &lineReporter{out: &buf}

	r.GroupHandled(engine.GroupResult{
		Name: naming.Name{Place: "pier", Start: time.Date(2025, 7, 1, 9, 55, 0, 0, time.UTC), Seq: 1, Count: 5},
		Err:  relocate.ErrDestinationCollision,
	})
	requireContains(t, buf.String(), "pier_20250701-0955_01_5")
	requireContains(t, buf.String(), "destination already exists")
}
