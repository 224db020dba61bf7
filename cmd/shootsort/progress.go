package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"shootsort/internal/engine"
)

// newRunReporter picks the progress surface for a run: an in-place bar
// when the writer is a terminal, throttled plain lines otherwise.
func newRunReporter(w io.Writer) engine.Reporter {
	if isTerminalWriter(w) {
		return &barReporter{out: w}
	}
	return &lineReporter{out: w, interval: 2 * time.Second}
}

func isTerminalWriter(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// barReporter renders the scan phase as a progress bar. Group outcomes
// arrive only after the bar has finished, so failure lines never fight
// the in-place rendering.
type barReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func (r *barReporter) RunStarted(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.out) }),
	)
}

func (r *barReporter) ImageScanned(done, total int, _, _ time.Duration) {
	if r.bar == nil {
		return
	}
	_ = r.bar.Set(done)
}

func (r *barReporter) GroupHandled(gr engine.GroupResult) {
	if gr.Err != nil {
		fmt.Fprintf(r.out, "group %s failed: %v\n", gr.Name, gr.Err)
	}
}

func (r *barReporter) RunFinished(engine.Summary) {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// lineReporter prints plain progress lines, throttled so piped output
// and log captures stay readable.
type lineReporter struct {
	out      io.Writer
	interval time.Duration
	last     time.Time
}

func (r *lineReporter) RunStarted(total int) {
	fmt.Fprintf(r.out, "scanning %d images\n", total)
}

func (r *lineReporter) ImageScanned(done, total int, elapsed, remaining time.Duration) {
	now := time.Now()
	if done < total && !r.last.IsZero() && now.Sub(r.last) < r.interval {
		return
	}
	r.last = now
	fmt.Fprintf(r.out, "scanned %d/%d images (elapsed %s, remaining %s)\n",
		done, total, elapsed.Round(time.Second), remaining.Round(time.Second))
}

func (r *lineReporter) GroupHandled(gr engine.GroupResult) {
	if gr.Err != nil {
		fmt.Fprintf(r.out, "group %s failed: %v\n", gr.Name, gr.Err)
	}
}

func (r *lineReporter) RunFinished(engine.Summary) {}
