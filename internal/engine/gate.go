package engine

import (
	"context"
	"sync"
	"time"
)

// Gate is the cooperative pause switch for a run. The run loop calls Wait
// between images and between groups; the operator shell calls Pause,
// Resume, or Toggle from its signal handler. Time spent closed is tracked
// so elapsed-time and remaining-time estimates stay honest.
type Gate struct {
	mu     sync.Mutex
	open   chan struct{}
	paused bool
	since  time.Time
	total  time.Duration
}

// NewGate returns an open gate.
func NewGate() *Gate {
	g := &Gate{open: make(chan struct{})}
	close(g.open)
	return g
}

// Pause closes the gate. Waiters block until Resume.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pauseLocked()
}

// Resume reopens the gate and releases all waiters.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resumeLocked()
}

// Toggle flips the gate and reports whether it is now paused.
func (g *Gate) Toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.resumeLocked()
		return false
	}
	g.pauseLocked()
	return true
}

// Paused reports whether the gate is currently closed.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// PausedFor returns the cumulative time the gate has spent closed,
// including the current stretch when still paused.
func (g *Gate) PausedFor() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := g.total
	if g.paused {
		total += time.Since(g.since)
	}
	return total
}

// Wait blocks while the gate is paused. It returns the context error when
// ctx ends first, whether or not the gate is open.
func (g *Gate) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	open := g.open
	g.mu.Unlock()
	select {
	case <-open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gate) pauseLocked() {
	if g.paused {
		return
	}
	g.paused = true
	g.since = time.Now()
	g.open = make(chan struct{})
}

func (g *Gate) resumeLocked() {
	if !g.paused {
		return
	}
	g.paused = false
	g.total += time.Since(g.since)
	close(g.open)
}
