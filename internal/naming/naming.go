// Package naming builds group directory names of the form
// place_YYYYMMDD-HHMM_NN_count, for example sydney_20250410-0625_01_5.
package naming

import (
	"fmt"
	"time"
)

const stampLayout = "20060102-1504"

// Name is a structured group directory name. Place must already be
// normalized; Start is truncated to the minute by the layout.
type Name struct {
	Place string
	Start time.Time
	Seq   int
	Count int
}

func (n Name) String() string {
	return fmt.Sprintf("%s_%s_%02d_%d", n.Place, n.Start.Format(stampLayout), n.Seq, n.Count)
}

// Stamp returns the minute-resolution timestamp component.
func (n Name) Stamp() string {
	return n.Start.Format(stampLayout)
}

// Sequencer hands out names with 1-based sequence numbers in the order
// groups are named. Only kept groups consume numbers, so sequences stay
// dense even when small runs were dropped between them.
type Sequencer struct {
	next int
}

func NewSequencer() *Sequencer {
	return &Sequencer{next: 1}
}

func (s *Sequencer) Next(place string, start time.Time, count int) Name {
	n := Name{Place: place, Start: start, Seq: s.next, Count: count}
	s.next++
	return n
}
