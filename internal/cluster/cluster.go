// Package cluster partitions image records into contiguous capture-time
// runs. Clustering is pure and deterministic: the same records always
// produce the same partition regardless of input order.
package cluster

import (
	"slices"
	"strings"
	"time"

	"shootsort/internal/imagemeta"
)

// Cluster is a run of records whose consecutive capture times each stay
// within the gap threshold. Records are ordered by capture time with
// path as the tie break.
type Cluster struct {
	Records []imagemeta.Record
}

func (c Cluster) Size() int { return len(c.Records) }

// Start is the capture time of the first record.
func (c Cluster) Start() time.Time { return c.Records[0].CapturedAt }

// End is the capture time of the last record.
func (c Cluster) End() time.Time { return c.Records[len(c.Records)-1].CapturedAt }

// Partition splits records into clusters of at least minSize. A record
// joins the current run when the gap to the previous record is at most
// threshold, so a run can span far more than one threshold end to end.
// Runs smaller than minSize come back as singles and stay untouched by
// the caller. The input slice is not modified.
func Partition(records []imagemeta.Record, threshold time.Duration, minSize int) (clusters []Cluster, singles []imagemeta.Record) {
	if len(records) == 0 {
		return nil, nil
	}

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b imagemeta.Record) int {
		if c := a.CapturedAt.Compare(b.CapturedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})

	flush := func(run []imagemeta.Record) {
		if len(run) == 0 {
			return
		}
		if len(run) >= minSize {
			clusters = append(clusters, Cluster{Records: run})
		} else {
			singles = append(singles, run...)
		}
	}

	var run []imagemeta.Record
	for _, rec := range sorted {
		if len(run) > 0 && rec.CapturedAt.Sub(run[len(run)-1].CapturedAt) > threshold {
			flush(run)
			run = nil
		}
		run = append(run, rec)
	}
	flush(run)
	return clusters, singles
}
