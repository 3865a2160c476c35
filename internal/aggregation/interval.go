package aggregation

import (
	"sort"
	"time"

	"github.com/pavement/pavement-api/internal/models"
)

// Interval is a half-open [Start, End) span of occupied time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Timeline maps a space id to its squashed, non-overlapping intervals.
type Timeline map[string][]Interval

// Squash groups records by space and merges each space's sessions into a
// non-overlapping coverage timeline. Open sessions are dropped.
func Squash(records []models.TransactionRecord) Timeline {
	grouped := make(map[string][]Interval)
	for _, r := range records {
		if !r.HasSession() {
			continue
		}
		grouped[r.SpaceID] = append(grouped[r.SpaceID], Interval{Start: r.PurchasedAt, End: *r.ExpiresAt})
	}

	timeline := make(Timeline, len(grouped))
	for space, intervals := range grouped {
		timeline[space] = SquashIntervals(intervals)
	}
	return timeline
}

// SquashIntervals merges one space's sessions. A session ending no later than the
// previous coverage is discarded; one that overlaps it is clamped to start where
// the coverage ends. The input order by start is preserved; ties keep their
// original order.
func SquashIntervals(intervals []Interval) []Interval {
	ordered := make([]Interval, len(intervals))
	copy(ordered, intervals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	out := make([]Interval, 0, len(ordered))
	for _, iv := range ordered {
		if !iv.Start.Before(iv.End) {
			continue
		}
		if len(out) == 0 {
			out = append(out, iv)
			continue
		}
		last := out[len(out)-1]
		if !iv.End.After(last.End) {
			continue
		}
		out = append(out, Interval{Start: maxTime(iv.Start, last.End), End: iv.End})
	}
	return out
}
