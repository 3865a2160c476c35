package aggregation

import (
	"time"

	"github.com/pavement/pavement-api/internal/models"
)

// DurationSeries holds per-cell session totals and counts.
type DurationSeries struct {
	Seconds  []float64
	Sessions []int
}

// AverageHours returns the unrounded mean session length of cell k in hours.
func (s DurationSeries) AverageHours(k int) float64 {
	count := s.Sessions[k]
	if count == 0 {
		count = 1
	}
	return s.Seconds[k] / float64(count) / time.Hour.Seconds()
}

// Hours returns every cell's mean session length in hours, rounded.
func (s DurationSeries) Hours() []float64 {
	out := make([]float64, len(s.Seconds))
	for k := range out {
		out[k] = Round2(s.AverageHours(k))
	}
	return out
}

// RawHours returns every cell's mean session length in hours, unrounded.
func (s DurationSeries) RawHours() []float64 {
	out := make([]float64, len(s.Seconds))
	for k := range out {
		out[k] = s.AverageHours(k)
	}
	return out
}

func (e *Engine) qualifyingSession(r models.TransactionRecord) bool {
	return r.ExpiresAt != nil && !e.Calendar.InExcluded(r.PurchasedAt)
}

// BucketedDuration credits each session's whole length to the cell containing
// its purchase time; sessions are never split across cells.
func (e *Engine) BucketedDuration(records []models.TransactionRecord, grid Grid) DurationSeries {
	n := grid.Len()
	series := DurationSeries{
		Seconds:  make([]float64, n),
		Sessions: make([]int, n),
	}

	for _, r := range records {
		if !e.qualifyingSession(r) {
			continue
		}
		k := grid.Locate(r.PurchasedAt)
		if k < 0 {
			continue
		}
		series.Seconds[k] += r.Duration().Seconds()
		series.Sessions[k]++
	}
	return series
}

// DurationHeatmap reports the mean session length per space in hours. A curb
// reports the mean of its members' averages, counting only members that had
// sessions.
func (e *Engine) DurationHeatmap(records []models.TransactionRecord, sel models.SpaceSelector) []models.HeatmapEntry {
	type tally struct {
		seconds  float64
		sessions int
	}
	tallies := make(map[string]*tally)
	for _, r := range records {
		if !e.qualifyingSession(r) {
			continue
		}
		t, ok := tallies[r.SpaceID]
		if !ok {
			t = &tally{}
			tallies[r.SpaceID] = t
		}
		t.seconds += r.Duration().Seconds()
		t.sessions++
	}

	entries := make([]models.HeatmapEntry, 0)
	for _, u := range units(sel, models.SortedKeys(tallies)) {
		var sum float64
		used := 0
		for _, member := range u.members {
			t, ok := tallies[member]
			if !ok || t.sessions == 0 {
				continue
			}
			sum += t.seconds / float64(t.sessions)
			used++
		}
		if used == 0 {
			used = 1
		}
		entries = append(entries, models.HeatmapEntry{
			Value: Round2(sum / float64(used) / time.Hour.Seconds()),
			Space: u.label,
		})
	}
	return entries
}
