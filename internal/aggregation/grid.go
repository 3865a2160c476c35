package aggregation

import (
	"sort"
	"time"
)

const (
	hourlyRangeLimit = 3 * 24 * time.Hour
	dailyRangeLimit  = 31 * 24 * time.Hour
	week             = 7 * 24 * time.Hour
)

// GranularityFor picks the bucket width for a query range: hourly up to three
// days, daily up to 31 days, weekly beyond.
func GranularityFor(d time.Duration) time.Duration {
	switch {
	case d <= hourlyRangeLimit:
		return time.Hour
	case d <= dailyRangeLimit:
		return 24 * time.Hour
	default:
		return week
	}
}

// GridOptions controls how a Grid is laid over a range.
type GridOptions struct {
	// Step is the bucket width; zero selects it from the range length.
	Step time.Duration
	// IncludeEnd closes the grid on the range end so the last cell ends there.
	IncludeEnd bool
	// SkipExcluded drops boundaries that fall inside the excluded window.
	SkipExcluded bool
	// Day keeps only boundaries on that parking day.
	Day *time.Weekday
}

// Grid is a strictly increasing sequence of bucket boundaries. Cell k spans
// [Boundaries[k], Boundaries[k+1]). On a day-filtered grid a cell never reaches
// past start+Step, so the days between two matching parking days are not part of
// any cell.
type Grid struct {
	Boundaries []time.Time
	Step       time.Duration
	clamp      bool
}

// BuildGrid lays a grid over [start, end) following the calendar's rules.
func (c Calendar) BuildGrid(start, end time.Time, opts GridOptions) Grid {
	step := opts.Step
	if step <= 0 {
		step = GranularityFor(end.Sub(start))
	}
	grid := Grid{Step: step, clamp: opts.Day != nil}
	if !start.Before(end) {
		return grid
	}

	var boundaries []time.Time
	for cur := start; cur.Before(end) || (opts.IncludeEnd && cur.Equal(end)); cur = cur.Add(step) {
		if opts.SkipExcluded && c.InExcluded(cur) {
			continue
		}
		if opts.Day != nil && c.ParkingDay(cur) != *opts.Day {
			continue
		}
		boundaries = append(boundaries, cur)
	}

	if opts.IncludeEnd && len(boundaries) > 0 {
		last := boundaries[len(boundaries)-1]
		if !last.Equal(end) {
			if opts.Day == nil {
				boundaries = append(boundaries, end)
			} else {
				boundaries = append(boundaries, last.Add(step))
			}
		}
	}

	grid.Boundaries = boundaries
	return grid
}

// Len returns the number of cells.
func (g Grid) Len() int {
	if len(g.Boundaries) < 2 {
		return 0
	}
	return len(g.Boundaries) - 1
}

// Cell returns the bounds of cell k.
func (g Grid) Cell(k int) (time.Time, time.Time) {
	start, end := g.Boundaries[k], g.Boundaries[k+1]
	if g.clamp && end.Sub(start) > g.Step {
		end = start.Add(g.Step)
	}
	return start, end
}

// CellStarts returns the start instant of every cell.
func (g Grid) CellStarts() []time.Time {
	starts := make([]time.Time, g.Len())
	copy(starts, g.Boundaries)
	return starts
}

// Locate returns the cell containing t, or -1.
func (g Grid) Locate(t time.Time) int {
	n := g.Len()
	i := sort.Search(len(g.Boundaries), func(i int) bool {
		return g.Boundaries[i].After(t)
	})
	k := i - 1
	if k < 0 || k >= n {
		return -1
	}
	if _, end := g.Cell(k); !t.Before(end) {
		return -1
	}
	return k
}

// Span returns the first and last cells overlapping [start, end), or ok=false.
func (g Grid) Span(start, end time.Time) (first, last int, ok bool) {
	n := g.Len()
	first = sort.Search(n, func(k int) bool {
		_, cellEnd := g.Cell(k)
		return cellEnd.After(start)
	})
	last = sort.Search(n, func(k int) bool {
		return !g.Boundaries[k].Before(end)
	}) - 1
	return first, last, first < n && last >= first
}
