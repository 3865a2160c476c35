package aggregation

import (
	"time"

	"github.com/pavement/pavement-api/internal/models"
)

// OccupancySeries holds the raw occupied-seconds and capacity of every cell.
type OccupancySeries struct {
	Occupied []float64
	Capacity []float64
}

// Ratio returns the unrounded utilization of cell k.
func (s OccupancySeries) Ratio(k int) float64 {
	return safeDiv(s.Occupied[k], s.Capacity[k])
}

// Ratios returns the utilization of every cell rounded to two decimals.
func (s OccupancySeries) Ratios() []float64 {
	out := make([]float64, len(s.Occupied))
	for k := range out {
		out[k] = Round2(s.Ratio(k))
	}
	return out
}

// RawRatios returns the unrounded utilization of every cell.
func (s OccupancySeries) RawRatios() []float64 {
	out := make([]float64, len(s.Occupied))
	for k := range out {
		out[k] = s.Ratio(k)
	}
	return out
}

// BucketedOccupancy splits every squashed interval across the grid cells it
// overlaps and normalizes each cell by its capacity. Time inside the excluded
// window is neither occupied nor available.
func (e *Engine) BucketedOccupancy(timeline Timeline, grid Grid, sel models.SpaceSelector) OccupancySeries {
	n := grid.Len()
	series := OccupancySeries{
		Occupied: make([]float64, n),
		Capacity: e.Calendar.CellCapacities(grid, sel.SpaceCount(e.TotalSpaces)),
	}
	if n == 0 {
		return series
	}

	for _, intervals := range timeline {
		for _, iv := range intervals {
			first, last, ok := grid.Span(iv.Start, iv.End)
			if !ok {
				continue
			}
			for k := first; k <= last; k++ {
				cellStart, cellEnd := grid.Cell(k)
				from := maxTime(cellStart, iv.Start)
				to := minTime(cellEnd, iv.End)
				series.Occupied[k] += e.Calendar.ActiveDuration(from, to).Seconds()
			}
		}
	}
	return series
}

// OccupancyHeatmap reports whole-range utilization per space, or per curb for
// grouped selectors. Requested spaces without data report zero.
func (e *Engine) OccupancyHeatmap(timeline Timeline, rng models.TimeRange, sel models.SpaceSelector) []models.HeatmapEntry {
	single := e.Calendar.CapacitySeconds(rng.Start, rng.End, 1)

	occupied := make(map[string]float64, len(timeline))
	for space, intervals := range timeline {
		occupied[space] = e.clippedSeconds(intervals, rng)
	}

	entries := make([]models.HeatmapEntry, 0)
	for _, u := range units(sel, models.SortedKeys(timeline)) {
		var total float64
		for _, member := range u.members {
			total += occupied[member]
		}
		entries = append(entries, models.HeatmapEntry{
			Value: Round2(safeDiv(total, single*float64(len(u.members)))),
			Space: u.label,
		})
	}
	return entries
}

func (e *Engine) clippedSeconds(intervals []Interval, rng models.TimeRange) float64 {
	var total time.Duration
	for _, iv := range intervals {
		from := maxTime(iv.Start, rng.Start)
		to := minTime(iv.End, rng.End)
		total += e.Calendar.ActiveDuration(from, to)
	}
	return total.Seconds()
}
