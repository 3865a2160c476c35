package aggregation

import (
	"sort"
	"time"

	"github.com/pavement/pavement-api/internal/models"
)

// HourlyDayGrid builds the hourly grid of a day-of-week query: only boundaries
// on the requested parking day, closed one hour past the last of them.
func (c Calendar) HourlyDayGrid(rng models.TimeRange, day time.Weekday, skipExcluded bool) Grid {
	return c.BuildGrid(rng.Start, rng.End, GridOptions{
		Step:         time.Hour,
		IncludeEnd:   true,
		SkipExcluded: skipExcluded,
		Day:          &day,
	})
}

// Combine folds cells that share a date and a wall-clock key into one
// contribution. Keys repeat on the night clocks fall back.
type Combine int

const (
	// CombineMean averages repeated cells; for ratios and per-session averages.
	CombineMean Combine = iota
	// CombineSum adds repeated cells; for additive totals such as revenue.
	CombineSum
)

type dateContribution struct {
	sum   float64
	cells int
}

type timeOfDayBucket struct {
	dates map[string]*dateContribution
}

func (b *timeOfDayBucket) value(combine Combine) float64 {
	var total float64
	for _, d := range b.dates {
		if combine == CombineMean {
			total += d.sum / float64(d.cells)
		} else {
			total += d.sum
		}
	}
	return total / float64(len(b.dates))
}

// Rollup re-keys a bucketed series by local time of day. Each key reports the
// mean of its per-date contributions; cells repeating a key within one date are
// folded with combine first. Keys inside the carry-over window are moved to the
// end so the series reads as one parking day.
func (e *Engine) Rollup(grid Grid, values []float64, combine Combine) []models.DayPoint {
	loc := e.Calendar.location()
	buckets := make(map[time.Duration]*timeOfDayBucket)
	for k := 0; k < grid.Len() && k < len(values); k++ {
		start := grid.Boundaries[k]
		key := e.Calendar.TimeOfDay(start).Truncate(time.Minute)
		b, ok := buckets[key]
		if !ok {
			b = &timeOfDayBucket{dates: make(map[string]*dateContribution)}
			buckets[key] = b
		}
		date := start.In(loc).Format("2006-01-02")
		d, ok := b.dates[date]
		if !ok {
			d = &dateContribution{}
			b.dates[date] = d
		}
		d.sum += values[k]
		d.cells++
	}

	keys := make([]time.Duration, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	if len(keys) > 2 {
		var daytime, carried []time.Duration
		for _, key := range keys {
			if e.Calendar.CarryOver.Contains(key) {
				carried = append(carried, key)
			} else {
				daytime = append(daytime, key)
			}
		}
		keys = append(daytime, carried...)
	}

	step := grid.Step
	if step <= 0 {
		step = time.Hour
	}
	points := make([]models.DayPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, models.DayPoint{
			Timestamp: clockLabel(key) + "-" + clockLabel(key+step),
			Value:     Round2(buckets[key].value(combine)),
		})
	}
	return points
}

// clockLabel formats a time-of-day offset as "9:00AM".
func clockLabel(offset time.Duration) string {
	offset %= 24 * time.Hour
	return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Add(offset).Format("3:04PM")
}
