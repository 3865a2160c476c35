package aggregation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavement/pavement-api/internal/models"
)

func TestBucketedOccupancy_SingleSession(t *testing.T) {
	engine := NewEngine(openCalendar(), 3693)
	grid := engine.Calendar.BuildGrid(ts(t, "2021-06-01T08:00:00Z"), ts(t, "2021-06-01T11:00:00Z"), GridOptions{IncludeEnd: true})
	timeline := Squash([]models.TransactionRecord{
		session(t, "A1", "2021-06-01T09:00:00Z", "2021-06-01T10:30:00Z"),
	})

	series := engine.BucketedOccupancy(timeline, grid, models.FlatSpaces("A1"))

	assert.Equal(t, []float64{3600, 3600, 3600}, series.Capacity)
	assert.Equal(t, []float64{0, 3600, 1800}, series.Occupied)
	assert.Equal(t, []float64{0.0, 1.0, 0.5}, series.Ratios())
}

func TestBucketedOccupancy_UsesTotalSpacesWhenUnconstrained(t *testing.T) {
	engine := NewEngine(openCalendar(), 4)
	grid := engine.Calendar.BuildGrid(ts(t, "2021-06-01T08:00:00Z"), ts(t, "2021-06-01T09:00:00Z"), GridOptions{IncludeEnd: true})
	timeline := Squash([]models.TransactionRecord{
		session(t, "A1", "2021-06-01T08:00:00Z", "2021-06-01T09:00:00Z"),
	})

	series := engine.BucketedOccupancy(timeline, grid, models.AllSpaces())

	assert.Equal(t, []float64{0.25}, series.Ratios())
}

func TestBucketedOccupancy_GroupedCountsMembers(t *testing.T) {
	engine := NewEngine(openCalendar(), 3693)
	grid := engine.Calendar.BuildGrid(ts(t, "2021-06-01T08:00:00Z"), ts(t, "2021-06-01T09:00:00Z"), GridOptions{IncludeEnd: true})
	timeline := Squash([]models.TransactionRecord{
		session(t, "A1", "2021-06-01T08:00:00Z", "2021-06-01T09:00:00Z"),
	})

	series := engine.BucketedOccupancy(timeline, grid, models.GroupedSpaces([]string{"A1", "A2"}, []string{"B1", "B2"}))

	assert.Equal(t, []float64{0.25}, series.Ratios())
}

func TestBucketedOccupancy_ExcludedWindowNeverCounts(t *testing.T) {
	engine := NewEngine(meteredCalendar(t), 3693)
	grid := engine.Calendar.BuildGrid(ts(t, "2021-06-01T04:00:00Z"), ts(t, "2021-06-02T04:00:00Z"), GridOptions{
		IncludeEnd:   true,
		SkipExcluded: true,
	})
	// 01:00 to 10:00 local, straight through the excluded window.
	timeline := Squash([]models.TransactionRecord{
		session(t, "A1", "2021-06-01T05:00:00Z", "2021-06-01T14:00:00Z"),
	})

	ratios := engine.BucketedOccupancy(timeline, grid, models.FlatSpaces("A1")).Ratios()

	require.Len(t, ratios, 17)
	assert.Equal(t, 0.0, ratios[0])
	assert.Equal(t, 1.0, ratios[1])
	assert.Equal(t, 1.0, ratios[2])
	assert.Equal(t, 0.0, ratios[3])
}

func TestBucketedOccupancy_EmptyData(t *testing.T) {
	engine := NewEngine(openCalendar(), 3693)
	grid := engine.Calendar.BuildGrid(ts(t, "2021-06-01T08:00:00Z"), ts(t, "2021-06-01T11:00:00Z"), GridOptions{IncludeEnd: true})

	assert.Equal(t, []float64{0, 0, 0}, engine.BucketedOccupancy(Timeline{}, grid, models.FlatSpaces("A1")).Ratios())
	assert.Empty(t, engine.BucketedOccupancy(Timeline{}, Grid{}, models.FlatSpaces("A1")).Ratios())
}

func TestBucketedOccupancy_SingleSpaceBounded(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, cal := range []Calendar{openCalendar(), meteredCalendar(t)} {
		engine := NewEngine(cal, 3693)
		start := ts(t, "2021-06-01T00:00:00Z")
		grid := cal.BuildGrid(start, start.Add(60*time.Hour), GridOptions{IncludeEnd: true, SkipExcluded: true})

		var records []models.TransactionRecord
		cursor := start.Add(-2 * time.Hour)
		for i := 0; i < 80; i++ {
			cursor = cursor.Add(time.Duration(r.Intn(60)) * time.Minute)
			end := cursor.Add(time.Duration(5+r.Intn(300)) * time.Minute)
			records = append(records, models.TransactionRecord{SpaceID: "S", PurchasedAt: cursor, ExpiresAt: &end})
		}
		timeline := Squash(records)

		for k, ratio := range engine.BucketedOccupancy(timeline, grid, models.FlatSpaces("S")).Ratios() {
			assert.GreaterOrEqual(t, ratio, 0.0, "cell %d", k)
			assert.LessOrEqual(t, ratio, 1.0, "cell %d", k)
		}
		for _, entry := range engine.OccupancyHeatmap(timeline, models.TimeRange{Start: start, End: start.Add(60 * time.Hour)}, models.FlatSpaces("S")) {
			assert.GreaterOrEqual(t, entry.Value, 0.0)
			assert.LessOrEqual(t, entry.Value, 1.0)
		}
	}
}

func TestOccupancyHeatmap_Flat(t *testing.T) {
	engine := NewEngine(openCalendar(), 3693)
	rng := models.TimeRange{Start: ts(t, "2021-06-01T08:00:00Z"), End: ts(t, "2021-06-01T11:00:00Z")}
	timeline := Squash([]models.TransactionRecord{
		session(t, "A1", "2021-06-01T07:00:00Z", "2021-06-01T08:30:00Z"),
		session(t, "A1", "2021-06-01T09:00:00Z", "2021-06-01T10:30:00Z"),
	})

	entries := engine.OccupancyHeatmap(timeline, rng, models.FlatSpaces("A1", "Z9"))

	assert.Equal(t, []models.HeatmapEntry{
		{Value: 0.67, Space: "A1"},
		{Value: 0, Space: "Z9"},
	}, entries)
}

func TestOccupancyHeatmap_Unconstrained(t *testing.T) {
	engine := NewEngine(openCalendar(), 3693)
	rng := models.TimeRange{Start: ts(t, "2021-06-01T08:00:00Z"), End: ts(t, "2021-06-01T10:00:00Z")}
	timeline := Squash([]models.TransactionRecord{
		session(t, "B", "2021-06-01T08:00:00Z", "2021-06-01T10:00:00Z"),
		session(t, "A", "2021-06-01T08:00:00Z", "2021-06-01T09:00:00Z"),
	})

	entries := engine.OccupancyHeatmap(timeline, rng, models.AllSpaces())

	assert.Equal(t, []models.HeatmapEntry{
		{Value: 0.5, Space: "A"},
		{Value: 1, Space: "B"},
	}, entries)
}

func TestOccupancyHeatmap_Curbs(t *testing.T) {
	engine := NewEngine(openCalendar(), 3693)
	rng := models.TimeRange{Start: ts(t, "2021-06-01T08:00:00Z"), End: ts(t, "2021-06-01T11:00:00Z")}
	timeline := Squash([]models.TransactionRecord{
		session(t, "A1", "2021-06-01T09:00:00Z", "2021-06-01T10:30:00Z"),
	})
	curb := []string{"A1", "Z9"}

	entries := engine.OccupancyHeatmap(timeline, rng, models.GroupedSpaces(curb, []string{"Q1"}))

	assert.Equal(t, []models.HeatmapEntry{
		{Value: 0.25, Space: curb},
		{Value: 0, Space: []string{"Q1"}},
	}, entries)
}
