package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavement/pavement-api/internal/models"
)

// setupTestRedis creates a test Redis instance using miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		client.Close()
		s.Close()
	})
	return client, s
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func sampleQuery() models.ParkingQuery {
	return models.ParkingQuery{
		Metric: models.MetricOccupancy,
		Mode:   models.ModeBucketed,
		Range: models.TimeRange{
			Start: time.Date(2017, 3, 6, 8, 0, 0, 0, time.UTC),
			End:   time.Date(2017, 3, 6, 11, 0, 0, 0, time.UTC),
		},
		Selector: models.FlatSpaces("A1", "B2"),
	}
}

func TestKey(t *testing.T) {
	q := sampleQuery()
	key := Key(q)

	assert.True(t, strings.HasPrefix(key, "parking:occupancy:"))
	assert.Len(t, strings.TrimPrefix(key, "parking:occupancy:"), 64)
	assert.Equal(t, key, Key(q))

	t.Run("range zone does not matter", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)
		shifted := q
		shifted.Range = models.TimeRange{Start: q.Range.Start.In(ny), End: q.Range.End.In(ny)}
		assert.Equal(t, key, Key(shifted))
	})

	t.Run("mode changes key", func(t *testing.T) {
		heatmap := q
		heatmap.Mode = models.ModeHeatmap
		assert.NotEqual(t, key, Key(heatmap))
	})

	t.Run("day changes key", func(t *testing.T) {
		day := time.Monday
		withDay := q
		withDay.Mode = models.ModeDay
		withDay.Day = &day
		assert.NotEqual(t, key, Key(withDay))
	})

	t.Run("metric prefixes key", func(t *testing.T) {
		revenue := q
		revenue.Metric = models.MetricRevenue
		assert.True(t, strings.HasPrefix(Key(revenue), "parking:revenue:"))
	})
}

func TestResultCache_SetGet(t *testing.T) {
	client, s := setupTestRedis(t)
	c := NewResultCache(client, 10*time.Minute, testLogger())
	ctx := context.Background()
	q := sampleQuery()

	var miss models.SeriesResponse
	assert.False(t, c.Get(ctx, q, &miss))

	resp := models.SeriesResponse{Data: []models.SeriesPoint{
		{Timestamp: q.Range.Start, Value: 0},
		{Timestamp: q.Range.Start.Add(time.Hour), Value: 1},
		{Timestamp: q.Range.Start.Add(2 * time.Hour), Value: 0.5},
	}}
	c.Set(ctx, q, resp)

	assert.True(t, s.Exists(Key(q)))
	assert.Equal(t, 10*time.Minute, s.TTL(Key(q)))

	var hit models.SeriesResponse
	require.True(t, c.Get(ctx, q, &hit))
	require.Len(t, hit.Data, 3)
	assert.True(t, resp.Data[1].Timestamp.Equal(hit.Data[1].Timestamp))
	assert.Equal(t, 0.5, hit.Data[2].Value)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(0), stats.Errors)

	c.LogStats()
}

func TestResultCache_Expiry(t *testing.T) {
	client, s := setupTestRedis(t)
	c := NewResultCache(client, time.Minute, testLogger())
	ctx := context.Background()
	q := sampleQuery()

	c.Set(ctx, q, models.HeatmapResponse{Data: []models.HeatmapEntry{{Value: 0.25, Space: "A1"}}})
	s.FastForward(2 * time.Minute)

	var out models.HeatmapResponse
	assert.False(t, c.Get(ctx, q, &out))
}

func TestResultCache_CorruptEntry(t *testing.T) {
	client, s := setupTestRedis(t)
	c := NewResultCache(client, time.Minute, testLogger())
	q := sampleQuery()

	require.NoError(t, s.Set(Key(q), "not json"))

	var out models.SeriesResponse
	assert.False(t, c.Get(context.Background(), q, &out))
	assert.Equal(t, int64(1), c.GetStats().Errors)
}

func TestResultCache_RedisDown(t *testing.T) {
	client, s := setupTestRedis(t)
	c := NewResultCache(client, time.Minute, testLogger())
	q := sampleQuery()
	s.Close()

	var out models.SeriesResponse
	assert.False(t, c.Get(context.Background(), q, &out))
	c.Set(context.Background(), q, models.SeriesResponse{})

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.Errors)
	assert.Equal(t, int64(0), stats.Sets)
}

func TestResultCache_Disabled(t *testing.T) {
	client, s := setupTestRedis(t)
	ctx := context.Background()
	q := sampleQuery()

	var nilCache *ResultCache
	assert.False(t, nilCache.Enabled())

	noRedis := NewResultCache(nil, time.Minute, nil)
	assert.False(t, noRedis.Enabled())
	noRedis.Set(ctx, q, models.SeriesResponse{})
	var out models.SeriesResponse
	assert.False(t, noRedis.Get(ctx, q, &out))
	n, err := noRedis.Clear(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)

	zeroTTL := NewResultCache(client, 0, testLogger())
	assert.False(t, zeroTTL.Enabled())
	zeroTTL.Set(ctx, q, models.SeriesResponse{})
	assert.False(t, s.Exists(Key(q)))
}

func TestResultCache_Clear(t *testing.T) {
	client, s := setupTestRedis(t)
	c := NewResultCache(client, time.Minute, testLogger())
	ctx := context.Background()

	q := sampleQuery()
	c.Set(ctx, q, models.SeriesResponse{})
	q.Metric = models.MetricDuration
	c.Set(ctx, q, models.SeriesResponse{})
	require.NoError(t, s.Set("unrelated", "keep"))

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, s.Exists("unrelated"))

	n, err = c.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
