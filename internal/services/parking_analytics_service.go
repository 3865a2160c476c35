package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pavement/pavement-api/internal/aggregation"
	"github.com/pavement/pavement-api/internal/models"
	"github.com/pavement/pavement-api/internal/telemetry"
	"github.com/pavement/pavement-api/internal/utils"
)

// TransactionStore is the read side of the transaction repository.
type TransactionStore interface {
	FindSessions(ctx context.Context, rng models.TimeRange, spaces []string) ([]models.TransactionRecord, error)
	FindPurchases(ctx context.Context, rng models.TimeRange, spaces []string) ([]models.TransactionRecord, error)
	ListSpaces(ctx context.Context) ([]string, error)
}

// ResponseCache stores computed responses keyed by query.
type ResponseCache interface {
	Get(ctx context.Context, query models.ParkingQuery, dest any) bool
	Set(ctx context.Context, query models.ParkingQuery, value any)
}

// ParkingAnalyticsService runs parking queries end to end: grid, store, squash,
// aggregate and, for day queries, rollup.
type ParkingAnalyticsService struct {
	store        TransactionStore
	engine       *aggregation.Engine
	cache        ResponseCache
	defaultRange models.TimeRange
	logger       *logrus.Logger
}

// NewParkingAnalyticsService creates the service. cache may be nil.
func NewParkingAnalyticsService(
	store TransactionStore,
	engine *aggregation.Engine,
	cache ResponseCache,
	defaultRange models.TimeRange,
	logger *logrus.Logger,
) *ParkingAnalyticsService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ParkingAnalyticsService{
		store:        store,
		engine:       engine,
		cache:        cache,
		defaultRange: defaultRange,
		logger:       logger,
	}
}

// ResolveRange fills the missing bounds of rng from the default range.
func (s *ParkingAnalyticsService) ResolveRange(rng models.TimeRange) models.TimeRange {
	if rng.Start.IsZero() {
		rng.Start = s.defaultRange.Start
	}
	if rng.End.IsZero() {
		rng.End = s.defaultRange.End
	}
	return rng
}

// Execute answers query and returns a SeriesResponse, HeatmapResponse or
// DayResponse depending on its mode.
func (s *ParkingAnalyticsService) Execute(ctx context.Context, query models.ParkingQuery) (any, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	query.Range = s.ResolveRange(query.Range)

	ctx, span := telemetry.StartSpan(ctx, telemetry.GetAnalyticsTracer(), "parking.query",
		telemetry.StringAttribute("parking.metric", string(query.Metric)),
		telemetry.StringAttribute("parking.mode", string(query.Mode)),
		telemetry.StringAttribute("parking.range.start", query.Range.Start.Format(time.RFC3339)),
		telemetry.StringAttribute("parking.range.end", query.Range.End.Format(time.RFC3339)),
		telemetry.StringSliceAttribute("parking.spaces", query.Selector.IDs()),
	)

	if query.Range.Empty() {
		telemetry.EndSpan(span, nil)
		return emptyResponse(query.Mode), nil
	}

	cached := emptyResponse(query.Mode)
	if s.cache != nil && s.cache.Get(ctx, query, cached) {
		telemetry.SetSpanAttributes(span, telemetry.BoolAttribute("cache.hit", true))
		telemetry.EndSpan(span, nil)
		return cached, nil
	}

	start := time.Now()
	var (
		resp any
		err  error
	)
	switch query.Mode {
	case models.ModeHeatmap:
		resp, err = s.heatmap(ctx, query)
	case models.ModeDay:
		resp, err = s.day(ctx, query)
	default:
		resp, err = s.bucketed(ctx, query)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"metric": query.Metric,
			"mode":   query.Mode,
		}).Error("Parking query failed")
		telemetry.EndSpan(span, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"metric":      query.Metric,
		"mode":        query.Mode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Parking query completed")

	if s.cache != nil {
		s.cache.Set(ctx, query, resp)
	}
	telemetry.EndSpan(span, nil)
	return resp, nil
}

// ListSpaces returns every known stall id.
func (s *ParkingAnalyticsService) ListSpaces(ctx context.Context) ([]string, error) {
	spaces, err := s.store.ListSpaces(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list parking spaces")
		return nil, err
	}
	return spaces, nil
}

func validateQuery(query models.ParkingQuery) error {
	switch query.Metric {
	case models.MetricOccupancy, models.MetricRevenue, models.MetricDuration:
	default:
		return utils.NewFieldError("metric", "unknown metric %q", query.Metric)
	}
	switch query.Mode {
	case models.ModeBucketed, models.ModeHeatmap:
	case models.ModeDay:
		if query.Day == nil {
			return utils.NewFieldError("day", "day query without a day")
		}
	default:
		return utils.NewFieldError("mode", "unknown mode %q", query.Mode)
	}
	return nil
}

func emptyResponse(mode models.Mode) any {
	switch mode {
	case models.ModeHeatmap:
		return &models.HeatmapResponse{Data: []models.HeatmapEntry{}}
	case models.ModeDay:
		return &models.DayResponse{Data: []models.DayPoint{}}
	default:
		return &models.SeriesResponse{Data: []models.SeriesPoint{}}
	}
}

// load fetches the rows a metric needs: overlapping sessions for occupancy,
// purchases inside the range for revenue and duration.
func (s *ParkingAnalyticsService) load(ctx context.Context, query models.ParkingQuery) ([]models.TransactionRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetAnalyticsTracer(), "parking.load")
	var (
		records []models.TransactionRecord
		err     error
	)
	spaces := query.Selector.IDs()
	if query.Metric == models.MetricOccupancy {
		records, err = s.store.FindSessions(ctx, query.Range, spaces)
	} else {
		records, err = s.store.FindPurchases(ctx, query.Range, spaces)
	}
	if err != nil {
		err = fmt.Errorf("failed to load %s data: %w", query.Metric, err)
	}
	telemetry.SetSpanAttributes(span, telemetry.Int64Attribute("parking.rows", int64(len(records))))
	telemetry.EndSpan(span, err)
	return records, err
}

// grid lays the adaptive grid over the range. Cells start at range.Start and
// advance by an absolute 1h, 24h or 7d step; excluded boundaries are only
// skipped at the hourly step.
func (s *ParkingAnalyticsService) grid(rng models.TimeRange) aggregation.Grid {
	step := aggregation.GranularityFor(rng.Duration())
	return s.engine.Calendar.BuildGrid(rng.Start, rng.End, aggregation.GridOptions{
		Step:         step,
		IncludeEnd:   true,
		SkipExcluded: step < 24*time.Hour,
	})
}

// values runs the bucketed aggregator of the query's metric over grid.
func (s *ParkingAnalyticsService) values(records []models.TransactionRecord, grid aggregation.Grid, query models.ParkingQuery, raw bool) []float64 {
	switch query.Metric {
	case models.MetricOccupancy:
		series := s.engine.BucketedOccupancy(aggregation.Squash(records), grid, query.Selector)
		if raw {
			return series.RawRatios()
		}
		return series.Ratios()
	case models.MetricRevenue:
		return aggregation.DecimalsToFloats(s.engine.BucketedRevenue(records, grid))
	default:
		series := s.engine.BucketedDuration(records, grid)
		if raw {
			return series.RawHours()
		}
		return series.Hours()
	}
}

func (s *ParkingAnalyticsService) bucketed(ctx context.Context, query models.ParkingQuery) (*models.SeriesResponse, error) {
	grid := s.grid(query.Range)
	records, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}

	_, span := telemetry.StartSpan(ctx, telemetry.GetAnalyticsTracer(), "parking.aggregate",
		telemetry.Int64Attribute("parking.cells", int64(grid.Len())))
	defer span.End()

	values := s.values(records, grid, query, false)
	points := make([]models.SeriesPoint, 0, len(values))
	for k, start := range grid.CellStarts() {
		points = append(points, models.SeriesPoint{Timestamp: start, Value: values[k]})
	}
	return &models.SeriesResponse{Data: points}, nil
}

func (s *ParkingAnalyticsService) heatmap(ctx context.Context, query models.ParkingQuery) (*models.HeatmapResponse, error) {
	records, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}

	_, span := telemetry.StartSpan(ctx, telemetry.GetAnalyticsTracer(), "parking.aggregate")
	defer span.End()

	var entries []models.HeatmapEntry
	switch query.Metric {
	case models.MetricOccupancy:
		entries = s.engine.OccupancyHeatmap(aggregation.Squash(records), query.Range, query.Selector)
	case models.MetricRevenue:
		entries = s.engine.RevenueHeatmap(records, query.Selector)
	default:
		entries = s.engine.DurationHeatmap(records, query.Selector)
	}
	if entries == nil {
		entries = []models.HeatmapEntry{}
	}
	return &models.HeatmapResponse{Data: entries}, nil
}

func (s *ParkingAnalyticsService) day(ctx context.Context, query models.ParkingQuery) (*models.DayResponse, error) {
	grid := s.engine.Calendar.HourlyDayGrid(query.Range, *query.Day, true)
	records, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}

	_, span := telemetry.StartSpan(ctx, telemetry.GetAnalyticsTracer(), "parking.rollup",
		telemetry.Int64Attribute("parking.cells", int64(grid.Len())))
	defer span.End()

	combine := aggregation.CombineMean
	if query.Metric == models.MetricRevenue {
		combine = aggregation.CombineSum
	}
	points := s.engine.Rollup(grid, s.values(records, grid, query, true), combine)
	return &models.DayResponse{Data: points}, nil
}
