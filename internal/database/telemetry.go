package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/pavement/pavement-api/internal/telemetry"
)

// TracedQuerier wraps a Querier with a client span and a slow-query log per call.
type TracedQuerier struct {
	next          Querier
	tracer        trace.Tracer
	logger        *logrus.Logger
	slowThreshold time.Duration
}

// NewTracedQuerier wraps next. Queries slower than slowThreshold are logged at warn level.
func NewTracedQuerier(next Querier, logger *logrus.Logger, slowThreshold time.Duration) *TracedQuerier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TracedQuerier{
		next:          next,
		tracer:        telemetry.GetDatabaseTracer(),
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// Query runs the statement inside a "db.query" span.
func (q *TracedQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, span := q.tracer.Start(ctx, "db.query", trace.WithSpanKind(trace.SpanKindClient))
	telemetry.SetSpanAttributes(span,
		telemetry.StringAttribute("db.system", "postgresql"),
		telemetry.StringAttribute("db.operation", operationName(sql)),
		telemetry.StringAttribute("db.statement", sql),
		telemetry.Int64Attribute("db.args", int64(len(args))),
	)

	start := time.Now()
	rows, err := q.next.Query(ctx, sql, args...)
	elapsed := time.Since(start)
	telemetry.EndSpan(span, err)

	if q.slowThreshold > 0 && elapsed > q.slowThreshold {
		q.logger.WithFields(logrus.Fields{
			"statement":   sql,
			"duration_ms": elapsed.Milliseconds(),
		}).Warn("Slow query")
	}
	return rows, err
}

func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
