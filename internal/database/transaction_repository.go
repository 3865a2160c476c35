package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pavement/pavement-api/internal/models"
)

// Querier is the read-only subset of pgxpool.Pool the repository needs.
// pgxmock.PgxPoolIface satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const transactionsTable = "ap_transactions"

// TransactionRepository reads parking-meter transactions.
type TransactionRepository struct {
	db     Querier
	logger *logrus.Logger
}

// NewTransactionRepository creates a repository over a pool or any Querier.
func NewTransactionRepository(db Querier, logger *logrus.Logger) *TransactionRepository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TransactionRepository{db: db, logger: logger}
}

// FindSessions returns sessions overlapping rng: expiry after the range start
// and purchase before the range end. Rows are ordered by purchase time. An empty
// spaces slice places no constraint on stalls.
func (r *TransactionRepository) FindSessions(ctx context.Context, rng models.TimeRange, spaces []string) ([]models.TransactionRecord, error) {
	query, args := buildQuery(
		"stall, purchased_date, expiry_date",
		"expiry_date > $1 AND purchased_date < $2",
		rng, spaces,
	)

	return r.collect(ctx, "find_sessions", query, args, func(rows pgx.Rows) (models.TransactionRecord, error) {
		var (
			record  models.TransactionRecord
			expires *time.Time
		)
		if err := rows.Scan(&record.SpaceID, &record.PurchasedAt, &expires); err != nil {
			return record, err
		}
		record.ExpiresAt = expires
		return record, nil
	})
}

// FindPurchases returns transactions purchased inside rng, with expiry and
// revenue. Rows are ordered by purchase time.
func (r *TransactionRepository) FindPurchases(ctx context.Context, rng models.TimeRange, spaces []string) ([]models.TransactionRecord, error) {
	query, args := buildQuery(
		"stall, purchased_date, expiry_date, revenue",
		"purchased_date >= $1 AND purchased_date < $2",
		rng, spaces,
	)

	return r.collect(ctx, "find_purchases", query, args, func(rows pgx.Rows) (models.TransactionRecord, error) {
		var (
			record  models.TransactionRecord
			expires *time.Time
			revenue decimal.NullDecimal
		)
		if err := rows.Scan(&record.SpaceID, &record.PurchasedAt, &expires, &revenue); err != nil {
			return record, err
		}
		record.ExpiresAt = expires
		record.Revenue = revenue
		return record, nil
	})
}

// ListSpaces returns every distinct stall id, sorted.
func (r *TransactionRepository) ListSpaces(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT stall FROM %s WHERE stall IS NOT NULL ORDER BY stall", transactionsTable)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list parking spaces: %w", err)
	}
	defer rows.Close()

	spaces := make([]string, 0)
	for rows.Next() {
		var stall string
		if err := rows.Scan(&stall); err != nil {
			return nil, fmt.Errorf("failed to scan parking space: %w", err)
		}
		spaces = append(spaces, stall)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parking spaces: %w", err)
	}
	return spaces, nil
}

func buildQuery(columns, window string, rng models.TimeRange, spaces []string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s", columns, transactionsTable, window)
	args := []any{rng.Start, rng.End}
	if len(spaces) > 0 {
		b.WriteString(" AND stall = ANY($3)")
		args = append(args, spaces)
	}
	b.WriteString(" ORDER BY purchased_date")
	return b.String(), args
}

func (r *TransactionRepository) collect(
	ctx context.Context,
	operation, query string,
	args []any,
	scan func(pgx.Rows) (models.TransactionRecord, error),
) ([]models.TransactionRecord, error) {
	start := time.Now()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	records := make([]models.TransactionRecord, 0)
	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"operation":   operation,
		"table":       transactionsTable,
		"rows":        len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Loaded transactions")

	return records, nil
}
