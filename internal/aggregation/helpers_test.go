package aggregation

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pavement/pavement-api/internal/models"
)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// meteredCalendar is the production layout: nothing metered 02:00-09:00 local,
// and 00:00-02:00 belongs to the previous parking day.
func meteredCalendar(t *testing.T) Calendar {
	t.Helper()
	excluded, err := NewClockWindow("02:00", "09:00")
	require.NoError(t, err)
	carry, err := NewClockWindow("00:00", "02:00")
	require.NoError(t, err)
	return Calendar{Location: newYork(t), Excluded: excluded, CarryOver: carry}
}

func openCalendar() Calendar {
	return Calendar{Location: time.UTC}
}

func session(t *testing.T, space, start, end string) models.TransactionRecord {
	t.Helper()
	expires := ts(t, end)
	return models.TransactionRecord{SpaceID: space, PurchasedAt: ts(t, start), ExpiresAt: &expires}
}

func payment(t *testing.T, space, at string, amount string) models.TransactionRecord {
	t.Helper()
	return models.TransactionRecord{
		SpaceID:     space,
		PurchasedAt: ts(t, at),
		Revenue:     decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
}
