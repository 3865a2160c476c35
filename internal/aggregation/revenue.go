package aggregation

import (
	"github.com/shopspring/decimal"

	"github.com/pavement/pavement-api/internal/models"
)

// countsTowardRevenue reports whether a record carries revenue that was taken
// during metered hours.
func (e *Engine) countsTowardRevenue(r models.TransactionRecord) bool {
	return r.Revenue.Valid && !e.Calendar.InExcluded(r.PurchasedAt)
}

// BucketedRevenue attributes each payment in full to the cell containing its
// purchase time. Payments outside every cell are ignored.
func (e *Engine) BucketedRevenue(records []models.TransactionRecord, grid Grid) []decimal.Decimal {
	buckets := make([]decimal.Decimal, grid.Len())
	for k := range buckets {
		buckets[k] = decimal.Zero
	}

	for _, r := range records {
		if !e.countsTowardRevenue(r) {
			continue
		}
		k := grid.Locate(r.PurchasedAt)
		if k < 0 {
			continue
		}
		buckets[k] = buckets[k].Add(r.Revenue.Decimal)
	}
	return buckets
}

// RevenueHeatmap sums revenue per space, or per curb for grouped selectors.
func (e *Engine) RevenueHeatmap(records []models.TransactionRecord, sel models.SpaceSelector) []models.HeatmapEntry {
	sums := make(map[string]decimal.Decimal)
	for _, r := range records {
		if !e.countsTowardRevenue(r) {
			continue
		}
		sums[r.SpaceID] = sums[r.SpaceID].Add(r.Revenue.Decimal)
	}

	entries := make([]models.HeatmapEntry, 0)
	for _, u := range units(sel, models.SortedKeys(sums)) {
		total := decimal.Zero
		for _, member := range u.members {
			total = total.Add(sums[member])
		}
		entries = append(entries, models.HeatmapEntry{
			Value: total.Round(2).InexactFloat64(),
			Space: u.label,
		})
	}
	return entries
}

// DecimalsToFloats converts revenue buckets for serialization.
func DecimalsToFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Round(2).InexactFloat64()
	}
	return out
}
