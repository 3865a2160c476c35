// Package aggregation turns parking transactions into occupancy, revenue and
// session-duration metrics over adaptive time grids.
package aggregation

import (
	"github.com/shopspring/decimal"

	"github.com/pavement/pavement-api/internal/models"
)

// Engine runs the aggregations for one metered area. It is immutable and safe
// for concurrent use.
type Engine struct {
	Calendar Calendar
	// TotalSpaces is the space count used when a query does not name spaces.
	TotalSpaces int
}

// NewEngine creates an engine for the given calendar and default space count.
func NewEngine(cal Calendar, totalSpaces int) *Engine {
	return &Engine{Calendar: cal, TotalSpaces: totalSpaces}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// safeDiv divides, degrading to zero on an empty denominator.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// units expands a selector into reporting units: one per requested space, one
// per curb, or one per space seen in the data when unconstrained.
func units(sel models.SpaceSelector, seen []string) []unit {
	switch sel.Kind {
	case models.SelectorGrouped:
		out := make([]unit, 0, len(sel.Curbs))
		for _, curb := range sel.Curbs {
			out = append(out, unit{members: curb, label: curb})
		}
		return out
	case models.SelectorFlat:
		ids := sel.IDs()
		out := make([]unit, 0, len(ids))
		for _, id := range ids {
			out = append(out, unit{members: []string{id}, label: id})
		}
		return out
	default:
		out := make([]unit, 0, len(seen))
		for _, id := range seen {
			out = append(out, unit{members: []string{id}, label: id})
		}
		return out
	}
}

type unit struct {
	members []string
	label   any
}
