package models

import (
	"sort"
	"time"
)

// Metric identifies which aggregation a query asks for.
type Metric string

const (
	MetricOccupancy Metric = "occupancy"
	MetricRevenue   Metric = "revenue"
	MetricDuration  Metric = "time"
)

// Mode selects the output shape of a query.
type Mode string

const (
	ModeBucketed Mode = "bucketed"
	ModeHeatmap  Mode = "heatmap"
	ModeDay      Mode = "day"
)

// TimeRange is a half-open [Start, End) query window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Empty reports whether the range covers no time at all.
func (r TimeRange) Empty() bool {
	return !r.Start.Before(r.End)
}

// SelectorKind tags the shape of a SpaceSelector.
type SelectorKind int

const (
	// SelectorAll places no constraint on spaces.
	SelectorAll SelectorKind = iota
	// SelectorFlat selects individual spaces.
	SelectorFlat
	// SelectorGrouped selects curbs, each reported as one unit.
	SelectorGrouped
)

// SpaceSelector is decided once when a request is parsed; aggregators branch on
// Kind instead of re-inspecting the request body.
type SpaceSelector struct {
	Kind   SelectorKind `json:"kind"`
	Spaces []string     `json:"spaces,omitempty"`
	Curbs  [][]string   `json:"curbs,omitempty"`
}

// AllSpaces returns an unconstrained selector.
func AllSpaces() SpaceSelector {
	return SpaceSelector{Kind: SelectorAll}
}

// FlatSpaces returns a selector over individual spaces.
func FlatSpaces(ids ...string) SpaceSelector {
	return SpaceSelector{Kind: SelectorFlat, Spaces: ids}
}

// GroupedSpaces returns a selector over curbs.
func GroupedSpaces(curbs ...[]string) SpaceSelector {
	return SpaceSelector{Kind: SelectorGrouped, Curbs: curbs}
}

// Constrained reports whether the selector limits the spaces queried.
func (s SpaceSelector) Constrained() bool {
	return s.Kind != SelectorAll
}

// IDs returns the distinct space ids referenced by the selector, in first-seen order.
func (s SpaceSelector) IDs() []string {
	switch s.Kind {
	case SelectorFlat:
		return dedupe(s.Spaces)
	case SelectorGrouped:
		var all []string
		for _, curb := range s.Curbs {
			all = append(all, curb...)
		}
		return dedupe(all)
	default:
		return nil
	}
}

// SpaceCount returns the number of spaces the selector covers, falling back to
// total when the selector is unconstrained.
func (s SpaceSelector) SpaceCount(total int) int {
	if !s.Constrained() {
		return total
	}
	return len(s.IDs())
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SortedKeys returns map keys in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParkingQuery is the parsed form of an analytics request.
type ParkingQuery struct {
	Metric   Metric        `json:"metric"`
	Mode     Mode          `json:"mode"`
	Range    TimeRange     `json:"range"`
	Selector SpaceSelector `json:"selector"`
	Day      *time.Weekday `json:"day,omitempty"`
}
