package models

import "time"

// SeriesPoint is one grid cell of a bucketed series.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SeriesResponse is the bucketed series payload.
type SeriesResponse struct {
	Data []SeriesPoint `json:"data"`
}

// HeatmapEntry is one space or curb in a whole-range summary. Space holds a space
// id for flat selectors and the member list for curbs.
type HeatmapEntry struct {
	Value float64 `json:"value"`
	Space any     `json:"space"`
}

// HeatmapResponse is the whole-range summary payload.
type HeatmapResponse struct {
	Data []HeatmapEntry `json:"data"`
}

// DayPoint is one time-of-day bucket of a day-of-week rollup, labelled
// like "9:00AM-10:00AM".
type DayPoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// DayResponse is the day-of-week rollup payload.
type DayResponse struct {
	Data []DayPoint `json:"data"`
}

// DatetimeRangeRequest is the raw date window of a request body.
type DatetimeRangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
