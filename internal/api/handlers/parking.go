package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pavement/pavement-api/internal/middleware"
	"github.com/pavement/pavement-api/internal/models"
	"github.com/pavement/pavement-api/internal/utils"
)

const maxRequestBody = 1 << 20

// ParkingQuerier answers parking analytics queries.
type ParkingQuerier interface {
	Execute(ctx context.Context, query models.ParkingQuery) (any, error)
	ListSpaces(ctx context.Context) ([]string, error)
}

type ParkingHandler struct {
	service ParkingQuerier
	logger  *logrus.Logger
}

// ParkingRequest is the body accepted by every parking endpoint. Both fields
// are optional. parking_spaces is either a list of space ids or a list of curbs,
// each a list of space ids.
type ParkingRequest struct {
	DatetimeRange *models.DatetimeRangeRequest `json:"datetime_range"`
	ParkingSpaces json.RawMessage              `json:"parking_spaces"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewParkingHandler(service ParkingQuerier, logger *logrus.Logger) *ParkingHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ParkingHandler{service: service, logger: logger}
}

// GetOccupancy handles POST /parking-occupancy. ?heatmap=true returns one
// entry per space or curb and ?day=<weekday> the hourly day rollup.
func (h *ParkingHandler) GetOccupancy(c *gin.Context) {
	h.handle(c, models.MetricOccupancy, "heatmap")
}

// GetRevenue handles POST /parking-revenue. ?sum=true returns the total per
// space or curb.
func (h *ParkingHandler) GetRevenue(c *gin.Context) {
	h.handle(c, models.MetricRevenue, "sum")
}

// GetTime handles POST /parking-time, the mean session length in hours.
func (h *ParkingHandler) GetTime(c *gin.Context) {
	h.handle(c, models.MetricDuration, "heatmap")
}

// GetParkingSpaces handles GET /parking-spaces.
func (h *ParkingHandler) GetParkingSpaces(c *gin.Context) {
	spaces, err := h.service.ListSpaces(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": spaces})
}

func (h *ParkingHandler) handle(c *gin.Context, metric models.Metric, summaryParam string) {
	query, err := BuildQuery(c, metric, summaryParam)
	if err != nil {
		h.fail(c, err)
		return
	}

	middleware.AddSpanAttribute(c, "parking.metric", string(metric))
	middleware.AddSpanAttribute(c, "parking.mode", string(query.Mode))

	resp, err := h.service.Execute(c.Request.Context(), query)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ParkingHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if status := errorStatus(err); status < http.StatusInternalServerError {
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	middleware.RecordError(c, err, "parking query failed")
	h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"path":       c.Request.URL.Path,
	}).Error("Parking request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// BuildQuery parses the body and query string of a parking request. The day
// parameter takes precedence over the summary parameter.
func BuildQuery(c *gin.Context, metric models.Metric, summaryParam string) (models.ParkingQuery, error) {
	query := models.ParkingQuery{Metric: metric, Mode: models.ModeBucketed}

	// An empty body selects every space over the default range.
	var req ParkingRequest
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody)
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return query, utils.NewValidationErrorf("invalid request body: %v", err)
		}
	}

	rng, err := ParseRange(req.DatetimeRange)
	if err != nil {
		return query, err
	}
	query.Range = rng

	selector, err := ParseSelector(req.ParkingSpaces)
	if err != nil {
		return query, err
	}
	query.Selector = selector

	if day := c.Query("day"); day != "" {
		weekday, err := utils.ParseWeekday(day)
		if err != nil {
			return query, err
		}
		query.Mode = models.ModeDay
		query.Day = &weekday
	} else if flagSet(c.Query(summaryParam)) {
		query.Mode = models.ModeHeatmap
	}
	return query, nil
}

// ParseRange parses the optional datetime range. Missing bounds stay zero and
// are filled with the configured default range by the service.
func ParseRange(raw *models.DatetimeRangeRequest) (models.TimeRange, error) {
	var rng models.TimeRange
	if raw == nil {
		return rng, nil
	}
	if raw.Start != "" {
		start, err := utils.ParseDateTime("datetime_range.start", raw.Start)
		if err != nil {
			return rng, err
		}
		rng.Start = start
	}
	if raw.End != "" {
		end, err := utils.ParseDateTime("datetime_range.end", raw.End)
		if err != nil {
			return rng, err
		}
		rng.End = end
	}
	return rng, nil
}

// ParseSelector decides the selector kind once, from the first element: a
// string makes a flat list of spaces, a list makes a list of curbs.
func ParseSelector(raw json.RawMessage) (models.SpaceSelector, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.AllSpaces(), nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return models.SpaceSelector{}, utils.NewFieldError("parking_spaces", "must be a list")
	}
	if len(items) == 0 {
		return models.AllSpaces(), nil
	}

	if first := bytes.TrimSpace(items[0]); len(first) > 0 && first[0] == '[' {
		curbs := make([][]string, 0, len(items))
		for i, item := range items {
			var curb []string
			if err := json.Unmarshal(item, &curb); err != nil {
				return models.SpaceSelector{}, utils.NewFieldError("parking_spaces", "curb %d must be a list of space ids", i)
			}
			if len(curb) == 0 {
				return models.SpaceSelector{}, utils.NewFieldError("parking_spaces", "curb %d is empty", i)
			}
			curbs = append(curbs, curb)
		}
		return models.GroupedSpaces(curbs...), nil
	}

	spaces := make([]string, 0, len(items))
	for i, item := range items {
		var id string
		if err := json.Unmarshal(item, &id); err != nil {
			return models.SpaceSelector{}, utils.NewFieldError("parking_spaces", "element %d must be a space id", i)
		}
		spaces = append(spaces, id)
	}
	return models.FlatSpaces(spaces...), nil
}

func flagSet(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

// errorStatus maps an error to its HTTP status.
func errorStatus(err error) int {
	var validation *utils.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
