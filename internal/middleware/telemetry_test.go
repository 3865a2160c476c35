package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(t.Context())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value
	}
	return out
}

func TestHealthCheckTelemetryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := installRecorder(t)

	router := gin.New()
	router.GET("/health", HealthCheckTelemetryMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Health /health", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, int64(503), attrs["http.status_code"].AsInt64())
	assert.Equal(t, "server_error", attrs["health.status"].AsString())
	assert.Equal(t, "health_check", attrs["span.type"].AsString())
}

func TestSpanHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := installRecorder(t)

	router := gin.New()
	router.GET("/parking", HealthCheckTelemetryMiddleware(), func(c *gin.Context) {
		AddSpanAttribute(c, "parking.metric", "occupancy")
		AddSpanAttribute(c, "parking.spaces", []string{"A1", "B2"})
		AddSpanAttribute(c, "parking.cells", 3)
		AddSpanAttribute(c, "parking.rows", int64(12))
		AddSpanAttribute(c, "parking.ratio", 0.5)
		AddSpanAttribute(c, "parking.heatmap", true)
		AddSpanAttribute(c, "parking.other", struct{ X int }{1})
		RecordError(c, errors.New("boom"), "query failed")
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/parking", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "occupancy", attrs["parking.metric"].AsString())
	assert.Equal(t, []string{"A1", "B2"}, attrs["parking.spaces"].AsStringSlice())
	assert.Equal(t, int64(3), attrs["parking.cells"].AsInt64())
	assert.Equal(t, int64(12), attrs["parking.rows"].AsInt64())
	assert.Equal(t, 0.5, attrs["parking.ratio"].AsFloat64())
	assert.True(t, attrs["parking.heatmap"].AsBool())
	assert.Equal(t, "{1}", attrs["parking.other"].AsString())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestSpanHelpersWithoutSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/plain", func(c *gin.Context) {
		AddSpanAttribute(c, "key", "value")
		RecordError(c, errors.New("ignored"), "ignored")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetHealthStatusFromCode(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "healthy"},
		{204, "healthy"},
		{404, "client_error"},
		{500, "server_error"},
		{503, "server_error"},
		{302, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getHealthStatusFromCode(tt.code), "code %d", tt.code)
	}
}

func TestIsHealthPath(t *testing.T) {
	assert.True(t, IsHealthPath("/health"))
	assert.True(t, IsHealthPath("/ready"))
	assert.True(t, IsHealthPath("/live"))
	assert.False(t, IsHealthPath("/parking-occupancy"))
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-123", w.Body.String())
	})
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(RequestID(), RequestLogger(logger))
	router.POST("/parking-revenue", func(c *gin.Context) {
		_ = c.Error(errors.New("store down"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store down"})
	})

	req := httptest.NewRequest(http.MethodPost, "/parking-revenue", nil)
	req.Header.Set(RequestIDHeader, "abc")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/parking-revenue", entry["path"])
	assert.Equal(t, float64(500), entry["status"])
	assert.Contains(t, entry["errors"], "store down")
}
