package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pavement/pavement-api/internal/api/handlers"
	"github.com/pavement/pavement-api/internal/middleware"
)

// SetupRoutes registers the health probes, the legacy top-level parking
// endpoints and their /api/v1 aliases.
func SetupRoutes(router *gin.Engine, parking *handlers.ParkingHandler, health *handlers.HealthHandler) {
	// Health check endpoints
	healthTelemetry := middleware.HealthCheckTelemetryMiddleware()
	router.GET("/health", healthTelemetry, health.HealthCheck)
	router.GET("/ready", healthTelemetry, health.ReadinessCheck)
	router.GET("/live", healthTelemetry, health.LivenessCheck)

	router.GET("/parking-spaces", parking.GetParkingSpaces)
	router.POST("/parking-occupancy", parking.GetOccupancy)
	router.POST("/parking-revenue", parking.GetRevenue)
	router.POST("/parking-time", parking.GetTime)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		p := v1.Group("/parking")
		{
			p.GET("/spaces", parking.GetParkingSpaces)
			p.POST("/occupancy", parking.GetOccupancy)
			p.POST("/revenue", parking.GetRevenue)
			p.POST("/time", parking.GetTime)
		}
	}
}
