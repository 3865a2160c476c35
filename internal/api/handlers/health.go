package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var startTime = time.Now()

// HealthChecker is implemented by the database and Redis clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db    HealthChecker
	redis HealthChecker
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	System    *SystemStatus     `json:"system,omitempty"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// SystemStatus is the host load reported next to the service checks.
type SystemStatus struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUPercent        float64 `json:"cpu_percent"`
}

// NewHealthHandler creates the health handler. A nil redis means the response
// cache is disabled and is reported as such.
func NewHealthHandler(db HealthChecker, redis HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := map[string]string{
		"database": checkStatus(ctx, h.db),
		"redis":    "disabled",
	}
	if h.redis != nil {
		services["redis"] = checkStatus(ctx, h.redis)
	}

	overallStatus := "healthy"
	for _, status := range services {
		if status != "healthy" && status != "disabled" {
			overallStatus = "unhealthy"
			break
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		System:    systemStatus(ctx),
		Version:   os.Getenv("APP_VERSION"),
		Uptime:    time.Since(startTime).String(),
	}

	if overallStatus == "healthy" {
		c.JSON(http.StatusOK, response)
		return
	}
	c.JSON(http.StatusServiceUnavailable, response)
}

// ReadinessCheck handles GET /ready. Only the database gates readiness.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if status := checkStatus(c.Request.Context(), h.db); status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ready":    false,
			"services": gin.H{"database": "not ready"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ready":    true,
		"services": gin.H{"database": "ready"},
	})
}

// LivenessCheck handles GET /live.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"uptime": time.Since(startTime).String(),
	})
}

func checkStatus(ctx context.Context, checker HealthChecker) string {
	if checker == nil {
		return "unhealthy: not configured"
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

// systemStatus samples host memory and CPU. A zero interval compares against
// the previous sample, so the first call may report 0 CPU.
func systemStatus(ctx context.Context) *SystemStatus {
	status := &SystemStatus{}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemoryUsedPercent = vm.UsedPercent
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	return status
}
