package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
)

var startTime = time.Now()

// HealthChecker is implemented by every dependency the health endpoints check.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db        HealthChecker
	redis     HealthChecker
	predictor HealthChecker
	version   string
	timeout   time.Duration
	memStats  func() (*mem.VirtualMemoryStat, error)
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Memory    *MemoryUsage      `json:"memory,omitempty"`
}

// MemoryUsage is host memory as reported by gopsutil.
type MemoryUsage struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// NewHealthHandler builds the handler. redis may be nil when event fan-out is disabled.
func NewHealthHandler(db, redis, predictor HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		redis:     redis,
		predictor: predictor,
		version:   version,
		timeout:   5 * time.Second,
		memStats:  mem.VirtualMemory,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	services := make(map[string]string)
	services["database"] = checkStatus(ctx, h.db)
	if h.redis != nil {
		services["redis"] = checkStatus(ctx, h.redis)
	}
	services["predictor"] = checkStatus(ctx, h.predictor)

	// Determine overall status
	overallStatus := "healthy"
	for _, status := range services {
		if status != "healthy" {
			overallStatus = "unhealthy"
			break
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
	}

	if vm, err := h.memStats(); err == nil {
		response.Memory = &MemoryUsage{
			TotalBytes:  vm.Total,
			UsedBytes:   vm.Used,
			UsedPercent: vm.UsedPercent,
		}
	}

	if overallStatus == "healthy" {
		c.JSON(http.StatusOK, response)
		return
	}
	c.JSON(http.StatusServiceUnavailable, response)
}

// ReadinessCheck reports ready once the database answers.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if status := checkStatus(ctx, h.db); status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"ready":    false,
			"services": map[string]string{"database": "not ready"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ready":    true,
		"services": map[string]string{"database": "ready"},
	})
}

// Liveness check for container restarts
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
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
