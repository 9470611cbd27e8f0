package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks map[string]Pinger
	info   map[string]any
	stats  map[string]func() any
}

// NewHealthHandler creates a new health handler. checks may be empty
// (in-memory and file storage have nothing to ping). stats are evaluated
// on every /health/info request.
func NewHealthHandler(checks map[string]Pinger, info map[string]any, stats map[string]func() any) *HealthHandler {
	return &HealthHandler{checks: checks, info: info, stats: stats}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(c.Request.Context()); err != nil {
			results[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "error"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": results,
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{"app": "staffnum"}
	for k, v := range h.info {
		body[k] = v
	}
	if len(h.stats) > 0 {
		stats := make(gin.H, len(h.stats))
		for name, snapshot := range h.stats {
			stats[name] = snapshot()
		}
		body["stats"] = stats
	}
	c.JSON(http.StatusOK, body)
}
