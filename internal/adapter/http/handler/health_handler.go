package handler

import (
	"context"
	"net/http"
	"time"

	"tag-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

type dependencyHealth struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. A terminal running without PostgreSQL or
// Redis has no checkers and always reports healthy: the tag is the ledger.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps := make(map[string]dependencyHealth, len(checkers))
		code, status := http.StatusOK, "healthy"

		for _, checker := range checkers {
			name := checker.Name()
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
			start := time.Now()
			err := checker.Ping(ctx)
			cancel()

			dep := dependencyHealth{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				dep.Status, dep.Error = "unhealthy", err.Error()
				code, status = http.StatusServiceUnavailable, "degraded"
			}
			deps[name] = dep
		}

		c.JSON(code, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
