package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecap/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports "busy" while a job holds the browser.
func Health(rn Runner, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := rn.Stats()

		status := "healthy"
		if stats.Running {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			JobStats: stats,
			Version:  Version,
		})
	}
}
