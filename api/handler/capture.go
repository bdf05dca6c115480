package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecap/cache"
	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/models"
	"github.com/use-agent/pagecap/webhook"
)

// Runner builds and executes capture jobs.
type Runner interface {
	NewJob(in models.JobInput, outputDir string) (models.CaptureJob, error)
	Run(ctx context.Context, job models.CaptureJob) (*models.Artifact, error)
	Stats() models.JobStats
}

// Capture returns a handler for POST /api/v1/capture.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults, build the job.
//  2. Cache lookup (only when max_age > 0).
//  3. Runner.Run → artifact on disk.
//  4. Cache store, webhook, respond.
func Capture(rn Runner, outputDir string, cc *cache.Cache, hook config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()
		elapsed := func() models.TimingInfo {
			return models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
		}

		// ── 1. Parse request ────────────────────────────────────────
		var req models.CaptureRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewCaptureError(models.ErrCodeInvalidInput, err.Error(), err), elapsed())
			return
		}
		req.Defaults()

		job, err := rn.NewJob(req.Input(), outputDir)
		if err != nil {
			respondError(c, err, elapsed())
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		var key string
		if cc != nil && req.MaxAge > 0 {
			key = cache.Key(job)
			if art, hit := cc.Get(key, req.MaxAge); hit {
				c.JSON(http.StatusOK, success(art, elapsed(), "hit"))
				return
			}
		}

		// ── 3. Capture ──────────────────────────────────────────────
		art, err := rn.Run(c.Request.Context(), job)
		if hook.URL != "" {
			webhook.DeliverAsync(hook.URL, hook.Secret, webhook.NewEvent(job, art, err), nil)
		}
		if err != nil {
			respondError(c, err, elapsed())
			return
		}

		// ── 4. Cache store and respond ──────────────────────────────
		status := ""
		if key != "" {
			cc.Set(key, art)
			status = "miss"
		}
		c.JSON(http.StatusOK, success(art, elapsed(), status))
	}
}

func success(art *models.Artifact, timing models.TimingInfo, cacheStatus string) models.CaptureResponse {
	return models.CaptureResponse{
		Success:     true,
		Name:        art.Name,
		Path:        art.Path,
		Format:      art.Format,
		Timing:      timing,
		CacheStatus: cacheStatus,
	}
}

// respondError maps a CaptureError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	ce, ok := err.(*models.CaptureError)
	if !ok {
		ce = models.NewCaptureError(models.CodeOf(err), err.Error(), err)
	}

	c.JSON(mapErrorToStatus(ce), models.CaptureResponse{
		Success: false,
		Error:   ce.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.CaptureError) int {
	switch e.Code {
	case models.ErrCodeNavigationTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodeUnsupportedFormat:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeBrowserLaunch:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
