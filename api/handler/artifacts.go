package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecap/models"
)

// Artifact returns a handler for GET /api/v1/artifacts/:name that serves a
// file from outputDir. Only bare file names are accepted.
func Artifact(outputDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
			respondError(c, models.NewCaptureError(models.ErrCodeInvalidInput, "invalid artifact name", nil), models.TimingInfo{})
			return
		}

		path := filepath.Join(outputDir, name)
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			c.JSON(http.StatusNotFound, models.CaptureResponse{
				Success: false,
				Error:   &models.ErrorDetail{Code: models.ErrCodeNotFound, Message: "artifact not found"},
			})
			return
		}

		c.FileAttachment(path, name)
	}
}
