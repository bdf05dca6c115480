// Package export turns a settled page into the requested artifact.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/pagecap/models"
)

// DefaultQuality is the quality of lossy image encodings.
const DefaultQuality = 85

// Engine dispatches a job to its format strategy. It is safe for
// concurrent use.
type Engine struct {
	quality int
	md      *converter.Converter
}

// NewEngine returns an Engine. A quality outside [1,100] falls back to
// DefaultQuality.
func NewEngine(quality int) *Engine {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Engine{
		quality: quality,
		md:      newMarkdownConverter(),
	}
}

// Export writes the artifact for job from src into job.OutputDir as
// job.BaseName plus the format's extension. Unknown formats fail with
// UNSUPPORTED_FORMAT before anything is written; capture or write failures
// fail with EXPORT_WRITE_FAILED.
func (e *Engine) Export(ctx context.Context, src Source, job models.CaptureJob) (*models.Artifact, error) {
	format, err := models.ParseFormat(string(job.Format))
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return nil, writeError("create output directory", err)
	}

	primary := filepath.Join(job.OutputDir, job.BaseName+"."+format.Extension())
	primary, err = filepath.Abs(primary)
	if err != nil {
		return nil, writeError("resolve output path", err)
	}

	art := &models.Artifact{
		Name:   filepath.Base(primary),
		Path:   primary,
		Format: format,
	}

	switch format {
	case models.FormatPNG:
		err = e.exportImage(ctx, src, EncodingPNG, primary)
	case models.FormatJPG, models.FormatJPEG:
		err = e.exportImage(ctx, src, EncodingJPEG, primary)
	case models.FormatWebP:
		err = e.exportImage(ctx, src, EncodingWebP, primary)
	case models.FormatPDF:
		err = e.exportPDF(ctx, src, primary)
	case models.FormatMD:
		err = e.exportMarkdown(ctx, src, primary)
	case models.FormatRaw:
		var secondary string
		secondary, err = e.exportArchive(ctx, src, primary)
		if secondary != "" {
			art.Secondary = append(art.Secondary, secondary)
		}
	default:
		return nil, models.NewCaptureError(models.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Unsupported format : %s", job.Format), nil)
	}
	if err != nil {
		return nil, err
	}

	if err := Verify(art); err != nil {
		return nil, err
	}

	slog.Info("artifact written", "name", art.Name, "path", art.Path, "format", format)
	return art, nil
}

// writeFile writes data to path, mapping failures to EXPORT_WRITE_FAILED.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return writeError("write "+filepath.Base(path), err)
	}
	return nil
}

func writeError(msg string, err error) *models.CaptureError {
	return models.NewCaptureError(models.ErrCodeExportWrite, msg, err)
}
