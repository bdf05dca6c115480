package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/webp"

	"github.com/use-agent/pagecap/models"
)

// Verify checks that every file of art exists, which is fatal otherwise.
// Binary artifacts must also be non-empty; a Markdown file may be empty
// when the page has no text (canvas or app-shell pages). Format-level
// checks (decodable image, parseable PDF, archive boundary) only log a
// warning.
func Verify(art *models.Artifact) error {
	for _, p := range append([]string{art.Path}, art.Secondary...) {
		fi, err := os.Stat(p)
		if err != nil {
			return writeError("artifact missing after export", err)
		}
		if fi.Size() == 0 && !mayBeEmpty(art.Format, p == art.Path) {
			return writeError(fmt.Sprintf("artifact %s is empty", fi.Name()), nil)
		}
	}

	if err := inspect(art); err != nil {
		slog.Warn("artifact failed format check", "path", art.Path, "format", art.Format, "error", err)
	}
	return nil
}

// mayBeEmpty reports whether a zero-byte file is a valid export.
func mayBeEmpty(format models.Format, primary bool) bool {
	return primary && format == models.FormatMD
}

func inspect(art *models.Artifact) error {
	switch {
	case art.Format.IsImage():
		w, h, kind, err := ImageInfo(art.Path)
		if err != nil {
			return err
		}
		if want := expectedKind(art.Format); kind != want {
			return fmt.Errorf("image is %s, want %s", kind, want)
		}
		slog.Debug("image artifact", "width", w, "height", h, "encoding", kind)
	case art.Format == models.FormatPDF:
		pages, err := PDFPageCount(art.Path)
		if err != nil {
			return err
		}
		slog.Debug("pdf artifact", "pages", pages)
	case art.Format == models.FormatRaw:
		head, err := readHead(art.Path, 4096)
		if err != nil {
			return err
		}
		if !bytes.Contains(bytes.ToLower(head), []byte("multipart/related")) {
			return fmt.Errorf("mhtml snapshot has no multipart/related header")
		}
	}
	return nil
}

// ImageInfo decodes the header of an image file.
func ImageInfo(path string) (width, height int, kind string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, "", err
	}
	defer f.Close()

	cfg, kind, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, kind, nil
}

// PDFPageCount parses and validates a PDF file and returns its page count.
func PDFPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return ctx.PageCount, nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	k, err := f.Read(buf)
	if err != nil && k == 0 {
		return nil, err
	}
	return buf[:k], nil
}

// expectedKind maps an image format to the name image.DecodeConfig reports.
func expectedKind(f models.Format) string {
	switch f {
	case models.FormatJPG, models.FormatJPEG:
		return "jpeg"
	default:
		return strings.ToLower(string(f))
	}
}
