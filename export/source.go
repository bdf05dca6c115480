package export

import "context"

// Encoding is the raster encoding requested from a Source.
type Encoding string

const (
	EncodingPNG  Encoding = "png"
	EncodingJPEG Encoding = "jpeg"
	EncodingWebP Encoding = "webp"
)

// Source is the live page as seen by the export strategies. Every method
// reflects the page in its current, post-cleanup state.
type Source interface {
	// Screenshot captures the full page. quality applies to lossy
	// encodings only and is ignored for PNG.
	Screenshot(ctx context.Context, enc Encoding, quality int) ([]byte, error)

	// PDF prints the page with background graphics, honoring CSS page size.
	PDF(ctx context.Context) ([]byte, error)

	// HTML serializes the current DOM as "<!doctype html>\n" + outerHTML.
	HTML(ctx context.Context) (string, error)

	// MHTML captures a single-file archive of the page, subresources and frames.
	MHTML(ctx context.Context) (string, error)

	// Origin returns the page's location.origin.
	Origin(ctx context.Context) (string, error)
}
