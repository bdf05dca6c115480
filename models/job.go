package models

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// CleanupLevel controls how aggressively overlays and trackers are removed.
// Levels are ordered: Complete is a strict superset of Banners.
type CleanupLevel int

const (
	CleanupOff CleanupLevel = iota
	CleanupBanners
	CleanupComplete
)

// DefaultCleanupLevel is used when the job does not name one.
const DefaultCleanupLevel = CleanupBanners

func (l CleanupLevel) String() string {
	switch l {
	case CleanupOff:
		return "off"
	case CleanupBanners:
		return "banners"
	case CleanupComplete:
		return "complete"
	default:
		return fmt.Sprintf("CleanupLevel(%d)", int(l))
	}
}

// Suppresses reports whether consent dismissal and CSS suppression run.
func (l CleanupLevel) Suppresses() bool { return l >= CleanupBanners }

// BlocksNetwork reports whether the network policy is installed.
func (l CleanupLevel) BlocksNetwork() bool { return l >= CleanupComplete }

// ParseCleanupLevel parses "off", "banners" or "complete" (case-insensitive).
// An empty string yields DefaultCleanupLevel.
func ParseCleanupLevel(s string) (CleanupLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultCleanupLevel, nil
	case "off":
		return CleanupOff, nil
	case "banners":
		return CleanupBanners, nil
	case "complete":
		return CleanupComplete, nil
	default:
		return CleanupOff, NewCaptureError(ErrCodeInvalidInput,
			fmt.Sprintf("unknown cleanup level %q (want off, banners or complete)", s), nil)
	}
}

// Format is one of the closed set of export formats.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
	FormatPDF  Format = "pdf"
	FormatMD   Format = "md"
	FormatRaw  Format = "raw"
)

// Formats lists every supported format in documentation order.
var Formats = []Format{FormatPNG, FormatJPG, FormatJPEG, FormatWebP, FormatPDF, FormatMD, FormatRaw}

// IsImage reports whether the format is a raster screenshot.
func (f Format) IsImage() bool {
	switch f {
	case FormatPNG, FormatJPG, FormatJPEG, FormatWebP:
		return true
	}
	return false
}

// Extension returns the file extension written for the format, without the dot.
// "jpeg" is normalised to "jpg" and "raw" produces an MHTML archive.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatRaw:
		return "mhtml"
	default:
		return string(f)
	}
}

// ParseFormat lower-cases s and checks it against the closed format set.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", NewCaptureError(ErrCodeUnsupportedFormat,
		fmt.Sprintf("Unsupported format : %s", s), nil)
}

// CaptureJob is the immutable description of one capture request.
// Build it with NewCaptureJob; fields are never modified afterwards.
type CaptureJob struct {
	URL        string
	Cleanup    CleanupLevel
	Format     Format
	BaseName   string
	OutputDir  string
	ScratchDir string
}

// JobInput carries the raw, unvalidated job parameters.
type JobInput struct {
	Webpage string
	Clean   string
	Format  string
	Name    string
}

// checkBaseName rejects names that would place the artifact outside the
// output directory or hide it from the artifact listing.
func checkBaseName(name string) error {
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return NewCaptureError(ErrCodeInvalidInput,
			fmt.Sprintf("name %q must be a bare file name", name), nil)
	}
	return nil
}

// NewCaptureJob validates in and resolves the derived fields. deriveName is
// consulted only when in.Name is empty.
func NewCaptureJob(in JobInput, outputDir, scratchDir string, deriveName func(string) string) (CaptureJob, error) {
	webpage := strings.TrimSpace(in.Webpage)
	if webpage == "" {
		return CaptureJob{}, NewCaptureError(ErrCodeInvalidInput, "webpage is required", nil)
	}
	if u, err := url.Parse(webpage); err != nil || u.Scheme == "" || u.Host == "" {
		return CaptureJob{}, NewCaptureError(ErrCodeInvalidInput,
			fmt.Sprintf("webpage %q is not an absolute URL", webpage), err)
	}

	level, err := ParseCleanupLevel(in.Clean)
	if err != nil {
		return CaptureJob{}, err
	}
	format, err := ParseFormat(in.Format)
	if err != nil {
		return CaptureJob{}, err
	}

	base := strings.TrimSpace(in.Name)
	if base == "" {
		base = deriveName(webpage)
	} else if err := checkBaseName(base); err != nil {
		return CaptureJob{}, err
	}

	return CaptureJob{
		URL:        webpage,
		Cleanup:    level,
		Format:     format,
		BaseName:   base,
		OutputDir:  outputDir,
		ScratchDir: scratchDir,
	}, nil
}
