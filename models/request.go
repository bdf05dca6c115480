package models

// CaptureRequest is the payload for POST /api/v1/capture.
type CaptureRequest struct {
	// Webpage is the target page to capture. Required.
	Webpage string `json:"webpage" binding:"required,url"`

	// Clean is the cleanup level: "off", "banners" (default) or "complete".
	Clean string `json:"clean,omitempty" binding:"omitempty,oneof=off banners complete"`

	// Format is the export format. Required. Validated against the closed
	// format set by the pipeline so unknown values surface as UNSUPPORTED_FORMAT.
	Format string `json:"format" binding:"required"`

	// Name overrides the artifact base name derived from the URL.
	Name string `json:"name,omitempty"`

	// MaxAge is the cache max age in milliseconds. If > 0, a previous
	// artifact for the same job younger than MaxAge is returned.
	// Default: 0 (no caching).
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *CaptureRequest) Defaults() {
	if r.Clean == "" {
		r.Clean = DefaultCleanupLevel.String()
	}
}

// Input converts the request to raw job parameters.
func (r *CaptureRequest) Input() JobInput {
	return JobInput{
		Webpage: r.Webpage,
		Clean:   r.Clean,
		Format:  r.Format,
		Name:    r.Name,
	}
}
