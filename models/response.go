package models

// CaptureResponse is the response for POST /api/v1/capture.
type CaptureResponse struct {
	// Success indicates whether the job produced its artifact.
	Success bool `json:"success"`

	// Name is the file name of the primary artifact.
	Name string `json:"name,omitempty"`

	// Path is the absolute path of the primary artifact.
	Path string `json:"path,omitempty"`

	// Format is the declared export format.
	Format Format `json:"format,omitempty"`

	// Timing provides duration breakdowns for the job.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in the job.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string   `json:"status"` // "healthy" or "busy"
	Uptime   string   `json:"uptime"`
	JobStats JobStats `json:"job_stats"`
	Version  string   `json:"version"`
}

// JobStats reports what the capture runner has done since start.
type JobStats struct {
	Running   bool  `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
