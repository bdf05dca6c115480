package models

// Artifact is the result record of a successful export.
type Artifact struct {
	// Name is the base file name of the primary artifact, e.g. "example.com_a.png".
	Name string `json:"name"`

	// Path is the absolute path of the primary artifact.
	Path string `json:"path"`

	// Format is the declared export format of the job.
	Format Format `json:"format"`

	// Secondary lists extra files written next to the primary one
	// (the static HTML dump of the "raw" format). Never reported as output.
	Secondary []string `json:"secondary,omitempty"`
}
