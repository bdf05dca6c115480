package pipeline

// State is a stage of a capture job.
type State string

const (
	StateInitial         State = "initial"
	StateLoaded          State = "loaded"
	StateContentReady    State = "content_ready"
	StateCleaned         State = "cleaned"
	StateReloadPending   State = "reload_pending"
	StateReloadRecovered State = "reload_recovered"
	StateExpanded        State = "expanded"
	StateStable          State = "stable"
	StateExported        State = "exported"
	StateClosed          State = "closed"
	StateFailed          State = "failed"
)
