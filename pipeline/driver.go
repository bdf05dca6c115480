package pipeline

import (
	"context"
	"time"

	"github.com/use-agent/pagecap/export"
	"github.com/use-agent/pagecap/models"
)

// Driver is the browser as seen by the Runner. One Driver serves one job.
// Every method except Open and Load absorbs its own failures or returns a
// soft error the Runner only logs.
type Driver interface {
	// Open launches the browser with its profile under scratchDir.
	Open(ctx context.Context, scratchDir string) error

	// Block installs the network policy. Must precede Load.
	Block(ctx context.Context) error

	// Load navigates to url and waits for the load event.
	Load(ctx context.Context, url string) error

	// WaitContentRoot waits for the content-root selector.
	WaitContentRoot(ctx context.Context) error

	// Normalize runs consent dismissal and suppression for level.
	Normalize(ctx context.Context, level models.CleanupLevel)

	// WatchReload reports whether the top frame navigated within the
	// reload window.
	WatchReload(ctx context.Context) bool

	// ResetStability forgets the stability state of the previous document.
	ResetStability()

	// Expand opens disclosure widgets and "show more" controls.
	Expand(ctx context.Context)

	// LazyLoad scrolls the document to trigger lazy content.
	LazyLoad(ctx context.Context)

	// WaitIdle waits until the DOM has been quiet for quiet, bounded by timeout.
	WaitIdle(ctx context.Context, quiet, timeout time.Duration) error

	// Source exposes the page to the export engine.
	Source() export.Source

	// Close releases the browser. It never fails.
	Close()
}

// DriverFactory creates a fresh Driver for each job.
type DriverFactory func() Driver
