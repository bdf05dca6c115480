package stabilize

import (
	"sync"
	"time"
)

// StabilityState tracks, for one page, whether the mutation watcher is
// installed and when the document last mutated. It is owned by the page's
// Controller and discarded with it. The zero value is ready to use.
type StabilityState struct {
	mu           sync.Mutex
	installed    bool
	lastMutation time.Time
}

// Installed reports whether a watcher has been observed on the page.
func (s *StabilityState) Installed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed
}

// Observe records a probe result taken at now: the watcher reported that
// since has elapsed since its last recorded mutation.
func (s *StabilityState) Observe(now time.Time, since time.Duration) {
	if since < 0 {
		since = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = true
	s.lastMutation = now.Add(-since)
}

// SinceLastMutation returns the time elapsed between the last mutation and
// now. It is zero until the first observation.
func (s *StabilityState) SinceLastMutation(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installed {
		return 0
	}
	d := now.Sub(s.lastMutation)
	if d < 0 {
		return 0
	}
	return d
}

// LastMutation returns the recorded timestamp of the last mutation.
func (s *StabilityState) LastMutation() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMutation, s.installed
}

// Reset forgets everything. Used when the page reloaded and the in-page
// watcher went away with the old document.
func (s *StabilityState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installed = false
	s.lastMutation = time.Time{}
}
