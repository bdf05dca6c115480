package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/pagecap/models"
)

// Event types.
const (
	EventCompleted = "capture.completed"
	EventFailed    = "capture.failed"
)

// SignatureHeader carries "sha256=<hex>" of the request body.
const SignatureHeader = "X-Pagecap-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string              `json:"type"`
	Webpage   string              `json:"webpage"`
	Format    models.Format       `json:"format"`
	Timestamp int64               `json:"timestamp"`
	Artifact  *models.Artifact    `json:"artifact,omitempty"`
	Error     *models.ErrorDetail `json:"error,omitempty"`
}

// NewEvent builds the completion event of job. A nil err yields
// capture.completed, anything else capture.failed.
func NewEvent(job models.CaptureJob, art *models.Artifact, err error) *Event {
	ev := &Event{
		Type:      EventCompleted,
		Webpage:   job.URL,
		Format:    job.Format,
		Timestamp: time.Now().Unix(),
		Artifact:  art,
	}
	if err != nil {
		ev.Type = EventFailed
		ev.Artifact = nil
		ev.Error = &models.ErrorDetail{Code: models.CodeOf(err), Message: err.Error()}
	}
	return ev
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event synchronously.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Pagecap-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// RetryDelays are the waits before each delivery attempt of DeliverAsync.
var RetryDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// DeliverAsync sends a webhook event in the background, retrying on
// failure after each of RetryDelays. done, if non-nil, receives the final
// error (nil on success) once delivery settles.
func DeliverAsync(url, secret string, event *Event, done chan<- error) {
	go func() {
		var err error
		for attempt, delay := range RetryDelays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = Deliver(ctx, url, secret, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"url", url,
					"event", event.Type,
					"webpage", event.Webpage,
					"attempt", attempt+1,
				)
				break
			}
			slog.Warn("webhook delivery failed",
				"url", url,
				"event", event.Type,
				"webpage", event.Webpage,
				"attempt", attempt+1,
				"error", err,
			)
		}
		if err != nil {
			slog.Error("webhook delivery exhausted all retries",
				"url", url,
				"event", event.Type,
				"webpage", event.Webpage,
			)
		}
		if done != nil {
			done <- err
		}
	}()
}
