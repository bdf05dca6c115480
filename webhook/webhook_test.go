package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/pagecap/models"
)

func TestDeliver_SignsBody(t *testing.T) {
	var gotSig string
	var gotEvent Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, "sha256="+Sign("s3cret", body), gotSig)
		require.NoError(t, json.Unmarshal(body, &gotEvent))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	job := models.CaptureJob{URL: "https://example.com", Format: models.FormatPDF}
	art := &models.Artifact{Name: "example.com.pdf", Path: "/out/example.com.pdf", Format: models.FormatPDF}

	require.NoError(t, Deliver(context.Background(), srv.URL, "s3cret", NewEvent(job, art, nil)))
	assert.NotEmpty(t, gotSig)
	assert.Equal(t, EventCompleted, gotEvent.Type)
	require.NotNil(t, gotEvent.Artifact)
	assert.Equal(t, "example.com.pdf", gotEvent.Artifact.Name)
}

func TestDeliver_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, Deliver(context.Background(), srv.URL, "", &Event{Type: EventCompleted}))
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := Deliver(context.Background(), srv.URL, "", &Event{Type: EventCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewEvent_Failed(t *testing.T) {
	job := models.CaptureJob{URL: "https://example.com", Format: models.FormatPNG}
	err := models.NewCaptureError(models.ErrCodeNavigationTimeout, "navigation timed out", nil)

	ev := NewEvent(job, &models.Artifact{Name: "x"}, err)
	assert.Equal(t, EventFailed, ev.Type)
	assert.Nil(t, ev.Artifact)
	require.NotNil(t, ev.Error)
	assert.Equal(t, models.ErrCodeNavigationTimeout, ev.Error.Code)

	ev = NewEvent(job, nil, errors.New("boom"))
	assert.Equal(t, models.ErrCodeInternal, ev.Error.Code)
}

func TestDeliverAsync_Retries(t *testing.T) {
	orig := RetryDelays
	RetryDelays = []time.Duration{0, time.Millisecond, time.Millisecond}
	defer func() { RetryDelays = orig }()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	done := make(chan error, 1)
	DeliverAsync(srv.URL, "", &Event{Type: EventCompleted}, done)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("delivery did not settle")
	}
	assert.Equal(t, int32(3), calls.Load())
}
