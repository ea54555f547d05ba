package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/pkg/models"
)

func TestInvoke_PostsToPlatformEndpoint(t *testing.T) {
	jobID := uuid.New()
	artistID := uuid.New()

	var gotPath string
	var gotBody models.WorkerRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	inv := NewHTTPInvoker(ts.URL, 5*time.Second)
	err := inv.Invoke(context.Background(), models.PlatformTikTok, models.WorkerRequest{
		JobID:       jobID,
		Handle:      "testartist",
		ArtistID:    artistID,
		CombinedRun: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/workers/tiktok/analyze" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotBody.JobID != jobID {
		t.Errorf("unexpected job_id: %s", gotBody.JobID)
	}
	if gotBody.Handle != "testartist" {
		t.Errorf("unexpected handle: %q", gotBody.Handle)
	}
	if !gotBody.CombinedRun {
		t.Error("combined_run not carried")
	}
}

func TestInvoke_RejectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	inv := NewHTTPInvoker(ts.URL, 5*time.Second)
	err := inv.Invoke(context.Background(), models.PlatformTwitter, models.WorkerRequest{JobID: uuid.New()})
	if !errors.Is(err, ErrWorkerRejected) {
		t.Errorf("expected ErrWorkerRejected, got %v", err)
	}
}

func TestInvoke_Unreachable(t *testing.T) {
	inv := NewHTTPInvoker("http://127.0.0.1:1", time.Second)
	err := inv.Invoke(context.Background(), models.PlatformSpotify, models.WorkerRequest{JobID: uuid.New()})
	if err == nil {
		t.Error("expected transport error")
	}
	if errors.Is(err, ErrWorkerRejected) {
		t.Error("transport failure must not look like a rejection")
	}
}
