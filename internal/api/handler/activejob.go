package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/internal/api/response"
	"github.com/soundlytics/artistpulse/internal/cache"
	"github.com/soundlytics/artistpulse/internal/store"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// activeJobTTL bounds staleness for readers the listener cannot invalidate,
// such as a second server instance.
const activeJobTTL = 5 * time.Second

// ActiveJobStore defines the interface the active-job handler depends on.
type ActiveJobStore interface {
	GetActiveJob(ctx context.Context, artistID uuid.UUID) (*models.AnalysisJob, error)
}

// ActiveJobCache is the slice of the cache the active-job handler uses.
type ActiveJobCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NewActiveJobHandler returns an http.HandlerFunc for
// GET /api/v1/artists/{artistID}/active-job. It returns the single most
// recent non-terminal job for the artist, or a null job when none is running.
// A terminal job from a previous round is never returned. ca may be nil, in
// which case every request hits the store; the progress listener invalidates
// the cached answer whenever a job row changes.
func NewActiveJobHandler(st ActiveJobStore, ca ActiveJobCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artistID, err := uuid.Parse(chi.URLParam(r, "artistID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "artistID must be a valid UUID", nil)
			return
		}

		key := cache.ActiveJobKey(artistID)
		if ca != nil {
			if payload, found, err := ca.Get(r.Context(), key); err == nil && found {
				var resp activeJobResponse
				if json.Unmarshal(payload, &resp) == nil {
					response.JSON(w, resp)
					return
				}
			}
		}

		job, err := st.GetActiveJob(r.Context(), artistID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		resp := activeJobResponse{}
		if err == nil {
			resp.Job = &activeJob{
				JobID:     job.JobID.String(),
				Platform:  job.Platform,
				Status:    job.Status,
				Progress:  job.Progress,
				UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339),
			}
		}

		if ca != nil {
			if payload, err := json.Marshal(resp); err == nil {
				_ = ca.Set(r.Context(), key, payload, activeJobTTL)
			}
		}
		response.JSON(w, resp)
	}
}

type activeJobResponse struct {
	Job *activeJob `json:"job"`
}

type activeJob struct {
	JobID     string           `json:"job_id"`
	Platform  models.Platform  `json:"platform"`
	Status    models.JobStatus `json:"status"`
	Progress  int              `json:"progress"`
	UpdatedAt string           `json:"updated_at"`
}
