package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	mw "github.com/soundlytics/artistpulse/internal/api/middleware"
	"github.com/soundlytics/artistpulse/internal/api/response"
	"github.com/soundlytics/artistpulse/internal/orchestrator"
	"github.com/soundlytics/artistpulse/internal/store"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// Dispatcher defines the interface the analyze handler depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, artistID, accountID uuid.UUID, target string) (*orchestrator.DispatchResult, error)
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// It registers a round of analysis jobs and returns 202 with the round's
// job_id before any worker has reported progress.
func NewAnalyzeHandler(d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := mw.GetAccountID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing account", nil)
			return
		}

		var req struct {
			ArtistID string `json:"artist_id"`
			Platform string `json:"platform"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.ArtistID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "artist_id is required", nil)
			return
		}
		artistID, err := uuid.Parse(req.ArtistID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "artist_id must be a valid UUID", nil)
			return
		}

		target := req.Platform
		if target == "" {
			target = models.PlatformAll
		}
		if target != models.PlatformAll {
			if _, err := models.ParsePlatform(target); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"platform must be twitter, spotify, tiktok, instagram or all", nil)
				return
			}
		}

		result, err := d.Dispatch(r.Context(), artistID, accountID, target)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "ARTIST_NOT_FOUND",
					"No artist with the given id", nil)
			case errors.Is(err, orchestrator.ErrNothingToAnalyze):
				response.Error(w, http.StatusUnprocessableEntity, "NOTHING_TO_ANALYZE",
					"No social handle could be resolved for any requested platform", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, analyzeResponse{
			JobID:     result.JobID.String(),
			Platforms: result.Platforms,
		})
	}
}

type analyzeResponse struct {
	JobID     string            `json:"job_id"`
	Platforms []models.Platform `json:"platforms"`
}
