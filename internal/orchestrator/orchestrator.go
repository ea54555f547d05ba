// Package orchestrator fans out per-platform analysis jobs to scraping
// workers, tracks their progress, and merges completed partial results into
// one aggregated artist profile.
package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/internal/store"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// ErrNothingToAnalyze means handle resolution produced no platforms, so no
// jobs were created.
var ErrNothingToAnalyze = errors.New("no resolvable handles, nothing to analyze")

// Store is the slice of the datastore the orchestrator depends on.
type Store interface {
	GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	MergeArtistAttributes(ctx context.Context, id uuid.UUID, attrs store.ArtistAttributes) error
	CommitAggregatedProfile(ctx context.Context, id uuid.UUID, profile *models.AggregatedProfile) error
	UpsertSocialHandle(ctx context.Context, handle *models.SocialHandle) error
	CreateAnalysisJob(ctx context.Context, job *models.AnalysisJob) error
	ApplyJobProgress(ctx context.Context, jobID uuid.UUID, platform models.Platform, update store.JobProgress) (bool, error)
	ListJobsByRound(ctx context.Context, jobID uuid.UUID) ([]*models.AnalysisJob, error)
}

// Round is one dispatch call and the per-platform jobs it created, tracked
// until every job reaches a terminal status.
type Round struct {
	JobID     uuid.UUID
	ArtistID  uuid.UUID
	AccountID uuid.UUID
	Platforms []models.Platform
	Combined  bool
}
