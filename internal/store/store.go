package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultAccount(ctx context.Context) (*models.Account, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, accountID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, accountID uuid.UUID) error

	CreateArtist(ctx context.Context, artist *models.Artist) error
	GetArtist(ctx context.Context, id uuid.UUID) (*models.Artist, error)
	// MergeArtistAttributes applies partial profile attributes discovered
	// mid-round. Empty fields are left untouched; last write wins.
	MergeArtistAttributes(ctx context.Context, id uuid.UUID, attrs ArtistAttributes) error
	// CommitAggregatedProfile writes a full round aggregate onto the artist
	// record as a single atomic update.
	CommitAggregatedProfile(ctx context.Context, id uuid.UUID, profile *models.AggregatedProfile) error

	UpsertSocialHandle(ctx context.Context, handle *models.SocialHandle) error
	ListSocialHandles(ctx context.Context, artistID uuid.UUID) ([]*models.SocialHandle, error)

	CreateAnalysisJob(ctx context.Context, job *models.AnalysisJob) error
	GetAnalysisJob(ctx context.Context, jobID uuid.UUID, platform models.Platform) (*models.AnalysisJob, error)
	ListJobsByRound(ctx context.Context, jobID uuid.UUID) ([]*models.AnalysisJob, error)
	// ApplyJobProgress upserts status/progress/result for one job row, unless
	// the row is already in a terminal status. Returns false when the update
	// was dropped by the terminality guard.
	ApplyJobProgress(ctx context.Context, jobID uuid.UUID, platform models.Platform, update JobProgress) (bool, error)
	// GetActiveJob returns the single most recent non-terminal job row for
	// the artist, or ErrNotFound when every row is terminal (or none exist).
	GetActiveJob(ctx context.Context, artistID uuid.UUID) (*models.AnalysisJob, error)
}

// ArtistAttributes is a partial artist update carried by a progress event.
// Nil pointer fields are not written.
type ArtistAttributes struct {
	DisplayName *string
	AvatarURL   *string
	SocialLinks []string
}

// JobProgress is the payload of one accepted progress event.
type JobProgress struct {
	Status   models.JobStatus
	Progress int
	Result   *models.PlatformResult
}
