package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisJob is one platform's job within a dispatch round. The round's
// job_id is shared across platforms; (job_id, platform) identifies a row.
// All writes are keyed upserts; once Status is terminal the row never changes.
type AnalysisJob struct {
	JobID     uuid.UUID       `db:"job_id"     json:"job_id"`
	ArtistID  uuid.UUID       `db:"artist_id"  json:"artist_id"`
	Platform  Platform        `db:"platform"   json:"platform"`
	Status    JobStatus       `db:"status"     json:"status"`
	Progress  int             `db:"progress"   json:"progress"`
	Handle    string          `db:"handle"     json:"handle"`
	Result    *PlatformResult `db:"result"     json:"result,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
