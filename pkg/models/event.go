package models

import (
	"fmt"

	"github.com/google/uuid"
)

// ProgressEvent is one status update published by a worker on the push
// channel under topic progress:{job_id}.
type ProgressEvent struct {
	Platform Platform        `json:"platform"`
	Status   JobStatus       `json:"status"`
	Progress int             `json:"progress"`
	Result   *PlatformResult `json:"extra_data,omitempty"`
}

// Validate rejects events that would corrupt job state if applied.
func (e *ProgressEvent) Validate() error {
	if _, err := ParsePlatform(string(e.Platform)); err != nil {
		return err
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown status %q", e.Status)
	}
	if e.Progress < 0 || e.Progress > 100 {
		return fmt.Errorf("progress %d out of range [0,100]", e.Progress)
	}
	if e.Result != nil {
		if err := e.Result.Validate(e.Platform); err != nil {
			return fmt.Errorf("result payload: %w", err)
		}
	}
	return nil
}

// PlatformResult is the closed result schema a worker may attach to a
// progress event. It replaces free-form extra_data; aggregation never
// depends on untyped object shapes.
type PlatformResult struct {
	Platform      Platform `json:"platform"`
	Handle        string   `json:"handle,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	AvatarURL     string   `json:"avatar_url,omitempty"`
	FollowerCount int64    `json:"follower_count,omitempty"`
	SocialLinks   []string `json:"social_links,omitempty"`
	PostCount     int      `json:"post_count,omitempty"`
}

// Validate checks the payload is tagged with the expected platform.
func (r *PlatformResult) Validate(platform Platform) error {
	if r.Platform == "" {
		return fmt.Errorf("missing platform tag")
	}
	if r.Platform != platform {
		return fmt.Errorf("platform tag %q does not match event platform %q", r.Platform, platform)
	}
	if r.FollowerCount < 0 {
		return fmt.Errorf("negative follower count %d", r.FollowerCount)
	}
	return nil
}

// WorkerRequest is the dispatch payload sent to a platform's scraping worker.
type WorkerRequest struct {
	JobID       uuid.UUID `json:"job_id"`
	Handle      string    `json:"handle"`
	ArtistID    uuid.UUID `json:"artist_id"`
	AccountID   uuid.UUID `json:"account_id"`
	CombinedRun bool      `json:"combined_run"`
}
