// Package models contains shared data models used across the artistpulse codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Artist is an analyzed artist. Owned by the account that created it; its
// profile fields are written incrementally by the progress listener and
// atomically by the aggregator at the end of a round.
type Artist struct {
	ID            uuid.UUID          `db:"id"             json:"id"`
	AccountID     uuid.UUID          `db:"account_id"     json:"account_id"`
	Name          string             `db:"name"           json:"name"`
	DisplayName   *string            `db:"display_name"   json:"display_name,omitempty"`
	AvatarURL     *string            `db:"avatar_url"     json:"avatar_url,omitempty"`
	FollowerCount int64              `db:"follower_count" json:"follower_count"`
	SocialLinks   []string           `db:"social_links"   json:"social_links"`
	Profile       *AggregatedProfile `db:"profile"        json:"profile,omitempty"`
	CreatedAt     time.Time          `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at"     json:"updated_at"`
}

// SocialHandle associates an artist with a handle on one platform.
// Unique per (artist_id, platform). Immutable once a job has started against
// it; a later round resolves handles fresh.
type SocialHandle struct {
	ArtistID  uuid.UUID `db:"artist_id"  json:"artist_id"`
	Platform  Platform  `db:"platform"   json:"platform"`
	Handle    string    `db:"handle"     json:"handle"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AggregatedProfile is the merged view of one dispatch round, committed onto
// the artist record in a single write once every contributing job is terminal.
type AggregatedProfile struct {
	DisplayName   string     `json:"display_name,omitempty"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	FollowerCount int64      `json:"follower_count"`
	SocialLinks   []string   `json:"social_links"`
	Platforms     []Platform `json:"platforms"`
	AggregatedAt  time.Time  `json:"aggregated_at"`
}

// Empty reports whether the round contributed no data at all, in which case
// the artist record is left untouched.
func (p *AggregatedProfile) Empty() bool {
	return p.DisplayName == "" && p.AvatarURL == "" &&
		p.FollowerCount == 0 && len(p.SocialLinks) == 0
}

// Account represents a user account. Artists and API keys belong to an account.
type Account struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
