package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// Aggregator merges a completed round's per-platform results into one
// profile and commits it onto the artist record.
type Aggregator struct {
	store Store
}

// NewAggregator creates an Aggregator.
func NewAggregator(st Store) *Aggregator {
	return &Aggregator{store: st}
}

// AggregateRound builds the merged profile from the round's job rows and
// commits it as a single update. A round where no job succeeded contributes
// nothing; the artist record is left untouched.
func (a *Aggregator) AggregateRound(ctx context.Context, artistID uuid.UUID, jobs []*models.AnalysisJob) error {
	profile := BuildProfile(jobs)
	if profile.Empty() {
		return nil
	}
	if err := a.store.CommitAggregatedProfile(ctx, artistID, profile); err != nil {
		return fmt.Errorf("aggregate round for artist %s: %w", artistID, err)
	}
	return nil
}

// BuildProfile merges the result payloads of the round's successful jobs.
// Social links are deduplicated by normalized URL, follower counts are summed
// across platforms, and display name/avatar conflicts resolve to the most
// recently updated platform.
func BuildProfile(jobs []*models.AnalysisJob) *models.AggregatedProfile {
	contributing := make([]*models.AnalysisJob, 0, len(jobs))
	for _, job := range jobs {
		if job.Status.IsSuccess() && job.Result != nil {
			contributing = append(contributing, job)
		}
	}
	// Oldest first so later writes win on conflicting scalar fields.
	sort.Slice(contributing, func(i, j int) bool {
		if contributing[i].UpdatedAt.Equal(contributing[j].UpdatedAt) {
			return contributing[i].Platform < contributing[j].Platform
		}
		return contributing[i].UpdatedAt.Before(contributing[j].UpdatedAt)
	})

	profile := &models.AggregatedProfile{
		SocialLinks:  []string{},
		AggregatedAt: time.Now().UTC(),
	}
	for _, job := range contributing {
		r := job.Result
		if r.DisplayName != "" {
			profile.DisplayName = r.DisplayName
		}
		if r.AvatarURL != "" {
			profile.AvatarURL = r.AvatarURL
		}
		profile.FollowerCount += r.FollowerCount
		profile.SocialLinks = MergeSocialLinks(profile.SocialLinks, r.SocialLinks)
		profile.Platforms = append(profile.Platforms, job.Platform)
	}
	return profile
}

// MergeSocialLinks unions and deduplicates social links by normalized URL,
// preserving first-seen order.
func MergeSocialLinks(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, raw := range append(append([]string{}, existing...), incoming...) {
		link := NormalizeLink(raw)
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		merged = append(merged, link)
	}
	return merged
}

// NormalizeLink canonicalizes a profile URL for deduplication: lowercase,
// https scheme, no trailing slash. Returns "" for blank input.
func NormalizeLink(raw string) string {
	link := strings.ToLower(strings.TrimSpace(raw))
	if link == "" {
		return ""
	}
	link = strings.TrimSuffix(link, "/")
	switch {
	case strings.HasPrefix(link, "https://"):
	case strings.HasPrefix(link, "http://"):
		link = "https://" + strings.TrimPrefix(link, "http://")
	default:
		link = "https://" + link
	}
	return link
}
