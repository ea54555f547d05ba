package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLink(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://instagram.com/artist", "https://instagram.com/artist"},
		{"https://Instagram.com/Artist/", "https://instagram.com/artist"},
		{"http://instagram.com/artist", "https://instagram.com/artist"},
		{"instagram.com/artist", "https://instagram.com/artist"},
		{"  https://spotify.com/artist  ", "https://spotify.com/artist"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeLink(tc.in), "input %q", tc.in)
	}
}

func TestMergeSocialLinks_Dedup(t *testing.T) {
	existing := []string{"https://instagram.com/artist"}
	incoming := []string{
		"https://Instagram.com/artist/", // same link, different casing and trailing slash
		"http://tiktok.com/@artist",
	}

	merged := MergeSocialLinks(existing, incoming)

	assert.Equal(t, []string{
		"https://instagram.com/artist",
		"https://tiktok.com/@artist",
	}, merged)
}

func TestMergeSocialLinks_SkipsBlank(t *testing.T) {
	merged := MergeSocialLinks(nil, []string{"", "  ", "spotify.com/a"})
	assert.Equal(t, []string{"https://spotify.com/a"}, merged)
}

func TestBuildProfile_LastWriteWins(t *testing.T) {
	jobID := uuid.New()
	earlier := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Minute)

	jobs := []*models.AnalysisJob{
		{
			JobID: jobID, Platform: models.PlatformSpotify,
			Status: models.StatusFinished, UpdatedAt: later,
			Result: &models.PlatformResult{
				Platform: models.PlatformSpotify, DisplayName: "Artist (Spotify)",
				FollowerCount: 1000,
			},
		},
		{
			JobID: jobID, Platform: models.PlatformTwitter,
			Status: models.StatusFinished, UpdatedAt: earlier,
			Result: &models.PlatformResult{
				Platform: models.PlatformTwitter, DisplayName: "Artist (Twitter)",
				AvatarURL: "https://pbs.twimg.com/artist.jpg", FollowerCount: 500,
			},
		},
	}

	profile := BuildProfile(jobs)

	// Spotify updated later, so its display name wins; the avatar only the
	// twitter result carried is kept.
	assert.Equal(t, "Artist (Spotify)", profile.DisplayName)
	assert.Equal(t, "https://pbs.twimg.com/artist.jpg", profile.AvatarURL)
	assert.Equal(t, int64(1500), profile.FollowerCount)
	assert.ElementsMatch(t, []models.Platform{models.PlatformSpotify, models.PlatformTwitter}, profile.Platforms)
}

func TestBuildProfile_OnlySuccessfulJobsContribute(t *testing.T) {
	jobID := uuid.New()
	jobs := []*models.AnalysisJob{
		{
			JobID: jobID, Platform: models.PlatformSpotify, Status: models.StatusFinished,
			Result: &models.PlatformResult{Platform: models.PlatformSpotify, FollowerCount: 100},
		},
		{
			JobID: jobID, Platform: models.PlatformTikTok, Status: models.StatusRateLimitExceeded,
			Result: &models.PlatformResult{Platform: models.PlatformTikTok, FollowerCount: 9999},
		},
		// Success terminal without a result payload contributes nothing.
		{JobID: jobID, Platform: models.PlatformTwitter, Status: models.StatusFinished},
	}

	profile := BuildProfile(jobs)

	assert.Equal(t, int64(100), profile.FollowerCount)
	assert.Equal(t, []models.Platform{models.PlatformSpotify}, profile.Platforms)
}

func TestBuildProfile_AllError_Empty(t *testing.T) {
	jobID := uuid.New()
	jobs := []*models.AnalysisJob{
		{JobID: jobID, Platform: models.PlatformSpotify, Status: models.StatusError},
		{JobID: jobID, Platform: models.PlatformTikTok, Status: models.StatusUnknownProfile},
	}

	profile := BuildProfile(jobs)
	assert.True(t, profile.Empty())
}

func TestAggregateRound_EmptyProfileLeavesArtistUntouched(t *testing.T) {
	st := newMemStore()
	artist := &models.Artist{ID: uuid.New(), Name: "testartist"}
	st.addArtist(artist)

	agg := NewAggregator(st)
	jobs := []*models.AnalysisJob{
		{JobID: uuid.New(), Platform: models.PlatformSpotify, Status: models.StatusError},
	}

	require.NoError(t, agg.AggregateRound(context.Background(), artist.ID, jobs))
	assert.Zero(t, st.commitCount())
}

func TestAggregateRound_CommitsProfile(t *testing.T) {
	st := newMemStore()
	artist := &models.Artist{ID: uuid.New(), Name: "testartist"}
	st.addArtist(artist)

	agg := NewAggregator(st)
	jobs := []*models.AnalysisJob{
		{
			JobID: uuid.New(), Platform: models.PlatformSpotify, Status: models.StatusFinished,
			Result: &models.PlatformResult{
				Platform: models.PlatformSpotify, DisplayName: "Test Artist",
				FollowerCount: 42, SocialLinks: []string{"https://spotify.com/testartist"},
			},
		},
	}

	require.NoError(t, agg.AggregateRound(context.Background(), artist.ID, jobs))

	got, err := st.GetArtist(context.Background(), artist.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Test Artist", got.Profile.DisplayName)
	assert.Equal(t, int64(42), got.FollowerCount)
	assert.False(t, got.Profile.AggregatedAt.IsZero())
}
