package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/internal/cache"
	"github.com/soundlytics/artistpulse/internal/store"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// memStore is an in-memory Store with the same terminality semantics as the
// real one, shared by the aggregator, listener, and dispatcher tests.
type memStore struct {
	mu      sync.Mutex
	artists map[uuid.UUID]*models.Artist
	jobs    map[string]*models.AnalysisJob
	handles map[string]*models.SocialHandle
	commits []*models.AggregatedProfile

	createJobErr error
}

func newMemStore() *memStore {
	return &memStore{
		artists: make(map[uuid.UUID]*models.Artist),
		jobs:    make(map[string]*models.AnalysisJob),
		handles: make(map[string]*models.SocialHandle),
	}
}

func jobKey(jobID uuid.UUID, platform models.Platform) string {
	return fmt.Sprintf("%s|%s", jobID, platform)
}

func (m *memStore) addArtist(artist *models.Artist) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artists[artist.ID] = artist
}

func (m *memStore) job(jobID uuid.UUID, platform models.Platform) *models.AnalysisJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobKey(jobID, platform)]; ok {
		copied := *job
		return &copied
	}
	return nil
}

func (m *memStore) commitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commits)
}

func (m *memStore) GetArtist(_ context.Context, id uuid.UUID) (*models.Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	artist, ok := m.artists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *artist
	return &copied, nil
}

func (m *memStore) MergeArtistAttributes(_ context.Context, id uuid.UUID, attrs store.ArtistAttributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	artist, ok := m.artists[id]
	if !ok {
		return store.ErrNotFound
	}
	if attrs.DisplayName != nil {
		artist.DisplayName = attrs.DisplayName
	}
	if attrs.AvatarURL != nil {
		artist.AvatarURL = attrs.AvatarURL
	}
	if attrs.SocialLinks != nil {
		artist.SocialLinks = attrs.SocialLinks
	}
	return nil
}

func (m *memStore) CommitAggregatedProfile(_ context.Context, id uuid.UUID, profile *models.AggregatedProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	artist, ok := m.artists[id]
	if !ok {
		return store.ErrNotFound
	}
	artist.Profile = profile
	if profile.DisplayName != "" {
		artist.DisplayName = &profile.DisplayName
	}
	if profile.AvatarURL != "" {
		artist.AvatarURL = &profile.AvatarURL
	}
	artist.FollowerCount = profile.FollowerCount
	m.commits = append(m.commits, profile)
	return nil
}

func (m *memStore) UpsertSocialHandle(_ context.Context, handle *models.SocialHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *handle
	m.handles[fmt.Sprintf("%s|%s", handle.ArtistID, handle.Platform)] = &copied
	return nil
}

func (m *memStore) storedHandle(artistID uuid.UUID, platform models.Platform) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.handles[fmt.Sprintf("%s|%s", artistID, platform)]; ok {
		return h.Handle
	}
	return ""
}

func (m *memStore) CreateAnalysisJob(_ context.Context, job *models.AnalysisJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createJobErr != nil {
		return m.createJobErr
	}
	copied := *job
	m.jobs[jobKey(job.JobID, job.Platform)] = &copied
	return nil
}

func (m *memStore) ApplyJobProgress(_ context.Context, jobID uuid.UUID, platform models.Platform, update store.JobProgress) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobKey(jobID, platform)]
	if !ok {
		return false, store.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return false, nil
	}
	job.Status = update.Status
	job.Progress = update.Progress
	if update.Result != nil {
		job.Result = update.Result
	}
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memStore) ListJobsByRound(_ context.Context, jobID uuid.UUID) ([]*models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var jobs []*models.AnalysisJob
	for _, job := range m.jobs {
		if job.JobID == jobID {
			copied := *job
			jobs = append(jobs, &copied)
		}
	}
	return jobs, nil
}

// memCache is an in-memory cache.Cache for listener tests.
type memCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	statuses map[string]models.JobStatus
	deleted  map[string]int
}

func newMemCache() *memCache {
	return &memCache{
		values:   make(map[string][]byte),
		statuses: make(map[string]models.JobStatus),
		deleted:  make(map[string]int),
	}
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.values[key]
	return val, ok, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	c.deleted[key]++
	return nil
}

func (c *memCache) Ping(_ context.Context) error { return nil }

func (c *memCache) SetJobStatus(_ context.Context, jobID uuid.UUID, platform models.Platform, status models.JobStatus, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[cache.JobStatusKey(jobID, platform)] = status
	return nil
}

func (c *memCache) GetJobStatus(_ context.Context, jobID uuid.UUID, platform models.Platform) (models.JobStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.statuses[cache.JobStatusKey(jobID, platform)]
	return status, ok, nil
}

func (c *memCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	return 1, nil
}

func (c *memCache) status(jobID uuid.UUID, platform models.Platform) models.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses[cache.JobStatusKey(jobID, platform)]
}

func (c *memCache) deleteCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleted[key]
}
