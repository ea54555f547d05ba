package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/internal/api"
	mw "github.com/soundlytics/artistpulse/internal/api/middleware"
	"github.com/soundlytics/artistpulse/internal/cache"
	"github.com/soundlytics/artistpulse/internal/store"
	"github.com/soundlytics/artistpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub store that returns empty results (all auth fails) ---

type stubStore struct{}

func (s *stubStore) Ping(_ context.Context) error { return nil }
func (s *stubStore) GetDefaultAccount(_ context.Context) (*models.Account, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *stubStore) ListAPIKeys(_ context.Context, _ uuid.UUID) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) RevokeAPIKey(_ context.Context, _ uuid.UUID, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateArtist(_ context.Context, _ *models.Artist) error         { return nil }
func (s *stubStore) GetArtist(_ context.Context, _ uuid.UUID) (*models.Artist, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) MergeArtistAttributes(_ context.Context, _ uuid.UUID, _ store.ArtistAttributes) error {
	return nil
}
func (s *stubStore) CommitAggregatedProfile(_ context.Context, _ uuid.UUID, _ *models.AggregatedProfile) error {
	return nil
}
func (s *stubStore) UpsertSocialHandle(_ context.Context, _ *models.SocialHandle) error { return nil }
func (s *stubStore) ListSocialHandles(_ context.Context, _ uuid.UUID) ([]*models.SocialHandle, error) {
	return nil, nil
}
func (s *stubStore) CreateAnalysisJob(_ context.Context, _ *models.AnalysisJob) error { return nil }
func (s *stubStore) GetAnalysisJob(_ context.Context, _ uuid.UUID, _ models.Platform) (*models.AnalysisJob, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) ListJobsByRound(_ context.Context, _ uuid.UUID) ([]*models.AnalysisJob, error) {
	return nil, nil
}
func (s *stubStore) ApplyJobProgress(_ context.Context, _ uuid.UUID, _ models.Platform, _ store.JobProgress) (bool, error) {
	return false, store.ErrNotFound
}
func (s *stubStore) GetActiveJob(_ context.Context, _ uuid.UUID) (*models.AnalysisJob, error) {
	return nil, store.ErrNotFound
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) SetJobStatus(_ context.Context, _ uuid.UUID, _ models.Platform, _ models.JobStatus, _ time.Duration) error {
	return nil
}
func (c *stubCache) GetJobStatus(_ context.Context, _ uuid.UUID, _ models.Platform) (models.JobStatus, bool, error) {
	return "", false, nil
}
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

func newTestRouter() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(&stubStore{}),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/analyze"},
		{"GET", "/api/v1/artists/" + uuid.NewString() + "/active-job"},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
		{"DELETE", "/api/v1/admin/keys/" + uuid.NewString()},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Verify unused interfaces are satisfied
var _ store.Store = (*stubStore)(nil)
var _ cache.Cache = (*stubCache)(nil)
