// Package resolver produces the best-known social handle per platform for an
// artist: a stored handle when one exists, otherwise a best-effort suggestion
// from the external lookup service.
package resolver

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/internal/lookup"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// HandleStore is the slice of the datastore the resolver depends on.
type HandleStore interface {
	ListSocialHandles(ctx context.Context, artistID uuid.UUID) ([]*models.SocialHandle, error)
	UpsertSocialHandle(ctx context.Context, handle *models.SocialHandle) error
}

// Resolver resolves platform handles for an artist.
type Resolver struct {
	store  HandleStore
	lookup lookup.Client
}

// New creates a Resolver. lookupClient may be nil, in which case only stored
// handles are used.
func New(st HandleStore, lookupClient lookup.Client) *Resolver {
	return &Resolver{store: st, lookup: lookupClient}
}

// Resolve returns a handle per requested platform. Platforms with neither a
// stored handle nor a usable suggestion are omitted; the result never
// contains an empty handle. Lookup failures are non-fatal.
func (r *Resolver) Resolve(ctx context.Context, artist *models.Artist, platforms []models.Platform) (map[models.Platform]string, error) {
	stored, err := r.store.ListSocialHandles(ctx, artist.ID)
	if err != nil {
		return nil, err
	}

	byPlatform := make(map[models.Platform]string, len(stored))
	for _, h := range stored {
		if handle := NormalizeHandle(h.Handle); handle != "" {
			byPlatform[h.Platform] = handle
		}
	}

	resolved := make(map[models.Platform]string, len(platforms))
	var missing []models.Platform
	for _, platform := range platforms {
		if handle, ok := byPlatform[platform]; ok {
			resolved[platform] = handle
		} else {
			missing = append(missing, platform)
		}
	}

	if len(missing) == 0 || r.lookup == nil {
		return resolved, nil
	}

	suggestions, err := r.lookup.SuggestHandles(ctx, artist.Name)
	if err != nil {
		// Best effort: a partial result is valid and expected.
		slog.Warn("handle lookup failed", "artist_id", artist.ID, "error", err)
		return resolved, nil
	}

	now := time.Now().UTC()
	for _, platform := range missing {
		handle := NormalizeHandle(suggestions[platform])
		if handle == "" {
			continue
		}
		resolved[platform] = handle

		// Persist the discovery so the next round finds it on record.
		err := r.store.UpsertSocialHandle(ctx, &models.SocialHandle{
			ArtistID:  artist.ID,
			Platform:  platform,
			Handle:    handle,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			slog.Warn("persist discovered handle failed",
				"artist_id", artist.ID, "platform", platform, "error", err)
		}
	}

	return resolved, nil
}

var reProfilePath = regexp.MustCompile(`//[^/]+/([^/?#]+)`)

// NormalizeHandle strips URL formatting and a leading "@" from a raw handle.
// Returns "" when nothing usable remains.
func NormalizeHandle(raw string) string {
	handle := strings.TrimSpace(raw)
	if handle == "" {
		return ""
	}
	if strings.Contains(handle, "://") || strings.HasPrefix(handle, "www.") {
		m := reProfilePath.FindStringSubmatch("//" + stripScheme(handle))
		if m == nil {
			return ""
		}
		handle = m[1]
	}
	handle = strings.TrimPrefix(handle, "@")
	handle = strings.TrimSuffix(handle, "/")
	return handle
}

func stripScheme(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[i+3:]
	}
	return u
}
