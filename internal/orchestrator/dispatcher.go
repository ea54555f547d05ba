package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/soundlytics/artistpulse/internal/worker"
	"github.com/soundlytics/artistpulse/pkg/models"
)

// HandleResolver resolves the best-known handle per platform for an artist.
type HandleResolver interface {
	Resolve(ctx context.Context, artist *models.Artist, platforms []models.Platform) (map[models.Platform]string, error)
}

// Dispatcher creates a round of per-platform analysis jobs and hands them to
// the scraping workers. Worker invocation is fire-and-forget; the dispatcher
// returns as soon as every job row is registered.
type Dispatcher struct {
	store    Store
	resolver HandleResolver
	invoker  worker.Invoker
	listener *Listener
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(st Store, res HandleResolver, inv worker.Invoker, listener *Listener) *Dispatcher {
	return &Dispatcher{store: st, resolver: res, invoker: inv, listener: listener}
}

// DispatchResult is returned to the caller immediately so it can start
// listening for progress under JobID.
type DispatchResult struct {
	JobID     uuid.UUID
	Platforms []models.Platform
}

// Dispatch starts one analysis round for the artist. target is a single
// platform or models.PlatformAll for a combined run. Platforms without a
// resolvable handle are skipped; zero resolvable handles means nothing is
// dispatched and ErrNothingToAnalyze is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, artistID, accountID uuid.UUID, target string) (*DispatchResult, error) {
	var requested []models.Platform
	combined := target == models.PlatformAll
	if combined {
		requested = models.AllPlatforms()
	} else {
		platform, err := models.ParsePlatform(target)
		if err != nil {
			return nil, err
		}
		requested = []models.Platform{platform}
	}

	artist, err := d.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("load artist: %w", err)
	}

	handles, err := d.resolver.Resolve(ctx, artist, requested)
	if err != nil {
		return nil, fmt.Errorf("resolve handles: %w", err)
	}
	if len(handles) == 0 {
		return nil, ErrNothingToAnalyze
	}

	jobID := uuid.New()

	// Stable dispatch order; map iteration order is not.
	platforms := make([]models.Platform, 0, len(handles))
	for _, platform := range requested {
		if _, ok := handles[platform]; ok {
			platforms = append(platforms, platform)
		}
	}

	round := Round{
		JobID:     jobID,
		ArtistID:  artistID,
		AccountID: accountID,
		Platforms: platforms,
		Combined:  combined,
	}

	// Subscribe before any worker can emit so no event is missed. The round
	// outlives the dispatch request, so the listener runs detached from ctx;
	// workers report long after the response is written.
	active, err := d.listener.Start(context.Background(), round)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	registered := make([]models.Platform, 0, len(platforms))
	for _, platform := range platforms {
		job := &models.AnalysisJob{
			JobID:     jobID,
			ArtistID:  artistID,
			Platform:  platform,
			Status:    models.StatusInitial,
			Progress:  0,
			Handle:    handles[platform],
			CreatedAt: now,
			UpdatedAt: now,
		}
		// Row first: it records intent, not a confirmed running worker.
		if err := d.store.CreateAnalysisJob(ctx, job); err != nil {
			slog.Error("register analysis job",
				"job_id", jobID, "platform", platform, "error", err)
			continue
		}
		registered = append(registered, platform)

		go d.invokeWorker(platform, models.WorkerRequest{
			JobID:       jobID,
			Handle:      handles[platform],
			ArtistID:    artistID,
			AccountID:   accountID,
			CombinedRun: combined,
		})
	}

	if len(registered) == 0 {
		_ = active.Close()
		return nil, fmt.Errorf("register analysis jobs for round %s: no platform registered", jobID)
	}

	return &DispatchResult{JobID: jobID, Platforms: registered}, nil
}

// invokeWorker runs detached from the dispatch request; the job row already
// represents the intended work, so a failed handoff is only logged.
func (d *Dispatcher) invokeWorker(platform models.Platform, req models.WorkerRequest) {
	ctx := context.Background()
	if err := d.invoker.Invoke(ctx, platform, req); err != nil {
		slog.Error("invoke worker", "job_id", req.JobID, "platform", platform, "error", err)
	}
}
