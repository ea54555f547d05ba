package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundlytics/artistpulse/internal/cache"
	"github.com/soundlytics/artistpulse/internal/pubsub"
	"github.com/soundlytics/artistpulse/internal/store"
	"github.com/soundlytics/artistpulse/pkg/models"
)

const jobStatusTTL = 30 * time.Minute

// Listener consumes a round's progress events from the push channel, applies
// them to job rows, and triggers aggregation once every platform in the round
// is terminal. One Listener serves all rounds; each round gets its own
// subscription with a lifecycle tied to round completion.
type Listener struct {
	store      Store
	channel    pubsub.Channel
	cache      cache.Cache // optional; nil disables status mirroring
	aggregator *Aggregator
}

// NewListener creates a Listener.
func NewListener(st Store, channel pubsub.Channel, ca cache.Cache, aggregator *Aggregator) *Listener {
	return &Listener{store: st, channel: channel, cache: ca, aggregator: aggregator}
}

// ActiveRound is a handle on one round's running subscription.
type ActiveRound struct {
	sub  pubsub.Subscription
	done chan struct{}
}

// Done is closed once the round has completed and aggregation has run.
// Rounds whose workers never report a terminal status never close Done.
func (ar *ActiveRound) Done() <-chan struct{} { return ar.done }

// Close detaches the subscription without waiting for round completion.
func (ar *ActiveRound) Close() error { return ar.sub.Close() }

// Start subscribes to the round's topic and processes events until every
// platform is terminal or ctx is cancelled. It must be called before the
// round's workers are invoked so no event is missed.
func (l *Listener) Start(ctx context.Context, round Round) (*ActiveRound, error) {
	sub, err := l.channel.Subscribe(ctx, round.JobID)
	if err != nil {
		return nil, fmt.Errorf("subscribe round %s: %w", round.JobID, err)
	}

	ar := &ActiveRound{sub: sub, done: make(chan struct{})}
	go l.run(ctx, round, ar)
	return ar, nil
}

func (l *Listener) run(ctx context.Context, round Round, ar *ActiveRound) {
	defer ar.sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ar.sub.Events():
			if !ok {
				return
			}
			if l.handleEvent(ctx, round, event) {
				close(ar.done)
				return
			}
		}
	}
}

// handleEvent applies one progress event. Returns true once the whole round
// is terminal and aggregation has run.
func (l *Listener) handleEvent(ctx context.Context, round Round, event models.ProgressEvent) bool {
	log := slog.With("job_id", round.JobID, "platform", event.Platform)

	if err := event.Validate(); err != nil {
		log.Warn("dropping invalid progress event", "error", err)
		return false
	}

	// The cached mirror is written only after a successful apply, so a
	// terminal status there is authoritative: drop the late event without a
	// database round-trip.
	if l.cache != nil {
		status, ok, err := l.cache.GetJobStatus(ctx, round.JobID, event.Platform)
		if err == nil && ok && status.IsTerminal() {
			log.Debug("dropping event for terminal job", "status", event.Status)
			return false
		}
	}

	applied, err := l.store.ApplyJobProgress(ctx, round.JobID, event.Platform, store.JobProgress{
		Status:   event.Status,
		Progress: event.Progress,
		Result:   event.Result,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("progress event for unknown job row")
		} else {
			log.Error("apply progress event", "error", err)
		}
		return false
	}
	if !applied {
		// Job already terminal; terminality is sticky regardless of event order.
		log.Debug("dropping event for terminal job", "status", event.Status)
		return false
	}

	if l.cache != nil {
		if err := l.cache.SetJobStatus(ctx, round.JobID, event.Platform, event.Status, jobStatusTTL); err != nil {
			log.Warn("mirror job status to cache", "error", err)
		}
		// The artist's active-job answer just changed.
		if err := l.cache.Delete(ctx, cache.ActiveJobKey(round.ArtistID)); err != nil {
			log.Warn("invalidate active-job cache", "error", err)
		}
	}

	// Partial information is visible to readers before the round finishes.
	if event.Result != nil {
		l.mergePartialResult(ctx, round, event.Result, log)
	}

	if !event.Status.IsTerminal() {
		return false
	}
	return l.finishIfRoundTerminal(ctx, round, log)
}

func (l *Listener) mergePartialResult(ctx context.Context, round Round, result *models.PlatformResult, log *slog.Logger) {
	// Workers report the canonical handle they actually scraped; put it on
	// record so the next round resolves without a lookup.
	if result.Handle != "" {
		now := time.Now().UTC()
		err := l.store.UpsertSocialHandle(ctx, &models.SocialHandle{
			ArtistID:  round.ArtistID,
			Platform:  result.Platform,
			Handle:    result.Handle,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			log.Warn("persist reported handle", "error", err)
		}
	}

	attrs := store.ArtistAttributes{}
	if result.DisplayName != "" {
		attrs.DisplayName = &result.DisplayName
	}
	if result.AvatarURL != "" {
		attrs.AvatarURL = &result.AvatarURL
	}
	if len(result.SocialLinks) > 0 {
		artist, err := l.store.GetArtist(ctx, round.ArtistID)
		if err != nil {
			log.Warn("load artist for link merge", "error", err)
		} else {
			attrs.SocialLinks = MergeSocialLinks(artist.SocialLinks, result.SocialLinks)
		}
	}
	if attrs.DisplayName == nil && attrs.AvatarURL == nil && attrs.SocialLinks == nil {
		return
	}
	if err := l.store.MergeArtistAttributes(ctx, round.ArtistID, attrs); err != nil {
		log.Warn("merge partial artist attributes", "error", err)
	}
}

// finishIfRoundTerminal checks whether every job row of the round is
// terminal; error terminals count, so an all-error round still completes.
func (l *Listener) finishIfRoundTerminal(ctx context.Context, round Round, log *slog.Logger) bool {
	jobs, err := l.store.ListJobsByRound(ctx, round.JobID)
	if err != nil {
		log.Error("list round jobs", "error", err)
		return false
	}
	if len(jobs) == 0 {
		return false
	}
	for _, job := range jobs {
		if !job.Status.IsTerminal() {
			return false
		}
	}

	if err := l.aggregator.AggregateRound(ctx, round.ArtistID, jobs); err != nil {
		log.Error("aggregate completed round", "error", err)
		// The round is still over; the previous profile stays in place.
	}
	log.Info("round completed", "platforms", len(jobs))
	return true
}
