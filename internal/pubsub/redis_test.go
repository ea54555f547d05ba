package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/soundlytics/artistpulse/internal/pubsub"
	"github.com/soundlytics/artistpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisChannel spins up a Redis container and returns a connected channel.
func setupRedisChannel(t *testing.T) (*pubsub.RedisChannel, string) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	channel, err := pubsub.NewRedisChannel(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, channel.Close()) })

	return channel, redisURL
}

func TestRedisChannel_PublishSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	channel, _ := setupRedisChannel(t)
	ctx := context.Background()
	jobID := uuid.New()

	sub, err := channel.Subscribe(ctx, jobID)
	require.NoError(t, err)
	defer sub.Close()

	want := models.ProgressEvent{
		Platform: models.PlatformInstagram,
		Status:   models.StatusContentFetched,
		Progress: 60,
		Result: &models.PlatformResult{
			Platform:      models.PlatformInstagram,
			Handle:        "testartist",
			FollowerCount: 4200,
		},
	}
	require.NoError(t, channel.Publish(ctx, jobID, want))

	select {
	case got := <-sub.Events():
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Platform, got.Platform)
		require.NotNil(t, got.Result)
		assert.Equal(t, int64(4200), got.Result.FollowerCount)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisChannel_CloseWithUndeliveredEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	channel, _ := setupRedisChannel(t)
	ctx := context.Background()
	jobID := uuid.New()

	sub, err := channel.Subscribe(ctx, jobID)
	require.NoError(t, err)

	// Nobody is receiving; pile up more events than the forwarder buffers.
	for i := 0; i < 32; i++ {
		require.NoError(t, channel.Publish(ctx, jobID, models.ProgressEvent{
			Platform: models.PlatformSpotify,
			Status:   models.StatusSegmenting,
			Progress: i,
		}))
	}
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, sub.Close())

	// The events channel still closes; a pending delivery must not keep the
	// forwarding goroutine alive after Close.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Events():
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond, "events channel never closed")
}

func TestRedisChannel_MalformedPayloadDropped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	channel, redisURL := setupRedisChannel(t)
	ctx := context.Background()
	jobID := uuid.New()

	sub, err := channel.Subscribe(ctx, jobID)
	require.NoError(t, err)
	defer sub.Close()

	// Publish garbage straight to the topic, then a valid event.
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	raw := redis.NewClient(opts)
	defer raw.Close()
	require.NoError(t, raw.Publish(ctx, pubsub.Topic(jobID), "not json").Err())

	require.NoError(t, channel.Publish(ctx, jobID, models.ProgressEvent{
		Platform: models.PlatformTwitter,
		Status:   models.StatusFinished,
		Progress: 100,
	}))

	// Only the valid event arrives.
	select {
	case got := <-sub.Events():
		assert.Equal(t, models.StatusFinished, got.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
