//go:build integration

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestBroadcaster_Integration_CrossProcessEpisode(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	phone := NewBroadcaster(Config{Redis: client, Source: "phone", EpisodeTTL: time.Minute}, logger)
	tablet := NewBroadcaster(Config{Redis: client, Source: "tablet", EpisodeTTL: time.Minute}, logger)

	received := make(chan Event, 4)
	tablet.OnInvalidated(func(e Event) { received <- e })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tablet.Listen(ctx)

	// Give the subscription time to register.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, err := client.PubSubNumSub(ctx, RedisChannelInvalidated).Result()
		if err == nil && n[RedisChannelInvalidated] > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	phone.NotifySessionInvalidated()

	select {
	case e := <-received:
		if e.Source != "phone" {
			t.Errorf("event source = %q, want phone", e.Source)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tablet did not receive the invalidation")
	}

	// The tablet detecting the same episode must not announce it again.
	tablet.NotifySessionInvalidated()
	owner, err := client.Get(ctx, RedisKeyEpisode).Result()
	if err != nil {
		t.Fatalf("Get episode: %v", err)
	}
	if owner != "phone" {
		t.Errorf("episode owner = %q, want phone", owner)
	}

	if err := phone.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if n, _ := client.Exists(ctx, RedisKeyEpisode).Result(); n != 0 {
		t.Error("episode key should be cleared after Reset")
	}
}
