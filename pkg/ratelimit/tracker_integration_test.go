//go:build integration

package ratelimit

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

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_GetState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, logger)
	ctx := context.Background()

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}

	if err := tracker.UpdateFromHeaders(ctx, budgetHeaders("75", "120")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() after update error = %v", err)
	}
	if state.Remaining != 75 {
		t.Errorf("Remaining = %d, want 75", state.Remaining)
	}

	expected := 120 * time.Second
	tolerance := 5 * time.Second
	if got := state.TimeUntilReset(); got < expected-tolerance || got > expected+tolerance {
		t.Errorf("TimeUntilReset = %v, want approximately %v", got, expected)
	}
}

func TestTracker_Integration_ShouldAllowRequest(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	tests := []struct {
		name      string
		remaining string
		wantAllow bool
	}{
		{name: "healthy", remaining: "80", wantAllow: true},
		{name: "warning", remaining: "5", wantAllow: true},
		{name: "critical", remaining: "1", wantAllow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			redisClient.FlushAll(ctx)

			writer := NewTracker(redisClient, logger)
			reader := NewTracker(redisClient, logger)
			reader.ThrottleDelay = 10 * time.Millisecond

			if err := writer.UpdateFromHeaders(ctx, budgetHeaders(tt.remaining, "60")); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			allowed, err := reader.ShouldAllowRequest(ctx)
			if err != nil {
				t.Fatalf("ShouldAllowRequest() error = %v", err)
			}
			if allowed != tt.wantAllow {
				t.Errorf("ShouldAllowRequest() = %v, want %v", allowed, tt.wantAllow)
			}
		})
	}
}

func TestTracker_Integration_StateExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, logger)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, budgetHeaders("1", "1")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	ttl, err := redisClient.TTL(ctx, RedisKeyRemaining).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > 2*time.Minute {
		t.Errorf("TTL = %v, want a bounded expiry", ttl)
	}

	time.Sleep(1500 * time.Millisecond)
	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.NeedsCriticalBlock() {
		t.Error("a window that already reset should not block")
	}
}
