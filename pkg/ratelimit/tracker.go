package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrBlocked is returned when the request budget is critically low.
var ErrBlocked = errors.New("request blocked: rate limit critical")

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "listpager_rate_limit_remaining",
		Help: "Requests remaining in the current API rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listpager_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to critical rate limit",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listpager_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to warning rate limit",
	})
)

// DefaultThrottleDelay is how long a throttled request waits.
const DefaultThrottleDelay = 1 * time.Second

// Tracker monitors the API request budget and gates requests. With a nil
// Redis client the state is kept in memory.
type Tracker struct {
	redis  redis.UniversalClient
	logger zerolog.Logger

	// ThrottleDelay is the wait applied in the warning state.
	ThrottleDelay time.Duration

	mu    sync.Mutex
	local *State // used when redis is nil
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient redis.UniversalClient, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		ThrottleDelay: DefaultThrottleDelay,
	}
}

// GetState returns the current state, or a default healthy state if no
// budget was reported yet.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.local == nil {
			return defaultState(), nil
		}
		state := *t.local
		return &state, nil
	}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return defaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &State{
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders records the budget reported in response headers.
// Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := parseIntHeader(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetSeconds, err := parseIntHeader(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	now := time.Now()
	state := &State{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}
	state.UpdateHealth()

	if err := t.store(ctx, state); err != nil {
		return err
	}

	rateLimitRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("API rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("API rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("API rate limit state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, state *State) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Expire shortly after the window resets so stale budgets do not linger.
	ttl := state.TimeUntilReset() + time.Minute

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, ttl)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest reports whether a request may be sent. It returns false
// in the critical state and waits ThrottleDelay in the warning state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("API rate limit critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.ThrottleDelay).
			Msg("API rate limit warning - throttling request")

		rateLimitThrottlesTotal.Inc()
		timer := time.NewTimer(t.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}

func parseIntHeader(value string) (int, error) {
	return strconv.Atoi(value)
}
