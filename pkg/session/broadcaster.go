// Package session implements the collaborator that list engines notify when
// the server reports the credential was invalidated elsewhere.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Redis keys and channels for cross-process invalidation.
const (
	RedisChannelInvalidated = "listpager:session:invalidated"
	RedisKeyEpisode         = "listpager:session:episode"
)

var (
	sessionInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listpager_session_invalidations_total",
		Help: "Session invalidation episodes by origin (local, remote)",
	}, []string{"origin"})

	sessionDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listpager_session_duplicate_notifications_total",
		Help: "Invalidation notifications suppressed because the episode was already handled",
	})
)

// Event describes one invalidation episode.
type Event struct {
	Source string    `json:"source"`
	At     time.Time `json:"at"`
	Remote bool      `json:"-"`
}

// Listener reacts to an invalidation, e.g. by logging out and navigating.
type Listener func(Event)

// Config holds broadcaster configuration.
type Config struct {
	// Redis enables cross-process fan-out (optional).
	Redis redis.UniversalClient

	// Source identifies this process in published events.
	Source string

	// EpisodeTTL bounds how long a claimed episode suppresses repeats
	// across processes.
	EpisodeTTL time.Duration

	// RedisTimeout bounds each Redis call made from NotifySessionInvalidated.
	RedisTimeout time.Duration
}

// DefaultConfig returns a local-only configuration.
func DefaultConfig() Config {
	host, _ := os.Hostname()
	return Config{
		Source:       fmt.Sprintf("%s-%d", host, os.Getpid()),
		EpisodeTTL:   5 * time.Minute,
		RedisTimeout: 2 * time.Second,
	}
}

// Broadcaster fires its listeners at most once per invalidation episode, no
// matter how many screens report it. Reset starts a new episode.
type Broadcaster struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	fired     bool
	listeners map[uint64]Listener
	nextID    uint64
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster(cfg Config, logger zerolog.Logger) *Broadcaster {
	if cfg.Source == "" {
		cfg.Source = DefaultConfig().Source
	}
	if cfg.EpisodeTTL <= 0 {
		cfg.EpisodeTTL = 5 * time.Minute
	}
	if cfg.RedisTimeout <= 0 {
		cfg.RedisTimeout = 2 * time.Second
	}
	return &Broadcaster{
		cfg:       cfg,
		logger:    logger,
		listeners: make(map[uint64]Listener),
	}
}

// OnInvalidated registers fn and returns a function removing it.
func (b *Broadcaster) OnInvalidated(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Invalidated reports whether the current episode has fired.
func (b *Broadcaster) Invalidated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fired
}

// NotifySessionInvalidated implements paging.SessionNotifier.
func (b *Broadcaster) NotifySessionInvalidated() {
	event := Event{Source: b.cfg.Source, At: time.Now().UTC()}
	if !b.fire(event, "local") {
		return
	}

	if b.cfg.Redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.RedisTimeout)
	defer cancel()
	if err := b.publish(ctx, event); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to publish session invalidation")
	}
}

// publish claims the episode in Redis and announces it. Another process
// holding the claim means the episode was already announced.
func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	claimed, err := b.cfg.Redis.SetNX(ctx, RedisKeyEpisode, event.Source, b.cfg.EpisodeTTL).Result()
	if err != nil {
		return fmt.Errorf("claim episode: %w", err)
	}
	if !claimed {
		b.logger.Debug().Msg("Session invalidation already announced by another process")
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.cfg.Redis.Publish(ctx, RedisChannelInvalidated, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// fire runs the listeners unless the episode already fired.
func (b *Broadcaster) fire(event Event, origin string) bool {
	b.mu.Lock()
	if b.fired {
		b.mu.Unlock()
		sessionDuplicatesTotal.Inc()
		return false
	}
	b.fired = true
	listeners := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	sessionInvalidationsTotal.WithLabelValues(origin).Inc()
	b.logger.Warn().
		Str("origin", origin).
		Str("source", event.Source).
		Msg("Session invalidated")

	for _, fn := range listeners {
		fn(event)
	}
	return true
}

// Reset starts a new episode, typically after the user signs in again.
func (b *Broadcaster) Reset(ctx context.Context) error {
	b.mu.Lock()
	b.fired = false
	b.mu.Unlock()

	if b.cfg.Redis == nil {
		return nil
	}
	if err := b.cfg.Redis.Del(ctx, RedisKeyEpisode).Err(); err != nil {
		return fmt.Errorf("clear episode: %w", err)
	}
	return nil
}

// Listen fires listeners for episodes announced by other processes until ctx
// is done. It requires Redis.
func (b *Broadcaster) Listen(ctx context.Context) error {
	if b.cfg.Redis == nil {
		return fmt.Errorf("session: listen requires redis")
	}

	sub := b.cfg.Redis.Subscribe(ctx, RedisChannelInvalidated)
	defer sub.Close()

	// Wait for the subscription to be confirmed before consuming.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", RedisChannelInvalidated, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn().Err(err).Msg("Ignoring malformed session event")
				continue
			}
			if event.Source == b.cfg.Source {
				continue
			}
			event.Remote = true
			b.fire(event, "remote")
		}
	}
}
