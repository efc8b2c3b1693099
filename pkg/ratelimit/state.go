// Package ratelimit tracks the content API's request budget from the
// X-RateLimit-Remaining and X-RateLimit-Reset headers and gates requests
// before the server starts rejecting them.
package ratelimit

import (
	"time"
)

// Response headers carrying the request budget.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "listpager:rate_limit:remaining"
	RedisKeyResetTimestamp = "listpager:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "listpager:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks requests when the remaining budget falls below it.
	ThresholdCritical = 2

	// ThresholdWarning throttles requests when the remaining budget falls below it.
	ThresholdWarning = 10

	// ThresholdHealthy is the budget at or above which the state is healthy.
	ThresholdHealthy = 30
)

// State is the current request budget. It is shared across client instances
// via Redis when one is configured.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is assumed until the server reports a budget.
func defaultState() *State {
	now := time.Now()
	return &State{
		Remaining:  ThresholdHealthy * 2,
		ResetAt:    now.Add(60 * time.Second),
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked. A window
// that already reset no longer blocks.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && s.TimeUntilReset() > 0 && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets, or 0 if it
// already has.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
