package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastRetry keeps backoff waits short enough for unit tests.
func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    20 * time.Millisecond,
		MaxBackoff:        200 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 500ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 10*time.Second {
		t.Errorf("MaxBackoff = %v, want 10s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_ForErrorClass(t *testing.T) {
	base := RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{name: "server error keeps base", errorClass: ErrorClassServer, expectedInitial: 1 * time.Second, expectedMax: 10 * time.Second},
		{name: "rate limit waits longest", errorClass: ErrorClassRateLimit, expectedInitial: 4 * time.Second, expectedMax: 20 * time.Second},
		{name: "network doubles initial", errorClass: ErrorClassNetwork, expectedInitial: 2 * time.Second, expectedMax: 10 * time.Second},
		{name: "unknown class keeps base", errorClass: "", expectedInitial: 1 * time.Second, expectedMax: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base.ForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != 3 {
				t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
			}
		})
	}
}

func TestRetryConfig_ForErrorClassNormalizes(t *testing.T) {
	config := RetryConfig{MaxAttempts: 0, BackoffMultiplier: 0}.ForErrorClass(ErrorClassServer)

	if config.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", config.MaxAttempts)
	}
	if config.BackoffMultiplier != 1 {
		t.Errorf("BackoffMultiplier = %v, want 1", config.BackoffMultiplier)
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	fn := func() error {
		callCount++
		return nil
	}

	err := retryWithBackoff(context.Background(), fastRetry(), fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	fn := func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	start := time.Now()
	err := retryWithBackoff(context.Background(), fastRetry(), fn, func(error) ErrorClass {
		return ErrorClassServer
	})
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	// ~20ms then ~40ms, each with ±20% jitter
	if duration < 40*time.Millisecond {
		t.Errorf("Expected some backoff delay, got %v", duration)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	testErr := errors.New("persistent error")
	fn := func() error {
		callCount++
		return testErr
	}

	err := retryWithBackoff(context.Background(), fastRetry(), fn, func(error) ErrorClass { return ErrorClassServer })

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected last error to be wrapped, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	callCount := 0
	testErr := errors.New("client error")
	fn := func() error {
		callCount++
		return testErr
	}

	err := retryWithBackoff(context.Background(), fastRetry(), fn, func(error) ErrorClass { return ErrorClassClient })

	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Should not return ErrRetryExhausted for client errors (no retry attempted)")
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected original error, got %v", err)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callCount := 0
	fn := func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return errors.New("error")
	}

	err := retryWithBackoff(ctx, fastRetry(), fn, func(error) ErrorClass { return ErrorClassServer })

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled to be wrapped, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := fastRetry()
	config.InitialBackoff = time.Minute
	config.MaxBackoff = time.Minute

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := retryWithBackoff(ctx, config, func() error { return errors.New("error") }, func(error) ErrorClass {
		return ErrorClassServer
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff wait should end when the context is cancelled")
	}
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	}

	timestamps := []time.Time{}
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}

	_ = retryWithBackoff(context.Background(), config, fn, func(error) ErrorClass { return ErrorClassServer })

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}

	firstDelay := timestamps[1].Sub(timestamps[0])
	secondDelay := timestamps[2].Sub(timestamps[1])

	// ±20% jitter: first in [40ms, 60ms], second in [80ms, 120ms]
	if firstDelay < 40*time.Millisecond {
		t.Errorf("First retry delay %v shorter than expected", firstDelay)
	}
	if secondDelay < 80*time.Millisecond {
		t.Errorf("Second retry delay %v shorter than expected", secondDelay)
	}
}

func TestRetryWithBackoff_MaxBackoffCap(t *testing.T) {
	config := RetryConfig{
		MaxAttempts:       4,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        30 * time.Millisecond,
		BackoffMultiplier: 10.0,
	}

	timestamps := []time.Time{}
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}

	_ = retryWithBackoff(context.Background(), config, fn, func(error) ErrorClass { return ErrorClassServer })

	if len(timestamps) != 4 {
		t.Fatalf("Expected 4 timestamps, got %d", len(timestamps))
	}
	// Uncapped the third wait would be 1s.
	if last := timestamps[3].Sub(timestamps[2]); last > 500*time.Millisecond {
		t.Errorf("Third retry delay %v should be capped near %v", last, config.MaxBackoff)
	}
}
