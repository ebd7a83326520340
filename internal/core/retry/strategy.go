// Package retry provides backoff strategies for reconnecting to external
// dependencies.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// FailureCategory tells a strategy whether an error is worth retrying.
type FailureCategory int

const (
	CategoryTransient FailureCategory = iota
	CategoryPermanent
)

// Classifier maps an error to its category.
type Classifier func(err error) FailureCategory

// Strategy defines how retries should be handled.
type Strategy interface {
	// GetDelay returns the delay for the given attempt (0-indexed).
	GetDelay(attempt int) time.Duration

	// ShouldRetry checks if we should retry based on the error and attempt count.
	ShouldRetry(err error, attempt int) bool
}

// ExponentialBackoff doubles the delay on every attempt up to MaxDelay.
// Setting MaxDelay equal to InitialDelay yields a constant delay.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Classifier   Classifier
}

// TransientOnly treats every error as transient except context
// cancellation.
func TransientOnly(err error) FailureCategory {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryPermanent
	}
	return CategoryTransient
}

// DefaultBackoff returns 2s, 4s, 8s, 16s, 32s (max 60s).
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		MaxAttempts:  5,
		Classifier:   TransientOnly,
	}
}

// ConstantBackoff waits the same delay between at most attempts tries.
func ConstantBackoff(delay time.Duration, attempts int) *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialDelay: delay,
		MaxDelay:     delay,
		MaxAttempts:  attempts,
		Classifier:   TransientOnly,
	}
}

// GetDelay calculates delay: InitialDelay * 2^attempt
func (s *ExponentialBackoff) GetDelay(attempt int) time.Duration {
	delay := float64(s.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry checks if error is transient and max attempts not exceeded.
// attempt counts the tries already made.
func (s *ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	if attempt >= s.MaxAttempts {
		return false
	}

	classify := s.Classifier
	if classify == nil {
		classify = TransientOnly
	}
	return classify(err) == CategoryTransient
}
