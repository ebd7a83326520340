package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoff_GetDelay(t *testing.T) {
	s := DefaultBackoff()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second},
		{10, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := s.GetDelay(tt.attempt); got != tt.want {
			t.Errorf("GetDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	s := ConstantBackoff(5*time.Second, 5)
	for attempt := 0; attempt < 5; attempt++ {
		if got := s.GetDelay(attempt); got != 5*time.Second {
			t.Errorf("GetDelay(%d) = %v, want 5s", attempt, got)
		}
	}
}

func TestExponentialBackoff_ShouldRetry(t *testing.T) {
	s := ConstantBackoff(time.Millisecond, 3)
	transient := errors.New("connection refused")

	if !s.ShouldRetry(transient, 1) {
		t.Error("Expected retry after first attempt")
	}
	if s.ShouldRetry(transient, 3) {
		t.Error("Expected no retry once attempts are exhausted")
	}
	if s.ShouldRetry(context.Canceled, 1) {
		t.Error("Expected no retry on cancellation")
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "test", ConstantBackoff(time.Millisecond, 5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	sentinel := errors.New("down")
	err := Do(context.Background(), "redis", ConstantBackoff(time.Millisecond, 5), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected wrapped sentinel, got %v", err)
	}
	if calls != 5 {
		t.Errorf("Expected 5 calls, got %d", calls)
	}
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, "redis", ConstantBackoff(time.Hour, 5), func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}
