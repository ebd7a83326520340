package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Do calls fn until it succeeds, the strategy gives up, or ctx is done.
// The last error is returned wrapped with the attempt count.
func Do(ctx context.Context, name string, s Strategy, fn func(ctx context.Context) error) error {
	log := slog.Default().With("component", "retry", "target", name)

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !s.ShouldRetry(err, attempt+1) {
			return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt+1, err)
		}

		delay := s.GetDelay(attempt)
		log.Warn("Attempt failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-timer.C:
		}
	}
}
