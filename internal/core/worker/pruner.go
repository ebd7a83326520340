package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/walletscore/internal/infra/storage"
	"github.com/vietddude/walletscore/internal/metrics"
)

// Pruner deletes archived results based on retention policy.
type Pruner struct {
	retention time.Duration
	repo      storage.ResultRepository
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.ResultRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		log:       slog.Default().With("component", "pruner"),
		now:       time.Now,
	}
}

// Interval returns how often the archive is checked: 10% of the retention
// period, clamped to [1m, 1h].
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, 1*time.Hour)
	return max(interval, 1*time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune removes results older than the retention period and refreshes the
// archive size gauge.
func (p *Pruner) Prune(ctx context.Context) {
	threshold := p.now().Add(-p.retention)

	deleted, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune archived results", "error", err)
	} else if deleted > 0 {
		p.log.Info("Pruned archived results", "deleted", deleted, "before", threshold.Format(time.RFC3339))
	}

	n, err := p.repo.Count(ctx)
	if err != nil {
		p.log.Error("Failed to count archived results", "error", err)
		return
	}
	metrics.ArchivedResults.Set(float64(n))
}
