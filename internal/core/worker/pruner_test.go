package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/infra/storage/memory"
)

func TestPruner_Interval(t *testing.T) {
	tests := []struct {
		retention time.Duration
		want      time.Duration
	}{
		{time.Minute, time.Minute},
		{2 * time.Hour, 12 * time.Minute},
		{30 * 24 * time.Hour, time.Hour},
	}

	for _, tt := range tests {
		p := NewPruner(tt.retention, nil)
		if got := p.Interval(); got != tt.want {
			t.Errorf("Interval(%v) = %v, want %v", tt.retention, got, tt.want)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewResultRepo(memory.NewMemoryStorage())
	now := time.Unix(1700000000, 0)

	for _, age := range []time.Duration{0, 2 * time.Hour, 5 * time.Hour} {
		err := repo.Save(ctx, &domain.ArchivedResult{
			WalletAddress: "0xabc",
			CreatedAt:     now.Add(-age),
		})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	p := NewPruner(3*time.Hour, repo)
	p.now = func() time.Time { return now }
	p.Prune(ctx)

	n, _ := repo.Count(ctx)
	if n != 2 {
		t.Errorf("Expected 2 results after prune, got %d", n)
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPruner(0, nil).Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return with retention disabled")
	}
}
