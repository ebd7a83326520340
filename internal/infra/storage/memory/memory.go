package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/infra/storage"
)

type MemoryStorage struct {
	results map[string][]*domain.ArchivedResult // keyed by storage.WalletKey
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		results: make(map[string][]*domain.ArchivedResult),
	}
}

// -----------------------------------------------------------------------------
// Result Repository
// -----------------------------------------------------------------------------

type ResultRepo struct {
	store *MemoryStorage
	now   func() time.Time
}

func NewResultRepo(store *MemoryStorage) *ResultRepo {
	return &ResultRepo{store: store, now: time.Now}
}

func (r *ResultRepo) Save(ctx context.Context, result *domain.ArchivedResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = r.now()
	}

	stored := *result
	key := storage.WalletKey(result.WalletAddress)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.results[key] = append(r.store.results[key], &stored)
	return nil
}

func (r *ResultRepo) ListByWallet(ctx context.Context, wallet string, limit int) ([]*domain.ArchivedResult, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	r.store.mu.RLock()
	list := r.store.results[storage.WalletKey(wallet)]
	out := make([]*domain.ArchivedResult, 0, len(list))
	for _, res := range list {
		cp := *res
		out = append(out, &cp)
	}
	r.store.mu.RUnlock()

	// Newest first; among equal timestamps the latest save wins.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ResultRepo) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for key, list := range r.store.results {
		kept := list[:0]
		for _, res := range list {
			if res.CreatedAt.Before(t) {
				deleted++
				continue
			}
			kept = append(kept, res)
		}
		if len(kept) == 0 {
			delete(r.store.results, key)
		} else {
			r.store.results[key] = kept
		}
	}
	return deleted, nil
}

func (r *ResultRepo) Count(ctx context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var n int64
	for _, list := range r.store.results {
		n += int64(len(list))
	}
	return n, nil
}

var _ storage.ResultRepository = (*ResultRepo)(nil)
