package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/infra/storage"
	"github.com/vietddude/walletscore/internal/metrics"
	"github.com/vietddude/walletscore/internal/scoring/pipeline"
)

// Reporter records every produced result: it bumps the processed counter,
// updates metrics, archives the result and pushes it to the live feed.
// Archive and feed are optional.
type Reporter struct {
	state *State
	repo  storage.ResultRepository
	feed  *Feed
	log   *slog.Logger
}

// NewReporter creates a reporter. repo and feed may be nil.
func NewReporter(state *State, repo storage.ResultRepository, feed *Feed) *Reporter {
	return &Reporter{
		state: state,
		repo:  repo,
		feed:  feed,
		log:   slog.Default().With("component", "reporter"),
	}
}

// State returns the shared service state.
func (r *Reporter) State() *State {
	return r.state
}

// Report records one result produced by transport in elapsed time.
// Archive failures are logged and never fail the request.
func (r *Reporter) Report(
	ctx context.Context,
	transport domain.Transport,
	result *domain.WalletScoreResult,
	elapsed time.Duration,
) {
	r.state.IncProcessed()

	outcome := pipeline.OutcomeOf(result)
	metrics.WalletsScored.WithLabelValues(string(transport), string(outcome)).Inc()
	metrics.ProcessingDuration.WithLabelValues(string(transport)).Observe(elapsed.Seconds())
	if outcome == pipeline.OutcomeSuccess {
		metrics.CompositeScore.Observe(result.Score())
	}

	if result.Failed() {
		r.log.Warn("Wallet scoring failed",
			"wallet", result.WalletAddress,
			"transport", transport,
			"error", *result.Error,
		)
	} else {
		r.log.Info("Processed wallet",
			"wallet", result.WalletAddress,
			"transport", transport,
			"duration_ms", elapsed.Milliseconds(),
			"zscore", result.ZScore,
		)
	}

	if r.repo != nil {
		err := r.repo.Save(ctx, &domain.ArchivedResult{
			WalletAddress: result.WalletAddress,
			Transport:     transport,
			Result:        *result,
		})
		if err != nil {
			metrics.ArchiveErrors.Inc()
			r.log.Error("Failed to archive result", "wallet", result.WalletAddress, "error", err)
		}
	}

	if r.feed != nil {
		r.feed.Broadcast(transport, result)
	}
}

// History returns archived results for a wallet, newest first.
func (r *Reporter) History(ctx context.Context, wallet string, limit int) ([]*domain.ArchivedResult, error) {
	if r.repo == nil {
		return []*domain.ArchivedResult{}, nil
	}
	return r.repo.ListByWallet(ctx, wallet, limit)
}

// Scorer turns a wallet payload into a result. *pipeline.Engine implements it.
type Scorer interface {
	Process(in *domain.WalletInput) *domain.WalletScoreResult
}
