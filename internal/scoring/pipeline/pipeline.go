// Package pipeline ties normalization, feature extraction and scoring into a
// single wallet-level result.
package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/scoring/features"
	"github.com/vietddude/walletscore/internal/scoring/normalizer"
	"github.com/vietddude/walletscore/internal/scoring/scorer"
)

// zscoreDigits is the fixed number of fractional digits of a composite score.
const zscoreDigits = 18

// unknownWallet labels results for payloads without an address.
const unknownWallet = "unknown"

// Outcome classifies a result for transports and metrics.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailed  Outcome = "failed"
)

// OutcomeOf reports how a result was produced.
func OutcomeOf(r *domain.WalletScoreResult) Outcome {
	switch {
	case r.Failed():
		return OutcomeFailed
	case r.TransactionCount() == 0:
		return OutcomeEmpty
	default:
		return OutcomeSuccess
	}
}

// Engine scores wallets. It holds no state besides its clock and is safe for
// concurrent use.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Process scores a wallet with the default engine.
func Process(in *domain.WalletInput) *domain.WalletScoreResult {
	return defaultEngine.Process(in)
}

// Process scores a wallet. It never panics and never returns nil: any
// failure is reported through the result's Error field with a zero score and
// no categories.
func (e *Engine) Process(in *domain.WalletInput) (result *domain.WalletScoreResult) {
	start := e.now()
	address := walletAddress(in)

	defer func() {
		if r := recover(); r != nil {
			result = e.failure(address, start, fmt.Errorf("%v", r))
		}
	}()

	zscore, category, err := evaluate(in)
	if err != nil {
		return e.failure(address, start, err)
	}

	end := e.now()
	return &domain.WalletScoreResult{
		WalletAddress:    address,
		ZScore:           zscore,
		Timestamp:        end.Unix(),
		ProcessingTimeMs: end.Sub(start).Milliseconds(),
		Categories:       []domain.CategoryResult{category},
	}
}

// evaluate runs normalization through aggregation.
func evaluate(in *domain.WalletInput) (string, domain.CategoryResult, error) {
	txs, err := normalizer.Normalize(in)
	if err != nil {
		return "", domain.CategoryResult{}, err
	}

	if len(txs) == 0 {
		return domain.ZScoreZero, domain.CategoryResult{
			Category: domain.CategoryDexes,
			Features: map[string]float64{},
		}, nil
	}

	frame := features.NewFrame(txs)
	lp := features.ExtractLP(frame)
	swap := features.ExtractSwap(frame)

	lpScore := scorer.ScoreLP(lp)
	swapScore := scorer.ScoreSwap(swap)
	composite := scorer.Aggregate(lpScore, swapScore)
	if !isFinite(lpScore) || !isFinite(swapScore) || !isFinite(composite) {
		return "", domain.CategoryResult{}, fmt.Errorf(
			"non-finite score: lp_score=%v swap_score=%v composite=%v", lpScore, swapScore, composite)
	}

	merged := lp.Fields()
	for k, v := range swap.Fields() {
		merged[k] = v
	}
	merged["lp_score"] = lpScore
	merged["swap_score"] = swapScore

	return FormatZScore(composite), domain.CategoryResult{
		Category:         domain.CategoryDexes,
		Score:            composite,
		TransactionCount: frame.Len(),
		Features:         merged,
	}, nil
}

func (e *Engine) failure(address string, start time.Time, err error) *domain.WalletScoreResult {
	end := e.now()
	msg := err.Error()
	return &domain.WalletScoreResult{
		WalletAddress:    address,
		ZScore:           domain.ZScoreZero,
		Timestamp:        end.Unix(),
		ProcessingTimeMs: end.Sub(start).Milliseconds(),
		Categories:       []domain.CategoryResult{},
		Error:            &msg,
	}
}

// FormatZScore renders a composite score with 18 fractional digits, the
// exact binary expansion of v rather than a shortest representation.
func FormatZScore(v float64) string {
	return strconv.FormatFloat(v, 'f', zscoreDigits, 64)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// walletAddress labels a result. Only an absent address becomes "unknown";
// an explicit empty one is kept.
func walletAddress(in *domain.WalletInput) string {
	if in == nil || (in.WalletAddress == "" && !in.AddressSet) {
		return unknownWallet
	}
	return in.WalletAddress
}
