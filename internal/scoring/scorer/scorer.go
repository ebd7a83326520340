// Package scorer maps feature vectors to bounded scores.
//
// Every component term is capped from above only. A withdraw ratio above 1
// or a negative hold time pulls the LP score down with no floor, so a
// pathological vector can yield a negative score.
package scorer

import (
	"strconv"

	"github.com/vietddude/walletscore/internal/core/domain"
)

const (
	// MaxScore caps the LP and swap scores.
	MaxScore = 1000.0

	lpWeight   = 0.6
	swapWeight = 0.4

	daysPerYear = 365.0
)

// ScoreLP scores liquidity provision behavior.
func ScoreLP(f domain.LPFeatures) float64 {
	score := 0.0
	score += min(f.TotalDepositUSD/10, 300)
	score += (1 - f.WithdrawRatio) * 100
	score += (min(f.AvgHoldTimeDays, daysPerYear) / daysPerYear) * 200
	score += float64(f.UniquePools) * 20
	return min(score, MaxScore)
}

// ScoreSwap scores swap trading behavior.
func ScoreSwap(f domain.SwapFeatures) float64 {
	score := 0.0
	score += min(f.TotalSwapVolume/20, 300)
	score += min(float64(f.NumSwaps)*5, 200)
	score += f.TokenDiversityScore
	score += min(f.SwapFrequencyScore*100, 100)
	return min(score, MaxScore)
}

// Aggregate weighs the LP score at 60% and the swap score at 40%, rounded to
// two decimals.
func Aggregate(lpScore, swapScore float64) float64 {
	return Round(lpWeight*lpScore+swapWeight*swapScore, 2)
}

// Round rounds v to the given number of decimals, resolving ties to even on
// the exact binary value of v.
func Round(v float64, decimals int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}
