package domain

// CategoryDexes is the only category the engine currently scores.
const CategoryDexes = "dexes"

// ZScoreZero is the literal composite score used when nothing was scored.
const ZScoreZero = "0.0"

// LPFeatures describes liquidity provision behavior.
type LPFeatures struct {
	TotalDepositUSD  float64 `json:"total_deposit_usd"`
	TotalWithdrawUSD float64 `json:"total_withdraw_usd"`
	NumDeposits      int     `json:"num_deposits"`
	NumWithdraws     int     `json:"num_withdraws"`
	WithdrawRatio    float64 `json:"withdraw_ratio"`
	AvgHoldTimeDays  float64 `json:"avg_hold_time_days"`
	AccountAgeDays   float64 `json:"account_age_days"`
	UniquePools      int     `json:"unique_pools"`
}

// Fields returns the vector keyed by feature name.
func (f LPFeatures) Fields() map[string]float64 {
	return map[string]float64{
		"total_deposit_usd":  f.TotalDepositUSD,
		"total_withdraw_usd": f.TotalWithdrawUSD,
		"num_deposits":       float64(f.NumDeposits),
		"num_withdraws":      float64(f.NumWithdraws),
		"withdraw_ratio":     f.WithdrawRatio,
		"avg_hold_time_days": f.AvgHoldTimeDays,
		"account_age_days":   f.AccountAgeDays,
		"unique_pools":       float64(f.UniquePools),
	}
}

// SwapFeatures describes swap trading behavior.
type SwapFeatures struct {
	TotalSwapVolume     float64 `json:"total_swap_volume"`
	NumSwaps            int     `json:"num_swaps"`
	UniquePoolsSwapped  int     `json:"unique_pools_swapped"`
	AvgSwapSize         float64 `json:"avg_swap_size"`
	TokenDiversityScore float64 `json:"token_diversity_score"`
	SwapFrequencyScore  float64 `json:"swap_frequency_score"`
}

// Fields returns the vector keyed by feature name.
func (f SwapFeatures) Fields() map[string]float64 {
	return map[string]float64{
		"total_swap_volume":     f.TotalSwapVolume,
		"num_swaps":             float64(f.NumSwaps),
		"unique_pools_swapped":  float64(f.UniquePoolsSwapped),
		"avg_swap_size":         f.AvgSwapSize,
		"token_diversity_score": f.TokenDiversityScore,
		"swap_frequency_score":  f.SwapFrequencyScore,
	}
}

// CategoryResult is the score of one activity category.
type CategoryResult struct {
	Category         string             `json:"category"`
	Score            float64            `json:"score"`
	TransactionCount int                `json:"transaction_count"`
	Features         map[string]float64 `json:"features"`
}

// WalletScoreResult is what every transport returns or publishes.
// ZScore is a decimal string, never a JSON number.
type WalletScoreResult struct {
	WalletAddress    string           `json:"wallet_address"`
	ZScore           string           `json:"zscore"`
	Timestamp        int64            `json:"timestamp"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	Categories       []CategoryResult `json:"categories"`
	Error            *string          `json:"error"`
}

// Failed reports whether the engine fell back to the error result.
func (r *WalletScoreResult) Failed() bool {
	return r.Error != nil
}

// Score returns the composite score of the first category, 0 if none.
func (r *WalletScoreResult) Score() float64 {
	if len(r.Categories) == 0 {
		return 0
	}
	return r.Categories[0].Score
}

// TransactionCount returns the transactions counted by the first category.
func (r *WalletScoreResult) TransactionCount() int {
	if len(r.Categories) == 0 {
		return 0
	}
	return r.Categories[0].TransactionCount
}
