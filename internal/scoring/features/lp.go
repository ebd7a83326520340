package features

import "github.com/vietddude/walletscore/internal/core/domain"

// ExtractLP computes liquidity-provision features.
//
// AvgHoldTimeDays is the gap between the earliest deposit and the latest
// withdrawal across all pools, not a per-position hold time. It is negative
// when every withdrawal precedes the first deposit and is left unclamped.
// AccountAgeDays spans every transaction, not only LP ones.
func ExtractLP(f *Frame) domain.LPFeatures {
	deposits := f.Where(domain.TxTypeDeposit)
	withdraws := f.Where(domain.TxTypeWithdraw)

	totalDeposit := deposits.SumAmountUSD()
	totalWithdraw := withdraws.SumAmountUSD()

	var holdDays float64
	if !deposits.Empty() && !withdraws.Empty() {
		firstDeposit, _ := deposits.MinTimestamp()
		lastWithdraw, _ := withdraws.MaxTimestamp()
		holdDays = float64(lastWithdraw-firstDeposit) / secondsPerDay
	}

	ageDays, _ := f.All().SpanDays()

	return domain.LPFeatures{
		TotalDepositUSD:  finite(totalDeposit),
		TotalWithdrawUSD: finite(totalWithdraw),
		NumDeposits:      deposits.Len(),
		NumWithdraws:     withdraws.Len(),
		WithdrawRatio:    finite(safeDivide(totalWithdraw, totalDeposit, 0)),
		AvgHoldTimeDays:  finite(holdDays),
		AccountAgeDays:   finite(ageDays),
		UniquePools:      f.Where(domain.TxTypeDeposit, domain.TxTypeWithdraw).NUnique(f.Pool),
	}
}
