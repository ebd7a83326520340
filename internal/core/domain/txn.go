package domain

// Transaction types the feature extractors recognize. Any other lower-cased
// action is kept verbatim and only counted.
const (
	TxTypeSwap     = "swap"
	TxTypeDeposit  = "deposit"
	TxTypeWithdraw = "withdraw"
)

// Transaction is the canonical shape every raw record is normalized into.
// Empty Pool, TokenIn and TokenOut mean the value is absent.
type Transaction struct {
	Type      string  `json:"type"`
	AmountUSD float64 `json:"amount_usd"`
	Pool      string  `json:"pool,omitempty"`
	Timestamp int64   `json:"timestamp"`
	TokenIn   string  `json:"token_in,omitempty"`
	TokenOut  string  `json:"token_out,omitempty"`
}
