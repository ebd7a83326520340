// Package normalizer resolves heterogeneous upstream transaction records into
// the canonical transaction shape consumed by the feature extractors.
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vietddude/walletscore/internal/core/domain"
)

var (
	// ErrNilInput is returned when there is no wallet payload at all.
	ErrNilInput = errors.New("wallet input is nil")

	// ErrMalformedTransaction is returned for a transaction entry that is not an object.
	ErrMalformedTransaction = errors.New("transaction is not an object")
)

// symbolOrder selects where token symbols are looked up first.
type symbolOrder int

const (
	// explicitFirst prefers the token_in/token_out strings (flat list source).
	explicitFirst symbolOrder = iota
	// nestedFirst prefers the tokenIn/token0 sub-record symbols (protocol group source).
	nestedFirst
)

// Normalize flattens a wallet payload into canonical transactions, one per
// raw record, in input order. A non-empty flat list wins over protocol
// groups, which are then never read.
func Normalize(in *domain.WalletInput) ([]domain.Transaction, error) {
	if in == nil {
		return nil, ErrNilInput
	}

	if len(in.Transactions) > 0 {
		out := make([]domain.Transaction, 0, len(in.Transactions))
		for i, raw := range in.Transactions {
			tx, err := normalizeOne(raw, explicitFirst)
			if err != nil {
				return nil, fmt.Errorf("transactions[%d]: %w", i, err)
			}
			out = append(out, tx)
		}
		return out, nil
	}

	var out []domain.Transaction
	for g, group := range in.Data {
		for i, raw := range group.Transactions {
			tx, err := normalizeOne(raw, nestedFirst)
			if err != nil {
				return nil, fmt.Errorf("data[%d].transactions[%d]: %w", g, i, err)
			}
			out = append(out, tx)
		}
	}
	return out, nil
}

func normalizeOne(raw domain.RawTransaction, order symbolOrder) (domain.Transaction, error) {
	if raw == nil {
		return domain.Transaction{}, ErrMalformedTransaction
	}

	txType := resolveType(raw)
	ts, _ := toInt64(raw["timestamp"])

	tx := domain.Transaction{
		Type:      txType,
		AmountUSD: resolveAmountUSD(raw, txType),
		Pool:      firstText(raw, "pool", "poolName", "poolId"),
		Timestamp: ts,
	}

	switch order {
	case explicitFirst:
		tx.TokenIn = firstNonEmpty(explicitToken(raw, "token_in"), symbolOf(raw, "tokenIn"), symbolOf(raw, "token0"))
		tx.TokenOut = firstNonEmpty(explicitToken(raw, "token_out"), symbolOf(raw, "tokenOut"), symbolOf(raw, "token1"))
	case nestedFirst:
		tx.TokenIn = firstNonEmpty(symbolOf(raw, "tokenIn"), symbolOf(raw, "token0"), explicitToken(raw, "token_in"))
		tx.TokenOut = firstNonEmpty(symbolOf(raw, "tokenOut"), symbolOf(raw, "token1"), explicitToken(raw, "token_out"))
	}

	return tx, nil
}

// resolveType prefers "type" over "action" and lower-cases the result.
func resolveType(raw domain.RawTransaction) string {
	if s, ok := nonEmptyString(raw["type"]); ok {
		return strings.ToLower(s)
	}
	if s, ok := nonEmptyString(raw["action"]); ok {
		return strings.ToLower(s)
	}
	return ""
}

// resolveAmountUSD finds the USD notional of a record. Explicit amounts win;
// swaps then look at the input and output legs, and everything else falls
// back to the token0+token1 pair.
func resolveAmountUSD(raw domain.RawTransaction, txType string) float64 {
	for _, key := range []string{"amount_usd", "amountUSD"} {
		if v, ok := raw[key]; ok && v != nil {
			f, _ := toFloat(v)
			return f
		}
	}

	if txType == domain.TxTypeSwap {
		for _, leg := range [][2]string{{"tokenIn", "token_in"}, {"tokenOut", "token_out"}} {
			token, ok := firstObject(raw, leg[0], leg[1])
			if !ok {
				continue
			}
			if v, present := token["amountUSD"]; present && v != nil && v != "" {
				f, _ := toFloat(v)
				return f
			}
		}
	}

	return pairAmountUSD(raw)
}

func pairAmountUSD(raw domain.RawTransaction) float64 {
	return tokenAmountUSD(raw["token0"]) + tokenAmountUSD(raw["token1"])
}

func tokenAmountUSD(v any) float64 {
	token, ok := object(v)
	if !ok {
		return 0
	}
	f, _ := toFloat(token["amountUSD"])
	return f
}

// firstObject returns the first non-empty object among keys.
func firstObject(raw domain.RawTransaction, keys ...string) (map[string]any, bool) {
	for _, key := range keys {
		if obj, ok := object(raw[key]); ok && len(obj) > 0 {
			return obj, true
		}
	}
	return nil, false
}

func firstText(raw domain.RawTransaction, keys ...string) string {
	for _, key := range keys {
		if s, ok := toText(raw[key]); ok {
			return s
		}
	}
	return ""
}

func symbolOf(raw domain.RawTransaction, key string) string {
	token, ok := object(raw[key])
	if !ok {
		return ""
	}
	s, _ := nonEmptyString(token["symbol"])
	return s
}

func explicitToken(raw domain.RawTransaction, key string) string {
	s, _ := nonEmptyString(raw[key])
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
