package storage

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/walletscore/internal/core/domain"
)

// DefaultListLimit bounds ListByWallet when the caller passes 0.
const DefaultListLimit = 20

// ResultRepository archives scored wallet results.
type ResultRepository interface {
	// Save stores a result. A missing ID or CreatedAt is filled in.
	Save(ctx context.Context, result *domain.ArchivedResult) error

	// ListByWallet returns the newest results for a wallet first.
	ListByWallet(ctx context.Context, wallet string, limit int) ([]*domain.ArchivedResult, error)

	// DeleteOlderThan removes results created before t and returns how many.
	DeleteOlderThan(ctx context.Context, t time.Time) (int64, error)

	// Count returns the number of archived results.
	Count(ctx context.Context) (int64, error)
}

// WalletKey canonicalizes a wallet address for archive lookups. EVM hex
// addresses are EIP-55 checksummed so that case variants share history;
// anything else is kept as given after trimming.
func WalletKey(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}
