package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingWalletAddress is returned when a wallet payload has no address.
var ErrMissingWalletAddress = errors.New("wallet_address is required")

// RawTransaction is an upstream transaction record as received.
// Upstream schemas overlap and disagree on field names, so the record is kept
// untyped until the normalizer resolves it. Numbers decoded by
// DecodeWalletInput are json.Number.
type RawTransaction map[string]any

// ProtocolGroup is the nested input form: transactions grouped per protocol.
type ProtocolGroup struct {
	ProtocolType string           `json:"protocolType,omitempty"`
	Transactions []RawTransaction `json:"transactions"`
}

// WalletInput is the payload accepted by every transport.
type WalletInput struct {
	WalletAddress string           `json:"wallet_address"`
	Data          []ProtocolGroup  `json:"data,omitempty"`
	Transactions  []RawTransaction `json:"transactions,omitempty"`

	// AddressSet reports that the decoded document carried a non-null
	// wallet_address, possibly empty.
	AddressSet bool `json:"-"`
}

// UnmarshalJSON decodes a wallet payload, keeping numerals as json.Number
// and recording whether wallet_address was present.
func (w *WalletInput) UnmarshalJSON(data []byte) error {
	type plain WalletInput
	var aux struct {
		plain
		WalletAddress *string `json:"wallet_address"`
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&aux); err != nil {
		return err
	}

	*w = WalletInput(aux.plain)
	if aux.WalletAddress != nil {
		w.WalletAddress = *aux.WalletAddress
		w.AddressSet = true
	}
	return nil
}

// Validate checks the fields a request must carry.
func (w *WalletInput) Validate() error {
	if strings.TrimSpace(w.WalletAddress) == "" {
		return ErrMissingWalletAddress
	}
	return nil
}

// DecodeWalletInput decodes a wallet payload, keeping numerals as json.Number.
func DecodeWalletInput(r io.Reader) (*WalletInput, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var in WalletInput
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("failed to decode wallet input: %w", err)
	}
	return &in, nil
}

// ParseWalletInput is DecodeWalletInput over a byte slice.
func ParseWalletInput(data []byte) (*WalletInput, error) {
	return DecodeWalletInput(bytes.NewReader(data))
}
