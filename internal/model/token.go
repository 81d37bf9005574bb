package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenDescriptor identifies a tradable asset on the ledger.
type TokenDescriptor struct {
	CanonicalID      string         `json:"canonical_id"`
	ExecutionAddress common.Address `json:"execution_address"`
	Symbol           string         `json:"symbol"`
	Name             string         `json:"name,omitempty"`
	Decimals         uint8          `json:"decimals"`
	IsNative         bool           `json:"is_native"`
	IsWrappedNative  bool           `json:"is_wrapped_native"`
	Stable           bool           `json:"stable"`
	Volatile         bool           `json:"volatile"`
}

// SameToken reports whether two descriptors refer to the same ledger asset.
func (t TokenDescriptor) SameToken(other TokenDescriptor) bool {
	if t.IsNative || other.IsNative {
		return t.IsNative == other.IsNative
	}
	return strings.EqualFold(t.CanonicalID, other.CanonicalID)
}

// String returns the symbol with the canonical id, e.g. "USDC(0.0.456858)".
func (t TokenDescriptor) String() string {
	if t.Symbol == "" {
		return t.CanonicalID
	}
	return t.Symbol + "(" + t.CanonicalID + ")"
}
