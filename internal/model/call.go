package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ComposedCall is the atomic batched router call for one swap request.
type ComposedCall struct {
	To       common.Address
	Calls    [][]byte
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// Payable reports whether the call carries native value.
func (c ComposedCall) Payable() bool {
	return c.Value != nil && c.Value.Sign() > 0
}
