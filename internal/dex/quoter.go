package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/chain"
)

// ErrQuoteReverted marks a quote the quoter contract refused, typically
// because the route cannot fill the requested amount.
var ErrQuoteReverted = errors.New("quote reverted")

// Quoter reads expected amounts from QuoterV2 by simulating the swap.
type Quoter struct {
	caller  ContractCaller
	address common.Address
}

func NewQuoter(caller ContractCaller, address common.Address) *Quoter {
	return &Quoter{caller: caller, address: address}
}

// QuoteExactInput returns the expected output for amountIn along path.
func (q *Quoter) QuoteExactInput(ctx context.Context, path []byte, amountIn *big.Int) (*big.Int, error) {
	return q.quote(ctx, "quoteExactInput", path, amountIn)
}

// QuoteExactOutput returns the input required for amountOut. The path must
// already be reversed (output token first).
func (q *Quoter) QuoteExactOutput(ctx context.Context, path []byte, amountOut *big.Int) (*big.Int, error) {
	return q.quote(ctx, "quoteExactOutput", path, amountOut)
}

func (q *Quoter) quote(ctx context.Context, method string, path []byte, amount *big.Int) (*big.Int, error) {
	if q.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	if !ValidPathLength(len(path)) {
		return nil, fmt.Errorf("%s: %w: length %d", method, ErrMalformedPath, len(path))
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s: amount must be positive", method)
	}
	quoterABI, err := QuoterV2ABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	values, err := callMethod(ctx, q.caller, q.address, quoterABI, method, path, amount)
	if err != nil {
		if chain.IsRevert(err) {
			return nil, fmt.Errorf("%w: %v", ErrQuoteReverted, err)
		}
		return nil, err
	}
	return asBigInt(values[0])
}
