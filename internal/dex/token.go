package dex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

// TokenReader reads ERC20 metadata through the token facade.
type TokenReader struct {
	caller ContractCaller
}

func NewTokenReader(caller ContractCaller) *TokenReader {
	return &TokenReader{caller: caller}
}

// TokenMeta loads decimals, symbol and name for a token.
func (r *TokenReader) TokenMeta(ctx context.Context, tokenAddr common.Address) (model.TokenMeta, error) {
	if r.caller == nil {
		return model.TokenMeta{}, fmt.Errorf("contract caller is nil")
	}
	tokenABI, err := TokenABI()
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("parse token abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, tokenAddr, tokenABI, "decimals")
	if err != nil {
		return model.TokenMeta{}, err
	}
	decimals, err := asBigInt(values[0])
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("decimals: %w", err)
	}

	values, err = callMethod(ctx, r.caller, tokenAddr, tokenABI, "symbol")
	if err != nil {
		return model.TokenMeta{}, err
	}
	symbol, err := asString(values[0])
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("symbol: %w", err)
	}

	values, err = callMethod(ctx, r.caller, tokenAddr, tokenABI, "name")
	if err != nil {
		return model.TokenMeta{}, err
	}
	name, err := asString(values[0])
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("name: %w", err)
	}

	return model.TokenMeta{Decimals: uint8(decimals.Uint64()), Symbol: symbol, Name: name}, nil
}
