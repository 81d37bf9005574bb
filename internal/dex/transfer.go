package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transfer is a decoded ERC20 Transfer log.
type Transfer struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// DecodeTransfers extracts Transfer events from receipt logs. Logs that are
// not Transfer events are skipped.
func DecodeTransfers(logs []*types.Log) ([]Transfer, error) {
	tokenABI, err := TokenABI()
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}
	event := tokenABI.Events["Transfer"]

	var out []Transfer
	for _, lg := range logs {
		if lg == nil || len(lg.Topics) != 3 || lg.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack transfer at index %d: %w", lg.Index, err)
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("unpack transfer at index %d: unexpected values %d", lg.Index, len(values))
		}
		value, err := asBigInt(values[0])
		if err != nil {
			return nil, fmt.Errorf("transfer value: %w", err)
		}
		out = append(out, Transfer{
			Token: lg.Address,
			From:  common.BytesToAddress(lg.Topics[1].Bytes()),
			To:    common.BytesToAddress(lg.Topics[2].Bytes()),
			Value: value,
		})
	}
	return out, nil
}

// SumReceived totals the amount of token transferred to account.
func SumReceived(transfers []Transfer, token, account common.Address) (*big.Int, bool) {
	total := new(big.Int)
	found := false
	for _, t := range transfers {
		if t.Token == token && t.To == account {
			total.Add(total, t.Value)
			found = true
		}
	}
	return total, found
}

// SumSent totals the amount of token transferred from account.
func SumSent(transfers []Transfer, token, account common.Address) (*big.Int, bool) {
	total := new(big.Int)
	found := false
	for _, t := range transfers {
		if t.Token == token && t.From == account {
			total.Add(total, t.Value)
			found = true
		}
	}
	return total, found
}
