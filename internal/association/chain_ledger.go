package association

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/chain"
	"swapEngine/internal/dex"
)

// ErrForeignAccount is returned when asked to associate an account the
// signer does not control.
var ErrForeignAccount = errors.New("cannot associate an account without its key")

// Submitter sends transactions signed by one account.
type Submitter interface {
	Address() common.Address
	Submit(ctx context.Context, call chain.Call) (*chain.Receipt, error)
}

// ChainLedger implements Ledger through the token facade: isAssociated() is
// read with eth_call from the account, associate() is sent by the signer.
type ChainLedger struct {
	caller    dex.ContractCaller
	submitter Submitter
	gasLimit  uint64
}

func NewChainLedger(caller dex.ContractCaller, submitter Submitter, gasLimit uint64) *ChainLedger {
	if gasLimit == 0 {
		gasLimit = 800_000
	}
	return &ChainLedger{caller: caller, submitter: submitter, gasLimit: gasLimit}
}

func (l *ChainLedger) IsAssociated(ctx context.Context, account, token common.Address) (bool, error) {
	tokenABI, err := dex.TokenABI()
	if err != nil {
		return false, fmt.Errorf("parse token abi: %w", err)
	}
	data, err := tokenABI.Pack("isAssociated")
	if err != nil {
		return false, fmt.Errorf("pack isAssociated: %w", err)
	}
	resp, err := l.caller.CallContract(ctx, ethereum.CallMsg{From: account, To: &token, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("call isAssociated: %w", err)
	}
	values, err := tokenABI.Unpack("isAssociated", resp)
	if err != nil {
		return false, fmt.Errorf("unpack isAssociated: %w", err)
	}
	if len(values) != 1 {
		return false, fmt.Errorf("unpack isAssociated: unexpected values %d", len(values))
	}
	associated, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unpack isAssociated: unsupported type %T", values[0])
	}
	return associated, nil
}

func (l *ChainLedger) Associate(ctx context.Context, account, token common.Address) error {
	if l.submitter == nil || account != l.submitter.Address() {
		return fmt.Errorf("%w: %s", ErrForeignAccount, account.Hex())
	}
	tokenABI, err := dex.TokenABI()
	if err != nil {
		return fmt.Errorf("parse token abi: %w", err)
	}
	data, err := tokenABI.Pack("associate")
	if err != nil {
		return fmt.Errorf("pack associate: %w", err)
	}
	receipt, err := l.submitter.Submit(ctx, chain.Call{To: token, Data: data, GasLimit: l.gasLimit})
	if err != nil {
		return err
	}
	if !receipt.Succeeded() {
		return errors.New(receipt.RevertReason)
	}
	return nil
}
