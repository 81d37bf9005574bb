package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Call is one transaction to submit. Value is denominated in the ledger's
// native smallest unit (tinybars).
type Call struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// Receipt is the ledger's report for a submitted transaction.
type Receipt struct {
	TxHash       common.Hash
	Status       uint64
	GasUsed      uint64
	BlockNumber  uint64
	Logs         []*types.Log
	RevertReason string
	RevertData   string
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == types.ReceiptStatusSuccessful
}

// SignerConfig configures a Signer.
type SignerConfig struct {
	PrivateKey     string
	ChainID        *big.Int
	ValueScaleExp  int
	ReceiptTimeout time.Duration
}

// Signer signs, submits and waits for transactions from one account.
type Signer struct {
	client         *Client
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	valueScale     *big.Int
	receiptTimeout time.Duration
	logger         *zap.Logger
}

// NewSigner parses the hex private key and binds it to the client. A nil
// ChainID is fetched from the relay.
func NewSigner(ctx context.Context, client *Client, cfg SignerConfig, logger *zap.Logger) (*Signer, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	chainID := cfg.ChainID
	if chainID == nil || chainID.Sign() == 0 {
		chainID, err = client.GetChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
	}
	if cfg.ValueScaleExp < 0 {
		return nil, fmt.Errorf("value scale exponent must be >= 0")
	}
	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Signer{
		client:         client,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        new(big.Int).Set(chainID),
		valueScale:     new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(cfg.ValueScaleExp)), nil),
		receiptTimeout: timeout,
		logger:         logger,
	}, nil
}

// Address returns the signing account.
func (s *Signer) Address() common.Address {
	return s.from
}

// RelayValue converts a tinybar amount to the relay's 18-decimal unit.
func (s *Signer) RelayValue(value *big.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(value, s.valueScale)
}

// Submit signs and broadcasts the call once, then waits for its receipt. A
// receipt with a non-successful status is returned without error; its
// RevertReason carries the ledger's message. When broadcasting succeeded but
// waiting did not, the returned receipt holds only the transaction hash.
func (s *Signer) Submit(ctx context.Context, call Call) (*Receipt, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	to := call.To
	value := s.RelayValue(call.Value)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      call.GasLimit,
		To:       &to,
		Value:    value,
		Data:     call.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}
	s.logger.Info("transaction sent",
		zap.String("tx", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.String("to", to.Hex()),
		zap.String("value", value.String()),
	)

	waitCtx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()
	raw, err := bind.WaitMined(waitCtx, s.client, signed)
	if err != nil {
		return &Receipt{TxHash: signed.Hash()}, fmt.Errorf("wait for receipt: %w", err)
	}

	receipt := &Receipt{
		TxHash:  raw.TxHash,
		Status:  raw.Status,
		GasUsed: raw.GasUsed,
		Logs:    raw.Logs,
	}
	if raw.BlockNumber != nil {
		receipt.BlockNumber = raw.BlockNumber.Uint64()
	}
	if !receipt.Succeeded() {
		receipt.RevertReason, receipt.RevertData = s.revertReason(ctx, call, value, raw.BlockNumber)
		s.logger.Warn("transaction reverted",
			zap.String("tx", receipt.TxHash.Hex()),
			zap.String("reason", receipt.RevertReason),
		)
	}
	return receipt, nil
}

// revertReason replays the call at its block to recover the ledger's message.
func (s *Signer) revertReason(ctx context.Context, call Call, value, block *big.Int) (string, string) {
	to := call.To
	msg := ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Gas:   call.GasLimit,
		Value: value,
		Data:  call.Data,
	}
	_, err := s.client.CallContract(ctx, msg, block)
	if err == nil {
		return "transaction reverted", ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "transaction reverted", ""
	}
	return err.Error(), decodeRevert(err)
}
