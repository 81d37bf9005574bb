package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestNewSignerScalesValue(t *testing.T) {
	s, err := NewSigner(context.Background(), &Client{}, SignerConfig{
		PrivateKey:    "0x" + testKey,
		ChainID:       big.NewInt(296),
		ValueScaleExp: 10,
	}, nil)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	key, _ := crypto.HexToECDSA(testKey)
	if want := crypto.PubkeyToAddress(key.PublicKey); s.Address() != want {
		t.Fatalf("address: got %s want %s", s.Address().Hex(), want.Hex())
	}

	// 1.5 HBAR in tinybars becomes 1.5e18 weibar on the relay.
	got := s.RelayValue(big.NewInt(150_000_000))
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("relay value: got %s want %s", got, want)
	}
	if s.RelayValue(nil).Sign() != 0 {
		t.Fatalf("nil value should scale to zero")
	}
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	_, err := NewSigner(context.Background(), &Client{}, SignerConfig{PrivateKey: "zz", ChainID: big.NewInt(296)}, nil)
	if err == nil {
		t.Fatalf("expected key parse error")
	}
}

func TestIsOrderingError(t *testing.T) {
	cases := map[string]bool{
		"nonce too low":                       true,
		"replacement transaction underpriced": true,
		"already known":                       true,
		"DUPLICATE_TRANSACTION":               true,
		"CONTRACT_REVERT_EXECUTED":            false,
		"insufficient funds for gas * price":  false,
	}
	for msg, want := range cases {
		if got := IsOrderingError(errors.New(msg)); got != want {
			t.Fatalf("%q: got %v want %v", msg, got, want)
		}
	}
	if IsOrderingError(nil) {
		t.Fatalf("nil error is not an ordering error")
	}
}

func TestReceiptSucceeded(t *testing.T) {
	if (&Receipt{Status: 1}).Succeeded() != true {
		t.Fatalf("status 1 should succeed")
	}
	if (&Receipt{Status: 0}).Succeeded() {
		t.Fatalf("status 0 should fail")
	}
	var r *Receipt
	if r.Succeeded() {
		t.Fatalf("nil receipt should fail")
	}
}
