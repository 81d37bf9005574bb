package token

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

type stubMetaReader struct {
	meta  map[common.Address]model.TokenMeta
	err   error
	reads int
}

func (r *stubMetaReader) TokenMeta(_ context.Context, addr common.Address) (model.TokenMeta, error) {
	r.reads++
	if r.err != nil {
		return model.TokenMeta{}, r.err
	}
	return r.meta[addr], nil
}

func TestVerifiedSourceDropsDecimalMismatch(t *testing.T) {
	source := &stubSource{tokens: []model.TokenDescriptor{
		{CanonicalID: "0.0.1234567", Symbol: "PACK", Decimals: 6},
		{CanonicalID: "0.0.7654321", Symbol: "BAD", Decimals: 18},
	}}
	reader := &stubMetaReader{meta: map[common.Address]model.TokenMeta{
		MustParseID("0.0.1234567").EVMAddress(): {Decimals: 6, Symbol: "PACK", Name: "Pack Token"},
		MustParseID("0.0.7654321").EVMAddress(): {Decimals: 8, Symbol: "BAD"},
	}}

	tokens, err := NewVerifiedSource(source, reader, nil).LoadTokens(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Symbol != "PACK" {
		t.Fatalf("expected only PACK, got %+v", tokens)
	}
	if tokens[0].Name != "Pack Token" {
		t.Fatalf("name not filled from ledger: %q", tokens[0].Name)
	}
}

func TestVerifiedSourceKeepsUnreadableTokens(t *testing.T) {
	source := &stubSource{tokens: []model.TokenDescriptor{{CanonicalID: "0.0.1234567", Symbol: "PACK", Decimals: 6}}}
	reader := &stubMetaReader{err: errors.New("connection refused")}

	tokens, err := NewVerifiedSource(source, reader, nil).LoadTokens(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tokens) != 1 || reader.reads != 1 {
		t.Fatalf("expected token kept after one read, got %d tokens, %d reads", len(tokens), reader.reads)
	}
}

func TestVerifiedSourceFeedsCatalog(t *testing.T) {
	source := &stubSource{err: errors.New("relation \"tokens\" does not exist")}
	catalog := newTestCatalog(t, NewVerifiedSource(source, &stubMetaReader{}, nil))
	if err := catalog.Refresh(context.Background()); err == nil {
		t.Fatalf("expected source error to surface")
	}
	if !catalog.FallbackActive() {
		t.Fatalf("fallback must be active")
	}
}
