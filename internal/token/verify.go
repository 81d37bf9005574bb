package token

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

// MetaReader reads token metadata from the ledger.
type MetaReader interface {
	TokenMeta(ctx context.Context, tokenAddr common.Address) (model.TokenMeta, error)
}

// VerifiedSource checks dynamic tokens against their on-chain metadata.
// Tokens whose decimals disagree with the ledger are dropped; tokens that
// cannot be read are kept as loaded.
type VerifiedSource struct {
	source Source
	reader MetaReader
	logger *zap.Logger
}

func NewVerifiedSource(source Source, reader MetaReader, logger *zap.Logger) *VerifiedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifiedSource{source: source, reader: reader, logger: logger}
}

func (s *VerifiedSource) LoadTokens(ctx context.Context) ([]model.TokenDescriptor, error) {
	tokens, err := s.source.LoadTokens(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.TokenDescriptor, 0, len(tokens))
	for _, desc := range tokens {
		if desc.IsNative {
			out = append(out, desc)
			continue
		}
		addr, err := AddressFor(desc.CanonicalID)
		if err != nil {
			// normalize reports it when the snapshot is built
			out = append(out, desc)
			continue
		}
		meta, err := s.reader.TokenMeta(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("token metadata unavailable", zap.String("token", desc.CanonicalID), zap.Error(err))
			out = append(out, desc)
			continue
		}
		if meta.Decimals != desc.Decimals {
			s.logger.Warn("token decimals mismatch, dropping",
				zap.String("token", desc.CanonicalID),
				zap.Uint8("registry", desc.Decimals),
				zap.Uint8("ledger", meta.Decimals),
			)
			continue
		}
		if !strings.EqualFold(meta.Symbol, desc.Symbol) {
			s.logger.Debug("token symbol differs from ledger",
				zap.String("token", desc.CanonicalID),
				zap.String("registry", desc.Symbol),
				zap.String("ledger", meta.Symbol),
			)
		}
		if desc.Name == "" {
			desc.Name = meta.Name
		}
		out = append(out, desc)
	}
	return out, nil
}
