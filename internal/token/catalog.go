package token

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

var (
	// ErrNotFound is returned when an identifier resolves to no token. It is a caller error.
	ErrNotFound = errors.New("token not found")
	// ErrAmbiguous is returned when a symbol maps to more than one token.
	ErrAmbiguous = errors.New("token symbol is ambiguous")
)

// Source supplies token descriptors from a dynamic registry.
type Source interface {
	LoadTokens(ctx context.Context) ([]model.TokenDescriptor, error)
}

// Catalog resolves human identifiers to token descriptors. Reads are lock-free;
// Refresh swaps in a complete snapshot atomically.
type Catalog struct {
	static     []model.TokenDescriptor
	staticSnap *snapshot
	source     Source
	logger     *zap.Logger
	snap       atomic.Pointer[snapshot]
	fallback   atomic.Bool
}

type snapshot struct {
	byID      map[string]model.TokenDescriptor
	byAddress map[common.Address]model.TokenDescriptor
	bySymbol  map[string][]model.TokenDescriptor
	native    model.TokenDescriptor
	wrapped   model.TokenDescriptor
}

// NewCatalog builds a catalog over the static registry. source may be nil.
func NewCatalog(static []model.TokenDescriptor, source Source, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	snap, err := buildSnapshot(static, nil)
	if err != nil {
		return nil, fmt.Errorf("static registry: %w", err)
	}
	c := &Catalog{
		static:     append([]model.TokenDescriptor(nil), static...),
		staticSnap: snap,
		source:     source,
		logger:     logger,
	}
	c.snap.Store(snap)
	c.fallback.Store(source != nil)
	return c, nil
}

// Refresh reloads the dynamic source. On failure the catalog falls back to
// the static registry, dropping tokens from any earlier load, and reports
// FallbackActive.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}
	dynamic, err := c.source.LoadTokens(ctx)
	if err != nil {
		c.useStatic()
		c.logger.Warn("token source unavailable, using static registry", zap.Error(err))
		return fmt.Errorf("load tokens: %w", err)
	}
	snap, err := buildSnapshot(c.static, dynamic)
	if err != nil {
		c.useStatic()
		c.logger.Warn("token source rejected, using static registry", zap.Error(err))
		return err
	}
	c.snap.Store(snap)
	c.fallback.Store(false)
	c.logger.Info("token catalog refreshed", zap.Int("static", len(c.static)), zap.Int("dynamic", len(dynamic)))
	return nil
}

func (c *Catalog) useStatic() {
	c.snap.Store(c.staticSnap)
	c.fallback.Store(true)
}

// FallbackActive reports whether the dynamic source has not been loaded successfully.
func (c *Catalog) FallbackActive() bool {
	return c.fallback.Load()
}

// Resolve maps a symbol, canonical id, or execution address to a descriptor.
// With forSwap set, the native asset resolves to the wrapped-native token.
func (c *Catalog) Resolve(identifier string, forSwap bool) (model.TokenDescriptor, error) {
	snap := c.snap.Load()
	desc, err := snap.lookup(identifier)
	if err != nil {
		return model.TokenDescriptor{}, err
	}
	if forSwap && desc.IsNative {
		return snap.wrapped, nil
	}
	return desc, nil
}

// Native returns the native asset descriptor.
func (c *Catalog) Native() model.TokenDescriptor {
	return c.snap.Load().native
}

// WrappedNative returns the wrapped-native descriptor.
func (c *Catalog) WrappedNative() model.TokenDescriptor {
	return c.snap.Load().wrapped
}

// Tokens lists all descriptors ordered by symbol.
func (c *Catalog) Tokens() []model.TokenDescriptor {
	snap := c.snap.Load()
	out := make([]model.TokenDescriptor, 0, len(snap.byID))
	for _, desc := range snap.byID {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol == out[j].Symbol {
			return out[i].CanonicalID < out[j].CanonicalID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func (s *snapshot) lookup(identifier string) (model.TokenDescriptor, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return model.TokenDescriptor{}, fmt.Errorf("%w: empty identifier", ErrNotFound)
	}

	if id, err := ParseID(identifier); err == nil {
		if desc, ok := s.byID[id.String()]; ok {
			return desc, nil
		}
		return model.TokenDescriptor{}, fmt.Errorf("%w: %s", ErrNotFound, identifier)
	}

	if common.IsHexAddress(identifier) {
		if desc, ok := s.byAddress[common.HexToAddress(identifier)]; ok {
			return desc, nil
		}
		return model.TokenDescriptor{}, fmt.Errorf("%w: %s", ErrNotFound, identifier)
	}

	matches := s.bySymbol[strings.ToLower(identifier)]
	switch len(matches) {
	case 0:
		return model.TokenDescriptor{}, fmt.Errorf("%w: %s", ErrNotFound, identifier)
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.CanonicalID)
		}
		return model.TokenDescriptor{}, fmt.Errorf("%w: %s matches %s", ErrAmbiguous, identifier, strings.Join(ids, ", "))
	}
}

// buildSnapshot merges static and dynamic entries; dynamic entries replace static
// ones with the same canonical id.
func buildSnapshot(static, dynamic []model.TokenDescriptor) (*snapshot, error) {
	s := &snapshot{
		byID:      make(map[string]model.TokenDescriptor),
		byAddress: make(map[common.Address]model.TokenDescriptor),
		bySymbol:  make(map[string][]model.TokenDescriptor),
	}

	merged := make([]model.TokenDescriptor, 0, len(static)+len(dynamic))
	merged = append(merged, static...)
	merged = append(merged, dynamic...)

	for _, desc := range merged {
		normalized, err := normalize(desc)
		if err != nil {
			return nil, err
		}
		s.byID[strings.ToLower(normalized.CanonicalID)] = normalized
	}

	var natives, wrappedNatives int
	for _, desc := range s.byID {
		if desc.IsNative {
			natives++
			s.native = desc
		} else {
			s.byAddress[desc.ExecutionAddress] = desc
		}
		if desc.IsWrappedNative {
			wrappedNatives++
			s.wrapped = desc
		}
		key := strings.ToLower(desc.Symbol)
		s.bySymbol[key] = append(s.bySymbol[key], desc)
	}
	if natives != 1 {
		return nil, fmt.Errorf("registry must define exactly one native asset, found %d", natives)
	}
	if wrappedNatives != 1 {
		return nil, fmt.Errorf("registry must define exactly one wrapped-native token, found %d", wrappedNatives)
	}
	return s, nil
}

func normalize(desc model.TokenDescriptor) (model.TokenDescriptor, error) {
	if desc.Symbol == "" {
		return desc, fmt.Errorf("token %q has no symbol", desc.CanonicalID)
	}
	if desc.IsNative {
		if desc.IsWrappedNative {
			return desc, fmt.Errorf("token %q cannot be both native and wrapped-native", desc.Symbol)
		}
		desc.ExecutionAddress = common.Address{}
		if desc.CanonicalID == "" {
			desc.CanonicalID = NativeSymbol
		}
		return desc, nil
	}
	id, err := ParseID(desc.CanonicalID)
	if err != nil {
		return desc, fmt.Errorf("token %q: %w", desc.Symbol, err)
	}
	desc.CanonicalID = id.String()
	desc.ExecutionAddress = id.EVMAddress()
	return desc, nil
}
