package route

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapEngine/internal/model"
)

var (
	ErrNoRoute   = errors.New("no route found")
	ErrSameToken = errors.New("input and output token are the same")
	ErrNativeLeg = errors.New("native asset cannot be a route endpoint")
)

// PoolFinder looks up the pool for a pair at one fee tier.
type PoolFinder interface {
	FindPool(ctx context.Context, tokenA, tokenB common.Address, fee model.FeeTier) (model.Pool, bool, error)
}

// DefaultLiquidityPremiumPct is how much deeper, in percent, a higher-fee pool
// must be before it replaces a cheaper liquid pool.
const DefaultLiquidityPremiumPct = 100

// Builder selects a direct or bridged route through the AMM.
type Builder struct {
	pools      PoolFinder
	bridges    []model.TokenDescriptor
	tiers      []model.FeeTier
	premiumPct int64
	logger     *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLiquidityPremium sets the liquidity premium in percent. Zero lets any
// strictly deeper higher-fee pool win; negative values are ignored.
func WithLiquidityPremium(pct int) Option {
	return func(b *Builder) {
		if pct >= 0 {
			b.premiumPct = int64(pct)
		}
	}
}

// NewBuilder creates a route builder. Bridges are tried in the given order
// when no direct pool exists.
func NewBuilder(pools PoolFinder, bridges []model.TokenDescriptor, logger *zap.Logger, opts ...Option) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		pools:      pools,
		bridges:    append([]model.TokenDescriptor(nil), bridges...),
		tiers:      model.FeeTiers,
		premiumPct: DefaultLiquidityPremiumPct,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildRoute returns a direct route when any fee tier has liquidity and
// otherwise the first bridge that connects both tokens.
func (b *Builder) BuildRoute(ctx context.Context, in, out model.TokenDescriptor) (model.Route, error) {
	if in.IsNative || out.IsNative {
		return nil, ErrNativeLeg
	}
	if in.SameToken(out) {
		return nil, ErrSameToken
	}

	leg, ok, err := b.bestLeg(ctx, in, out)
	if err != nil {
		return nil, err
	}
	if ok {
		b.logger.Debug("direct route", zap.Stringer("in", in), zap.Stringer("out", out), zap.Stringer("fee", leg.Fee))
		return model.Route{leg}, nil
	}

	for _, bridge := range b.bridges {
		if bridge.SameToken(in) || bridge.SameToken(out) {
			continue
		}
		first, ok, err := b.bestLeg(ctx, in, bridge)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		second, ok, err := b.bestLeg(ctx, bridge, out)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		route := model.Route{first, second}
		if err := route.Validate(); err != nil {
			return nil, fmt.Errorf("bridged route: %w", err)
		}
		b.logger.Debug("bridged route", zap.Stringer("route", route))
		return route, nil
	}

	return nil, fmt.Errorf("%w: %s -> %s", ErrNoRoute, in.Symbol, out.Symbol)
}

// bestLeg queries every tier concurrently and keeps the cheapest pool with
// liquidity. A higher tier replaces it only when its liquidity clears the
// premium. Tiers are ordered by ascending fee.
func (b *Builder) bestLeg(ctx context.Context, in, out model.TokenDescriptor) (model.RouteLeg, bool, error) {
	pools := make([]model.Pool, len(b.tiers))
	found := make([]bool, len(b.tiers))

	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range b.tiers {
		i, tier := i, tier
		g.Go(func() error {
			pool, ok, err := b.pools.FindPool(gctx, in.ExecutionAddress, out.ExecutionAddress, tier)
			if err != nil {
				return fmt.Errorf("pool %s/%s %s: %w", in.Symbol, out.Symbol, tier, err)
			}
			pools[i], found[i] = pool, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.RouteLeg{}, false, err
	}

	best := -1
	for i := range b.tiers {
		if !found[i] || pools[i].Liquidity == nil || pools[i].Liquidity.Sign() <= 0 {
			continue
		}
		if best < 0 || b.deeperEnough(pools[i].Liquidity, pools[best].Liquidity) {
			best = i
		}
	}
	if best < 0 {
		return model.RouteLeg{}, false, nil
	}
	pool := pools[best]
	return model.RouteLeg{
		TokenIn:   in,
		TokenOut:  out,
		Fee:       b.tiers[best],
		Pool:      pool.Address,
		Liquidity: new(big.Int).Set(pool.Liquidity),
	}, true, nil
}

// deeperEnough reports candidate*100 > current*(100+premium).
func (b *Builder) deeperEnough(candidate, current *big.Int) bool {
	lhs := new(big.Int).Mul(candidate, big.NewInt(100))
	rhs := new(big.Int).Mul(current, big.NewInt(100+b.premiumPct))
	return lhs.Cmp(rhs) > 0
}
