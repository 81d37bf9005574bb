package route

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

type pairKey struct {
	a, b common.Address
	fee  model.FeeTier
}

func key(a, b common.Address, fee model.FeeTier) pairKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return pairKey{a: a, b: b, fee: fee}
}

type fakePools struct {
	mu        sync.Mutex
	liquidity map[pairKey]int64
	fail      error
	queries   int
}

func newFakePools() *fakePools {
	return &fakePools{liquidity: make(map[pairKey]int64)}
}

func (f *fakePools) add(a, b model.TokenDescriptor, fee model.FeeTier, liquidity int64) {
	f.liquidity[key(a.ExecutionAddress, b.ExecutionAddress, fee)] = liquidity
}

func (f *fakePools) FindPool(_ context.Context, a, b common.Address, fee model.FeeTier) (model.Pool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.fail != nil {
		return model.Pool{}, false, f.fail
	}
	liq, ok := f.liquidity[key(a, b, fee)]
	if !ok {
		return model.Pool{}, false, nil
	}
	k := key(a, b, fee)
	addr := common.BytesToAddress(append(k.a.Bytes()[16:], byte(fee>>8), byte(fee)))
	return model.Pool{Address: addr, Token0: k.a, Token1: k.b, Fee: fee, Liquidity: big.NewInt(liq)}, true, nil
}

func tok(symbol string, num int64) model.TokenDescriptor {
	return model.TokenDescriptor{
		CanonicalID:      "0.0." + big.NewInt(num).String(),
		Symbol:           symbol,
		Decimals:         8,
		ExecutionAddress: common.BigToAddress(big.NewInt(num)),
	}
}

var (
	whbar  = tok("WHBAR", 1456986)
	usdc   = tok("USDC", 456858)
	sauce  = tok("SAUCE", 731861)
	karate = tok("KARATE", 2283230)
)

func TestBuildRouteDirect(t *testing.T) {
	pools := newFakePools()
	pools.add(whbar, usdc, model.FeeTier3000, 5_000_000)

	b := NewBuilder(pools, []model.TokenDescriptor{whbar, usdc}, nil)
	route, err := b.BuildRoute(context.Background(), whbar, usdc)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if !route.Direct() {
		t.Fatalf("expected direct route, got %s", route)
	}
	if route[0].Fee != model.FeeTier3000 {
		t.Fatalf("fee: got %s want 30bps", route[0].Fee)
	}
	if !route.TokenIn().SameToken(whbar) || !route.TokenOut().SameToken(usdc) {
		t.Fatalf("endpoints mismatch: %s", route)
	}
}

func TestBuildRoutePrefersLowestLiquidFee(t *testing.T) {
	pools := newFakePools()
	pools.add(whbar, usdc, model.FeeTier100, 1_000_000)
	pools.add(whbar, usdc, model.FeeTier10000, 1_000_001)
	pools.add(whbar, usdc, model.FeeTier500, 0)

	b := NewBuilder(pools, nil, nil)
	route, err := b.BuildRoute(context.Background(), usdc, whbar)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if route[0].Fee != model.FeeTier100 {
		t.Fatalf("marginally deeper pool should not win, got %s", route[0].Fee)
	}
}

func TestBuildRouteHigherFeeNeedsPremium(t *testing.T) {
	pools := newFakePools()
	pools.add(whbar, usdc, model.FeeTier500, 100)
	pools.add(whbar, usdc, model.FeeTier3000, 200)

	b := NewBuilder(pools, nil, nil)
	route, err := b.BuildRoute(context.Background(), usdc, whbar)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if route[0].Fee != model.FeeTier500 {
		t.Fatalf("exactly 2x liquidity does not clear a 100%% premium, got %s", route[0].Fee)
	}

	pools.add(whbar, usdc, model.FeeTier3000, 201)
	route, err = b.BuildRoute(context.Background(), usdc, whbar)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if route[0].Fee != model.FeeTier3000 {
		t.Fatalf("expected 30bps pool above the premium, got %s", route[0].Fee)
	}

	// the 100bps pool must beat the current choice, not the cheapest pool
	pools.add(whbar, usdc, model.FeeTier10000, 300)
	route, err = b.BuildRoute(context.Background(), usdc, whbar)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if route[0].Fee != model.FeeTier3000 {
		t.Fatalf("expected 30bps to hold against 100bps, got %s", route[0].Fee)
	}
}

func TestBuildRouteZeroPremiumTiesGoToLowerFee(t *testing.T) {
	pools := newFakePools()
	pools.add(whbar, usdc, model.FeeTier100, 900)
	pools.add(whbar, usdc, model.FeeTier3000, 900)
	pools.add(whbar, usdc, model.FeeTier10000, 901)

	b := NewBuilder(pools, nil, nil, WithLiquidityPremium(0))
	route, err := b.BuildRoute(context.Background(), usdc, whbar)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if route[0].Fee != model.FeeTier10000 {
		t.Fatalf("expected strictly deeper pool with zero premium, got %s", route[0].Fee)
	}

	pools.add(whbar, usdc, model.FeeTier10000, 900)
	route, err = b.BuildRoute(context.Background(), usdc, whbar)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if route[0].Fee != model.FeeTier100 {
		t.Fatalf("expected tie to go to 1bps, got %s", route[0].Fee)
	}
}

func TestBuildRouteViaBridge(t *testing.T) {
	pools := newFakePools()
	pools.add(karate, whbar, model.FeeTier10000, 700)
	pools.add(whbar, usdc, model.FeeTier500, 10_000)
	pools.add(karate, sauce, model.FeeTier3000, 50)
	pools.add(sauce, usdc, model.FeeTier3000, 50)

	b := NewBuilder(pools, []model.TokenDescriptor{whbar, sauce}, nil)
	route, err := b.BuildRoute(context.Background(), karate, usdc)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if len(route) != 2 {
		t.Fatalf("expected two legs, got %s", route)
	}
	if !route[0].TokenOut.SameToken(whbar) || !route[1].TokenIn.SameToken(whbar) {
		t.Fatalf("expected first bridge to win, got %s", route)
	}
	if route[0].Fee != model.FeeTier10000 || route[1].Fee != model.FeeTier500 {
		t.Fatalf("unexpected fees: %s", route)
	}
	if err := route.Validate(); err != nil {
		t.Fatalf("chaining broken: %v", err)
	}
}

func TestBuildRouteSkipsBridgeMissingSecondLeg(t *testing.T) {
	pools := newFakePools()
	pools.add(karate, whbar, model.FeeTier3000, 700)
	pools.add(karate, sauce, model.FeeTier3000, 50)
	pools.add(sauce, usdc, model.FeeTier500, 50)

	b := NewBuilder(pools, []model.TokenDescriptor{whbar, sauce}, nil)
	route, err := b.BuildRoute(context.Background(), karate, usdc)
	if err != nil {
		t.Fatalf("build route: %v", err)
	}
	if !route[0].TokenOut.SameToken(sauce) {
		t.Fatalf("expected sauce bridge, got %s", route)
	}
}

func TestBuildRouteNoRoute(t *testing.T) {
	b := NewBuilder(newFakePools(), []model.TokenDescriptor{whbar}, nil)
	_, err := b.BuildRoute(context.Background(), karate, usdc)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestBuildRouteRejectsInvalidEndpoints(t *testing.T) {
	b := NewBuilder(newFakePools(), nil, nil)
	if _, err := b.BuildRoute(context.Background(), usdc, usdc); !errors.Is(err, ErrSameToken) {
		t.Fatalf("expected ErrSameToken, got %v", err)
	}
	hbar := model.TokenDescriptor{Symbol: "HBAR", IsNative: true, Decimals: 8}
	if _, err := b.BuildRoute(context.Background(), hbar, usdc); !errors.Is(err, ErrNativeLeg) {
		t.Fatalf("expected ErrNativeLeg, got %v", err)
	}
}

func TestBuildRoutePropagatesReadFailure(t *testing.T) {
	pools := newFakePools()
	pools.fail = errors.New("relay timeout")
	b := NewBuilder(pools, []model.TokenDescriptor{whbar}, nil)
	_, err := b.BuildRoute(context.Background(), karate, usdc)
	if err == nil || errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected read failure, got %v", err)
	}
}

func TestBuildRouteQueriesEveryTier(t *testing.T) {
	pools := newFakePools()
	pools.add(whbar, usdc, model.FeeTier500, 1)
	b := NewBuilder(pools, nil, nil)
	if _, err := b.BuildRoute(context.Background(), whbar, usdc); err != nil {
		t.Fatalf("build route: %v", err)
	}
	if pools.queries != len(model.FeeTiers) {
		t.Fatalf("queries: got %d want %d", pools.queries, len(model.FeeTiers))
	}
}
