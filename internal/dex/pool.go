package dex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

// ErrPoolMismatch is returned when a factory-reported pool does not hold the
// requested pair and tier.
var ErrPoolMismatch = errors.New("pool does not match factory key")

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    model.FeeTier
}

func newPoolKey(a, b common.Address, fee model.FeeTier) poolKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return poolKey{token0: a, token1: b, fee: fee}
}

// PoolAddressCache caches factory lookups. Pool addresses never change once
// deployed, so only hits are stored; a missing pool is asked again next time.
type PoolAddressCache struct {
	mu   sync.RWMutex
	data map[poolKey]common.Address
}

func NewPoolAddressCache() *PoolAddressCache {
	return &PoolAddressCache{data: make(map[poolKey]common.Address)}
}

func (c *PoolAddressCache) Get(a, b common.Address, fee model.FeeTier) (common.Address, bool) {
	c.mu.RLock()
	addr, ok := c.data[newPoolKey(a, b, fee)]
	c.mu.RUnlock()
	return addr, ok
}

func (c *PoolAddressCache) Set(a, b common.Address, fee model.FeeTier, pool common.Address) {
	c.mu.Lock()
	c.data[newPoolKey(a, b, fee)] = pool
	c.mu.Unlock()
}

// PoolReader discovers pools through the factory and reads their in-range
// liquidity.
type PoolReader struct {
	caller  ContractCaller
	factory common.Address
	cache   *PoolAddressCache
	logger  *zap.Logger
}

func NewPoolReader(caller ContractCaller, factory common.Address, logger *zap.Logger) *PoolReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolReader{
		caller:  caller,
		factory: factory,
		cache:   NewPoolAddressCache(),
		logger:  logger,
	}
}

// FindPool returns the pool for the pair at the given tier. The boolean is
// false when the factory has no pool deployed for it.
func (r *PoolReader) FindPool(ctx context.Context, tokenA, tokenB common.Address, fee model.FeeTier) (model.Pool, bool, error) {
	if r.caller == nil {
		return model.Pool{}, false, fmt.Errorf("contract caller is nil")
	}
	if !fee.Valid() {
		return model.Pool{}, false, fmt.Errorf("unsupported fee tier %d", uint32(fee))
	}

	poolAddr, ok := r.cache.Get(tokenA, tokenB, fee)
	if !ok {
		factoryABI, err := V3FactoryABI()
		if err != nil {
			return model.Pool{}, false, fmt.Errorf("parse factory abi: %w", err)
		}
		values, err := callMethod(ctx, r.caller, r.factory, factoryABI, "getPool", tokenA, tokenB, fee.BigInt())
		if err != nil {
			return model.Pool{}, false, err
		}
		poolAddr, err = asAddress(values[0])
		if err != nil {
			return model.Pool{}, false, fmt.Errorf("getPool: %w", err)
		}
		if poolAddr == (common.Address{}) {
			return model.Pool{}, false, nil
		}
		if err := r.verifyPool(ctx, poolAddr, newPoolKey(tokenA, tokenB, fee)); err != nil {
			return model.Pool{}, false, err
		}
		r.cache.Set(tokenA, tokenB, fee, poolAddr)
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.Pool{}, false, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, poolAddr, poolABI, "liquidity")
	if err != nil {
		return model.Pool{}, false, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.Pool{}, false, fmt.Errorf("liquidity: %w", err)
	}

	key := newPoolKey(tokenA, tokenB, fee)
	r.logger.Debug("pool found",
		zap.String("pool", poolAddr.Hex()),
		zap.Stringer("fee", fee),
		zap.String("liquidity", liquidity.String()),
	)
	return model.Pool{
		Address:   poolAddr,
		Token0:    key.token0,
		Token1:    key.token1,
		Fee:       fee,
		Liquidity: liquidity,
	}, true, nil
}

// verifyPool checks the immutable token0/token1/fee of a newly discovered pool.
func (r *PoolReader) verifyPool(ctx context.Context, pool common.Address, want poolKey) error {
	poolABI, err := V3PoolABI()
	if err != nil {
		return fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, pool, poolABI, "token0")
	if err != nil {
		return err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "token1")
	if err != nil {
		return err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return fmt.Errorf("token1: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "fee")
	if err != nil {
		return err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return fmt.Errorf("fee: %w", err)
	}

	got := newPoolKey(token0, token1, model.FeeTier(fee.Uint64()))
	if got != want {
		return fmt.Errorf("%w: %s has %s/%s %s", ErrPoolMismatch, pool.Hex(), token0.Hex(), token1.Hex(), got.fee)
	}
	return nil
}
