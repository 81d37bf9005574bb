package swap

import (
	"bytes"
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapEngine/internal/association"
	"swapEngine/internal/chain"
	"swapEngine/internal/compose"
	"swapEngine/internal/model"
	"swapEngine/internal/route"
	"swapEngine/internal/token"
)

type poolKey struct {
	a, b common.Address
	fee  model.FeeTier
}

func sortedKey(a, b common.Address, fee model.FeeTier) poolKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return poolKey{a: a, b: b, fee: fee}
}

// memoryPools serves pool reads from a fixed liquidity table.
type memoryPools struct {
	mu        sync.Mutex
	liquidity map[poolKey]int64
	reads     int
}

func (m *memoryPools) add(a, b string, fee model.FeeTier, liquidity int64) {
	if m.liquidity == nil {
		m.liquidity = make(map[poolKey]int64)
	}
	m.liquidity[sortedKey(token.MustParseID(a).EVMAddress(), token.MustParseID(b).EVMAddress(), fee)] = liquidity
}

func (m *memoryPools) FindPool(_ context.Context, a, b common.Address, fee model.FeeTier) (model.Pool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	k := sortedKey(a, b, fee)
	liq, ok := m.liquidity[k]
	if !ok {
		return model.Pool{}, false, nil
	}
	return model.Pool{Address: pool, Token0: k.a, Token1: k.b, Fee: fee, Liquidity: big.NewInt(liq)}, true, nil
}

// memoryAssociations starts with every pair associated except those listed.
type memoryAssociations struct {
	mu      sync.Mutex
	missing map[[2]common.Address]bool
	writes  int
}

func (m *memoryAssociations) IsAssociated(_ context.Context, account, tok common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.missing[[2]common.Address{account, tok}], nil
}

func (m *memoryAssociations) Associate(_ context.Context, account, tok common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	delete(m.missing, [2]common.Address{account, tok})
	return nil
}

type scenario struct {
	pools  *memoryPools
	assoc  *memoryAssociations
	quoter *fakeQuoter
	ledger *fakeLedger
	exec   *Executor
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	network, err := token.LookupNetwork("mainnet")
	require.NoError(t, err)
	catalog, err := token.NewCatalog(network.Tokens, nil, nil)
	require.NoError(t, err)

	var bridges []model.TokenDescriptor
	for _, symbol := range network.Bridges {
		desc, err := catalog.Resolve(symbol, true)
		require.NoError(t, err)
		bridges = append(bridges, desc)
	}

	s := &scenario{
		pools:  &memoryPools{},
		assoc:  &memoryAssociations{missing: make(map[[2]common.Address]bool)},
		quoter: &fakeQuoter{expected: big.NewInt(7_000_000)},
		ledger: &fakeLedger{receipt: &chain.Receipt{TxHash: common.HexToHash("0xfeed"), Status: types.ReceiptStatusSuccessful, GasUsed: 480_000}},
	}
	s.exec, err = NewExecutor(Config{Account: account, Router: router}, Dependencies{
		Tokens:       catalog,
		Routes:       route.NewBuilder(s.pools, bridges, nil),
		Quoter:       s.quoter,
		Associations: association.NewManager(s.assoc, nil, nil),
		Composer:     compose.NewComposer(router, 0, 0),
		Ledger:       s.ledger,
		Now:          func() time.Time { return now },
	}, nil)
	require.NoError(t, err)
	return s
}

func nativeToStable(output string) model.SwapRequest {
	return model.SwapRequest{
		InputToken:  "HBAR",
		OutputToken: output,
		Mode:        model.ExactInput,
		Amount:      decimal.RequireFromString("1.0"),
		Recipient:   account.Hex(),
	}
}

func TestScenarioNativeToStableDirect(t *testing.T) {
	s := newScenario(t)
	s.pools.add("0.0.1456986", "0.0.456858", model.FeeTier3000, 8_000_000)

	result := s.exec.Execute(context.Background(), nativeToStable("USDC"))

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "WHBAR -30bps-> USDC", result.Route)
	assert.Equal(t, int64(100_000_000), s.ledger.last.Value.Int64())
	assert.Equal(t, 1, s.ledger.calls)
	assert.Equal(t, len(model.FeeTiers), s.pools.reads)
	assert.Zero(t, s.assoc.writes)
}

func TestScenarioNativeToTokenViaBridge(t *testing.T) {
	s := newScenario(t)
	s.pools.add("0.0.1456986", "0.0.456858", model.FeeTier500, 9_000_000)
	s.pools.add("0.0.456858", "0.0.731861", model.FeeTier3000, 4_000_000)
	usdc := token.MustParseID("0.0.456858").EVMAddress()
	s.assoc.missing[[2]common.Address{account, usdc}] = true

	result := s.exec.Execute(context.Background(), nativeToStable("SAUCE"))

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, "WHBAR -5bps-> USDC -30bps-> SAUCE", result.Route)
	assert.Equal(t, int64(100_000_000), s.ledger.last.Value.Int64())
	assert.Equal(t, uint64(1_400_000), s.ledger.last.GasLimit, "base gas plus one extra hop")
	assert.Equal(t, 1, s.assoc.writes, "account is associated with the bridge token")
}

func TestScenarioNoPoolsIsNoRoute(t *testing.T) {
	s := newScenario(t)

	result := s.exec.Execute(context.Background(), nativeToStable("SAUCE"))

	assert.False(t, result.Success)
	assert.Equal(t, model.KindNoRoute, result.ErrorKind)
	assert.Zero(t, s.quoter.calls)
	assert.Zero(t, s.ledger.calls)
}

func TestNewExecutorRequiresAssociations(t *testing.T) {
	network, err := token.LookupNetwork("mainnet")
	require.NoError(t, err)
	catalog, err := token.NewCatalog(network.Tokens, nil, nil)
	require.NoError(t, err)

	_, err = NewExecutor(Config{Account: account, Router: router}, Dependencies{
		Tokens: catalog,
		Routes: &fakeRoutes{},
		Quoter: &fakeQuoter{},
	}, nil)
	assert.Error(t, err)
}
