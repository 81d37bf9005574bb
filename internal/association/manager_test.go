package association

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapEngine/internal/model"
)

type assocKey struct {
	account common.Address
	token   common.Address
}

type fakeLedger struct {
	mu          sync.Mutex
	associated  map[assocKey]bool
	associateFn func(account, token common.Address) error
	queryErr    error
	reads       int
	writes      int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{associated: make(map[assocKey]bool)}
}

func (f *fakeLedger) IsAssociated(_ context.Context, account, token common.Address) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.queryErr != nil {
		return false, f.queryErr
	}
	return f.associated[assocKey{account, token}], nil
}

func (f *fakeLedger) Associate(_ context.Context, account, token common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.associateFn != nil {
		if err := f.associateFn(account, token); err != nil {
			return err
		}
	}
	f.associated[assocKey{account, token}] = true
	return nil
}

type countingObserver struct {
	counts map[string]int
}

func (o *countingObserver) ObserveAssociation(status string) {
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[status]++
}

var (
	account = common.HexToAddress("0x0000000000000000000000000000000000001001")
	router  = common.HexToAddress("0x00000000000000000000000000000000003c437a")

	hbar  = model.TokenDescriptor{CanonicalID: "0.0.0", Symbol: "HBAR", Decimals: 8, IsNative: true}
	whbar = model.TokenDescriptor{CanonicalID: "0.0.1456986", Symbol: "WHBAR", Decimals: 8, IsWrappedNative: true,
		ExecutionAddress: common.HexToAddress("0x0000000000000000000000000000000000163b5a")}
	usdc = model.TokenDescriptor{CanonicalID: "0.0.456858", Symbol: "USDC", Decimals: 6,
		ExecutionAddress: common.HexToAddress("0x000000000000000000000000000000000006f89a")}
	sauce = model.TokenDescriptor{CanonicalID: "0.0.731861", Symbol: "SAUCE", Decimals: 6,
		ExecutionAddress: common.HexToAddress("0x00000000000000000000000000000000000b2ad5")}
)

func TestEnsureAssociatedAlreadyAssociatedMakesNoWrite(t *testing.T) {
	ledger := newFakeLedger()
	ledger.associated[assocKey{account, usdc.ExecutionAddress}] = true
	obs := &countingObserver{}

	m := NewManager(ledger, obs, nil)
	status, err := m.EnsureAssociated(context.Background(), account, usdc)
	require.NoError(t, err)
	assert.Equal(t, StatusAssociated, status)
	assert.Equal(t, 1, ledger.reads)
	assert.Equal(t, 0, ledger.writes)
	assert.Equal(t, 1, obs.counts["associated"])
}

func TestEnsureAssociatedWritesOnce(t *testing.T) {
	ledger := newFakeLedger()
	m := NewManager(ledger, nil, nil)

	status, err := m.EnsureAssociated(context.Background(), account, usdc)
	require.NoError(t, err)
	assert.Equal(t, StatusNewlyAssociated, status)

	status, err = m.EnsureAssociated(context.Background(), account, usdc)
	require.NoError(t, err)
	assert.Equal(t, StatusAssociated, status)
	assert.Equal(t, 1, ledger.writes)
}

func TestEnsureAssociatedSkipsNative(t *testing.T) {
	ledger := newFakeLedger()
	m := NewManager(ledger, nil, nil)

	status, err := m.EnsureAssociated(context.Background(), account, hbar)
	require.NoError(t, err)
	assert.Equal(t, StatusAssociated, status)
	assert.Zero(t, ledger.reads)
	assert.Zero(t, ledger.writes)
}

func TestEnsureAssociatedBenignRace(t *testing.T) {
	ledger := newFakeLedger()
	ledger.associateFn = func(common.Address, common.Address) error {
		return errors.New("precompile failed: TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT")
	}
	m := NewManager(ledger, nil, nil)

	status, err := m.EnsureAssociated(context.Background(), account, usdc)
	require.NoError(t, err)
	assert.Equal(t, StatusAssociated, status)
}

func TestEnsureAssociatedFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.associateFn = func(common.Address, common.Address) error {
		return errors.New("INSUFFICIENT_PAYER_BALANCE")
	}
	m := NewManager(ledger, nil, nil)

	status, err := m.EnsureAssociated(context.Background(), account, usdc)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, status)
	assert.ErrorIs(t, err, ErrAssociateFailed)
	assert.Contains(t, err.Error(), "INSUFFICIENT_PAYER_BALANCE")
}

func TestEnsureAssociatedQueryFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.queryErr = errors.New("relay unavailable")
	m := NewManager(ledger, nil, nil)

	_, err := m.EnsureAssociated(context.Background(), account, usdc)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.Zero(t, ledger.writes)
}

func TestRequirementsCoverAccountAndRouter(t *testing.T) {
	route := model.Route{
		{TokenIn: sauce, TokenOut: whbar, Fee: model.FeeTier3000},
		{TokenIn: whbar, TokenOut: usdc, Fee: model.FeeTier500},
	}
	reqs := Requirements(Plan{Account: account, Router: router, Recipient: account, Route: route})

	want := []Requirement{
		{Account: account, Token: sauce},
		{Account: account, Token: whbar},
		{Account: account, Token: usdc},
		{Account: router, Token: sauce},
		{Account: router, Token: whbar},
		{Account: router, Token: usdc},
	}
	assert.Equal(t, want, reqs)
}

func TestEnsureRouteAssociatesAccountWithBridge(t *testing.T) {
	route := model.Route{
		{TokenIn: sauce, TokenOut: whbar, Fee: model.FeeTier3000},
		{TokenIn: whbar, TokenOut: usdc, Fee: model.FeeTier500},
	}
	plan := Plan{Account: account, Router: router, Recipient: account, Route: route}

	ledger := newFakeLedger()
	for _, token := range route.Tokens() {
		ledger.associated[assocKey{router, token.ExecutionAddress}] = true
	}
	ledger.associated[assocKey{account, sauce.ExecutionAddress}] = true
	ledger.associated[assocKey{account, usdc.ExecutionAddress}] = true
	m := NewManager(ledger, nil, nil)

	statuses, err := m.EnsureRoute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusAssociated, StatusNewlyAssociated, StatusAssociated,
		StatusAssociated, StatusAssociated, StatusAssociated}, statuses)
	assert.Equal(t, 1, ledger.writes)
	assert.True(t, ledger.associated[assocKey{account, whbar.ExecutionAddress}])
}

func TestRequirementsNativeEndpoints(t *testing.T) {
	route := model.Route{{TokenIn: whbar, TokenOut: usdc, Fee: model.FeeTier3000}}
	reqs := Requirements(Plan{Account: account, Router: router, Recipient: account, Route: route, InputNative: true})
	for _, r := range reqs {
		if r.Account == account {
			assert.NotEqual(t, whbar.CanonicalID, r.Token.CanonicalID, "account must not need the wrapped input it never holds")
		}
	}

	other := common.HexToAddress("0x0000000000000000000000000000000000002002")
	route = model.Route{{TokenIn: usdc, TokenOut: whbar, Fee: model.FeeTier3000}}
	reqs = Requirements(Plan{Account: account, Router: router, Recipient: other, Route: route, OutputNative: true})
	for _, r := range reqs {
		assert.NotEqual(t, other, r.Account, "native output needs no recipient association")
	}
}

func TestEnsureRouteAllAssociatedMakesNoWrites(t *testing.T) {
	route := model.Route{{TokenIn: whbar, TokenOut: usdc, Fee: model.FeeTier3000}}
	plan := Plan{Account: account, Router: router, Recipient: account, Route: route}

	ledger := newFakeLedger()
	for _, r := range Requirements(plan) {
		ledger.associated[assocKey{r.Account, r.Token.ExecutionAddress}] = true
	}
	m := NewManager(ledger, nil, nil)

	statuses, err := m.EnsureRoute(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, statuses, 4)
	for _, s := range statuses {
		assert.Equal(t, StatusAssociated, s)
	}
	assert.Equal(t, 0, ledger.writes)
	assert.Equal(t, 4, ledger.reads)
}

func TestEnsureRouteStopsAtFirstFailure(t *testing.T) {
	route := model.Route{{TokenIn: whbar, TokenOut: usdc, Fee: model.FeeTier3000}}
	ledger := newFakeLedger()
	ledger.associateFn = func(acct, _ common.Address) error {
		if acct == router {
			return ErrForeignAccount
		}
		return nil
	}
	m := NewManager(ledger, nil, nil)

	statuses, err := m.EnsureRoute(context.Background(), Plan{Account: account, Router: router, Recipient: account, Route: route})
	require.ErrorIs(t, err, ErrAssociateFailed)
	assert.Len(t, statuses, 3)
	assert.Equal(t, StatusFailed, statuses[2])
}
