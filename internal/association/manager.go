package association

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

// Status is the outcome of ensuring one account/token association.
type Status int

const (
	StatusFailed Status = iota
	StatusAssociated
	StatusNewlyAssociated
)

func (s Status) String() string {
	switch s {
	case StatusAssociated:
		return "associated"
	case StatusNewlyAssociated:
		return "newly_associated"
	default:
		return "failed"
	}
}

const alreadyAssociatedReason = "TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT"

var (
	// ErrAlreadyAssociated may be returned by a Ledger whose associate call
	// reports the account is already associated.
	ErrAlreadyAssociated = errors.New(alreadyAssociatedReason)
	// ErrQueryFailed wraps failures of the association read.
	ErrQueryFailed = errors.New("association query failed")
	// ErrAssociateFailed wraps non-benign failures of the associate write.
	ErrAssociateFailed = errors.New("association failed")
)

// Ledger reads and writes token associations.
type Ledger interface {
	IsAssociated(ctx context.Context, account, token common.Address) (bool, error)
	Associate(ctx context.Context, account, token common.Address) error
}

// Observer receives one status per ensured association.
type Observer interface {
	ObserveAssociation(status string)
}

// Manager makes sure accounts can hold the tokens a swap touches.
type Manager struct {
	ledger   Ledger
	observer Observer
	logger   *zap.Logger
}

func NewManager(ledger Ledger, observer Observer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{ledger: ledger, observer: observer, logger: logger}
}

// EnsureAssociated associates account with token unless it already is.
// Native and zero-address tokens need no association.
func (m *Manager) EnsureAssociated(ctx context.Context, account common.Address, token model.TokenDescriptor) (Status, error) {
	if token.IsNative || token.ExecutionAddress == (common.Address{}) {
		return StatusAssociated, nil
	}

	ok, err := m.ledger.IsAssociated(ctx, account, token.ExecutionAddress)
	if err != nil {
		m.observe(StatusFailed)
		return StatusFailed, fmt.Errorf("%w: %s for %s: %v", ErrQueryFailed, token, account.Hex(), err)
	}
	if ok {
		m.observe(StatusAssociated)
		return StatusAssociated, nil
	}

	err = m.ledger.Associate(ctx, account, token.ExecutionAddress)
	switch {
	case err == nil:
		m.logger.Info("token associated", zap.String("account", account.Hex()), zap.Stringer("token", token))
		m.observe(StatusNewlyAssociated)
		return StatusNewlyAssociated, nil
	case IsAlreadyAssociated(err):
		m.logger.Debug("association raced", zap.String("account", account.Hex()), zap.Stringer("token", token))
		m.observe(StatusAssociated)
		return StatusAssociated, nil
	default:
		m.observe(StatusFailed)
		return StatusFailed, fmt.Errorf("%w: %s for %s: %v", ErrAssociateFailed, token, account.Hex(), err)
	}
}

// Requirement is one (account, token) pair a swap depends on.
type Requirement struct {
	Account common.Address
	Token   model.TokenDescriptor
}

// Plan describes the parties of a swap.
type Plan struct {
	Account      common.Address
	Router       common.Address
	Recipient    common.Address
	Route        model.Route
	InputNative  bool
	OutputNative bool
}

// Requirements lists the associations a swap needs: the account and the
// router for every token along the route, and the recipient for the output.
// A native endpoint is wrapped by the router, so the account skips it.
// Duplicates are removed.
func Requirements(plan Plan) []Requirement {
	var out []Requirement
	seen := make(map[string]struct{})
	add := func(account common.Address, token model.TokenDescriptor) {
		if account == (common.Address{}) || token.IsNative {
			return
		}
		k := account.Hex() + "/" + strings.ToLower(token.CanonicalID)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, Requirement{Account: account, Token: token})
	}

	tokens := plan.Route.Tokens()
	for i, token := range tokens {
		if i == 0 && plan.InputNative {
			continue
		}
		if i == len(tokens)-1 && plan.OutputNative {
			continue
		}
		add(plan.Account, token)
	}
	if !plan.OutputNative {
		add(plan.Recipient, plan.Route.TokenOut())
	}
	for _, token := range tokens {
		add(plan.Router, token)
	}
	return out
}

// EnsureRoute ensures every requirement of the plan in order and stops at
// the first failure.
func (m *Manager) EnsureRoute(ctx context.Context, plan Plan) ([]Status, error) {
	reqs := Requirements(plan)
	statuses := make([]Status, 0, len(reqs))
	for _, req := range reqs {
		status, err := m.EnsureAssociated(ctx, req.Account, req.Token)
		statuses = append(statuses, status)
		if err != nil {
			return statuses, err
		}
	}
	return statuses, nil
}

// IsAlreadyAssociated reports whether err is the ledger's benign
// already-associated outcome.
func IsAlreadyAssociated(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAlreadyAssociated) || strings.Contains(err.Error(), alreadyAssociatedReason)
}

func (m *Manager) observe(status Status) {
	if m.observer != nil {
		m.observer.ObserveAssociation(status.String())
	}
}
