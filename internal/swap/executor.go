package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"swapEngine/internal/amount"
	"swapEngine/internal/association"
	"swapEngine/internal/chain"
	"swapEngine/internal/compose"
	"swapEngine/internal/dex"
	"swapEngine/internal/metrics"
	"swapEngine/internal/model"
	"swapEngine/internal/token"
)

const DefaultDeadlineWindow = 20 * time.Minute

// TokenResolver maps identifiers to descriptors.
type TokenResolver interface {
	Resolve(identifier string, forSwap bool) (model.TokenDescriptor, error)
}

// RouteBuilder selects the pools a swap goes through.
type RouteBuilder interface {
	BuildRoute(ctx context.Context, in, out model.TokenDescriptor) (model.Route, error)
}

// Quoter estimates swap amounts along an encoded path.
type Quoter interface {
	QuoteExactInput(ctx context.Context, path []byte, amountIn *big.Int) (*big.Int, error)
	QuoteExactOutput(ctx context.Context, path []byte, amountOut *big.Int) (*big.Int, error)
}

// Associator ensures the parties of a swap can hold its tokens.
type Associator interface {
	EnsureRoute(ctx context.Context, plan association.Plan) ([]association.Status, error)
}

// Composer turns a route and bounds into one router call.
type Composer interface {
	Compose(route model.Route, amounts compose.Amounts, opts compose.Options) (model.ComposedCall, error)
}

// Ledger submits a transaction and reports its receipt.
type Ledger interface {
	Submit(ctx context.Context, call chain.Call) (*chain.Receipt, error)
}

// Config holds the accounts and defaults of an Executor.
type Config struct {
	Account        common.Address
	Router         common.Address
	DeadlineWindow time.Duration
}

// Dependencies are the collaborators of an Executor. Metrics and Now are
// optional.
type Dependencies struct {
	Tokens       TokenResolver
	Routes       RouteBuilder
	Quoter       Quoter
	Associations Associator
	Composer     Composer
	Ledger       Ledger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Executor runs swap requests end to end.
type Executor struct {
	cfg    Config
	deps   Dependencies
	logger *zap.Logger
}

func NewExecutor(cfg Config, deps Dependencies, logger *zap.Logger) (*Executor, error) {
	if deps.Tokens == nil || deps.Routes == nil || deps.Quoter == nil || deps.Associations == nil {
		return nil, errors.New("token resolver, route builder, quoter and association manager are required")
	}
	if cfg.Router == (common.Address{}) {
		return nil, errors.New("router address is required")
	}
	if cfg.DeadlineWindow <= 0 {
		cfg.DeadlineWindow = DefaultDeadlineWindow
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{cfg: cfg, deps: deps, logger: logger}, nil
}

// Plan is a validated, routed and quoted swap ready to be submitted.
type Plan struct {
	Mode         model.SwapMode
	Input        model.TokenDescriptor
	Output       model.TokenDescriptor
	InputNative  bool
	OutputNative bool
	Recipient    common.Address
	Deadline     time.Time
	ToleranceBps int
	Fixed        *big.Int
	Route        model.Route
	Path         []byte
	Expected     *big.Int
	Limit        *big.Int
}

// Amounts returns the router bounds for the plan.
func (p *Plan) Amounts() compose.Amounts {
	if p.Mode == model.ExactOutput {
		return compose.Amounts{Mode: p.Mode, AmountIn: p.Limit, AmountOut: p.Fixed}
	}
	return compose.Amounts{Mode: p.Mode, AmountIn: p.Fixed, AmountOut: p.Limit}
}

// EstimateToken is the token the estimate and limit are denominated in.
func (p *Plan) EstimateToken() model.TokenDescriptor {
	if p.Mode == model.ExactOutput {
		return p.Input
	}
	return p.Output
}

type tracker struct {
	stage   string
	metrics *metrics.Metrics
}

func (t *tracker) run(stage string, fn func() *StageError) *StageError {
	t.stage = stage
	start := time.Now()
	serr := fn()
	t.metrics.ObserveStage(stage, time.Since(start))
	return serr
}

// Quote runs every stage up to and including the quote without touching
// associations or submitting anything. Failures are *StageError.
func (e *Executor) Quote(ctx context.Context, req model.SwapRequest) (*Plan, error) {
	plan, serr := e.prepare(ctx, req, &tracker{metrics: e.deps.Metrics})
	if serr != nil {
		return nil, serr
	}
	return plan, nil
}

func (e *Executor) prepare(ctx context.Context, req model.SwapRequest, tr *tracker) (*Plan, *StageError) {
	plan := &Plan{Mode: req.Mode}

	if serr := tr.run(StageValidate, func() *StageError { return e.validate(req, plan) }); serr != nil {
		return plan, serr
	}
	if serr := tr.run(StageResolve, func() *StageError { return e.resolve(req, plan) }); serr != nil {
		return plan, serr
	}
	if serr := tr.run(StageAmounts, func() *StageError { return e.amounts(req, plan) }); serr != nil {
		return plan, serr
	}
	if serr := tr.run(StageRoute, func() *StageError {
		r, err := e.deps.Routes.BuildRoute(ctx, plan.Input, plan.Output)
		if err != nil {
			return classifyRoute(err)
		}
		plan.Route = r
		return nil
	}); serr != nil {
		return plan, serr
	}
	if serr := tr.run(StageQuote, func() *StageError { return e.quote(ctx, plan) }); serr != nil {
		return plan, serr
	}
	return plan, nil
}

func (e *Executor) validate(req model.SwapRequest, plan *Plan) *StageError {
	if !req.Mode.Valid() {
		return validationError(StageValidate, fmt.Errorf("unsupported swap mode %d", req.Mode))
	}
	if req.InputToken == "" || req.OutputToken == "" {
		return validationError(StageValidate, errors.New("input and output token are required"))
	}
	if req.FixedAmount().Sign() <= 0 {
		return validationError(StageValidate, fmt.Errorf("%s amount must be positive", req.Mode))
	}
	if req.Recipient == "" {
		return validationError(StageValidate, errors.New("recipient is required"))
	}
	recipient, err := token.AddressFor(req.Recipient)
	if err != nil {
		return validationError(StageValidate, fmt.Errorf("recipient: %w", err))
	}
	plan.Recipient = recipient

	if req.SlippageToleranceBps != nil {
		if err := amount.ValidateTolerance(*req.SlippageToleranceBps); err != nil {
			return validationError(StageValidate, err)
		}
	}

	now := e.deps.Now()
	plan.Deadline = req.Deadline
	if plan.Deadline.IsZero() {
		plan.Deadline = now.Add(e.cfg.DeadlineWindow)
	}
	if !plan.Deadline.After(now) {
		return validationError(StageValidate, fmt.Errorf("deadline %s has already passed", plan.Deadline.UTC().Format(time.RFC3339)))
	}
	return nil
}

func (e *Executor) resolve(req model.SwapRequest, plan *Plan) *StageError {
	rawIn, err := e.deps.Tokens.Resolve(req.InputToken, false)
	if err != nil {
		return classifyResolve(fmt.Errorf("input token: %w", err))
	}
	rawOut, err := e.deps.Tokens.Resolve(req.OutputToken, false)
	if err != nil {
		return classifyResolve(fmt.Errorf("output token: %w", err))
	}
	if plan.Input, err = e.deps.Tokens.Resolve(req.InputToken, true); err != nil {
		return classifyResolve(fmt.Errorf("input token: %w", err))
	}
	if plan.Output, err = e.deps.Tokens.Resolve(req.OutputToken, true); err != nil {
		return classifyResolve(fmt.Errorf("output token: %w", err))
	}
	plan.InputNative = rawIn.IsNative
	plan.OutputNative = rawOut.IsNative
	if plan.Input.SameToken(plan.Output) {
		return validationError(StageResolve, fmt.Errorf("input and output resolve to the same token %s", plan.Input))
	}
	return nil
}

func (e *Executor) amounts(req model.SwapRequest, plan *Plan) *StageError {
	tolerance, err := amount.ResolveTolerance(req.SlippageToleranceBps, plan.Input, plan.Output)
	if err != nil {
		return validationError(StageAmounts, err)
	}
	plan.ToleranceBps = tolerance

	fixedToken := plan.Input
	if plan.Mode == model.ExactOutput {
		fixedToken = plan.Output
	}
	fixed, err := amount.ToSmallestUnit(req.FixedAmount(), fixedToken.Decimals)
	if err != nil {
		return validationError(StageAmounts, err)
	}
	if fixed.Sign() == 0 {
		return validationError(StageAmounts, fmt.Errorf("amount %s is below the smallest unit of %s", req.FixedAmount(), fixedToken.Symbol))
	}
	plan.Fixed = fixed
	return nil
}

func (e *Executor) quote(ctx context.Context, plan *Plan) *StageError {
	path, err := dex.EncodePath(plan.Route)
	if err != nil {
		return validationError(StageQuote, err)
	}
	plan.Path = path

	var expected *big.Int
	if plan.Mode == model.ExactInput {
		expected, err = e.deps.Quoter.QuoteExactInput(ctx, path, plan.Fixed)
	} else {
		var reversed []byte
		if reversed, err = dex.ReversePath(path); err == nil {
			expected, err = e.deps.Quoter.QuoteExactOutput(ctx, reversed, plan.Fixed)
		}
	}
	if err != nil {
		return classifyQuote(err)
	}
	if expected == nil || expected.Sign() <= 0 {
		return &StageError{Stage: StageQuote, Kind: model.KindNoRoute, Err: fmt.Errorf("route %s cannot fill the amount", plan.Route)}
	}
	plan.Expected = expected

	if plan.Mode == model.ExactInput {
		plan.Limit, err = amount.MinimumOutput(expected, plan.ToleranceBps)
	} else {
		plan.Limit, err = amount.MaximumInput(expected, plan.ToleranceBps)
	}
	if err != nil {
		return validationError(StageQuote, err)
	}
	return nil
}

// Execute runs the request through every stage and reports the outcome. It
// never panics and never resubmits a transaction.
func (e *Executor) Execute(ctx context.Context, req model.SwapRequest) (result model.ExecutionResult) {
	result = model.ExecutionResult{
		RequestID:   uuid.NewString(),
		Mode:        req.Mode.String(),
		InputToken:  req.InputToken,
		OutputToken: req.OutputToken,
	}
	log := e.logger.With(zap.String("request_id", result.RequestID))
	tr := &tracker{metrics: e.deps.Metrics}

	defer func() {
		if r := recover(); r != nil {
			log.Error("execution panicked", zap.String("stage", tr.stage), zap.Any("panic", r))
			result = e.failed(result, &StageError{Stage: tr.stage, Kind: model.KindUnavailable, Err: fmt.Errorf("internal error: %v", r)})
		}
		e.deps.Metrics.ObserveResult(result)
		if result.Success {
			log.Info("swap executed",
				zap.String("tx", result.TransactionID),
				zap.String("route", result.Route),
				zap.String("estimated", result.EstimatedAmount),
				zap.String("actual", result.ActualAmount),
			)
		} else {
			log.Warn("swap failed",
				zap.String("stage", result.Stage),
				zap.Stringer("kind", result.ErrorKind),
				zap.String("error", result.Error),
				zap.Bool("retryable", result.Retryable),
			)
		}
	}()

	plan, serr := e.prepare(ctx, req, tr)
	result = withPlan(result, plan)
	if serr != nil {
		return e.failed(result, serr)
	}

	if serr := tr.run(StageAssociate, func() *StageError {
		_, err := e.deps.Associations.EnsureRoute(ctx, association.Plan{
			Account:      e.cfg.Account,
			Router:       e.cfg.Router,
			Recipient:    plan.Recipient,
			Route:        plan.Route,
			InputNative:  plan.InputNative,
			OutputNative: plan.OutputNative,
		})
		if err != nil {
			return classifyAssociation(err)
		}
		return nil
	}); serr != nil {
		return e.failed(result, serr)
	}

	var call model.ComposedCall
	if serr := tr.run(StageCompose, func() *StageError {
		if e.deps.Composer == nil {
			return validationError(StageCompose, errors.New("no composer configured"))
		}
		var err error
		call, err = e.deps.Composer.Compose(plan.Route, plan.Amounts(), compose.Options{
			Recipient:    plan.Recipient,
			Deadline:     plan.Deadline,
			InputNative:  plan.InputNative,
			OutputNative: plan.OutputNative,
		})
		if err != nil {
			return validationError(StageCompose, err)
		}
		log.Debug("call composed",
			zap.Int("calls", len(call.Calls)),
			zap.Bool("payable", call.Payable()),
			zap.Uint64("gas_limit", call.GasLimit),
		)
		return nil
	}); serr != nil {
		return e.failed(result, serr)
	}

	var receipt *chain.Receipt
	if serr := tr.run(StageSubmit, func() *StageError {
		if e.deps.Ledger == nil {
			return &StageError{Stage: StageSubmit, Kind: model.KindSubmissionFailed, Err: errors.New("no ledger configured")}
		}
		var err error
		receipt, err = e.deps.Ledger.Submit(ctx, chain.Call{To: call.To, Data: call.Data, Value: call.Value, GasLimit: call.GasLimit})
		if receipt != nil && receipt.TxHash != (common.Hash{}) {
			result.TransactionID = receipt.TxHash.Hex()
		}
		if err != nil {
			return classifySubmit(err)
		}
		return nil
	}); serr != nil {
		return e.failed(result, serr)
	}

	if serr := tr.run(StageReceipt, func() *StageError {
		result.GasUsed = receipt.GasUsed
		if !receipt.Succeeded() {
			reason := receipt.RevertReason
			if reason == "" {
				reason = "transaction reverted"
			}
			return &StageError{Stage: StageReceipt, Kind: model.KindSubmissionFailed, Err: errors.New(reason)}
		}
		result.ActualAmount = e.actualAmount(plan, receipt, log)
		return nil
	}); serr != nil {
		return e.failed(result, serr)
	}

	result.Success = true
	result.Timestamp = e.deps.Now()
	return result
}

func withPlan(result model.ExecutionResult, plan *Plan) model.ExecutionResult {
	if len(plan.Route) > 0 {
		result.Route = plan.Route.String()
	}
	est := plan.EstimateToken()
	if plan.Expected != nil {
		result.EstimatedAmount = amount.Format(plan.Expected, est.Decimals)
	}
	if plan.Limit != nil {
		result.LimitAmount = amount.Format(plan.Limit, est.Decimals)
	}
	return result
}

func (e *Executor) failed(result model.ExecutionResult, serr *StageError) model.ExecutionResult {
	result.Success = false
	result.Stage = serr.Stage
	result.ErrorKind = serr.Kind
	result.Retryable = serr.Retryable
	if serr.Err != nil {
		result.Error = serr.Err.Error()
	}
	result.Timestamp = e.deps.Now()
	return result
}

// actualAmount reads the settled amount from the receipt's Transfer logs:
// what the recipient got for exact-input, what was paid for exact-output.
// Native legs settle through the router.
func (e *Executor) actualAmount(plan *Plan, receipt *chain.Receipt, log *zap.Logger) string {
	transfers, err := dex.DecodeTransfers(receipt.Logs)
	if err != nil {
		log.Warn("decode transfer logs", zap.Error(err))
		return ""
	}
	var (
		total *big.Int
		ok    bool
	)
	if plan.Mode == model.ExactInput {
		receiver := plan.Recipient
		if plan.OutputNative {
			receiver = e.cfg.Router
		}
		total, ok = dex.SumReceived(transfers, plan.Output.ExecutionAddress, receiver)
		if ok {
			return amount.Format(total, plan.Output.Decimals)
		}
	} else {
		payer := e.cfg.Account
		if plan.InputNative {
			payer = e.cfg.Router
		}
		total, ok = dex.SumSent(transfers, plan.Input.ExecutionAddress, payer)
		if ok {
			return amount.Format(total, plan.Input.Decimals)
		}
	}
	log.Warn("no settlement transfer in receipt", zap.String("tx", receipt.TxHash.Hex()))
	return ""
}
