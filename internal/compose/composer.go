package compose

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/dex"
	"swapEngine/internal/model"
)

var ErrInvalidAmounts = errors.New("invalid swap amounts")

// Amounts are the smallest-unit bounds of a swap. For ExactInput AmountIn is
// exact and AmountOut is the minimum accepted; for ExactOutput AmountOut is
// exact and AmountIn is the maximum spent.
type Amounts struct {
	Mode      model.SwapMode
	AmountIn  *big.Int
	AmountOut *big.Int
}

// Options carry the request fields the router call depends on.
type Options struct {
	Recipient    common.Address
	Deadline     time.Time
	InputNative  bool
	OutputNative bool
}

// Composer builds router multicalls.
type Composer struct {
	router    common.Address
	baseGas   uint64
	gasPerHop uint64
}

const (
	defaultBaseGas   = 1_000_000
	defaultGasPerHop = 400_000
)

func NewComposer(router common.Address, baseGas, gasPerHop uint64) *Composer {
	if baseGas == 0 {
		baseGas = defaultBaseGas
	}
	if gasPerHop == 0 {
		gasPerHop = defaultGasPerHop
	}
	return &Composer{router: router, baseGas: baseGas, gasPerHop: gasPerHop}
}

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactInputParams struct {
	Path             []byte
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
}

type exactOutputParams struct {
	Path            []byte
	Recipient       common.Address
	Deadline        *big.Int
	AmountOut       *big.Int
	AmountInMaximum *big.Int
}

// Compose packs the swap and any native-asset handling into one multicall.
// Native output is delivered to the router and unwrapped to the recipient;
// native input is attached as value and the unspent part refunded.
func (c *Composer) Compose(route model.Route, amounts Amounts, opts Options) (model.ComposedCall, error) {
	if err := route.Validate(); err != nil {
		return model.ComposedCall{}, err
	}
	if !amounts.Mode.Valid() {
		return model.ComposedCall{}, fmt.Errorf("%w: unsupported mode", ErrInvalidAmounts)
	}
	if !positive(amounts.AmountIn) {
		return model.ComposedCall{}, fmt.Errorf("%w: amount in must be positive", ErrInvalidAmounts)
	}
	if amounts.AmountOut == nil || amounts.AmountOut.Sign() < 0 || (amounts.Mode == model.ExactOutput && amounts.AmountOut.Sign() == 0) {
		return model.ComposedCall{}, fmt.Errorf("%w: amount out", ErrInvalidAmounts)
	}
	if opts.Recipient == (common.Address{}) {
		return model.ComposedCall{}, fmt.Errorf("recipient is required")
	}
	if opts.Deadline.IsZero() {
		return model.ComposedCall{}, fmt.Errorf("deadline is required")
	}

	routerABI, err := dex.SwapRouterABI()
	if err != nil {
		return model.ComposedCall{}, fmt.Errorf("parse router abi: %w", err)
	}

	swapRecipient := opts.Recipient
	if opts.OutputNative {
		swapRecipient = c.router
	}
	deadline := big.NewInt(opts.Deadline.Unix())

	swapCall, err := c.packSwap(route, amounts, swapRecipient, deadline)
	if err != nil {
		return model.ComposedCall{}, err
	}
	calls := [][]byte{swapCall}

	if opts.OutputNative {
		// ExactInput unwraps at least the minimum; ExactOutput exactly the target.
		unwrap, err := routerABI.Pack("unwrapWHBAR", new(big.Int).Set(amounts.AmountOut), opts.Recipient)
		if err != nil {
			return model.ComposedCall{}, fmt.Errorf("pack unwrapWHBAR: %w", err)
		}
		calls = append(calls, unwrap)
	}

	value := new(big.Int)
	if opts.InputNative {
		refund, err := routerABI.Pack("refundETH")
		if err != nil {
			return model.ComposedCall{}, fmt.Errorf("pack refundETH: %w", err)
		}
		calls = append(calls, refund)
		value.Set(amounts.AmountIn)
	}

	data, err := routerABI.Pack("multicall", calls)
	if err != nil {
		return model.ComposedCall{}, fmt.Errorf("pack multicall: %w", err)
	}

	return model.ComposedCall{
		To:       c.router,
		Calls:    calls,
		Data:     data,
		Value:    value,
		GasLimit: c.baseGas + c.gasPerHop*uint64(len(route)-1),
	}, nil
}

func (c *Composer) packSwap(route model.Route, amounts Amounts, recipient common.Address, deadline *big.Int) ([]byte, error) {
	routerABI, err := dex.SwapRouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	in := new(big.Int).Set(amounts.AmountIn)
	out := new(big.Int).Set(amounts.AmountOut)

	if route.Direct() {
		leg := route[0]
		if amounts.Mode == model.ExactInput {
			return pack(routerABI.Pack, "exactInputSingle", exactInputSingleParams{
				TokenIn:           leg.TokenIn.ExecutionAddress,
				TokenOut:          leg.TokenOut.ExecutionAddress,
				Fee:               leg.Fee.BigInt(),
				Recipient:         recipient,
				Deadline:          deadline,
				AmountIn:          in,
				AmountOutMinimum:  out,
				SqrtPriceLimitX96: new(big.Int),
			})
		}
		return pack(routerABI.Pack, "exactOutputSingle", exactOutputSingleParams{
			TokenIn:           leg.TokenIn.ExecutionAddress,
			TokenOut:          leg.TokenOut.ExecutionAddress,
			Fee:               leg.Fee.BigInt(),
			Recipient:         recipient,
			Deadline:          deadline,
			AmountOut:         out,
			AmountInMaximum:   in,
			SqrtPriceLimitX96: new(big.Int),
		})
	}

	path, err := dex.EncodePath(route)
	if err != nil {
		return nil, fmt.Errorf("encode path: %w", err)
	}
	if amounts.Mode == model.ExactInput {
		return pack(routerABI.Pack, "exactInput", exactInputParams{
			Path:             path,
			Recipient:        recipient,
			Deadline:         deadline,
			AmountIn:         in,
			AmountOutMinimum: out,
		})
	}
	reversed, err := dex.ReversePath(path)
	if err != nil {
		return nil, fmt.Errorf("reverse path: %w", err)
	}
	return pack(routerABI.Pack, "exactOutput", exactOutputParams{
		Path:            reversed,
		Recipient:       recipient,
		Deadline:        deadline,
		AmountOut:       out,
		AmountInMaximum: in,
	})
}

func pack(fn func(string, ...interface{}) ([]byte, error), method string, params interface{}) ([]byte, error) {
	data, err := fn(method, params)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
