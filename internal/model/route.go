package model

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// FeeTier is a pool fee level in hundredths of a basis point, as encoded on-chain (uint24).
type FeeTier uint32

const (
	FeeTier100   FeeTier = 100
	FeeTier500   FeeTier = 500
	FeeTier3000  FeeTier = 3000
	FeeTier10000 FeeTier = 10000
)

// FeeTiers lists every supported tier ordered from lowest to highest fee.
var FeeTiers = []FeeTier{FeeTier100, FeeTier500, FeeTier3000, FeeTier10000}

// Valid reports whether the tier is one of the supported tiers.
func (f FeeTier) Valid() bool {
	switch f {
	case FeeTier100, FeeTier500, FeeTier3000, FeeTier10000:
		return true
	default:
		return false
	}
}

// Bps returns the tier in basis points (1, 5, 30, 100).
func (f FeeTier) Bps() uint32 {
	return uint32(f) / 100
}

// BigInt returns the tier as the uint24 ABI argument.
func (f FeeTier) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(f))
}

func (f FeeTier) String() string {
	return fmt.Sprintf("%dbps", f.Bps())
}

// ParseFeeTier converts an on-chain uint24 fee into a FeeTier.
func ParseFeeTier(value uint32) (FeeTier, error) {
	tier := FeeTier(value)
	if !tier.Valid() {
		return 0, fmt.Errorf("unsupported fee tier: %d", value)
	}
	return tier, nil
}

// Pool is a concentrated-liquidity pool keyed by (token0, token1, fee).
type Pool struct {
	Address   common.Address `json:"address"`
	Token0    common.Address `json:"token0"`
	Token1    common.Address `json:"token1"`
	Fee       FeeTier        `json:"fee"`
	Liquidity *big.Int       `json:"liquidity"`
}

// RouteLeg is one hop of a route.
type RouteLeg struct {
	TokenIn   TokenDescriptor `json:"token_in"`
	TokenOut  TokenDescriptor `json:"token_out"`
	Fee       FeeTier         `json:"fee"`
	Pool      common.Address  `json:"pool"`
	Liquidity *big.Int        `json:"liquidity,omitempty"`
}

// Route is an ordered, non-empty sequence of chained legs.
type Route []RouteLeg

var (
	ErrEmptyRoute  = errors.New("route has no legs")
	ErrBrokenChain = errors.New("route legs are not chained")
)

// Direct reports whether the route is a single hop.
func (r Route) Direct() bool {
	return len(r) == 1
}

// TokenIn returns the first leg's input token.
func (r Route) TokenIn() TokenDescriptor {
	if len(r) == 0 {
		return TokenDescriptor{}
	}
	return r[0].TokenIn
}

// TokenOut returns the last leg's output token.
func (r Route) TokenOut() TokenDescriptor {
	if len(r) == 0 {
		return TokenDescriptor{}
	}
	return r[len(r)-1].TokenOut
}

// Tokens returns every distinct token touched by the route, in path order.
func (r Route) Tokens() []TokenDescriptor {
	if len(r) == 0 {
		return nil
	}
	tokens := make([]TokenDescriptor, 0, len(r)+1)
	tokens = append(tokens, r[0].TokenIn)
	for _, leg := range r {
		tokens = append(tokens, leg.TokenOut)
	}
	return tokens
}

// Validate checks non-emptiness, fee tiers, and the chaining invariant.
func (r Route) Validate() error {
	if len(r) == 0 {
		return ErrEmptyRoute
	}
	for i, leg := range r {
		if !leg.Fee.Valid() {
			return fmt.Errorf("leg %d: unsupported fee tier %d", i, leg.Fee)
		}
		if leg.TokenIn.SameToken(leg.TokenOut) {
			return fmt.Errorf("leg %d: token in equals token out", i)
		}
		if i > 0 && !r[i-1].TokenOut.SameToken(leg.TokenIn) {
			return fmt.Errorf("%w: leg %d out %s, leg %d in %s", ErrBrokenChain, i-1, r[i-1].TokenOut, i, leg.TokenIn)
		}
	}
	return nil
}

// String renders the route as "WHBAR -30bps-> USDC".
func (r Route) String() string {
	if len(r) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(r[0].TokenIn.Symbol)
	for _, leg := range r {
		fmt.Fprintf(&b, " -%s-> %s", leg.Fee, leg.TokenOut.Symbol)
	}
	return b.String()
}
