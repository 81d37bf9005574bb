// Package amount converts between human and smallest-unit token amounts and
// computes slippage bounds.
package amount

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"swapEngine/internal/model"
)

const (
	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10000
	// MaxToleranceBps is the absolute slippage ceiling (50%).
	MaxToleranceBps = 5000

	StableToleranceBps   = 50
	DefaultToleranceBps  = 100
	VolatileToleranceBps = 300
)

// ErrInvalidArgument is returned for non-positive amounts or out-of-range tolerances.
var ErrInvalidArgument = errors.New("invalid argument")

// ToSmallestUnit scales a human amount by 10^decimals, truncating any excess precision.
func ToSmallestUnit(value decimal.Decimal, decimals uint8) (*big.Int, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidArgument, value)
	}
	return value.Shift(int32(decimals)).Floor().BigInt(), nil
}

// FromSmallestUnit converts a smallest-unit amount back to human units.
func FromSmallestUnit(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}

// Format renders a smallest-unit amount with the token's full precision.
func Format(value *big.Int, decimals uint8) string {
	return FromSmallestUnit(value, decimals).StringFixed(int32(decimals))
}

// MinimumOutput returns floor(expected * (10000 - bps) / 10000).
func MinimumOutput(expected *big.Int, toleranceBps int) (*big.Int, error) {
	if err := validateBound(expected, toleranceBps); err != nil {
		return nil, err
	}
	return scaleBps(expected, BpsDenominator-toleranceBps), nil
}

// MaximumInput returns floor(expected * (10000 + bps) / 10000).
func MaximumInput(expected *big.Int, toleranceBps int) (*big.Int, error) {
	if err := validateBound(expected, toleranceBps); err != nil {
		return nil, err
	}
	return scaleBps(expected, BpsDenominator+toleranceBps), nil
}

// ValidateTolerance checks that a tolerance lies in [0, MaxToleranceBps].
func ValidateTolerance(toleranceBps int) error {
	if toleranceBps < 0 || toleranceBps > MaxToleranceBps {
		return fmt.Errorf("%w: slippage tolerance %d bps outside [0, %d]", ErrInvalidArgument, toleranceBps, MaxToleranceBps)
	}
	return nil
}

// RecommendedToleranceBps is a fixed policy by asset class, not a market estimate.
func RecommendedToleranceBps(a, b model.TokenDescriptor) int {
	switch {
	case a.Volatile || b.Volatile:
		return VolatileToleranceBps
	case a.Stable && b.Stable:
		return StableToleranceBps
	default:
		return DefaultToleranceBps
	}
}

// ResolveTolerance prefers an explicit caller value over the recommendation.
func ResolveTolerance(explicit *int, a, b model.TokenDescriptor) (int, error) {
	if explicit == nil {
		return RecommendedToleranceBps(a, b), nil
	}
	if err := ValidateTolerance(*explicit); err != nil {
		return 0, err
	}
	return *explicit, nil
}

func validateBound(expected *big.Int, toleranceBps int) error {
	if expected == nil || expected.Sign() <= 0 {
		return fmt.Errorf("%w: expected amount must be positive", ErrInvalidArgument)
	}
	return ValidateTolerance(toleranceBps)
}

func scaleBps(value *big.Int, numerator int) *big.Int {
	out := new(big.Int).Mul(value, big.NewInt(int64(numerator)))
	return out.Quo(out, big.NewInt(BpsDenominator))
}
