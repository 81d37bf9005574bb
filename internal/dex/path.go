package dex

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"swapEngine/internal/model"
)

const (
	addressSize = common.AddressLength
	feeSize     = 3
	hopSize     = addressSize + feeSize
)

var ErrMalformedPath = errors.New("malformed path")

// EncodePath packs a route as token0 | fee0 | token1 | fee1 | ... | tokenN,
// with 20-byte addresses and 3-byte big-endian fees.
func EncodePath(route model.Route) ([]byte, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}
	tokens := make([]common.Address, 0, len(route)+1)
	fees := make([]model.FeeTier, 0, len(route))
	tokens = append(tokens, route[0].TokenIn.ExecutionAddress)
	for _, leg := range route {
		tokens = append(tokens, leg.TokenOut.ExecutionAddress)
		fees = append(fees, leg.Fee)
	}
	return encodeHops(tokens, fees), nil
}

func encodeHops(tokens []common.Address, fees []model.FeeTier) []byte {
	out := make([]byte, 0, addressSize+len(fees)*hopSize)
	for i, fee := range fees {
		out = append(out, tokens[i].Bytes()...)
		out = append(out, byte(fee>>16), byte(fee>>8), byte(fee))
	}
	return append(out, tokens[len(tokens)-1].Bytes()...)
}

// ValidPathLength reports whether n is 20 + 23k for some k >= 1.
func ValidPathLength(n int) bool {
	return n >= addressSize+hopSize && (n-addressSize)%hopSize == 0
}

// DecodePath splits a path into its tokens and fees. Fees outside the
// supported tiers make the path malformed.
func DecodePath(path []byte) ([]common.Address, []uint32, error) {
	if !ValidPathLength(len(path)) {
		return nil, nil, fmt.Errorf("%w: length %d", ErrMalformedPath, len(path))
	}
	hops := (len(path) - addressSize) / hopSize
	tokens := make([]common.Address, 0, hops+1)
	fees := make([]uint32, 0, hops)
	for i := 0; i < hops; i++ {
		off := i * hopSize
		tokens = append(tokens, common.BytesToAddress(path[off:off+addressSize]))
		f := path[off+addressSize : off+hopSize]
		fee := uint32(f[0])<<16 | uint32(f[1])<<8 | uint32(f[2])
		if _, err := model.ParseFeeTier(fee); err != nil {
			return nil, nil, fmt.Errorf("%w: hop %d: %v", ErrMalformedPath, i, err)
		}
		fees = append(fees, fee)
	}
	tokens = append(tokens, common.BytesToAddress(path[len(path)-addressSize:]))
	return tokens, fees, nil
}

// ReversePath returns the path walked from the other end, as the router
// expects for exact-output swaps. A malformed path is returned unchanged
// together with ErrMalformedPath.
func ReversePath(path []byte) ([]byte, error) {
	tokens, fees, err := DecodePath(path)
	if err != nil {
		return path, err
	}
	out := make([]byte, 0, len(path))
	for i := len(fees) - 1; i >= 0; i-- {
		out = append(out, tokens[i+1].Bytes()...)
		out = append(out, byte(fees[i]>>16), byte(fees[i]>>8), byte(fees[i]))
	}
	return append(out, tokens[0].Bytes()...), nil
}
