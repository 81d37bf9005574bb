package token

import (
	"fmt"
	"strings"

	"swapEngine/internal/model"
)

// NativeSymbol is the symbol of the ledger's native asset.
const NativeSymbol = "HBAR"

// Network bundles the static registry and AMM contract ids for one ledger network.
type Network struct {
	Name    string
	ChainID int64
	Router  string
	Factory string
	Quoter  string
	// Bridges are intermediate assets for two-hop routes, tried in order.
	Bridges []string
	Tokens  []model.TokenDescriptor
}

func native() model.TokenDescriptor {
	return model.TokenDescriptor{
		CanonicalID: NativeSymbol,
		Symbol:      NativeSymbol,
		Name:        "Hbar",
		Decimals:    8,
		IsNative:    true,
	}
}

func descriptor(id, symbol, name string, decimals uint8) model.TokenDescriptor {
	parsed := MustParseID(id)
	return model.TokenDescriptor{
		CanonicalID:      parsed.String(),
		ExecutionAddress: parsed.EVMAddress(),
		Symbol:           symbol,
		Name:             name,
		Decimals:         decimals,
	}
}

func wrapped(d model.TokenDescriptor) model.TokenDescriptor {
	d.IsWrappedNative = true
	return d
}

func stable(d model.TokenDescriptor) model.TokenDescriptor {
	d.Stable = true
	return d
}

func volatile(d model.TokenDescriptor) model.TokenDescriptor {
	d.Volatile = true
	return d
}

var networks = map[string]Network{
	"mainnet": {
		Name:    "mainnet",
		ChainID: 295,
		Router:  "0.0.3949434",
		Factory: "0.0.3946833",
		Quoter:  "0.0.3949424",
		Bridges: []string{"WHBAR", "USDC"},
		Tokens: []model.TokenDescriptor{
			native(),
			wrapped(descriptor("0.0.1456986", "WHBAR", "Wrapped Hbar", 8)),
			stable(descriptor("0.0.456858", "USDC", "USD Coin", 6)),
			descriptor("0.0.731861", "SAUCE", "SaucerSwap", 6),
			descriptor("0.0.1460200", "XSAUCE", "xSAUCE", 6),
			descriptor("0.0.834116", "HBARX", "HBARX", 8),
			volatile(descriptor("0.0.2283230", "KARATE", "Karate Combat", 8)),
		},
	},
	"testnet": {
		Name:    "testnet",
		ChainID: 296,
		Router:  "0.0.1414040",
		Factory: "0.0.1197038",
		Quoter:  "0.0.1390002",
		Bridges: []string{"WHBAR", "USDC"},
		Tokens: []model.TokenDescriptor{
			native(),
			wrapped(descriptor("0.0.15058", "WHBAR", "Wrapped Hbar", 8)),
			stable(descriptor("0.0.5449", "USDC", "USD Coin", 6)),
			descriptor("0.0.1183558", "SAUCE", "SaucerSwap", 6),
		},
	},
}

// LookupNetwork returns the static definition of a named network.
func LookupNetwork(name string) (Network, error) {
	network, ok := networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Network{}, fmt.Errorf("unknown network: %q", name)
	}
	tokens := make([]model.TokenDescriptor, len(network.Tokens))
	copy(tokens, network.Tokens)
	network.Tokens = tokens
	return network, nil
}
