package model

// TokenMeta captures the ERC20 metadata a token reports on-chain.
type TokenMeta struct {
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}
