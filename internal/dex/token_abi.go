package dex

import "github.com/ethereum/go-ethereum/accounts/abi"

// Token facade ABI: ERC20 metadata and Transfer event plus the HIP-719
// association functions exposed at every token's long-zero address.
const tokenABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "isAssociated", "outputs": [{"internalType": "bool", "name": "associated", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "associate", "outputs": [{"internalType": "uint256", "name": "responseCode", "type": "uint256"}], "stateMutability": "nonpayable", "type": "function"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

var tokenABI = &lazyABI{json: tokenABIJSON}

// TokenABI returns the parsed token facade ABI.
func TokenABI() (abi.ABI, error) {
	return tokenABI.get()
}
