package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Messages the relay or consensus node returns when a transaction loses a
// sequencing race. Resubmitting with a fresh nonce can succeed.
var orderingMessages = []string{
	"nonce too low",
	"nonce has already been used",
	"replacement transaction underpriced",
	"already known",
	"duplicate_transaction",
}

// IsOrderingError reports whether a submission failed on transaction
// ordering rather than on its content.
func IsOrderingError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range orderingMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsRevert reports whether err came from EVM execution.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// decodeRevert extracts the Error(string) payload carried by a revert, if any.
func decodeRevert(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}
	raw, ok := dataErr.ErrorData().(string)
	if !ok {
		return ""
	}
	data, decErr := hexutil.Decode(raw)
	if decErr != nil {
		return ""
	}
	reason, unpackErr := abi.UnpackRevert(data)
	if unpackErr != nil {
		return ""
	}
	return reason
}
