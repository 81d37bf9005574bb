package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SwapMode selects which side of the swap is fixed.
type SwapMode int

const (
	ExactInput SwapMode = iota + 1
	ExactOutput
)

func (m SwapMode) String() string {
	switch m {
	case ExactInput:
		return "exactInput"
	case ExactOutput:
		return "exactOutput"
	default:
		return "unknown"
	}
}

// Valid reports whether the mode is a known value.
func (m SwapMode) Valid() bool {
	return m == ExactInput || m == ExactOutput
}

// ParseSwapMode parses "exactInput"/"exact-input"/"in" and the output equivalents.
func ParseSwapMode(input string) (SwapMode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(input), "-", "")) {
	case "exactinput", "in", "input":
		return ExactInput, nil
	case "exactoutput", "out", "output":
		return ExactOutput, nil
	default:
		return 0, fmt.Errorf("unsupported swap mode: %q", input)
	}
}

// SwapRequest is a structured swap instruction. Amount applies to ExactInput,
// AmountOut to ExactOutput; both are in human units of the respective token.
type SwapRequest struct {
	InputToken           string          `json:"input_token"`
	OutputToken          string          `json:"output_token"`
	Mode                 SwapMode        `json:"mode"`
	Amount               decimal.Decimal `json:"amount"`
	AmountOut            decimal.Decimal `json:"amount_out"`
	SlippageToleranceBps *int            `json:"slippage_tolerance_bps,omitempty"`
	Recipient            string          `json:"recipient"`
	Deadline             time.Time       `json:"deadline"`
}

// FixedAmount returns the amount the request pins down for its mode.
func (r SwapRequest) FixedAmount() decimal.Decimal {
	if r.Mode == ExactOutput {
		return r.AmountOut
	}
	return r.Amount
}
