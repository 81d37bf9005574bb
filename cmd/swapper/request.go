package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"swapEngine/internal/model"
)

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "token to sell (symbol, 0.0.N id, or long-zero address)")
	cmd.Flags().String("output", "", "token to buy")
	cmd.Flags().String("amount", "", "fixed amount in human units (input for exactInput, output for exactOutput)")
	cmd.Flags().String("mode", "exactInput", "swap mode (exactInput, exactOutput)")
	cmd.Flags().Int("slippage-bps", -1, "slippage tolerance in basis points; negative uses the policy default")
	cmd.Flags().String("recipient", "", "recipient account (0.0.N or address); defaults to the signer")
	cmd.Flags().String("deadline", "", "deadline as RFC3339 or a duration from now; empty uses deadline-window")
	cmd.Flags().Duration("deadline-window", 20*time.Minute, "default deadline window")
}

// parseRequest builds a SwapRequest from flags. recipient fills an empty
// --recipient.
func parseRequest(cmd *cobra.Command, recipient string, now time.Time) (model.SwapRequest, error) {
	flags := cmd.Flags()
	input, _ := flags.GetString("input")
	output, _ := flags.GetString("output")
	rawAmount, _ := flags.GetString("amount")
	rawMode, _ := flags.GetString("mode")
	slippage, _ := flags.GetInt("slippage-bps")
	to, _ := flags.GetString("recipient")
	rawDeadline, _ := flags.GetString("deadline")

	mode, err := model.ParseSwapMode(rawMode)
	if err != nil {
		return model.SwapRequest{}, err
	}
	amt, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("amount: %w", err)
	}
	if to == "" {
		to = recipient
	}

	req := model.SwapRequest{
		InputToken:  input,
		OutputToken: output,
		Mode:        mode,
		Recipient:   to,
	}
	if mode == model.ExactOutput {
		req.AmountOut = amt
	} else {
		req.Amount = amt
	}
	if slippage >= 0 {
		req.SlippageToleranceBps = &slippage
	}
	if rawDeadline != "" {
		req.Deadline, err = parseDeadline(rawDeadline, now)
		if err != nil {
			return model.SwapRequest{}, err
		}
	}
	return req, nil
}

func parseDeadline(raw string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("deadline: expected RFC3339 or duration, got %q", raw)
	}
	return t, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
