package main

import (
	"context"
	"encoding/hex"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"swapEngine/internal/amount"
	"swapEngine/internal/dex"
	"swapEngine/internal/model"
)

type quoteOutput struct {
	Mode            string    `json:"mode"`
	Route           string    `json:"route"`
	Path            string    `json:"path"`
	ToleranceBps    int       `json:"tolerance_bps"`
	FixedAmount     string    `json:"fixed_amount"`
	EstimatedAmount string    `json:"estimated_amount"`
	LimitAmount     string    `json:"limit_amount"`
	Deadline        time.Time `json:"deadline"`
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Show route, expected amount, and slippage bound without submitting",
		RunE:  runQuote,
	}
	addRequestFlags(cmd)
	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Quotes need a syntactically valid recipient only; the router stands in.
	req, err := parseRequest(cmd, a.router.Hex(), time.Now())
	if err != nil {
		return err
	}
	exec, err := a.executor()
	if err != nil {
		return err
	}
	plan, err := exec.Quote(ctx, req)
	if err != nil {
		return err
	}

	fixedToken := plan.Input
	if plan.Mode == model.ExactOutput {
		fixedToken = plan.Output
	}
	est := plan.EstimateToken()
	return printJSON(quoteOutput{
		Mode:            plan.Mode.String(),
		Route:           plan.Route.String(),
		Path:            "0x" + hex.EncodeToString(plan.Path),
		ToleranceBps:    plan.ToleranceBps,
		FixedAmount:     amount.Format(plan.Fixed, fixedToken.Decimals),
		EstimatedAmount: amount.Format(plan.Expected, est.Decimals),
		LimitAmount:     amount.Format(plan.Limit, est.Decimals),
		Deadline:        plan.Deadline,
	})
}

type legOutput struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	Fee       string `json:"fee"`
	Pool      string `json:"pool"`
	Liquidity string `json:"liquidity"`
}

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Find the route between two tokens and print its encoded path",
		RunE:  runRoute,
	}
	cmd.Flags().String("input", "", "token to sell")
	cmd.Flags().String("output", "", "token to buy")
	cmd.Flags().StringSlice("bridges", nil, "bridge assets tried in order (comma-separated)")
	return cmd
}

func runRoute(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	in, err := a.catalog.Resolve(input, true)
	if err != nil {
		return err
	}
	out, err := a.catalog.Resolve(output, true)
	if err != nil {
		return err
	}

	builder, err := a.routeBuilder()
	if err != nil {
		return err
	}
	route, err := builder.BuildRoute(ctx, in, out)
	if err != nil {
		return err
	}
	path, err := dex.EncodePath(route)
	if err != nil {
		return err
	}

	legs := make([]legOutput, 0, len(route))
	for _, leg := range route {
		legs = append(legs, legOutput{
			TokenIn:   leg.TokenIn.String(),
			TokenOut:  leg.TokenOut.String(),
			Fee:       leg.Fee.String(),
			Pool:      leg.Pool.Hex(),
			Liquidity: leg.Liquidity.String(),
		})
	}
	return printJSON(struct {
		Route string      `json:"route"`
		Path  string      `json:"path"`
		Legs  []legOutput `json:"legs"`
	}{
		Route: route.String(),
		Path:  "0x" + hex.EncodeToString(path),
		Legs:  legs,
	})
}
