package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newAssociateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "associate",
		Short: "Associate the signer with a token unless it already is",
		RunE:  runAssociate,
	}
	cmd.Flags().String("token", "", "token to associate (symbol, 0.0.N id, or address)")
	cmd.Flags().Uint64("associate-gas-limit", 800_000, "gas limit for the associate transaction")
	return cmd
}

func runAssociate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	identifier, _ := cmd.Flags().GetString("token")
	desc, err := a.catalog.Resolve(identifier, false)
	if err != nil {
		return err
	}

	status, err := a.associations().EnsureAssociated(ctx, a.signer.Address(), desc)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Account string `json:"account"`
		Token   string `json:"token"`
		Status  string `json:"status"`
	}{
		Account: a.signer.Address().Hex(),
		Token:   desc.String(),
		Status:  status.String(),
	})
}
