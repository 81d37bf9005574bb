package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "List the token catalog",
		RunE:  runTokens,
	}
	cmd.Flags().Bool("sync", false, "write the static registry to Postgres before listing")
	return cmd
}

func runTokens(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sync, _ := cmd.Flags().GetBool("sync")
	if sync {
		if a.store == nil {
			return fmt.Errorf("--sync requires pg-dsn")
		}
		if err := a.store.UpsertTokens(ctx, a.network.Tokens); err != nil {
			return fmt.Errorf("sync tokens: %w", err)
		}
		if err := a.catalog.Refresh(ctx); err != nil {
			return err
		}
		a.logger.Info("token registry synced", zap.Int("tokens", len(a.network.Tokens)))
	}

	return printJSON(struct {
		Network       string      `json:"network"`
		Fallback      bool        `json:"fallback"`
		Native        interface{} `json:"native"`
		WrappedNative interface{} `json:"wrapped_native"`
		Tokens        interface{} `json:"tokens"`
	}{
		Network:       a.network.Name,
		Fallback:      a.catalog.FallbackActive(),
		Native:        a.catalog.Native(),
		WrappedNative: a.catalog.WrappedNative(),
		Tokens:        a.catalog.Tokens(),
	})
}
