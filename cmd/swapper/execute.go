package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapEngine/internal/model"
)

func newExecuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Route, quote, associate, and submit one swap",
		RunE:  runExecute,
	}
	addRequestFlags(cmd)
	cmd.Flags().String("out", "./data/results.jsonl", "results JSONL path (empty disables)")
	cmd.Flags().Uint64("gas-limit", 1_000_000, "gas limit for a single-hop swap")
	cmd.Flags().Uint64("gas-per-hop", 400_000, "extra gas per additional hop")
	cmd.Flags().Uint64("associate-gas-limit", 800_000, "gas limit for associate transactions")
	cmd.Flags().Duration("receipt-timeout", 2*time.Minute, "maximum wait for a receipt")
	cmd.Flags().String("metrics-push-url", "", "Pushgateway URL for run metrics")
	return cmd
}

func runExecute(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := parseRequest(cmd, a.signer.Address().Hex(), time.Now())
	if err != nil {
		return err
	}
	exec, err := a.executor()
	if err != nil {
		return err
	}

	result := exec.Execute(ctx, req)

	// Persisting uses its own context so an interrupt still records the outcome.
	if err := a.resultSink().PutResults(context.Background(), []model.ExecutionResult{result}); err != nil {
		a.logger.Error("persist result", zap.String("request_id", result.RequestID), zap.Error(err))
	}
	a.pushMetrics()

	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s at %s: %s", result.ErrorKind, result.Stage, result.Error)
	}
	return nil
}

func (a *app) pushMetrics() {
	if a.cfg.MetricsPushURL == "" {
		return
	}
	err := push.New(a.cfg.MetricsPushURL, a.cfg.MetricsJob).
		Gatherer(a.registry).
		Grouping("network", a.network.Name).
		Push()
	if err != nil {
		a.logger.Warn("push metrics", zap.String("url", a.cfg.MetricsPushURL), zap.Error(err))
	}
}
