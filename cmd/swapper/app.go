package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapEngine/internal/association"
	"swapEngine/internal/chain"
	"swapEngine/internal/compose"
	"swapEngine/internal/config"
	"swapEngine/internal/dex"
	"swapEngine/internal/metrics"
	"swapEngine/internal/model"
	"swapEngine/internal/route"
	"swapEngine/internal/storage"
	"swapEngine/internal/storage/postgres"
	"swapEngine/internal/swap"
	"swapEngine/internal/token"
)

// app is the wired engine for one command invocation.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	network  token.Network
	client   *chain.Client
	signer   *chain.Signer
	store    *postgres.Store
	catalog  *token.Catalog
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	router  common.Address
	factory common.Address
	quoter  common.Address
}

// newApp loads configuration and connects to the relay. The signer is only
// created when withSigner is set.
func newApp(ctx context.Context, cmd *cobra.Command, withSigner bool) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	network, err := token.LookupNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, network: network, registry: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.registry)

	if a.router, err = contractAddress("router", cfg.Router, network.Router); err != nil {
		return nil, err
	}
	if a.factory, err = contractAddress("factory", cfg.Factory, network.Factory); err != nil {
		return nil, err
	}
	if a.quoter, err = contractAddress("quoter", cfg.Quoter, network.Quoter); err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		a.Close()
		return nil, fmt.Errorf("rpc url is required")
	}
	a.client, err = chain.NewClient(ctx, cfg.RPCURL, chain.WithRetry(cfg.MaxRetries, cfg.RetryBackoff))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	if err := a.openCatalog(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if withSigner {
		if cfg.PrivateKey == "" {
			a.Close()
			return nil, fmt.Errorf("private key is required (SWAPPER_PRIVATE_KEY)")
		}
		chainID := cfg.ChainID
		if chainID == 0 {
			chainID = network.ChainID
		}
		a.signer, err = chain.NewSigner(ctx, a.client, chain.SignerConfig{
			PrivateKey:     cfg.PrivateKey,
			ChainID:        big.NewInt(chainID),
			ValueScaleExp:  cfg.ValueScaleExp,
			ReceiptTimeout: cfg.ReceiptTimeout,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	logger.Info("swapper ready",
		zap.String("network", network.Name),
		zap.String("rpc", cfg.RPCURL),
		zap.String("router", a.router.Hex()),
		zap.Bool("signer", a.signer != nil),
		zap.Bool("catalog_fallback", a.catalog.FallbackActive()),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)
	return a, nil
}

func (a *app) openCatalog(ctx context.Context) error {
	var source token.Source
	if a.cfg.PGDSN != "" {
		store, err := postgres.Open(ctx, a.cfg.PGDSN, a.network.Name)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.store = store
		if a.cfg.RefreshTokens {
			source = token.NewVerifiedSource(store, dex.NewTokenReader(a.client), a.logger)
		}
	}

	catalog, err := token.NewCatalog(a.network.Tokens, source, a.logger)
	if err != nil {
		return err
	}
	a.catalog = catalog
	if source != nil {
		// A failed refresh leaves the static registry in place.
		_ = catalog.Refresh(ctx)
	}
	a.metrics.SetCatalogFallback(catalog.FallbackActive())
	return nil
}

func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// bridges resolves the configured bridge assets, defaulting to the network's.
func (a *app) bridges() ([]model.TokenDescriptor, error) {
	names := a.cfg.Bridges
	if len(names) == 0 {
		names = a.network.Bridges
	}
	out := make([]model.TokenDescriptor, 0, len(names))
	for _, name := range names {
		desc, err := a.catalog.Resolve(name, true)
		if err != nil {
			return nil, fmt.Errorf("bridge %s: %w", name, err)
		}
		out = append(out, desc)
	}
	return out, nil
}

func (a *app) routeBuilder() (*route.Builder, error) {
	bridges, err := a.bridges()
	if err != nil {
		return nil, err
	}
	pools := dex.NewPoolReader(a.client, a.factory, a.logger)
	return route.NewBuilder(pools, bridges, a.logger, route.WithLiquidityPremium(a.cfg.LiquidityPremium)), nil
}

func (a *app) associations() *association.Manager {
	var submitter association.Submitter
	if a.signer != nil {
		submitter = a.signer
	}
	return association.NewManager(association.NewChainLedger(a.client, submitter, a.cfg.AssociateGasLimit), a.metrics, a.logger)
}

func (a *app) executor() (*swap.Executor, error) {
	routes, err := a.routeBuilder()
	if err != nil {
		return nil, err
	}
	deps := swap.Dependencies{
		Tokens:       a.catalog,
		Routes:       routes,
		Quoter:       dex.NewQuoter(a.client, a.quoter),
		Associations: a.associations(),
		Composer:     compose.NewComposer(a.router, a.cfg.GasLimit, a.cfg.GasPerHop),
		Metrics:      a.metrics,
	}
	cfg := swap.Config{Router: a.router, DeadlineWindow: a.cfg.DeadlineWindow}
	if a.signer != nil {
		deps.Ledger = a.signer
		cfg.Account = a.signer.Address()
	}
	return swap.NewExecutor(cfg, deps, a.logger)
}

// resultSink writes to the JSONL file and, when configured, Postgres.
func (a *app) resultSink() storage.ResultSink {
	sinks := storage.MultiSink{}
	if a.cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(a.cfg.Out))
	}
	if a.store != nil {
		sinks = append(sinks, a.store)
	}
	return sinks
}

func contractAddress(name, override, fallback string) (common.Address, error) {
	value := override
	if value == "" {
		value = fallback
	}
	addr, err := token.AddressFor(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s address: %w", name, err)
	}
	return addr, nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return "redacted"
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
