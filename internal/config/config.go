package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	Network           string
	ChainID           int64
	Router            string
	Factory           string
	Quoter            string
	Bridges           []string
	LiquidityPremium  int
	PrivateKey        string
	GasLimit          uint64
	GasPerHop         uint64
	AssociateGasLimit uint64
	ValueScaleExp     int
	DeadlineWindow    time.Duration
	ReceiptTimeout    time.Duration
	PGDSN             string
	RefreshTokens     bool
	Out               string
	MetricsPushURL    string
	MetricsJob        string
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "mainnet")
	v.SetDefault("liquidity-premium-pct", 100)
	v.SetDefault("gas-limit", uint64(1_000_000))
	v.SetDefault("gas-per-hop", uint64(400_000))
	v.SetDefault("associate-gas-limit", uint64(800_000))
	v.SetDefault("value-scale-exp", 10)
	v.SetDefault("deadline-window", 20*time.Minute)
	v.SetDefault("receipt-timeout", 2*time.Minute)
	v.SetDefault("refresh-tokens", true)
	v.SetDefault("out", "./data/results.jsonl")
	v.SetDefault("metrics-job", "swapper")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 300*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		Network:           strings.ToLower(strings.TrimSpace(v.GetString("network"))),
		ChainID:           v.GetInt64("chain-id"),
		Router:            v.GetString("router"),
		Factory:           v.GetString("factory"),
		Quoter:            v.GetString("quoter"),
		Bridges:           getStringSlice(v, "bridges"),
		LiquidityPremium:  v.GetInt("liquidity-premium-pct"),
		PrivateKey:        v.GetString("private-key"),
		GasLimit:          v.GetUint64("gas-limit"),
		GasPerHop:         v.GetUint64("gas-per-hop"),
		AssociateGasLimit: v.GetUint64("associate-gas-limit"),
		ValueScaleExp:     v.GetInt("value-scale-exp"),
		DeadlineWindow:    v.GetDuration("deadline-window"),
		ReceiptTimeout:    v.GetDuration("receipt-timeout"),
		PGDSN:             v.GetString("pg-dsn"),
		RefreshTokens:     v.GetBool("refresh-tokens"),
		Out:               v.GetString("out"),
		MetricsPushURL:    v.GetString("metrics-push-url"),
		MetricsJob:        v.GetString("metrics-job"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}

	if cfg.ValueScaleExp < 0 {
		return Config{}, fmt.Errorf("value-scale-exp must be >= 0")
	}
	if cfg.LiquidityPremium < 0 {
		return Config{}, fmt.Errorf("liquidity-premium-pct must be >= 0")
	}
	if cfg.DeadlineWindow <= 0 {
		return Config{}, fmt.Errorf("deadline-window must be positive")
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
