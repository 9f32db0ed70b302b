package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"

	"github.com/raykavin/alphabot"
	"github.com/raykavin/alphabot/internal/config"
	"github.com/raykavin/alphabot/pkg/admin"
	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/platform"
	"github.com/raykavin/alphabot/pkg/storage"
	"github.com/raykavin/alphabot/pkg/trade"
)

const version = "1.0.0"

// Command line flags
var (
	configPath string
	storePath  string
	adminAddr  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "alphabot",
		Short:   "Chat driven market data and trading assistant",
		Version: version,
	}

	rootCmd.AddCommand(buildRunCmd(), buildVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the chat and dispatch commands",
		RunE:  run,
	}

	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (default ./alphabot.yaml)")
	runCmd.Flags().StringVarP(&storePath, "store", "s", "", "Document store path, overrides store.path")
	runCmd.Flags().StringVarP(&adminAddr, "admin", "a", "", "Admin HTTP listen address, overrides admin.address")

	return runCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("alphabot " + version)
		},
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log := alphabot.DefaultLog

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if adminAddr != "" {
		cfg.Admin.Address = adminAddr
	}

	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}

	providers, err := buildProviders(cfg.Providers)
	if err != nil {
		store.Close()
		return err
	}

	options := []alphabot.Option{
		alphabot.WithStore(store),
		alphabot.WithProviders(providers...),
		alphabot.WithLogger(log),
	}

	var client billing.Client = billing.LogClient{Log: log}
	if cfg.Billing.Endpoint != "" {
		timeout, err := config.Duration(cfg.Billing.Timeout)
		if err != nil {
			store.Close()
			return fmt.Errorf("billing.timeout: %w", err)
		}
		client = billing.NewHTTPClient(cfg.Billing.Endpoint, cfg.Billing.APIKey, timeout)
	}
	options = append(options, alphabot.WithBilling(client, cfg.Billing.Ledger))

	sweep, err := config.Duration(cfg.Paper.SweepInterval)
	if err != nil {
		store.Close()
		return fmt.Errorf("paper.sweep_interval: %w", err)
	}
	options = append(options, alphabot.WithSweepInterval(sweep))

	if b := cfg.Providers.Binance; b.APIKey != "" && b.SecretKey != "" {
		options = append(options, alphabot.WithBroker(trade.NewBinanceBroker(b.APIKey, b.SecretKey)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := alphabot.NewBot(ctx, settings, options...)
	if err != nil {
		return err
	}
	defer func() {
		if err := bot.Close(); err != nil {
			log.WithError(err).Error("failed to close bot")
		}
	}()

	if cfg.Admin.Address != "" {
		server := admin.NewServer(cfg.Admin.Address, bot.Statistics(), bot.Router().Latency(), log)
		go func() {
			if err := server.Run(ctx); err != nil {
				log.WithError(err).Error("admin server stopped")
			}
		}()
	}

	return bot.Run(ctx)
}

func openStore(cfg config.StoreConfig) (storage.DocumentStore, error) {
	switch cfg.Backend {
	case "", "bunt":
		return storage.FromFile(cfg.Path)
	case "sqlite":
		return storage.FromSQL(sqlite.Open(cfg.Path))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func buildProviders(cfg config.ProvidersConfig) ([]platform.Provider, error) {
	var providers []platform.Provider

	if b := cfg.Binance; b.Enabled {
		ttl, err := config.Duration(b.IndexTTL)
		if err != nil {
			return nil, fmt.Errorf("providers.binance.index_ttl: %w", err)
		}
		options := []platform.BinanceOption{platform.WithBinanceCredentials(b.APIKey, b.SecretKey)}
		if b.Rate > 0 {
			options = append(options, platform.WithBinanceRate(b.Rate, b.Burst))
		}
		if ttl > 0 {
			options = append(options, platform.WithBinanceIndexTTL(ttl))
		}
		providers = append(providers, platform.NewBinanceProvider(options...))
	}

	for _, server := range cfg.DataServers {
		timeout, err := config.Duration(server.Timeout)
		if err != nil {
			return nil, fmt.Errorf("providers.data_servers.%s.timeout: %w", server.Name, err)
		}
		providers = append(providers, platform.NewDataServer(server.Name, server.Endpoint, timeout, server.PerMinute))
	}
	return providers, nil
}
