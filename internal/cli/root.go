// Package cli provides the command-line interface for the net-worth tracker.
package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"networth-tracker/internal/config"
	"networth-tracker/internal/importer"
	"networth-tracker/internal/logging"
	"networth-tracker/internal/prices"
	"networth-tracker/internal/resilience"
	"networth-tracker/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies. Everything past Config is opened on
// first use so that commands like version never touch the database.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Store        *store.SQLiteStore
	Fetcher      *prices.Fetcher
	Breakers     *resilience.CircuitBreakerRegistry
	Transactions *importer.TransactionImporter
	Snapshots    *importer.SnapshotImporter

	configDir string
	userID    string
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "networth",
		Short: "Net-worth tracker - prices and CSV imports",
		Long: `networth keeps a personal balance sheet up to date.

It prices stock, ETF and crypto holdings through cached provider lookups and
imports transaction and balance-snapshot history from CSV files.

Use 'networth serve' to run the HTTP API with scheduled price refreshes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/networth-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("user", "", "user id (default: server.default_user)")

	addCoreCommands(rootCmd, app)
	addImportCommands(rootCmd, app)
	addPriceCommands(rootCmd, app)
	addHoldingsCommands(rootCmd, app)
	addServeCommand(rootCmd, app)

	return rootCmd
}

// init loads configuration and builds the logger.
func (app *App) init(cmd *cobra.Command) error {
	app.configDir, _ = cmd.Flags().GetString("config")
	if app.configDir == "" {
		app.configDir = config.DefaultConfigDir()
	}

	cfg, err := config.Load(app.configDir)
	if err != nil {
		return err
	}
	app.Config = cfg

	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		cfg.Log.Level = "debug"
	}
	app.Logger = logging.NewLoggerWithConfig(cfg.Log)
	if debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}

	app.userID, _ = cmd.Flags().GetString("user")
	app.userID = strings.TrimSpace(app.userID)
	if app.userID == "" {
		app.userID = cfg.Server.DefaultUser
	}
	return nil
}

// open connects the store and builds the price fetcher and importers.
func (app *App) open() error {
	if app.Store != nil {
		return nil
	}

	st, err := store.NewSQLiteStore(app.Config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	app.Store = st
	app.Logger.Debug().Str("path", app.Config.Database.Path).Msg("SQLite store initialized")

	pc := app.Config.Prices
	app.Breakers = resilience.NewCircuitBreakerRegistry(pc.BreakerConfig())
	providers := prices.Guard(app.Breakers, app.Logger,
		prices.NewStockClient(pc.StockClientConfig(), app.Logger),
		prices.NewCryptoClient(pc.CryptoClientConfig(), app.Logger),
	)
	app.Fetcher = prices.NewFetcher(st, providers, pc.FetcherConfig(), app.Logger)
	app.Transactions = importer.NewTransactionImporter(st, app.Logger)
	app.Snapshots = importer.NewSnapshotImporter(st, app.Logger)
	return nil
}

// Close releases the store if it was opened.
func (app *App) Close() error {
	if app.Store == nil {
		return nil
	}
	err := app.Store.Close()
	app.Store = nil
	return err
}

// User returns the user commands act on.
func (app *App) User() string {
	return app.userID
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// version needs no config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("networth v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := redacted(app.Config)
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			showConfig(output, cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"dir": app.configDir, "file": app.Config.Path})
			} else {
				output.Println(app.Config.Path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

// redacted returns a copy of cfg with secrets masked.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.Prices.Crypto.APIKey != "" {
		out.Prices.Crypto.APIKey = "********"
	}
	return out
}

func showConfig(output *Output, cfg config.Config) {
	output.Dim("File: %s", cfg.Path)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.Database.Path)
	output.Printf("  Log level:       %s\n", cfg.Log.Level)
	output.Printf("  Log file:        %s\n", cfg.Log.FilePath)
	output.Println()

	p := cfg.Prices
	output.Bold("Prices")
	output.Printf("  Cache TTL:       %d min\n", p.CacheTTLMinutes)
	output.Printf("  Concurrency:     %d\n", p.BatchConcurrency)
	output.Printf("  Refresh:         %s\n", p.RefreshSchedule)
	output.Printf("  Retries:         %d (initial %s, x%.1f, max %s)\n",
		p.Retry.MaxRetries, p.Retry.InitialDelay, p.Retry.BackoffMultiplier, p.Retry.MaxDelay)
	output.Printf("  Breaker:         %d failures, %s cooldown\n", p.Breaker.FailureThreshold, p.Breaker.Cooldown)
	output.Printf("  Stock API:       %s\n", p.Stock.BaseURL)
	output.Printf("  Crypto API:      %s\n", p.Crypto.BaseURL)
	output.Printf("  Crypto quote:    %s\n", p.Crypto.QuoteCurrency)
	output.Printf("  Crypto API key:  %s\n", valueOr(p.Crypto.APIKey, "not set"))
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Printf("  Default user:    %s\n", cfg.Server.DefaultUser)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
