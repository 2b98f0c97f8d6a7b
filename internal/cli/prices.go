package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"networth-tracker/internal/models"
	"networth-tracker/internal/prices"
	"networth-tracker/pkg/utils"
)

// addPriceCommands adds price lookup commands.
func addPriceCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))
	rootCmd.AddCommand(newPricesCmd(app))
}

func newPriceCmd(app *App) *cobra.Command {
	var (
		holdingType string
		exchange    string
		currency    string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "price <symbol>",
		Short: "Look up the price of a symbol",
		Long: `Look up the current price of a stock, ETF or crypto symbol.

Fresh cached prices are returned without calling the provider unless --force
is given. When the provider fails, the last cached price is shown as stale.`,
		Example: `  networth price CBA --exchange ASX
  networth price BTC --type crypto
  networth price VAS.AX --type etf --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			t := models.HoldingType(strings.ToLower(holdingType))
			if !t.IsTradeable() {
				return fmt.Errorf("invalid --type %q (must be stock, etf or crypto)", holdingType)
			}

			if err := app.open(); err != nil {
				return err
			}

			symbol := args[0]
			holding := models.Holding{
				UserID:   app.User(),
				Type:     t,
				Symbol:   &symbol,
				Currency: models.Currency(strings.ToUpper(currency)),
			}
			if exchange != "" {
				holding.Exchange = &exchange
			}

			result, err := app.Fetcher.FetchPrice(cmd.Context(), holding, prices.FetchOptions{ForceRefresh: force})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printPrice(output, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&holdingType, "type", "t", "stock", "holding type: stock, etf, crypto")
	cmd.Flags().StringVarP(&exchange, "exchange", "e", "", "exchange (ASX, NZX, NYSE, NASDAQ)")
	cmd.Flags().StringVar(&currency, "currency", "", "holding currency")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "bypass the price cache")

	return cmd
}

func printPrice(output *Output, r *models.PriceResult) {
	currency := string(r.Currency)
	output.Bold("%s  %s", r.Symbol, utils.FormatPrice(r.Price, currency))
	output.Printf("  Change:   %s (%s)\n",
		utils.FormatChange(r.ChangeAbsolute, currency), output.FormatChangePercent(r.ChangePercent))
	output.Printf("  Source:   %s\n", r.Source)
	output.Printf("  Fetched:  %s\n", r.FetchedAt.Local().Format("2006-01-02 15:04:05"))
	if r.IsStale {
		output.Warning("  Stale price: %s", valueOr(r.Error, "provider unavailable"))
	}
}

func newPricesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Portfolio price operations",
	}

	var force bool
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh prices for all tradeable holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.open(); err != nil {
				return err
			}

			holdings, err := app.Store.ListTradeableHoldings(cmd.Context(), app.User())
			if err != nil {
				return fmt.Errorf("failed to list holdings: %w", err)
			}

			results := app.Fetcher.FetchPricesForHoldings(cmd.Context(), holdings, prices.FetchOptions{ForceRefresh: force})

			if output.IsJSON() {
				return output.JSON(results)
			}
			printRefresh(output, holdings, results)
			return nil
		},
	}
	refresh.Flags().BoolVarP(&force, "force", "f", false, "bypass the price cache")
	cmd.AddCommand(refresh)

	return cmd
}

func printRefresh(output *Output, holdings []models.Holding, results map[string]models.PriceResult) {
	if len(holdings) == 0 {
		output.Info("No tradeable holdings")
		return
	}

	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Name < holdings[j].Name })

	table := NewTable(output, "Holding", "Symbol", "Price", "Change", "Status")
	stale, failed := 0, 0
	for _, h := range holdings {
		r, ok := results[h.ID]
		if !ok {
			failed++
			table.AddRow(h.Name, h.SymbolValue(), "-", "-", output.ColoredString(ColorRed, "failed"))
			continue
		}
		status := "live"
		if r.IsStale {
			stale++
			status = output.Yellow("stale")
		}
		table.AddRow(h.Name, r.Symbol, utils.FormatPrice(r.Price, string(r.Currency)),
			output.FormatChangePercent(r.ChangePercent), status)
	}
	table.Render()

	output.Println()
	output.Dim("%d priced, %d stale, %d failed", len(results), stale, failed)
}
