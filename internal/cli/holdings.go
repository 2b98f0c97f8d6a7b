package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"networth-tracker/internal/models"
	"networth-tracker/internal/store"
)

// addHoldingsCommands adds the holdings listing command.
func addHoldingsCommands(rootCmd *cobra.Command, app *App) {
	var (
		types      []string
		activeOnly bool
		all        bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:     "holdings",
		Aliases: []string{"h"},
		Short:   "List holdings",
		Example: `  networth holdings
  networth holdings --type stock --type etf
  networth holdings --all --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			filter := store.HoldingFilter{
				UserID:         app.User(),
				ActiveOnly:     activeOnly,
				IncludeDeleted: all,
				Limit:          limit,
			}
			for _, t := range types {
				ht := models.HoldingType(strings.ToLower(t))
				if !ht.Valid() {
					return fmt.Errorf("unknown holding type %q", t)
				}
				filter.Types = append(filter.Types, ht)
			}

			if err := app.open(); err != nil {
				return err
			}
			holdings, err := app.Store.ListHoldings(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to list holdings: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(holdings)
			}
			if len(holdings) == 0 {
				output.Info("No holdings for %s", app.User())
				return nil
			}

			table := NewTable(output, "Name", "Type", "Symbol", "Exchange", "Currency", "Status")
			for _, h := range holdings {
				table.AddRow(h.Name, string(h.Type), valueOr(h.SymbolValue(), "-"),
					valueOr(h.ExchangeValue(), "-"), string(h.Currency), holdingStatus(output, h))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "filter by holding type (repeatable)")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active holdings")
	cmd.Flags().BoolVar(&all, "all", false, "include deleted holdings")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of holdings")

	rootCmd.AddCommand(cmd)
}

func holdingStatus(output *Output, h models.Holding) string {
	switch {
	case h.DeletedAt != nil:
		return output.DimText("deleted")
	case !h.IsActive:
		return output.DimText("inactive")
	case h.IsDormant:
		return output.Yellow("dormant")
	}
	return "active"
}
