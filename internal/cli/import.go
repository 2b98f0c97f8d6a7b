package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"networth-tracker/internal/models"
	"networth-tracker/internal/server"
)

// addImportCommands adds CSV import commands.
func addImportCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import history from CSV files",
		Long: `Import transactions or balance snapshots from a CSV file.

Imports are idempotent: rows that already exist are skipped, so a file can be
re-imported after fixing the rows that failed.`,
	}

	cmd.AddCommand(newImportCmd(app, "transactions",
		"Import BUY/SELL/DIVIDEND transactions",
		"Columns: date, symbol, action, quantity, unit_price, fees?, currency?, exchange?, notes?",
		func() server.Importer { return app.Transactions }))

	cmd.AddCommand(newImportCmd(app, "snapshots",
		"Import account balance snapshots",
		"Columns: date, fund_name, balance, employer_contrib?, employee_contrib?, currency?, notes?",
		func() server.Importer { return app.Snapshots }))

	rootCmd.AddCommand(cmd)
}

func newImportCmd(app *App, kind, short, columns string, importer func() server.Importer) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <file>",
		Short: short,
		Long:  short + ".\n\n" + columns + "\n\nUse - to read from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			text, err := readCSVFile(cmd, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("%s is empty", args[0])
			}

			if err := app.open(); err != nil {
				return err
			}

			result, err := importer().Import(cmd.Context(), app.User(), text)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", kind, err)
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printImportResult(output, kind, result)
			return nil
		},
	}
}

func readCSVFile(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func printImportResult(output *Output, kind string, result *models.ImportResult) {
	output.Success("Imported %d %s, skipped %d duplicates", result.Imported, kind, result.Skipped)
	if len(result.Errors) == 0 {
		return
	}

	output.Println()
	output.Warning("%d rows failed", len(result.Errors))
	table := NewTable(output, "Row", "Error")
	for _, e := range result.Errors {
		table.AddRow(fmt.Sprintf("%d", e.Row), e.Message)
	}
	table.Render()
}
