package cli

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	var reinvestment, external bool

	cmd := &cobra.Command{
		Use:   "import [file|-]",
		Short: "Import settlement records from a P2P exchange",
		Long: `Import the JSON settlement summary of a P2P exchange order.

The file may hold one record or an array of records. Records in which you
sold sats become sales; the rest are skipped. A bad record aborts the whole
batch. The cost basis of an imported sale is provisional (a fixed share of
the contract rate) and should be checked.

With --reinvestment a single record is imported as a repurchase instead.`,
		Example: `  harvest import order-48213.json
  cat orders.json | harvest import -
  harvest import purchase.json --reinvestment --external`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			raw, err := app.readInput(cmd, path)
			if err != nil {
				return err
			}

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}

			if reinvestment {
				fromPool := app.Config.Import.DefaultFromPool
				if cmd.Flags().Changed("external") {
					fromPool = !external
				}
				res, err := l.ImportReinvestment(ctx, raw, fromPool)
				if err := checkWrite(output, err); err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(res)
				}
				if res.Skipped {
					output.Warning("Skipped: the record has no fiat buyer")
					return nil
				}
				output.Success("Imported repurchase %s: %s sats for %s",
					res.Trade.ID, FormatSats(res.Trade.SatsBought), output.Fiat(res.Trade.ReinvestAmount))
				return nil
			}

			res, err := l.ImportBatch(ctx, raw)
			if err := checkWrite(output, err); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}
			for _, t := range res.Imported {
				output.Success("Imported sale %s: %s sats for %s (premium %s)",
					t.ID, FormatSats(t.SatsSold), output.Fiat(t.USDReceived), output.FormatGain(t.PremiumGain))
			}
			for _, orderID := range res.SkippedOrders {
				output.Warning("Skipped order #%s: no sats were sold", orderID)
			}
			output.Println()
			output.Printf("%d imported, %d skipped\n", len(res.Imported), len(res.SkippedOrders))
			if len(res.Imported) > 0 {
				ratio, _ := app.Config.Import.Ratio()
				output.Dim("Cost basis set to %s%% of the contract rate. Review it with 'harvest sell list'.", ratio.Shift(2))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reinvestment, "reinvestment", false, "import a purchase as a repurchase")
	cmd.Flags().BoolVar(&external, "external", false, "with --reinvestment: funded outside the premium pool")

	return cmd
}

// readInput reads path from the app filesystem, or stdin for "-".
func (app *App) readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := afero.ReadFile(app.fs(), path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}
