package cli

import (
	"github.com/spf13/cobra"

	"harvest-ledger/internal/errors"
)

func newClearCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded trade",
		Long:  "Delete all sales and repurchases and reset the summary. This cannot be undone; export first if unsure.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if !yes {
				output.Warning("This deletes every recorded trade. Re-run with --yes to confirm.")
				return errors.NewValidationError("yes", false, "confirmation required")
			}

			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			sells, buys := len(l.SellTrades()), len(l.ReinvestmentTrades())
			if err := checkWrite(output, l.ClearAllData(ctx)); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]int{"sellTradesRemoved": sells, "reinvestmentTradesRemoved": buys})
			}
			output.Success("Cleared %d sales and %d repurchases", sells, buys)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
