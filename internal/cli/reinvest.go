package cli

import (
	"github.com/spf13/cobra"

	"harvest-ledger/internal/models"
)

// addReinvestCommands adds the reinvestment commands.
func addReinvestCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "reinvest",
		Aliases: []string{"buy"},
		Short:   "Record and review BTC repurchases",
	}

	cmd.AddCommand(newReinvestAddCmd(app))
	cmd.AddCommand(newReinvestListCmd(app))
	cmd.AddCommand(newReinvestRemoveCmd(app))

	rootCmd.AddCommand(cmd)
}

func newReinvestAddCmd(app *App) *cobra.Command {
	var (
		amount, price, date, notes string
		external                   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a repurchase",
		Long: `Record fiat spent buying sats back.

By default the fiat is drawn from the premium pool. Use --external when the
purchase was funded from elsewhere; it is still counted in the totals.`,
		Example: `  harvest reinvest add --amount 20 --price 82300
  harvest reinvest add --amount 100 --price 79000 --external --notes "DCA"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			in := models.ReinvestmentInput{
				Date:           models.Date(date),
				FromProfitPool: !external,
				Notes:          notes,
			}
			var err error
			if in.ReinvestAmount, err = models.ParseAmount("reinvestAmount", amount); err != nil {
				return err
			}
			if in.BTCPrice, err = models.ParseAmount("btcPrice", price); err != nil {
				return err
			}

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			trade, err := l.AddReinvestmentTrade(ctx, in)
			if err := checkWrite(output, err); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Recorded repurchase %s", trade.ID)
			output.Printf("  Spent:  %s at %s\n", output.Fiat(trade.ReinvestAmount), output.Price(trade.BTCPrice))
			output.Printf("  Bought: %s sats\n", FormatSats(trade.SatsBought))
			if trade.FromProfitPool {
				output.Printf("  Pool after purchase: %s\n", output.Fiat(trade.RemainingProfit))
			} else {
				output.Dim("  Funded externally")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "fiat spent (required)")
	cmd.Flags().StringVar(&price, "price", "", "BTC price paid (required)")
	cmd.Flags().BoolVar(&external, "external", false, "funded outside the premium pool")
	cmd.Flags().StringVar(&date, "date", "", "trade date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newReinvestListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded repurchases",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			trades := l.ReinvestmentTrades()

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No repurchases recorded.")
				return nil
			}

			table := NewTable(output, "ID", "Date", "Amount", "Price", "Sats", "Source", "Pool Then", "Notes")
			for _, t := range trades {
				source := "pool"
				if !t.FromProfitPool {
					source = "external"
				}
				table.AddRow(
					t.ID,
					t.Date.String(),
					output.Fiat(t.ReinvestAmount),
					output.Price(t.BTCPrice),
					FormatSats(t.SatsBought),
					source,
					output.Fiat(t.RemainingProfit),
					TruncateString(t.Notes, 30),
				)
			}
			table.Render()
			output.Println()
			output.Dim("Pool Then is the pool balance when each purchase was recorded; see 'harvest summary' for the current pool.")
			return nil
		},
	}
}

func newReinvestRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a recorded repurchase",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			_, found := l.ReinvestmentTrade(args[0])
			if err := checkWrite(output, l.RemoveReinvestmentTrade(ctx, args[0])); err != nil {
				return err
			}
			return reportRemoval(output, "repurchase", args[0], found)
		},
	}
}
