package cli

import (
	"time"

	"github.com/spf13/cobra"

	"harvest-ledger/internal/id"
	"harvest-ledger/internal/metrics"
	"harvest-ledger/internal/models"
)

// addSellCommands adds the sell trade commands.
func addSellCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Record and review BTC sales",
		Long:  "Record sales made above your cost basis. The premium of each sale goes to the fiat pool.",
	}

	cmd.AddCommand(newSellAddCmd(app))
	cmd.AddCommand(newSellListCmd(app))
	cmd.AddCommand(newSellRemoveCmd(app))

	rootCmd.AddCommand(cmd)
}

func newSellAddCmd(app *App) *cobra.Command {
	var (
		satsSold                     int64
		price, usd, costBasis, notes string
		date                         string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a sale",
		Long: `Record a sale of sats for fiat.

The premium is the fiat received minus what the sold sats were worth at
your cost basis. It is added to the fiat pool in full. Without --usd the
fiat received is taken as the sats' value at --price.`,
		Example: `  harvest sell add --sats 500000 --price 88700 --usd 443.50 --cost-basis 84500
  harvest sell add --sats 500000 --price 88700 --cost-basis 84500
  harvest sell add --sats 250000 --price 91000 --usd 227.50 --cost-basis 84500 --date 2025-03-14 --notes "OTC"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			in := models.SellTradeInput{
				Date:     models.Date(date),
				SatsSold: models.Sats(satsSold),
				Notes:    notes,
			}
			var err error
			if in.BTCPrice, err = models.ParseAmount("btcPrice", price); err != nil {
				return err
			}
			if usd == "" {
				in.USDReceived = models.FiatValue(in.SatsSold, in.BTCPrice)
			} else if in.USDReceived, err = models.ParseAmount("usdReceived", usd); err != nil {
				return err
			}
			if in.CostBasis, err = models.ParseAmount("costBasis", costBasis); err != nil {
				return err
			}

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			trade, err := l.AddSellTrade(ctx, in)
			if err := checkWrite(output, err); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Recorded sale %s", trade.ID)
			output.Printf("  Sold:     %s sats at %s\n", FormatSats(trade.SatsSold), output.Price(trade.BTCPrice))
			output.Printf("  Received: %s\n", output.Fiat(trade.USDReceived))
			output.Printf("  Premium:  %s to fiat pool\n", output.FormatGain(trade.PremiumGain))
			if pct, ok := metrics.PremiumPercentage(trade.BTCPrice, trade.CostBasis); ok {
				output.Printf("  Price vs cost basis: %s\n", FormatPercent(pct))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&satsSold, "sats", 0, "sats sold (required)")
	cmd.Flags().StringVar(&price, "price", "", "BTC price at the time of sale (required)")
	cmd.Flags().StringVar(&usd, "usd", "", "fiat received (default: sats value at --price)")
	cmd.Flags().StringVar(&costBasis, "cost-basis", "", "your cost basis per BTC (required)")
	cmd.Flags().StringVar(&date, "date", "", "trade date YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	for _, f := range []string{"sats", "price", "cost-basis"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func newSellListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded sales",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			trades := l.SellTrades()

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No sales recorded.")
				output.Dim("Tip: record one with 'harvest sell add' or 'harvest import'.")
				return nil
			}

			table := NewTable(output, "ID", "Date", "Sats", "Price", "Received", "Cost Basis", "Premium", "Notes")
			for _, t := range trades {
				table.AddRow(
					t.ID,
					t.Date.String(),
					FormatSats(t.SatsSold),
					output.Price(t.BTCPrice),
					output.Fiat(t.USDReceived),
					output.Price(t.CostBasis),
					output.FormatGain(t.PremiumGain),
					TruncateString(t.Notes, 30),
				)
			}
			table.Render()
			output.Println()
			output.Dim("%d sales, %s premium", len(trades), output.Fiat(l.Summary().TotalPremiumProfit))
			return nil
		},
	}
}

func newSellRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a recorded sale",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			_, found := l.SellTrade(args[0])
			if err := checkWrite(output, l.RemoveSellTrade(ctx, args[0])); err != nil {
				return err
			}
			return reportRemoval(output, "sale", args[0], found)
		},
	}
}

func reportRemoval(output *Output, kind, tradeID string, found bool) error {
	if output.IsJSON() {
		return output.JSON(map[string]interface{}{"id": tradeID, "removed": found})
	}
	if !found {
		output.Warning("No %s with id %s", kind, tradeID)
		return nil
	}
	output.Success("Removed %s %s", kind, tradeID)
	if at, ok := id.Time(tradeID); ok {
		output.Dim("Originally recorded %s", at.Local().Format(time.DateTime))
	}
	return nil
}
