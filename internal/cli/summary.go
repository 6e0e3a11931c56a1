package cli

import (
	"github.com/spf13/cobra"

	"harvest-ledger/internal/metrics"
	"harvest-ledger/internal/models"
)

type summaryView struct {
	models.SummaryMetrics
	NetSats models.Sats `json:"netSats"`
	Sells   int         `json:"sellTradeCount"`
	Buys    int         `json:"reinvestmentTradeCount"`
}

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals, the fiat pool and the net sats position",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}
			m := l.Summary()
			view := summaryView{
				SummaryMetrics: m,
				NetSats:        metrics.NetSats(m),
				Sells:          len(l.SellTrades()),
				Buys:           len(l.ReinvestmentTrades()),
			}

			if output.IsJSON() {
				return output.JSON(view)
			}

			sold := []string{
				"Sats sold:      " + FormatSats(m.TotalSatsSold),
				"Fiat received:  " + output.Fiat(m.TotalFiatGained),
				"Premium earned: " + output.FormatGain(m.TotalPremiumProfit),
			}
			// Fiat received less premium is what the sold sats were worth at cost basis.
			if pct, ok := metrics.PremiumPercentage(m.TotalFiatGained, m.TotalFiatGained.Sub(m.TotalPremiumProfit)); ok && m.TotalSatsSold > 0 {
				sold = append(sold, "Avg premium:    "+FormatPercent(pct))
			}
			output.Box("Sales", sold)

			output.Box("Repurchases", []string{
				"Fiat reinvested: " + output.Fiat(m.ReinvestedFiat),
				"Sats bought:     " + FormatSats(m.TotalSatsReinvested),
			})

			net := FormatSignedSats(view.NetSats) + " sats"
			switch {
			case view.NetSats > 0:
				net = output.Green(net)
			case view.NetSats < 0:
				net = output.Red(net)
			}
			output.Box("Position", []string{
				"Fiat pool: " + output.Fiat(m.RemainingFiatPool),
				"Net sats:  " + net,
				"Net BTC:   " + FormatBTC(view.NetSats),
			})

			if m.RemainingFiatPool.IsNegative() {
				output.Warning("The pool is overdrawn: more fiat was reinvested than premium earned.")
			}
			return nil
		},
	}
}
