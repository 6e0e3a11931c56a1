package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

type workflow struct {
	title    string
	commands []string
}

var workflows = []workflow{
	{
		title: "Harvest a Premium",
		commands: []string{
			"harvest sell add --sats 500000 --price 88700 --usd 443.50 --cost-basis 84500",
			"harvest summary                 # Premium lands in the fiat pool",
		},
	},
	{
		title: "Buy the Dip from the Pool",
		commands: []string{
			"harvest reinvest add --amount 20 --price 82300",
			"harvest reinvest list           # Pool Then shows the balance at purchase time",
		},
	},
	{
		title: "Record an Outside Purchase",
		commands: []string{
			"harvest reinvest add --amount 100 --price 79000 --external",
		},
	},
	{
		title: "Import P2P Settlements",
		commands: []string{
			"harvest import order-48213.json # One record or an array",
			"harvest import - < orders.json  # Read from stdin",
			"harvest sell list               # Check the provisional cost basis",
			"harvest import buy.json --reinvestment",
		},
	},
	{
		title: "Fix a Mistake",
		commands: []string{
			"harvest sell list               # Find the id",
			"harvest sell remove <id>",
		},
	},
	{
		title: "Back Up and Start Over",
		commands: []string{
			"harvest export --format json --out ledger-backup.json",
			"harvest export --format csv     # Spreadsheet-friendly",
			"harvest clear --yes",
		},
	},
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				out := make(map[string][]string, len(workflows))
				for _, w := range workflows {
					out[w.title] = w.commands
				}
				return output.JSON(out)
			}

			output.Bold("Common Workflows")
			output.Println()
			for _, w := range workflows {
				output.Bold(w.title)
				for _, c := range w.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}
			return nil
		},
	}
}
