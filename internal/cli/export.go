package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"harvest-ledger/internal/export"
	"harvest-ledger/internal/logging"
)

func newExportCmd(app *App) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as JSON, YAML or CSV",
		Example: `  harvest export --format csv --out ledger.csv
  harvest export --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := app.commandContext(cmd)
			defer cancel()

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			l, err := app.Ledger(ctx, output)
			if err != nil {
				return err
			}

			write := func(w io.Writer) error {
				return export.Write(w, f, l.SellTrades(), l.ReinvestmentTrades(), l.Summary())
			}
			if out == "" || out == "-" {
				return write(cmd.OutOrStdout())
			}

			file, err := app.fs().Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := write(file); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}
			logger := logging.FromContext(ctx)
			logger.Info().Str("path", out).Str("format", string(f)).Msg("Ledger exported")
			cmd.PrintErrf("Exported to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), export.FormatNames())
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")

	return cmd
}
