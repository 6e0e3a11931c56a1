// Package cli provides the command-line interface for the premium-harvesting ledger.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"harvest-ledger/internal/config"
	"harvest-ledger/internal/errors"
	"harvest-ledger/internal/importer"
	"harvest-ledger/internal/ledger"
	"harvest-ledger/internal/logging"
	"harvest-ledger/internal/store"
)

const cmdTimeout = 30 * time.Second

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// App holds the application dependencies. Config and Logger are filled in
// before any command runs; the store and ledger are opened on first use.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	KV     store.KV
	// FS is where import files are read and exports written.
	FS afero.Fs

	configDir string
	ownsKV    bool
	ledger    *ledger.Ledger
}

// NewRootCmd creates the root command for the CLI. A nil cfg is loaded from
// the --config directory when a command runs.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Config: cfg, Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "harvest",
		Short: "Bitcoin premium-harvesting ledger",
		Long: `harvest records BTC sales made above your cost basis, routes the premium
into a fiat pool, and tracks the sats bought back with it.

Use 'harvest summary' for the current pool and net sats position.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.configDir, "config", app.configDir, "config directory (default: ~/.config/harvest-ledger)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addSellCommands(rootCmd, app)
	addReinvestCommands(rootCmd, app)
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newSummaryCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newClearCmd(app))
	rootCmd.AddCommand(newExamplesCmd())

	return rootCmd
}

func (app *App) init(cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")

	if app.Config == nil {
		cfg, err := config.Load(app.configDir)
		if err != nil {
			return err
		}
		app.Config = cfg
		if debug {
			app.Config.Log.Level = "debug"
		}
		app.Logger = logging.NewLogger(app.Config.Log)
	} else if debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	return nil
}

// commandContext bounds a command's work and carries a logger tagged with
// the command path.
func (app *App) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	logger := logging.WithOperation(app.Logger, cmd.CommandPath())
	return context.WithTimeout(logging.WithLogger(context.Background(), logger), cmdTimeout)
}

// Ledger opens the store and ledger on first use. A store that cannot be
// read still yields a usable ledger; the failure is reported as a warning.
func (app *App) Ledger(ctx context.Context, output *Output) (*ledger.Ledger, error) {
	if app.ledger != nil {
		// An injected store can change between commands.
		if err := app.ledger.Reload(ctx); err != nil {
			if !errors.IsPersistence(err) {
				return nil, err
			}
			warnPersistence(output, err)
		}
		return app.ledger, nil
	}

	if app.KV == nil {
		kv, err := store.Open(app.Config.Storage)
		if err != nil {
			return nil, fmt.Errorf("opening %s store: %w", app.Config.Storage.Driver, err)
		}
		app.KV, app.ownsKV = kv, true
		logger := logging.FromContext(ctx)
		logger.Debug().Str("driver", app.Config.Storage.Driver).Str("path", app.Config.Storage.Path).Msg("Store opened")
	}

	ratio, err := app.Config.Import.Ratio()
	if err != nil {
		return nil, err
	}

	l, err := ledger.Open(ctx, app.KV,
		ledger.WithLogger(app.Logger),
		ledger.WithKey(app.Config.Storage.Key),
		ledger.WithNormalizer(importer.Normalizer{CostBasisRatio: ratio}),
	)
	if err != nil {
		if !errors.IsPersistence(err) {
			return nil, err
		}
		warnPersistence(output, err)
	}
	app.ledger = l
	return l, nil
}

func (app *App) fs() afero.Fs {
	if app.FS == nil {
		app.FS = afero.NewOsFs()
	}
	return app.FS
}

// Close releases the store if the app opened it. An injected KV stays open
// and the ledger over it stays loaded.
func (app *App) Close() error {
	if !app.ownsKV {
		return nil
	}
	err := app.KV.Close()
	app.KV, app.ownsKV, app.ledger = nil, false, nil
	return err
}

// output returns an Output configured from the app's UI settings.
func (app *App) output(cmd *cobra.Command) *Output {
	output := NewOutput(cmd)
	if app.Config != nil {
		output.SetCurrency(app.Config.UI.Currency)
		if !app.Config.UI.ColorEnabled {
			output.SetColor(false)
		}
	}
	return output
}

// checkWrite splits a write error into a warning for persistence failures,
// which leave the in-memory change in place, and a hard error otherwise.
func checkWrite(output *Output, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsPersistence(err) {
		warnPersistence(output, err)
		return nil
	}
	return err
}

func warnPersistence(output *Output, err error) {
	if output.IsJSON() {
		return
	}
	output.Warning("Warning: %v", err)
	output.Dim("The change is recorded for this session but was not saved.")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
				return
			}
			output.Printf("harvest v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View the active configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := app.output(cmd)
			dir := app.configDir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
				return
			}
			output.Println(dir)
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Storage")
	output.Printf("  Driver:          %s\n", cfg.Storage.Driver)
	output.Printf("  Path:            %s\n", cfg.Storage.Path)
	output.Printf("  Key:             %s\n", cfg.Storage.Key)
	output.Println()

	output.Bold("Import")
	output.Printf("  Cost basis ratio: %s\n", cfg.Import.CostBasisRatio)
	output.Printf("  From pool:        %v\n", cfg.Import.DefaultFromPool)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Log.Level)
	output.Printf("  File:            %v (%s)\n", cfg.Log.File, cfg.Log.FilePath)
	output.Println()

	output.Bold("Display")
	output.Printf("  Currency:        %s\n", cfg.UI.Currency)
	output.Printf("  Color:           %v\n", cfg.UI.ColorEnabled)
}
