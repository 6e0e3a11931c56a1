package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"harvest-ledger/internal/cli"
)

func main() {
	// Config and logger are loaded by the root command once --config is parsed.
	rootCmd := cli.NewRootCmd(nil, zerolog.Nop())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
