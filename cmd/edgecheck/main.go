// Command edgecheck runs the overfitting-defense engine from the shell: a
// Reality Check over a hypothesis family, Deflated Sharpe, BH/BY adjustment,
// CSCV PBO, and the calibration harness, each as a subcommand reading JSON
// inputs and a yaml run config and writing a JSON artifact.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"edgecheck/internal/config"
)

// engineVersion feeds the cache key's code revision component; bump it when
// a release changes null-generation behavior.
const engineVersion = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "edgecheck",
		Short: "Statistical overfitting defense for quant research reports",
		Long: `edgecheck answers one question about a family of backtested signals:
after searching this many variants, is the best one still distinguishable
from noise? It provides bootstrap Reality Check p-values with optional
Romano-Wolf stepdown, Deflated Sharpe ratios, BH/BY false-discovery control
and a CSCV probability-of-backtest-overfitting estimate, all exactly
reproducible from the run key.`,
	}

	rootCmd.AddCommand(
		newRCCmd(),
		newDSRCmd(),
		newFDRCmd(),
		newPBOCmd(),
		newCalibrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the ambient config level.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
