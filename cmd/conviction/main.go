package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "conviction"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Composite signal-aggregation and gated-scoring engine",
		Version: version,
		Long: `conviction pulls independent indicator computations, evaluates hard and
soft gates over them, combines the survivors into a bounded conviction
score, classifies the score into a trading signal and derives a
risk-bounded position size. Partial data-source outages degrade
gracefully instead of aborting the analysis.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Methodology config file (YAML); built-in defaults when empty")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newServeCmd())

	cobra.OnInitialize(func() {
		if debug, _ := rootCmd.PersistentFlags().GetBool("debug"); debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	})

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
