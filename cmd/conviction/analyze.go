package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
	"github.com/tradeforge/conviction/internal/engine"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one symbol offline and print the result as JSON",
		Long:  "Runs the full pipeline against a JSON bar fixture: indicator fan-out, gates, composite score, signal and position sizing.",
		RunE:  runAnalyze,
	}

	cmd.Flags().String("symbol", "", "Symbol to analyze (required)")
	cmd.Flags().String("as-of", "", "Analysis date (YYYY-MM-DD, default today)")
	cmd.Flags().String("data", "", "Bar fixture file (required)")
	cmd.Flags().Float64("equity", 100000, "Account equity")
	cmd.Flags().Float64("risk", 0.01, "Risk fraction per trade")
	cmd.Flags().Float64("worst-loss", 0, "Historical worst loss per unit (optional)")
	cmd.Flags().String("ref-trend", "FLAT", "Reference instrument trend (UP|DOWN|FLAT)")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	symbol, _ := cmd.Flags().GetString("symbol")
	dataPath, _ := cmd.Flags().GetString("data")
	equity, _ := cmd.Flags().GetFloat64("equity")
	risk, _ := cmd.Flags().GetFloat64("risk")
	worstLoss, _ := cmd.Flags().GetFloat64("worst-loss")
	refTrend, _ := cmd.Flags().GetString("ref-trend")

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if raw, _ := cmd.Flags().GetString("as-of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("parse --as-of %q: %w", raw, err)
		}
	}

	fetcher, err := data.LoadFixture(dataPath)
	if err != nil {
		return err
	}

	analyzer := engine.New(cfg, fetcher, nil)
	result, err := analyzer.Analyze(cmd.Context(), symbol, asOf, domain.AccountConfig{
		Equity:           equity,
		RiskFraction:     risk,
		WorstLossPerUnit: worstLoss,
		ReferenceTrend:   domain.Trend(refTrend),
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
