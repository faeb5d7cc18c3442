// Package indicators implements the indicator modules: pure computations,
// one metric each, over time series pulled through the data.Fetcher
// boundary. Every module normalizes its primary output to a 0-100 subscore
// and exposes structured extras through the result's Detail map. Modules
// are stateless; the registry is built once per methodology from the
// injected configuration.
package indicators

import (
	"context"
	"time"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
)

// Module names. Gate definitions and config weights key off these.
const (
	NameATRBreakout  = "atr_breakout"
	NameOscillator   = "oscillator"
	NameTrendFilter  = "trend_filter"
	NameCalendarBias = "calendar_bias"
	NamePatternScan  = "pattern_scan"
)

// Detail keys shared with the gate evaluator and sizing engine.
const (
	DetailDirection    = "direction"
	DetailStopDistance = "stop_distance"
	DetailEntry        = "entry"
	DetailATR          = "atr"
	DetailRSI          = "rsi"
	DetailADX          = "adx"
	DetailBias         = "bias"
	DetailZScore       = "z_score"
)

// Request identifies one analysis target.
type Request struct {
	Symbol string
	AsOf   time.Time
}

// Module is one registered indicator computation. Run performs the fetch
// and the computation; a returned error becomes a FAILED IndicatorResult
// at the orchestrator boundary and never aborts the batch.
type Module struct {
	Name   string
	Weight float64
	Run    func(ctx context.Context, fetch data.Fetcher, req Request) (domain.IndicatorResult, error)
}

// Registry builds the methodology's module set in declaration order. The
// order fixes result iteration everywhere downstream, so identical inputs
// produce identical output bytes.
func Registry(cfg *config.Config) []Module {
	return []Module{
		{Name: NameATRBreakout, Weight: cfg.Weight(NameATRBreakout), Run: atrBreakout(cfg)},
		{Name: NameOscillator, Weight: cfg.Weight(NameOscillator), Run: oscillator(cfg)},
		{Name: NameTrendFilter, Weight: cfg.Weight(NameTrendFilter), Run: trendFilter(cfg)},
		{Name: NameCalendarBias, Weight: cfg.Weight(NameCalendarBias), Run: calendarBias(cfg)},
		{Name: NamePatternScan, Weight: cfg.Weight(NamePatternScan), Run: patternScan(cfg)},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func last(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}
