package indicators

import (
	"context"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
	"github.com/tradeforge/conviction/internal/patterns"
)

// patternScan runs the structural pattern detector over the recent OHLC
// window and carries the union of active patterns in the result. It holds
// zero weight in the composite by default; its output feeds the hard
// confirmation gate.
func patternScan(cfg *config.Config) func(context.Context, data.Fetcher, Request) (domain.IndicatorResult, error) {
	detector := patterns.New(patterns.Config{
		BoxBars:      cfg.Patterns.Window - 2,
		ExpiryBars:   cfg.Patterns.ExpiryBars,
		QuartileFrac: cfg.Patterns.QuartileFrac,
	})
	// Enough bars for a box plus the expiry horizon.
	window := cfg.Patterns.Window + cfg.Patterns.ExpiryBars + 2

	return func(ctx context.Context, fetch data.Fetcher, req Request) (domain.IndicatorResult, error) {
		ts, err := fetch.Fetch(ctx, data.SeriesID(req.Symbol, cfg.Timeframe), window)
		if err != nil {
			return domain.IndicatorResult{}, err
		}

		active := detector.Scan(ts.Bars)
		score := 0.0
		if len(active) > 0 {
			score = 100
		}
		return domain.IndicatorResult{
			Name:     NamePatternScan,
			Value:    score,
			Status:   domain.StatusOK,
			Patterns: active,
			Detail:   map[string]float64{"active_patterns": float64(len(active))},
		}, nil
	}
}
