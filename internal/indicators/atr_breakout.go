package indicators

import (
	"context"
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
)

// breakoutBars is the range window the breakout levels are taken from.
const breakoutBars = 10

// atrBreakout computes ATR-based breakout levels and the stop distance the
// sizing engine consumes. The subscore is the close's position within the
// recent breakout range: 100 at the range high, 0 at the range low.
func atrBreakout(cfg *config.Config) func(context.Context, data.Fetcher, Request) (domain.IndicatorResult, error) {
	period := cfg.Indicators.ATRPeriod
	stopMult := cfg.Sizing.ATRStopMultiple

	return func(ctx context.Context, fetch data.Fetcher, req Request) (domain.IndicatorResult, error) {
		ts, err := fetch.Fetch(ctx, data.SeriesID(req.Symbol, cfg.Timeframe), cfg.Lookback)
		if err != nil {
			return domain.IndicatorResult{}, err
		}
		if len(ts.Bars) < period+1 {
			return domain.IndicatorResult{}, fmt.Errorf("atr_breakout: need %d bars, have %d", period+1, len(ts.Bars))
		}

		highs, lows, closes := ts.Highs(), ts.Lows(), ts.Closes()
		atr := last(talib.Atr(highs, lows, closes, period))
		if atr <= 0 {
			return domain.IndicatorResult{}, fmt.Errorf("atr_breakout: degenerate ATR %.4f", atr)
		}

		n := len(ts.Bars)
		from := n - breakoutBars
		if from < 0 {
			from = 0
		}
		rangeHigh, rangeLow := highs[from], lows[from]
		for i := from + 1; i < n; i++ {
			if highs[i] > rangeHigh {
				rangeHigh = highs[i]
			}
			if lows[i] < rangeLow {
				rangeLow = lows[i]
			}
		}

		entry := closes[n-1]
		score := 50.0
		if rangeHigh > rangeLow {
			score = clamp(100*(entry-rangeLow)/(rangeHigh-rangeLow), 0, 100)
		}

		return domain.IndicatorResult{
			Name:   NameATRBreakout,
			Value:  score,
			Status: domain.StatusOK,
			Detail: map[string]float64{
				DetailATR:          atr,
				DetailEntry:        entry,
				DetailStopDistance: stopMult * atr,
				"breakout_high":    rangeHigh,
				"breakout_low":     rangeLow,
			},
		}, nil
	}
}
