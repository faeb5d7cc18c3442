package indicators

import (
	"context"
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
)

// trendFilter derives the proposed trade direction from an EMA crossover
// and scores trend strength from ADX. Direction is exported through Detail
// as +1 (long), -1 (short) or 0 (no edge); the gate evaluator and the
// confirmation logic key off it.
func trendFilter(cfg *config.Config) func(context.Context, data.Fetcher, Request) (domain.IndicatorResult, error) {
	fast, slow := cfg.Indicators.EMAFast, cfg.Indicators.EMASlow
	adxPeriod := cfg.Indicators.ADXPeriod

	return func(ctx context.Context, fetch data.Fetcher, req Request) (domain.IndicatorResult, error) {
		ts, err := fetch.Fetch(ctx, data.SeriesID(req.Symbol, cfg.Timeframe), cfg.Lookback)
		if err != nil {
			return domain.IndicatorResult{}, err
		}
		// ADX needs twice its period to stabilize.
		need := slow
		if 2*adxPeriod > need {
			need = 2 * adxPeriod
		}
		if len(ts.Bars) < need+1 {
			return domain.IndicatorResult{}, fmt.Errorf("trend_filter: need %d bars, have %d", need+1, len(ts.Bars))
		}

		closes := ts.Closes()
		emaFast := last(talib.Ema(closes, fast))
		emaSlow := last(talib.Ema(closes, slow))
		adx := last(talib.Adx(ts.Highs(), ts.Lows(), closes, adxPeriod))

		direction := 0.0
		switch {
		case emaFast > emaSlow:
			direction = 1
		case emaFast < emaSlow:
			direction = -1
		}

		return domain.IndicatorResult{
			Name:   NameTrendFilter,
			Value:  clamp(2*adx, 0, 100),
			Status: domain.StatusOK,
			Detail: map[string]float64{
				DetailDirection: direction,
				DetailADX:       adx,
				"ema_fast":      emaFast,
				"ema_slow":      emaSlow,
			},
		}, nil
	}
}

// DirectionOf maps a trend_filter result to the proposed trade direction.
// Results that are missing or flat yield DirectionNone.
func DirectionOf(res domain.IndicatorResult, ok bool) domain.Direction {
	if !ok || !res.OK() {
		return domain.DirectionNone
	}
	switch {
	case res.Detail[DetailDirection] > 0:
		return domain.DirectionLong
	case res.Detail[DetailDirection] < 0:
		return domain.DirectionShort
	}
	return domain.DirectionNone
}
