package indicators

import (
	"context"
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/tradeforge/conviction/internal/config"
	"github.com/tradeforge/conviction/internal/data"
	"github.com/tradeforge/conviction/internal/domain"
)

// oscillator computes the RSI momentum subscore. The raw RSI is the
// subscore; the overextension soft gate handles the extreme zones.
func oscillator(cfg *config.Config) func(context.Context, data.Fetcher, Request) (domain.IndicatorResult, error) {
	period := cfg.Indicators.RSIPeriod

	return func(ctx context.Context, fetch data.Fetcher, req Request) (domain.IndicatorResult, error) {
		ts, err := fetch.Fetch(ctx, data.SeriesID(req.Symbol, cfg.Timeframe), cfg.Lookback)
		if err != nil {
			return domain.IndicatorResult{}, err
		}
		if len(ts.Bars) < period+1 {
			return domain.IndicatorResult{}, fmt.Errorf("oscillator: need %d bars, have %d", period+1, len(ts.Bars))
		}

		rsi := last(talib.Rsi(ts.Closes(), period))
		return domain.IndicatorResult{
			Name:   NameOscillator,
			Value:  clamp(rsi, 0, 100),
			Status: domain.StatusOK,
			Detail: map[string]float64{DetailRSI: rsi},
		}, nil
	}
}
